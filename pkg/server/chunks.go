package server

import (
	"bytes"
	"sort"

	"github.com/ztrue/tracerr"

	"github.com/cindermc/cinder/pkg/ecs"
	"github.com/cindermc/cinder/pkg/protocol"
)

// ViewDistance is the radius, in chunks, streamed around a player.
const ViewDistance = 4

type chunkPos struct {
	X, Z int32
}

// SendChunksToPlayer streams the chunk columns around the entity's position
// to its connection, nearest first. The caller must not hold the connection
// lock: every column write acquires it.
func (s *Server) SendChunksToPlayer(entity ecs.Entity) error {
	c, err := s.conns.get(entity)
	if err != nil {
		return tracerr.Wrap(err)
	}
	pos, err := ecs.Get[Position](s.storage, entity)
	if err != nil {
		return tracerr.Wrap(err)
	}

	centerX := int32(pos.X) >> 4
	centerZ := int32(pos.Z) >> 4

	var columns []chunkPos
	for cx := centerX - ViewDistance; cx <= centerX+ViewDistance; cx++ {
		for cz := centerZ - ViewDistance; cz <= centerZ+ViewDistance; cz++ {
			columns = append(columns, chunkPos{cx, cz})
		}
	}

	// Nearest columns first so the area around the player renders without
	// waiting for the whole square.
	sort.Slice(columns, func(i, j int) bool {
		dx1, dz1 := columns[i].X-centerX, columns[i].Z-centerZ
		dx2, dz2 := columns[j].X-centerX, columns[j].Z-centerZ
		return dx1*dx1+dz1*dz1 < dx2*dx2+dz2*dz2
	})

	for _, col := range columns {
		payload := s.world.ChunkPayload(col.X, col.Z)
		pkt := chunkDataPacket(col.X, col.Z, payload)
		if err := c.SendPacket(pkt); err != nil {
			return tracerr.Wrap(err)
		}
	}

	s.log.Debug("streamed spawn chunks", "conn", entity, "columns", len(columns))
	return nil
}

func chunkDataPacket(cx, cz int32, payload []byte) *protocol.Packet {
	return protocol.MarshalPacket(protocol.S2CChunkData, func(w *bytes.Buffer) {
		protocol.WriteInt32(w, cx)
		protocol.WriteInt32(w, cz)
		protocol.WriteBool(w, true)    // ground-up continuous
		protocol.WriteUint16(w, 0x01)  // primary bit mask: one solid section
		protocol.WriteVarInt(w, int32(len(payload)))
		w.Write(payload)
	})
}
