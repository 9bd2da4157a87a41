package server

import (
	"bytes"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ztrue/tracerr"

	"github.com/cindermc/cinder/pkg/ecs"
	"github.com/cindermc/cinder/pkg/events"
	"github.com/cindermc/cinder/pkg/protocol"
)

func init() {
	registerPacket(protocol.StateLogin, protocol.C2SLoginStart, decodeLoginStart)
}

// registryCodec is the pre-encoded registry payload embedded in the
// login-play packet. The codec treats it as an opaque blob.
var registryCodec = []byte{0x0A, 0x00, 0x00, 0x00}

// LoginStart begins the login sequence. The server answers with
// set-compression (when configured), login-success, login-play, the default
// spawn position, a keep-alive and a position synchronization, in that order,
// then moves the connection to the Play phase. No client response is awaited
// between those packets.
type LoginStart struct {
	Username string
	UUID     [16]byte
}

func decodeLoginStart(r *bytes.Reader) (IncomingPacket, error) {
	var p LoginStart
	var err error
	if p.Username, err = protocol.ReadString(r); err != nil {
		return nil, err
	}
	if p.UUID, err = protocol.ReadUUID(r); err != nil {
		return nil, err
	}
	return &p, nil
}

// Handle runs the login sequence. The packet order is protocol-mandated:
// reordering it produces a client that cannot render the world. Any failure
// aborts the sequence and tears the connection down.
func (p *LoginStart) Handle(s *Server, c *Connection) error {
	p.Username = strings.TrimSpace(p.Username)
	s.log.Info("player logging in", "conn", c.Entity(), "username", p.Username)

	if err := p.sendSetCompression(s, c); err != nil {
		return tracerr.Wrap(err)
	}

	playerUUID := offlineUUID(p.Username)
	if err := p.sendLoginSuccess(c, playerUUID); err != nil {
		return tracerr.Wrap(err)
	}
	if err := p.sendLoginPlay(s, c); err != nil {
		return tracerr.Wrap(err)
	}
	if err := p.sendSpawnPosition(c); err != nil {
		return tracerr.Wrap(err)
	}

	now := time.Now()
	keepAlive := KeepAlive{LastSent: now, LastReceived: now, Token: rand.Int63()}
	if err := sendKeepAlive(c, keepAlive.Token); err != nil {
		return tracerr.Wrap(err)
	}

	entity := c.Entity()
	p.updateWorldState(s, entity, playerUUID, keepAlive)

	if err := p.synchronizePlayerPosition(s, c); err != nil {
		return tracerr.Wrap(err)
	}

	s.events.Dispatch(events.PlayerJoinWorld{Entity: entity})

	c.SetPhase(protocol.StatePlay)

	// The connection lock is free here: the chunk sender acquires it for
	// every column it writes, so entering it while holding the lock would
	// deadlock.
	return s.SendChunksToPlayer(entity)
}

// offlineUUID derives the deterministic offline-mode identity for a
// username: a v5 UUID of "OfflinePlayer" in the URL namespace forms the
// namespace for a v3 UUID of the username.
func offlineUUID(username string) uuid.UUID {
	namespace := uuid.NewSHA1(uuid.NameSpaceURL, []byte("OfflinePlayer"))
	return uuid.NewMD5(namespace, []byte(username))
}

// sendSetCompression negotiates the compression layer. The packet itself
// must go out uncompressed, and every packet after it must use the
// compressed framing, so the flag flips under the same lock as the write.
func (p *LoginStart) sendSetCompression(s *Server, c *Connection) error {
	threshold := s.cfg.NetworkCompressionThreshold

	// The packet is optional: no packet means no compression.
	if threshold <= -1 {
		return nil
	}

	s.log.Debug("enabling compression", "conn", c.Entity(), "threshold", threshold)
	pkt := protocol.MarshalPacket(protocol.S2CSetCompression, func(w *bytes.Buffer) {
		protocol.WriteVarInt(w, threshold)
	})
	return c.sendAndEnableCompression(pkt)
}

func (p *LoginStart) sendLoginSuccess(c *Connection, playerUUID uuid.UUID) error {
	pkt := protocol.MarshalPacket(protocol.S2CLoginSuccess, func(w *bytes.Buffer) {
		protocol.WriteUUID(w, playerUUID)
		protocol.WriteString(w, p.Username)
		protocol.WriteVarInt(w, 0) // no properties
	})
	return c.SendPacket(pkt)
}

func (p *LoginStart) sendLoginPlay(s *Server, c *Connection) error {
	pkt := protocol.MarshalPacket(protocol.S2CLoginPlay, func(w *bytes.Buffer) {
		protocol.WriteInt32(w, int32(c.Entity())) // entity id
		protocol.WriteBool(w, false)              // hardcore
		protocol.WriteUint8(w, 1)                 // gamemode: creative
		protocol.WriteInt8(w, -1)                 // previous gamemode
		protocol.WriteVarInt(w, 1)                // dimension count
		protocol.WriteString(w, "minecraft:overworld")
		w.Write(registryCodec)
		protocol.WriteString(w, "minecraft:overworld") // dimension type
		protocol.WriteString(w, "minecraft:overworld") // dimension name
		protocol.WriteInt64(w, 0)                      // seed hash
		protocol.WriteVarInt(w, s.cfg.MaxPlayers)
		protocol.WriteVarInt(w, ViewDistance)
		protocol.WriteVarInt(w, ViewDistance) // simulation distance
		protocol.WriteBool(w, false)          // reduced debug info
		protocol.WriteBool(w, true)           // enable respawn screen
		protocol.WriteBool(w, false)          // is debug
		protocol.WriteBool(w, true)           // is flat
		protocol.WriteBool(w, false)          // has death location
		protocol.WriteVarInt(w, 0)            // portal cooldown
	})
	return c.SendPacket(pkt)
}

func (p *LoginStart) sendSpawnPosition(c *Connection) error {
	pkt := protocol.MarshalPacket(protocol.S2CSetDefaultSpawnPosition, func(w *bytes.Buffer) {
		protocol.WritePosition(w, int32(DefaultSpawnX), int32(DefaultSpawnY), int32(DefaultSpawnZ))
		protocol.WriteFloat32(w, 0) // angle
	})
	return c.SendPacket(pkt)
}

func sendKeepAlive(c *Connection, token int64) error {
	pkt := protocol.MarshalPacket(protocol.S2CKeepAlive, func(w *bytes.Buffer) {
		protocol.WriteInt64(w, token)
	})
	return c.SendPacket(pkt)
}

func (p *LoginStart) updateWorldState(s *Server, entity ecs.Entity, playerUUID uuid.UUID, keepAlive KeepAlive) {
	s.storage.
		Insert(entity, Position{X: DefaultSpawnX, Y: DefaultSpawnY, Z: DefaultSpawnZ}).
		Insert(entity, Rotation{Yaw: DefaultSpawnYaw, Pitch: DefaultSpawnPitch}).
		Insert(entity, keepAlive).
		Insert(entity, Player{UUID: playerUUID, Username: p.Username})
}

func (p *LoginStart) synchronizePlayerPosition(s *Server, c *Connection) error {
	entity := c.Entity()
	pos, err := ecs.Get[Position](s.storage, entity)
	if err != nil {
		return err
	}
	rot, err := ecs.Get[Rotation](s.storage, entity)
	if err != nil {
		return err
	}

	pkt := protocol.MarshalPacket(protocol.S2CSynchronizePlayerPosition, func(w *bytes.Buffer) {
		protocol.WriteFloat64(w, pos.X)
		protocol.WriteFloat64(w, pos.Y)
		protocol.WriteFloat64(w, pos.Z)
		protocol.WriteFloat32(w, rot.Yaw)
		protocol.WriteFloat32(w, rot.Pitch)
		protocol.WriteUint8(w, 0)  // relative flags: all absolute
		protocol.WriteVarInt(w, 0) // teleport id
	})
	return c.SendPacket(pkt)
}
