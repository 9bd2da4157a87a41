package server

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/cindermc/cinder/pkg/ecs"
	"github.com/cindermc/cinder/pkg/protocol"
)

type loginRun struct {
	srv     *Server
	conn    *Connection
	client  net.Conn
	packets []*protocol.Packet
}

func (r *loginRun) packetIDs() []int32 {
	ids := make([]int32, len(r.packets))
	for i, p := range r.packets {
		ids[i] = p.ID
	}
	return ids
}

func (r *loginRun) packet(id int32) *protocol.Packet {
	for _, p := range r.packets {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// runLoginSequence drives a handshake and login-start through a served
// connection and collects every response up to the position synchronization.
func runLoginSequence(t *testing.T, threshold int32, username string) *loginRun {
	t.Helper()
	s := newTestServer(threshold)
	serverEnd, clientEnd := net.Pipe()
	t.Cleanup(func() {
		serverEnd.Close()
		clientEnd.Close()
	})
	go s.handleConn(serverEnd)

	clientEnd.SetDeadline(time.Now().Add(5 * time.Second))

	handshake := protocol.MarshalPacket(protocol.C2SHandshake, func(w *bytes.Buffer) {
		protocol.WriteVarInt(w, protocol.ProtocolVersion)
		protocol.WriteString(w, "localhost")
		protocol.WriteUint16(w, 25565)
		protocol.WriteVarInt(w, protocol.NextStateLogin)
	})
	if err := protocol.WritePacket(clientEnd, handshake, false, -1); err != nil {
		t.Fatalf("write handshake: %v", err)
	}

	loginStart := protocol.MarshalPacket(protocol.C2SLoginStart, func(w *bytes.Buffer) {
		protocol.WriteString(w, username)
		protocol.WriteUUID(w, [16]byte{})
	})
	if err := protocol.WritePacket(clientEnd, loginStart, false, -1); err != nil {
		t.Fatalf("write login start: %v", err)
	}

	compressed := false
	var packets []*protocol.Packet
	for {
		pkt, err := protocol.ReadPacket(clientEnd, compressed)
		if err != nil {
			t.Fatalf("read response (after %d packets): %v", len(packets), err)
		}
		packets = append(packets, pkt)
		if pkt.ID == protocol.S2CSetCompression && !compressed {
			// Every packet after set-compression uses the compressed layout.
			compressed = true
			continue
		}
		if pkt.ID == protocol.S2CSynchronizePlayerPosition {
			break
		}
	}

	conns := s.conns.all()
	if len(conns) != 1 {
		t.Fatalf("live connections = %d, want 1", len(conns))
	}

	return &loginRun{srv: s, conn: conns[0], client: clientEnd, packets: packets}
}

// readChunk consumes one chunk-data packet, which the server only sends after
// the phase transition to Play.
func (r *loginRun) readChunk(t *testing.T) {
	t.Helper()
	pkt, err := protocol.ReadPacket(r.client, r.conn.Compressed())
	if err != nil {
		t.Fatalf("read chunk packet: %v", err)
	}
	if pkt.ID != protocol.S2CChunkData {
		t.Fatalf("packet after login = %#x, want chunk data", pkt.ID)
	}
}

func TestLoginSequenceOrder(t *testing.T) {
	run := runLoginSequence(t, -1, "Steve")

	want := []int32{
		protocol.S2CLoginSuccess,
		protocol.S2CLoginPlay,
		protocol.S2CSetDefaultSpawnPosition,
		protocol.S2CKeepAlive,
		protocol.S2CSynchronizePlayerPosition,
	}
	got := run.packetIDs()
	if len(got) != len(want) {
		t.Fatalf("packet ids = %#v, want %#v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("packet %d = %#x, want %#x", i, got[i], want[i])
		}
	}
}

func TestLoginCompressionDisabled(t *testing.T) {
	run := runLoginSequence(t, -1, "Steve")

	// Threshold -1 must skip set-compression entirely and never mark the
	// connection compressed.
	if run.packet(protocol.S2CSetCompression) != nil {
		t.Error("set-compression sent with threshold -1")
	}
	if run.conn.Compressed() {
		t.Error("connection marked compressed with threshold -1")
	}
}

func TestLoginCompressionThresholdZero(t *testing.T) {
	run := runLoginSequence(t, 0, "Steve")

	if run.packets[0].ID != protocol.S2CSetCompression {
		t.Fatalf("first packet = %#x, want set-compression", run.packets[0].ID)
	}
	if !run.conn.Compressed() {
		t.Error("connection not marked compressed after set-compression")
	}

	// The threshold rides in the packet itself.
	threshold, _, err := protocol.ReadVarInt(bytes.NewReader(run.packets[0].Data))
	if err != nil || threshold != 0 {
		t.Errorf("set-compression threshold = %d (%v), want 0", threshold, err)
	}

	// runLoginSequence parsed login-success onward with the compressed frame
	// layout; reaching the position synchronization proves every subsequent
	// packet used it.
	if run.packet(protocol.S2CSynchronizePlayerPosition) == nil {
		t.Error("compressed stream did not reach position synchronization")
	}
}

func TestLoginWorldState(t *testing.T) {
	run := runLoginSequence(t, -1, "  Steve  ")
	entity := run.conn.Entity()

	pos, err := ecs.Get[Position](run.srv.storage, entity)
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	if pos != (Position{X: DefaultSpawnX, Y: DefaultSpawnY, Z: DefaultSpawnZ}) {
		t.Errorf("Position = %+v", pos)
	}

	rot, err := ecs.Get[Rotation](run.srv.storage, entity)
	if err != nil {
		t.Fatalf("Rotation: %v", err)
	}
	if rot != (Rotation{Yaw: DefaultSpawnYaw, Pitch: DefaultSpawnPitch}) {
		t.Errorf("Rotation = %+v", rot)
	}

	player, err := ecs.Get[Player](run.srv.storage, entity)
	if err != nil {
		t.Fatalf("Player: %v", err)
	}
	if player.Username != "Steve" {
		t.Errorf("Username = %q, want trimmed %q", player.Username, "Steve")
	}
	if player.UUID != offlineUUID("Steve") {
		t.Errorf("Player UUID does not match offline derivation")
	}

	keepAlive, err := ecs.Get[KeepAlive](run.srv.storage, entity)
	if err != nil {
		t.Fatalf("KeepAlive: %v", err)
	}
	kaPkt := run.packet(protocol.S2CKeepAlive)
	if kaPkt == nil {
		t.Fatal("no keep-alive packet sent")
	}
	token, err := protocol.ReadInt64(bytes.NewReader(kaPkt.Data))
	if err != nil {
		t.Fatalf("keep-alive payload: %v", err)
	}
	if token != keepAlive.Token {
		t.Errorf("keep-alive token on wire = %d, stored %d", token, keepAlive.Token)
	}
}

func TestLoginSynchronizesStoredPosition(t *testing.T) {
	run := runLoginSequence(t, -1, "Steve")

	sync := run.packet(protocol.S2CSynchronizePlayerPosition)
	if sync == nil {
		t.Fatal("no position synchronization packet")
	}
	r := bytes.NewReader(sync.Data)
	x, _ := protocol.ReadFloat64(r)
	y, _ := protocol.ReadFloat64(r)
	z, _ := protocol.ReadFloat64(r)
	yaw, _ := protocol.ReadFloat32(r)
	pitch, _ := protocol.ReadFloat32(r)

	if x != DefaultSpawnX || y != DefaultSpawnY || z != DefaultSpawnZ {
		t.Errorf("synchronized position = (%v,%v,%v)", x, y, z)
	}
	if yaw != DefaultSpawnYaw || pitch != DefaultSpawnPitch {
		t.Errorf("synchronized rotation = (%v,%v)", yaw, pitch)
	}
}

func TestLoginTransitionsToPlay(t *testing.T) {
	run := runLoginSequence(t, -1, "Steve")

	// Chunk data is only sent after the phase transition, so seeing a chunk
	// packet means the phase is already Play.
	run.readChunk(t)
	if run.conn.Phase() != protocol.StatePlay {
		t.Errorf("phase = %s, want play", protocol.StateName(run.conn.Phase()))
	}
}

func TestLoginSuccessIdentity(t *testing.T) {
	run := runLoginSequence(t, -1, "Steve")

	success := run.packet(protocol.S2CLoginSuccess)
	if success == nil {
		t.Fatal("no login-success packet")
	}
	r := bytes.NewReader(success.Data)
	rawUUID, err := protocol.ReadUUID(r)
	if err != nil {
		t.Fatalf("uuid: %v", err)
	}
	username, err := protocol.ReadString(r)
	if err != nil {
		t.Fatalf("username: %v", err)
	}

	if rawUUID != [16]byte(offlineUUID("Steve")) {
		t.Error("login-success UUID does not match offline derivation")
	}
	if username != "Steve" {
		t.Errorf("login-success username = %q", username)
	}
}
