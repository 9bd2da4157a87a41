package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/cindermc/cinder/pkg/ecs"
	"github.com/cindermc/cinder/pkg/protocol"
)

// ErrConnectionNotFound is returned when looking up a connection by entity id
// that is no longer (or never was) registered.
var ErrConnectionNotFound = errors.New("connection not found")

// Connection is the server side of one network peer. The write half and the
// compression flag are guarded by a single lock; the protocol phase is
// readable without blocking on handler execution elsewhere. The serving
// goroutine owns the read half exclusively.
type Connection struct {
	id   ecs.Entity
	conn net.Conn
	log  *slog.Logger

	phase atomic.Int32

	mu         sync.Mutex
	compressed bool
	threshold  int32
}

func newConnection(nc net.Conn, id ecs.Entity, threshold int32, log *slog.Logger) *Connection {
	c := &Connection{
		id:        id,
		conn:      nc,
		threshold: threshold,
		log:       log.With("conn", id),
	}
	c.phase.Store(protocol.StateHandshaking)
	return c
}

// Entity returns the world entity id assigned to this connection.
func (c *Connection) Entity() ecs.Entity {
	return c.id
}

// Phase returns the current protocol phase without blocking.
func (c *Connection) Phase() int32 {
	return c.phase.Load()
}

// SetPhase transitions the connection to a new protocol phase. Transitions
// are monotonic forward; there is no way back to an earlier phase.
func (c *Connection) SetPhase(phase int32) {
	c.phase.Store(phase)
}

// Compressed reports whether the compression layer is active.
func (c *Connection) Compressed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.compressed
}

// SendPacket frames and writes a packet. Writes on one connection are
// serialized by the connection lock, so packets go out in the order handlers
// issue them. Callers must not hold the lock already.
func (c *Connection) SendPacket(p *protocol.Packet) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return protocol.WritePacket(c.conn, p, c.compressed, c.threshold)
}

// sendAndEnableCompression writes a packet uncompressed and switches the
// write path to compressed framing before releasing the lock, so no later
// packet can slip out between the two.
func (c *Connection) sendAndEnableCompression(p *protocol.Packet) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := protocol.WritePacket(c.conn, p, false, c.threshold); err != nil {
		return err
	}
	c.compressed = true
	return nil
}

// readPacket reads one inbound frame using the current compression state.
// Only the serving goroutine may call this.
func (c *Connection) readPacket() (*protocol.Packet, error) {
	return protocol.ReadPacket(c.conn, c.Compressed())
}

// RemoteAddr returns the peer address.
func (c *Connection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close tears the connection down. In-flight work observes the failure on its
// next read or write.
func (c *Connection) Close() error {
	return c.conn.Close()
}

// connectionSet is the registry of live connections keyed by entity id.
type connectionSet struct {
	mu    sync.RWMutex
	conns map[ecs.Entity]*Connection
}

func newConnectionSet() *connectionSet {
	return &connectionSet{conns: make(map[ecs.Entity]*Connection)}
}

func (s *connectionSet) add(c *Connection) {
	s.mu.Lock()
	s.conns[c.id] = c
	s.mu.Unlock()
}

func (s *connectionSet) remove(id ecs.Entity) {
	s.mu.Lock()
	delete(s.conns, id)
	s.mu.Unlock()
}

func (s *connectionSet) get(id ecs.Entity) (*Connection, error) {
	s.mu.RLock()
	c, ok := s.conns[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: entity %d", ErrConnectionNotFound, id)
	}
	return c, nil
}

func (s *connectionSet) all() []*Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Connection, 0, len(s.conns))
	for _, c := range s.conns {
		out = append(out, c)
	}
	return out
}

func (s *connectionSet) count() int32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int32(len(s.conns))
}
