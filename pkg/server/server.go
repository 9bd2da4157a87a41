package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ztrue/tracerr"

	"github.com/cindermc/cinder/pkg/config"
	"github.com/cindermc/cinder/pkg/ecs"
	"github.com/cindermc/cinder/pkg/events"
	"github.com/cindermc/cinder/pkg/world"
)

const readTimeout = 30 * time.Second

// Server accepts connections and serves the protocol. Each connection gets
// its own goroutine; the world store is the only state shared across them.
type Server struct {
	cfg     *config.ServerConfig
	log     *slog.Logger
	conns   *connectionSet
	storage *ecs.Storage
	world   *world.World
	events  *events.Bus

	listener net.Listener
	nextID   atomic.Int32
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a server from an already-resolved configuration snapshot.
func New(cfg *config.ServerConfig) *Server {
	s := &Server{
		cfg:     cfg,
		log:     slog.Default(),
		conns:   newConnectionSet(),
		storage: ecs.NewStorage(),
		world:   world.New(cfg.World),
		events:  events.NewBus(),
		stopCh:  make(chan struct{}),
	}

	events.Subscribe(s.events, func(e events.PlayerJoinWorld) {
		s.log.Info("player joined world", "entity", e.Entity)
	})

	return s
}

// Storage returns the entity/component world store.
func (s *Server) Storage() *ecs.Storage {
	return s.storage
}

// Events returns the server's event bus.
func (s *Server) Events() *events.Bus {
	return s.events
}

// Start begins listening for connections.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var err error
	s.listener, err = net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.log.Info("server listening", "addr", s.listener.Addr())

	go s.acceptLoop()
	go s.keepAliveLoop()
	return nil
}

// Addr returns the listening address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop shuts the server down and closes every live connection.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	if s.listener != nil {
		s.listener.Close()
	}
	for _, c := range s.conns.all() {
		c.Close()
	}
}

// StopChan is closed when the server shuts down.
func (s *Server) StopChan() <-chan struct{} {
	return s.stopCh
}

func (s *Server) acceptLoop() {
	for {
		nc, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
				s.log.Error("accept failed", "err", err)
				continue
			}
		}
		go s.handleConn(nc)
	}
}

// handleConn serves one connection until teardown: read a frame, dispatch,
// repeat. Any transport or decode error is fatal to the connection; the
// deliberate exception, unknown packets, never surfaces as an error.
func (s *Server) handleConn(nc net.Conn) {
	id := ecs.Entity(s.nextID.Add(1))
	c := newConnection(nc, id, s.cfg.NetworkCompressionThreshold, s.log)
	s.conns.add(c)

	defer func() {
		s.conns.remove(id)
		s.storage.Despawn(id)
		nc.Close()
		s.log.Info("connection closed", "conn", id)
	}()

	s.log.Info("connection accepted", "conn", id, "remote", nc.RemoteAddr())

	for {
		nc.SetReadDeadline(time.Now().Add(readTimeout))
		pkt, err := c.readPacket()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.log.Debug("read failed", "conn", id, "err", err)
			}
			return
		}

		if err := s.dispatch(c, pkt); err != nil {
			s.log.Error("handler failed, closing connection",
				"conn", id,
				"id", pkt.ID,
				"err", tracerr.Sprint(err))
			return
		}
	}
}
