package server

import (
	"math/rand"
	"time"

	"github.com/cindermc/cinder/pkg/ecs"
	"github.com/cindermc/cinder/pkg/protocol"
)

const (
	keepAliveInterval = 10 * time.Second
	keepAliveTimeout  = 30 * time.Second
)

// keepAliveLoop periodically probes every connection in the Play phase and
// disconnects peers that stopped answering.
func (s *Server) keepAliveLoop() {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.runKeepAlive(time.Now())
		}
	}
}

// runKeepAlive sends one round of keep-alive probes. It never holds a world
// store lock across a connection write: the component is read, the packet is
// sent, and the updated component is written back as three separate steps.
func (s *Server) runKeepAlive(now time.Time) {
	for _, c := range s.conns.all() {
		if c.Phase() != protocol.StatePlay {
			continue
		}
		entity := c.Entity()
		keepAlive, err := ecs.Get[KeepAlive](s.storage, entity)
		if err != nil {
			continue
		}

		if now.Sub(keepAlive.LastReceived) > keepAliveTimeout {
			s.log.Info("keep-alive timeout, disconnecting", "conn", entity)
			c.Close()
			continue
		}

		keepAlive.Token = rand.Int63()
		keepAlive.LastSent = now
		if err := sendKeepAlive(c, keepAlive.Token); err != nil {
			s.log.Debug("keep-alive send failed", "conn", entity, "err", err)
			c.Close()
			continue
		}
		s.storage.Insert(entity, keepAlive)
	}
}
