package server

import (
	"bytes"
	"time"

	"github.com/cindermc/cinder/pkg/ecs"
	"github.com/cindermc/cinder/pkg/protocol"
)

func init() {
	registerPacket(protocol.StatePlay, protocol.C2SKeepAlive, decodeKeepAliveServerbound)
	registerPacket(protocol.StatePlay, protocol.C2SPlayerAbilities, decodePlayerAbilities)
}

// KeepAliveServerbound is the client's answer to a keep-alive probe.
type KeepAliveServerbound struct {
	Token int64
}

func decodeKeepAliveServerbound(r *bytes.Reader) (IncomingPacket, error) {
	token, err := protocol.ReadInt64(r)
	if err != nil {
		return nil, err
	}
	return &KeepAliveServerbound{Token: token}, nil
}

func (p *KeepAliveServerbound) Handle(s *Server, c *Connection) error {
	entity := c.Entity()
	keepAlive, err := ecs.Get[KeepAlive](s.storage, entity)
	if err != nil {
		return err
	}
	if keepAlive.Token != p.Token {
		s.log.Debug("stale keep-alive token", "conn", entity, "token", p.Token)
		return nil
	}
	keepAlive.LastReceived = time.Now()
	s.storage.Insert(entity, keepAlive)
	return nil
}

// PlayerAbilities reports the client's ability flags (flying etc).
type PlayerAbilities struct {
	Flags uint8
}

func decodePlayerAbilities(r *bytes.Reader) (IncomingPacket, error) {
	flags, err := protocol.ReadUint8(r)
	if err != nil {
		return nil, err
	}
	return &PlayerAbilities{Flags: flags}, nil
}

func (p *PlayerAbilities) Handle(s *Server, c *Connection) error {
	s.log.Debug("player abilities", "conn", c.Entity(), "flags", p.Flags)
	return nil
}
