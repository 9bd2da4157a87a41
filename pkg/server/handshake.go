package server

import (
	"bytes"
	"fmt"

	"github.com/cindermc/cinder/pkg/protocol"
)

func init() {
	registerPacket(protocol.StateHandshaking, protocol.C2SHandshake, decodeHandshake)
}

// Handshake is the first packet of every connection. Its nextState field
// selects which phase the connection moves to.
type Handshake struct {
	ProtocolVersion int32
	ServerAddress   string
	ServerPort      uint16
	NextState       int32
}

func decodeHandshake(r *bytes.Reader) (IncomingPacket, error) {
	var h Handshake
	var err error
	if h.ProtocolVersion, _, err = protocol.ReadVarInt(r); err != nil {
		return nil, err
	}
	if h.ServerAddress, err = protocol.ReadString(r); err != nil {
		return nil, err
	}
	if h.ServerPort, err = protocol.ReadUint16(r); err != nil {
		return nil, err
	}
	if h.NextState, _, err = protocol.ReadVarInt(r); err != nil {
		return nil, err
	}
	return &h, nil
}

func (h *Handshake) Handle(s *Server, c *Connection) error {
	s.log.Debug("handshake",
		"conn", c.Entity(),
		"protocol", h.ProtocolVersion,
		"address", h.ServerAddress,
		"port", h.ServerPort,
		"next", h.NextState)

	switch h.NextState {
	case protocol.NextStateStatus:
		c.SetPhase(protocol.StateStatus)
	case protocol.NextStateLogin:
		c.SetPhase(protocol.StateLogin)
	default:
		return fmt.Errorf("handshake: unknown next state %d", h.NextState)
	}
	return nil
}
