package server

import (
	"bytes"
	"strings"

	"github.com/cindermc/cinder/pkg/chat"
	"github.com/cindermc/cinder/pkg/protocol"
)

func init() {
	registerPacket(protocol.StateStatus, protocol.C2SStatusRequest, decodeStatusRequest)
	registerPacket(protocol.StateStatus, protocol.C2SPing, decodePing)
}

// StatusRequest asks for the server-list status document.
type StatusRequest struct{}

func decodeStatusRequest(*bytes.Reader) (IncomingPacket, error) {
	return &StatusRequest{}, nil
}

func (*StatusRequest) Handle(s *Server, c *Connection) error {
	status := chat.Status{
		Version: chat.StatusVersion{
			Name:     "1.21",
			Protocol: protocol.ProtocolVersion,
		},
		Players: chat.StatusPlayers{
			Max:    s.cfg.MaxPlayers,
			Online: s.conns.count(),
		},
		Description: chat.Text(strings.Join(s.cfg.MOTD, "\n")),
	}

	pkt := protocol.MarshalPacket(protocol.S2CStatusResponse, func(w *bytes.Buffer) {
		protocol.WriteString(w, status.String())
	})
	return c.SendPacket(pkt)
}

// Ping carries an opaque payload the client expects echoed back.
type Ping struct {
	Payload int64
}

func decodePing(r *bytes.Reader) (IncomingPacket, error) {
	payload, err := protocol.ReadInt64(r)
	if err != nil {
		return nil, err
	}
	return &Ping{Payload: payload}, nil
}

func (p *Ping) Handle(s *Server, c *Connection) error {
	pkt := protocol.MarshalPacket(protocol.S2CPong, func(w *bytes.Buffer) {
		protocol.WriteInt64(w, p.Payload)
	})
	return c.SendPacket(pkt)
}
