package server

import (
	"bytes"

	"github.com/ztrue/tracerr"

	"github.com/cindermc/cinder/pkg/protocol"
)

// IncomingPacket is a decoded inbound packet bound to a handler. Handlers run
// with exclusive ownership of the packet value; any socket or phase mutation
// goes through the connection's lock, and handlers must not hold that lock
// across calls into subsystems that reacquire it.
type IncomingPacket interface {
	Handle(s *Server, c *Connection) error
}

type decoderFunc func(r *bytes.Reader) (IncomingPacket, error)

type registryKey struct {
	phase int32
	id    int32
}

// packetRegistry maps (phase, packet id) to a decoder. It is populated by
// init functions in the handler files and read-only afterwards.
var packetRegistry = map[registryKey]decoderFunc{}

func registerPacket(phase, id int32, decode decoderFunc) {
	key := registryKey{phase: phase, id: id}
	if _, dup := packetRegistry[key]; dup {
		panic("duplicate packet registration")
	}
	packetRegistry[key] = decode
}

// lookupDecoder resolves the decoder for a packet id in a phase. The phase is
// consulted first: identifiers are only unique within a phase, so an id valid
// in Login must not resolve while the connection is in Play.
func lookupDecoder(phase, id int32) (decoderFunc, bool) {
	d, ok := packetRegistry[registryKey{phase: phase, id: id}]
	return d, ok
}

// dispatch routes one inbound packet. An unregistered (phase, id) pair is
// non-fatal: protocols routinely include optional packets a conformant server
// may skip, so it is logged and dropped. A failed decode of a registered
// packet desynchronizes the stream and is fatal, as is a handler error.
func (s *Server) dispatch(c *Connection, pkt *protocol.Packet) error {
	phase := c.Phase()
	decode, ok := lookupDecoder(phase, pkt.ID)
	if !ok {
		s.log.Debug("dropping unknown packet",
			"conn", c.Entity(),
			"phase", protocol.StateName(phase),
			"id", pkt.ID)
		return nil
	}

	in, err := decode(bytes.NewReader(pkt.Data))
	if err != nil {
		return tracerr.Wrap(err)
	}
	if err := in.Handle(s, c); err != nil {
		return tracerr.Wrap(err)
	}
	return nil
}
