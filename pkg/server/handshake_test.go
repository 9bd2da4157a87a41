package server

import (
	"bytes"
	"testing"

	"github.com/cindermc/cinder/pkg/config"
	"github.com/cindermc/cinder/pkg/protocol"
)

func newTestServer(threshold int32) *Server {
	cfg := config.Default()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	cfg.NetworkCompressionThreshold = threshold
	return New(cfg)
}

func TestDecodeHandshake(t *testing.T) {
	data := []byte{255, 5, 9, 108, 111, 99, 97, 108, 104, 111, 115, 116, 99, 221, 1}

	in, err := decodeHandshake(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decodeHandshake error: %v", err)
	}
	h := in.(*Handshake)

	if h.ProtocolVersion != 767 {
		t.Errorf("ProtocolVersion = %d, want 767", h.ProtocolVersion)
	}
	if h.ServerAddress != "localhost" {
		t.Errorf("ServerAddress = %q, want localhost", h.ServerAddress)
	}
	if h.ServerPort != 25565 {
		t.Errorf("ServerPort = %d, want 25565", h.ServerPort)
	}
	if h.NextState != 1 {
		t.Errorf("NextState = %d, want 1", h.NextState)
	}
}

func TestHandshakeTransitions(t *testing.T) {
	tests := []struct {
		next  int32
		phase int32
	}{
		{protocol.NextStateStatus, protocol.StateStatus},
		{protocol.NextStateLogin, protocol.StateLogin},
	}

	for _, tt := range tests {
		s := newTestServer(-1)
		c := newPipeConnection(t, s)
		h := &Handshake{ProtocolVersion: 767, ServerAddress: "localhost", ServerPort: 25565, NextState: tt.next}
		if err := h.Handle(s, c); err != nil {
			t.Fatalf("Handle error: %v", err)
		}
		if c.Phase() != tt.phase {
			t.Errorf("phase after nextState %d = %d, want %d", tt.next, c.Phase(), tt.phase)
		}
	}
}

func TestHandshakeUnknownNextState(t *testing.T) {
	s := newTestServer(-1)
	c := newPipeConnection(t, s)
	h := &Handshake{NextState: 9}
	if err := h.Handle(s, c); err == nil {
		t.Error("unknown next state did not fail")
	}
	if c.Phase() != protocol.StateHandshaking {
		t.Errorf("phase changed on bad next state: %d", c.Phase())
	}
}
