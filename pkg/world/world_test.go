package world

import "testing"

func TestChunkPayload(t *testing.T) {
	w := New("test")
	payload := w.ChunkPayload(0, 0)

	// One section of 2-byte block states, two light arrays, biome bytes.
	wantLen := SectionSize*2 + SectionSize/2 + SectionSize/2 + 256
	if len(payload) != wantLen {
		t.Fatalf("payload length = %d, want %d", len(payload), wantLen)
	}

	// First block in iteration order is (x=0, z=0, y=0): bedrock.
	state := uint16(payload[0]) | uint16(payload[1])<<8
	if state != 7<<4 {
		t.Errorf("bottom block state = %#x, want bedrock", state)
	}
}

func TestChunkPayloadShared(t *testing.T) {
	w := New("test")
	a := w.ChunkPayload(0, 0)
	b := w.ChunkPayload(5, -3)
	if &a[0] != &b[0] {
		t.Error("flat columns should share one payload")
	}
}

func TestName(t *testing.T) {
	if got := New("flatlands").Name(); got != "flatlands" {
		t.Errorf("Name() = %q", got)
	}
}
