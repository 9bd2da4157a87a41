// Package world provides chunk-column payloads for streaming to players.
// Generation and persistence internals live behind this surface; the codec
// treats the payload as opaque bytes.
package world

import (
	"bytes"
	"sync"
)

const (
	// SectionSize is the number of blocks in one 16x16x16 chunk section.
	SectionSize = 16 * 16 * 16

	// SolidHeight is the height of the superflat terrain: bedrock at y=0,
	// dirt up to y=3, grass at y=4.
	SolidHeight = 5
)

// World produces chunk-column payloads for a named world.
type World struct {
	name string

	once sync.Once
	flat []byte
}

// New creates a world with the given name.
func New(name string) *World {
	return &World{name: name}
}

// Name returns the configured world name.
func (w *World) Name() string {
	return w.name
}

// ChunkPayload returns the serialized column payload for the chunk at the
// given chunk coordinates. Every column of a superflat world is identical, so
// the payload is built once and shared.
func (w *World) ChunkPayload(cx, cz int32) []byte {
	w.once.Do(func() {
		w.flat = buildFlatColumn()
	})
	return w.flat
}

// buildFlatColumn serializes the single solid section of a superflat column:
// block states as 2-byte little-endian (id << 4 | meta), then block light,
// sky light, and biome bytes.
func buildFlatColumn() []byte {
	var buf bytes.Buffer

	for x := 0; x < 16; x++ {
		for z := 0; z < 16; z++ {
			for y := 0; y < 16; y++ {
				state := blockStateAt(int32(y))
				buf.WriteByte(byte(state))
				buf.WriteByte(byte(state >> 8))
			}
		}
	}

	// Block light and sky light, half a byte per block, fully lit.
	light := bytes.Repeat([]byte{0xFF}, SectionSize/2)
	buf.Write(light)
	buf.Write(light)

	// Biome per column: plains.
	buf.Write(bytes.Repeat([]byte{1}, 256))

	return buf.Bytes()
}

func blockStateAt(y int32) uint16 {
	switch {
	case y == 0:
		return 7 << 4 // bedrock
	case y <= 3:
		return 3 << 4 // dirt
	case y == 4:
		return 2 << 4 // grass
	default:
		return 0 // air
	}
}
