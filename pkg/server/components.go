package server

import (
	"time"

	"github.com/google/uuid"
)

// Components attached to player entities. Each is an independent slot in the
// world store; absence of a component is a valid, explicitly queried state.

// Position is a world-space location.
type Position struct {
	X, Y, Z float64
}

// Rotation is a view direction.
type Rotation struct {
	Yaw, Pitch float32
}

// KeepAlive tracks the liveness handshake with a client.
type KeepAlive struct {
	LastSent     time.Time
	LastReceived time.Time
	Token        int64
}

// Player is the identity of a logged-in player.
type Player struct {
	UUID     uuid.UUID
	Username string
}

// Default spawn placement for new players.
const (
	DefaultSpawnX     = 8.0
	DefaultSpawnY     = 5.0
	DefaultSpawnZ     = 8.0
	DefaultSpawnYaw   = float32(0)
	DefaultSpawnPitch = float32(0)
)
