package protocol

// Connection phases. A packet identifier is only meaningful within the phase
// and direction it was registered for.
const (
	StateHandshaking = int32(0)
	StateStatus      = int32(1)
	StateLogin       = int32(2)
	StatePlay        = int32(3)
)

// ProtocolVersion is the Java-edition protocol version this server speaks.
const ProtocolVersion = 767

// Values of the handshake nextState field.
const (
	NextStateStatus = 1
	NextStateLogin  = 2
)

const (
	// Handshaking (C→S)
	C2SHandshake = 0x00

	// Status (C→S)
	C2SStatusRequest = 0x00
	C2SPing          = 0x01

	// Status (S→C)
	S2CStatusResponse = 0x00
	S2CPong           = 0x01

	// Login (C→S)
	C2SLoginStart = 0x00

	// Login (S→C)
	S2CLoginSuccess   = 0x02
	S2CSetCompression = 0x03

	// Play (C→S)
	C2SKeepAlive       = 0x18
	C2SPlayerAbilities = 0x1C

	// Play (S→C)
	S2CChunkData                 = 0x27
	S2CLoginPlay                 = 0x28
	S2CSynchronizePlayerPosition = 0x40
	S2CKeepAlive                 = 0x26
	S2CSetDefaultSpawnPosition   = 0x56
)

// StateName returns a readable name for a connection phase, for logging.
func StateName(state int32) string {
	switch state {
	case StateHandshaking:
		return "handshaking"
	case StateStatus:
		return "status"
	case StateLogin:
		return "login"
	case StatePlay:
		return "play"
	default:
		return "unknown"
	}
}
