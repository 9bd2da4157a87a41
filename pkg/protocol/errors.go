package protocol

import "errors"

// Decode errors returned by the codec and framing layers. These layers never
// log; the dispatch layer decides what is fatal and reports it.
var (
	// ErrVarIntTooBig is returned when a VarInt carries the continuation bit
	// past its maximum of 5 bytes.
	ErrVarIntTooBig = errors.New("varint exceeds 5 bytes")

	// ErrVarLongTooBig is returned when a VarLong carries the continuation bit
	// past its maximum of 10 bytes.
	ErrVarLongTooBig = errors.New("varlong exceeds 10 bytes")

	// ErrStringLength is returned when a string length prefix is negative or
	// larger than the protocol permits.
	ErrStringLength = errors.New("string length out of range")

	// ErrFrameLength is returned when a packet frame declares a length outside
	// the permitted range or the stream ends before the declared bytes arrive.
	ErrFrameLength = errors.New("bad frame length")

	// ErrLengthMismatch is returned when a compressed frame's declared
	// uncompressed length disagrees with the bytes actually produced.
	ErrLengthMismatch = errors.New("uncompressed length mismatch")

	// ErrDecompress is returned when the zlib stream inside a compressed frame
	// cannot be inflated.
	ErrDecompress = errors.New("decompression failed")
)
