package protocol

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// MaxFrameLength is the largest frame a peer may declare (max 3-byte VarInt).
const MaxFrameLength = 2097151

// Packet represents a protocol packet: a numeric identifier plus its encoded
// field bytes. The identifier is only unique within a (phase, direction) pair.
type Packet struct {
	ID   int32
	Data []byte
}

// ReadPacket reads one framed packet from the reader. When compressed is set
// the frame is expected in the compressed layout: a VarInt uncompressed
// length (zero meaning the body was left uncompressed) followed by the body.
func ReadPacket(r io.Reader, compressed bool) (*Packet, error) {
	frameLen, _, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if frameLen < 1 || frameLen > MaxFrameLength {
		return nil, fmt.Errorf("%w: %d", ErrFrameLength, frameLen)
	}

	frame := make([]byte, frameLen)
	if _, err := io.ReadFull(r, frame); err != nil {
		return nil, fmt.Errorf("%w: truncated frame: %v", ErrFrameLength, err)
	}

	body := frame
	if compressed {
		fr := bytes.NewReader(frame)
		dataLen, _, err := ReadVarInt(fr)
		if err != nil {
			return nil, err
		}
		if dataLen < 0 || dataLen > MaxFrameLength {
			return nil, fmt.Errorf("%w: declared %d", ErrFrameLength, dataLen)
		}
		if dataLen == 0 {
			// Zero marker: body below threshold, sent uncompressed.
			body = frame[len(frame)-fr.Len():]
		} else {
			zr, err := zlib.NewReader(fr)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrDecompress, err)
			}
			inflated, err := io.ReadAll(zr)
			zr.Close()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrDecompress, err)
			}
			if int32(len(inflated)) != dataLen {
				return nil, fmt.Errorf("%w: declared %d, got %d", ErrLengthMismatch, dataLen, len(inflated))
			}
			body = inflated
		}
	}

	br := bytes.NewReader(body)
	packetID, idLen, err := ReadVarInt(br)
	if err != nil {
		return nil, err
	}

	return &Packet{
		ID:   packetID,
		Data: body[idLen:],
	}, nil
}

// WritePacket frames and writes one packet with a single buffered write.
// With compression disabled the frame is VarInt(len) | id | fields. With
// compression enabled, bodies of at least threshold bytes are deflated and
// prefixed with their uncompressed length; smaller bodies carry a zero marker
// instead. A negative threshold never compresses.
func WritePacket(w io.Writer, p *Packet, compressed bool, threshold int32) error {
	idSize := VarIntSize(p.ID)
	bodyLen := int32(idSize + len(p.Data))

	if !compressed {
		buf := bytes.NewBuffer(make([]byte, 0, VarIntSize(bodyLen)+int(bodyLen)))
		WriteVarInt(buf, bodyLen)
		WriteVarInt(buf, p.ID)
		buf.Write(p.Data)
		_, err := w.Write(buf.Bytes())
		return err
	}

	var payload bytes.Buffer
	if threshold >= 0 && bodyLen >= threshold {
		WriteVarInt(&payload, bodyLen)
		zw := zlib.NewWriter(&payload)
		WriteVarInt(zw, p.ID)
		if _, err := zw.Write(p.Data); err != nil {
			zw.Close()
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}
	} else {
		WriteVarInt(&payload, 0)
		WriteVarInt(&payload, p.ID)
		payload.Write(p.Data)
	}

	var frame bytes.Buffer
	frame.Grow(5 + payload.Len())
	WriteVarInt(&frame, int32(payload.Len()))
	frame.Write(payload.Bytes())
	_, err := w.Write(frame.Bytes())
	return err
}

// MarshalPacket creates a Packet from a packet ID and a builder function.
func MarshalPacket(id int32, builder func(w *bytes.Buffer)) *Packet {
	var buf bytes.Buffer
	builder(&buf)
	return &Packet{
		ID:   id,
		Data: buf.Bytes(),
	}
}
