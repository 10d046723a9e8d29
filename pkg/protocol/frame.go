package protocol

import (
	"encoding/binary"
	"errors"
	"io"
)

// Frame constants.
const (
	// FrameHeaderSize is the size of the frame header in bytes.
	FrameHeaderSize = 4

	// MaxPayloadSize is the maximum payload size (2^16 - 1 bytes).
	MaxPayloadSize = 65535
)

// FrameType identifies the type of frame.
type FrameType uint8

const (
	FrameHandshake  FrameType = 0x00 // Connection setup
	FrameEvent      FrameType = 0x01 // Host -> core raw input event
	FrameOps        FrameType = 0x02 // Core -> host mutation batch
	FrameMeasureReq FrameType = 0x03 // Core -> host measurement request
	FrameMeasureRes FrameType = 0x04 // Host -> core measurement result
	FrameAck        FrameType = 0x05 // Host -> core frame commit ack
	FrameError      FrameType = 0x06 // Either direction
)

// String returns the string representation of the frame type.
func (ft FrameType) String() string {
	switch ft {
	case FrameHandshake:
		return "Handshake"
	case FrameEvent:
		return "Event"
	case FrameOps:
		return "Ops"
	case FrameMeasureReq:
		return "MeasureReq"
	case FrameMeasureRes:
		return "MeasureRes"
	case FrameAck:
		return "Ack"
	case FrameError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Frame errors.
var (
	ErrFrameTooLarge    = errors.New("protocol: frame payload too large")
	ErrInvalidFrameType = errors.New("protocol: invalid frame type")
)

// Frame is one protocol frame.
//
// Wire format: 1 byte type, 1 byte flags (reserved, zero), 2 bytes
// payload length big-endian, then the payload.
type Frame struct {
	Type    FrameType
	Flags   uint8
	Payload []byte
}

// EncodeFrame serializes a frame.
func EncodeFrame(f *Frame) ([]byte, error) {
	if len(f.Payload) > MaxPayloadSize {
		return nil, ErrFrameTooLarge
	}
	buf := make([]byte, FrameHeaderSize+len(f.Payload))
	buf[0] = byte(f.Type)
	buf[1] = f.Flags
	binary.BigEndian.PutUint16(buf[2:4], uint16(len(f.Payload)))
	copy(buf[FrameHeaderSize:], f.Payload)
	return buf, nil
}

// DecodeFrame parses a frame from a complete message.
func DecodeFrame(buf []byte) (*Frame, error) {
	if len(buf) < FrameHeaderSize {
		return nil, io.ErrUnexpectedEOF
	}
	ft := FrameType(buf[0])
	if ft > FrameError {
		return nil, ErrInvalidFrameType
	}
	n := int(binary.BigEndian.Uint16(buf[2:4]))
	if len(buf) < FrameHeaderSize+n {
		return nil, io.ErrUnexpectedEOF
	}
	return &Frame{
		Type:    ft,
		Flags:   buf[1],
		Payload: buf[FrameHeaderSize : FrameHeaderSize+n],
	}, nil
}

// Handshake is the connection setup payload.
type Handshake struct {
	Version   uint64
	SessionID string
}

// ProtocolVersion is the current wire version.
const ProtocolVersion = 1

// EncodeHandshake serializes a handshake payload.
func EncodeHandshake(h *Handshake) []byte {
	enc := NewEncoder()
	enc.WriteUvarint(h.Version)
	enc.WriteString(h.SessionID)
	return enc.Bytes()
}

// DecodeHandshake parses a handshake payload.
func DecodeHandshake(buf []byte) (*Handshake, error) {
	dec := NewDecoder(buf)
	version, err := dec.ReadUvarint()
	if err != nil {
		return nil, err
	}
	sid, err := dec.ReadString()
	if err != nil {
		return nil, err
	}
	return &Handshake{Version: version, SessionID: sid}, nil
}

// EncodeAck serializes an ack for the ops frame with the given
// sequence number.
func EncodeAck(seq uint64) []byte {
	enc := NewEncoder()
	enc.WriteUvarint(seq)
	return enc.Bytes()
}

// DecodeAck parses an ack payload.
func DecodeAck(buf []byte) (uint64, error) {
	return NewDecoder(buf).ReadUvarint()
}

// WireError is the error frame payload.
type WireError struct {
	Code    uint64
	Message string
}

// Error codes.
const (
	ErrCodeBadFrame    = 1 // Frame could not be decoded
	ErrCodeBadEvent    = 2 // Event payload could not be decoded
	ErrCodeVersion     = 3 // Protocol version mismatch
	ErrCodeUnsupported = 4 // Frame type not handled by this peer
	ErrCodeOversized   = 5 // A single op cannot fit any frame
)

// EncodeWireError serializes an error payload.
func EncodeWireError(we *WireError) []byte {
	enc := NewEncoder()
	enc.WriteUvarint(we.Code)
	enc.WriteString(we.Message)
	return enc.Bytes()
}

// DecodeWireError parses an error payload.
func DecodeWireError(buf []byte) (*WireError, error) {
	dec := NewDecoder(buf)
	code, err := dec.ReadUvarint()
	if err != nil {
		return nil, err
	}
	msg, err := dec.ReadString()
	if err != nil {
		return nil, err
	}
	return &WireError{Code: code, Message: msg}, nil
}
