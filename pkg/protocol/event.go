package protocol

import (
	"errors"
	"fmt"
)

// EventType identifies the type of raw input event from the host.
type EventType uint8

const (
	EventKeyDown     EventType = 0x01
	EventComposition EventType = 0x02
	EventPaste       EventType = 0x03
	EventClick       EventType = 0x04
)

// String returns the string representation of the event type.
func (et EventType) String() string {
	switch et {
	case EventKeyDown:
		return "KeyDown"
	case EventComposition:
		return "Composition"
	case EventPaste:
		return "Paste"
	case EventClick:
		return "Click"
	default:
		return "Unknown"
	}
}

// ErrInvalidEvent is returned when an event payload cannot be decoded.
var ErrInvalidEvent = errors.New("protocol: invalid event")

// KeyData is the keydown payload.
type KeyData struct {
	Key       string
	Code      string
	Modifiers uint8
	Repeat    bool
}

// CompositionData is the composition payload. Phase matches the host
// composition phases: 0 start, 1 update, 2 end.
type CompositionData struct {
	Phase uint8
	Data  string
}

// PasteData carries the plain-text clipboard payload; rich formats
// are stripped on the host side.
type PasteData struct {
	Text string
}

// ClickData is a pointer press already resolved by the host to a node
// and a rune offset within its text.
type ClickData struct {
	Ref    uint64
	X, Y   float64
	Offset int
}

// Event is one raw input event.
type Event struct {
	Seq     uint64
	Type    EventType
	Payload any
}

// EncodeEvent serializes an event.
func EncodeEvent(e *Event) ([]byte, error) {
	enc := NewEncoder()
	enc.WriteUvarint(e.Seq)
	enc.WriteByte(byte(e.Type))

	switch e.Type {
	case EventKeyDown:
		data, ok := e.Payload.(*KeyData)
		if !ok || data == nil {
			return nil, fmt.Errorf("%w: keydown payload", ErrInvalidEvent)
		}
		enc.WriteString(data.Key)
		enc.WriteString(data.Code)
		enc.WriteByte(data.Modifiers)
		enc.WriteBool(data.Repeat)

	case EventComposition:
		data, ok := e.Payload.(*CompositionData)
		if !ok || data == nil {
			return nil, fmt.Errorf("%w: composition payload", ErrInvalidEvent)
		}
		enc.WriteByte(data.Phase)
		enc.WriteString(data.Data)

	case EventPaste:
		data, ok := e.Payload.(*PasteData)
		if !ok || data == nil {
			return nil, fmt.Errorf("%w: paste payload", ErrInvalidEvent)
		}
		enc.WriteString(data.Text)

	case EventClick:
		data, ok := e.Payload.(*ClickData)
		if !ok || data == nil {
			return nil, fmt.Errorf("%w: click payload", ErrInvalidEvent)
		}
		enc.WriteUvarint(data.Ref)
		enc.WriteFloat64(data.X)
		enc.WriteFloat64(data.Y)
		enc.WriteSvarint(int64(data.Offset))

	default:
		return nil, fmt.Errorf("%w: type 0x%02x", ErrInvalidEvent, byte(e.Type))
	}

	return enc.Bytes(), nil
}

// DecodeEvent parses an event payload.
func DecodeEvent(buf []byte) (*Event, error) {
	dec := NewDecoder(buf)
	seq, err := dec.ReadUvarint()
	if err != nil {
		return nil, err
	}
	tb, err := dec.ReadByte()
	if err != nil {
		return nil, err
	}
	e := &Event{Seq: seq, Type: EventType(tb)}

	switch e.Type {
	case EventKeyDown:
		data := &KeyData{}
		if data.Key, err = dec.ReadString(); err != nil {
			return nil, err
		}
		if data.Code, err = dec.ReadString(); err != nil {
			return nil, err
		}
		if data.Modifiers, err = dec.ReadByte(); err != nil {
			return nil, err
		}
		if data.Repeat, err = dec.ReadBool(); err != nil {
			return nil, err
		}
		e.Payload = data

	case EventComposition:
		data := &CompositionData{}
		if data.Phase, err = dec.ReadByte(); err != nil {
			return nil, err
		}
		if data.Data, err = dec.ReadString(); err != nil {
			return nil, err
		}
		e.Payload = data

	case EventPaste:
		data := &PasteData{}
		if data.Text, err = dec.ReadString(); err != nil {
			return nil, err
		}
		e.Payload = data

	case EventClick:
		data := &ClickData{}
		if data.Ref, err = dec.ReadUvarint(); err != nil {
			return nil, err
		}
		if data.X, err = dec.ReadFloat64(); err != nil {
			return nil, err
		}
		if data.Y, err = dec.ReadFloat64(); err != nil {
			return nil, err
		}
		off, err := dec.ReadSvarint()
		if err != nil {
			return nil, err
		}
		data.Offset = int(off)
		e.Payload = data

	default:
		return nil, fmt.Errorf("%w: type 0x%02x", ErrInvalidEvent, tb)
	}

	return e, nil
}
