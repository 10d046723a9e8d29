package protocol

import (
	"errors"
	"fmt"
)

// OpCode is one host tree mutation.
type OpCode uint8

const (
	OpCreateElement OpCode = 0x01 // Create detached element
	OpCreateText    OpCode = 0x02 // Create detached text node
	OpSetText       OpCode = 0x03 // Replace text content
	OpSetAttr       OpCode = 0x04 // Set attribute
	OpRemoveAttr    OpCode = 0x05 // Remove attribute
	OpSetStyle      OpCode = 0x06 // Set inline style property
	OpInsertChild   OpCode = 0x07 // Insert child at index
	OpRemoveNode    OpCode = 0x08 // Remove subtree
	OpStyleRule     OpCode = 0x09 // Install scoped stylesheet rule
	OpStyleRelease  OpCode = 0x0A // Drop a stylesheet scope
)

// String returns the string representation of the op code.
func (c OpCode) String() string {
	switch c {
	case OpCreateElement:
		return "CreateElement"
	case OpCreateText:
		return "CreateText"
	case OpSetText:
		return "SetText"
	case OpSetAttr:
		return "SetAttr"
	case OpRemoveAttr:
		return "RemoveAttr"
	case OpSetStyle:
		return "SetStyle"
	case OpInsertChild:
		return "InsertChild"
	case OpRemoveNode:
		return "RemoveNode"
	case OpStyleRule:
		return "StyleRule"
	case OpStyleRelease:
		return "StyleRelease"
	default:
		return "Unknown"
	}
}

// ErrInvalidOp is returned when an op payload cannot be decoded.
var ErrInvalidOp = errors.New("protocol: invalid op")

// Op is one host mutation. Field use depends on Code:
//
//	CreateElement: Ref, Key (tag)
//	CreateText:    Ref, Text
//	SetText:       Ref, Text
//	SetAttr:       Ref, Key, Value
//	RemoveAttr:    Ref, Key
//	SetStyle:      Ref, Key (property), Value
//	InsertChild:   Parent, Index, Ref (child)
//	RemoveNode:    Ref
//	StyleRule:     Key (scope), Value (selector), Text (declarations)
//	StyleRelease:  Key (scope)
type Op struct {
	Code   OpCode
	Ref    uint64
	Parent uint64
	Index  int
	Key    string
	Value  string
	Text   string
}

// EncodeOps serializes an ops batch: a leading sequence number, a
// count, then each op.
func EncodeOps(seq uint64, ops []Op) []byte {
	enc := NewEncoder()
	enc.WriteUvarint(seq)
	enc.WriteUvarint(uint64(len(ops)))
	for i := range ops {
		encodeOp(enc, &ops[i])
	}
	return enc.Bytes()
}

func encodeOp(enc *Encoder, op *Op) {
	enc.WriteByte(byte(op.Code))
	switch op.Code {
	case OpCreateElement:
		enc.WriteUvarint(op.Ref)
		enc.WriteString(op.Key)
	case OpCreateText, OpSetText:
		enc.WriteUvarint(op.Ref)
		enc.WriteString(op.Text)
	case OpSetAttr, OpSetStyle:
		enc.WriteUvarint(op.Ref)
		enc.WriteString(op.Key)
		enc.WriteString(op.Value)
	case OpRemoveAttr:
		enc.WriteUvarint(op.Ref)
		enc.WriteString(op.Key)
	case OpInsertChild:
		enc.WriteUvarint(op.Parent)
		enc.WriteSvarint(int64(op.Index))
		enc.WriteUvarint(op.Ref)
	case OpRemoveNode:
		enc.WriteUvarint(op.Ref)
	case OpStyleRule:
		enc.WriteString(op.Key)
		enc.WriteString(op.Value)
		enc.WriteString(op.Text)
	case OpStyleRelease:
		enc.WriteString(op.Key)
	}
}

// EncodedOpLen returns the number of bytes op occupies inside an
// encoded batch. Senders use it to split batches across frames.
func EncodedOpLen(op *Op) int {
	enc := NewEncoder()
	encodeOp(enc, op)
	return enc.Len()
}

// DecodeOps parses an ops batch.
func DecodeOps(buf []byte) (seq uint64, ops []Op, err error) {
	dec := NewDecoder(buf)
	seq, err = dec.ReadUvarint()
	if err != nil {
		return 0, nil, err
	}
	count, err := dec.ReadUvarint()
	if err != nil {
		return 0, nil, err
	}
	if count > MaxCollectionCount {
		return 0, nil, ErrCollectionTooLarge
	}
	ops = make([]Op, 0, count)
	for i := uint64(0); i < count; i++ {
		op, err := decodeOp(dec)
		if err != nil {
			return 0, nil, err
		}
		ops = append(ops, op)
	}
	return seq, ops, nil
}

func decodeOp(dec *Decoder) (Op, error) {
	var op Op
	code, err := dec.ReadByte()
	if err != nil {
		return op, err
	}
	op.Code = OpCode(code)

	switch op.Code {
	case OpCreateElement:
		if op.Ref, err = dec.ReadUvarint(); err != nil {
			return op, err
		}
		op.Key, err = dec.ReadString()
	case OpCreateText, OpSetText:
		if op.Ref, err = dec.ReadUvarint(); err != nil {
			return op, err
		}
		op.Text, err = dec.ReadString()
	case OpSetAttr, OpSetStyle:
		if op.Ref, err = dec.ReadUvarint(); err != nil {
			return op, err
		}
		if op.Key, err = dec.ReadString(); err != nil {
			return op, err
		}
		op.Value, err = dec.ReadString()
	case OpRemoveAttr:
		if op.Ref, err = dec.ReadUvarint(); err != nil {
			return op, err
		}
		op.Key, err = dec.ReadString()
	case OpInsertChild:
		if op.Parent, err = dec.ReadUvarint(); err != nil {
			return op, err
		}
		idx, err := dec.ReadSvarint()
		if err != nil {
			return op, err
		}
		op.Index = int(idx)
		op.Ref, err = dec.ReadUvarint()
		return op, err
	case OpRemoveNode:
		op.Ref, err = dec.ReadUvarint()
	case OpStyleRule:
		if op.Key, err = dec.ReadString(); err != nil {
			return op, err
		}
		if op.Value, err = dec.ReadString(); err != nil {
			return op, err
		}
		op.Text, err = dec.ReadString()
	case OpStyleRelease:
		op.Key, err = dec.ReadString()
	default:
		return op, fmt.Errorf("%w: code 0x%02x", ErrInvalidOp, code)
	}
	return op, err
}
