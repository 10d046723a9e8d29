package protocol

import (
	"errors"
	"reflect"
	"testing"
)

func TestOpsRoundTrip(t *testing.T) {
	ops := []Op{
		{Code: OpCreateElement, Ref: 2, Key: "div"},
		{Code: OpCreateText, Ref: 3, Text: "hello"},
		{Code: OpSetText, Ref: 3, Text: "world"},
		{Code: OpSetAttr, Ref: 2, Key: "class", Value: "inkwell-block"},
		{Code: OpRemoveAttr, Ref: 2, Key: "class"},
		{Code: OpSetStyle, Ref: 2, Key: "left", Value: "40.0px"},
		{Code: OpInsertChild, Parent: 1, Index: 0, Ref: 2},
		{Code: OpInsertChild, Parent: 1, Index: -1, Ref: 3},
		{Code: OpRemoveNode, Ref: 3},
		{Code: OpStyleRule, Key: "inkwell-caret", Value: ".inkwell-caret", Text: "position:absolute"},
		{Code: OpStyleRelease, Key: "inkwell-caret"},
	}

	seq, got, err := DecodeOps(EncodeOps(17, ops))
	if err != nil {
		t.Fatal(err)
	}
	if seq != 17 {
		t.Errorf("seq = %d, want 17", seq)
	}
	if !reflect.DeepEqual(got, ops) {
		t.Errorf("Decoded ops differ\n got: %+v\nwant: %+v", got, ops)
	}
}

// TestEncodedOpLenMatchesBatchGrowth: the per-op size must agree with
// what encoding the op into a batch actually adds, since frame
// splitting budgets on it.
func TestEncodedOpLenMatchesBatchGrowth(t *testing.T) {
	ops := []Op{
		{Code: OpCreateElement, Ref: 2, Key: "div"},
		{Code: OpSetText, Ref: 3, Text: "hello world"},
		{Code: OpSetAttr, Ref: 2, Key: "class", Value: "inkwell-block"},
		{Code: OpInsertChild, Parent: 1, Index: -1, Ref: 3},
		{Code: OpStyleRule, Key: "s", Value: ".caret", Text: "position:absolute"},
	}
	header := len(EncodeOps(0, nil))
	for _, op := range ops {
		t.Run(op.Code.String(), func(t *testing.T) {
			want := len(EncodeOps(0, []Op{op})) - header
			if got := EncodedOpLen(&op); got != want {
				t.Errorf("EncodedOpLen = %d, want %d", got, want)
			}
		})
	}
}

func TestOpsEmptyBatch(t *testing.T) {
	seq, got, err := DecodeOps(EncodeOps(1, nil))
	if err != nil {
		t.Fatal(err)
	}
	if seq != 1 || len(got) != 0 {
		t.Errorf("seq = %d ops = %v, want 1 and empty", seq, got)
	}
}

func TestDecodeOpsInvalidCode(t *testing.T) {
	enc := NewEncoder()
	enc.WriteUvarint(1) // seq
	enc.WriteUvarint(1) // count
	enc.WriteByte(0x7F) // bogus op code

	if _, _, err := DecodeOps(enc.Bytes()); !errors.Is(err, ErrInvalidOp) {
		t.Errorf("err = %v, want ErrInvalidOp", err)
	}
}

func TestDecodeOpsCollectionLimit(t *testing.T) {
	enc := NewEncoder()
	enc.WriteUvarint(1)
	enc.WriteUvarint(MaxCollectionCount + 1)

	if _, _, err := DecodeOps(enc.Bytes()); !errors.Is(err, ErrCollectionTooLarge) {
		t.Errorf("err = %v, want ErrCollectionTooLarge", err)
	}
}

func TestDecodeOpsTruncated(t *testing.T) {
	full := EncodeOps(5, []Op{{Code: OpSetAttr, Ref: 2, Key: "class", Value: "x"}})

	// Every strict prefix must fail cleanly, never panic.
	for i := 0; i < len(full); i++ {
		if _, _, err := DecodeOps(full[:i]); err == nil {
			t.Errorf("DecodeOps(prefix %d) succeeded, want error", i)
		}
	}
}
