package protocol

// MeasureRequest asks the host to resolve a text boundary to
// geometry. ID correlates the response.
type MeasureRequest struct {
	ID     uint64
	Ref    uint64
	Offset int
}

// MeasureResult answers a MeasureRequest. OK=false means the host
// could not measure (node not laid out yet); geometry fields are then
// meaningless.
type MeasureResult struct {
	ID     uint64
	OK     bool
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// EncodeMeasureRequest serializes a measurement request.
func EncodeMeasureRequest(r *MeasureRequest) []byte {
	enc := NewEncoder()
	enc.WriteUvarint(r.ID)
	enc.WriteUvarint(r.Ref)
	enc.WriteSvarint(int64(r.Offset))
	return enc.Bytes()
}

// DecodeMeasureRequest parses a measurement request.
func DecodeMeasureRequest(buf []byte) (*MeasureRequest, error) {
	dec := NewDecoder(buf)
	r := &MeasureRequest{}
	var err error
	if r.ID, err = dec.ReadUvarint(); err != nil {
		return nil, err
	}
	if r.Ref, err = dec.ReadUvarint(); err != nil {
		return nil, err
	}
	off, err := dec.ReadSvarint()
	if err != nil {
		return nil, err
	}
	r.Offset = int(off)
	return r, nil
}

// EncodeMeasureResult serializes a measurement result.
func EncodeMeasureResult(r *MeasureResult) []byte {
	enc := NewEncoder()
	enc.WriteUvarint(r.ID)
	enc.WriteBool(r.OK)
	enc.WriteFloat64(r.X)
	enc.WriteFloat64(r.Y)
	enc.WriteFloat64(r.Width)
	enc.WriteFloat64(r.Height)
	return enc.Bytes()
}

// DecodeMeasureResult parses a measurement result.
func DecodeMeasureResult(buf []byte) (*MeasureResult, error) {
	dec := NewDecoder(buf)
	r := &MeasureResult{}
	var err error
	if r.ID, err = dec.ReadUvarint(); err != nil {
		return nil, err
	}
	if r.OK, err = dec.ReadBool(); err != nil {
		return nil, err
	}
	if r.X, err = dec.ReadFloat64(); err != nil {
		return nil, err
	}
	if r.Y, err = dec.ReadFloat64(); err != nil {
		return nil, err
	}
	if r.Width, err = dec.ReadFloat64(); err != nil {
		return nil, err
	}
	if r.Height, err = dec.ReadFloat64(); err != nil {
		return nil, err
	}
	return r, nil
}
