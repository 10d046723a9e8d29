// Package protocol is the binary wire codec between the editor core
// and a remote render host: host mutation ops, raw input events,
// measurement round-trips, and the framing around them. Encoding is
// length-prefixed little-endian with protobuf-style varints.
package protocol

// MaxVarintLen is the maximum number of bytes a varint can occupy:
// a uint64 needs at most 10 bytes at 7 data bits per byte.
const MaxVarintLen = 10

// UvarintLen returns the number of bytes needed to encode v.
func UvarintLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		n++
		v >>= 7
	}
	return n
}

// zigzag maps signed to unsigned: 0->0, -1->1, 1->2, -2->3, ...
func zigzag(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

// unzigzag inverts zigzag.
func unzigzag(uv uint64) int64 {
	v := int64(uv >> 1)
	if uv&1 != 0 {
		v = ^v
	}
	return v
}
