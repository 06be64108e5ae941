package leaf

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/matzehuels/tensorplan/pkg/backend/dense"
	"github.com/matzehuels/tensorplan/pkg/errors"
)

var magic = [4]byte{'T', 'P', 'L', '1'}

// Encode serializes t as a little-endian blob: a 4-byte magic, the rank as
// uint32, every extent as uint64, then the row-major float64 data.
func Encode(t *dense.Tensor) []byte {
	shape := t.Shape()
	buf := make([]byte, 0, 8+8*len(shape)+8*t.Len())
	buf = append(buf, magic[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(shape)))
	for _, e := range shape {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(e))
	}
	for _, v := range t.Data() {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}
	return buf
}

// Decode parses a blob produced by Encode.
func Decode(data []byte) (*dense.Tensor, error) {
	if len(data) < 8 || !bytes.Equal(data[:4], magic[:]) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "not an encoded tensor")
	}
	rank := int(binary.LittleEndian.Uint32(data[4:8]))
	data = data[8:]
	if len(data) < 8*rank {
		return nil, errors.New(errors.ErrCodeInvalidInput, "truncated tensor header")
	}
	shape := make([]int, rank)
	size := 1
	for k := range shape {
		shape[k] = int(binary.LittleEndian.Uint64(data[8*k:]))
		size *= shape[k]
	}
	data = data[8*rank:]
	if len(data) != 8*size {
		return nil, errors.New(errors.ErrCodeInvalidInput, "tensor of shape %v needs %d bytes, got %d", shape, 8*size, len(data))
	}
	values := make([]float64, size)
	for k := range values {
		values[k] = math.Float64frombits(binary.LittleEndian.Uint64(data[8*k:]))
	}
	return dense.FromData(shape, values)
}
