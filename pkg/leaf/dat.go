package leaf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/matzehuels/tensorplan/pkg/backend/dense"
	"github.com/matzehuels/tensorplan/pkg/errors"
)

// DatHeader is the first line of a .dat file.
type DatHeader struct {
	Rank  int
	NOcc  int
	NVirt int
}

// Extent returns the per-mode extent of the full-range tensor.
func (h DatHeader) Extent() int { return h.NOcc + h.NVirt }

// ReadDat parses a full-range tensor in .dat format: whitespace-separated
// "rank nocc nvirt" followed by (nocc+nvirt)^rank values in row-major order.
func ReadDat(r io.Reader) (*dense.Tensor, DatHeader, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	sc.Split(bufio.ScanWords)

	var h DatHeader
	for _, p := range []*int{&h.Rank, &h.NOcc, &h.NVirt} {
		if !sc.Scan() {
			return nil, h, errors.New(errors.ErrCodeInvalidInput, "dat: truncated header")
		}
		v, err := strconv.Atoi(sc.Text())
		if err != nil || v < 0 {
			return nil, h, errors.New(errors.ErrCodeInvalidInput, "dat: bad header field %q", sc.Text())
		}
		*p = v
	}

	shape := make([]int, h.Rank)
	size := 1
	for k := range shape {
		shape[k] = h.Extent()
		size *= h.Extent()
	}
	data := make([]float64, 0, size)
	for sc.Scan() {
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, h, errors.Wrap(errors.ErrCodeInvalidInput, err, "dat: value %d", len(data))
		}
		data = append(data, v)
	}
	if err := sc.Err(); err != nil {
		return nil, h, errors.Wrap(errors.ErrCodeInvalidInput, err, "dat: read")
	}
	if len(data) != size {
		return nil, h, errors.New(errors.ErrCodeShapeMismatch, "dat: header promises %d values, found %d", size, len(data))
	}
	t, err := dense.FromData(shape, data)
	return t, h, err
}

// LoadDat reads a .dat file from disk.
func LoadDat(path string) (*dense.Tensor, DatHeader, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, DatHeader{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "dat file %s", path)
	}
	if err != nil {
		return nil, DatHeader{}, err
	}
	defer f.Close()
	return ReadDat(f)
}

// WriteDat writes t in .dat format, one value per line.
func WriteDat(w io.Writer, t *dense.Tensor, h DatHeader) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%d %d %d\n", h.Rank, h.NOcc, h.NVirt); err != nil {
		return err
	}
	for _, v := range t.Data() {
		bw.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
