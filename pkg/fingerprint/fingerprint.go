package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
	"strconv"
	"strings"

	"github.com/matzehuels/tensorplan/pkg/expr"
)

// Size is the length of a fingerprint in bytes.
const Size = sha256.Size

// Fingerprint is a structural digest of a plan node.
type Fingerprint [Size]byte

// String returns the full 64-character hex form.
func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// Short returns the first 8 hex characters, for logs and diagrams.
func (f Fingerprint) Short() string {
	return hex.EncodeToString(f[:4])
}

// IsZero reports whether f is the zero value.
func (f Fingerprint) IsZero() bool {
	return f == Fingerprint{}
}

// Parse parses the hex form produced by String.
func Parse(s string) (Fingerprint, bool) {
	var f Fingerprint
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != Size {
		return f, false
	}
	copy(f[:], b)
	return f, true
}

// Config controls which tensor relations are semantically distinguished.
type Config struct {
	// Complex tracks complex conjugation: a tensor with a conjugate bra-ket
	// relation is then distinct from its bra/ket transpose. When false,
	// conjugate tensors hash like bra-ket symmetric ones.
	Complex bool
}

// Hasher computes fingerprints under a fixed Config. A Hasher is immutable
// and safe for concurrent use.
type Hasher struct {
	cfg Config
}

// New returns a hasher for cfg.
func New(cfg Config) *Hasher {
	return &Hasher{cfg: cfg}
}

// Config returns the hasher's configuration.
func (h *Hasher) Config() Config { return h.cfg }

// Slot identifies one position in an operand's layout. Pos indexes the
// concatenation of the operand's bra and ket.
type Slot struct {
	Operand int `json:"o"`
	Pos     int `json:"p"`
}

// ProductTopology describes how a product node joins its operands.
type ProductTopology struct {
	// Contracted lists (left position, right position) pairs summed over.
	Contracted [][2]int `json:"c"`
	// Output lists, for each output slot in order, where it comes from.
	Output []Slot `json:"out"`
	// OutputBra is the number of output slots that form the bra.
	OutputBra int `json:"ob"`
}

// SumTopology describes how a sum node aligns its operands.
type SumTopology struct {
	// Align[i] is the position in the right operand's layout holding the
	// label found at position i of the left operand's layout.
	Align []int `json:"a"`
	// Weights are the relative operand weights applied to the unscaled
	// operand values.
	Weights [2]complex128 `json:"-"`
}

// Leaf returns the canonical orientation of t and its fingerprint.
//
// The fingerprint covers the tensor label, its particle symmetry, its
// effective bra-ket relation and the space of every slot. Index labels never
// enter the digest, so renaming indices leaves the fingerprint unchanged.
//
// For tensors whose bra-ket relation is symmetric (or conjugate in real
// mode) both orientations hash alike; the returned tensor is oriented so
// that the lexicographically smaller space signature forms the bra, giving
// equal fingerprints an equal positional layout. Otherwise t is returned
// unchanged.
func (h *Hasher) Leaf(t *expr.Tensor) (*expr.Tensor, Fingerprint) {
	rel := h.effective(t.BraKet)
	bra, ket := signatures(t.Bra), signatures(t.Ket)
	canon := t
	if rel == expr.BraKetSymmetric && slices.Compare(ket, bra) < 0 {
		canon = t.Transposed()
		bra, ket = ket, bra
	}
	return canon, digest(struct {
		Kind     string   `json:"k"`
		Label    string   `json:"l"`
		Symmetry int      `json:"s"`
		BraKet   int      `json:"bk"`
		Bra      []string `json:"b"`
		Ket      []string `json:"kt"`
	}{"leaf", t.Label, int(t.Symmetry), int(rel), bra, ket})
}

// Product combines operand fingerprints into a product node fingerprint.
func (h *Hasher) Product(left, right Fingerprint, topo ProductTopology) Fingerprint {
	return digest(struct {
		Kind  string          `json:"k"`
		Left  string          `json:"l"`
		Right string          `json:"r"`
		Topo  ProductTopology `json:"t"`
	}{"product", left.String(), right.String(), topo})
}

// Sum combines operand fingerprints into a sum node fingerprint.
func (h *Hasher) Sum(left, right Fingerprint, topo SumTopology) Fingerprint {
	return digest(struct {
		Kind    string    `json:"k"`
		Left    string    `json:"l"`
		Right   string    `json:"r"`
		Align   []int     `json:"a"`
		Weights [2]string `json:"w"`
	}{"sum", left.String(), right.String(), topo.Align,
		[2]string{formatWeight(topo.Weights[0]), formatWeight(topo.Weights[1])}})
}

// effective maps the conjugate relation onto the relation it behaves as
// under the hasher's arithmetic.
func (h *Hasher) effective(b expr.BraKet) expr.BraKet {
	if b == expr.BraKetConjugate && !h.cfg.Complex {
		return expr.BraKetSymmetric
	}
	return b
}

// signatures returns the per-slot space signature of indices: the space
// name followed by the spaces of any proto-indices.
func signatures(indices []expr.Index) []string {
	out := make([]string, len(indices))
	for k, idx := range indices {
		if len(idx.Proto) == 0 {
			out[k] = idx.Space.Name
			continue
		}
		protos := make([]string, len(idx.Proto))
		for j, p := range idx.Proto {
			protos[j] = p.Space.Name
		}
		out[k] = idx.Space.Name + "<" + strings.Join(protos, ",") + ">"
	}
	return out
}

func formatWeight(w complex128) string {
	return strconv.FormatComplex(w, 'g', -1, 128)
}

func digest(v any) Fingerprint {
	// Marshalling plain structs of strings and ints cannot fail.
	data, _ := json.Marshal(v)
	return sha256.Sum256(data)
}
