package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/tensorplan/pkg/backend/dense"
	"github.com/matzehuels/tensorplan/pkg/cache"
	"github.com/matzehuels/tensorplan/pkg/config"
	"github.com/matzehuels/tensorplan/pkg/errors"
	"github.com/matzehuels/tensorplan/pkg/exprfile"
	"github.com/matzehuels/tensorplan/pkg/leaf"
)

const doc = `
name: small
leaves:
  f: f.dat
equations:
  - name: sum
    bra: [i_1, i_2]
    ket: [a_1, a_2]
    expr:
      sum:
        - tensor: {label: g, bra: [i_1, i_2], ket: [a_1, a_2]}
        - tensor: {label: t, bra: [i_1, i_2], ket: [a_1, a_2]}
  - name: again
    expr:
      tensor: {label: g, bra: [i_3, i_4], ket: [a_3, a_4]}
  - name: anti
    bra: [i_1, i_2]
    ket: [a_1, a_2]
    post: antisymmetrize
    expr:
      tensor: {label: t, bra: [i_1, i_2], ket: [a_1, a_2]}
`

const fock = `
equations:
  - name: f
    bra: [i_1]
    ket: [a_1]
    expr:
      tensor: {label: f, bra: [i_1], ket: [a_1]}
`

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Spaces[0].Extent = 2
	cfg.Spaces[1].Extent = 3
	return cfg
}

func mustParse(t *testing.T, data string) *exprfile.Document {
	t.Helper()
	d, err := exprfile.Parse([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestValidateAndSetDefaults(t *testing.T) {
	bad := config.Default()
	bad.Evaluate.Post = "sort"

	tests := []struct {
		name string
		opts Options
		want errors.Code
	}{
		{"no document", Options{}, errors.ErrCodeInvalidInput},
		{"bad config", Options{DocumentPath: "x.yaml", Config: bad}, errors.ErrCodeInvalidConfig},
		{"empty equation", Options{DocumentPath: "x.yaml", Equations: []string{""}}, errors.ErrCodeInvalidInput},
		{"duplicate equation", Options{DocumentPath: "x.yaml", Equations: []string{"a", "a"}}, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if !errors.Is(err, tt.want) {
				t.Errorf("ValidateAndSetDefaults() = %v, want %s", err, tt.want)
			}
		})
	}

	opts := Options{DocumentPath: "x.yaml"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if opts.Config == nil || opts.Logger == nil {
		t.Error("defaults not applied")
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Errorf("second call = %v", err)
	}
}

func TestExecute(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	r := NewRunner(nil, nil, nil)
	res, err := r.Execute(ctx, Options{Document: mustParse(t, doc), Config: cfg})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Equations) != 3 || res.Stats.Equations != 3 {
		t.Fatalf("got %d equations", len(res.Equations))
	}

	conv, _ := cfg.Convention()
	random := leaf.NewRandom(conv, cfg.Leaves.Seed)
	g, _ := random.Yield(ctx, conv.MustTensor("g", []string{"i_1", "i_2"}, []string{"a_1", "a_2"}))
	tt, _ := random.Yield(ctx, conv.MustTensor("t", []string{"i_1", "i_2"}, []string{"a_1", "a_2"}))
	want := g.Clone()
	for i, v := range tt.Data() {
		want.Data()[i] += v
	}

	sum, ok := res.Equation("sum")
	if !ok {
		t.Fatal("sum missing")
	}
	if !sum.Value.EqualApprox(want, 1e-12) {
		t.Error("sum != g + t")
	}
	if sum.Post != config.PostNone || sum.Norm <= 0 {
		t.Errorf("sum: post %s, norm %v", sum.Post, sum.Norm)
	}

	again, _ := res.Equation("again")
	if got := again.Bra; len(got) != 2 || got[0] != "i_3" || got[1] != "i_4" {
		t.Errorf("again bra = %v, want default order", got)
	}
	if !again.Value.EqualApprox(g, 1e-12) {
		t.Error("renamed leaf should yield the same data")
	}
	if res.CacheInfo.Hits == 0 {
		t.Errorf("CacheInfo = %+v, want hits from shared leaves", res.CacheInfo)
	}

	anti, _ := res.Equation("anti")
	if anti.Post != "antisymmetrize" {
		t.Errorf("anti post = %s", anti.Post)
	}
	v := anti.Value
	for a := 0; a < 3; a++ {
		for b := 0; b < 3; b++ {
			if d := v.At(0, 1, a, b) + v.At(1, 0, a, b); d > 1e-12 || d < -1e-12 {
				t.Fatalf("not antisymmetric in bra at a=%d b=%d", a, b)
			}
			if v.At(0, 0, a, b) > 1e-12 || v.At(0, 0, a, b) < -1e-12 {
				t.Fatalf("diagonal not zero at a=%d b=%d", a, b)
			}
		}
	}

	if res.Stats.UniqueNodes > res.Stats.Nodes || res.Stats.Cost.Unique > res.Stats.Cost.Total {
		t.Errorf("Stats = %+v", res.Stats)
	}
}

func TestExecuteSelectsEquations(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	d := mustParse(t, doc)

	res, err := r.Execute(context.Background(), Options{Document: d, Config: testConfig(), Equations: []string{"anti", "sum"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Equations) != 2 || res.Equations[0].Name != "anti" || res.Equations[1].Name != "sum" {
		t.Errorf("equations = %+v", res.Equations)
	}

	_, err = r.Execute(context.Background(), Options{Document: d, Config: testConfig(), Equations: []string{"nope"}})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("unknown equation error = %v", err)
	}
}

func TestExecuteOverridePost(t *testing.T) {
	cfg := testConfig()
	cfg.Evaluate.Post = config.PostSymmetrize
	d := mustParse(t, doc)
	d.Equations[0].Post = config.PostNone

	res, err := NewRunner(nil, nil, nil).Execute(context.Background(), Options{Document: d, Config: cfg})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"sum": "none", "again": "symmetrize", "anti": "antisymmetrize"}
	for _, eq := range res.Equations {
		if eq.Post != want[eq.Name] {
			t.Errorf("%s post = %s, want %s", eq.Name, eq.Post, want[eq.Name])
		}
	}
}

func TestExecuteSharedCache(t *testing.T) {
	cfg := testConfig()
	cfg.Evaluate.Concurrent = 2
	c := cache.NewShared[*dense.Tensor]()
	res, err := NewRunner(c, nil, nil).Execute(context.Background(), Options{Document: mustParse(t, doc), Config: cfg})
	if err != nil {
		t.Fatal(err)
	}
	if res.CacheInfo.Entries != c.Len() || c.Len() == 0 {
		t.Errorf("CacheInfo = %+v, cache holds %d", res.CacheInfo, c.Len())
	}
}

func TestExecuteDat(t *testing.T) {
	dir := t.TempDir()
	full := dense.New(5, 5)
	for i := range full.Data() {
		full.Data()[i] = float64(i)
	}
	f, err := os.Create(filepath.Join(dir, "f.dat"))
	if err != nil {
		t.Fatal(err)
	}
	if err := leaf.WriteDat(f, full, leaf.DatHeader{Rank: 2, NOcc: 2, NVirt: 3}); err != nil {
		t.Fatal(err)
	}
	f.Close()

	cfg := testConfig()
	cfg.Leaves.Source = config.SourceDat
	cfg.Leaves.Dir = dir
	d := mustParse(t, fock)
	d.Leaves = map[string]string{"f": "f.dat"}

	res, err := NewRunner(nil, nil, nil).Execute(context.Background(), Options{Document: d, Config: cfg})
	if err != nil {
		t.Fatal(err)
	}
	v := res.Equations[0].Value
	for i := 0; i < 2; i++ {
		for a := 0; a < 3; a++ {
			if got, want := v.At(i, a), full.At(i, 2+a); got != want {
				t.Errorf("f[%d,%d] = %v, want %v", i, a, got, want)
			}
		}
	}

	d.Leaves = nil
	_, err = NewRunner(nil, nil, nil).Execute(context.Background(), Options{Document: d, Config: cfg})
	if !errors.Is(err, errors.ErrCodeMissingLeaf) {
		t.Errorf("missing leaf error = %v", err)
	}
}

func TestExecuteLoadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := NewRunner(nil, nil, nil).Execute(context.Background(), Options{DocumentPath: path, Config: testConfig()})
	if err != nil {
		t.Fatal(err)
	}
	if res.Document.Name != "small" {
		t.Errorf("Document.Name = %q", res.Document.Name)
	}

	_, err = NewRunner(nil, nil, nil).Execute(context.Background(), Options{DocumentPath: path + ".missing"})
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing file error = %v", err)
	}
}

func TestPlan(t *testing.T) {
	d := mustParse(t, doc)
	planned, err := NewRunner(nil, nil, nil).Plan(context.Background(), d, Options{Config: testConfig()})
	if err != nil {
		t.Fatal(err)
	}
	if len(planned) != 3 {
		t.Fatalf("planned %d equations", len(planned))
	}
	if planned[0].Plan.Len() != 3 {
		t.Errorf("sum plan has %d nodes, want 3", planned[0].Plan.Len())
	}
	for _, n := range planned[0].Plan.Leaves() {
		if n.Tensor.Label == "g" && n.Fingerprint != planned[1].Plan.Fingerprint() {
			t.Error("renamed g should share its fingerprint")
		}
	}
}
