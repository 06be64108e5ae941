package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/tensorplan/pkg/buildinfo"
	"github.com/matzehuels/tensorplan/pkg/errors"
	"github.com/matzehuels/tensorplan/pkg/exprfile"
)

const smallConfig = `
[[space]]
name = "occ"
prefixes = ["i", "j"]
extent = 2

[[space]]
name = "virt"
prefixes = ["a", "b"]
extent = 3
`

const smallDoc = `
name: small
equations:
  - name: sum
    bra: [i_1, i_2]
    ket: [a_1, a_2]
    expr:
      sum:
        - tensor: {label: g, bra: [i_1, i_2], ket: [a_1, a_2]}
        - tensor: {label: t, bra: [i_1, i_2], ket: [a_1, a_2]}
  - name: anti
    bra: [i_1, i_2]
    ket: [a_1, a_2]
    post: antisymmetrize
    expr:
      tensor: {label: t, bra: [i_1, i_2], ket: [a_1, a_2]}
`

const productDoc = `
equations:
  - name: a
    expr:
      product:
        scalar: 0.5
        factors:
          - tensor: {label: t, bra: [i_1, i_2], ket: [a_1, a_2]}
          - tensor: {label: g, bra: [i_1, i_3], ket: [a_1, a_3]}
          - tensor: {label: f, bra: [i_2], ket: [a_2]}
  - name: b
    expr:
      product:
        factors:
          - tensor: {label: t, bra: [i_4, i_6], ket: [a_4, a_6]}
          - tensor: {label: f, bra: [i_8], ket: [a_8]}
          - tensor: {label: g, bra: [i_4, i_8], ket: [a_4, a_8]}
`

// fixture writes the small config and a document into a temp dir and
// returns a CLI writing to a buffer.
func fixture(t *testing.T, doc string) (c *CLI, out *bytes.Buffer, cfgPath, docPath string) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	cfgPath = filepath.Join(dir, "tensorplan.toml")
	docPath = filepath.Join(dir, "doc.yaml")
	if err := os.WriteFile(cfgPath, []byte(smallConfig), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(docPath, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	out = &bytes.Buffer{}
	c = New(io.Discard, LogInfo)
	c.SetOutput(out)
	return c, out, cfgPath, docPath
}

func TestRootCommand(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()
	want := []string{"evaluate", "plan", "factorize", "perm", "config", "completion"}
	for _, name := range want {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("command %s not registered", name)
		}
	}
}

func TestVersion(t *testing.T) {
	c, out, _, _ := fixture(t, smallDoc)
	if err := c.Execute(context.Background(), []string{"--version"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), buildinfo.Version) {
		t.Errorf("version output = %q", out.String())
	}
}

func TestEvaluateCommand(t *testing.T) {
	c, out, cfgPath, docPath := fixture(t, smallDoc)
	err := c.Execute(context.Background(), []string{"evaluate", docPath, "--config", cfgPath, "--metrics"})
	if err != nil {
		t.Fatal(err)
	}
	s := out.String()
	for _, want := range []string{"Evaluated 2 equations", "sum", "anti", "antisymmetrize", "2x2x3x3", "tensorplan_eval_evaluations_total"} {
		if !strings.Contains(s, want) {
			t.Errorf("output lacks %q:\n%s", want, s)
		}
	}
}

func TestEvaluateCommandErrors(t *testing.T) {
	c, _, cfgPath, docPath := fixture(t, smallDoc)

	err := c.Execute(context.Background(), []string{"evaluate", docPath, "--config", cfgPath, "--post", "sort"})
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("bad --post error = %v", err)
	}

	err = c.Execute(context.Background(), []string{"evaluate", docPath, "--config", cfgPath, "-e", "missing"})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("unknown equation error = %v", err)
	}
}

func TestPlanCommand(t *testing.T) {
	c, out, cfgPath, docPath := fixture(t, smallDoc)
	dot := filepath.Join(t.TempDir(), "plans.dot")
	err := c.Execute(context.Background(), []string{"plan", docPath, "--config", cfgPath, "--tree", "--dot", dot})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "FINGERPRINT") || !strings.Contains(out.String(), "sum = ") {
		t.Errorf("plan output:\n%s", out.String())
	}
	data, err := os.ReadFile(dot)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(string(data), "digraph") != 2 {
		t.Errorf("DOT file should hold one digraph per equation:\n%s", data)
	}

	err = c.Execute(context.Background(), []string{"plan", docPath, "--config", cfgPath, "--svg", "x.svg"})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("--svg with two equations error = %v", err)
	}
}

func TestFactorizeCommand(t *testing.T) {
	c, out, cfgPath, docPath := fixture(t, productDoc)
	factored := filepath.Join(t.TempDir(), "factored.yaml")
	err := c.Execute(context.Background(), []string{"factorize", docPath, "a", "b", "--config", cfgPath, "-o", factored})
	if err != nil {
		t.Fatal(err)
	}
	s := out.String()
	for _, want := range []string{"Common subnetwork of 2 factors", "[0 1]", "[0 2]"} {
		if !strings.Contains(s, want) {
			t.Errorf("output lacks %q:\n%s", want, s)
		}
	}

	doc, err := exprfile.Load(factored)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a", "b"} {
		eq, _ := doc.Equation(name)
		if f := eq.Expr.Product.Factors; len(f) != 2 || f[0].Product == nil {
			t.Errorf("equation %s not factored: %+v", name, eq.Expr)
		}
	}
}

func TestFactorizeCommandNothingShared(t *testing.T) {
	c, out, cfgPath, docPath := fixture(t, smallDoc)
	if err := c.Execute(context.Background(), []string{"factorize", docPath, "sum", "anti", "--config", cfgPath}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "no common subnetwork") {
		t.Errorf("output:\n%s", out.String())
	}
}

func TestConfigShowCommand(t *testing.T) {
	c, out, cfgPath, _ := fixture(t, smallDoc)
	if err := c.Execute(context.Background(), []string{"config", "show", "--config", cfgPath}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "[evaluate]") || !strings.Contains(out.String(), "extent = 3") {
		t.Errorf("config show:\n%s", out.String())
	}
}

func TestConfigInitCommand(t *testing.T) {
	c, out, _, _ := fixture(t, smallDoc)
	if err := c.Execute(context.Background(), []string{"config", "init"}); err != nil {
		t.Fatal(err)
	}
	dir, _ := configDir()
	if _, err := os.Stat(filepath.Join(dir, configFile)); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	out.Reset()
	if err := c.Execute(context.Background(), []string{"config", "init"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "already exists") {
		t.Errorf("second init output:\n%s", out.String())
	}
}

func TestPermCommand(t *testing.T) {
	c, out, _, _ := fixture(t, smallDoc)
	if err := c.Execute(context.Background(), []string{"perm", "3", "--labels", "i,j,k"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "6 of 6 permutations") || !strings.Contains(out.String(), "j,i,k") {
		t.Errorf("perm output:\n%s", out.String())
	}
}
