package eval

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/matzehuels/tensorplan/pkg/backend"
	"github.com/matzehuels/tensorplan/pkg/errors"
	"github.com/matzehuels/tensorplan/pkg/perm"
	"github.com/matzehuels/tensorplan/pkg/plan"
)

// Policy selects which index permutations a (anti)symmetrization sums
// over.
type Policy int

const (
	// Independent permutes bra and ket labels independently: (r!)^2 terms
	// for r bra and r ket labels.
	Independent Policy = iota
	// Joint applies the same permutation to bra and ket positions, i.e.
	// permutes particles. Bra and ket must have equal length. Every joint
	// term has even parity, so Joint only symmetrizes.
	Joint
	// BraOnly permutes bra labels only.
	BraOnly
	// KetOnly permutes ket labels only.
	KetOnly
)

var policyNames = []string{"independent", "joint", "bra", "ket"}

// String returns the policy name.
func (p Policy) String() string {
	if int(p) >= 0 && int(p) < len(policyNames) {
		return policyNames[p]
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy parses a policy name as returned by String.
func ParsePolicy(s string) (Policy, error) {
	if i := slices.Index(policyNames, strings.ToLower(s)); i >= 0 {
		return Policy(i), nil
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown permutation policy %q (want one of %s)", s, strings.Join(policyNames, ", "))
}

// Mode selects symmetrization or antisymmetrization.
type Mode int

const (
	// Symmetrize adds every permuted term with sign +1.
	Symmetrize Mode = iota
	// Antisymmetrize weights every term by the parity of its permutation of
	// the whole output index list.
	Antisymmetrize
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case Symmetrize:
		return "symmetrize"
	case Antisymmetrize:
		return "antisymmetrize"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode parses a mode name as returned by String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "symmetrize", "symm":
		return Symmetrize, nil
	case "antisymmetrize", "antisymm":
		return Antisymmetrize, nil
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown post-processing mode %q", s)
}

// CheckPolicy reports whether mode can be applied under policy.
// Antisymmetrization under Joint is rejected: the combined bra and ket
// parity of a joint permutation is always even.
func CheckPolicy(mode Mode, policy Policy) error {
	if mode == Antisymmetrize && policy == Joint {
		return errors.New(errors.ErrCodeInvalidInput, "policy %s cannot antisymmetrize: joint permutations have even parity", policy)
	}
	return nil
}

// Symmetrize evaluates p and symmetrizes the result over bra and ket under
// policy. The result is laid out in bra then ket order.
func (e *Evaluator[T]) Symmetrize(ctx context.Context, p *plan.Plan, bra, ket []string, policy Policy) (Result[T], error) {
	return e.postProcess(ctx, p, bra, ket, policy, Symmetrize)
}

// Antisymmetrize evaluates p and antisymmetrizes the result over bra and
// ket under policy. For Independent with bra = (i,j) and ket = (a,b) the
// result is t(ijab) - t(ijba) + t(jiba) - t(jiab).
func (e *Evaluator[T]) Antisymmetrize(ctx context.Context, p *plan.Plan, bra, ket []string, policy Policy) (Result[T], error) {
	return e.postProcess(ctx, p, bra, ket, policy, Antisymmetrize)
}

func (e *Evaluator[T]) postProcess(ctx context.Context, p *plan.Plan, bra, ket []string, policy Policy, mode Mode) (res Result[T], err error) {
	ctx, span := tracer.Start(ctx, "eval.Symmetrize",
		trace.WithAttributes(
			attribute.String("eval.mode", mode.String()),
			attribute.String("eval.policy", policy.String()),
			attribute.StringSlice("eval.bra", bra),
			attribute.StringSlice("eval.ket", ket),
		))
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if bra == nil && ket == nil {
		bra, ket = DefaultOrder(p)
	}
	r, err := e.Evaluate(ctx, p)
	if err != nil {
		return r, err
	}
	start := time.Now()
	res, terms, err := apply(e.backend, r, bra, ket, policy, mode)
	if err != nil {
		return res, err
	}
	span.SetAttributes(attribute.Int("eval.terms", terms))
	e.hooks().OnPostProcess(ctx, mode.String(), terms, time.Since(start))
	return res, nil
}

// PostProcess (anti)symmetrizes an evaluated result over bra and ket.
// bra followed by ket must be a permutation of r's labels; the result is
// laid out in that order.
func PostProcess[T any](b backend.Backend[T], r Result[T], bra, ket []string, policy Policy, mode Mode) (Result[T], error) {
	res, _, err := apply(b, r, bra, ket, policy, mode)
	return res, err
}

func apply[T any](b backend.Backend[T], r Result[T], bra, ket []string, policy Policy, mode Mode) (Result[T], int, error) {
	src := r.Labels()
	out := append(slices.Clone(bra), ket...)
	p, err := backend.Permutation(src, out)
	if err != nil {
		return Result[T]{}, 0, err
	}
	pairs, err := permutationPairs(mode, policy, len(bra), len(ket))
	if err != nil {
		return Result[T]{}, 0, err
	}

	vShape := b.Shape(r.Value)
	shape := make([]int, len(p))
	for i, j := range p {
		shape[i] = vShape[j]
	}
	dst := b.Zeros(shape)

	subst := make(map[string]string, len(out))
	relabeled := make([]string, len(src))
	for _, pair := range pairs {
		sb, sk := pair[0], pair[1]
		for k := range bra {
			subst[bra[k]] = bra[sb[k]]
		}
		for k := range ket {
			subst[ket[k]] = ket[sk[k]]
		}
		for k, l := range src {
			relabeled[k] = subst[l]
		}
		sign := 1.0
		if mode == Antisymmetrize {
			sign = float64(perm.Sign(sb) * perm.Sign(sk))
		}
		if err := b.AddPermuted(dst, out, sign, r.Value, relabeled); err != nil {
			return Result[T]{}, 0, err
		}
	}
	return Result[T]{Value: dst, Bra: slices.Clone(bra), Ket: slices.Clone(ket), RunID: r.RunID}, len(pairs), nil
}

// permutationPairs lists the (bra, ket) permutation pairs a policy sums
// over. The first pair is always the identity.
func permutationPairs(mode Mode, policy Policy, nb, nk int) ([][2][]int, error) {
	if err := CheckPolicy(mode, policy); err != nil {
		return nil, err
	}
	idB, idK := perm.Seq(nb), perm.Seq(nk)
	var pairs [][2][]int
	switch policy {
	case Independent:
		for _, sb := range perm.Generate(nb, 0) {
			for _, sk := range perm.Generate(nk, 0) {
				pairs = append(pairs, [2][]int{sb, sk})
			}
		}
	case Joint:
		if nb != nk {
			return nil, errors.New(errors.ErrCodeInvalidInput, "joint permutation needs equal bra and ket rank, got %d and %d", nb, nk)
		}
		for _, s := range perm.Generate(nb, 0) {
			pairs = append(pairs, [2][]int{s, s})
		}
	case BraOnly:
		for _, sb := range perm.Generate(nb, 0) {
			pairs = append(pairs, [2][]int{sb, idK})
		}
	case KetOnly:
		for _, sk := range perm.Generate(nk, 0) {
			pairs = append(pairs, [2][]int{idB, sk})
		}
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown permutation policy %s", policy)
	}
	return pairs, nil
}
