package pipeline

import (
	"context"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"slices"

	"github.com/matzehuels/tensorplan/pkg/backend/dense"
	"github.com/matzehuels/tensorplan/pkg/config"
	"github.com/matzehuels/tensorplan/pkg/errors"
	"github.com/matzehuels/tensorplan/pkg/exprfile"
	"github.com/matzehuels/tensorplan/pkg/leaf"
)

// NewYielder builds the leaf source selected by cfg.Leaves.
//
//   - random: deterministic random data seeded by leaves.seed
//   - dat: the document's leaves table maps labels to .dat files under
//     leaves.dir; each file is a full-range tensor that is sliced per block
//   - file: encoded tensors stored under leaves.dir
//   - redis: encoded tensors stored in the server at leaves.redis_url
//
// The returned closer is non-nil when the source holds a connection.
func NewYielder(ctx context.Context, cfg *config.Config, doc *exprfile.Document) (leaf.Yielder[*dense.Tensor], io.Closer, error) {
	conv, err := cfg.Convention()
	if err != nil {
		return nil, nil, err
	}
	switch cfg.Leaves.Source {
	case config.SourceRandom:
		return leaf.NewRandom(conv, cfg.Leaves.Seed, leaf.WithHashConfig(cfg.Fingerprint())), nil, nil

	case config.SourceDat:
		s := leaf.NewSlicer(conv)
		if doc == nil {
			return s, nil, nil
		}
		for _, label := range slices.Sorted(maps.Keys(doc.Leaves)) {
			full, _, err := leaf.LoadDat(filepath.Join(cfg.Leaves.Dir, doc.Leaves[label]))
			if err != nil {
				return nil, nil, fmt.Errorf("leaf %s: %w", label, err)
			}
			if err := s.Add(label, full); err != nil {
				return nil, nil, err
			}
		}
		return s, nil, nil

	case config.SourceFile:
		fs, err := leaf.NewFileStore(cfg.Leaves.Dir)
		if err != nil {
			return nil, nil, err
		}
		return fs, nil, nil

	case config.SourceRedis:
		var opts []leaf.RedisOption
		if cfg.Leaves.Prefix != "" {
			opts = append(opts, leaf.WithPrefix(cfg.Leaves.Prefix))
		}
		rs, err := leaf.DialRedis(ctx, cfg.Leaves.RedisURL, opts...)
		if err != nil {
			return nil, nil, err
		}
		return rs, rs, nil
	}
	return nil, nil, errors.New(errors.ErrCodeInvalidConfig, "leaves.source: unknown source %q", cfg.Leaves.Source)
}
