package leaf

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/matzehuels/tensorplan/pkg/backend/dense"
	"github.com/matzehuels/tensorplan/pkg/errors"
	"github.com/matzehuels/tensorplan/pkg/expr"
)

// FileStore keeps encoded leaf tensors in a directory tree.
type FileStore struct {
	dir string
}

// NewFileStore creates a file store rooted at dir.
// The directory will be created if it doesn't exist.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "leaf store %s", dir)
	}
	return &FileStore{dir: dir}, nil
}

// Put stores v under key.
func (s *FileStore) Put(_ context.Context, key string, v *dense.Tensor) error {
	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	// Write then rename so a concurrent reader never sees a partial file.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, Encode(v), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// PutTensor stores v under the descriptor of t.
func (s *FileStore) PutTensor(ctx context.Context, t *expr.Tensor, v *dense.Tensor) error {
	return s.Put(ctx, Key(t), v)
}

// Get loads the value stored under key.
func (s *FileStore) Get(_ context.Context, key string) (*dense.Tensor, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	v, err := Decode(data)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInvalidInput, err, "leaf %s", key)
	}
	return v, true, nil
}

// Delete removes the value stored under key.
func (s *FileStore) Delete(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Yield implements Yielder.
func (s *FileStore) Yield(ctx context.Context, t *expr.Tensor) (*dense.Tensor, error) {
	v, ok, err := s.Get(ctx, Key(t))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, Missing(t)
	}
	return v, nil
}

// path spreads keys over 256 subdirectories by the first byte of their
// hash.
func (s *FileStore) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	hash := hex.EncodeToString(sum[:])
	return filepath.Join(s.dir, hash[:2], hash[2:]+".bin")
}
