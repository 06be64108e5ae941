package leaf

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/tensorplan/pkg/backend/dense"
	"github.com/matzehuels/tensorplan/pkg/errors"
	"github.com/matzehuels/tensorplan/pkg/expr"
)

// DefaultRedisPrefix namespaces leaf keys in a shared Redis database.
const DefaultRedisPrefix = "tensorplan:leaf:"

// RedisStore shares encoded leaf tensors between processes through Redis.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithPrefix sets the key prefix. The default is [DefaultRedisPrefix].
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

// WithTTL expires stored tensors after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) { s.ttl = ttl }
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: DefaultRedisPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// DialRedis connects to the server at url (redis://host:port/db) and checks
// the connection.
func DialRedis(ctx context.Context, url string, opts ...RedisOption) (*RedisStore, error) {
	o, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse redis URL")
	}
	client := redis.NewClient(o)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "redis ping failed")
	}
	return NewRedisStore(client, opts...), nil
}

// Put stores v under key.
func (s *RedisStore) Put(ctx context.Context, key string, v *dense.Tensor) error {
	return s.client.Set(ctx, s.prefix+key, Encode(v), s.ttl).Err()
}

// PutTensor stores v under the descriptor of t.
func (s *RedisStore) PutTensor(ctx context.Context, t *expr.Tensor, v *dense.Tensor) error {
	return s.Put(ctx, Key(t), v)
}

// Get loads the value stored under key.
func (s *RedisStore) Get(ctx context.Context, key string) (*dense.Tensor, bool, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if stderrors.Is(err, redis.Nil) {
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
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

// Yield implements Yielder.
func (s *RedisStore) Yield(ctx context.Context, t *expr.Tensor) (*dense.Tensor, error) {
	v, ok, err := s.Get(ctx, Key(t))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, Missing(t)
	}
	return v, nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
