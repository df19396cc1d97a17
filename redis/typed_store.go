package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/demandflow/errors"
)

// TypedStore keeps values of type C as JSON strings under prefixed keys.
type TypedStore[C any] struct {
	client *Client
	prefix string
}

// NewTypedStore stores keys as "<prefix>:<key>", or bare when prefix is empty.
func NewTypedStore[C any](client *Client, prefix string) *TypedStore[C] {
	return &TypedStore[C]{client: client, prefix: prefix}
}

func (s *TypedStore[C]) Key(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

// Load returns nil without error when the key does not exist or has expired.
func (s *TypedStore[C]) Load(ctx context.Context, key string) (*C, error) {
	raw, err := s.client.Get(ctx, s.Key(key))
	switch {
	case stderrors.Is(err, goredis.Nil):
		return nil, nil
	case err != nil:
		return nil, s.fail(err, key)
	}

	v := new(C)
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return nil, errors.Internal(err).WithDetail("key", s.Key(key))
	}
	return v, nil
}

// Save replaces the value. A zero ttl keeps it forever.
func (s *TypedStore[C]) Save(ctx context.Context, key string, v *C, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Internal(err).WithDetail("key", s.Key(key))
	}
	if err := s.client.Set(ctx, s.Key(key), data, ttl); err != nil {
		return s.fail(err, key)
	}
	return nil
}

func (s *TypedStore[C]) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.Key(key)); err != nil {
		return s.fail(err, key)
	}
	return nil
}

func (s *TypedStore[C]) fail(err error, key string) error {
	return errors.ExternalServiceError("redis", err).WithDetail("key", s.Key(key))
}
