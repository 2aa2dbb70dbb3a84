package elicitation

import (
	"context"
	"time"

	"gitarg/pkg/errors"
)

// Store persists sessions between elicitation steps
type Store interface {
	Save(ctx context.Context, s *Session) error
	Load(ctx context.Context, id string) (*Session, error)
}

// KV is the part of the redis adapter the store needs
type KV interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
}

// RedisStore keeps sessions as JSON documents under prefix+id
type RedisStore struct {
	kv     KV
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore creates a store; ttl 0 keeps sessions forever
func NewRedisStore(kv KV, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{kv: kv, prefix: prefix, ttl: ttl, now: time.Now}
}

// Save writes the session and stamps UpdatedAt
func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	if s == nil || s.ID == "" {
		return errors.Wrap(errors.ErrInvalidInput, "session without id")
	}
	s.UpdatedAt = r.now().UTC()
	if err := r.kv.Set(ctx, r.key(s.ID), s, r.ttl); err != nil {
		return errors.Wrapf(err, "save session %s", s.ID)
	}
	return nil
}

// Load reads a session; a missing session is errors.ErrNotFound
func (r *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	var s Session
	if err := r.kv.Get(ctx, r.key(id), &s); err != nil {
		return nil, errors.Wrapf(err, "load session %s", id)
	}
	if s.Values == nil {
		s.Values = map[string]any{}
	}
	return &s, nil
}

// Delete removes a session
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.kv.Delete(ctx, r.key(id))
}

func (r *RedisStore) key(id string) string {
	return r.prefix + id
}
