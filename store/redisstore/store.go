package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	auth "github.com/goliatone/go-headless-auth"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "storefront:auth:"

// Option customizes a Store.
type Option func(*Store)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithTTL sets the sliding expiration applied on every save. Zero keeps
// sessions until deleted.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl >= 0 {
			s.ttl = ttl
		}
	}
}

// Store implements auth.SessionStore on redis. Each session is one JSON
// value under prefix+session id.
type Store struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ auth.SessionStore = (*Store)(nil)

// New returns a store backed by client.
func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: defaultPrefix,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// NewFromURL parses a redis:// URL and returns a store for it.
func NewFromURL(rawURL string, opts ...Option) (*Store, error) {
	options, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	return New(redis.NewClient(options), opts...), nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) key(sessionID string) string {
	return s.prefix + sessionID
}

// Get implements auth.SessionStore.
func (s *Store) Get(ctx context.Context, sessionID string) (*auth.SessionData, error) {
	raw, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var data auth.SessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Save implements auth.SessionStore.
func (s *Store) Save(ctx context.Context, sessionID string, data *auth.SessionData) error {
	if data == nil {
		data = &auth.SessionData{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(sessionID), raw, s.ttl).Err()
}

// Delete implements auth.SessionStore.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.key(sessionID)).Err()
}

// Close releases the client.
func (s *Store) Close() error {
	return s.client.Close()
}
