package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// ErrNoSession is returned for unknown or expired tokens.
var ErrNoSession = errors.New("session not found")

// SessionStore maps opaque bearer tokens to account ids.
type SessionStore interface {
	Create(ctx context.Context, userID int64) (string, error)
	Lookup(ctx context.Context, token string) (int64, error)
	Delete(ctx context.Context, token string) error
}

func newToken() string {
	return uuid.NewString()
}

type redisSessions struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessions keeps sessions in Redis so every API replica sees them.
func NewRedisSessions(client *redis.Client, ttl time.Duration) SessionStore {
	return &redisSessions{client: client, ttl: ttl}
}

func (s *redisSessions) key(token string) string {
	return fmt.Sprintf("terracafe:session:%s", token)
}

func (s *redisSessions) Create(ctx context.Context, userID int64) (string, error) {
	token := newToken()
	if err := s.client.Set(ctx, s.key(token), userID, s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

func (s *redisSessions) Lookup(ctx context.Context, token string) (int64, error) {
	v, err := s.client.Get(ctx, s.key(token)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrNoSession
	}
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt session %s: %w", token, err)
	}
	return id, nil
}

func (s *redisSessions) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, s.key(token)).Err()
}

const memorySessionCap = 10000

type memorySessions struct {
	cache *expirable.LRU[string, int64]
}

// NewMemorySessions keeps sessions in process memory; used when no Redis is configured.
func NewMemorySessions(ttl time.Duration) SessionStore {
	return &memorySessions{cache: expirable.NewLRU[string, int64](memorySessionCap, nil, ttl)}
}

func (s *memorySessions) Create(_ context.Context, userID int64) (string, error) {
	token := newToken()
	s.cache.Add(token, userID)
	return token, nil
}

func (s *memorySessions) Lookup(_ context.Context, token string) (int64, error) {
	id, ok := s.cache.Get(token)
	if !ok {
		return 0, ErrNoSession
	}
	return id, nil
}

func (s *memorySessions) Delete(_ context.Context, token string) error {
	s.cache.Remove(token)
	return nil
}
