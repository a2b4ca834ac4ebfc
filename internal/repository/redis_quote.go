package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nuansasolution/portal/internal/domain"
	"github.com/redis/go-redis/v9"
)

const quoteKeyPrefix = "portal:quote:"

// RedisQuoteStore stashes priced quotes in Redis for the login-redirect
// handoff. Every stash entry is single-use: Take removes it atomically so
// a replayed redirect cannot reuse a consumed quote.
type RedisQuoteStore struct {
	client *redis.Client
}

// NewRedisQuoteStore creates a quote store backed by the given client.
func NewRedisQuoteStore(client *redis.Client) *RedisQuoteStore {
	return &RedisQuoteStore{client: client}
}

var _ domain.QuoteStore = (*RedisQuoteStore)(nil)

// Put stashes a quote under key with the given TTL.
func (s *RedisQuoteStore) Put(ctx context.Context, key string, quote domain.Quote, ttl time.Duration) error {
	payload, err := json.Marshal(quote)
	if err != nil {
		return fmt.Errorf("marshal quote: %w", err)
	}
	if err := s.client.Set(ctx, quoteKeyPrefix+key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("stash quote %s: %w", key, err)
	}
	return nil
}

// Take retrieves and deletes the quote in one round trip. A missing or
// already-consumed key yields domain.ErrQuoteConsumed.
func (s *RedisQuoteStore) Take(ctx context.Context, key string) (domain.Quote, error) {
	payload, err := s.client.GetDel(ctx, quoteKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Quote{}, domain.ErrQuoteConsumed
	}
	if err != nil {
		return domain.Quote{}, fmt.Errorf("take quote %s: %w", key, err)
	}
	var quote domain.Quote
	if err := json.Unmarshal(payload, &quote); err != nil {
		return domain.Quote{}, fmt.Errorf("decode quote %s: %w", key, err)
	}
	return quote, nil
}
