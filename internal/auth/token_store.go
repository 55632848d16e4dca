package auth

import (
	"context"
	"fmt"
	"time"

	"jobtracker/internal/cache"
)

const usedActionTokenKeyPrefix = "used:action_token:"

// TokenStoreInterface defines the interface for one-time token bookkeeping.
type TokenStoreInterface interface {
	// Consume marks tokenID as used and reports whether this was its first use.
	Consume(ctx context.Context, tokenID string, ttl time.Duration) (bool, error)
	IsConsumed(ctx context.Context, tokenID string) (bool, error)
}

// TokenStore records consumed action token ids until they would have expired anyway.
type TokenStore struct {
	cache cache.Store
}

// Ensure TokenStore implements TokenStoreInterface
var _ TokenStoreInterface = (*TokenStore)(nil)

// NewTokenStore creates a new token store.
func NewTokenStore(cache cache.Store) *TokenStore {
	return &TokenStore{cache: cache}
}

// Consume marks a token as used. A ttl of zero or less means the token has
// already expired and there is nothing to record.
func (s *TokenStore) Consume(ctx context.Context, tokenID string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return true, nil
	}
	first, err := s.cache.SetNX(ctx, usedActionTokenKeyPrefix+tokenID, []byte("1"), ttl)
	if err != nil {
		return false, fmt.Errorf("record token use: %w", err)
	}
	return first, nil
}

// IsConsumed checks whether a token was already used.
func (s *TokenStore) IsConsumed(ctx context.Context, tokenID string) (bool, error) {
	data, err := s.cache.Get(ctx, usedActionTokenKeyPrefix+tokenID)
	if err != nil {
		return false, nil // Not consumed if error (fail safe)
	}
	return data != nil, nil
}
