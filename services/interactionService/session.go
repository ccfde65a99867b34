package interactionService

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	sessionTTL       = 10 * time.Minute
	localCacheSize   = 10000
	sessionKeyPrefix = "wagerbot:session:"
)

// BetSelection is a half-finished bet: the user picked a side on a wager and still has to
// pick an amount.
type BetSelection struct {
	UserID     string
	GuildID    string
	WagerID    uint
	Prediction string
}

// SessionStore keeps short-lived interaction state that expires on its own. It runs on an
// in-process TinyLFU cache, shared through Redis when a client is given.
type SessionStore struct {
	cache *cache.Cache
}

func NewSessionStore(rdb redis.UniversalClient) *SessionStore {
	opts := &cache.Options{
		LocalCache: cache.NewTinyLFU(localCacheSize, sessionTTL),
	}
	if rdb != nil {
		opts.Redis = rdb
	}
	return &SessionStore{cache: cache.New(opts)}
}

// PutBetSelection stores sel under a fresh session id.
func (s *SessionStore) PutBetSelection(ctx context.Context, sel BetSelection) (string, error) {
	id := uuid.NewString()
	err := s.cache.Set(&cache.Item{
		Ctx:   ctx,
		Key:   sessionKeyPrefix + id,
		Value: sel,
		TTL:   sessionTTL,
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// BetSelection returns the stored selection, or false when it expired or never existed.
func (s *SessionStore) BetSelection(ctx context.Context, id string) (*BetSelection, bool, error) {
	var sel BetSelection
	err := s.cache.Get(ctx, sessionKeyPrefix+id, &sel)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &sel, true, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	err := s.cache.Delete(ctx, sessionKeyPrefix+id)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil
	}
	return err
}
