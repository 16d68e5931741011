package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skillpath-labs/skillpath/internal/course"
)

const activeCurriculumTTL = 10 * time.Minute

// CachedCurriculumStore is a Redis read-through decorator for the active
// curriculum lookup, the hottest read in the system (every progress write
// resolves it). Cache failures degrade to the underlying store.
type CachedCurriculumStore struct {
	CurriculumStore
	client *redis.Client
	logger *slog.Logger
}

// NewCachedCurriculumStore wraps inner with a Redis cache.
func NewCachedCurriculumStore(inner CurriculumStore, client *redis.Client, logger *slog.Logger) *CachedCurriculumStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedCurriculumStore{CurriculumStore: inner, client: client, logger: logger}
}

func activeCurriculumKey(userID string) string {
	return "curriculum:active:" + userID
}

func (s *CachedCurriculumStore) ActiveCurriculum(ctx context.Context, userID string) (*course.Curriculum, error) {
	key := activeCurriculumKey(userID)

	data, err := s.client.Get(ctx, key).Bytes()
	if err == nil {
		var c course.Curriculum
		if err := json.Unmarshal(data, &c); err == nil {
			return &c, nil
		}
		// Corrupt entry, drop it and fall through.
		s.client.Del(ctx, key)
	} else if err != redis.Nil {
		s.logger.Warn("curriculum cache read failed", "error", err)
	}

	c, err := s.CurriculumStore.ActiveCurriculum(ctx, userID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(c); err == nil {
		if err := s.client.Set(ctx, key, data, activeCurriculumTTL).Err(); err != nil {
			s.logger.Warn("curriculum cache write failed", "error", err)
		}
	}
	return c, nil
}

// CreateCurriculum writes through and invalidates the cached pointer so the
// new curriculum becomes visible immediately.
func (s *CachedCurriculumStore) CreateCurriculum(ctx context.Context, c *course.Curriculum) error {
	if err := s.CurriculumStore.CreateCurriculum(ctx, c); err != nil {
		return err
	}
	if err := s.client.Del(ctx, activeCurriculumKey(c.UserID)).Err(); err != nil {
		s.logger.Warn("curriculum cache invalidation failed", "error", err)
	}
	return nil
}

// cachedStore routes curriculum reads and writes through the cache decorator
// and everything else to the inner store.
type cachedStore struct {
	Store
	curricula *CachedCurriculumStore
}

// WithCurriculumCache returns a Store whose curriculum operations go through
// a Redis cache.
func WithCurriculumCache(inner Store, client *redis.Client, logger *slog.Logger) Store {
	return &cachedStore{
		Store:     inner,
		curricula: NewCachedCurriculumStore(inner, client, logger),
	}
}

func (s *cachedStore) CreateCurriculum(ctx context.Context, c *course.Curriculum) error {
	return s.curricula.CreateCurriculum(ctx, c)
}

func (s *cachedStore) ActiveCurriculum(ctx context.Context, userID string) (*course.Curriculum, error) {
	return s.curricula.ActiveCurriculum(ctx, userID)
}
