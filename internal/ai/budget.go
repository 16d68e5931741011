package ai

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// BudgetChecker checks and records token usage against per-learner budgets.
// The generator consults it before each backend call; over-budget learners
// get fallback content instead of burning API spend.
type BudgetChecker interface {
	// Check returns true if the user has budget remaining.
	Check(ctx context.Context, userID string) (bool, error)
	// Record records token usage for a user.
	Record(ctx context.Context, userID string, tokens int) error
	// Usage returns current usage and budget for a user. A zero budget
	// means unlimited.
	Usage(ctx context.Context, userID string) (used int64, budget int64, err error)
}

// InMemoryBudget is a simple in-memory budget tracker for development and tests.
type InMemoryBudget struct {
	mu      sync.RWMutex
	budgets map[string]int64
	usage   map[string]int64
}

// NewInMemoryBudget creates a new in-memory budget tracker.
func NewInMemoryBudget() *InMemoryBudget {
	return &InMemoryBudget{
		budgets: make(map[string]int64),
		usage:   make(map[string]int64),
	}
}

// SetBudget sets the token budget for a user.
func (b *InMemoryBudget) SetBudget(userID string, tokens int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.budgets[userID] = tokens
}

func (b *InMemoryBudget) Check(_ context.Context, userID string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	budget, hasBudget := b.budgets[userID]
	if !hasBudget {
		// No budget set means unlimited.
		return true, nil
	}

	return b.usage[userID] < budget, nil
}

func (b *InMemoryBudget) Record(_ context.Context, userID string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.usage[userID] += int64(tokens)
	return nil
}

func (b *InMemoryBudget) Usage(_ context.Context, userID string) (int64, int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.usage[userID], b.budgets[userID], nil
}

// RedisBudget tracks token usage in Redis/Dragonfly with a rolling window.
// All users share a single default budget; usage counters expire after the
// window so learners regain capacity without manual resets.
type RedisBudget struct {
	client        *redis.Client
	defaultBudget int64
	window        time.Duration
}

// NewRedisBudget creates a Redis-backed budget tracker. A defaultBudget of
// zero means unlimited.
func NewRedisBudget(client *redis.Client, defaultBudget int64, window time.Duration) *RedisBudget {
	if window <= 0 {
		window = 30 * 24 * time.Hour
	}
	return &RedisBudget{
		client:        client,
		defaultBudget: defaultBudget,
		window:        window,
	}
}

func budgetKey(userID string) string {
	return "budget:tokens:" + userID
}

func (b *RedisBudget) Check(ctx context.Context, userID string) (bool, error) {
	if b.defaultBudget == 0 {
		return true, nil
	}

	used, err := b.client.Get(ctx, budgetKey(userID)).Int64()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("read token usage: %w", err)
	}

	return used < b.defaultBudget, nil
}

func (b *RedisBudget) Record(ctx context.Context, userID string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}
	if tokens == 0 {
		return nil
	}

	key := budgetKey(userID)
	used, err := b.client.IncrBy(ctx, key, int64(tokens)).Result()
	if err != nil {
		return fmt.Errorf("record token usage: %w", err)
	}
	if used == int64(tokens) {
		// First write in this window; start the expiry clock.
		if err := b.client.Expire(ctx, key, b.window).Err(); err != nil {
			return fmt.Errorf("set usage expiry: %w", err)
		}
	}
	return nil
}

func (b *RedisBudget) Usage(ctx context.Context, userID string) (int64, int64, error) {
	used, err := b.client.Get(ctx, budgetKey(userID)).Int64()
	if err == redis.Nil {
		return 0, b.defaultBudget, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("read token usage: %w", err)
	}
	return used, b.defaultBudget, nil
}
