package services

import (
	"context"
	"sync"
	"time"

	"wishbudget/internal/cache"
	"wishbudget/internal/core"
)

type goalCacheKey struct {
	UserID string
	Year   int
}

// CachedGoals caches the goal list of a (user, year) in front of a
// GoalStore. Only persisted goals are cached; spent amounts are always
// recomputed by the caller. Every write through CachedGoals drops the entry
// it touches.
type CachedGoals struct {
	GoalStore
	lists *cache.LRU[goalCacheKey, []core.BudgetGoal]

	mu  sync.Mutex
	// gen moves on every invalidation. A list read across a move is not cached.
	gen uint64
}

// NewCachedGoals keeps up to size goal lists for ttl each.
func NewCachedGoals(store GoalStore, size int, ttl time.Duration) *CachedGoals {
	return &CachedGoals{
		GoalStore: store,
		lists:     cache.NewLRU[goalCacheKey, []core.BudgetGoal](size, ttl),
	}
}

// CleanExpired lets a cache.Janitor sweep the goal lists.
func (c *CachedGoals) CleanExpired() int {
	return c.lists.CleanExpired()
}

func (c *CachedGoals) Stats() cache.Stats {
	return c.lists.Stats()
}

func (c *CachedGoals) ListGoals(ctx context.Context, userID string, year int) ([]core.BudgetGoal, error) {
	key := goalCacheKey{UserID: userID, Year: year}
	if goals, ok := c.lists.Get(key); ok {
		return cloneGoals(goals), nil
	}
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	goals, err := c.GoalStore.ListGoals(ctx, userID, year)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.gen == gen {
		c.lists.Set(key, cloneGoals(goals))
	}
	c.mu.Unlock()
	return goals, nil
}

func (c *CachedGoals) SetGoalLimit(ctx context.Context, key core.GoalKey, limit *core.Money) error {
	defer c.invalidate(key)
	return c.GoalStore.SetGoalLimit(ctx, key, limit)
}

func (c *CachedGoals) SaveGoal(ctx context.Context, g core.BudgetGoal) error {
	defer c.invalidate(g.Key)
	return c.GoalStore.SaveGoal(ctx, g)
}

func (c *CachedGoals) DeleteGoal(ctx context.Context, key core.GoalKey) error {
	defer c.invalidate(key)
	return c.GoalStore.DeleteGoal(ctx, key)
}

func (c *CachedGoals) invalidate(key core.GoalKey) {
	c.mu.Lock()
	c.gen++
	c.lists.Delete(goalCacheKey{UserID: key.UserID, Year: key.Year})
	c.mu.Unlock()
}

// cloneGoals copies the slice and the limits so callers cannot mutate
// cached entries.
func cloneGoals(in []core.BudgetGoal) []core.BudgetGoal {
	if in == nil {
		return nil
	}
	out := make([]core.BudgetGoal, len(in))
	for i, g := range in {
		if g.Limit != nil {
			l := *g.Limit
			g.Limit = &l
		}
		out[i] = g
	}
	return out
}
