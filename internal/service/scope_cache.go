package service

import (
	"context"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"go-timetable-admin/internal/model"
)

type scopeFinder interface {
	FindScopeID(ctx context.Context, userID int64, role model.Role) (int64, error)
}

// ScopeCache resolves the faculty/student id of a user, keeping successful
// lookups for a short TTL. Failed lookups are never cached.
type ScopeCache struct {
	finder scopeFinder
	cache  *expirable.LRU[string, int64]
}

func NewScopeCache(finder scopeFinder, size int, ttl time.Duration) *ScopeCache {
	c := &ScopeCache{finder: finder}
	if size > 0 && ttl > 0 {
		c.cache = expirable.NewLRU[string, int64](size, nil, ttl)
	}
	return c
}

func (c *ScopeCache) ResolveScopeID(ctx context.Context, userID int64, role model.Role) (int64, error) {
	if c.cache == nil {
		return c.finder.FindScopeID(ctx, userID, role)
	}

	key := string(role) + ":" + strconv.FormatInt(userID, 10)
	if id, ok := c.cache.Get(key); ok {
		scopeCacheLookups.WithLabelValues("hit").Inc()
		return id, nil
	}
	scopeCacheLookups.WithLabelValues("miss").Inc()

	id, err := c.finder.FindScopeID(ctx, userID, role)
	if err != nil {
		return 0, err
	}

	c.cache.Add(key, id)
	return id, nil
}

// Forget drops any cached id for the user, e.g. after the user is deleted.
func (c *ScopeCache) Forget(userID int64) {
	if c.cache == nil {
		return
	}

	suffix := ":" + strconv.FormatInt(userID, 10)
	for _, role := range []model.Role{model.RoleFaculty, model.RoleStudent} {
		c.cache.Remove(string(role) + suffix)
	}
}
