package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-timetable-admin/internal/model"
)

type countingFinder struct {
	ids   map[int64]int64
	calls int
}

func (f *countingFinder) FindScopeID(_ context.Context, userID int64, _ model.Role) (int64, error) {
	f.calls++
	id, ok := f.ids[userID]
	if !ok {
		return 0, model.ErrProfileNotFound
	}
	return id, nil
}

func TestScopeCacheHitsAfterFirstLookup(t *testing.T) {
	finder := &countingFinder{ids: map[int64]int64{20: 42}}
	cache := NewScopeCache(finder, 16, time.Minute)

	for i := 0; i < 3; i++ {
		id, err := cache.ResolveScopeID(context.Background(), 20, model.RoleStudent)
		require.NoError(t, err)
		require.Equal(t, int64(42), id)
	}
	require.Equal(t, 1, finder.calls)

	cache.Forget(20)
	_, err := cache.ResolveScopeID(context.Background(), 20, model.RoleStudent)
	require.NoError(t, err)
	require.Equal(t, 2, finder.calls)
}

func TestScopeCacheDoesNotCacheMisses(t *testing.T) {
	finder := &countingFinder{ids: map[int64]int64{}}
	cache := NewScopeCache(finder, 16, time.Minute)

	_, err := cache.ResolveScopeID(context.Background(), 20, model.RoleStudent)
	require.ErrorIs(t, err, model.ErrProfileNotFound)

	finder.ids[20] = 42
	id, err := cache.ResolveScopeID(context.Background(), 20, model.RoleStudent)
	require.NoError(t, err)
	require.Equal(t, int64(42), id)
}

func TestScopeCacheKeysIncludeRole(t *testing.T) {
	finder := &countingFinder{ids: map[int64]int64{5: 11}}
	cache := NewScopeCache(finder, 16, time.Minute)

	_, err := cache.ResolveScopeID(context.Background(), 5, model.RoleFaculty)
	require.NoError(t, err)
	_, err = cache.ResolveScopeID(context.Background(), 5, model.RoleStudent)
	require.NoError(t, err)
	require.Equal(t, 2, finder.calls)
}

func TestScopeCacheDisabled(t *testing.T) {
	finder := &countingFinder{ids: map[int64]int64{5: 11}}
	cache := NewScopeCache(finder, 0, time.Minute)

	for i := 0; i < 2; i++ {
		_, err := cache.ResolveScopeID(context.Background(), 5, model.RoleFaculty)
		require.NoError(t, err)
	}
	require.Equal(t, 2, finder.calls)
	cache.Forget(5)
}
