package service

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"go-timetable-admin/internal/model"
)

func TestMain(m *testing.M) {
	bcryptCost = bcrypt.MinCost
	os.Exit(m.Run())
}

// memUsers is an in-memory user repository.
type memUsers struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]model.User
}

func newMemUsers() *memUsers {
	return &memUsers{nextID: 1, byID: map[int64]model.User{}}
}

func (m *memUsers) add(u model.User) model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		u.ID = m.nextID
	}
	if u.ID >= m.nextID {
		m.nextID = u.ID + 1
	}
	m.byID[u.ID] = u
	return u
}

func (m *memUsers) FindByID(_ context.Context, id int64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return model.User{}, fmt.Errorf("user %d: %w", id, model.ErrUserNotFound)
	}
	return u, nil
}

func (m *memUsers) FindByLogin(_ context.Context, login string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if strings.EqualFold(u.Username, login) || strings.EqualFold(u.Email, login) {
			return u, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (m *memUsers) Create(_ context.Context, u model.User, _ model.ProfileFields) (model.User, error) {
	m.mu.Lock()
	for _, existing := range m.byID {
		if strings.EqualFold(existing.Username, u.Username) {
			m.mu.Unlock()
			return model.User{}, model.ErrUserAlreadyExists
		}
	}
	m.mu.Unlock()
	return m.add(u), nil
}

func (m *memUsers) Update(_ context.Context, u model.User, _ *model.ProfileFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[u.ID]; !ok {
		return model.ErrUserNotFound
	}
	m.byID[u.ID] = u
	return nil
}

func (m *memUsers) UpdateStatus(_ context.Context, id int64, status model.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return model.ErrUserNotFound
	}
	u.Status = status
	m.byID[id] = u
	return nil
}

func (m *memUsers) UpdateProfileImage(_ context.Context, id int64, imagePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return model.ErrUserNotFound
	}
	u.ProfileImage = imagePath
	m.byID[id] = u
	return nil
}

func (m *memUsers) TouchLastLogin(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.byID[id]
	u.LastLoginAt = &at
	m.byID[id] = u
	return nil
}

func (m *memUsers) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return model.ErrUserNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memUsers) List(_ context.Context, query model.UserQuery) ([]model.User, model.Meta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]model.User, 0, len(m.byID))
	for _, u := range m.byID {
		if query.Role != "" && string(u.Role) != query.Role {
			continue
		}
		if query.Status != "" && string(u.Status) != query.Status {
			continue
		}
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, model.NewMeta(query.Page, query.Limit, len(users)), nil
}

func (m *memUsers) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID), nil
}

type memTokens struct {
	mu      sync.Mutex
	owners  map[string]int64
	revoked []int64
}

func newMemTokens() *memTokens {
	return &memTokens{owners: map[string]int64{}}
}

func (m *memTokens) Store(_ context.Context, token string, userID int64, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owners[token] = userID
	return nil
}

func (m *memTokens) Consume(_ context.Context, token string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	owner, ok := m.owners[token]
	if !ok {
		return 0, model.ErrTokenNotFound
	}
	delete(m.owners, token)
	return owner, nil
}

func (m *memTokens) Revoke(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.owners, token)
	return nil
}

func (m *memTokens) RevokeAllForUser(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for token, owner := range m.owners {
		if owner == userID {
			delete(m.owners, token)
		}
	}
	m.revoked = append(m.revoked, userID)
	return nil
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := hashPassword(password)
	if err != nil {
		t.Fatal(err)
	}
	return hash
}
