package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"go-timetable-admin/internal/database"
	"go-timetable-admin/internal/model"
)

type ProfileRepository struct {
	q database.Querier
}

func NewProfileRepository(q database.Querier) *ProfileRepository {
	return &ProfileRepository{q: q}
}

// FindScopeID returns the faculty or student row id owned by userID.
func (r *ProfileRepository) FindScopeID(ctx context.Context, userID int64, role model.Role) (int64, error) {
	var query string
	switch role {
	case model.RoleFaculty:
		query = `SELECT id FROM faculty WHERE user_id = $1`
	case model.RoleStudent:
		query = `SELECT id FROM students WHERE user_id = $1`
	default:
		return 0, fmt.Errorf("role %q has no scoped profile: %w", role, model.ErrInvalidInput)
	}

	var id int64
	err := r.q.QueryRow(ctx, query, userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%s profile for user %d: %w", role, userID, model.ErrProfileNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("find %s profile: %w", role, err)
	}
	return id, nil
}
