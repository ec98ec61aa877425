package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"go-timetable-admin/internal/database"
	"go-timetable-admin/internal/model"
	"go-timetable-admin/pkg/apierror"
)

const userColumns = `id, username, email, password_hash, first_name, last_name, role, status,
	COALESCE(profile_image, ''), last_login_at, created_at, updated_at`

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.Role, &u.Status, &u.ProfileImage, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (model.User, error) {
	u, err := scanUser(r.db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, fmt.Errorf("user %d: %w", id, model.ErrUserNotFound)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by id: %w", err)
	}

	if err := r.loadProfile(ctx, r.db.Pool, &u); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// FindByLogin matches either the username or the email, case-insensitively.
func (r *UserRepository) FindByLogin(ctx context.Context, login string) (model.User, error) {
	login = strings.TrimSpace(login)
	u, err := scanUser(r.db.Pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE lower(username) = lower($1) OR lower(email) = lower($1)
		 LIMIT 1`, login))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by login: %w", err)
	}
	return u, nil
}

// Create inserts the user and its role profile row in one transaction.
func (r *UserRepository) Create(ctx context.Context, u model.User, profile model.ProfileFields) (model.User, error) {
	err := r.db.WithTx(ctx, func(q database.Querier) error {
		err := q.QueryRow(ctx,
			`INSERT INTO users (username, email, password_hash, first_name, last_name, role, status, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
			 RETURNING id`,
			u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Role, u.Status, u.CreatedAt).
			Scan(&u.ID)
		if err != nil {
			return mapWriteError(err, "create user")
		}

		switch u.Role {
		case model.RoleAdmin:
			_, err = q.Exec(ctx,
				`INSERT INTO admin_profiles (user_id, department, phone) VALUES ($1, $2, $3)`,
				u.ID, profile.Department, profile.Phone)
		case model.RoleFaculty:
			_, err = q.Exec(ctx,
				`INSERT INTO faculty (user_id, employee_id, department, designation, phone) VALUES ($1, $2, $3, $4, $5)`,
				u.ID, profile.EmployeeID, profile.Department, profile.Designation, profile.Phone)
		case model.RoleStudent:
			_, err = q.Exec(ctx,
				`INSERT INTO students (user_id, student_number, department, year_level, section, phone) VALUES ($1, $2, $3, $4, $5, $6)`,
				u.ID, profile.StudentNumber, profile.Department, profile.YearLevel, profile.Section, profile.Phone)
		}
		if err != nil {
			return mapWriteError(err, "create profile")
		}

		return r.loadProfile(ctx, q, &u)
	})
	if err != nil {
		return model.User{}, err
	}

	u.UpdatedAt = u.CreatedAt
	return u, nil
}

// Update writes account fields and, when profile is non-nil, the role profile row.
func (r *UserRepository) Update(ctx context.Context, u model.User, profile *model.ProfileFields) error {
	return r.db.WithTx(ctx, func(q database.Querier) error {
		tag, err := q.Exec(ctx,
			`UPDATE users SET email = $2, password_hash = $3, first_name = $4, last_name = $5, updated_at = $6
			 WHERE id = $1`,
			u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.UpdatedAt)
		if err != nil {
			return mapWriteError(err, "update user")
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("user %d: %w", u.ID, model.ErrUserNotFound)
		}

		if profile == nil {
			return nil
		}

		switch u.Role {
		case model.RoleAdmin:
			_, err = q.Exec(ctx,
				`UPDATE admin_profiles SET department = $2, phone = $3 WHERE user_id = $1`,
				u.ID, profile.Department, profile.Phone)
		case model.RoleFaculty:
			_, err = q.Exec(ctx,
				`UPDATE faculty SET employee_id = $2, department = $3, designation = $4, phone = $5 WHERE user_id = $1`,
				u.ID, profile.EmployeeID, profile.Department, profile.Designation, profile.Phone)
		case model.RoleStudent:
			_, err = q.Exec(ctx,
				`UPDATE students SET student_number = $2, department = $3, year_level = $4, section = $5, phone = $6 WHERE user_id = $1`,
				u.ID, profile.StudentNumber, profile.Department, profile.YearLevel, profile.Section, profile.Phone)
		}
		if err != nil {
			return mapWriteError(err, "update profile")
		}
		return nil
	})
}

func (r *UserRepository) UpdateStatus(ctx context.Context, id int64, status model.Status) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE users SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update user status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", id, model.ErrUserNotFound)
	}
	return nil
}

func (r *UserRepository) UpdateProfileImage(ctx context.Context, id int64, imagePath string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE users SET profile_image = NULLIF($2, ''), updated_at = $3 WHERE id = $1`,
		id, imagePath, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update profile image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", id, model.ErrUserNotFound)
	}
	return nil
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.Pool.Exec(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", id, model.ErrUserNotFound)
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context, query model.UserQuery) ([]model.User, model.Meta, error) {
	where := make([]string, 0)
	args := make([]any, 0)
	argIdx := 1

	if role := strings.TrimSpace(query.Role); role != "" {
		where = append(where, fmt.Sprintf("role = $%d", argIdx))
		args = append(args, strings.ToLower(role))
		argIdx++
	}
	if status := strings.TrimSpace(query.Status); status != "" {
		where = append(where, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, strings.ToLower(status))
		argIdx++
	}
	if search := strings.TrimSpace(query.Search); search != "" {
		where = append(where, fmt.Sprintf(
			"(username ILIKE $%[1]d OR email ILIKE $%[1]d OR (first_name || ' ' || last_name) ILIKE $%[1]d)", argIdx))
		args = append(args, "%"+escapeLike(search)+"%")
		argIdx++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM users "+whereClause, args...).Scan(&total); err != nil {
		return nil, model.Meta{}, fmt.Errorf("count users: %w", err)
	}
	meta := model.NewMeta(query.Page, query.Limit, total)

	offset := (query.Page - 1) * query.Limit
	dataQuery := fmt.Sprintf(`SELECT %s FROM users %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		userColumns, whereClause, argIdx, argIdx+1)
	args = append(args, query.Limit, offset)

	rows, err := r.db.Pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		u, scanErr := scanUser(rows)
		if scanErr != nil {
			return nil, model.Meta{}, fmt.Errorf("scan user: %w", scanErr)
		}
		users = append(users, u)
	}
	return users, meta, rows.Err()
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func (r *UserRepository) loadProfile(ctx context.Context, q database.Querier, u *model.User) error {
	var err error
	switch u.Role {
	case model.RoleAdmin:
		p := &model.AdminProfile{}
		err = q.QueryRow(ctx, `SELECT id, department, phone FROM admin_profiles WHERE user_id = $1`, u.ID).
			Scan(&p.ID, &p.Department, &p.Phone)
		u.Admin = p
	case model.RoleFaculty:
		p := &model.FacultyProfile{}
		err = q.QueryRow(ctx, `SELECT id, employee_id, department, designation, phone FROM faculty WHERE user_id = $1`, u.ID).
			Scan(&p.ID, &p.EmployeeID, &p.Department, &p.Designation, &p.Phone)
		u.Faculty = p
	case model.RoleStudent:
		p := &model.StudentProfile{}
		err = q.QueryRow(ctx, `SELECT id, student_number, department, year_level, section, phone FROM students WHERE user_id = $1`, u.ID).
			Scan(&p.ID, &p.StudentNumber, &p.Department, &p.YearLevel, &p.Section, &p.Phone)
		u.Student = p
	}

	if errors.Is(err, pgx.ErrNoRows) {
		// Legacy rows may lack a profile; the user is still returned.
		u.Admin, u.Faculty, u.Student = nil, nil, nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s profile: %w", u.Role, err)
	}
	return nil
}

func mapWriteError(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		field := uniqueField(pgErr.ConstraintName)
		return apierror.New("ALREADY_EXISTS", field+" already in use", field, http.StatusConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func uniqueField(constraint string) string {
	switch {
	case strings.Contains(constraint, "username"):
		return "username"
	case strings.Contains(constraint, "email"):
		return "email"
	case strings.Contains(constraint, "employee_id"):
		return "employee_id"
	case strings.Contains(constraint, "student_number"):
		return "student_number"
	default:
		return "record"
	}
}

func escapeLike(raw string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(raw)
}
