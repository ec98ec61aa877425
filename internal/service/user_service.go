package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"go-timetable-admin/internal/model"
	"go-timetable-admin/pkg/apierror"
)

const (
	defaultUserPageLimit = 20
	maxUserPageLimit     = 100
	maxBulkIDs           = 100
	minPasswordLength    = 8
	maxNameLength        = 100
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,50}$`)

type userStore interface {
	FindByID(ctx context.Context, id int64) (model.User, error)
	Create(ctx context.Context, u model.User, profile model.ProfileFields) (model.User, error)
	Update(ctx context.Context, u model.User, profile *model.ProfileFields) error
	UpdateStatus(ctx context.Context, id int64, status model.Status) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, query model.UserQuery) ([]model.User, model.Meta, error)
}

type tokenRevoker interface {
	RevokeAllForUser(ctx context.Context, userID int64) error
}

type scopeForgetter interface {
	Forget(userID int64)
}

type imageRemover interface {
	RemoveImage(name string)
}

// statusTransition describes one admin status action.
type statusTransition struct {
	from     []model.Status
	to       model.Status
	activity string
	verb     string
}

var statusTransitions = map[string]statusTransition{
	"approve": {
		from:     []model.Status{model.StatusPending},
		to:       model.StatusActive,
		activity: model.ActionUserApprove,
		verb:     "Approved",
	},
	"reject": {
		from:     []model.Status{model.StatusPending},
		to:       model.StatusRejected,
		activity: model.ActionUserReject,
		verb:     "Rejected",
	},
	"activate": {
		from:     []model.Status{model.StatusPending, model.StatusInactive, model.StatusRejected},
		to:       model.StatusActive,
		activity: model.ActionUserActivate,
		verb:     "Activated",
	},
	"deactivate": {
		from:     []model.Status{model.StatusActive},
		to:       model.StatusInactive,
		activity: model.ActionUserDeactivate,
		verb:     "Deactivated",
	},
}

type UserService struct {
	users    userStore
	tokens   tokenRevoker
	scopes   scopeForgetter
	images   imageRemover
	activity ActivityLogger
}

func NewUserService(users userStore, tokens tokenRevoker, scopes scopeForgetter, images imageRemover, activity ActivityLogger) *UserService {
	return &UserService{users: users, tokens: tokens, scopes: scopes, images: images, activity: activity}
}

func (s *UserService) List(ctx context.Context, query model.UserQuery) ([]model.User, model.Meta, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = defaultUserPageLimit
	}
	if query.Limit > maxUserPageLimit {
		query.Limit = maxUserPageLimit
	}

	if query.Role != "" {
		role, ok := model.ParseRole(query.Role)
		if !ok {
			return nil, model.Meta{}, apierror.BadRequest("invalid role filter", query.Role)
		}
		query.Role = string(role)
	}
	if query.Status != "" {
		status, ok := model.ParseStatus(query.Status)
		if !ok {
			return nil, model.Meta{}, apierror.BadRequest("invalid status filter", query.Status)
		}
		query.Status = string(status)
	}

	return s.users.List(ctx, query)
}

func (s *UserService) Get(ctx context.Context, id int64) (model.User, error) {
	return s.users.FindByID(ctx, id)
}

func (s *UserService) Create(ctx context.Context, actor model.Identity, req model.CreateUserRequest) (model.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)

	if !usernamePattern.MatchString(req.Username) {
		return model.User{}, apierror.BadRequest("username must be 3-50 characters of letters, digits, '_', '.' or '-'", "username")
	}
	if err := validateEmail(req.Email); err != nil {
		return model.User{}, err
	}
	if err := validatePassword(req.Password); err != nil {
		return model.User{}, err
	}
	if err := validateNames(req.FirstName, req.LastName); err != nil {
		return model.User{}, err
	}

	role, ok := model.ParseRole(req.Role)
	if !ok {
		return model.User{}, apierror.BadRequest("role must be admin, faculty or student", "role")
	}

	status := model.StatusActive
	if strings.TrimSpace(req.Status) != "" {
		parsed, ok := model.ParseStatus(req.Status)
		if !ok {
			return model.User{}, apierror.BadRequest("invalid status", "status")
		}
		status = parsed
	}

	profile := normalizeProfile(req.Profile)
	if err := validateProfile(role, profile); err != nil {
		return model.User{}, err
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return model.User{}, err
	}

	created, err := s.users.Create(ctx, model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         role,
		Status:       status,
		CreatedAt:    time.Now().UTC(),
	}, profile)
	if err != nil {
		return model.User{}, err
	}

	s.record(ctx, actor, model.ActionUserCreate, fmt.Sprintf("Created user: %s (%s)", created.Username, created.Role))
	return created, nil
}

func (s *UserService) Update(ctx context.Context, actor model.Identity, id int64, req model.UpdateUserRequest) (model.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return model.User{}, err
	}

	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if err := validateEmail(email); err != nil {
			return model.User{}, err
		}
		user.Email = email
	}
	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if err := validateNames(user.FirstName, user.LastName); err != nil {
		return model.User{}, err
	}
	if req.Password != nil && *req.Password != "" {
		if err := validatePassword(*req.Password); err != nil {
			return model.User{}, err
		}
		hash, err := hashPassword(*req.Password)
		if err != nil {
			return model.User{}, err
		}
		user.PasswordHash = hash
	}

	var profile *model.ProfileFields
	if req.Profile != nil {
		normalized := normalizeProfile(*req.Profile)
		if err := validateProfile(user.Role, normalized); err != nil {
			return model.User{}, err
		}
		profile = &normalized
	}

	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user, profile); err != nil {
		return model.User{}, err
	}

	s.record(ctx, actor, model.ActionUserUpdate, "Updated user: "+user.Username)
	return s.users.FindByID(ctx, id)
}

func (s *UserService) Delete(ctx context.Context, actor model.Identity, id int64) error {
	if id == actor.UserID {
		return model.ErrSelfAction
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}

	if s.scopes != nil {
		s.scopes.Forget(id)
	}
	if s.images != nil && user.ProfileImage != "" {
		s.images.RemoveImage(user.ProfileImage)
	}

	s.record(ctx, actor, model.ActionUserDelete, fmt.Sprintf("Deleted user: %s (%s)", user.Username, user.Role))
	return nil
}

// Transition applies one of approve, reject, activate or deactivate.
func (s *UserService) Transition(ctx context.Context, actor model.Identity, id int64, action string) (model.User, error) {
	transition, ok := statusTransitions[action]
	if !ok {
		return model.User{}, apierror.BadRequest("unknown status action", action)
	}
	if transition.to != model.StatusActive && id == actor.UserID {
		return model.User{}, model.ErrSelfAction
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return model.User{}, err
	}

	if !containsStatus(transition.from, user.Status) {
		return model.User{}, fmt.Errorf("%s %s user: %w", action, user.Status, model.ErrInvalidTransition)
	}

	if err := s.users.UpdateStatus(ctx, id, transition.to); err != nil {
		return model.User{}, err
	}

	if transition.to != model.StatusActive && s.tokens != nil {
		if err := s.tokens.RevokeAllForUser(ctx, id); err != nil {
			slog.Warn("failed to revoke refresh tokens", "user_id", id, "error", err)
		}
	}

	s.record(ctx, actor, transition.activity, fmt.Sprintf("%s user: %s", transition.verb, user.Username))

	user.Status = transition.to
	return user, nil
}

// Bulk runs action for every id independently and reports per-id outcomes.
func (s *UserService) Bulk(ctx context.Context, actor model.Identity, req model.BulkActionRequest) (model.BulkActionResult, error) {
	action := strings.ToLower(strings.TrimSpace(req.Action))
	if _, ok := statusTransitions[action]; !ok && action != "delete" {
		return model.BulkActionResult{}, apierror.BadRequest("action must be approve, reject, activate, deactivate or delete", "action")
	}
	if len(req.IDs) == 0 {
		return model.BulkActionResult{}, apierror.BadRequest("ids are required", "ids")
	}
	if len(req.IDs) > maxBulkIDs {
		return model.BulkActionResult{}, apierror.BadRequest(fmt.Sprintf("at most %d ids per request", maxBulkIDs), "ids")
	}

	result := model.BulkActionResult{Succeeded: make([]int64, 0, len(req.IDs)), Failed: make([]model.BulkActionFailure, 0)}
	seen := make(map[int64]struct{}, len(req.IDs))

	for _, id := range req.IDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		var err error
		if action == "delete" {
			err = s.Delete(ctx, actor, id)
		} else {
			_, err = s.Transition(ctx, actor, id, action)
		}

		if err != nil {
			result.Failed = append(result.Failed, model.BulkActionFailure{ID: id, Reason: failureReason(err)})
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}

	return result, nil
}

func (s *UserService) record(ctx context.Context, actor model.Identity, action string, description string) {
	if s.activity == nil {
		return
	}

	var userID *int64
	if actor.UserID > 0 {
		id := actor.UserID
		userID = &id
	}

	if err := s.activity.Log(ctx, model.ActivityEntry{
		UserID:      userID,
		Action:      action,
		Description: description,
		IPAddress:   actor.IP,
		Timestamp:   time.Now().UTC(),
	}); err != nil {
		slog.Warn("failed to record activity", "action", action, "error", err)
	}
}

func validateEmail(email string) error {
	if email == "" {
		return apierror.BadRequest("email is required", "email")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return apierror.BadRequest("email is invalid", "email")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apierror.BadRequest(fmt.Sprintf("password must be at least %d characters", minPasswordLength), "password")
	}
	return nil
}

func validateNames(first string, last string) error {
	if first == "" || len(first) > maxNameLength {
		return apierror.BadRequest("first_name is required", "first_name")
	}
	if last == "" || len(last) > maxNameLength {
		return apierror.BadRequest("last_name is required", "last_name")
	}
	return nil
}

func normalizeProfile(p model.ProfileFields) model.ProfileFields {
	p.Department = strings.TrimSpace(p.Department)
	p.Phone = strings.TrimSpace(p.Phone)
	p.EmployeeID = strings.TrimSpace(p.EmployeeID)
	p.Designation = strings.TrimSpace(p.Designation)
	p.StudentNumber = strings.TrimSpace(p.StudentNumber)
	p.Section = strings.TrimSpace(p.Section)
	return p
}

func validateProfile(role model.Role, p model.ProfileFields) error {
	switch role {
	case model.RoleFaculty:
		if p.EmployeeID == "" {
			return apierror.BadRequest("employee_id is required for faculty", "profile.employee_id")
		}
	case model.RoleStudent:
		if p.StudentNumber == "" {
			return apierror.BadRequest("student_number is required for students", "profile.student_number")
		}
		if p.YearLevel < 0 {
			return apierror.BadRequest("year_level must not be negative", "profile.year_level")
		}
	}
	return nil
}

func containsStatus(list []model.Status, status model.Status) bool {
	for _, candidate := range list {
		if candidate == status {
			return true
		}
	}
	return false
}

func failureReason(err error) string {
	var apiErr *apierror.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.Is(err, model.ErrUserNotFound):
		return model.ErrUserNotFound.Error()
	case errors.Is(err, model.ErrSelfAction):
		return model.ErrSelfAction.Error()
	case errors.Is(err, model.ErrInvalidTransition):
		return model.ErrInvalidTransition.Error()
	default:
		return "internal error"
	}
}
