package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go-timetable-admin/internal/model"
	"go-timetable-admin/pkg/apierror"
)

type activityQuerier interface {
	Query(ctx context.Context, query model.ActivityQuery) ([]model.ActivityEntry, model.Meta, error)
}

type ActivityService struct {
	repo activityQuerier
}

func NewActivityService(repo activityQuerier) *ActivityService {
	return &ActivityService{repo: repo}
}

func (s *ActivityService) Query(ctx context.Context, query model.ActivityQuery) ([]model.ActivityEntry, model.Meta, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 50
	}
	if query.Limit > 200 {
		query.Limit = 200
	}

	query.Action = strings.ToUpper(strings.TrimSpace(query.Action))

	if userID := strings.TrimSpace(query.UserID); userID != "" {
		if id, err := strconv.ParseInt(userID, 10, 64); err != nil || id <= 0 {
			return nil, model.Meta{}, apierror.BadRequest("invalid 'user_id' filter", userID)
		}
		query.UserID = userID
	}

	from, err := normalizeActivityTime(query.From)
	if err != nil {
		return nil, model.Meta{}, apierror.BadRequest("invalid 'from' datetime format", query.From)
	}
	to, err := normalizeActivityTime(query.To)
	if err != nil {
		return nil, model.Meta{}, apierror.BadRequest("invalid 'to' datetime format", query.To)
	}
	query.From, query.To = from, to

	return s.repo.Query(ctx, query)
}

// normalizeActivityTime accepts RFC 3339 with or without fractional seconds
// and returns it in UTC, or "" when raw is blank.
func normalizeActivityTime(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", nil
	}

	value, err := time.Parse(time.RFC3339Nano, trimmed)
	if err != nil {
		return "", err
	}
	return value.UTC().Format(time.RFC3339Nano), nil
}
