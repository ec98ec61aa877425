package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-timetable-admin/internal/database"
	"go-timetable-admin/internal/model"
)

// maxIPAddressLength matches activity_logs.ip_address.
const maxIPAddressLength = 64

type ActivityRepository struct {
	q database.Querier
}

func NewActivityRepository(q database.Querier) *ActivityRepository {
	return &ActivityRepository{q: q}
}

func (r *ActivityRepository) Log(ctx context.Context, entry model.ActivityEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if len(entry.IPAddress) > maxIPAddressLength {
		entry.IPAddress = entry.IPAddress[:maxIPAddressLength]
	}

	_, err := r.q.Exec(ctx,
		`INSERT INTO activity_logs (user_id, action, description, ip_address, timestamp)
		 VALUES ($1, $2, $3, $4, $5)`,
		entry.UserID, entry.Action, entry.Description, entry.IPAddress, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("log activity: %w", err)
	}
	return nil
}

func (r *ActivityRepository) Query(ctx context.Context, query model.ActivityQuery) ([]model.ActivityEntry, model.Meta, error) {
	where := make([]string, 0)
	args := make([]any, 0)
	argIdx := 1

	if action := strings.TrimSpace(query.Action); action != "" {
		where = append(where, fmt.Sprintf("upper(action) = upper($%d)", argIdx))
		args = append(args, action)
		argIdx++
	}
	if userID := strings.TrimSpace(query.UserID); userID != "" {
		where = append(where, fmt.Sprintf("user_id = $%d::bigint", argIdx))
		args = append(args, userID)
		argIdx++
	}
	if from := strings.TrimSpace(query.From); from != "" {
		where = append(where, fmt.Sprintf("timestamp >= $%d::timestamptz", argIdx))
		args = append(args, from)
		argIdx++
	}
	if to := strings.TrimSpace(query.To); to != "" {
		where = append(where, fmt.Sprintf("timestamp <= $%d::timestamptz", argIdx))
		args = append(args, to)
		argIdx++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.q.QueryRow(ctx, "SELECT COUNT(*) FROM activity_logs "+whereClause, args...).Scan(&total); err != nil {
		return nil, model.Meta{}, fmt.Errorf("count activity: %w", err)
	}
	meta := model.NewMeta(query.Page, query.Limit, total)

	offset := (query.Page - 1) * query.Limit
	dataQuery := fmt.Sprintf(
		`SELECT id, user_id, action, description, ip_address, timestamp
		 FROM activity_logs %s
		 ORDER BY timestamp DESC, id DESC
		 LIMIT $%d OFFSET $%d`, whereClause, argIdx, argIdx+1)
	args = append(args, query.Limit, offset)

	rows, err := r.q.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()

	entries := make([]model.ActivityEntry, 0)
	for rows.Next() {
		var e model.ActivityEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Description, &e.IPAddress, &e.Timestamp); err != nil {
			return nil, model.Meta{}, fmt.Errorf("scan activity: %w", err)
		}
		e.Timestamp = e.Timestamp.UTC()
		entries = append(entries, e)
	}

	return entries, meta, rows.Err()
}
