package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-timetable-admin/internal/model"
	"go-timetable-admin/pkg/apierror"
)

type capturingActivityQuerier struct {
	last model.ActivityQuery
}

func (c *capturingActivityQuerier) Query(_ context.Context, query model.ActivityQuery) ([]model.ActivityEntry, model.Meta, error) {
	c.last = query
	return nil, model.NewMeta(query.Page, query.Limit, 0), nil
}

func TestActivityQueryNormalizesFilters(t *testing.T) {
	repo := &capturingActivityQuerier{}
	svc := NewActivityService(repo)

	_, meta, err := svc.Query(context.Background(), model.ActivityQuery{
		Action: " file_download ",
		UserID: "12",
		From:   "2024-03-01T10:00:00+02:00",
		Limit:  500,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, meta.Page)
	assert.Equal(t, 200, meta.Limit)
	assert.Equal(t, model.ActionFileDownload, repo.last.Action)
	assert.Equal(t, "2024-03-01T08:00:00Z", repo.last.From)
	assert.Empty(t, repo.last.To)
}

func TestActivityQueryRejectsBadFilters(t *testing.T) {
	svc := NewActivityService(&capturingActivityQuerier{})

	for _, query := range []model.ActivityQuery{
		{UserID: "abc"},
		{UserID: "-1"},
		{From: "yesterday"},
		{To: "2024-13-01T00:00:00Z"},
	} {
		_, _, err := svc.Query(context.Background(), query)
		require.Equal(t, http.StatusBadRequest, apierror.Status(err), "%+v", query)
	}
}
