package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/phybench-api/internal/dto"
	"github.com/noah-isme/phybench-api/internal/models"
	"github.com/noah-isme/phybench-api/internal/repository"
)

type memoryActivityRepo struct {
	entries []models.ActivityLog
	filters []repository.ActivityLogFilter
}

func (m *memoryActivityRepo) Create(ctx context.Context, entry *models.ActivityLog) error {
	entry.ID = uint(len(m.entries) + 1)
	entry.CreatedAt = time.Now()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryActivityRepo) List(ctx context.Context, filter repository.ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	m.filters = append(m.filters, filter)
	return append([]models.ActivityLog(nil), m.entries...), int64(len(m.entries)), nil
}

func TestActivityServiceRecordMasksSecrets(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, testLogger())

	entry, err := svc.Record(context.Background(), ActivityEntry{
		Actor:      Identity{ID: 1, Role: "Admin"},
		Action:     "Problem.Reviewed",
		EntityType: "Problem",
		EntityID:   ptrUint(5),
		Metadata: map[string]interface{}{
			"api_token": "abc",
			"status":    "approved",
		},
	})
	require.NoError(t, err)
	require.Equal(t, "***", entry.Metadata["api_token"])
	require.Equal(t, "approved", entry.Metadata["status"])
	require.Equal(t, "admin", entry.ActorRole)
	require.Equal(t, "problem.reviewed", entry.Action)
	require.Equal(t, uint(1), entry.ActorID)

	_, err = svc.Record(context.Background(), ActivityEntry{EntityType: "problem"})
	require.Error(t, err)
}

func TestActivityServiceListNormalizesFilter(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, testLogger())
	_, err := svc.Record(context.Background(), ActivityEntry{Action: "user.role_changed", EntityType: "user"})
	require.NoError(t, err)

	resp, err := svc.List(context.Background(), dto.AdminActivityListRequest{PageSize: 1000, Action: " USER.ROLE_CHANGED ", ActorID: 3})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	require.Equal(t, "system", resp.Items[0].ActorRole)
	require.Equal(t, 1, resp.Pagination.Page)
	require.Equal(t, maxPageSize, resp.Pagination.PageSize)

	require.Len(t, repo.filters, 1)
	require.Equal(t, "user.role_changed", repo.filters[0].Action)
	require.NotNil(t, repo.filters[0].ActorID)
	require.Equal(t, uint(3), *repo.filters[0].ActorID)
	require.Nil(t, repo.filters[0].EntityID)

	_, err = svc.List(context.Background(), dto.AdminActivityListRequest{EntityType: "Problem", EntityID: 42})
	require.NoError(t, err)
	require.Len(t, repo.filters, 2)
	require.Equal(t, "problem", repo.filters[1].EntityType)
	require.NotNil(t, repo.filters[1].EntityID)
	require.Equal(t, uint(42), *repo.filters[1].EntityID)
}
