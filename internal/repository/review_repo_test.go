package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/phybench-api/internal/models"
)

func TestReviewRepositoryApplyWritesAwardsAtomically(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReviewRepository(db)
	submitter := createUser(t, db, "submitter@example.com")
	offerer := createUser(t, db, "offerer@example.com")
	offererID := offerer.ID
	problem := createProblem(t, db, models.Problem{UserID: submitter.ID, OffererID: &offererID})

	remark := "clean derivation"
	updated, events, err := repo.Apply(context.Background(), ReviewMutation{
		ProblemID:      problem.ID,
		PreviousStatus: models.StatusPending,
		Status:         models.StatusApproved,
		Remark:         &remark,
		Score:          8,
		Awards: []models.ScoreEvent{
			{Tag: models.ScoreEventSubmit, Score: 8, UserID: submitter.ID},
			{Tag: models.ScoreEventOffer, Score: 4, UserID: offerer.ID},
		},
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, updated.Status)
	require.NotNil(t, updated.Score)
	require.Equal(t, 8, *updated.Score)
	require.Equal(t, remark, *updated.Remark)
	require.Nil(t, updated.Nominated)
	require.Len(t, events, 2)
	require.Equal(t, problem.ID, events[0].ProblemID)

	var submitterRow models.User
	require.NoError(t, db.First(&submitterRow, submitter.ID).Error)
	require.Equal(t, 8, submitterRow.Score)
	var offererRow models.User
	require.NoError(t, db.First(&offererRow, offerer.ID).Error)
	require.Equal(t, offerer.ID, offererRow.ID)
	require.Equal(t, 4, offererRow.Score)
}

func TestReviewRepositoryApplyRejectsStaleStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReviewRepository(db)
	submitter := createUser(t, db, "submitter@example.com")
	problem := createProblem(t, db, models.Problem{UserID: submitter.ID, Status: models.StatusApproved})

	_, _, err := repo.Apply(context.Background(), ReviewMutation{
		ProblemID:      problem.ID,
		PreviousStatus: models.StatusPending,
		Status:         models.StatusApproved,
		Score:          10,
		Awards:         []models.ScoreEvent{{Tag: models.ScoreEventSubmit, Score: 10, UserID: submitter.ID}},
	})
	require.ErrorIs(t, err, ErrStaleStatus)

	var count int64
	require.NoError(t, db.Model(&models.ScoreEvent{}).Count(&count).Error)
	require.Zero(t, count)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, submitter.ID).Error)
	require.Zero(t, reloaded.Score)
}

func TestReviewRepositoryApplyRollsBackOnMissingRecipient(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReviewRepository(db)
	submitter := createUser(t, db, "submitter@example.com")
	problem := createProblem(t, db, models.Problem{UserID: submitter.ID})

	_, _, err := repo.Apply(context.Background(), ReviewMutation{
		ProblemID:      problem.ID,
		PreviousStatus: models.StatusPending,
		Status:         models.StatusApproved,
		Score:          6,
		Awards: []models.ScoreEvent{
			{Tag: models.ScoreEventSubmit, Score: 6, UserID: submitter.ID},
			{Tag: models.ScoreEventOffer, Score: 3, UserID: 9999},
		},
	})
	require.ErrorIs(t, err, ErrAwardRecipientMissing)

	var stored models.Problem
	require.NoError(t, db.First(&stored, problem.ID).Error)
	require.Equal(t, models.StatusPending, stored.Status)
	require.Nil(t, stored.Score)

	var count int64
	require.NoError(t, db.Model(&models.ScoreEvent{}).Count(&count).Error)
	require.Zero(t, count)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, submitter.ID).Error)
	require.Zero(t, reloaded.Score)
}
