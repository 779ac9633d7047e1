package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/phybench-api/internal/dto"
	"github.com/noah-isme/phybench-api/internal/models"
	"github.com/noah-isme/phybench-api/internal/repository"
)

type recordingPublisher struct {
	events []ReviewEvent
	err    error
}

func (r *recordingPublisher) Publish(ctx context.Context, event ReviewEvent) error {
	r.events = append(r.events, event)
	return r.err
}

func newReviewService(f *fixture, publisher ReviewEventPublisher) ReviewService {
	return NewReviewService(f.problems, f.users, f.reviews, newValidator(), f.activity, publisher, nil, testLogger())
}

func TestOfferScoreRoundsUp(t *testing.T) {
	require.Equal(t, 4, OfferScore(8))
	require.Equal(t, 5, OfferScore(9))
	require.Equal(t, 5, OfferScore(10))
	require.Equal(t, 1, OfferScore(1))
	require.Equal(t, 0, OfferScore(0))
}

func TestComputeAwards(t *testing.T) {
	problem := models.Problem{ID: 3, UserID: 1, OffererID: ptrUint(2)}

	awards := ComputeAwards(problem, models.StatusPending, models.StatusApproved, 10)
	require.Len(t, awards, 2)
	require.Equal(t, models.ScoreEvent{Tag: models.ScoreEventSubmit, Score: 10, UserID: 1, ProblemID: 3}, awards[0])
	require.Equal(t, models.ScoreEvent{Tag: models.ScoreEventOffer, Score: 5, UserID: 2, ProblemID: 3}, awards[1])

	require.Empty(t, ComputeAwards(problem, models.StatusApproved, models.StatusApproved, 10))
	require.Empty(t, ComputeAwards(problem, models.StatusPending, models.StatusReturned, 10))

	selfOffered := models.Problem{ID: 4, UserID: 1, OffererID: ptrUint(1)}
	require.Len(t, ComputeAwards(selfOffered, models.StatusReturned, models.StatusApproved, 6), 1)
}

func TestReviewServiceScenarioApprovesWithOffererSplit(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin@example.com", models.RoleAdmin)
	submitter := f.user(t, "u1@example.com", models.RoleUser)
	offerer := f.user(t, "u2@example.com", models.RoleUser)
	problem := f.problem(t, models.Problem{UserID: submitter.ID, OffererID: ptrUint(offerer.ID)})
	publisher := &recordingPublisher{}
	svc := newReviewService(f, publisher)

	resp, err := svc.Review(context.Background(), identityOf(admin), problem.ID, dto.ReviewRequest{Decision: "approved", Score: 8})
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, resp.Problem.Status)
	require.Equal(t, models.StatusPending, resp.PreviousStatus)
	require.NotNil(t, resp.Problem.Score)
	require.Equal(t, 8, *resp.Problem.Score)
	require.Equal(t, []dto.ScoreAwardResponse{
		{Tag: models.ScoreEventSubmit, UserID: submitter.ID, Score: 8},
		{Tag: models.ScoreEventOffer, UserID: offerer.ID, Score: 4},
	}, resp.Awards)

	require.Equal(t, 8, f.score(t, submitter.ID))
	require.Equal(t, 4, f.score(t, offerer.ID))
	f.requireLedgerMatches(t, submitter.ID, offerer.ID)

	require.Len(t, publisher.events, 1)
	require.Equal(t, problem.ID, publisher.events[0].ProblemID)
	require.Equal(t, models.StatusApproved, publisher.events[0].Status)
	require.Len(t, publisher.events[0].Awards, 2)

	logs, err := f.activity.List(context.Background(), dto.AdminActivityListRequest{Action: "problem.reviewed"})
	require.NoError(t, err)
	require.Len(t, logs.Items, 1)
	require.Equal(t, admin.ID, logs.Items[0].ActorID)
}

func TestReviewServiceReapprovalPaysOnce(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin@example.com", models.RoleAdmin)
	submitter := f.user(t, "u1@example.com", models.RoleUser)
	problem := f.problem(t, models.Problem{UserID: submitter.ID})
	svc := newReviewService(f, nil)

	for i := 0; i < 2; i++ {
		_, err := svc.Review(context.Background(), identityOf(admin), problem.ID, dto.ReviewRequest{Decision: "approved", Score: 10})
		require.NoError(t, err)
	}

	events := f.events(t)
	require.Len(t, events, 1)
	require.Equal(t, models.ScoreEventSubmit, events[0].Tag)
	require.Equal(t, 10, f.score(t, submitter.ID))
	f.requireLedgerMatches(t, submitter.ID)
}

func TestReviewServiceOffererSplitTen(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin@example.com", models.RoleAdmin)
	submitter := f.user(t, "u1@example.com", models.RoleUser)
	offerer := f.user(t, "u2@example.com", models.RoleUser)
	problem := f.problem(t, models.Problem{UserID: submitter.ID, OffererID: ptrUint(offerer.ID)})
	svc := newReviewService(f, nil)

	_, err := svc.Review(context.Background(), identityOf(admin), problem.ID, dto.ReviewRequest{Decision: "approved", Score: 10})
	require.NoError(t, err)

	events := f.events(t)
	require.Len(t, events, 2)
	require.Equal(t, 10, events[0].Score)
	require.Equal(t, models.ScoreEventOffer, events[1].Tag)
	require.Equal(t, 5, events[1].Score)
	require.Equal(t, 10, f.score(t, submitter.ID))
	require.Equal(t, 5, f.score(t, offerer.ID))
}

func TestReviewServiceSelfOfferedPaysSubmitterOnly(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin@example.com", models.RoleAdmin)
	submitter := f.user(t, "u1@example.com", models.RoleUser)
	selfOffered := f.problem(t, models.Problem{UserID: submitter.ID, OffererID: ptrUint(submitter.ID)})
	noOfferer := f.problem(t, models.Problem{UserID: submitter.ID})
	svc := newReviewService(f, nil)

	_, err := svc.Review(context.Background(), identityOf(admin), selfOffered.ID, dto.ReviewRequest{Decision: "approved", Score: 6})
	require.NoError(t, err)
	_, err = svc.Review(context.Background(), identityOf(admin), noOfferer.ID, dto.ReviewRequest{Decision: "approved", Score: 4})
	require.NoError(t, err)

	events := f.events(t)
	require.Len(t, events, 2)
	for _, event := range events {
		require.Equal(t, models.ScoreEventSubmit, event.Tag)
	}
	require.Equal(t, 10, f.score(t, submitter.ID))
}

func TestReviewServiceForbidsNonExaminer(t *testing.T) {
	f := newFixture(t)
	submitter := f.user(t, "u1@example.com", models.RoleUser)
	outsider := f.user(t, "u3@example.com", models.RoleUser)
	problem := f.problem(t, models.Problem{UserID: submitter.ID})
	publisher := &recordingPublisher{}
	svc := newReviewService(f, publisher)

	_, err := svc.Review(context.Background(), identityOf(outsider), problem.ID, dto.ReviewRequest{Decision: "approved", Score: 10, Remark: ptrString("looks good")})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Review(context.Background(), identityOf(submitter), problem.ID, dto.ReviewRequest{Decision: "approved", Score: 10})
	require.ErrorIs(t, err, ErrForbidden)

	stored, err := f.problems.GetByID(context.Background(), problem.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, stored.Status)
	require.Nil(t, stored.Remark)
	require.Nil(t, stored.Score)
	require.Empty(t, f.events(t))
	require.Zero(t, f.score(t, submitter.ID))
	require.Empty(t, publisher.events)
}

func TestReviewServiceExaminerMayReview(t *testing.T) {
	f := newFixture(t)
	submitter := f.user(t, "u1@example.com", models.RoleUser)
	examiner := f.user(t, "examiner@example.com", models.RoleUser)
	problem := f.problem(t, models.Problem{UserID: submitter.ID, Examiners: []models.User{examiner}})
	svc := newReviewService(f, nil)

	resp, err := svc.Review(context.Background(), Identity{Email: "EXAMINER@example.com"}, problem.ID, dto.ReviewRequest{
		Decision:  "RETURNED",
		Remark:    ptrString("<b>Units</b> missing in step 3"),
		Nominated: ptrString("   "),
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusReturned, resp.Problem.Status)
	require.NotNil(t, resp.Problem.Remark)
	require.Equal(t, "Units missing in step 3", *resp.Problem.Remark)
	require.Nil(t, resp.Problem.Nominated)
	require.Empty(t, resp.Awards)
}

func TestReviewServiceErrorKinds(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin@example.com", models.RoleAdmin)
	submitter := f.user(t, "u1@example.com", models.RoleUser)
	problem := f.problem(t, models.Problem{UserID: submitter.ID})
	svc := newReviewService(f, nil)
	ctx := context.Background()

	_, err := svc.Review(ctx, Identity{}, problem.ID, dto.ReviewRequest{Decision: "approved"})
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Review(ctx, identityOf(admin), problem.ID, dto.ReviewRequest{Decision: "published"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Review(ctx, identityOf(admin), problem.ID, dto.ReviewRequest{Decision: "approved", Score: -1})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Review(ctx, Identity{ID: 999, Role: models.RoleAdmin}, problem.ID, dto.ReviewRequest{Decision: "approved"})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Review(ctx, identityOf(admin), problem.ID+100, dto.ReviewRequest{Decision: "approved"})
	require.ErrorIs(t, err, ErrNotFound)
}

type staleReviewRepo struct{}

func (staleReviewRepo) Apply(ctx context.Context, mutation repository.ReviewMutation) (models.Problem, []models.ScoreEvent, error) {
	return models.Problem{}, nil, repository.ErrStaleStatus
}

type brokenReviewRepo struct{}

func (brokenReviewRepo) Apply(ctx context.Context, mutation repository.ReviewMutation) (models.Problem, []models.ScoreEvent, error) {
	return models.Problem{}, nil, errors.New("disk full")
}

func TestReviewServiceMapsRepositoryFailures(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin@example.com", models.RoleAdmin)
	submitter := f.user(t, "u1@example.com", models.RoleUser)
	problem := f.problem(t, models.Problem{UserID: submitter.ID})
	publisher := &recordingPublisher{}

	stale := NewReviewService(f.problems, f.users, staleReviewRepo{}, newValidator(), nil, publisher, nil, testLogger())
	_, err := stale.Review(context.Background(), identityOf(admin), problem.ID, dto.ReviewRequest{Decision: "approved", Score: 3})
	require.ErrorIs(t, err, ErrConflict)
	require.ErrorIs(t, err, repository.ErrStaleStatus)

	broken := NewReviewService(f.problems, f.users, brokenReviewRepo{}, newValidator(), nil, publisher, nil, testLogger())
	_, err = broken.Review(context.Background(), identityOf(admin), problem.ID, dto.ReviewRequest{Decision: "approved", Score: 3})
	require.ErrorIs(t, err, ErrStore)
	require.Empty(t, publisher.events)
}

// Two reviewers load the same pending problem; the second commit finds the status moved.
func TestReviewServiceConcurrentApprovalConflicts(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin@example.com", models.RoleAdmin)
	submitter := f.user(t, "u1@example.com", models.RoleUser)
	problem := f.problem(t, models.Problem{UserID: submitter.ID})
	svc := newReviewService(f, nil)

	_, _, err := f.reviews.Apply(context.Background(), repository.ReviewMutation{
		ProblemID:      problem.ID,
		PreviousStatus: models.StatusPending,
		Status:         models.StatusApproved,
		Score:          5,
		Awards:         ComputeAwards(problem, models.StatusPending, models.StatusApproved, 5),
	})
	require.NoError(t, err)

	_, _, err = f.reviews.Apply(context.Background(), repository.ReviewMutation{
		ProblemID:      problem.ID,
		PreviousStatus: models.StatusPending,
		Status:         models.StatusApproved,
		Score:          5,
		Awards:         ComputeAwards(problem, models.StatusPending, models.StatusApproved, 5),
	})
	require.ErrorIs(t, err, repository.ErrStaleStatus)

	require.Len(t, f.events(t), 1)
	require.Equal(t, 5, f.score(t, submitter.ID))

	_, err = svc.Review(context.Background(), identityOf(admin), problem.ID, dto.ReviewRequest{Decision: "approved", Score: 5})
	require.NoError(t, err)
	require.Len(t, f.events(t), 1)
	f.requireLedgerMatches(t, submitter.ID)
}

func TestReviewServicePublishFailureDoesNotFailReview(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin@example.com", models.RoleAdmin)
	submitter := f.user(t, "u1@example.com", models.RoleUser)
	problem := f.problem(t, models.Problem{UserID: submitter.ID})
	publisher := &recordingPublisher{err: errors.New("broker down")}
	svc := newReviewService(f, publisher)

	resp, err := svc.Review(context.Background(), identityOf(admin), problem.ID, dto.ReviewRequest{Decision: "approved", Score: 2})
	require.NoError(t, err)
	require.Len(t, resp.Awards, 1)
	require.Len(t, publisher.events, 1)
}

func TestReviewServiceLedgerHoldsAcrossTransitions(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin@example.com", models.RoleAdmin)
	submitter := f.user(t, "u1@example.com", models.RoleUser)
	offerer := f.user(t, "u2@example.com", models.RoleUser)
	problem := f.problem(t, models.Problem{UserID: submitter.ID, OffererID: ptrUint(offerer.ID)})
	svc := newReviewService(f, nil)
	ctx := context.Background()

	steps := []dto.ReviewRequest{
		{Decision: "returned", Score: 0},
		{Decision: "approved", Score: 7},
		{Decision: "archived", Score: 7},
		{Decision: "approved", Score: 9},
	}
	for _, step := range steps {
		_, err := svc.Review(ctx, identityOf(admin), problem.ID, step)
		require.NoError(t, err)
		f.requireLedgerMatches(t, submitter.ID, offerer.ID)
	}

	require.Equal(t, 7+9, f.score(t, submitter.ID))
	require.Equal(t, 4+5, f.score(t, offerer.ID))
}
