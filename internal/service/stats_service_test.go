package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/phybench-api/internal/dto"
	"github.com/noah-isme/phybench-api/internal/models"
)

func TestWeeklyChange(t *testing.T) {
	require.Equal(t, "0.0", WeeklyChange(5, 0))
	require.Equal(t, "50.0", WeeklyChange(6, 4))
	require.Equal(t, "-25.0", WeeklyChange(3, 4))
	require.Equal(t, "33.3", WeeklyChange(4, 3))
}

func TestStatsServiceSummaryCaching(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	f := newFixture(t)
	admin := f.user(t, "admin@example.com", models.RoleAdmin)
	owner := f.user(t, "u1@example.com", models.RoleUser)
	f.problem(t, models.Problem{UserID: owner.ID, Tag: models.TagOptics})
	f.problem(t, models.Problem{UserID: owner.ID, Tag: models.TagOptics, Status: models.StatusApproved})
	f.problem(t, models.Problem{UserID: owner.ID, Tag: models.TagMechanics})

	svc := NewStatsService(f.problems, f.users, client, time.Minute, testLogger())

	summary, err := svc.Summary(context.Background(), identityOf(admin))
	require.NoError(t, err)
	require.False(t, summary.CacheHit)
	require.Equal(t, int64(3), summary.TotalProblems)
	require.Equal(t, int64(2), summary.PendingProblems)
	require.Equal(t, int64(2), summary.TotalUsers)
	require.Len(t, summary.TagStats, 2)
	require.Equal(t, models.TagMechanics, summary.TagStats[0].Tag)
	require.Equal(t, int64(2), summary.TagStats[1].Count)
	require.True(t, server.Exists(statsSummaryKey))

	f.problem(t, models.Problem{UserID: owner.ID})
	cached, err := svc.Summary(context.Background(), identityOf(admin))
	require.NoError(t, err)
	require.True(t, cached.CacheHit)
	require.Equal(t, int64(3), cached.TotalProblems)

	_, err = svc.Summary(context.Background(), identityOf(owner))
	require.ErrorIs(t, err, ErrForbidden)
}

func TestStatsServiceLastWeek(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin@example.com", models.RoleAdmin)
	owner := f.user(t, "u1@example.com", models.RoleUser)

	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.Local)
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)
	at := func(daysAgo int, hour int) time.Time {
		return today.AddDate(0, 0, -daysAgo).Add(time.Duration(hour) * time.Hour)
	}

	f.problem(t, models.Problem{UserID: owner.ID, CreatedAt: at(0, 9)})
	f.problem(t, models.Problem{UserID: owner.ID, CreatedAt: at(1, 1)})
	f.problem(t, models.Problem{UserID: owner.ID, CreatedAt: at(1, 23)})
	f.problem(t, models.Problem{UserID: owner.ID, CreatedAt: at(7, 0)})
	f.problem(t, models.Problem{UserID: owner.ID, CreatedAt: at(8, 12)})
	f.problem(t, models.Problem{UserID: owner.ID, CreatedAt: at(14, 12)})
	f.problem(t, models.Problem{UserID: owner.ID, CreatedAt: at(15, 12)})

	svc := NewStatsService(f.problems, f.users, nil, 0, testLogger()).(*statsService)
	svc.now = func() time.Time { return now }

	resp, err := svc.LastWeek(context.Background(), identityOf(admin))
	require.NoError(t, err)
	require.Len(t, resp.WeekData, 7)
	require.Equal(t, "3/3", resp.WeekData[0].Date)
	require.Equal(t, int64(1), resp.WeekData[0].Count)
	require.Equal(t, "3/9", resp.WeekData[6].Date)
	require.Equal(t, int64(2), resp.WeekData[6].Count)
	require.Equal(t, int64(3), resp.TotalThisWeek)
	require.Equal(t, int64(2), resp.TotalLastWeek)
	require.Equal(t, "50.0", resp.WeeklyChange)
	require.False(t, resp.CacheHit)
}

func TestStatsSummaryRefreshesAfterCatalogueChanges(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	f := newFixture(t)
	admin := f.user(t, "admin@example.com", models.RoleAdmin)
	owner := f.user(t, "u1@example.com", models.RoleUser)
	f.problem(t, models.Problem{UserID: owner.ID, Tag: models.TagOptics})

	stats := NewStatsService(f.problems, f.users, client, time.Minute, testLogger())
	problems := NewProblemService(f.problems, f.users, newValidator(), f.activity, stats, 15, testLogger())
	reviews := NewReviewService(f.problems, f.users, f.reviews, newValidator(), f.activity, nil, stats, testLogger())
	ctx := context.Background()

	summary, err := stats.Summary(ctx, identityOf(admin))
	require.NoError(t, err)
	require.Equal(t, int64(1), summary.TotalProblems)
	require.Equal(t, int64(1), summary.PendingProblems)

	require.NoError(t, server.Set(statsLastWeekKey+time.Now().Format("2006-01-02"), "{}"))
	submitted, err := problems.Submit(ctx, identityOf(owner), validCreateRequest())
	require.NoError(t, err)
	require.False(t, server.Exists(statsSummaryKey))
	require.False(t, server.Exists(statsLastWeekKey+time.Now().Format("2006-01-02")))

	summary, err = stats.Summary(ctx, identityOf(admin))
	require.NoError(t, err)
	require.False(t, summary.CacheHit)
	require.Equal(t, int64(2), summary.TotalProblems)
	require.Equal(t, int64(2), summary.PendingProblems)

	_, err = reviews.Review(ctx, identityOf(admin), submitted.ID, dto.ReviewRequest{Decision: "approved", Score: 6})
	require.NoError(t, err)
	summary, err = stats.Summary(ctx, identityOf(admin))
	require.NoError(t, err)
	require.False(t, summary.CacheHit)
	require.Equal(t, int64(1), summary.PendingProblems)

	require.NoError(t, problems.Delete(ctx, identityOf(admin), submitted.ID))
	summary, err = stats.Summary(ctx, identityOf(admin))
	require.NoError(t, err)
	require.False(t, summary.CacheHit)
	require.Equal(t, int64(1), summary.TotalProblems)

	summary, err = stats.Summary(ctx, identityOf(admin))
	require.NoError(t, err)
	require.True(t, summary.CacheHit)
}

func TestStatsInvalidateWithoutCache(t *testing.T) {
	f := newFixture(t)
	svc := NewStatsService(f.problems, f.users, nil, time.Minute, testLogger())
	require.NotPanics(t, func() { svc.Invalidate(context.Background()) })
}
