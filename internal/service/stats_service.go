package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/phybench-api/internal/dto"
	"github.com/noah-isme/phybench-api/internal/models"
	"github.com/noah-isme/phybench-api/internal/observability"
	"github.com/noah-isme/phybench-api/internal/repository"
)

const (
	statsSummaryKey    = "stats:summary"
	statsLastWeekKey   = "stats:last_week:"
	statsQueryParallel = 4
)

// StatsInvalidator drops cached statistics after the catalogue changes.
type StatsInvalidator interface {
	Invalidate(ctx context.Context)
}

// StatsService aggregates catalogue statistics for the admin dashboard.
type StatsService interface {
	StatsInvalidator
	Summary(ctx context.Context, identity Identity) (dto.ProblemStatsResponse, error)
	LastWeek(ctx context.Context, identity Identity) (dto.LastWeekResponse, error)
}

type statsService struct {
	problems repository.ProblemRepository
	users    repository.UserRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewStatsService constructs the statistics service. cache may be nil.
func NewStatsService(problems repository.ProblemRepository, users repository.UserRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) StatsService {
	return &statsService{
		problems: problems,
		users:    users,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "stats_service").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/phybench-api/internal/service/stats"),
		now:      time.Now,
	}
}

func (s *statsService) Summary(ctx context.Context, identity Identity) (dto.ProblemStatsResponse, error) {
	if err := requireAdmin(identity); err != nil {
		return dto.ProblemStatsResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "stats.summary")
	span.SetAttributes(attribute.String("stats.cache_key", statsSummaryKey))
	defer span.End()

	var response dto.ProblemStatsResponse
	if s.readCache(ctx, span, statsSummaryKey, &response) {
		response.CacheHit = true
		return response, nil
	}

	var (
		total   int64
		pending int64
		users   int64
		tags    []repository.TagCount
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() (err error) {
		total, err = s.problems.Count(groupCtx, repository.ProblemCountFilter{})
		return err
	})
	group.Go(func() (err error) {
		pending, err = s.problems.Count(groupCtx, repository.ProblemCountFilter{Status: models.StatusPending})
		return err
	})
	group.Go(func() (err error) {
		users, err = s.users.Count(groupCtx)
		return err
	})
	group.Go(func() (err error) {
		tags, err = s.problems.CountByTag(groupCtx)
		return err
	})
	if err := group.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count_failed")
		return dto.ProblemStatsResponse{}, storeFailure(err)
	}

	response = dto.ProblemStatsResponse{
		TotalProblems:   total,
		TagStats:        make([]dto.TagCount, 0, len(tags)),
		TotalUsers:      users,
		PendingProblems: pending,
		GeneratedAt:     s.now().UTC(),
	}
	for _, tag := range tags {
		response.TagStats = append(response.TagStats, dto.TagCount{Tag: tag.Tag, Count: tag.Count})
	}

	s.writeCache(ctx, span, statsSummaryKey, response)
	return response, nil
}

// LastWeek counts problems created on each of the seven days before today and
// compares the total with the seven days before that.
func (s *statsService) LastWeek(ctx context.Context, identity Identity) (dto.LastWeekResponse, error) {
	if err := requireAdmin(identity); err != nil {
		return dto.LastWeekResponse{}, err
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	cacheKey := s.lastWeekKey(today)

	ctx, span := s.tracer.Start(ctx, "stats.last_week")
	span.SetAttributes(attribute.String("stats.cache_key", cacheKey))
	defer span.End()

	var response dto.LastWeekResponse
	if s.readCache(ctx, span, cacheKey, &response) {
		response.CacheHit = true
		return response, nil
	}

	days := make([]dto.DailyCount, 7)
	var previousWeek int64

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(statsQueryParallel)
	for i := range days {
		i := i
		start := today.AddDate(0, 0, i-7)
		end := start.AddDate(0, 0, 1)
		days[i].Date = fmt.Sprintf("%d/%d", int(start.Month()), start.Day())
		group.Go(func() error {
			count, err := s.problems.Count(groupCtx, repository.ProblemCountFilter{CreatedFrom: &start, CreatedBefore: &end})
			if err != nil {
				return err
			}
			days[i].Count = count
			return nil
		})
	}
	group.Go(func() error {
		from := today.AddDate(0, 0, -14)
		before := today.AddDate(0, 0, -7)
		count, err := s.problems.Count(groupCtx, repository.ProblemCountFilter{CreatedFrom: &from, CreatedBefore: &before})
		if err != nil {
			return err
		}
		previousWeek = count
		return nil
	})
	if err := group.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count_failed")
		return dto.LastWeekResponse{}, storeFailure(err)
	}

	var thisWeek int64
	for _, day := range days {
		thisWeek += day.Count
	}

	response = dto.LastWeekResponse{
		WeekData:      days,
		TotalThisWeek: thisWeek,
		TotalLastWeek: previousWeek,
		WeeklyChange:  WeeklyChange(thisWeek, previousWeek),
	}
	s.writeCache(ctx, span, cacheKey, response)
	return response, nil
}

// WeeklyChange formats the percent change between two weekly totals with one decimal.
// A zero baseline yields "0.0".
func WeeklyChange(thisWeek, lastWeek int64) string {
	if lastWeek <= 0 {
		return "0.0"
	}
	change := float64(thisWeek-lastWeek) / float64(lastWeek) * 100
	return fmt.Sprintf("%.1f", change)
}

func (s *statsService) readCache(ctx context.Context, span trace.Span, key string, target interface{}) bool {
	if s.cache == nil {
		return false
	}
	cached, err := s.cache.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to read stats cache")
			span.RecordError(err)
		}
		observability.StatsCacheLookups().WithLabelValues(cacheLabel(key), "miss").Inc()
		return false
	}
	if err := json.Unmarshal([]byte(cached), target); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("discarding malformed stats cache entry")
		observability.StatsCacheLookups().WithLabelValues(cacheLabel(key), "miss").Inc()
		return false
	}
	observability.StatsCacheLookups().WithLabelValues(cacheLabel(key), "hit").Inc()
	span.SetAttributes(attribute.Bool("stats.cache_hit", true))
	return true
}

func (s *statsService) writeCache(ctx context.Context, span trace.Span, key string, value interface{}) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to store stats cache")
		span.RecordError(err)
	}
}

// Invalidate removes the summary and today's weekly snapshot. Failures are logged only.
func (s *statsService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, statsSummaryKey, s.lastWeekKey(s.now())).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate stats cache")
	}
}

func (s *statsService) lastWeekKey(now time.Time) string {
	return statsLastWeekKey + now.Format("2006-01-02")
}

func invalidateStats(ctx context.Context, stats StatsInvalidator) {
	if stats != nil {
		stats.Invalidate(ctx)
	}
}

func cacheLabel(key string) string {
	if key == statsSummaryKey {
		return "summary"
	}
	return "last_week"
}

func requireAdmin(identity Identity) error {
	if !identity.Authenticated() {
		return ErrUnauthorized
	}
	if !identity.IsAdmin() {
		return forbidden("admin role required")
	}
	return nil
}
