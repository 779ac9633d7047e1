package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/phybench-api/internal/dto"
	"github.com/noah-isme/phybench-api/internal/models"
	"github.com/noah-isme/phybench-api/internal/observability"
	"github.com/noah-isme/phybench-api/internal/repository"
)

// ReviewService applies examiner decisions and pays out approval awards.
type ReviewService interface {
	Review(ctx context.Context, identity Identity, problemID uint, payload dto.ReviewRequest) (dto.ReviewResponse, error)
}

type reviewService struct {
	problems  repository.ProblemRepository
	users     repository.UserRepository
	reviews   repository.ReviewRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	activity  ActivityRecorder
	events    ReviewEventPublisher
	stats     StatsInvalidator
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewReviewService constructs the review workflow. activity, events and stats may be nil.
func NewReviewService(
	problems repository.ProblemRepository,
	users repository.UserRepository,
	reviews repository.ReviewRepository,
	validate *validator.Validate,
	activity ActivityRecorder,
	events ReviewEventPublisher,
	stats StatsInvalidator,
	logger zerolog.Logger,
) ReviewService {
	return &reviewService{
		problems:  problems,
		users:     users,
		reviews:   reviews,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		activity:  activity,
		events:    events,
		stats:     stats,
		logger:    logger.With().Str("component", "review_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/phybench-api/internal/service/review"),
	}
}

// OfferScore is the offerer's share of an approval score, rounded up.
func OfferScore(score int) int {
	if score <= 0 {
		return 0
	}
	return (score + 1) / 2
}

// ComputeAwards returns the score events a decision pays out. Only the first
// transition into approved pays; the offerer is paid only when distinct from the submitter.
func ComputeAwards(problem models.Problem, previous, decision models.ProblemStatus, score int) []models.ScoreEvent {
	if decision != models.StatusApproved || previous == models.StatusApproved {
		return nil
	}

	awards := []models.ScoreEvent{{
		Tag:       models.ScoreEventSubmit,
		Score:     score,
		UserID:    problem.UserID,
		ProblemID: problem.ID,
	}}
	if problem.HasDistinctOfferer() {
		awards = append(awards, models.ScoreEvent{
			Tag:       models.ScoreEventOffer,
			Score:     OfferScore(score),
			UserID:    *problem.OffererID,
			ProblemID: problem.ID,
		})
	}
	return awards
}

func (s *reviewService) Review(ctx context.Context, identity Identity, problemID uint, payload dto.ReviewRequest) (dto.ReviewResponse, error) {
	ctx, span := s.tracer.Start(ctx, "review.apply")
	span.SetAttributes(
		attribute.Int64("review.problem_id", int64(problemID)),
		attribute.Int64("review.actor_id", int64(identity.ID)),
	)
	defer span.End()

	payload.Decision = strings.ToLower(strings.TrimSpace(payload.Decision))
	decisionLabel := payload.Decision
	if !models.ProblemStatus(decisionLabel).IsValid() {
		decisionLabel = "invalid"
	}

	fail := func(err error, status string) (dto.ReviewResponse, error) {
		observability.Reviews().WithLabelValues(decisionLabel, status).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
		return dto.ReviewResponse{}, err
	}

	if !identity.Authenticated() {
		return fail(ErrUnauthorized, "unauthorized")
	}
	if err := s.validator.Struct(payload); err != nil {
		return fail(validationFailure(err), "validation_failed")
	}

	requester, err := resolveRequester(ctx, s.users, identity)
	if err != nil {
		return fail(err, "requester_lookup_failed")
	}
	identity = identity.withUser(requester)

	problem, err := s.problems.GetByID(ctx, problemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(notFound("problem"), "problem_not_found")
		}
		return fail(storeFailure(err), "problem_lookup_failed")
	}

	if !CanReview(identity, problem) {
		return fail(forbidden("requester is not an examiner of this problem"), "forbidden")
	}

	decision := models.ProblemStatus(payload.Decision)
	previous := problem.Status
	mutation := repository.ReviewMutation{
		ProblemID:      problem.ID,
		PreviousStatus: previous,
		Status:         decision,
		Remark:         s.cleanOptional(payload.Remark),
		Score:          payload.Score,
		Nominated:      s.cleanOptional(payload.Nominated),
		Awards:         ComputeAwards(problem, previous, decision, payload.Score),
	}

	updated, events, err := s.reviews.Apply(ctx, mutation)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrStaleStatus):
			return fail(fmt.Errorf("%w: %w", ErrConflict, err), "conflict")
		case errors.Is(err, gorm.ErrRecordNotFound):
			return fail(notFound("problem"), "problem_not_found")
		default:
			s.logger.Error().Err(err).Uint("problem_id", problem.ID).Msg("review transaction rolled back")
			return fail(storeFailure(err), "store_failed")
		}
	}

	awards := make([]dto.ScoreAwardResponse, 0, len(events))
	eventAwards := make([]ReviewEventAward, 0, len(events))
	for _, event := range events {
		awards = append(awards, dto.ScoreAwardResponse{Tag: event.Tag, UserID: event.UserID, Score: event.Score})
		eventAwards = append(eventAwards, ReviewEventAward{Tag: event.Tag, UserID: event.UserID, Score: event.Score})
		observability.PointsAwarded().WithLabelValues(string(event.Tag)).Add(float64(event.Score))
	}
	observability.Reviews().WithLabelValues(decisionLabel, "applied").Inc()
	invalidateStats(ctx, s.stats)

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      identity,
		Action:     "problem.reviewed",
		EntityType: "problem",
		EntityID:   &updated.ID,
		Metadata: map[string]interface{}{
			"previous_status": string(previous),
			"status":          string(decision),
			"score":           payload.Score,
			"awards":          len(events),
		},
	})

	if s.events != nil {
		event := ReviewEvent{
			ProblemID:      updated.ID,
			ReviewerID:     identity.ID,
			PreviousStatus: previous,
			Status:         decision,
			Score:          payload.Score,
			Awards:         eventAwards,
		}
		if err := s.events.Publish(ctx, event); err != nil {
			s.logger.Warn().Err(err).Uint("problem_id", updated.ID).Msg("failed to publish review event")
			span.RecordError(err)
		}
	}

	span.SetAttributes(
		attribute.String("review.previous_status", string(previous)),
		attribute.String("review.status", string(decision)),
		attribute.Int("review.awards", len(events)),
	)
	span.SetStatus(codes.Ok, "applied")

	return dto.ReviewResponse{
		Problem:        dto.NewProblemResponse(updated),
		PreviousStatus: previous,
		Awards:         awards,
	}, nil
}

// cleanOptional strips markup; blank values clear the field.
func (s *reviewService) cleanOptional(value *string) *string {
	if value == nil {
		return nil
	}
	cleaned := strings.TrimSpace(s.sanitizer.Sanitize(*value))
	if cleaned == "" {
		return nil
	}
	return &cleaned
}
