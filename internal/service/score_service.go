package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/phybench-api/internal/dto"
	"github.com/noah-isme/phybench-api/internal/repository"
)

// ScoreService repairs running user scores from the score event ledger.
type ScoreService interface {
	Recalculate(ctx context.Context, identity Identity, payload dto.RecalculateScoresRequest) (dto.RecalculateScoresResponse, error)
}

type scoreService struct {
	ledger    repository.ScoreEventRepository
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewScoreService constructs the ledger repair service.
func NewScoreService(ledger repository.ScoreEventRepository, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) ScoreService {
	return &scoreService{
		ledger:    ledger,
		validator: validate,
		activity:  activity,
		logger:    logger.With().Str("component", "score_service").Logger(),
	}
}

// Recalculate sets each user's score to the sum of their score events and reports
// the users whose stored score disagreed.
func (s *scoreService) Recalculate(ctx context.Context, identity Identity, payload dto.RecalculateScoresRequest) (dto.RecalculateScoresResponse, error) {
	if err := requireAdmin(identity); err != nil {
		return dto.RecalculateScoresResponse{}, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.RecalculateScoresResponse{}, validationFailure(err)
	}

	checked, drifts, err := s.ledger.Reconcile(ctx, payload.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RecalculateScoresResponse{}, notFound("user")
		}
		return dto.RecalculateScoresResponse{}, storeFailure(err)
	}

	response := dto.RecalculateScoresResponse{
		UsersChecked: checked,
		Drifted:      make([]dto.ScoreDrift, 0, len(drifts)),
	}
	for _, drift := range drifts {
		response.Drifted = append(response.Drifted, dto.ScoreDrift{
			UserID:   drift.UserID,
			Previous: drift.Previous,
			Ledger:   drift.Ledger,
		})
		s.logger.Warn().
			Uint("user_id", drift.UserID).
			Int("previous", drift.Previous).
			Int("ledger", drift.Ledger).
			Msg("user score drifted from ledger")
	}

	metadata := map[string]interface{}{
		"users_checked": checked,
		"drifted":       len(drifts),
	}
	if payload.UserID != nil {
		metadata["user_id"] = *payload.UserID
	}
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      identity,
		Action:     "scores.recalculated",
		EntityType: "user",
		EntityID:   payload.UserID,
		Metadata:   metadata,
	})

	return response, nil
}
