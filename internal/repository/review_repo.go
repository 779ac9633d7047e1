package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/phybench-api/internal/models"
)

var (
	// ErrStaleStatus indicates the problem's status changed between read and write.
	ErrStaleStatus = errors.New("problem status changed concurrently")
	// ErrAwardRecipientMissing indicates a score award named a user that does not exist.
	ErrAwardRecipientMissing = errors.New("score recipient not found")
)

// ReviewMutation is the complete write set of one review decision.
// Awards are inserted as ScoreEvents and added to each recipient's running score.
type ReviewMutation struct {
	ProblemID      uint
	PreviousStatus models.ProblemStatus
	Status         models.ProblemStatus
	Remark         *string
	Score          int
	Nominated      *string
	Awards         []models.ScoreEvent
}

// ReviewRepository applies review decisions atomically.
type ReviewRepository interface {
	Apply(ctx context.Context, mutation ReviewMutation) (models.Problem, []models.ScoreEvent, error)
}

type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository constructs the transactional review writer.
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

// Apply updates the problem only if its status still equals PreviousStatus, then
// writes every award and score increment in the same transaction.
func (r *reviewRepository) Apply(ctx context.Context, mutation ReviewMutation) (models.Problem, []models.ScoreEvent, error) {
	var (
		updated models.Problem
		events  []models.ScoreEvent
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Problem{}).
			Where("id = ? AND status = ?", mutation.ProblemID, mutation.PreviousStatus).
			Updates(map[string]interface{}{
				"status":    mutation.Status,
				"remark":    mutation.Remark,
				"score":     mutation.Score,
				"nominated": mutation.Nominated,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Problem{}).Where("id = ?", mutation.ProblemID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return gorm.ErrRecordNotFound
			}
			return ErrStaleStatus
		}

		events = make([]models.ScoreEvent, 0, len(mutation.Awards))
		for _, award := range mutation.Awards {
			event := models.ScoreEvent{
				Tag:       award.Tag,
				Score:     award.Score,
				UserID:    award.UserID,
				ProblemID: mutation.ProblemID,
			}
			if err := tx.Omit(clause.Associations).Create(&event).Error; err != nil {
				return err
			}

			increment := tx.Model(&models.User{}).
				Where("id = ?", award.UserID).
				UpdateColumn("score", gorm.Expr("score + ?", award.Score))
			if increment.Error != nil {
				return increment.Error
			}
			if increment.RowsAffected == 0 {
				return ErrAwardRecipientMissing
			}
			events = append(events, event)
		}

		return tx.Preload("Examiners").First(&updated, mutation.ProblemID).Error
	})
	if err != nil {
		return models.Problem{}, nil, err
	}

	return updated, events, nil
}
