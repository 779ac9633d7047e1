package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/phybench-api/internal/models"
)

// ScoreDrift is a user whose stored score was corrected to the ledger sum.
type ScoreDrift struct {
	UserID   uint
	Previous int
	Ledger   int
}

// ScoreEventRepository reads the append-only score ledger.
type ScoreEventRepository interface {
	ListByUser(ctx context.Context, userID uint) ([]models.ScoreEvent, error)
	ListByProblem(ctx context.Context, problemID uint) ([]models.ScoreEvent, error)
	SumByUser(ctx context.Context, userID uint) (int, error)
	Reconcile(ctx context.Context, userID *uint) (int, []ScoreDrift, error)
}

type scoreEventRepository struct {
	db *gorm.DB
}

// NewScoreEventRepository constructs the score ledger repository.
func NewScoreEventRepository(db *gorm.DB) ScoreEventRepository {
	return &scoreEventRepository{db: db}
}

func (r *scoreEventRepository) ListByUser(ctx context.Context, userID uint) ([]models.ScoreEvent, error) {
	var events []models.ScoreEvent
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *scoreEventRepository) ListByProblem(ctx context.Context, problemID uint) ([]models.ScoreEvent, error) {
	var events []models.ScoreEvent
	if err := r.db.WithContext(ctx).Where("problem_id = ?", problemID).Order("id ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *scoreEventRepository) SumByUser(ctx context.Context, userID uint) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.ScoreEvent{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(score), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return int(total), nil
}

// Reconcile rewrites users.score from SUM(score_events.score) for one user, or every
// user when userID is nil, and returns how many users were checked and which drifted.
// User rows are locked before the ledger is summed so a concurrent review award
// waits for the rewrite instead of being overwritten by a stale total.
func (r *scoreEventRepository) Reconcile(ctx context.Context, userID *uint) (int, []ScoreDrift, error) {
	var (
		checked int
		drifts  []ScoreDrift
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		userQuery := tx.Model(&models.User{}).Clauses(clause.Locking{Strength: "UPDATE"})
		if userID != nil {
			userQuery = userQuery.Where("id = ?", *userID)
		}
		var users []models.User
		if err := userQuery.Order("id ASC").Find(&users).Error; err != nil {
			return err
		}
		if userID != nil && len(users) == 0 {
			return gorm.ErrRecordNotFound
		}

		type ledgerRow struct {
			UserID uint
			Total  int64
		}
		ledgerQuery := tx.Model(&models.ScoreEvent{}).Select("user_id, COALESCE(SUM(score), 0) AS total").Group("user_id")
		if userID != nil {
			ledgerQuery = ledgerQuery.Where("user_id = ?", *userID)
		}
		var rows []ledgerRow
		if err := ledgerQuery.Scan(&rows).Error; err != nil {
			return err
		}
		ledger := make(map[uint]int, len(rows))
		for _, row := range rows {
			ledger[row.UserID] = int(row.Total)
		}

		for _, user := range users {
			checked++
			expected := ledger[user.ID]
			if user.Score == expected {
				continue
			}
			if err := tx.Model(&models.User{}).Where("id = ?", user.ID).UpdateColumn("score", expected).Error; err != nil {
				return err
			}
			drifts = append(drifts, ScoreDrift{UserID: user.ID, Previous: user.Score, Ledger: expected})
		}
		return nil
	})
	if err != nil {
		return 0, nil, err
	}

	return checked, drifts, nil
}
