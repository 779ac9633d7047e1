package models

import "time"

// ScoreEventTag is the reason a score event was awarded.
type ScoreEventTag string

const (
	// ScoreEventSubmit rewards the submitter of an approved problem.
	ScoreEventSubmit ScoreEventTag = "SUBMIT"
	// ScoreEventOffer rewards the offerer who sourced an approved problem.
	ScoreEventOffer ScoreEventTag = "OFFER"
)

// ScoreEvent is an append-only record of points awarded to a user.
// ProblemID intentionally carries no foreign key so the ledger outlives deleted problems.
type ScoreEvent struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	Tag       ScoreEventTag `gorm:"size:16;not null" json:"tag"`
	Score     int           `gorm:"not null" json:"score"`
	UserID    uint          `gorm:"not null;index" json:"user_id"`
	ProblemID uint          `gorm:"not null;index" json:"problem_id"`
	CreatedAt time.Time     `json:"created_at"`
}
