package models

import "time"

// AIPerformanceTag distinguishes contributor-supplied model answers from evaluation runs.
type AIPerformanceTag string

const (
	// AIPerformanceSubmitted marks model output attached by the submitter.
	AIPerformanceSubmitted AIPerformanceTag = "SUBMITTED"
	// AIPerformanceEvaluation marks model output produced during curation.
	AIPerformanceEvaluation AIPerformanceTag = "EVALUATION"
)

// AIPerformance records how an AI model fared on a problem.
type AIPerformance struct {
	ID             uint             `gorm:"primaryKey" json:"id"`
	ProblemID      uint             `gorm:"not null;index" json:"problem_id"`
	AIName         string           `gorm:"size:128;not null" json:"ai_name"`
	AISolution     string           `gorm:"type:text" json:"ai_solution"`
	AIAnswer       string           `gorm:"type:text" json:"ai_answer"`
	IsCorrect      bool             `json:"is_correct"`
	Comment        *string          `gorm:"type:text" json:"comment"`
	Tag            AIPerformanceTag `gorm:"size:16;not null" json:"tag"`
	AIScore        *float64         `json:"ai_score"`
	UnlistedAIName *string          `gorm:"size:128" json:"unlisted_ai_name"`
	CreatedAt      time.Time        `json:"created_at"`
}
