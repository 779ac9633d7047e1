package dto

import "github.com/noah-isme/phybench-api/internal/models"

// ReviewRequest captures an examiner's decision on a problem.
type ReviewRequest struct {
	Decision  string  `json:"decision" validate:"required,oneof=pending returned approved rejected archived"`
	Remark    *string `json:"remark" validate:"omitempty,max=5000"`
	Score     int     `json:"score" validate:"gte=0,lte=100000"`
	Nominated *string `json:"nominated" validate:"omitempty,max=64"`
}

// ScoreAwardResponse describes points granted as a side effect of an approval.
type ScoreAwardResponse struct {
	Tag    models.ScoreEventTag `json:"tag"`
	UserID uint                 `json:"user_id"`
	Score  int                  `json:"score"`
}

// ReviewResponse is returned once a review has been committed.
type ReviewResponse struct {
	Problem        ProblemResponse      `json:"problem"`
	PreviousStatus models.ProblemStatus `json:"previous_status"`
	Awards         []ScoreAwardResponse `json:"awards"`
}
