package dto

import (
	"time"

	"gorm.io/datatypes"

	"github.com/noah-isme/phybench-api/internal/models"
)

// TagCount is the number of problems carrying a tag.
type TagCount struct {
	Tag   models.ProblemTag `json:"tag"`
	Count int64             `json:"count"`
}

// ProblemStatsResponse aggregates catalogue-wide counters for the admin dashboard.
type ProblemStatsResponse struct {
	TotalProblems   int64      `json:"total_problems"`
	TagStats        []TagCount `json:"tag_stats"`
	TotalUsers      int64      `json:"total_users"`
	PendingProblems int64      `json:"pending_problems"`
	GeneratedAt     time.Time  `json:"generated_at"`
	CacheHit        bool       `json:"cache_hit"`
}

// DailyCount is the number of problems created on one calendar day.
type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// LastWeekResponse is the seven-day submission histogram with week-over-week change.
type LastWeekResponse struct {
	WeekData      []DailyCount `json:"week_data"`
	TotalThisWeek int64        `json:"total_this_week"`
	TotalLastWeek int64        `json:"total_last_week"`
	WeeklyChange  string       `json:"weekly_change"`
	CacheHit      bool         `json:"cache_hit"`
}

// ExportRequest filters the problems included in an export.
type ExportRequest struct {
	Tag              string   `query:"tag" validate:"omitempty,oneof=mechanics electricity thermodynamics optics modern advanced other"`
	Status           string   `query:"status" validate:"omitempty,oneof=pending returned approved rejected archived"`
	TranslatedStatus string   `query:"translated_status" validate:"omitempty,oneof=pending returned approved rejected archived"`
	Nominated        string   `query:"nominated" validate:"omitempty,max=64"`
	AIPerformances   string   `query:"ai_performances" validate:"omitempty,oneof=0"`
	Fields           []string `query:"-"`
}

// TranslationUpload is one problem's translated content.
type TranslationUpload struct {
	ID                 uint    `json:"id" validate:"required,gt=0"`
	TranslatedContent  *string `json:"translated_content" validate:"omitempty,max=100000"`
	TranslatedSolution *string `json:"translated_solution" validate:"omitempty,max=100000"`
	TranslatedStatus   *string `json:"translated_status" validate:"omitempty,oneof=pending returned approved rejected archived"`
}

// TranslationUploadRequest is a batch of translations.
type TranslationUploadRequest struct {
	Items []TranslationUpload `json:"items" validate:"required,min=1,max=1000"`
}

// AIPerformanceUpload attaches model results to a problem.
type AIPerformanceUpload struct {
	ProblemID    uint                `json:"problem_id" validate:"required,gt=0"`
	Performances []AIResponseRequest `json:"performances" validate:"required,min=1,dive"`
}

// AIPerformanceUploadRequest is a batch of AI performance annotations.
type AIPerformanceUploadRequest struct {
	Items []AIPerformanceUpload `json:"items" validate:"required,min=1,max=1000"`
}

// Upload item outcomes.
const (
	UploadResultUpdated  = "updated"
	UploadResultNotFound = "not_found"
	UploadResultInvalid  = "invalid"
)

// UploadItemResult reports the outcome for one uploaded item.
type UploadItemResult struct {
	ID     uint   `json:"id"`
	Result string `json:"result"`
	Reason string `json:"reason,omitempty"`
}

// UploadSummaryResponse summarises a bulk upload.
type UploadSummaryResponse struct {
	Updated  int                `json:"updated"`
	NotFound int                `json:"not_found"`
	Invalid  int                `json:"invalid"`
	Items    []UploadItemResult `json:"items"`
}

// RecalculateScoresRequest optionally narrows recalculation to one user.
type RecalculateScoresRequest struct {
	UserID *uint `json:"user_id" validate:"omitempty,gt=0"`
}

// ScoreDrift reports a user whose stored score disagreed with the ledger.
type ScoreDrift struct {
	UserID   uint `json:"user_id"`
	Previous int  `json:"previous"`
	Ledger   int  `json:"ledger"`
}

// RecalculateScoresResponse summarises a ledger reconciliation run.
type RecalculateScoresResponse struct {
	UsersChecked int          `json:"users_checked"`
	Drifted      []ScoreDrift `json:"drifted"`
}

// AdminActivityListRequest defines filters for retrieving activity logs.
type AdminActivityListRequest struct {
	Page       int
	PageSize   int
	ActorID    uint
	Action     string
	EntityType string
	EntityID   uint
}

// AdminActivityResponse serializes activity log entries.
type AdminActivityResponse struct {
	ID         uint                   `json:"id"`
	ActorID    uint                   `json:"actor_id"`
	ActorRole  string                 `json:"actor_role"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entity_type"`
	EntityID   *uint                  `json:"entity_id"`
	Metadata   map[string]interface{} `json:"metadata"`
	CreatedAt  time.Time              `json:"created_at"`
}

// AdminActivityListResponse wraps paginated activity logs.
type AdminActivityListResponse struct {
	Items      []AdminActivityResponse `json:"items"`
	Pagination PaginationMeta          `json:"pagination"`
}

// AIEvaluationResponse reports the stored result of an AI run.
type AIEvaluationResponse struct {
	ProblemID   uint                 `json:"problem_id"`
	Performance models.AIPerformance `json:"performance"`
}

func metadataFromJSON(data datatypes.JSONMap) map[string]interface{} {
	if data == nil {
		return map[string]interface{}{}
	}
	return map[string]interface{}(data)
}

// NewAdminActivityResponse converts a model into an activity DTO.
func NewAdminActivityResponse(entry models.ActivityLog) AdminActivityResponse {
	return AdminActivityResponse{
		ID:         entry.ID,
		ActorID:    entry.ActorID,
		ActorRole:  entry.ActorRole,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Metadata:   metadataFromJSON(entry.Metadata),
		CreatedAt:  entry.CreatedAt,
	}
}

// ExportResult is the selected problem projection plus the suggested download name.
type ExportResult struct {
	FileName string                   `json:"file_name"`
	Count    int                      `json:"count"`
	Items    []map[string]interface{} `json:"items"`
}
