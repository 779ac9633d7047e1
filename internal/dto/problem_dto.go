package dto

import (
	"time"

	"github.com/noah-isme/phybench-api/internal/models"
)

// ProblemVariableRequest describes a parameter range supplied with a new problem.
type ProblemVariableRequest struct {
	Name       string  `json:"name" validate:"required,max=64"`
	LowerBound float64 `json:"lower_bound"`
	UpperBound float64 `json:"upper_bound" validate:"gtefield=LowerBound"`
}

// AIResponseRequest is a model answer attached by the submitter or an uploader.
type AIResponseRequest struct {
	AIName         string   `json:"ai_name" validate:"required,max=128"`
	AISolution     string   `json:"ai_solution" validate:"omitempty,max=100000"`
	AIAnswer       string   `json:"ai_answer" validate:"omitempty,max=20000"`
	IsCorrect      bool     `json:"is_correct"`
	Comment        *string  `json:"comment" validate:"omitempty,max=5000"`
	AIScore        *float64 `json:"ai_score" validate:"omitempty,gte=0"`
	UnlistedAIName *string  `json:"unlisted_ai_name" validate:"omitempty,max=128"`
}

// ProblemCreateRequest is the payload of the submission wizard.
type ProblemCreateRequest struct {
	Title        string                   `json:"title" validate:"required,max=255"`
	Tag          string                   `json:"tag" validate:"required,oneof=mechanics electricity thermodynamics optics modern advanced other"`
	Description  string                   `json:"description" validate:"omitempty,max=20000"`
	Note         string                   `json:"note" validate:"omitempty,max=20000"`
	Source       *string                  `json:"source" validate:"omitempty,max=512"`
	OffererEmail *string                  `json:"offerer_email" validate:"omitempty,email"`
	Content      string                   `json:"content" validate:"required,max=100000"`
	Solution     string                   `json:"solution" validate:"required,max=100000"`
	Answer       string                   `json:"answer" validate:"required,max=20000"`
	Variables    []ProblemVariableRequest `json:"variables" validate:"omitempty,dive"`
	AIResponses  []AIResponseRequest      `json:"ai_responses" validate:"omitempty,dive"`
}

// ProblemListRequest selects a page of problems visible to the requester.
type ProblemListRequest struct {
	Page     int
	PageSize int
	Exam     bool
}

// AssignExaminersRequest replaces the examiner set of a problem.
type AssignExaminersRequest struct {
	ExaminerIDs []uint `json:"examiner_ids" validate:"dive,gt=0"`
}

// ProblemSummaryResponse is the list projection of a problem.
type ProblemSummaryResponse struct {
	ID        uint                 `json:"id"`
	Title     string               `json:"title"`
	Tag       models.ProblemTag    `json:"tag"`
	Status    models.ProblemStatus `json:"status"`
	Remark    *string              `json:"remark"`
	Score     *int                 `json:"score"`
	CreatedAt time.Time            `json:"created_at"`
}

// ProblemListResponse wraps a paginated problem list.
type ProblemListResponse struct {
	Items      []ProblemSummaryResponse `json:"items"`
	Pagination PaginationMeta           `json:"pagination"`
}

// UserLite summarizes a user without exposing the full profile.
type UserLite struct {
	ID       uint   `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Realname string `json:"realname"`
}

// AttachmentResponse serializes a stored problem attachment.
type AttachmentResponse struct {
	ID        uint      `json:"id"`
	ProblemID uint      `json:"problem_id"`
	FileName  string    `json:"file_name"`
	URL       string    `json:"url"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// ProblemResponse is the detailed view of a problem.
type ProblemResponse struct {
	ID                 uint                     `json:"id"`
	UserID             uint                     `json:"user_id"`
	OffererID          *uint                    `json:"offerer_id"`
	Title              string                   `json:"title"`
	Description        string                   `json:"description"`
	Note               string                   `json:"note"`
	Source             *string                  `json:"source"`
	Content            string                   `json:"content"`
	Solution           string                   `json:"solution"`
	Answer             string                   `json:"answer"`
	Tag                models.ProblemTag        `json:"tag"`
	Status             models.ProblemStatus     `json:"status"`
	TranslatedStatus   *models.ProblemStatus    `json:"translated_status"`
	TranslatedContent  *string                  `json:"translated_content"`
	TranslatedSolution *string                  `json:"translated_solution"`
	Score              *int                     `json:"score"`
	Remark             *string                  `json:"remark"`
	Nominated          *string                  `json:"nominated"`
	User               *UserLite                `json:"user,omitempty"`
	Offerer            *UserLite                `json:"offerer,omitempty"`
	Examiners          []UserLite               `json:"examiners"`
	Variables          []models.ProblemVariable `json:"variables"`
	AIPerformances     []models.AIPerformance   `json:"ai_performances"`
	Attachments        []AttachmentResponse     `json:"attachments"`
	CreatedAt          time.Time                `json:"created_at"`
	UpdatedAt          time.Time                `json:"updated_at"`
}

// NewUserLite converts a user model into its summary form.
func NewUserLite(user models.User) UserLite {
	return UserLite{
		ID:       user.ID,
		Email:    user.Email,
		Name:     user.Name,
		Username: user.Username,
		Realname: user.Realname,
	}
}

// NewProblemSummaryResponse converts a problem into its list projection.
func NewProblemSummaryResponse(problem models.Problem) ProblemSummaryResponse {
	return ProblemSummaryResponse{
		ID:        problem.ID,
		Title:     problem.Title,
		Tag:       problem.Tag,
		Status:    problem.Status,
		Remark:    problem.Remark,
		Score:     problem.Score,
		CreatedAt: problem.CreatedAt,
	}
}

// NewAttachmentResponse converts an attachment model into a DTO.
func NewAttachmentResponse(attachment models.ProblemAttachment) AttachmentResponse {
	return AttachmentResponse{
		ID:        attachment.ID,
		ProblemID: attachment.ProblemID,
		FileName:  attachment.FileName,
		URL:       attachment.URL,
		MimeType:  attachment.MimeType,
		SizeBytes: attachment.SizeBytes,
		CreatedAt: attachment.CreatedAt,
	}
}

// NewProblemResponse converts a problem model, with whatever relations were loaded, into a DTO.
func NewProblemResponse(problem models.Problem) ProblemResponse {
	response := ProblemResponse{
		ID:                 problem.ID,
		UserID:             problem.UserID,
		OffererID:          problem.OffererID,
		Title:              problem.Title,
		Description:        problem.Description,
		Note:               problem.Note,
		Source:             problem.Source,
		Content:            problem.Content,
		Solution:           problem.Solution,
		Answer:             problem.Answer,
		Tag:                problem.Tag,
		Status:             problem.Status,
		TranslatedStatus:   problem.TranslatedStatus,
		TranslatedContent:  problem.TranslatedContent,
		TranslatedSolution: problem.TranslatedSolution,
		Score:              problem.Score,
		Remark:             problem.Remark,
		Nominated:          problem.Nominated,
		Examiners:          make([]UserLite, 0, len(problem.Examiners)),
		Variables:          problem.Variables,
		AIPerformances:     problem.AIPerformances,
		Attachments:        make([]AttachmentResponse, 0, len(problem.Attachments)),
		CreatedAt:          problem.CreatedAt,
		UpdatedAt:          problem.UpdatedAt,
	}

	if problem.User.ID != 0 {
		user := NewUserLite(problem.User)
		response.User = &user
	}
	if problem.Offerer != nil && problem.Offerer.ID != 0 {
		offerer := NewUserLite(*problem.Offerer)
		response.Offerer = &offerer
	}
	for _, examiner := range problem.Examiners {
		response.Examiners = append(response.Examiners, NewUserLite(examiner))
	}
	for _, attachment := range problem.Attachments {
		response.Attachments = append(response.Attachments, NewAttachmentResponse(attachment))
	}
	if response.Variables == nil {
		response.Variables = []models.ProblemVariable{}
	}
	if response.AIPerformances == nil {
		response.AIPerformances = []models.AIPerformance{}
	}

	return response
}
