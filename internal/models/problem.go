package models

import "time"

// ProblemTag classifies a problem by physics domain.
type ProblemTag string

// Known problem tags.
const (
	TagMechanics      ProblemTag = "mechanics"
	TagElectricity    ProblemTag = "electricity"
	TagThermodynamics ProblemTag = "thermodynamics"
	TagOptics         ProblemTag = "optics"
	TagModern         ProblemTag = "modern"
	TagAdvanced       ProblemTag = "advanced"
	TagOther          ProblemTag = "other"
)

// ProblemTags lists every tag in display order.
var ProblemTags = []ProblemTag{TagMechanics, TagElectricity, TagThermodynamics, TagOptics, TagModern, TagAdvanced, TagOther}

// ProblemStatus is the review state of a problem or of its translation.
type ProblemStatus string

// Review states shared by Problem.Status and Problem.TranslatedStatus.
const (
	StatusPending  ProblemStatus = "pending"
	StatusReturned ProblemStatus = "returned"
	StatusApproved ProblemStatus = "approved"
	StatusRejected ProblemStatus = "rejected"
	StatusArchived ProblemStatus = "archived"
)

// IsValid reports whether the tag is one of the known values.
func (t ProblemTag) IsValid() bool {
	for _, tag := range ProblemTags {
		if tag == t {
			return true
		}
	}
	return false
}

// IsValid reports whether the status is one of the known review states.
func (s ProblemStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusReturned, StatusApproved, StatusRejected, StatusArchived:
		return true
	}
	return false
}

// Problem is a physics problem submitted for review.
type Problem struct {
	ID                 uint                `gorm:"primaryKey" json:"id"`
	UserID             uint                `gorm:"not null;index" json:"user_id"`
	OffererID          *uint               `gorm:"index" json:"offerer_id"`
	Title              string              `gorm:"size:255;not null" json:"title"`
	Description        string              `gorm:"type:text" json:"description"`
	Note               string              `gorm:"type:text" json:"note"`
	Source             *string             `gorm:"size:512" json:"source"`
	Content            string              `gorm:"type:text;not null" json:"content"`
	Solution           string              `gorm:"type:text;not null" json:"solution"`
	Answer             string              `gorm:"type:text;not null" json:"answer"`
	Tag                ProblemTag          `gorm:"size:32;not null;index" json:"tag"`
	Status             ProblemStatus       `gorm:"size:32;not null;index;default:pending" json:"status"`
	TranslatedStatus   *ProblemStatus      `gorm:"size:32;index" json:"translated_status"`
	TranslatedContent  *string             `gorm:"type:text" json:"translated_content"`
	TranslatedSolution *string             `gorm:"type:text" json:"translated_solution"`
	Score              *int                `json:"score"`
	Remark             *string             `gorm:"type:text" json:"remark"`
	Nominated          *string             `gorm:"size:64;index" json:"nominated"`
	CreatedAt          time.Time           `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
	User               User                `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"user"`
	Offerer            *User               `gorm:"foreignKey:OffererID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"offerer,omitempty"`
	Examiners          []User              `gorm:"many2many:problem_examiners" json:"examiners,omitempty"`
	Variables          []ProblemVariable   `json:"variables,omitempty"`
	AIPerformances     []AIPerformance     `json:"ai_performances,omitempty"`
	Attachments        []ProblemAttachment `json:"attachments,omitempty"`
}

// HasDistinctOfferer reports whether the problem was sourced by someone other than its submitter.
func (p Problem) HasDistinctOfferer() bool {
	return p.OffererID != nil && *p.OffererID != p.UserID
}

// HasExaminer reports whether the user is part of the problem's examiner set.
func (p Problem) HasExaminer(userID uint) bool {
	for _, examiner := range p.Examiners {
		if examiner.ID == userID {
			return true
		}
	}
	return false
}

// ProblemVariable declares the admissible range of a parameter in the problem statement.
type ProblemVariable struct {
	ID         uint    `gorm:"primaryKey" json:"id"`
	ProblemID  uint    `gorm:"not null;index" json:"problem_id"`
	Name       string  `gorm:"size:64;not null" json:"name"`
	LowerBound float64 `json:"lower_bound"`
	UpperBound float64 `json:"upper_bound"`
}

// ProblemAttachment is a figure or document stored alongside a problem.
type ProblemAttachment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ProblemID  uint      `gorm:"not null;index" json:"problem_id"`
	UploaderID uint      `gorm:"not null" json:"uploader_id"`
	FileName   string    `gorm:"size:255;not null" json:"file_name"`
	URL        string    `gorm:"size:512;not null" json:"url"`
	MimeType   string    `gorm:"size:128" json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	CreatedAt  time.Time `json:"created_at"`
}
