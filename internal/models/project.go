// internal/models/project.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProjectStatus string

const (
	ProjectDraft      ProjectStatus = "DRAFT"
	ProjectOpen       ProjectStatus = "OPEN"
	ProjectInProgress ProjectStatus = "IN_PROGRESS"
	ProjectInReview   ProjectStatus = "IN_REVIEW"
	ProjectCompleted  ProjectStatus = "COMPLETED"
	ProjectCancelled  ProjectStatus = "CANCELLED"
	ProjectPaused     ProjectStatus = "PAUSED"
)

// ActiveProjectStatuses are the states in which work is still expected.
var ActiveProjectStatuses = []ProjectStatus{ProjectOpen, ProjectInProgress, ProjectInReview}

type BudgetType string

const (
	BudgetFixed  BudgetType = "FIXED"
	BudgetHourly BudgetType = "HOURLY"
)

type Project struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID     uuid.UUID  `gorm:"type:uuid;index;not null" json:"client_id"`
	FreelancerID *uuid.UUID `gorm:"type:uuid;index" json:"freelancer_id"`

	Title       string                      `gorm:"type:varchar(200);not null" json:"title"`
	Slug        string                      `gorm:"type:varchar(220);index" json:"slug"`
	Description string                      `gorm:"type:text" json:"description"`
	Category    string                      `gorm:"type:varchar(80);index" json:"category"`
	Skills      datatypes.JSONSlice[string] `json:"skills"`

	Status       ProjectStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	BudgetType   BudgetType    `gorm:"type:varchar(10);not null" json:"budget_type"`
	BudgetAmount int64         `gorm:"not null" json:"budget_amount"`
	Currency     string        `gorm:"type:varchar(3);not null" json:"currency"`
	Deadline     *time.Time    `json:"deadline"`

	ViewCount      int64 `gorm:"not null;default:0" json:"view_count"`
	ApplicantCount int64 `gorm:"not null;default:0" json:"applicant_count"`

	TotalPaid   int64      `gorm:"not null;default:0" json:"total_paid"`
	CompletedAt *time.Time `json:"completed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Client     *User `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Freelancer *User `gorm:"foreignKey:FreelancerID" json:"freelancer,omitempty"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}

// IsParticipant reports whether userID is the owner or the assigned freelancer.
func (p *Project) IsParticipant(userID uuid.UUID) bool {
	if p.ClientID == userID {
		return true
	}
	return p.FreelancerID != nil && *p.FreelancerID == userID
}
