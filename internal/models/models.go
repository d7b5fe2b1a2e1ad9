package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/justsurfingit/pipeline-board/internal/pipeline"
)

type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Email string `gorm:"uniqueIndex;not null" json:"email"`
	// Board preference, restored when the board is mounted
	BoardSortMode string `gorm:"default:'manual'" json:"board_sort_mode"`
}

type Company struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name string `gorm:"uniqueIndex;not null" json:"company_name"`

	// 'omitempty' prevents infinite loops when fetching an Application -> Company -> Applications -> ...
	Applications []Application `json:"applications,omitempty"`
}

// Application is the persisted pipeline record.
type Application struct {
	ID        string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID    uint    `gorm:"index:idx_board_column,priority:1;not null" json:"user_id"`
	CompanyID uint    `json:"company_id"`
	Company   Company `json:"company"`

	Status   string `gorm:"index:idx_board_column,priority:2;not null;default:'to_apply'" json:"status"`
	Position int    `gorm:"index:idx_board_column,priority:3;not null;default:0" json:"position"`

	ApplicationDate *time.Time `json:"application_date"`
	LastContactDate *time.Time `json:"last_contact_date"`

	Title       string `gorm:"not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	JobLink     string `json:"job_link"`
	ResumeLink  string `json:"resume_link"`
}

func (a *Application) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// ToRecord converts to the board's view. Unknown stored statuses land in
// to_apply so that no record is ever column-less.
func (a Application) ToRecord() pipeline.Record {
	status := pipeline.Status(a.Status)
	if !status.Valid() {
		status = pipeline.StatusToApply
	}
	return pipeline.Record{
		ID:              a.ID,
		Status:          status,
		Position:        a.Position,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
		ApplicationDate: a.ApplicationDate,
		LastContactDate: a.LastContactDate,
		Company:         a.Company.Name,
		Title:           a.Title,
	}
}

// ApplicationEvent is one audit log entry.
type ApplicationEvent struct {
	ID            string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	ApplicationID string    `gorm:"index;not null" json:"application_id"`
	EventType     string    `json:"event_type"`
	Details       string    `gorm:"type:text" json:"details"`
}

func (e *ApplicationEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

const EventStatusChange = "STATUS_CHANGE"
