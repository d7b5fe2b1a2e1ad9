package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/justsurfingit/pipeline-board/internal/models"
)

// EventService is the audit log of status transitions.
type EventService struct {
	DB *gorm.DB
}

func NewEventService(db *gorm.DB) *EventService {
	return &EventService{DB: db}
}

func (s *EventService) Record(ctx context.Context, applicationID, description string) error {
	event := models.ApplicationEvent{
		ApplicationID: applicationID,
		EventType:     models.EventStatusChange,
		Details:       description,
	}
	if err := s.DB.WithContext(ctx).Create(&event).Error; err != nil {
		return fmt.Errorf("record event for %s: %w", applicationID, err)
	}
	return nil
}

// History lists the events of one application, oldest first.
func (s *EventService) History(ctx context.Context, applicationID string) ([]models.ApplicationEvent, error) {
	var events []models.ApplicationEvent
	err := s.DB.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("created_at, id").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("history of %s: %w", applicationID, err)
	}
	return events, nil
}
