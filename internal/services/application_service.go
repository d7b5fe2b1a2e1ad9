package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/justsurfingit/pipeline-board/internal/dtos"
	"github.com/justsurfingit/pipeline-board/internal/models"
	"github.com/justsurfingit/pipeline-board/internal/pipeline"
)

type ApplicationService struct {
	DB *gorm.DB
}

func NewApplicationService(db *gorm.DB) *ApplicationService {
	return &ApplicationService{
		DB: db,
	}
}

// CreateApplication stores a new application at the bottom of its column.
func (s *ApplicationService) CreateApplication(ctx context.Context, userID uint, req *dtos.ApplicationCreationRequest) (*models.Application, error) {
	status := pipeline.StatusToApply
	if req.Status != "" {
		parsed, err := pipeline.ParseStatus(req.Status)
		if err != nil {
			return nil, err
		}
		status = parsed
	}

	app := &models.Application{
		UserID:      userID,
		Status:      string(status),
		Title:       req.Title,
		Description: req.Description,
		JobLink:     req.JobLink,
		ResumeLink:  req.ResumeLink,
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// it creates an entry if it doesn't already exist
		var company models.Company
		if err := tx.Where(models.Company{Name: req.CompanyName}).FirstOrCreate(&company).Error; err != nil {
			return err
		}
		app.CompanyID = company.ID
		app.Company = company

		var count int64
		err := tx.Model(&models.Application{}).
			Where("user_id = ? AND status = ?", userID, app.Status).
			Count(&count).Error
		if err != nil {
			return err
		}
		app.Position = int(count)

		return tx.Omit("Company").Create(app).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}
	return app, nil
}

// DeleteApplication soft-deletes an application and closes the gap it
// leaves in its column.
func (s *ApplicationService) DeleteApplication(ctx context.Context, userID uint, id string) (*models.Application, error) {
	var app models.Application
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ? AND user_id = ?", id, userID).First(&app).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrApplicationNotFound
		}
		if err != nil {
			return err
		}
		if err := tx.Delete(&app).Error; err != nil {
			return err
		}

		var rest []models.Application
		err = tx.Where("user_id = ? AND status = ?", userID, app.Status).
			Order("position, created_at, id").
			Find(&rest).Error
		if err != nil {
			return err
		}
		for i, r := range rest {
			if r.Position == i {
				continue
			}
			if err := tx.Model(&models.Application{}).Where("id = ?", r.ID).Update("position", i).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("delete application %s: %w", id, err)
	}
	return &app, nil
}

// Gateway returns the sync gateway scoped to one user's board.
func (s *ApplicationService) Gateway(userID uint) *SyncGateway {
	return &SyncGateway{DB: s.DB, UserID: userID}
}

func (s *ApplicationService) GetApplication(ctx context.Context, userID uint, id string) (*models.Application, error) {
	var app models.Application
	err := s.DB.WithContext(ctx).Preload("Company").
		Where("id = ? AND user_id = ?", id, userID).
		First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrApplicationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get application %s: %w", id, err)
	}
	return &app, nil
}
