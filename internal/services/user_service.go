package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/justsurfingit/pipeline-board/internal/models"
	"github.com/justsurfingit/pipeline-board/internal/pipeline"
)

// UserService resolves the session identity and its board preferences.
type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

// Resolve returns the user for email, creating it on first sight.
func (s *UserService) Resolve(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrUserRequired
	}

	user := models.User{Email: email}
	err := s.DB.WithContext(ctx).
		Where(models.User{Email: email}).
		Attrs(models.User{BoardSortMode: string(pipeline.SortManual)}).
		FirstOrCreate(&user).Error
	if err != nil {
		return nil, fmt.Errorf("resolve user %s: %w", email, err)
	}
	return &user, nil
}

func (s *UserService) SetSortMode(ctx context.Context, userID uint, mode pipeline.SortMode) error {
	err := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("board_sort_mode", string(mode)).Error
	if err != nil {
		return fmt.Errorf("save sort mode for user %d: %w", userID, err)
	}
	return nil
}
