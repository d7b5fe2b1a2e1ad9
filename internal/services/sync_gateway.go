package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/justsurfingit/pipeline-board/internal/models"
	"github.com/justsurfingit/pipeline-board/internal/pipeline"
)

// SyncGateway persists board changes for one user.
type SyncGateway struct {
	DB     *gorm.DB
	UserID uint
}

func (g *SyncGateway) UpdateRecord(ctx context.Context, id string, patch pipeline.Patch) error {
	cols := patchColumns(patch)
	if len(cols) == 0 {
		return nil
	}

	res := g.DB.WithContext(ctx).Model(&models.Application{}).
		Where("id = ? AND user_id = ?", id, g.UserID).
		Updates(cols)
	if res.Error != nil {
		return fmt.Errorf("update application %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update application %s: %w", id, ErrApplicationNotFound)
	}
	return nil
}

// BatchUpdatePositions writes every update in one transaction. A single
// missing row fails the whole batch.
func (g *SyncGateway) BatchUpdatePositions(ctx context.Context, updates []pipeline.PositionUpdate) error {
	return g.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			res := tx.Model(&models.Application{}).
				Where("id = ? AND user_id = ?", u.ID, g.UserID).
				Updates(map[string]any{"position": u.Position, "updated_at": u.UpdatedAt})
			if res.Error != nil {
				return fmt.Errorf("update position of %s: %w", u.ID, res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("update position of %s: %w", u.ID, ErrApplicationNotFound)
			}
		}
		return nil
	})
}

func (g *SyncGateway) LoadAll(ctx context.Context) ([]pipeline.Record, error) {
	var apps []models.Application
	err := g.DB.WithContext(ctx).
		Preload("Company").
		Where("user_id = ?", g.UserID).
		Order("status, position, created_at, id").
		Find(&apps).Error
	if err != nil {
		return nil, fmt.Errorf("load applications of user %d: %w", g.UserID, err)
	}

	records := make([]pipeline.Record, len(apps))
	for i, a := range apps {
		records[i] = a.ToRecord()
	}
	return records, nil
}

func patchColumns(p pipeline.Patch) map[string]any {
	cols := map[string]any{}
	if p.Status != nil {
		cols["status"] = string(*p.Status)
	}
	if p.Position != nil {
		cols["position"] = *p.Position
	}
	if p.UpdatedAt != nil {
		cols["updated_at"] = *p.UpdatedAt
	}
	if p.ApplicationDate != nil {
		cols["application_date"] = *p.ApplicationDate
	}
	if p.LastContactDate != nil {
		cols["last_contact_date"] = *p.LastContactDate
	}
	return cols
}
