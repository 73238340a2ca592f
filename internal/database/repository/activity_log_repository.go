package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Virtus92/Rising-BSM-Dev-sub006/internal/database/models"
)

// ActivityLogRepository persists audit events for user-facing session actions
type ActivityLogRepository interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
	FindByUserID(ctx context.Context, userID uint, limit int) ([]models.ActivityLog, error)
}

type activityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository creates a new activity log repository instance
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *activityLogRepository) FindByUserID(ctx context.Context, userID uint, limit int) ([]models.ActivityLog, error) {
	var entries []models.ActivityLog
	query := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
