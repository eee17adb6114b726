package postgres

import (
	"context"

	"github.com/UnifiedAI-ONeID/verbatim/internal/models"
	"gorm.io/gorm"
)

type ActionRepository interface {
	Insert(ctx context.Context, inv *models.ActionInvocation) error
	ListBySession(ctx context.Context, userID, sessionID string, limit int) ([]models.ActionInvocation, error)
}

type actionRepo struct {
	db *gorm.DB
}

func NewActionRepo(db *gorm.DB) ActionRepository {
	return &actionRepo{db: db}
}

func (r *actionRepo) Insert(ctx context.Context, inv *models.ActionInvocation) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *actionRepo) ListBySession(ctx context.Context, userID, sessionID string, limit int) ([]models.ActionInvocation, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []models.ActionInvocation
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND session_id = ?", userID, sessionID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
