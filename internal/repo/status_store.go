package repo

import (
	"context"

	"gorm.io/gorm"

	"mailcraft/internal/models"
)

type StatusStore struct{ db *gorm.DB }

func NewStatusStore(db *gorm.DB) *StatusStore { return &StatusStore{db: db} }

func (s *StatusStore) List(ctx context.Context) ([]models.TemplateStatus, error) {
	rows := []models.TemplateStatus{}
	if err := s.db.WithContext(ctx).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
