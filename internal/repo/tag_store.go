package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"mailcraft/internal/models"
)

type TagStore struct{ db *gorm.DB }

func NewTagStore(db *gorm.DB) *TagStore { return &TagStore{db: db} }

// List — теги по подстроке имени (без учёта регистра), по алфавиту.
func (s *TagStore) List(ctx context.Context, q string, limit int) ([]models.Tag, error) {
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	tags := []models.Tag{}
	tx := s.db.WithContext(ctx).Order("name asc").Limit(limit)
	if q = strings.ToLower(strings.TrimSpace(q)); q != "" {
		tx = tx.Where("LOWER(name) LIKE ? ESCAPE '!'", likeContains(q))
	}
	if err := tx.Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

// Create добавляет тег; имя уникально без учёта регистра.
func (s *TagStore) Create(ctx context.Context, name string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Tag{}).Where("LOWER(name) = ?", strings.ToLower(name)).Count(&n).Error; err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, ErrDuplicate
	}
	t := models.Tag{Name: name}
	if err := s.db.WithContext(ctx).Create(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return &t, nil
}
