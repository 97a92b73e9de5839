package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mailcraft/internal/models"
)

type TemplateStore struct{ db *gorm.DB }

func NewTemplateStore(db *gorm.DB) *TemplateStore { return &TemplateStore{db: db} }

// Get загружает шаблон со всеми связями, нужными карточке и проверке доступа.
func (s *TemplateStore) Get(ctx context.Context, id string) (*models.EmailTemplate, error) {
	var t models.EmailTemplate
	err := s.db.WithContext(ctx).
		Preload("Owner").
		Preload("Customer").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.name asc") }).
		Preload("Shares").
		Where("id = ?", id).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create вставляет шаблон и, если tagIDs != nil, сразу назначает теги, всё в одной транзакции.
func (s *TemplateStore) Create(ctx context.Context, t *models.EmailTemplate, tagIDs []uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// связи сохраняем сами, без upsert-ов gorm
		if err := tx.Omit(clause.Associations).Create(t).Error; err != nil {
			return err
		}
		if tagIDs == nil {
			return nil
		}
		return replaceTags(tx, t.ID, tagIDs)
	})
}

// Update применяет изменения колонок и (если tagIDs != nil) заменяет теги атомарно.
func (s *TemplateStore) Update(ctx context.Context, id string, fields map[string]any, tagIDs []uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if fields == nil {
			fields = map[string]any{}
		}
		fields["updated_at"] = time.Now().UTC()
		res := tx.Model(&models.EmailTemplate{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if tagIDs == nil {
			return nil
		}
		return replaceTags(tx, id, tagIDs)
	})
}

// replaceTags полностью заменяет набор тегов внутри транзакции tx:
// читатель видит либо старый набор, либо новый.
func replaceTags(tx *gorm.DB, templateID string, tagIDs []uint) error {
	if err := tx.Where("email_template_id = ?", templateID).Delete(&models.EmailTemplateTag{}).Error; err != nil {
		return fmt.Errorf("clear tags: %w", err)
	}
	ids := uniqueIDs(tagIDs)
	if len(ids) == 0 {
		return nil
	}
	var known int64
	if err := tx.Model(&models.Tag{}).Where("id IN ?", ids).Count(&known).Error; err != nil {
		return err
	}
	if int(known) != len(ids) {
		return ErrBadTagIDs
	}
	rows := make([]models.EmailTemplateTag, 0, len(ids))
	for _, tagID := range ids {
		rows = append(rows, models.EmailTemplateTag{EmailTemplateID: templateID, TagID: tagID})
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("insert tags: %w", err)
	}
	return nil
}

func uniqueIDs(in []uint) []uint {
	seen := make(map[uint]struct{}, len(in))
	out := make([]uint, 0, len(in))
	for _, id := range in {
		if _, ok := seen[id]; ok || id == 0 {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// SetStatus меняет только статус; повторная установка того же значения не ошибка.
func (s *TemplateStore) SetStatus(ctx context.Context, id string, status int) error {
	res := s.db.WithContext(ctx).Model(&models.EmailTemplate{}).
		Where("id = ?", id).
		Updates(map[string]any{"status_id": status, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetThumbnails сохраняет URL превью; nil-значение оставляет колонку как есть.
func (s *TemplateStore) SetThumbnails(ctx context.Context, id string, url200, url600 *string) error {
	fields := map[string]any{}
	if url200 != nil {
		fields["thumbnail_200_url"] = *url200
	}
	if url600 != nil {
		fields["thumbnail_600_url"] = *url600
	}
	if len(fields) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.EmailTemplate{}).Where("id = ?", id).Updates(fields).Error
}

// TemplatePage — страница результатов поиска.
type TemplatePage struct {
	Items      []models.EmailTemplate
	Page       int
	Limit      int
	Total      int64
	TotalPages int
}

// List выполняет скомпилированный фильтр: total без пагинации + страница
// с подгруженными автором и тегами (html/design в выдачу списка не берём).
func (s *TemplateStore) List(ctx context.Context, f TemplateFilter) (*TemplatePage, error) {
	q := CompileTemplateFilter(f)

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.EmailTemplate{}).Scopes(q.Scope).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count templates: %w", err)
	}

	items := []models.EmailTemplate{}
	if total > 0 {
		err := s.db.WithContext(ctx).
			Model(&models.EmailTemplate{}).
			Scopes(q.Scope).
			Omit("html", "design").
			Preload("Owner").
			Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.name asc") }).
			Order(q.Order).
			Offset(q.Offset).
			Limit(q.Limit).
			Find(&items).Error
		if err != nil {
			return nil, fmt.Errorf("list templates: %w", err)
		}
	}

	return &TemplatePage{
		Items:      items,
		Page:       q.Page,
		Limit:      q.Limit,
		Total:      total,
		TotalPages: TotalPages(total, q.Limit),
	}, nil
}

// UpsertShare создаёт или обновляет выдачу (уникальность по шаблону и получателю).
func (s *TemplateStore) UpsertShare(ctx context.Context, share *models.TemplateShare) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "template_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"permission", "updated_at"}),
		}).
		Create(share).Error
}

// DeleteShare удаляет выдачу; отсутствие записи не ошибка.
func (s *TemplateStore) DeleteShare(ctx context.Context, templateID, userID string) error {
	return s.db.WithContext(ctx).
		Where("template_id = ? AND user_id = ?", templateID, userID).
		Delete(&models.TemplateShare{}).Error
}
