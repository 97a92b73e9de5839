// Package templates — жизненный цикл шаблонов писем: создание, чтение,
// частичное обновление, мягкое удаление, выдача доступа и превью.
package templates

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"mailcraft/internal/access"
	"mailcraft/internal/logs"
	"mailcraft/internal/models"
	"mailcraft/internal/repo"
	"mailcraft/internal/thumbnail"
)

type Store interface {
	Get(ctx context.Context, id string) (*models.EmailTemplate, error)
	Create(ctx context.Context, t *models.EmailTemplate, tagIDs []uint) error
	Update(ctx context.Context, id string, fields map[string]any, tagIDs []uint) error
	SetStatus(ctx context.Context, id string, status int) error
	SetThumbnails(ctx context.Context, id string, url200, url600 *string) error
	List(ctx context.Context, f repo.TemplateFilter) (*repo.TemplatePage, error)
	UpsertShare(ctx context.Context, share *models.TemplateShare) error
	DeleteShare(ctx context.Context, templateID, userID string) error
}

type TagStore interface {
	List(ctx context.Context, q string, limit int) ([]models.Tag, error)
	Create(ctx context.Context, name string) (*models.Tag, error)
}

type StatusStore interface {
	List(ctx context.Context) ([]models.TemplateStatus, error)
}

type Thumbnails interface {
	GeneratePreview(ctx context.Context, html, key string) (*thumbnail.Preview, error)
	Finalize(ctx context.Context, draftKey, templateID string) (*thumbnail.Final, error)
}

type Service struct {
	store    Store
	tags     TagStore
	statuses StatusStore
	thumbs   Thumbnails
	log      *logrus.Entry
}

func NewService(store Store, tags TagStore, statuses StatusStore, thumbs Thumbnails) *Service {
	return &Service{
		store:    store,
		tags:     tags,
		statuses: statuses,
		thumbs:   thumbs,
		log:      logs.For("templates"),
	}
}

// load читает шаблон и проверяет уровень. Отсутствие и нехватка прав
// возвращают один и тот же ErrNotFound.
func (s *Service) load(ctx context.Context, callerID, id string, minimum access.Level) (*models.EmailTemplate, error) {
	t, err := s.store.Get(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	if err := access.Require(callerID, t, minimum); err != nil {
		return nil, ErrNotFound
	}
	return t, nil
}

func (s *Service) Create(ctx context.Context, callerID string, in CreateInput) (*models.EmailTemplate, error) {
	t, err := in.model(callerID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, t, in.TagIDs); err != nil {
		if errors.Is(err, repo.ErrBadTagIDs) {
			return nil, invalid("tagIds", "unknown tag id")
		}
		return nil, fmt.Errorf("create template: %w", err)
	}
	s.log.WithFields(logrus.Fields{"id": t.ID, "owner": callerID}).Info("template created")

	if in.DraftKey != "" {
		if err := s.promote(ctx, in.DraftKey, t.ID); err != nil {
			return nil, err
		}
	}
	return s.reload(ctx, t.ID)
}

func (s *Service) FindOne(ctx context.Context, callerID, id string) (*models.EmailTemplate, error) {
	return s.load(ctx, callerID, id, access.View)
}

func (s *Service) Update(ctx context.Context, callerID, id string, p Patch) (*models.EmailTemplate, error) {
	t, err := s.load(ctx, callerID, id, access.Edit)
	if err != nil {
		return nil, err
	}
	// перевод в disabled и обратно равносилен удалению и восстановлению
	if p.StatusID.Set && !p.StatusID.Null && p.StatusID.Value != t.StatusID &&
		(p.StatusID.Value == models.StatusDisabled || t.StatusID == models.StatusDisabled) {
		if err := access.Require(callerID, t, access.Owner); err != nil {
			return nil, ErrNotFound
		}
	}
	cols, tagIDs, err := p.columns()
	if err != nil {
		return nil, err
	}
	if thumbnail.IsTemplateDraftKey(p.DraftKey) && p.DraftKey != thumbnail.TemplateDraftKey(id) {
		return nil, invalid("draftKey", "reserved key")
	}
	if err := s.store.Update(ctx, id, cols, tagIDs); err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return nil, ErrNotFound
		case errors.Is(err, repo.ErrBadTagIDs):
			return nil, invalid("tagIds", "unknown tag id")
		}
		return nil, fmt.Errorf("update template: %w", err)
	}
	if p.DraftKey != "" {
		if err := s.promote(ctx, p.DraftKey, id); err != nil {
			return nil, err
		}
	}
	return s.reload(ctx, id)
}

// SoftDelete доступен только владельцу; повторный вызов не ошибка.
func (s *Service) SoftDelete(ctx context.Context, callerID, id string) error {
	t, err := s.load(ctx, callerID, id, access.Owner)
	if err != nil {
		return err
	}
	if t.StatusID == models.StatusDisabled {
		return nil
	}
	if err := s.store.SetStatus(ctx, id, models.StatusDisabled); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("disable template: %w", err)
	}
	s.log.WithFields(logrus.Fields{"id": id, "by": callerID}).Info("template disabled")
	return nil
}

func (s *Service) List(ctx context.Context, callerID string, f repo.TemplateFilter) (*repo.TemplatePage, error) {
	f.CallerID = callerID
	page, err := s.store.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return page, nil
}

// PreviewInput: либо draftKey (новый шаблон), либо templateId (редактирование).
// Для templateId черновик лежит под thumbnail.TemplateDraftKey(id).
type PreviewInput struct {
	HTML       string `json:"html"`
	DraftKey   string `json:"draftKey"`
	TemplateID string `json:"templateId"`
}

func (s *Service) GeneratePreview(ctx context.Context, callerID string, in PreviewInput) (*thumbnail.Preview, error) {
	key := strings.TrimSpace(in.DraftKey)
	html := in.HTML
	if id := strings.TrimSpace(in.TemplateID); id != "" {
		t, err := s.load(ctx, callerID, id, access.Edit)
		if err != nil {
			return nil, err
		}
		key = thumbnail.TemplateDraftKey(t.ID)
		if strings.TrimSpace(html) == "" {
			html = t.HTML
		}
	}

	v := &ValidationError{}
	if key == "" {
		v.add("draftKey", "draftKey or templateId is required")
	} else if !thumbnail.ValidKey(key) {
		v.add("draftKey", "invalid key")
	} else if strings.TrimSpace(in.TemplateID) == "" && thumbnail.IsTemplateDraftKey(key) {
		v.add("draftKey", "reserved key")
	}
	if strings.TrimSpace(html) == "" {
		v.add("html", "is required")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	res, err := s.thumbs.GeneratePreview(ctx, html, key)
	if errors.Is(err, thumbnail.ErrBadKey) {
		return nil, invalid("draftKey", "invalid key")
	}
	return res, err
}

// promote закрепляет черновые превью за шаблоном и пишет URL в запись.
func (s *Service) promote(ctx context.Context, draftKey, id string) error {
	final, err := s.thumbs.Finalize(ctx, draftKey, id)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"id": id, "draftKey": draftKey}).Warn("finalize thumbnails failed")
		return fmt.Errorf("finalize thumbnails: %w", err)
	}
	if err := s.store.SetThumbnails(ctx, id, final.URL200, final.URL600); err != nil {
		return fmt.Errorf("save thumbnails: %w", err)
	}
	return nil
}

func (s *Service) reload(ctx context.Context, id string) (*models.EmailTemplate, error) {
	t, err := s.store.Get(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	return t, err
}

// Share выдаёт или меняет доступ пользователю; управлять выдачами может только владелец.
func (s *Service) Share(ctx context.Context, callerID, id, userID, permission string) (*models.TemplateShare, error) {
	t, err := s.load(ctx, callerID, id, access.Owner)
	if err != nil {
		return nil, err
	}
	userID = strings.TrimSpace(userID)
	v := &ValidationError{}
	if userID == "" {
		v.add("userId", "is required")
	} else if userID == t.OwnerID {
		v.add("userId", "owner already has full access")
	}
	lvl := access.ParseLevel(permission)
	if lvl == access.None {
		v.add("permission", "must be one of VIEW, EDIT, OWNER")
	}
	if err := v.err(); err != nil {
		return nil, err
	}
	share := &models.TemplateShare{TemplateID: t.ID, UserID: userID, Permission: lvl.String()}
	if err := s.store.UpsertShare(ctx, share); err != nil {
		return nil, fmt.Errorf("share template: %w", err)
	}
	return share, nil
}

func (s *Service) Unshare(ctx context.Context, callerID, id, userID string) error {
	if _, err := s.load(ctx, callerID, id, access.Owner); err != nil {
		return err
	}
	if err := s.store.DeleteShare(ctx, id, userID); err != nil {
		return fmt.Errorf("unshare template: %w", err)
	}
	return nil
}

func (s *Service) ListTags(ctx context.Context, q string) ([]models.Tag, error) {
	return s.tags.List(ctx, q, 0)
}

func (s *Service) CreateTag(ctx context.Context, name string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return nil, invalid("name", "is required")
	case utf8.RuneCountInString(name) > 100:
		return nil, invalid("name", "must be at most 100 characters")
	}
	t, err := s.tags.Create(ctx, name)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil, ErrConflict
	}
	return t, err
}

func (s *Service) ListStatuses(ctx context.Context) ([]models.TemplateStatus, error) {
	return s.statuses.List(ctx)
}
