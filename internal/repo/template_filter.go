package repo

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"mailcraft/internal/models"
)

const (
	DefaultPageSize = 12
	MaxPageSize     = 50
)

// Допустимые sortBy → колонка.
var sortColumns = map[string]string{
	"updatedAt": "email_templates.updated_at",
	"createdAt": "email_templates.created_at",
	"name":      "email_templates.name",
	"price":     "email_templates.price",
}

// TemplateFilter — уже разобранный и типизированный запрос списка.
// Пустые значения означают «не задано».
type TemplateFilter struct {
	CallerID string

	Page  int
	Limit int

	Name       string
	Tag        string
	TagIDs     []uint
	CustomerID string
	StatusIDs  []int

	CreatedFrom *time.Time
	CreatedTo   *time.Time
	UpdatedFrom *time.Time
	UpdatedTo   *time.Time

	HasImages *bool

	SortBy  string
	SortDir string
}

// TemplateQuery — результат компиляции фильтра.
type TemplateQuery struct {
	Scope  func(*gorm.DB) *gorm.DB
	Order  string
	Page   int
	Limit  int
	Offset int
}

// CompileTemplateFilter собирает предикат, сортировку и страницу.
// Условие видимости (владелец или есть share) добавляется всегда и первым.
func CompileTemplateFilter(f TemplateFilter) TemplateQuery {
	page := f.Page
	if page < 1 {
		page = 1
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	statuses := f.StatusIDs
	if len(statuses) == 0 {
		statuses = []int{models.StatusActive}
	}

	col, ok := sortColumns[f.SortBy]
	if !ok {
		col = sortColumns["updatedAt"]
	}
	dir := "DESC"
	if strings.EqualFold(f.SortDir, "asc") {
		dir = "ASC"
	}

	caller := f.CallerID
	name := strings.ToLower(strings.TrimSpace(f.Name))
	tag := strings.ToLower(strings.TrimSpace(f.Tag))
	tagIDs := f.TagIDs
	customerID := strings.TrimSpace(f.CustomerID)

	scope := func(db *gorm.DB) *gorm.DB {
		q := db.Where(
			"(email_templates.owner_id = ? OR EXISTS (SELECT 1 FROM template_shares ts WHERE ts.template_id = email_templates.id AND ts.user_id = ?))",
			caller, caller,
		)
		q = q.Where("email_templates.status_id IN ?", statuses)

		if name != "" {
			q = q.Where("LOWER(email_templates.name) LIKE ? ESCAPE '!'", likeContains(name))
		}

		// tag (подстрока имени) и tags (точные id) объединяются через OR
		switch {
		case tag != "" && len(tagIDs) > 0:
			q = q.Where(
				"EXISTS (SELECT 1 FROM email_template_tags jt JOIN tags t ON t.id = jt.tag_id WHERE jt.email_template_id = email_templates.id AND (LOWER(t.name) LIKE ? ESCAPE '!' OR jt.tag_id IN ?))",
				likeContains(tag), tagIDs,
			)
		case tag != "":
			q = q.Where(
				"EXISTS (SELECT 1 FROM email_template_tags jt JOIN tags t ON t.id = jt.tag_id WHERE jt.email_template_id = email_templates.id AND LOWER(t.name) LIKE ? ESCAPE '!')",
				likeContains(tag),
			)
		case len(tagIDs) > 0:
			q = q.Where(
				"EXISTS (SELECT 1 FROM email_template_tags jt WHERE jt.email_template_id = email_templates.id AND jt.tag_id IN ?)",
				tagIDs,
			)
		}

		if customerID != "" {
			q = q.Where("email_templates.customer_id = ?", customerID)
		}
		if f.CreatedFrom != nil {
			q = q.Where("email_templates.created_at >= ?", f.CreatedFrom.UTC())
		}
		if f.CreatedTo != nil {
			q = q.Where("email_templates.created_at <= ?", f.CreatedTo.UTC())
		}
		if f.UpdatedFrom != nil {
			q = q.Where("email_templates.updated_at >= ?", f.UpdatedFrom.UTC())
		}
		if f.UpdatedTo != nil {
			q = q.Where("email_templates.updated_at <= ?", f.UpdatedTo.UTC())
		}
		if f.HasImages != nil {
			q = q.Where("email_templates.has_images = ?", *f.HasImages)
		}
		return q
	}

	return TemplateQuery{
		Scope: scope,
		// id — стабильный тай-брейк, чтобы страницы не «плыли»
		Order:  col + " " + dir + ", email_templates.id ASC",
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// TotalPages = ceil(total/limit).
func TotalPages(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// likeEscaper экранирует %, _ и сам '!'.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// likeContains — шаблон "содержит подстроку" для LIKE ... ESCAPE '!'.
func likeContains(s string) string { return "%" + likeEscaper.Replace(s) + "%" }
