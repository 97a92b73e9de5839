package templates

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"mailcraft/internal/models"
	"mailcraft/internal/thumbnail"
)

// Optional различает три состояния поля PATCH: нет в теле, null, значение.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func Some[T any](v T) Optional[T] { return Optional[T]{Set: true, Value: v} }

func Null[T any]() Optional[T] { return Optional[T]{Set: true, Null: true} }

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		var zero T
		o.Null, o.Value = true, zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(b, &o.Value)
}

// Patch — частичное обновление шаблона.
type Patch struct {
	Name        Optional[string]          `json:"name"`
	Slug        Optional[string]          `json:"slug"`
	Description Optional[string]          `json:"description"`
	HTML        Optional[string]          `json:"html"`
	Design      Optional[json.RawMessage] `json:"design"`
	HasImages   Optional[bool]            `json:"hasImages"`
	Price       Optional[decimal.Decimal] `json:"price"`
	Currency    Optional[string]          `json:"currency"`
	CustomerID  Optional[string]          `json:"customerId"`
	StatusID    Optional[int]             `json:"statusId"`
	TagIDs      Optional[[]uint]          `json:"tagIds"`

	// DraftKey — ключ черновых превью, которые надо закрепить за шаблоном.
	DraftKey string `json:"draftKey,omitempty"`
}

// columns переводит патч в колонки для UPDATE. tagIDs != nil, если теги
// надо заменить (null и [] означают «снять все»).
func (p Patch) columns() (map[string]any, []uint, error) {
	v := &ValidationError{}
	cols := map[string]any{}

	if p.Name.Set {
		if name, ok := validName(p.Name, v); ok {
			cols["name"] = name
		}
	}
	if p.Slug.Set {
		cols["slug"] = optionalText(p.Slug, "slug", 255, v)
	}
	if p.Description.Set {
		cols["description"] = optionalText(p.Description, "description", 0, v)
	}
	if p.HTML.Set {
		cols["html"] = p.HTML.Value
	}
	if p.Design.Set {
		if p.Design.Null {
			cols["design"] = nil
		} else if d, ok := validDesign(p.Design.Value, v); ok {
			cols["design"] = d
		}
	}
	if p.HasImages.Set {
		if p.HasImages.Null {
			v.add("hasImages", "must not be null")
		} else {
			cols["has_images"] = p.HasImages.Value
		}
	}
	if p.Price.Set {
		if p.Price.Null {
			v.add("price", "must not be null")
		} else if validPrice(p.Price.Value, v) {
			cols["price"] = p.Price.Value
		}
	}
	if p.Currency.Set {
		if p.Currency.Null {
			v.add("currency", "must not be null")
		} else if c, ok := validCurrency(p.Currency.Value, v); ok {
			cols["currency"] = c
		}
	}
	if p.CustomerID.Set {
		// null отвязывает клиента
		cols["customer_id"] = optionalText(p.CustomerID, "customerId", 36, v)
	}
	if p.StatusID.Set {
		switch {
		case p.StatusID.Null:
			v.add("statusId", "must not be null")
		case !models.ValidStatus(p.StatusID.Value):
			v.add("statusId", "unknown status")
		default:
			cols["status_id"] = p.StatusID.Value
		}
	}

	var tagIDs []uint
	if p.TagIDs.Set {
		tagIDs = append([]uint{}, p.TagIDs.Value...)
	}
	if p.DraftKey != "" && !thumbnail.ValidKey(p.DraftKey) {
		v.add("draftKey", "invalid key")
	}
	if err := v.err(); err != nil {
		return nil, nil, err
	}
	return cols, tagIDs, nil
}

// CreateInput — тело POST /api/templates.
type CreateInput struct {
	Name        string          `json:"name"`
	Slug        *string         `json:"slug"`
	Description *string         `json:"description"`
	HTML        string          `json:"html"`
	Design      json.RawMessage `json:"design"`
	HasImages   bool            `json:"hasImages"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	CustomerID  *string         `json:"customerId"`
	StatusID    *int            `json:"statusId"`
	TagIDs      []uint          `json:"tagIds"`
	DraftKey    string          `json:"draftKey"`
}

func (in CreateInput) model(ownerID string) (*models.EmailTemplate, error) {
	v := &ValidationError{}
	t := &models.EmailTemplate{
		OwnerID:   ownerID,
		HTML:      in.HTML,
		HasImages: in.HasImages,
		Price:     in.Price,
		Currency:  models.DefaultCurrency,
		StatusID:  models.StatusActive,
	}
	if name, ok := validName(Some(in.Name), v); ok {
		t.Name = name
	}
	if in.Slug != nil {
		t.Slug = optionalText(Some(*in.Slug), "slug", 255, v)
	}
	if in.Description != nil {
		t.Description = optionalText(Some(*in.Description), "description", 0, v)
	}
	if in.CustomerID != nil {
		t.CustomerID = optionalText(Some(*in.CustomerID), "customerId", 36, v)
	}
	if len(in.Design) > 0 && !bytes.Equal(bytes.TrimSpace(in.Design), []byte("null")) {
		if d, ok := validDesign(in.Design, v); ok {
			t.Design = d
		}
	}
	validPrice(in.Price, v)
	if strings.TrimSpace(in.Currency) != "" {
		if c, ok := validCurrency(in.Currency, v); ok {
			t.Currency = c
		}
	}
	if in.StatusID != nil {
		if models.ValidStatus(*in.StatusID) {
			t.StatusID = *in.StatusID
		} else {
			v.add("statusId", "unknown status")
		}
	}
	switch {
	case in.DraftKey == "":
	case !thumbnail.ValidKey(in.DraftKey):
		v.add("draftKey", "invalid key")
	case thumbnail.IsTemplateDraftKey(in.DraftKey):
		v.add("draftKey", "reserved key")
	}
	if err := v.err(); err != nil {
		return nil, err
	}
	return t, nil
}

func validName(o Optional[string], v *ValidationError) (string, bool) {
	name := strings.TrimSpace(o.Value)
	switch {
	case o.Null || name == "":
		v.add("name", "is required")
		return "", false
	case utf8.RuneCountInString(name) > 255:
		v.add("name", "must be at most 255 characters")
		return "", false
	}
	return name, true
}

// optionalText: null и пустая строка дают NULL в колонке.
func optionalText(o Optional[string], field string, maxLen int, v *ValidationError) *string {
	if o.Null {
		return nil
	}
	s := strings.TrimSpace(o.Value)
	if s == "" {
		return nil
	}
	if maxLen > 0 && utf8.RuneCountInString(s) > maxLen {
		v.add(field, "is too long")
		return nil
	}
	return &s
}

func validDesign(raw json.RawMessage, v *ValidationError) (datatypes.JSON, bool) {
	if !json.Valid(raw) {
		v.add("design", "must be valid JSON")
		return nil, false
	}
	return datatypes.JSON(append([]byte(nil), raw...)), true
}

func validPrice(p decimal.Decimal, v *ValidationError) bool {
	if p.IsNegative() {
		v.add("price", "must not be negative")
		return false
	}
	return true
}

func validCurrency(c string, v *ValidationError) (string, bool) {
	c = strings.ToUpper(strings.TrimSpace(c))
	if len(c) != 3 {
		v.add("currency", "must be a 3-letter code")
		return "", false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			v.add("currency", "must be a 3-letter code")
			return "", false
		}
	}
	return c, true
}
