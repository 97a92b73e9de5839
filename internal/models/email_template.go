package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const DefaultCurrency = "USD"

// EmailTemplate — шаблон письма. Владелец неизменен после создания,
// удаление только мягкое (status_id = 0).
type EmailTemplate struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	OwnerID     string          `gorm:"size:36;not null;index" json:"ownerId"`
	Name        string          `gorm:"size:255;not null" json:"name"`
	Slug        *string         `gorm:"size:255;index" json:"slug,omitempty"`
	Description *string         `gorm:"type:text" json:"description,omitempty"`
	HTML        string          `gorm:"column:html;type:text" json:"html,omitempty"`
	Design      datatypes.JSON  `json:"design,omitempty"` // состояние визуального редактора, храним как есть
	HasImages   bool            `gorm:"not null;default:false;index" json:"hasImages"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"price"`
	Currency    string          `gorm:"size:3;not null" json:"currency"`
	CustomerID  *string         `gorm:"size:36;index" json:"customerId"`
	StatusID    int             `gorm:"not null;index" json:"statusId"`

	Thumbnail200URL *string `gorm:"column:thumbnail_200_url;size:1024" json:"thumbnail200Url"`
	Thumbnail600URL *string `gorm:"column:thumbnail_600_url;size:1024" json:"thumbnail600Url"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"index" json:"updatedAt"`

	Status   TemplateStatus  `gorm:"-" json:"status"`
	Owner    *User           `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Customer *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Tags     []Tag           `gorm:"many2many:email_template_tags" json:"tags"`
	Shares   []TemplateShare `gorm:"foreignKey:TemplateID" json:"shares,omitempty"`
}

func (t *EmailTemplate) BeforeCreate(_ *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Currency == "" {
		t.Currency = DefaultCurrency
	}
	return nil
}

// AfterFind подставляет статус из фиксированного словаря: preload по
// внешнему ключу пропускает нулевые значения, а 0 это валидный статус.
func (t *EmailTemplate) AfterFind(_ *gorm.DB) error {
	t.Status = StatusByID(t.StatusID)
	if t.Tags == nil {
		t.Tags = []Tag{}
	}
	return nil
}

// GetOwnerID и GetShares нужны оценщику доступа.
func (t *EmailTemplate) GetOwnerID() string { return t.OwnerID }

func (t *EmailTemplate) GetShares() []TemplateShare { return t.Shares }

// Tag — элемент справочника тегов.
type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `json:"-"`
}

// EmailTemplateTag — строка join-таблицы. Замена набора тегов = удалить все
// строки шаблона и вставить новые в одной транзакции.
type EmailTemplateTag struct {
	EmailTemplateID string `gorm:"primaryKey;size:36"`
	TagID           uint   `gorm:"primaryKey;index"`
}

// Уровни доступа в share-записях.
const (
	PermissionView  = "VIEW"
	PermissionEdit  = "EDIT"
	PermissionOwner = "OWNER"
)

// TemplateShare — выдача доступа пользователю (не владельцу). Одна запись на пару.
type TemplateShare struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	TemplateID string    `gorm:"size:36;not null;uniqueIndex:uniq_template_grantee,priority:1" json:"templateId"`
	UserID     string    `gorm:"size:36;not null;uniqueIndex:uniq_template_grantee,priority:2;index" json:"userId"`
	Permission string    `gorm:"size:8;not null" json:"permission"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
