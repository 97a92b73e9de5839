package models

// Коды статусов шаблона. Логикой ядра используются только Disabled и Active,
// остальные — классификация, которая просто проходит через фильтры.
const (
	StatusDisabled         = 0 // мягкое удаление
	StatusActive           = 1
	StatusDraft            = 2
	StatusPrivate          = 3
	StatusPublished        = 4
	StatusArchived         = 5
	StatusProgressToStore  = 6
	StatusInStore          = 7
	StatusRemovedFromStore = 8
)

var statusCodes = map[int]string{
	StatusDisabled:         "disabled",
	StatusActive:           "active",
	StatusDraft:            "draft",
	StatusPrivate:          "private",
	StatusPublished:        "published",
	StatusArchived:         "archived",
	StatusProgressToStore:  "progress_to_store",
	StatusInStore:          "in_store",
	StatusRemovedFromStore: "removed_from_store",
}

// TemplateStatus — строка справочника статусов. id задаётся явно (в т.ч. 0).
type TemplateStatus struct {
	ID   int    `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Code string `gorm:"size:32;uniqueIndex;not null" json:"code"`
}

// TemplateStatuses — весь словарь по возрастанию id.
func TemplateStatuses() []TemplateStatus {
	out := make([]TemplateStatus, 0, len(statusCodes))
	for id := StatusDisabled; id <= StatusRemovedFromStore; id++ {
		out = append(out, TemplateStatus{ID: id, Code: statusCodes[id]})
	}
	return out
}

func ValidStatus(id int) bool {
	_, ok := statusCodes[id]
	return ok
}

// StatusByID возвращает запись словаря; для неизвестного id — code "unknown".
func StatusByID(id int) TemplateStatus {
	if code, ok := statusCodes[id]; ok {
		return TemplateStatus{ID: id, Code: code}
	}
	return TemplateStatus{ID: id, Code: "unknown"}
}
