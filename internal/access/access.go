// Package access решает, какой уровень доступа у вызывающего к шаблону.
package access

import (
	"errors"
	"strings"

	"mailcraft/internal/models"
)

// Level — упорядоченный уровень доступа: None < View < Edit < Owner.
type Level int

const (
	None Level = iota
	View
	Edit
	Owner
)

var ErrDenied = errors.New("access denied")

func (l Level) String() string {
	switch l {
	case View:
		return models.PermissionView
	case Edit:
		return models.PermissionEdit
	case Owner:
		return models.PermissionOwner
	default:
		return "NONE"
	}
}

// ParseLevel переводит значение из share-записи в Level. Неизвестное даёт None.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case models.PermissionView:
		return View
	case models.PermissionEdit:
		return Edit
	case models.PermissionOwner:
		return Owner
	default:
		return None
	}
}

// Resource — всё, что нужно для оценки: владелец и выданные права.
type Resource interface {
	GetOwnerID() string
	GetShares() []models.TemplateShare
}

// Resolve: владелец всегда Owner, иначе максимальный уровень среди его share-записей.
func Resolve(callerID string, r Resource) Level {
	if callerID == "" || r == nil {
		return None
	}
	if r.GetOwnerID() == callerID {
		return Owner
	}
	best := None
	for _, s := range r.GetShares() {
		if s.UserID != callerID {
			continue
		}
		if lvl := ParseLevel(s.Permission); lvl > best {
			best = lvl
		}
	}
	return best
}

// Require возвращает ErrDenied, если уровень ниже minimum.
func Require(callerID string, r Resource, minimum Level) error {
	if Resolve(callerID, r) < minimum {
		return ErrDenied
	}
	return nil
}
