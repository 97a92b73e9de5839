package templates

import (
	"errors"
	"sort"
	"strings"

	"mailcraft/internal/thumbnail"
)

var (
	// ErrNotFound — и «нет такой записи», и «нет прав»: снаружи не различаются.
	ErrNotFound         = errors.New("template not found")
	ErrConflict         = errors.New("already exists")
	ErrGenerationFailed = thumbnail.ErrGenerationFailed
)

// ValidationError — ошибки по полям входа.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func invalid(field, msg string) error {
	v := &ValidationError{}
	v.add(field, msg)
	return v
}
