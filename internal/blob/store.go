// Package blob — хранилище файлов по иерархическим ключам вида
// "tmp/<key>/thumb_600.jpg". Реализация (local|s3) выбирается один раз при старте.
package blob

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

var (
	ErrNotFound = errors.New("blob not found")
	ErrBadKey   = errors.New("invalid blob key")
)

type Store interface {
	// Put записывает объект (с перезаписью) и возвращает его публичный URL.
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	// Copy копирует src в dst с перезаписью; ErrNotFound, если src нет.
	Copy(ctx context.Context, src, dst string) error
	URL(key string) string
}

// CleanKey нормализует ключ и отбрасывает всё, что может выйти за корень.
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.Contains(key, `\`) || strings.HasPrefix(key, "/") {
		return "", ErrBadKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return "", ErrBadKey
		}
	}
	return path.Clean(key), nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
