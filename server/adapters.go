package server

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"mailcraft/config"
	"mailcraft/internal/blob"
	"mailcraft/internal/thumbnail"
)

// newBlobStore выбирает реализацию хранилища один раз при старте.
func newBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	switch cfg.Storage.Driver {
	case "local":
		return blob.NewLocal(cfg.Storage.LocalDir, cfg.Storage.PublicBase)
	case "s3":
		s3cfg := cfg.Storage.S3
		return blob.NewS3(ctx, blob.S3Options{
			Region:          s3cfg.Region,
			Bucket:          s3cfg.Bucket,
			Endpoint:        s3cfg.Endpoint,
			AccessKeyID:     s3cfg.AccessKeyID,
			SecretAccessKey: s3cfg.SecretAccessKey,
			PublicBase:      cfg.Storage.PublicBase,
		})
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Storage.Driver)
	}
}

func newLauncher(cfg *config.Config) thumbnail.Launcher {
	return thumbnail.NewChromeLauncher(thumbnail.ChromeOptions{
		ExecPath:  cfg.Thumbnails.ChromePath,
		NoSandbox: cfg.Thumbnails.NoSandbox,
	})
}

// publicPrefix — путь из public_base, под которым локальные файлы отдаются статикой.
func publicPrefix(publicBase string) string {
	p := "/uploads"
	if u, err := url.Parse(publicBase); err == nil && strings.Trim(u.Path, "/") != "" {
		p = "/" + strings.Trim(u.Path, "/")
	}
	return p + "/"
}
