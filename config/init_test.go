package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "s3cr3t")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.HTTPPort)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "token", cfg.Auth.CookieName)
	assert.Equal(t, "local", cfg.Storage.Driver)
	assert.Equal(t, 15*time.Second, cfg.Thumbnails.LoadTimeout)
	assert.Equal(t, 85, cfg.Thumbnails.Quality)
	assert.Equal(t, 600, cfg.Thumbnails.ViewportWidth)
	assert.Equal(t, 12, cfg.Listing.DefaultLimit)
	assert.Equal(t, 50, cfg.Listing.MaxLimit)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "s3cr3t")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_DSN", "postgres://u:p@db:5432/mailcraft")
	t.Setenv("THUMBNAILS_LOAD_TIMEOUT", "5s")
	t.Setenv("STORAGE_DRIVER", "s3")
	t.Setenv("STORAGE_S3_BUCKET", "thumbs")
	t.Setenv("STORAGE_S3_REGION", "eu-central-1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5*time.Second, cfg.Thumbnails.LoadTimeout)
	assert.Equal(t, "thumbs", cfg.Storage.S3.Bucket)
}

func TestLoad_Validation(t *testing.T) {
	cases := map[string]map[string]string{
		"no secret":         {},
		"bad db driver":     {"AUTH_JWT_SECRET": "x", "DATABASE_DRIVER": "oracle"},
		"s3 without bucket": {"AUTH_JWT_SECRET": "x", "STORAGE_DRIVER": "s3"},
		"bad quality":       {"AUTH_JWT_SECRET": "x", "THUMBNAILS_QUALITY": "101"},
		"bad listing":       {"AUTH_JWT_SECRET": "x", "LISTING_DEFAULT_LIMIT": "80"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("AUTH_JWT_SECRET", "")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
