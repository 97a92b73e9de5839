// Package dbtest поднимает изолированную sqlite-базу в памяти для тестов.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"mailcraft/internal/db"
	"mailcraft/internal/models"
)

// Open возвращает мигрированную базу. Одно соединение: in-memory sqlite
// живёт, пока соединение открыто, а конкурентные запросы сериализуются пулом.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	d, err := gorm.Open(sqlite.Open(":memory:"), db.Config())
	require.NoError(t, err, "open sqlite")
	sqlDB, err := d.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(context.Background(), d), "migrate")
	return d
}

// OpenFile — файловая база в режиме WAL с пулом из conns соединений:
// читатели идут параллельно с пишущей транзакцией.
func OpenFile(t testing.TB, conns int) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	d, err := gorm.Open(sqlite.Open(dsn), db.Config())
	require.NoError(t, err, "open sqlite file")
	sqlDB, err := d.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(conns)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(context.Background(), d), "migrate")
	return d
}

func User(t testing.TB, d *gorm.DB, id, name string) models.User {
	t.Helper()
	u := models.User{ID: id, Name: name, Email: id + "@example.test"}
	require.NoError(t, d.Create(&u).Error)
	return u
}

func Tag(t testing.TB, d *gorm.DB, name string) models.Tag {
	t.Helper()
	tag := models.Tag{Name: name}
	require.NoError(t, d.Create(&tag).Error)
	return tag
}

// Template вставляет активный шаблон; mut позволяет поправить поля до вставки.
func Template(t testing.TB, d *gorm.DB, owner, name string, mut ...func(*models.EmailTemplate)) models.EmailTemplate {
	t.Helper()
	tpl := models.EmailTemplate{
		OwnerID:  owner,
		Name:     name,
		HTML:     "<p>" + name + "</p>",
		Price:    decimal.Zero,
		Currency: models.DefaultCurrency,
		StatusID: models.StatusActive,
	}
	for _, m := range mut {
		m(&tpl)
	}
	require.NoError(t, d.Create(&tpl).Error)
	return tpl
}

func Share(t testing.TB, d *gorm.DB, templateID, userID, perm string) {
	t.Helper()
	require.NoError(t, d.Create(&models.TemplateShare{TemplateID: templateID, UserID: userID, Permission: perm}).Error)
}

func TagTemplate(t testing.TB, d *gorm.DB, templateID string, tagIDs ...uint) {
	t.Helper()
	for _, id := range tagIDs {
		require.NoError(t, d.Create(&models.EmailTemplateTag{EmailTemplateID: templateID, TagID: id}).Error)
	}
}

// TemplateTagIDs читает набор тегов шаблона одним запросом, по возрастанию id.
// Без testing.TB: вызывается из горутин.
func TemplateTagIDs(ctx context.Context, d *gorm.DB, templateID string) ([]uint, error) {
	ids := []uint{}
	err := d.WithContext(ctx).Model(&models.EmailTemplateTag{}).
		Where("email_template_id = ?", templateID).
		Order("tag_id asc").
		Pluck("tag_id", &ids).Error
	return ids, err
}
