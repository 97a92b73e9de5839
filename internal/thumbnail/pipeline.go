// Package thumbnail рендерит HTML письма в два JPEG-превью (600 и 200 px),
// кладёт их под черновой ключ и переносит под id шаблона при сохранении.
package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"mailcraft/internal/blob"
	"mailcraft/internal/logs"
)

var (
	ErrGenerationFailed = errors.New("thumbnail generation failed")
	ErrBadKey           = errors.New("invalid thumbnail key")
)

const (
	Width600 = 600
	Width200 = 200
)

var widths = []int{Width600, Width200}

var keyRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// ValidKey — draftKey и id шаблона используются как сегмент пути.
func ValidKey(key string) bool { return keyRe.MatchString(key) }

// templateKeyPrefix отделяет черновики существующих шаблонов от ключей,
// которые выбирает клиент.
const templateKeyPrefix = "tpl-"

// TemplateDraftKey — черновой ключ превью уже сохранённого шаблона.
func TemplateDraftKey(templateID string) string { return templateKeyPrefix + templateID }

// IsTemplateDraftKey сообщает, что ключ из пространства шаблонов.
func IsTemplateDraftKey(key string) bool { return strings.HasPrefix(key, templateKeyPrefix) }

func DraftKey(key string, width int) string { return fmt.Sprintf("tmp/%s/thumb_%d.jpg", key, width) }

func FinalKey(templateID string, width int) string {
	return fmt.Sprintf("templates/%s/thumb_%d.jpg", templateID, width)
}

// Sandbox — запущенный изолированный рендерер. Close вызывается ровно один раз.
type Sandbox interface {
	// Capture загружает html без навигации наружу и возвращает PNG всей страницы.
	Capture(ctx context.Context, html string, width int) ([]byte, error)
	Close() error
}

type Launcher interface {
	Launch(ctx context.Context) (Sandbox, error)
}

type Options struct {
	ViewportWidth int
	Quality       int
	LoadTimeout   time.Duration
}

func (o Options) withDefaults() Options {
	if o.ViewportWidth <= 0 {
		o.ViewportWidth = Width600
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = 85
	}
	if o.LoadTimeout <= 0 {
		o.LoadTimeout = 15 * time.Second
	}
	return o
}

type Preview struct {
	URL200 string `json:"url200"`
	URL600 string `json:"url600"`
}

// Final — результат переноса; nil, если исходного файла не было.
type Final struct {
	URL200 *string `json:"url200"`
	URL600 *string `json:"url600"`
}

type Pipeline struct {
	launcher Launcher
	store    blob.Store
	opts     Options
	log      *logrus.Entry
}

func New(launcher Launcher, store blob.Store, opts Options) *Pipeline {
	return &Pipeline{
		launcher: launcher,
		store:    store,
		opts:     opts.withDefaults(),
		log:      logs.For("thumbnail"),
	}
}

// GeneratePreview: render -> resize -> tmp/<key>/thumb_<w>.jpg.
// Любая ошибка даёт ErrGenerationFailed и никаких URL; повторов нет.
func (p *Pipeline) GeneratePreview(ctx context.Context, html, key string) (*Preview, error) {
	if !ValidKey(key) {
		return nil, ErrBadKey
	}
	start := time.Now()

	shot, err := p.render(ctx, html)
	if err != nil {
		p.log.WithError(err).WithField("key", key).Warn("render failed")
		return nil, fmt.Errorf("%w: render: %v", ErrGenerationFailed, err)
	}

	img, err := Decode(shot)
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrGenerationFailed, err)
	}

	// сначала кодируем оба размера, потом пишем: без полу-готовых пар
	encoded := make(map[int][]byte, len(widths))
	for _, w := range widths {
		data, err := EncodeJPEG(img, w, p.opts.Quality)
		if err != nil {
			return nil, fmt.Errorf("%w: encode %dpx: %v", ErrGenerationFailed, w, err)
		}
		encoded[w] = data
	}

	urls := make(map[int]string, len(widths))
	for _, w := range widths {
		u, err := p.store.Put(ctx, DraftKey(key, w), bytes.NewReader(encoded[w]), "image/jpeg")
		if err != nil {
			p.log.WithError(err).WithField("key", key).Warn("store preview failed")
			return nil, fmt.Errorf("%w: store %dpx: %v", ErrGenerationFailed, w, err)
		}
		urls[w] = u
	}

	p.log.WithFields(logrus.Fields{"key": key, "dur": time.Since(start).String()}).Debug("preview generated")
	return &Preview{URL200: urls[Width200], URL600: urls[Width600]}, nil
}

func (p *Pipeline) render(ctx context.Context, html string) ([]byte, error) {
	sb, err := p.launcher.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("launch sandbox: %w", err)
	}
	defer func() {
		if cerr := sb.Close(); cerr != nil {
			p.log.WithError(cerr).Warn("sandbox close failed")
		}
	}()

	loadCtx, cancel := context.WithTimeout(ctx, p.opts.LoadTimeout)
	defer cancel()
	return sb.Capture(loadCtx, html, p.opts.ViewportWidth)
}

// Finalize копирует (не переносит) превью черновика под id шаблона.
// Отсутствующий исходник пропускается; отсутствие обоих — не ошибка.
func (p *Pipeline) Finalize(ctx context.Context, draftKey, templateID string) (*Final, error) {
	if !ValidKey(draftKey) || !ValidKey(templateID) {
		return nil, ErrBadKey
	}
	out := &Final{}
	for _, w := range widths {
		src, dst := DraftKey(draftKey, w), FinalKey(templateID, w)
		ok, err := p.store.Exists(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", src, err)
		}
		if !ok {
			continue
		}
		if err := p.store.Copy(ctx, src, dst); err != nil {
			if errors.Is(err, blob.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("copy %s: %w", src, err)
		}
		u := p.store.URL(dst)
		if w == Width200 {
			out.URL200 = &u
		} else {
			out.URL600 = &u
		}
	}
	return out, nil
}
