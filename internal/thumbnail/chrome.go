package thumbnail

import (
	"context"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// страница готова, когда загружен документ и все картинки
const readyExpr = `document.readyState === "complete" && Array.from(document.images).every(function (i) { return i.complete; })`

type ChromeOptions struct {
	ExecPath  string // пусто — chromedp ищет chrome сам
	NoSandbox bool
}

// ChromeLauncher запускает отдельный headless Chrome на каждый рендер.
type ChromeLauncher struct{ opts ChromeOptions }

func NewChromeLauncher(opts ChromeOptions) *ChromeLauncher { return &ChromeLauncher{opts: opts} }

func (l *ChromeLauncher) Launch(ctx context.Context) (Sandbox, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("mute-audio", true),
	)
	if l.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.opts.ExecPath))
	}
	if l.opts.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}

	// жизнью браузера управляет только Close
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	sb := &chromeSandbox{tabCtx: tabCtx, tabCancel: tabCancel, allocCancel: allocCancel}

	// первый Run стартует браузер и должен идти на самом tabCtx:
	// отмена его контекста убивает процесс
	stop := context.AfterFunc(ctx, tabCancel)
	err := chromedp.Run(tabCtx)
	stop()
	if err != nil {
		_ = sb.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return sb, nil
}

type chromeSandbox struct {
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	once        sync.Once
}

func (s *chromeSandbox) Capture(ctx context.Context, html string, width int) ([]byte, error) {
	var (
		buf   []byte
		ready bool
	)
	err := s.run(ctx,
		chromedp.EmulateViewport(int64(width), 800),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.Poll(readyExpr, &ready),
		chromedp.FullScreenshot(&buf, 100),
	)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// run выполняет действия во вкладке, прерываясь по отмене ctx вызывающего.
func (s *chromeSandbox) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (s *chromeSandbox) Close() error {
	var err error
	s.once.Do(func() {
		err = chromedp.Cancel(s.tabCtx)
		s.tabCancel()
		s.allocCancel()
	})
	return err
}
