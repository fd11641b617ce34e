package docbind

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// RenderFunc renders a local HTML file to PDF bytes. It is the seam
// between the merge orchestration and the headless browser: [Binder]
// only ever talks to a RenderFunc, which tests replace with a fake.
type RenderFunc func(ctx context.Context, path string, pg *PageConfig) (*Result, error)

// Renderer prints local HTML files to PDF through a headless Chrome
// instance. The browser is started once and reused across renders;
// each render runs in its own tab, so a Renderer is safe for
// concurrent use.
//
// Call [Renderer.Close] when the Renderer is no longer needed to
// release browser resources.
type Renderer struct {
	cfg           config
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// NewRenderer starts a headless browser with the given options. The
// caller must call [Renderer.Close] when finished.
func NewRenderer(opts ...Option) (*Renderer, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	chromePath := cfg.chromePath
	if chromePath == "" && cfg.autoDownload {
		p, err := resolveBrowser()
		if err != nil {
			return nil, err
		}
		chromePath = p
	}

	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("headless", cfg.headless),
	)
	if chromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(chromePath))
	}
	if cfg.noSandbox {
		allocOpts = append(allocOpts, chromedp.Flag("no-sandbox", true))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Start the browser eagerly so errors surface at creation time.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("docbind: starting browser: %w", err)
	}

	return &Renderer{
		cfg:           cfg,
		allocCtx:      allocCtx,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// Close releases all resources held by the Renderer, including the
// browser process. Close is idempotent.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	r.browserCancel()
	r.allocCancel()
	return nil
}

// RenderFile prints a local HTML file to a PDF document.
// If pg is nil, [DefaultPageConfig] values are used.
func (r *Renderer) RenderFile(ctx context.Context, path string, pg *PageConfig) (*Result, error) {
	if err := r.checkClosed(); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("docbind: resolving path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, &NotFoundError{Path: abs}
	}
	return r.render(ctx, "file://"+abs, pg)
}

// RenderHTML prints an HTML string to a PDF document through a
// temporary file. If pg is nil, [DefaultPageConfig] values are used.
func (r *Renderer) RenderHTML(ctx context.Context, html string, pg *PageConfig) (*Result, error) {
	if err := r.checkClosed(); err != nil {
		return nil, err
	}

	f, err := os.CreateTemp("", "docbind-*.html")
	if err != nil {
		return nil, fmt.Errorf("docbind: creating temp file: %w", err)
	}
	name := f.Name()
	defer os.Remove(name)

	if _, err := f.WriteString(html); err != nil {
		f.Close()
		return nil, fmt.Errorf("docbind: writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("docbind: closing temp file: %w", err)
	}

	abs, err := filepath.Abs(name)
	if err != nil {
		return nil, fmt.Errorf("docbind: resolving path: %w", err)
	}
	return r.render(ctx, "file://"+abs, pg)
}

// render navigates a fresh tab to targetURL and prints it.
func (r *Renderer) render(ctx context.Context, targetURL string, pg *PageConfig) (*Result, error) {
	resolved := pg.resolved()

	tabCtx, tabCancel := chromedp.NewContext(r.browserCtx)
	defer tabCancel()
	if r.cfg.timeout > 0 {
		var cancel context.CancelFunc
		tabCtx, cancel = context.WithTimeout(tabCtx, r.cfg.timeout)
		defer cancel()
	}
	// Propagate the caller's cancellation into the tab.
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	width, height := resolved.paperDimensions()
	marginTop, marginRight, marginBottom, marginLeft := resolved.marginInches()

	var buf []byte
	if err := chromedp.Run(tabCtx,
		chromedp.Navigate(targetURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			params := page.PrintToPDF().
				WithPaperWidth(width).
				WithPaperHeight(height).
				WithMarginTop(marginTop).
				WithMarginRight(marginRight).
				WithMarginBottom(marginBottom).
				WithMarginLeft(marginLeft).
				WithScale(resolved.Scale).
				WithPrintBackground(resolved.PrintBackground).
				WithLandscape(resolved.Orientation == Landscape).
				WithPreferCSSPageSize(resolved.PreferCSSPageSize).
				WithDisplayHeaderFooter(resolved.DisplayHeaderFooter)

			if resolved.HeaderTemplate != "" {
				params = params.WithHeaderTemplate(resolved.HeaderTemplate)
			}
			if resolved.FooterTemplate != "" {
				params = params.WithFooterTemplate(resolved.FooterTemplate)
			}

			var err error
			buf, _, err = params.Do(ctx)
			return err
		}),
	); err != nil {
		return nil, fmt.Errorf("docbind: rendering %s: %w", targetURL, err)
	}

	return &Result{data: buf}, nil
}

func (r *Renderer) checkClosed() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	return nil
}
