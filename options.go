package docbind

import (
	"log/slog"
	"time"

	"github.com/spf13/afero"
)

// config holds the shared configuration behind a [Renderer], [Walker],
// and [Binder].
type config struct {
	// Browser settings.
	chromePath   string
	timeout      time.Duration
	noSandbox    bool
	headless     string
	autoDownload bool

	// Orchestration settings.
	fs      afero.Fs
	logger  *slog.Logger
	workers int
	page    *PageConfig
	render  RenderFunc
	extract ExtractFunc
}

func defaultConfig() config {
	return config{
		timeout:  30 * time.Second,
		headless: "new",
		fs:       afero.NewOsFs(),
		logger:   slog.Default(),
		workers:  4,
	}
}

// Option configures a [Renderer] or [Binder].
type Option func(*config)

// WithChromePath sets the path to the Chrome or Chromium executable.
// By default standard locations are searched automatically.
func WithChromePath(path string) Option {
	return func(c *config) {
		c.chromePath = path
	}
}

// WithTimeout sets the maximum duration for rendering a single file.
// Defaults to 30 seconds. A zero or negative value disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithNoSandbox disables the Chrome sandbox. This is required when
// running as root, for example inside Docker containers.
func WithNoSandbox() Option {
	return func(c *config) {
		c.noSandbox = true
	}
}

// WithAutoDownload downloads a compatible Chromium build when no
// browser is found on the system, caching it under the user cache dir.
func WithAutoDownload() Option {
	return func(c *config) {
		c.autoDownload = true
	}
}

// WithFs sets the filesystem used for reading HTML files and writing
// PDF output. Defaults to the OS filesystem; tests substitute
// [afero.NewMemMapFs].
func WithFs(fs afero.Fs) Option {
	return func(c *config) {
		c.fs = fs
	}
}

// WithLogger sets the structured logger. Defaults to [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithWorkers bounds the number of concurrent renders during merge and
// directory conversion. Each worker drives its own browser tab, so the
// bound also limits browser memory. Defaults to 4.
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithPageConfig sets the [PageConfig] applied to every rendered file.
func WithPageConfig(page *PageConfig) Option {
	return func(c *config) {
		c.page = page
	}
}

// WithRenderFunc replaces the headless-browser renderer. When set, no
// browser is started; tests use this to substitute a fake renderer.
func WithRenderFunc(render RenderFunc) Option {
	return func(c *config) {
		c.render = render
	}
}

// WithExtractFunc replaces the link extractor used during discovery.
func WithExtractFunc(extract ExtractFunc) Option {
	return func(c *config) {
		c.extract = extract
	}
}
