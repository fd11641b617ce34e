package docbind

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/porticus-lab/go-docbind/pdf"
)

// Binder turns HTML files into PDF documents. Its central operation,
// [Binder.MergeLinked], walks the link hierarchy under an index file
// and binds everything it finds into a single PDF; [Binder.ConvertFile]
// and [Binder.ConvertDir] cover the plain conversion cases.
//
// Unless a [RenderFunc] is injected with [WithRenderFunc], creating a
// Binder starts a headless browser; call [Binder.Close] to release it.
type Binder struct {
	cfg      config
	walker   *Walker
	render   RenderFunc
	renderer *Renderer // owned, nil when the render func was injected
}

// NewBinder creates a Binder with the given options.
func NewBinder(opts ...Option) (*Binder, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	b := &Binder{cfg: cfg, walker: newWalker(cfg)}
	if cfg.render != nil {
		b.render = cfg.render
		return b, nil
	}

	renderer, err := NewRenderer(opts...)
	if err != nil {
		return nil, err
	}
	b.renderer = renderer
	b.render = renderer.RenderFile
	return b, nil
}

// Close releases the browser owned by the Binder, if any.
func (b *Binder) Close() error {
	if b.renderer != nil {
		return b.renderer.Close()
	}
	return nil
}

// MergeLinked discovers every local HTML file reachable from rootPath
// within maxDepth link hops, renders each one, and merges the results
// into a single PDF at outputPath (rootPath with a .pdf extension when
// empty). Renders run concurrently up to the configured worker bound;
// the merge itself always follows discovery order.
//
// A file that fails to render is excluded from the output and listed
// in the report rather than failing the call; MergeLinked only returns
// an error when discovery fails or no file rendered at all.
func (b *Binder) MergeLinked(ctx context.Context, rootPath, outputPath string, maxDepth int) (*MergeReport, error) {
	disc, err := b.walker.Discover(rootPath, maxDepth)
	if err != nil {
		return nil, err
	}
	if outputPath == "" {
		outputPath = replaceExt(disc.Order[0], ".pdf")
	}

	b.cfg.logger.Info("rendering discovered files",
		"root", disc.Order[0],
		"files", len(disc.Order),
		"workers", b.cfg.workers,
	)

	// One write-once slot per discovery position. Workers never share
	// slots, so discovery order is preserved no matter which render
	// finishes first.
	results := make([]*Result, len(disc.Order))
	failures := make([]*RenderError, len(disc.Order))

	var g errgroup.Group
	g.SetLimit(b.cfg.workers)
	for i, path := range disc.Order {
		i, path := i, path
		g.Go(func() error {
			res, err := b.render(ctx, path, b.cfg.page)
			if err != nil {
				b.cfg.logger.Warn("render failed", "path", path, "error", err)
				failures[i] = &RenderError{Path: path, Err: err}
				return nil
			}
			results[i] = res
			return nil
		})
	}
	// Workers report failures through their slots, never as errors.
	_ = g.Wait()

	report := &MergeReport{
		Order:      disc.Order,
		Broken:     disc.Broken,
		Truncated:  disc.Truncated,
		OutputPath: outputPath,
	}
	inputs := make([]pdf.Input, 0, len(results))
	for i, res := range results {
		if res == nil {
			report.Failed = append(report.Failed, failures[i])
			continue
		}
		inputs = append(inputs, pdf.Input{Data: res.Bytes(), Path: disc.Order[i]})
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w (%d file(s) discovered)", ErrNothingRendered, len(disc.Order))
	}

	merged, err := pdf.Merge(inputs)
	if err != nil {
		return nil, fmt.Errorf("docbind: merging documents: %w", err)
	}
	if err := afero.WriteFile(b.cfg.fs, outputPath, merged.Data, 0o644); err != nil {
		return nil, fmt.Errorf("docbind: writing %s: %w", outputPath, err)
	}
	report.Pages = merged.Pages

	b.cfg.logger.Info("merge complete", "output", outputPath, "pages", merged.Pages, "failed", len(report.Failed))
	return report, nil
}

// ConvertFile renders a single HTML file to a PDF at outputPath (the
// input path with a .pdf extension when empty) and returns the path
// written.
func (b *Binder) ConvertFile(ctx context.Context, inputPath, outputPath string) (string, error) {
	if !isHTMLPath(inputPath) {
		return "", &InvalidInputError{Reason: "not an HTML file: " + inputPath}
	}
	abs, err := filepath.Abs(inputPath)
	if err != nil {
		return "", &InvalidInputError{Reason: err.Error()}
	}
	if _, err := b.cfg.fs.Stat(abs); err != nil {
		return "", &NotFoundError{Path: abs}
	}
	if outputPath == "" {
		outputPath = replaceExt(abs, ".pdf")
	}

	res, err := b.render(ctx, abs, b.cfg.page)
	if err != nil {
		return "", &RenderError{Path: abs, Err: err}
	}
	if err := afero.WriteFile(b.cfg.fs, outputPath, res.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("docbind: writing %s: %w", outputPath, err)
	}
	b.cfg.logger.Info("converted", "input", abs, "output", outputPath, "bytes", res.Len())
	return outputPath, nil
}

// ConvertDir renders every HTML file directly inside dir to a PDF in
// outDir (dir itself when empty) and returns the paths written, in
// name order. Files that fail to render are logged and skipped; the
// call only fails when dir is missing or not a directory.
func (b *Binder) ConvertDir(ctx context.Context, dir, outDir string) ([]string, error) {
	info, err := b.cfg.fs.Stat(dir)
	if err != nil {
		return nil, &NotFoundError{Path: dir}
	}
	if !info.IsDir() {
		return nil, &InvalidInputError{Reason: "not a directory: " + dir}
	}
	if outDir == "" {
		outDir = dir
	} else if err := b.cfg.fs.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("docbind: creating %s: %w", outDir, err)
	}

	var files []string
	for _, pattern := range []string{"*.html", "*.htm"} {
		matches, err := afero.Glob(b.cfg.fs, filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("docbind: listing %s: %w", dir, err)
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	if len(files) == 0 {
		b.cfg.logger.Warn("no HTML files found", "dir", dir)
		return nil, nil
	}

	outputs := make([]string, len(files))
	var g errgroup.Group
	g.SetLimit(b.cfg.workers)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			out := filepath.Join(outDir, replaceExt(filepath.Base(file), ".pdf"))
			res, err := b.render(ctx, file, b.cfg.page)
			if err != nil {
				b.cfg.logger.Warn("render failed", "path", file, "error", err)
				return nil
			}
			if err := afero.WriteFile(b.cfg.fs, out, res.Bytes(), 0o644); err != nil {
				b.cfg.logger.Warn("writing output", "path", out, "error", err)
				return nil
			}
			outputs[i] = out
			return nil
		})
	}
	_ = g.Wait()

	written := outputs[:0:0]
	for _, out := range outputs {
		if out != "" {
			written = append(written, out)
		}
	}
	b.cfg.logger.Info("directory converted", "dir", dir, "written", len(written), "total", len(files))
	return written, nil
}

// Discover exposes the hierarchy walk on its own, without rendering.
func (b *Binder) Discover(rootPath string, maxDepth int) (*Discovery, error) {
	return b.walker.Discover(rootPath, maxDepth)
}

// replaceExt swaps a path's extension.
func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
