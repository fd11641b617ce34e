package docbind

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Walker discovers the set of local HTML files reachable from a root
// file through hyperlinks. The walk is a depth-bounded pre-order
// depth-first traversal: every file enters the discovery order exactly
// once, at the moment it is first reached, and is fully explored
// before the link after it in its parent is considered. A visited set
// keyed by canonical path collapses cycles, self-links, and duplicate
// links, so the walk terminates on any graph.
type Walker struct {
	fs      afero.Fs
	extract ExtractFunc
	logger  *slog.Logger
}

// NewWalker creates a Walker. By default it reads through the OS
// filesystem and extracts links with [ExtractLocalLinks].
func NewWalker(opts ...Option) *Walker {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return newWalker(cfg)
}

func newWalker(cfg config) *Walker {
	extract := cfg.extract
	if extract == nil {
		extract = ExtractLocalLinks
	}
	return &Walker{fs: cfg.fs, extract: extract, logger: cfg.logger}
}

// frame is one file being explored, with its remaining outgoing links.
// The explicit stack keeps arbitrarily deep hierarchies off the
// goroutine stack while preserving the recursion order exactly.
type frame struct {
	path  string
	depth int
	links []string
	next  int
}

// Discover walks the link graph rooted at rootPath and returns the
// discovery order plus any broken or depth-truncated links.
//
// maxDepth bounds the traversal: the root is depth 0, and a link found
// in a file at depth d leads to depth d+1. Links that would exceed
// maxDepth are recorded as truncated and not followed. maxDepth of 0
// discovers only the root.
//
// Discover fails with [NotFoundError] when rootPath does not exist and
// [InvalidInputError] when maxDepth is negative or rootPath is not an
// HTML file. All other conditions are non-fatal and reported in the
// returned [Discovery].
func (w *Walker) Discover(rootPath string, maxDepth int) (*Discovery, error) {
	if maxDepth < 0 {
		return nil, &InvalidInputError{Reason: "max depth must be non-negative"}
	}
	if !isHTMLPath(rootPath) {
		return nil, &InvalidInputError{Reason: "root is not an HTML file: " + rootPath}
	}
	abs, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, &InvalidInputError{Reason: err.Error()}
	}
	if _, err := w.fs.Stat(abs); err != nil {
		return nil, &NotFoundError{Path: abs}
	}
	root := w.canonical(abs)

	disc := &Discovery{Order: []string{root}}
	visited := map[string]bool{root: true}
	stack := []*frame{{path: root, depth: 0, links: w.links(root)}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		if f.next >= len(f.links) {
			stack = stack[:len(stack)-1]
			continue
		}
		target := f.links[f.next]
		f.next++

		if !isHTMLPath(target) {
			w.logger.Debug("skipping non-HTML link", "source", f.path, "target", target)
			continue
		}
		if _, err := w.fs.Stat(target); err != nil {
			disc.Broken = append(disc.Broken, BrokenLink{Source: f.path, Target: target})
			continue
		}
		canon := w.canonical(target)
		if visited[canon] {
			continue
		}
		childDepth := f.depth + 1
		if childDepth > maxDepth {
			// Not marked visited: the same file may still be reached
			// within the bound through a shallower path later.
			disc.Truncated = append(disc.Truncated, TruncatedLink{Source: f.path, Target: canon, Depth: childDepth})
			continue
		}

		visited[canon] = true
		disc.Order = append(disc.Order, canon)
		stack = append(stack, &frame{path: canon, depth: childDepth, links: w.links(canon)})
	}

	w.logger.Debug("discovery complete",
		"root", root,
		"files", len(disc.Order),
		"broken", len(disc.Broken),
		"truncated", len(disc.Truncated),
	)
	return disc, nil
}

// links reads a discovered file and extracts its local link targets.
// Read or parse failures here are non-fatal: the file was present at
// discovery time, so it stays in the order with no children.
func (w *Walker) links(path string) []string {
	data, err := afero.ReadFile(w.fs, path)
	if err != nil {
		w.logger.Warn("reading discovered file", "path", path, "error", err)
		return nil
	}
	targets, err := w.extract(data, path)
	if err != nil {
		w.logger.Warn("extracting links", "path", path, "error", err)
		return nil
	}
	return targets
}

// canonical normalizes a path into the identity used by the visited
// set: absolute, cleaned, and symlink-resolved when the walker runs on
// the real filesystem. Two relative spellings of the same file must
// canonicalize identically or the file would be discovered twice.
func (w *Walker) canonical(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	abs = filepath.Clean(abs)
	if _, ok := w.fs.(*afero.OsFs); ok {
		if resolved, err := filepath.EvalSymlinks(abs); err == nil {
			abs = resolved
		}
	}
	return abs
}

// isHTMLPath reports whether path has an HTML file extension.
func isHTMLPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return true
	}
	return false
}
