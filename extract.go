package docbind

import (
	"bytes"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/PuerkitoBio/goquery"
)

// ExtractFunc returns the local link targets of an HTML document, as
// absolute paths resolved against the document's own location, in
// document order.
type ExtractFunc func(htmlContent []byte, basePath string) ([]string, error)

// ExtractLocalLinks parses htmlContent and returns the href targets
// that resolve to local files, in the order they appear in the
// document. External schemes (http, https, mailto, javascript, tel,
// data, ftp), protocol-relative URLs, and pure-fragment links are
// excluded; fragments and query strings are stripped from the
// survivors. Relative targets are resolved against the directory of
// basePath, the file the content was read from.
//
// A target appearing more than once in the same document is returned
// once, at its first position. Whether the target exists on disk is
// the caller's concern.
func ExtractLocalLinks(htmlContent []byte, basePath string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("docbind: parsing %s: %w", basePath, err)
	}

	baseDir := filepath.Dir(basePath)
	seen := make(map[string]bool)
	var targets []string

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		target, ok := resolveLocalHref(href, baseDir)
		if !ok || seen[target] {
			return
		}
		seen[target] = true
		targets = append(targets, target)
	})
	return targets, nil
}

// resolveLocalHref resolves one href value to an absolute local path.
// It reports false for empty, external, and fragment-only targets.
func resolveLocalHref(href, baseDir string) (string, bool) {
	if href == "" || href[0] == '#' {
		return "", false
	}
	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	// Any scheme or host means the target is not a plain local path.
	// file:// URLs are still local, so let those through.
	if u.Scheme != "" && u.Scheme != "file" {
		return "", false
	}
	if u.Scheme == "" && u.Host != "" {
		return "", false
	}
	p := u.Path // fragment and query are already split off
	if p == "" {
		return "", false
	}
	p = filepath.FromSlash(p)
	if !filepath.IsAbs(p) {
		p = filepath.Join(baseDir, p)
	}
	return filepath.Clean(p), true
}
