// Package docbind renders local HTML files to PDF with headless Chrome
// (Chrome DevTools Protocol) and binds linked sets of files into a
// single document.
//
// # Merging a linked hierarchy
//
// The central operation follows local links out of an index file and
// merges every reachable page into one PDF, in reading order:
//
//	b, err := docbind.NewBinder()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Close()
//
//	report, err := b.MergeLinked(ctx, "book/index.html", "book.pdf", 3)
//
// Discovery is a depth-first walk: each linked file is fully explored
// before its parent's next link, each file appears exactly once, and
// cycles terminate naturally. The returned [MergeReport] lists the
// merge order plus any broken links, links cut off by the depth limit,
// and files that failed to render. Cross-document links between merged
// files are rewritten to internal page jumps.
//
// To inspect the hierarchy without rendering anything, use
// [Binder.Discover].
//
// # Plain conversion
//
// Single files and flat directories convert without any link walking:
//
//	out, err := b.ConvertFile(ctx, "report.html", "")
//	outs, err := b.ConvertDir(ctx, "pages/", "rendered/")
//
// Use [PageConfig] with [WithPageConfig] to control paper size,
// orientation, margins, and scale:
//
//	page := &docbind.PageConfig{
//	    Size:        docbind.A4,
//	    Orientation: docbind.Landscape,
//	    Margin:      docbind.UniformMargin(2.0),
//	}
//	b, err := docbind.NewBinder(docbind.WithPageConfig(page))
//
// Chrome or Chromium must be available in PATH, or use
// [WithAutoDownload]:
//
//	b, err := docbind.NewBinder(docbind.WithAutoDownload())
//
// # Lower-level pieces
//
// [Renderer] exposes single-file rendering on its own, and the pdf
// subpackage holds the object model and merger behind MergeLinked.
// [WriteSample] writes a small linked HTML set for trying the package
// out.
package docbind
