package docbind

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

const sampleIndex = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>docbind sample</title>
<style>
body { font-family: Georgia, serif; max-width: 42em; margin: 2em auto; }
h1 { border-bottom: 2px solid #333; padding-bottom: .3em; }
nav li { margin: .4em 0; }
</style>
</head>
<body>
<h1>A Short Field Guide</h1>
<p>This index links to two chapters. Feed it to the merge command and
every linked page ends up in one PDF, in reading order.</p>
<nav>
<ul>
<li><a href="chapter1.html">Chapter 1: Getting Started</a></li>
<li><a href="chapter2.html">Chapter 2: Going Further</a></li>
</ul>
</nav>
<p>External links such as <a href="https://example.com">this one</a>
are left alone.</p>
</body>
</html>
`

const sampleChapter1 = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Chapter 1</title>
<style>body { font-family: Georgia, serif; max-width: 42em; margin: 2em auto; }</style>
</head>
<body>
<h1>Chapter 1: Getting Started</h1>
<p>Chapters may link forward to <a href="chapter2.html">the next
chapter</a> or back to <a href="sample.html">the index</a>; each file
still appears exactly once in the merged result.</p>
</body>
</html>
`

const sampleChapter2 = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Chapter 2</title>
<style>body { font-family: Georgia, serif; max-width: 42em; margin: 2em auto; }</style>
</head>
<body>
<h1>Chapter 2: Going Further</h1>
<p>Back to <a href="sample.html">the index</a>.</p>
<table border="1" cellpadding="6">
<tr><th>Command</th><th>Purpose</th></tr>
<tr><td>merge</td><td>bind a linked set into one PDF</td></tr>
<tr><td>convert</td><td>render a single file or directory</td></tr>
</table>
</body>
</html>
`

// WriteSample writes a small set of linked HTML files rooted at path
// (the index; its siblings chapter1.html and chapter2.html land in the
// same directory) and returns the index path. The set contains forward
// links, back links, and an external link, which makes it a convenient
// smoke test for MergeLinked.
func WriteSample(fs afero.Fs, path string) (string, error) {
	if path == "" {
		path = "sample.html"
	}
	if !isHTMLPath(path) {
		return "", &InvalidInputError{Reason: "not an HTML file: " + path}
	}
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("docbind: creating %s: %w", dir, err)
	}
	pages := map[string]string{
		path:                                sampleIndex,
		filepath.Join(dir, "chapter1.html"): sampleChapter1,
		filepath.Join(dir, "chapter2.html"): sampleChapter2,
	}
	for p, content := range pages {
		if err := afero.WriteFile(fs, p, []byte(content), 0o644); err != nil {
			return "", fmt.Errorf("docbind: writing %s: %w", p, err)
		}
	}
	return path, nil
}
