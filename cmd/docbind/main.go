// Package main provides the entry point for the docbind CLI.
//
// docbind renders local HTML files to PDF with headless Chrome and can
// follow local links to bind a whole set of files into one document.
//
// Usage:
//
//	docbind merge index.html -o book.pdf --depth 3
//	docbind convert report.html
//	docbind sample
//
// See --help for all available options.
package main

func main() {
	Execute()
}
