package docbind

import (
	"bytes"
	"io"
	"os"
)

// Result holds one rendered PDF and provides helpers for the common
// output forms. A Result is returned by every render method; its
// methods never modify the underlying data and may be called multiple
// times.
type Result struct {
	data []byte
}

// Bytes returns the raw PDF content.
func (r *Result) Bytes() []byte {
	return r.data
}

// Reader returns a [*bytes.Reader] over the PDF content, suitable for
// streaming uploads or any API that accepts an [io.Reader].
func (r *Result) Reader() *bytes.Reader {
	return bytes.NewReader(r.data)
}

// WriteTo writes the full PDF content to w. It implements [io.WriterTo].
func (r *Result) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.data)
	return int64(n), err
}

// WriteToFile writes the PDF to the file at path, creating it if needed.
func (r *Result) WriteToFile(path string, perm os.FileMode) error {
	return os.WriteFile(path, r.data, perm)
}

// Len returns the size of the PDF in bytes.
func (r *Result) Len() int {
	return len(r.data)
}
