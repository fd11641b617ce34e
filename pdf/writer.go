package pdf

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
)

// Writer builds a PDF file object by object. Object numbers are handed
// out by Alloc so references can be created before their targets are
// written; Finish appends the cross-reference table and trailer.
type Writer struct {
	buf     bytes.Buffer
	offsets map[int]int64
	next    int
}

// NewWriter creates a Writer with the file header already emitted.
func NewWriter() *Writer {
	w := &Writer{offsets: make(map[int]int64)}
	// The binary comment line marks the file as 8-bit data.
	w.buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")
	return w
}

// Alloc reserves the next object number.
func (w *Writer) Alloc() int {
	w.next++
	return w.next
}

// WriteObject emits "id 0 obj ... endobj" for obj. The id must come
// from Alloc; writing the same id twice is an error.
func (w *Writer) WriteObject(id int, obj *Object) error {
	if id <= 0 || id > w.next {
		return fmt.Errorf("object number %d was not allocated", id)
	}
	if _, dup := w.offsets[id]; dup {
		return fmt.Errorf("object %d written twice", id)
	}
	w.offsets[id] = int64(w.buf.Len())
	fmt.Fprintf(&w.buf, "%d 0 obj\n", id)
	w.encode(obj)
	w.buf.WriteString("\nendobj\n")
	return nil
}

// Finish writes the xref table and trailer and returns the file bytes.
func (w *Writer) Finish(root Reference) ([]byte, error) {
	if root.IsZero() {
		return nil, fmt.Errorf("missing document catalog reference")
	}
	xrefStart := w.buf.Len()
	fmt.Fprintf(&w.buf, "xref\n0 %d\n", w.next+1)
	w.buf.WriteString("0000000000 65535 f \n")
	for id := 1; id <= w.next; id++ {
		off, ok := w.offsets[id]
		if !ok {
			return nil, fmt.Errorf("object %d allocated but never written", id)
		}
		fmt.Fprintf(&w.buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&w.buf, "trailer\n<< /Size %d /Root %d %d R >>\nstartxref\n%d\n%%%%EOF\n",
		w.next+1, root.Number, root.Gen, xrefStart)
	return w.buf.Bytes(), nil
}

// encode serializes one object value.
func (w *Writer) encode(obj *Object) {
	if obj == nil {
		w.buf.WriteString("null")
		return
	}
	switch obj.Type {
	case ObjNull:
		w.buf.WriteString("null")
	case ObjBool:
		w.buf.WriteString(strconv.FormatBool(obj.Bool))
	case ObjInt:
		w.buf.WriteString(strconv.FormatInt(obj.Int, 10))
	case ObjFloat:
		w.buf.WriteString(strconv.FormatFloat(obj.Float, 'f', -1, 64))
	case ObjString:
		w.encodeString(obj.Str)
	case ObjName:
		w.encodeName(obj.Name)
	case ObjArray:
		w.buf.WriteByte('[')
		for i, el := range obj.Array {
			if i > 0 {
				w.buf.WriteByte(' ')
			}
			w.encode(el)
		}
		w.buf.WriteByte(']')
	case ObjDict:
		w.encodeDict(obj.Dict)
	case ObjStream:
		// Recompute /Length so the raw data always round-trips, even
		// when the source stored it as an indirect reference.
		d := make(Dict, len(obj.Dict))
		for k, v := range obj.Dict {
			d[k] = v
		}
		d["Length"] = &Object{Type: ObjInt, Int: int64(len(obj.Stream))}
		w.encodeDict(d)
		w.buf.WriteString("\nstream\n")
		w.buf.Write(obj.Stream)
		w.buf.WriteString("\nendstream")
	case ObjRef:
		fmt.Fprintf(&w.buf, "%d %d R", obj.Ref.Number, obj.Ref.Gen)
	}
}

// encodeDict writes a dictionary with sorted keys so output is
// deterministic for a given object graph.
func (w *Writer) encodeDict(d Dict) {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	w.buf.WriteString("<<")
	for _, k := range keys {
		w.buf.WriteByte(' ')
		w.encodeName(k)
		w.buf.WriteByte(' ')
		w.encode(d[k])
	}
	w.buf.WriteString(" >>")
}

// encodeString writes a literal string, escaping delimiters and
// non-printable bytes.
func (w *Writer) encodeString(s []byte) {
	w.buf.WriteByte('(')
	for _, b := range s {
		switch b {
		case '(', ')', '\\':
			w.buf.WriteByte('\\')
			w.buf.WriteByte(b)
		case '\n':
			w.buf.WriteString(`\n`)
		case '\r':
			w.buf.WriteString(`\r`)
		case '\t':
			w.buf.WriteString(`\t`)
		default:
			if b < 0x20 {
				fmt.Fprintf(&w.buf, `\%03o`, b)
			} else {
				w.buf.WriteByte(b)
			}
		}
	}
	w.buf.WriteByte(')')
}

// encodeName writes /Name with #XX escapes for irregular characters.
func (w *Writer) encodeName(name string) {
	w.buf.WriteByte('/')
	for i := 0; i < len(name); i++ {
		b := name[i]
		if b <= 0x20 || b >= 0x7f || b == '#' || isDelim(b) {
			fmt.Fprintf(&w.buf, "#%02X", b)
		} else {
			w.buf.WriteByte(b)
		}
	}
}
