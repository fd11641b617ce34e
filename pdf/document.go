package pdf

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// XRefEntry describes one entry in the cross-reference table.
type XRefEntry struct {
	Offset     int64
	Generation int
	InUse      bool
	// For objects stored inside object streams (PDF 1.5+).
	Compressed  bool
	StreamObjID int
	IndexInStrm int
}

// Document is a parsed PDF file. It resolves indirect references lazily
// and caches the results; a Document is not safe for concurrent use.
type Document struct {
	data    []byte
	xref    map[int]XRefEntry
	trailer Dict
	cache   map[int]*Object
}

// Open reads and parses a PDF file from disk.
func Open(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return Load(data)
}

// Load parses a PDF from raw bytes.
func Load(data []byte) (*Document, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, fmt.Errorf("not a PDF file")
	}
	doc := &Document{
		data:  data,
		xref:  make(map[int]XRefEntry),
		cache: make(map[int]*Object),
	}
	if err := doc.loadXRef(); err != nil {
		return nil, fmt.Errorf("loading xref: %w", err)
	}
	if _, encrypted := doc.trailer["Encrypt"]; encrypted {
		return nil, fmt.Errorf("encrypted documents are not supported")
	}
	return doc, nil
}

// Version returns the PDF version string from the header (e.g. "1.7").
func (doc *Document) Version() string {
	if len(doc.data) < 8 {
		return "?"
	}
	end := bytes.IndexByte(doc.data[5:20], '\n')
	if end < 0 {
		end = 5
	}
	return strings.TrimRight(string(doc.data[5:5+end]), "\r\n ")
}

// loadXRef locates startxref and loads all xref sections and the trailer.
func (doc *Document) loadXRef() error {
	offset, err := doc.findStartXRef()
	if err != nil {
		return err
	}
	return doc.loadXRefAt(offset)
}

// findStartXRef scans the file tail for "startxref" and reads the offset.
func (doc *Document) findStartXRef() (int64, error) {
	searchFrom := len(doc.data) - 1024
	if searchFrom < 0 {
		searchFrom = 0
	}
	idx := bytes.LastIndex(doc.data[searchFrom:], []byte("startxref"))
	if idx < 0 {
		return 0, fmt.Errorf("startxref not found")
	}
	pos := searchFrom + idx + len("startxref")
	for pos < len(doc.data) && isWhitespace(doc.data[pos]) {
		pos++
	}
	end := pos
	for end < len(doc.data) && doc.data[end] >= '0' && doc.data[end] <= '9' {
		end++
	}
	if end == pos {
		return 0, fmt.Errorf("invalid startxref value")
	}
	return strconv.ParseInt(string(doc.data[pos:end]), 10, 64)
}

// loadXRefAt loads the xref section (table or stream) at a file offset.
func (doc *Document) loadXRefAt(offset int64) error {
	if offset < 0 || int(offset) >= len(doc.data) {
		return fmt.Errorf("xref offset out of bounds: %d", offset)
	}
	p := NewParser(doc.data, int(offset))
	p.skipWhitespace()
	if p.match("xref") {
		return doc.parseXRefTable(p)
	}
	return doc.parseXRefStream(p)
}

// parseXRefTable parses the classic table form: subsections then trailer.
func (doc *Document) parseXRefTable(p *Parser) error {
	for {
		p.skipWhitespace()
		if p.pos >= len(doc.data) {
			break
		}
		if bytes.HasPrefix(doc.data[p.pos:], []byte("trailer")) {
			p.SetPos(p.Pos() + len("trailer"))
			break
		}
		first, err1 := strconv.Atoi(p.readToken())
		p.skipWhitespace()
		count, err2 := strconv.Atoi(p.readToken())
		if err1 != nil || err2 != nil {
			break
		}
		p.skipWhitespace()
		// Entries are fixed-width 20-byte records.
		for i := 0; i < count; i++ {
			if p.Pos()+20 > len(doc.data) {
				break
			}
			entry := string(doc.data[p.Pos() : p.Pos()+20])
			p.SetPos(p.Pos() + 20)
			if len(entry) < 18 {
				continue
			}
			id := first + i
			off, _ := strconv.ParseInt(strings.TrimSpace(entry[:10]), 10, 64)
			gen, _ := strconv.Atoi(strings.TrimSpace(entry[11:16]))
			if _, exists := doc.xref[id]; !exists {
				doc.xref[id] = XRefEntry{Offset: off, Generation: gen, InUse: entry[17] == 'n'}
			}
		}
	}

	p.skipWhitespace()
	trailerObj, err := p.ParseObject()
	if err != nil {
		return fmt.Errorf("parsing trailer: %w", err)
	}
	if doc.trailer == nil && trailerObj.Type == ObjDict {
		doc.trailer = trailerObj.Dict
	}
	if trailerObj.Type == ObjDict {
		if prev, ok := trailerObj.Dict.GetInt("Prev"); ok && prev > 0 {
			return doc.loadXRefAt(prev)
		}
	}
	return nil
}

// parseXRefStream parses a cross-reference stream object (PDF 1.5+).
func (doc *Document) parseXRefStream(p *Parser) error {
	p.readToken() // object number
	p.skipWhitespace()
	p.readToken() // generation
	p.skipWhitespace()
	p.match("obj")

	obj, err := p.ParseObject()
	if err != nil {
		return fmt.Errorf("parsing xref stream object: %w", err)
	}
	if obj.Type != ObjStream {
		return fmt.Errorf("xref at offset is not a stream")
	}
	if doc.trailer == nil {
		doc.trailer = obj.Dict
	}

	data, err := DecodeStream(obj.Dict, obj.Stream)
	if err != nil {
		return fmt.Errorf("decoding xref stream: %w", err)
	}

	w, _ := obj.Dict.GetArray("W")
	if len(w) < 3 {
		return fmt.Errorf("xref stream missing /W")
	}
	w1, w2, w3 := int(w[0].Int), int(w[1].Int), int(w[2].Int)
	entrySize := w1 + w2 + w3
	if entrySize == 0 {
		return fmt.Errorf("xref stream zero entry size")
	}

	size, _ := obj.Dict.GetInt("Size")
	var subsections [][2]int
	if indexArr, ok := obj.Dict.GetArray("Index"); ok {
		for i := 0; i+1 < len(indexArr); i += 2 {
			subsections = append(subsections, [2]int{int(indexArr[i].Int), int(indexArr[i+1].Int)})
		}
	} else {
		subsections = [][2]int{{0, int(size)}}
	}

	offset := 0
	for _, sub := range subsections {
		first, count := sub[0], sub[1]
		for i := 0; i < count; i++ {
			if offset+entrySize > len(data) {
				break
			}
			id := first + i
			t := readBigEndian(data[offset:], w1)
			f2 := readBigEndian(data[offset+w1:], w2)
			f3 := readBigEndian(data[offset+w1+w2:], w3)
			offset += entrySize

			if _, exists := doc.xref[id]; exists {
				continue
			}
			switch t {
			case 0:
				doc.xref[id] = XRefEntry{Generation: f3}
			case 1:
				doc.xref[id] = XRefEntry{Offset: int64(f2), Generation: f3, InUse: true}
			case 2:
				doc.xref[id] = XRefEntry{Compressed: true, StreamObjID: f2, IndexInStrm: f3, InUse: true}
			}
		}
	}

	if prev, ok := obj.Dict.GetInt("Prev"); ok && prev > 0 {
		return doc.loadXRefAt(prev)
	}
	return nil
}

// readBigEndian reads n bytes as a big-endian integer. A zero-width
// field decodes to the default value 1.
func readBigEndian(data []byte, n int) int {
	if n == 0 {
		return 1
	}
	v := 0
	for i := 0; i < n && i < len(data); i++ {
		v = v<<8 | int(data[i])
	}
	return v
}

// ResolveRef follows an indirect reference and returns the object it
// points to. Unknown or free entries resolve to null.
func (doc *Document) ResolveRef(ref Reference) (*Object, error) {
	if obj, ok := doc.cache[ref.Number]; ok {
		return obj, nil
	}
	entry, ok := doc.xref[ref.Number]
	if !ok || !entry.InUse {
		return &Object{Type: ObjNull}, nil
	}

	var obj *Object
	var err error
	if entry.Compressed {
		obj, err = doc.resolveCompressed(entry)
	} else {
		obj, err = doc.resolveAtOffset(entry.Offset)
	}
	if err != nil {
		return &Object{Type: ObjNull}, nil
	}
	doc.cache[ref.Number] = obj
	return obj, nil
}

// resolveAtOffset parses "N G obj ... endobj" at a byte offset.
func (doc *Document) resolveAtOffset(offset int64) (*Object, error) {
	if offset < 0 || int(offset) >= len(doc.data) {
		return nil, fmt.Errorf("object offset %d out of bounds", offset)
	}
	p := NewParser(doc.data, int(offset))
	p.readToken()
	p.skipWhitespace()
	p.readToken()
	p.skipWhitespace()
	if !p.match("obj") {
		return nil, fmt.Errorf("expected 'obj' at offset %d", offset)
	}

	obj, err := p.ParseObject()
	if err != nil {
		return nil, err
	}

	// A stream /Length given as an indirect reference forces a re-parse
	// once the length is known.
	if obj.Type == ObjStream {
		if lenRef, ok := obj.Dict["Length"]; ok && lenRef.Type == ObjRef {
			lenObj, _ := doc.ResolveRef(lenRef.Ref)
			if lenObj != nil && lenObj.Type == ObjInt {
				obj.Dict["Length"] = lenObj
				p2 := NewParser(doc.data, int(offset))
				p2.readToken()
				p2.skipWhitespace()
				p2.readToken()
				p2.skipWhitespace()
				p2.match("obj")
				return p2.ParseObject()
			}
		}
	}
	return obj, nil
}

// resolveCompressed reads an object stored inside an object stream.
func (doc *Document) resolveCompressed(entry XRefEntry) (*Object, error) {
	container, err := doc.ResolveRef(Reference{Number: entry.StreamObjID})
	if err != nil {
		return nil, err
	}
	if container.Type != ObjStream {
		return nil, fmt.Errorf("compressed object container is not a stream")
	}

	data, err := DecodeStream(container.Dict, container.Stream)
	if err != nil {
		return nil, err
	}

	n, _ := container.Dict.GetInt("N")
	first, _ := container.Dict.GetInt("First")

	// The stream prelude is N pairs of "objnum offset".
	p := NewParser(data, 0)
	offsets := make([]int, 0, n)
	for i := 0; i < int(n); i++ {
		p.skipWhitespace()
		p.readToken() // object number
		p.skipWhitespace()
		off, _ := strconv.Atoi(p.readToken())
		offsets = append(offsets, off)
	}

	if entry.IndexInStrm < 0 || entry.IndexInStrm >= len(offsets) {
		return &Object{Type: ObjNull}, nil
	}
	objPos := int(first) + offsets[entry.IndexInStrm]
	if objPos > len(data) {
		return &Object{Type: ObjNull}, nil
	}
	p2 := NewParser(data, objPos)
	return p2.ParseObject()
}

// Resolve returns the object itself, or the target of an indirect reference.
func (doc *Document) Resolve(obj *Object) (*Object, error) {
	if obj == nil || obj.Type != ObjRef {
		return obj, nil
	}
	return doc.ResolveRef(obj.Ref)
}

// Catalog returns the document catalog dictionary.
func (doc *Document) Catalog() (Dict, error) {
	rootRef, ok := doc.trailer["Root"]
	if !ok {
		return nil, fmt.Errorf("no /Root in trailer")
	}
	root, err := doc.Resolve(rootRef)
	if err != nil {
		return nil, err
	}
	if root.Type != ObjDict {
		return nil, fmt.Errorf("root is not a dict")
	}
	return root.Dict, nil
}

// Page is one leaf of the page tree. Dict carries the page entries with
// inheritable attributes (/Resources, /MediaBox, /CropBox, /Rotate)
// already folded in from ancestor nodes, so a page can be lifted out of
// its tree without losing them. Ref is the page's own object reference,
// or the zero Reference for pages embedded directly in the tree.
type Page struct {
	Ref  Reference
	Dict Dict
}

// inheritable are the page attributes that may live on ancestor nodes.
var inheritable = []string{"Resources", "MediaBox", "CropBox", "Rotate"}

// Pages returns all leaf pages in document order.
func (doc *Document) Pages() ([]Page, error) {
	cat, err := doc.Catalog()
	if err != nil {
		return nil, err
	}
	pagesRef, ok := cat["Pages"]
	if !ok {
		return nil, fmt.Errorf("no /Pages in catalog")
	}
	rootObj, err := doc.Resolve(pagesRef)
	if err != nil {
		return nil, err
	}
	if rootObj.Type != ObjDict && rootObj.Type != ObjStream {
		return nil, fmt.Errorf("page tree root is not a dict")
	}

	var rootRef Reference
	if pagesRef.Type == ObjRef {
		rootRef = pagesRef.Ref
	}
	var pages []Page
	doc.collectPages(rootRef, rootObj.Dict, Dict{}, &pages, 0)
	return pages, nil
}

// collectPages walks the page tree, accumulating inherited attributes.
func (doc *Document) collectPages(ref Reference, node Dict, inherited Dict, pages *[]Page, depth int) {
	if depth > maxNesting {
		return
	}

	merged := inherited
	cloned := false
	for _, key := range inheritable {
		if v, ok := node[key]; ok {
			if !cloned {
				clone := make(Dict, len(inherited)+1)
				for k, val := range inherited {
					clone[k] = val
				}
				merged = clone
				cloned = true
			}
			merged[key] = v
		}
	}

	if typ, _ := node.GetName("Type"); typ == "Page" {
		leaf := make(Dict, len(node)+len(merged))
		for k, v := range node {
			leaf[k] = v
		}
		for _, key := range inheritable {
			if _, own := leaf[key]; !own {
				if v, ok := merged[key]; ok {
					leaf[key] = v
				}
			}
		}
		*pages = append(*pages, Page{Ref: ref, Dict: leaf})
		return
	}

	kidsObj, ok := node["Kids"]
	if !ok {
		return
	}
	kids, err := doc.Resolve(kidsObj)
	if err != nil || kids.Type != ObjArray {
		return
	}
	for _, kidRef := range kids.Array {
		kid, err := doc.Resolve(kidRef)
		if err != nil || kid == nil {
			continue
		}
		if kid.Type != ObjDict && kid.Type != ObjStream {
			continue
		}
		var childRef Reference
		if kidRef.Type == ObjRef {
			childRef = kidRef.Ref
		}
		doc.collectPages(childRef, kid.Dict, merged, pages, depth+1)
	}
}

// PageInfo holds basic metadata about a single page.
type PageInfo struct {
	Width    float64
	Height   float64
	Rotation int
}

// GetPageInfo extracts dimensions and rotation for a page.
func (doc *Document) GetPageInfo(page Page) PageInfo {
	info := PageInfo{}
	if mbObj, ok := page.Dict["MediaBox"]; ok {
		mb, err := doc.Resolve(mbObj)
		if err == nil && mb.Type == ObjArray && len(mb.Array) >= 4 {
			info.Width = floatFromObj(mb.Array[2]) - floatFromObj(mb.Array[0])
			info.Height = floatFromObj(mb.Array[3]) - floatFromObj(mb.Array[1])
		}
	}
	if rotObj, ok := page.Dict["Rotate"]; ok {
		rot, err := doc.Resolve(rotObj)
		if err == nil && rot.Type == ObjInt {
			info.Rotation = int(rot.Int)
		}
	}
	return info
}

func floatFromObj(obj *Object) float64 {
	if obj == nil {
		return 0
	}
	switch obj.Type {
	case ObjFloat:
		return obj.Float
	case ObjInt:
		return float64(obj.Int)
	}
	return 0
}
