// Package pdf implements the subset of the PDF file format needed to
// concatenate rendered documents: an object model with a recursive-descent
// parser, cross-reference loading, an incremental writer, and a page-level
// merger that preserves link navigation between merged inputs.
package pdf

import (
	"bytes"
	"fmt"
	"strconv"
)

// ObjectType identifies the kind of a PDF object.
type ObjectType int

const (
	ObjNull ObjectType = iota
	ObjBool
	ObjInt
	ObjFloat
	ObjString
	ObjName
	ObjArray
	ObjDict
	ObjStream
	ObjRef
)

// Object holds any PDF object value. Exactly one of the value fields is
// meaningful, selected by Type.
type Object struct {
	Type   ObjectType
	Bool   bool
	Int    int64
	Float  float64
	Str    []byte
	Name   string
	Array  []*Object
	Dict   Dict
	Stream []byte // raw (still encoded) stream data
	Ref    Reference
}

// Reference is an indirect object reference (N G R).
type Reference struct {
	Number int
	Gen    int
}

// IsZero reports whether the reference is the zero reference.
func (r Reference) IsZero() bool { return r.Number == 0 && r.Gen == 0 }

// Dict is a PDF dictionary keyed by name.
type Dict map[string]*Object

// GetInt returns the integer value of an entry, coercing floats.
func (d Dict) GetInt(key string) (int64, bool) {
	obj, ok := d[key]
	if !ok {
		return 0, false
	}
	switch obj.Type {
	case ObjInt:
		return obj.Int, true
	case ObjFloat:
		return int64(obj.Float), true
	}
	return 0, false
}

// GetName returns the name value of an entry.
func (d Dict) GetName(key string) (string, bool) {
	obj, ok := d[key]
	if !ok {
		return "", false
	}
	if obj.Type == ObjName {
		return obj.Name, true
	}
	return "", false
}

// GetArray returns the array value of an entry. A non-array object is
// treated as a one-element array, matching how viewers read /Kids and
// /Contents entries written by sloppy producers.
func (d Dict) GetArray(key string) ([]*Object, bool) {
	obj, ok := d[key]
	if !ok {
		return nil, false
	}
	if obj.Type == ObjArray {
		return obj.Array, true
	}
	return []*Object{obj}, true
}

// GetDict returns the dictionary value of an entry. A stream object
// yields its stream dictionary.
func (d Dict) GetDict(key string) (Dict, bool) {
	obj, ok := d[key]
	if !ok {
		return nil, false
	}
	if obj.Type == ObjDict || obj.Type == ObjStream {
		return obj.Dict, true
	}
	return nil, false
}

// maxNesting bounds parser recursion on hostile input.
const maxNesting = 100

// Parser is a recursive-descent parser over a raw PDF byte slice.
type Parser struct {
	data  []byte
	pos   int
	depth int
}

// NewParser creates a parser positioned at pos within data.
func NewParser(data []byte, pos int) *Parser {
	return &Parser{data: data, pos: pos}
}

// Pos returns the current parse position.
func (p *Parser) Pos() int { return p.pos }

// SetPos moves the parse position.
func (p *Parser) SetPos(pos int) { p.pos = pos }

func isDelim(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isWhitespace(b byte) bool {
	switch b {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

// skipWhitespace skips whitespace and %-comments.
func (p *Parser) skipWhitespace() {
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		switch {
		case c == '%':
			for p.pos < len(p.data) && p.data[p.pos] != '\n' && p.data[p.pos] != '\r' {
				p.pos++
			}
		case isWhitespace(c):
			p.pos++
		default:
			return
		}
	}
}

// match advances past s if the upcoming bytes equal it.
func (p *Parser) match(s string) bool {
	end := p.pos + len(s)
	if end > len(p.data) || string(p.data[p.pos:end]) != s {
		return false
	}
	p.pos = end
	return true
}

// readToken reads a run of non-whitespace, non-delimiter bytes.
func (p *Parser) readToken() string {
	start := p.pos
	for p.pos < len(p.data) && !isWhitespace(p.data[p.pos]) && !isDelim(p.data[p.pos]) {
		p.pos++
	}
	return string(p.data[start:p.pos])
}

// ParseObject parses one PDF object at the current position.
func (p *Parser) ParseObject() (*Object, error) {
	if p.depth > maxNesting {
		return nil, fmt.Errorf("exceeded maximum nesting depth")
	}
	p.depth++
	defer func() { p.depth-- }()

	p.skipWhitespace()
	if p.pos >= len(p.data) {
		return &Object{Type: ObjNull}, nil
	}

	c := p.data[p.pos]
	switch {
	case c == 'n' && p.match("null"):
		return &Object{Type: ObjNull}, nil
	case c == 't' && p.match("true"):
		return &Object{Type: ObjBool, Bool: true}, nil
	case c == 'f' && p.match("false"):
		return &Object{Type: ObjBool, Bool: false}, nil
	case c == '(':
		return p.parseLiteralString()
	case c == '<' && p.pos+1 < len(p.data) && p.data[p.pos+1] == '<':
		return p.parseDict()
	case c == '<':
		return p.parseHexString()
	case c == '/':
		return p.parseName()
	case c == '[':
		return p.parseArray()
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		return p.parseNumberOrRef()
	default:
		// Unknown token, skip a byte and report null.
		p.pos++
		return &Object{Type: ObjNull}, nil
	}
}

// parseLiteralString parses (...) with escape and nesting handling.
func (p *Parser) parseLiteralString() (*Object, error) {
	p.pos++ // '('
	var buf bytes.Buffer
	depth := 1
	for p.pos < len(p.data) && depth > 0 {
		c := p.data[p.pos]
		switch c {
		case '\\':
			p.pos++
			if p.pos >= len(p.data) {
				break
			}
			esc := p.data[p.pos]
			p.pos++
			switch esc {
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			case 'b':
				buf.WriteByte('\b')
			case 'f':
				buf.WriteByte('\f')
			case '(', ')', '\\':
				buf.WriteByte(esc)
			case '\r':
				// Escaped line break: continuation.
				if p.pos < len(p.data) && p.data[p.pos] == '\n' {
					p.pos++
				}
			case '\n':
				// Continuation.
			default:
				if esc >= '0' && esc <= '7' {
					oct := int(esc - '0')
					for i := 0; i < 2 && p.pos < len(p.data); i++ {
						d := p.data[p.pos]
						if d < '0' || d > '7' {
							break
						}
						oct = oct*8 + int(d-'0')
						p.pos++
					}
					buf.WriteByte(byte(oct))
				} else {
					buf.WriteByte(esc)
				}
			}
		case '(':
			depth++
			buf.WriteByte(c)
			p.pos++
		case ')':
			depth--
			if depth > 0 {
				buf.WriteByte(c)
			}
			p.pos++
		default:
			buf.WriteByte(c)
			p.pos++
		}
	}
	return &Object{Type: ObjString, Str: buf.Bytes()}, nil
}

// parseHexString parses <...>.
func (p *Parser) parseHexString() (*Object, error) {
	p.pos++ // '<'
	var buf bytes.Buffer
	for p.pos < len(p.data) && p.data[p.pos] != '>' {
		p.skipWhitespace()
		if p.pos >= len(p.data) || p.data[p.pos] == '>' {
			break
		}
		hi := hexVal(p.data[p.pos])
		p.pos++
		var lo byte
		if p.pos < len(p.data) && p.data[p.pos] != '>' {
			lo = hexVal(p.data[p.pos])
			p.pos++
		}
		buf.WriteByte(hi<<4 | lo)
	}
	if p.pos < len(p.data) {
		p.pos++ // '>'
	}
	return &Object{Type: ObjString, Str: buf.Bytes()}, nil
}

func hexVal(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10
	}
	return 0
}

// parseName parses /Name, decoding #XX escapes.
func (p *Parser) parseName() (*Object, error) {
	p.pos++ // '/'
	start := p.pos
	for p.pos < len(p.data) && !isWhitespace(p.data[p.pos]) && !isDelim(p.data[p.pos]) {
		p.pos++
	}
	name := string(p.data[start:p.pos])
	if bytes.IndexByte([]byte(name), '#') >= 0 {
		var buf bytes.Buffer
		for i := 0; i < len(name); {
			if name[i] == '#' && i+2 < len(name) {
				buf.WriteByte(hexVal(name[i+1])<<4 | hexVal(name[i+2]))
				i += 3
			} else {
				buf.WriteByte(name[i])
				i++
			}
		}
		name = buf.String()
	}
	return &Object{Type: ObjName, Name: name}, nil
}

// parseArray parses [...].
func (p *Parser) parseArray() (*Object, error) {
	p.pos++ // '['
	var arr []*Object
	for {
		p.skipWhitespace()
		if p.pos >= len(p.data) {
			break
		}
		if p.data[p.pos] == ']' {
			p.pos++
			break
		}
		obj, err := p.ParseObject()
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
	return &Object{Type: ObjArray, Array: arr}, nil
}

// parseDict parses <<...>>, followed by stream data when the dictionary
// introduces a stream object.
func (p *Parser) parseDict() (*Object, error) {
	p.pos += 2 // '<<'
	d := make(Dict)
	for {
		p.skipWhitespace()
		if p.pos >= len(p.data) {
			break
		}
		if p.pos+1 < len(p.data) && p.data[p.pos] == '>' && p.data[p.pos+1] == '>' {
			p.pos += 2
			break
		}
		if p.data[p.pos] != '/' {
			// Malformed entry, resynchronize.
			p.pos++
			continue
		}
		key, err := p.parseName()
		if err != nil {
			return nil, err
		}
		val, err := p.ParseObject()
		if err != nil {
			return nil, err
		}
		d[key.Name] = val
	}

	p.skipWhitespace()
	if !p.match("stream") {
		return &Object{Type: ObjDict, Dict: d}, nil
	}
	if p.pos < len(p.data) && p.data[p.pos] == '\r' {
		p.pos++
	}
	if p.pos < len(p.data) && p.data[p.pos] == '\n' {
		p.pos++
	}

	start := p.pos
	length := -1
	if lenObj, ok := d["Length"]; ok && lenObj.Type == ObjInt {
		length = int(lenObj.Int)
	}

	var raw []byte
	if length >= 0 && start+length <= len(p.data) {
		raw = p.data[start : start+length]
		p.pos = start + length
	} else {
		// Length missing or an unresolved reference: scan for endstream.
		end := bytes.Index(p.data[start:], []byte("endstream"))
		if end < 0 {
			end = len(p.data) - start
		}
		raw = p.data[start : start+end]
		p.pos = start + end
	}
	p.skipWhitespace()
	p.match("endstream")

	return &Object{Type: ObjStream, Dict: d, Stream: raw}, nil
}

// parseNumberOrRef parses a number, or an indirect reference "N G R".
func (p *Parser) parseNumberOrRef() (*Object, error) {
	numStr := p.readToken()
	n, errN := strconv.ParseInt(numStr, 10, 64)

	if errN == nil {
		afterNum := p.pos
		p.skipWhitespace()
		genStr := p.readToken()
		if g, err := strconv.ParseInt(genStr, 10, 64); err == nil {
			p.skipWhitespace()
			if p.pos < len(p.data) && p.data[p.pos] == 'R' {
				next := p.pos + 1
				if next >= len(p.data) || isWhitespace(p.data[next]) || isDelim(p.data[next]) {
					p.pos = next
					return &Object{Type: ObjRef, Ref: Reference{Number: int(n), Gen: int(g)}}, nil
				}
			}
		}
		p.pos = afterNum
		return &Object{Type: ObjInt, Int: n}, nil
	}

	if f, err := strconv.ParseFloat(numStr, 64); err == nil {
		return &Object{Type: ObjFloat, Float: f}, nil
	}
	return &Object{Type: ObjNull}, nil
}
