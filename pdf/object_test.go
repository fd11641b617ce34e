package pdf

import (
	"strings"
	"testing"
)

func parseOne(t *testing.T, src string) *Object {
	t.Helper()
	obj, err := NewParser([]byte(src), 0).ParseObject()
	if err != nil {
		t.Fatalf("ParseObject(%q): %v", src, err)
	}
	return obj
}

func TestParseScalars(t *testing.T) {
	tests := []struct {
		src     string
		typ     ObjectType
		wantInt int64
	}{
		{"null", ObjNull, 0},
		{"true", ObjBool, 0},
		{"false", ObjBool, 0},
		{"42", ObjInt, 42},
		{"-17", ObjInt, -17},
		{"0", ObjInt, 0},
	}
	for _, tt := range tests {
		obj := parseOne(t, tt.src)
		if obj.Type != tt.typ {
			t.Errorf("parse(%q) type = %v, want %v", tt.src, obj.Type, tt.typ)
		}
		if tt.typ == ObjInt && obj.Int != tt.wantInt {
			t.Errorf("parse(%q) int = %d, want %d", tt.src, obj.Int, tt.wantInt)
		}
	}
}

func TestParseFloat(t *testing.T) {
	obj := parseOne(t, "3.14")
	if obj.Type != ObjFloat || obj.Float != 3.14 {
		t.Errorf("parse(3.14) = %+v", obj)
	}
	obj = parseOne(t, "-.5")
	if obj.Type != ObjFloat || obj.Float != -0.5 {
		t.Errorf("parse(-.5) = %+v", obj)
	}
}

func TestParseLiteralString(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"(hello)", "hello"},
		{"(nested (parens) work)", "nested (parens) work"},
		{`(esc \( and \) and \\)`, `esc ( and ) and \`},
		{`(line\nbreak)`, "line\nbreak"},
		{`(\101BC)`, "ABC"},
		{"()", ""},
	}
	for _, tt := range tests {
		obj := parseOne(t, tt.src)
		if obj.Type != ObjString {
			t.Fatalf("parse(%q) type = %v, want string", tt.src, obj.Type)
		}
		if string(obj.Str) != tt.want {
			t.Errorf("parse(%q) = %q, want %q", tt.src, obj.Str, tt.want)
		}
	}
}

func TestParseHexString(t *testing.T) {
	obj := parseOne(t, "<48656C6C6F>")
	if string(obj.Str) != "Hello" {
		t.Errorf("hex string = %q, want Hello", obj.Str)
	}
	// An odd digit count is padded with zero.
	obj = parseOne(t, "<48656C6C6F2>")
	if string(obj.Str) != "Hello " {
		t.Errorf("odd hex string = %q, want %q", obj.Str, "Hello ")
	}
}

func TestParseName(t *testing.T) {
	obj := parseOne(t, "/Type")
	if obj.Type != ObjName || obj.Name != "Type" {
		t.Errorf("parse(/Type) = %+v", obj)
	}
	obj = parseOne(t, "/A#20B")
	if obj.Name != "A B" {
		t.Errorf("hex-escaped name = %q, want %q", obj.Name, "A B")
	}
}

func TestParseArray(t *testing.T) {
	obj := parseOne(t, "[1 2.5 /Name (str) [3]]")
	if obj.Type != ObjArray || len(obj.Array) != 5 {
		t.Fatalf("array parse = %+v", obj)
	}
	if obj.Array[0].Int != 1 {
		t.Errorf("array[0] = %+v", obj.Array[0])
	}
	if obj.Array[4].Type != ObjArray || obj.Array[4].Array[0].Int != 3 {
		t.Errorf("nested array = %+v", obj.Array[4])
	}
}

func TestParseDict(t *testing.T) {
	obj := parseOne(t, "<< /Type /Page /Count 3 /Kids [1 0 R 2 0 R] >>")
	if obj.Type != ObjDict {
		t.Fatalf("dict parse type = %v", obj.Type)
	}
	if name, _ := obj.Dict.GetName("Type"); name != "Page" {
		t.Errorf("Type = %q, want Page", name)
	}
	if count, _ := obj.Dict.GetInt("Count"); count != 3 {
		t.Errorf("Count = %d, want 3", count)
	}
	kids, _ := obj.Dict.GetArray("Kids")
	if len(kids) != 2 || kids[0].Type != ObjRef || kids[0].Ref.Number != 1 {
		t.Errorf("Kids = %+v", kids)
	}
}

func TestParseReferenceVsNumbers(t *testing.T) {
	// "5 0 R" is one reference; "5 0 7" is three numbers.
	obj := parseOne(t, "[5 0 R 5 0 7]")
	if len(obj.Array) != 4 {
		t.Fatalf("array length = %d, want 4", len(obj.Array))
	}
	if obj.Array[0].Type != ObjRef || obj.Array[0].Ref != (Reference{Number: 5}) {
		t.Errorf("array[0] = %+v, want ref 5 0", obj.Array[0])
	}
	for i, want := range []int64{5, 0, 7} {
		got := obj.Array[i+1]
		if got.Type != ObjInt || got.Int != want {
			t.Errorf("array[%d] = %+v, want int %d", i+1, got, want)
		}
	}
}

func TestParseStream(t *testing.T) {
	src := "<< /Length 5 >>\nstream\nhello\nendstream"
	obj := parseOne(t, src)
	if obj.Type != ObjStream {
		t.Fatalf("stream parse type = %v", obj.Type)
	}
	if string(obj.Stream) != "hello" {
		t.Errorf("stream data = %q, want hello", obj.Stream)
	}
}

func TestParseSkipsComments(t *testing.T) {
	obj := parseOne(t, "% a comment\n  /Name")
	if obj.Type != ObjName || obj.Name != "Name" {
		t.Errorf("parse with comment = %+v", obj)
	}
}

func TestParseNestingLimit(t *testing.T) {
	deep := strings.Repeat("[", 200) + strings.Repeat("]", 200)
	if _, err := NewParser([]byte(deep), 0).ParseObject(); err == nil {
		t.Error("deeply nested input parsed without error")
	}
}
