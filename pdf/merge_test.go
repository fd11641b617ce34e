package pdf

import (
	"bytes"
	"testing"
)

func intObj(n int64) *Object   { return &Object{Type: ObjInt, Int: n} }
func nameObj(n string) *Object { return &Object{Type: ObjName, Name: n} }
func refObj(num int) *Object   { return &Object{Type: ObjRef, Ref: Reference{Number: num}} }

func rectObj(w int64) *Object {
	return &Object{Type: ObjArray, Array: []*Object{intObj(0), intObj(0), intObj(w), intObj(792)}}
}

// testDoc builds a document through the Writer; build receives the
// writer plus the pre-allocated pages-node id and returns the page ids.
func testDoc(t *testing.T, build func(w *Writer, pagesID int) []int) []byte {
	t.Helper()
	w := NewWriter()
	catalogID := w.Alloc()
	pagesID := w.Alloc()

	pageIDs := build(w, pagesID)

	kids := make([]*Object, len(pageIDs))
	for i, id := range pageIDs {
		kids[i] = refObj(id)
	}
	if err := w.WriteObject(pagesID, &Object{Type: ObjDict, Dict: Dict{
		"Type":  nameObj("Pages"),
		"Kids":  {Type: ObjArray, Array: kids},
		"Count": intObj(int64(len(pageIDs))),
	}}); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteObject(catalogID, &Object{Type: ObjDict, Dict: Dict{
		"Type":  nameObj("Catalog"),
		"Pages": refObj(pagesID),
	}}); err != nil {
		t.Fatal(err)
	}
	data, err := w.Finish(Reference{Number: catalogID})
	if err != nil {
		t.Fatal(err)
	}
	return data
}

// simplePage writes one page with the given width and extra entries.
func simplePage(t *testing.T, w *Writer, pagesID int, width int64, extra Dict) int {
	t.Helper()
	id := w.Alloc()
	page := Dict{
		"Type":     nameObj("Page"),
		"Parent":   refObj(pagesID),
		"MediaBox": rectObj(width),
	}
	for k, v := range extra {
		page[k] = v
	}
	if err := w.WriteObject(id, &Object{Type: ObjDict, Dict: page}); err != nil {
		t.Fatal(err)
	}
	return id
}

func onePageDoc(t *testing.T, width int64, extra Dict) []byte {
	t.Helper()
	return testDoc(t, func(w *Writer, pagesID int) []int {
		return []int{simplePage(t, w, pagesID, width, extra)}
	})
}

func linkAnnot(action *Object, dest *Object) *Object {
	d := Dict{
		"Type":    nameObj("Annot"),
		"Subtype": nameObj("Link"),
		"Rect":    rectObj(100),
	}
	if action != nil {
		d["A"] = action
	}
	if dest != nil {
		d["Dest"] = dest
	}
	return &Object{Type: ObjDict, Dict: d}
}

func uriAction(uri string) *Object {
	return &Object{Type: ObjDict, Dict: Dict{
		"S":   nameObj("URI"),
		"URI": {Type: ObjString, Str: []byte(uri)},
	}}
}

func TestMerge_ErrorsOnNoInput(t *testing.T) {
	if _, err := Merge(nil); err == nil {
		t.Error("Merge(nil) succeeded")
	}
}

func TestMerge_ConcatenatesInOrder(t *testing.T) {
	inputs := []Input{
		{Data: onePageDoc(t, 100, nil), Path: "/a.html"},
		{Data: onePageDoc(t, 200, nil), Path: "/b.html"},
		{Data: onePageDoc(t, 300, nil), Path: "/c.html"},
	}
	merged, err := Merge(inputs)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if merged.Pages != 3 {
		t.Fatalf("Pages = %d, want 3", merged.Pages)
	}

	doc, err := Load(merged.Data)
	if err != nil {
		t.Fatalf("Load(merged): %v", err)
	}
	pages, err := doc.Pages()
	if err != nil {
		t.Fatalf("Pages: %v", err)
	}
	for i, want := range []float64{100, 200, 300} {
		if got := doc.GetPageInfo(pages[i]).Width; got != want {
			t.Errorf("page %d width = %v, want %v", i, got, want)
		}
	}
}

func TestMerge_MultiPageInputKeepsInternalLinks(t *testing.T) {
	// A two-page document whose first page links to its second page by
	// direct destination; renumbering must not break the link.
	data := testDoc(t, func(w *Writer, pagesID int) []int {
		second := w.Alloc()
		first := simplePage(t, w, pagesID, 100, Dict{
			"Annots": {Type: ObjArray, Array: []*Object{
				linkAnnot(nil, &Object{Type: ObjArray, Array: []*Object{refObj(second), nameObj("Fit")}}),
			}},
		})
		if err := w.WriteObject(second, &Object{Type: ObjDict, Dict: Dict{
			"Type":     nameObj("Page"),
			"Parent":   refObj(pagesID),
			"MediaBox": rectObj(150),
		}}); err != nil {
			t.Fatal(err)
		}
		return []int{first, second}
	})

	merged, err := Merge([]Input{
		{Data: onePageDoc(t, 50, nil), Path: "/front.html"},
		{Data: data, Path: "/two.html"},
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if merged.Pages != 3 {
		t.Fatalf("Pages = %d, want 3", merged.Pages)
	}

	doc, err := Load(merged.Data)
	if err != nil {
		t.Fatalf("Load(merged): %v", err)
	}
	pages, err := doc.Pages()
	if err != nil {
		t.Fatalf("Pages: %v", err)
	}

	annots, ok := pages[1].Dict.GetArray("Annots")
	if !ok || len(annots) != 1 {
		t.Fatalf("page 1 annots = %v", annots)
	}
	annot, _ := doc.Resolve(annots[0])
	dest, ok := annot.Dict.GetArray("Dest")
	if !ok || len(dest) != 2 {
		t.Fatalf("dest = %v", dest)
	}
	if dest[0].Ref != pages[2].Ref {
		t.Errorf("internal link points at %+v, want %+v", dest[0].Ref, pages[2].Ref)
	}
}

func TestMerge_RewritesFileURILinks(t *testing.T) {
	first := onePageDoc(t, 100, Dict{
		"Annots": {Type: ObjArray, Array: []*Object{
			linkAnnot(uriAction("file:///docs/b.html#top"), nil),
		}},
	})
	second := onePageDoc(t, 200, nil)

	merged, err := Merge([]Input{
		{Data: first, Path: "/docs/a.html"},
		{Data: second, Path: "/docs/b.html"},
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	doc, err := Load(merged.Data)
	if err != nil {
		t.Fatalf("Load(merged): %v", err)
	}
	pages, err := doc.Pages()
	if err != nil {
		t.Fatalf("Pages: %v", err)
	}

	annots, _ := pages[0].Dict.GetArray("Annots")
	annot, _ := doc.Resolve(annots[0])
	if _, hasAction := annot.Dict["A"]; hasAction {
		t.Error("URI action survived the rewrite")
	}
	dest, ok := annot.Dict.GetArray("Dest")
	if !ok || len(dest) != 2 {
		t.Fatalf("dest = %v", dest)
	}
	if dest[0].Ref != pages[1].Ref {
		t.Errorf("link points at %+v, want %+v", dest[0].Ref, pages[1].Ref)
	}
	if dest[1].Name != "Fit" {
		t.Errorf("dest mode = %q, want Fit", dest[1].Name)
	}
}

func TestMerge_ForeignURILinksKept(t *testing.T) {
	data := onePageDoc(t, 100, Dict{
		"Annots": {Type: ObjArray, Array: []*Object{
			linkAnnot(uriAction("https://example.com/"), nil),
		}},
	})
	merged, err := Merge([]Input{{Data: data, Path: "/a.html"}})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	doc, err := Load(merged.Data)
	if err != nil {
		t.Fatalf("Load(merged): %v", err)
	}
	pages, _ := doc.Pages()
	annots, _ := pages[0].Dict.GetArray("Annots")
	annot, _ := doc.Resolve(annots[0])
	action, ok := annot.Dict.GetDict("A")
	if !ok {
		t.Fatal("external link lost its action")
	}
	uri, _ := doc.Resolve(action["URI"])
	if string(uri.Str) != "https://example.com/" {
		t.Errorf("URI = %q", uri.Str)
	}
}

func TestMerge_SharedObjectsCopiedOnce(t *testing.T) {
	// Two pages referencing the same font object; after merging, both
	// pages must point at a single copied object.
	data := testDoc(t, func(w *Writer, pagesID int) []int {
		fontID := w.Alloc()
		if err := w.WriteObject(fontID, &Object{Type: ObjDict, Dict: Dict{
			"Type":     nameObj("Font"),
			"Subtype":  nameObj("Type1"),
			"BaseFont": nameObj("Helvetica"),
		}}); err != nil {
			t.Fatal(err)
		}
		resources := func() *Object {
			return &Object{Type: ObjDict, Dict: Dict{
				"Font": {Type: ObjDict, Dict: Dict{"F1": refObj(fontID)}},
			}}
		}
		p1 := simplePage(t, w, pagesID, 100, Dict{"Resources": resources()})
		p2 := simplePage(t, w, pagesID, 200, Dict{"Resources": resources()})
		return []int{p1, p2}
	})

	merged, err := Merge([]Input{{Data: data, Path: "/a.html"}})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	doc, err := Load(merged.Data)
	if err != nil {
		t.Fatalf("Load(merged): %v", err)
	}
	pages, _ := doc.Pages()
	fontRef := func(pg Page) Reference {
		res, _ := pg.Dict.GetDict("Resources")
		fonts, _ := res.GetDict("Font")
		return fonts["F1"].Ref
	}
	r1, r2 := fontRef(pages[0]), fontRef(pages[1])
	if r1 != r2 {
		t.Errorf("shared font split into %+v and %+v", r1, r2)
	}
}

func TestMerge_ContentStreamsVerbatim(t *testing.T) {
	content := []byte("BT /F1 24 Tf 72 720 Td (Hello) Tj ET")
	data := testDoc(t, func(w *Writer, pagesID int) []int {
		contentID := w.Alloc()
		if err := w.WriteObject(contentID, &Object{
			Type:   ObjStream,
			Dict:   Dict{"Length": intObj(int64(len(content)))},
			Stream: content,
		}); err != nil {
			t.Fatal(err)
		}
		return []int{simplePage(t, w, pagesID, 100, Dict{"Contents": refObj(contentID)})}
	})

	merged, err := Merge([]Input{{Data: data, Path: ""}})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	doc, err := Load(merged.Data)
	if err != nil {
		t.Fatalf("Load(merged): %v", err)
	}
	pages, _ := doc.Pages()
	contents, err := doc.Resolve(pages[0].Dict["Contents"])
	if err != nil || contents.Type != ObjStream {
		t.Fatalf("contents = %+v, err %v", contents, err)
	}
	if !bytes.Equal(contents.Stream, content) {
		t.Errorf("content stream = %q, want %q", contents.Stream, content)
	}
}

func TestMerge_InheritedAttributesFolded(t *testing.T) {
	// MediaBox lives on the pages node of the source; the merged page
	// must carry it directly since the source tree is not copied.
	data := buildRawPDF([]string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 240 360] >>",
		"<< /Type /Page /Parent 2 0 R >>",
	}, "")

	merged, err := Merge([]Input{{Data: data, Path: "/a.html"}})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	doc, err := Load(merged.Data)
	if err != nil {
		t.Fatalf("Load(merged): %v", err)
	}
	pages, _ := doc.Pages()
	info := doc.GetPageInfo(pages[0])
	if info.Width != 240 || info.Height != 360 {
		t.Errorf("merged page size = %vx%v, want 240x360", info.Width, info.Height)
	}
}

func TestMerge_InlinePageDictInKids(t *testing.T) {
	// A page dict embedded directly in the Kids array has no object
	// number; the merge must still place it once, in order, between
	// the indirect pages around it.
	data := buildRawPDF([]string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R << /Type /Page /Parent 2 0 R /MediaBox [0 0 200 792] >>] /Count 2 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 100 792] >>",
	}, "")

	merged, err := Merge([]Input{
		{Data: data, Path: "/a.html"},
		{Data: onePageDoc(t, 300, nil), Path: "/b.html"},
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if merged.Pages != 3 {
		t.Fatalf("Pages = %d, want 3", merged.Pages)
	}
	doc, err := Load(merged.Data)
	if err != nil {
		t.Fatalf("Load(merged): %v", err)
	}
	pages, err := doc.Pages()
	if err != nil || len(pages) != 3 {
		t.Fatalf("Pages() = %d pages, err %v", len(pages), err)
	}
	for i, want := range []float64{100, 200, 300} {
		if got := doc.GetPageInfo(pages[i]).Width; got != want {
			t.Errorf("page %d width = %v, want %v", i, got, want)
		}
	}
}
