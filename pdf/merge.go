package pdf

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Input is one document to merge. Path is the canonical filesystem path
// of the HTML source the PDF was rendered from; link annotations in any
// input that point at this path are rewritten to jump to the input's
// first page in the merged output. An empty Path disables rewriting for
// that input.
type Input struct {
	Data []byte
	Path string
}

// Merged is the result of a Merge call.
type Merged struct {
	Data  []byte
	Pages int
}

// Merge concatenates the pages of the given documents, in input order,
// into one PDF. Objects reachable from each page (resources, fonts,
// content streams, annotations) are copied over with renumbered object
// ids; stream data is copied verbatim without re-encoding.
//
// Link annotations whose URI action targets the source path of another
// input are converted into in-document destinations, so cross-document
// links keep working after concatenation.
func Merge(inputs []Input) (*Merged, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no documents to merge")
	}

	type loaded struct {
		doc   *Document
		pages []Page
	}
	docs := make([]loaded, 0, len(inputs))
	destByPath := make(map[string]int) // canonical path -> global page index
	total := 0
	for i, in := range inputs {
		doc, err := Load(in.Data)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		pages, err := doc.Pages()
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		if in.Path != "" && len(pages) > 0 {
			destByPath[filepath.Clean(in.Path)] = total
		}
		docs = append(docs, loaded{doc: doc, pages: pages})
		total += len(pages)
	}

	w := NewWriter()
	catalogID := w.Alloc()
	pagesNodeID := w.Alloc()
	pagesNodeRef := Reference{Number: pagesNodeID}

	// Pre-allocate every output page id so link destinations and /P
	// back-references can be resolved before the pages are written.
	outPageIDs := make([]int, 0, total)
	pageIDsByDoc := make([][]int, len(docs))
	for i, d := range docs {
		ids := make([]int, len(d.pages))
		for j := range d.pages {
			ids[j] = w.Alloc()
			outPageIDs = append(outPageIDs, ids[j])
		}
		pageIDsByDoc[i] = ids
	}

	for i, d := range docs {
		imp := &importer{
			doc:        d.doc,
			w:          w,
			memo:       make(map[int]int),
			destByPath: destByPath,
			outPageIDs: outPageIDs,
		}
		// Source page objects map onto the pre-allocated output pages,
		// so in-document destinations survive renumbering. A zero Ref
		// means the page dict sat inline in the Kids array; with no
		// object number of its own, no destination in the source can
		// name it, so skipping the memo entry cannot alias it.
		for j, pg := range d.pages {
			if !pg.Ref.IsZero() {
				imp.memo[pg.Ref.Number] = pageIDsByDoc[i][j]
			}
		}
		for j, pg := range d.pages {
			copied, err := imp.copyPage(pg.Dict, pagesNodeRef)
			if err != nil {
				return nil, fmt.Errorf("input %d page %d: %w", i, j, err)
			}
			if err := w.WriteObject(pageIDsByDoc[i][j], &Object{Type: ObjDict, Dict: copied}); err != nil {
				return nil, err
			}
		}
	}

	kids := make([]*Object, len(outPageIDs))
	for i, id := range outPageIDs {
		kids[i] = &Object{Type: ObjRef, Ref: Reference{Number: id}}
	}
	pagesNode := Dict{
		"Type":  {Type: ObjName, Name: "Pages"},
		"Kids":  {Type: ObjArray, Array: kids},
		"Count": {Type: ObjInt, Int: int64(len(outPageIDs))},
	}
	if err := w.WriteObject(pagesNodeID, &Object{Type: ObjDict, Dict: pagesNode}); err != nil {
		return nil, err
	}

	catalog := Dict{
		"Type":  {Type: ObjName, Name: "Catalog"},
		"Pages": {Type: ObjRef, Ref: pagesNodeRef},
	}
	if err := w.WriteObject(catalogID, &Object{Type: ObjDict, Dict: catalog}); err != nil {
		return nil, err
	}

	data, err := w.Finish(Reference{Number: catalogID})
	if err != nil {
		return nil, err
	}
	return &Merged{Data: data, Pages: len(outPageIDs)}, nil
}

// importer copies an object graph from a source document into a Writer,
// renumbering indirect references as it goes.
type importer struct {
	doc        *Document
	w          *Writer
	memo       map[int]int // source object number -> output object number
	destByPath map[string]int
	outPageIDs []int
}

// copyPage copies a page dictionary, dropping the source /Parent,
// inlining rewritten annotations, and pointing the page at the merged
// page tree node.
func (imp *importer) copyPage(page Dict, parent Reference) (Dict, error) {
	out := make(Dict, len(page)+1)
	for key, val := range page {
		switch key {
		case "Parent":
			// Replaced below; copying it would drag in the source tree.
		case "Annots":
			annots, err := imp.copyAnnots(val)
			if err != nil {
				return nil, err
			}
			if annots != nil {
				out[key] = annots
			}
		default:
			copied, err := imp.copyValue(val)
			if err != nil {
				return nil, err
			}
			out[key] = copied
		}
	}
	out["Parent"] = &Object{Type: ObjRef, Ref: parent}
	return out, nil
}

// copyAnnots copies an annotation array, rewriting link annotations
// that target merged inputs. Annotations are inlined into the page so
// the rewrite never has to touch an already-written object.
func (imp *importer) copyAnnots(val *Object) (*Object, error) {
	resolved, err := imp.doc.Resolve(val)
	if err != nil || resolved == nil || resolved.Type != ObjArray {
		return nil, err
	}
	out := make([]*Object, 0, len(resolved.Array))
	for _, el := range resolved.Array {
		annot, err := imp.doc.Resolve(el)
		if err != nil || annot == nil {
			continue
		}
		if annot.Type != ObjDict {
			continue
		}
		copied, err := imp.copyAnnot(annot.Dict)
		if err != nil {
			return nil, err
		}
		out = append(out, &Object{Type: ObjDict, Dict: copied})
	}
	return &Object{Type: ObjArray, Array: out}, nil
}

// copyAnnot copies one annotation dictionary. A link annotation whose
// URI action resolves to a merged input's source path has its action
// replaced with a direct destination on that input's first page.
func (imp *importer) copyAnnot(annot Dict) (Dict, error) {
	destPage := -1
	if subtype, _ := annot.GetName("Subtype"); subtype == "Link" {
		if target := imp.linkTarget(annot); target != "" {
			if idx, ok := imp.destByPath[target]; ok {
				destPage = idx
			}
		}
	}

	out := make(Dict, len(annot)+1)
	for key, val := range annot {
		if destPage >= 0 && (key == "A" || key == "Dest") {
			continue
		}
		copied, err := imp.copyValue(val)
		if err != nil {
			return nil, err
		}
		out[key] = copied
	}
	if destPage >= 0 {
		out["Dest"] = &Object{Type: ObjArray, Array: []*Object{
			{Type: ObjRef, Ref: Reference{Number: imp.outPageIDs[destPage]}},
			{Type: ObjName, Name: "Fit"},
		}}
	}
	return out, nil
}

// linkTarget extracts the local filesystem path a link annotation's URI
// action points at, or "" when the annotation is not a file URI link.
func (imp *importer) linkTarget(annot Dict) string {
	actionObj, ok := annot["A"]
	if !ok {
		return ""
	}
	action, err := imp.doc.Resolve(actionObj)
	if err != nil || action == nil || (action.Type != ObjDict && action.Type != ObjStream) {
		return ""
	}
	if s, _ := action.Dict.GetName("S"); s != "URI" {
		return ""
	}
	uriObj, ok := action.Dict["URI"]
	if !ok {
		return ""
	}
	uri, err := imp.doc.Resolve(uriObj)
	if err != nil || uri == nil || uri.Type != ObjString {
		return ""
	}
	return fileURIToPath(string(uri.Str))
}

// fileURIToPath converts a file:// URI to a cleaned filesystem path,
// dropping any fragment. Non-file URIs yield "".
func fileURIToPath(uri string) string {
	if !strings.HasPrefix(uri, "file://") {
		return ""
	}
	u, err := url.Parse(uri)
	if err != nil || u.Path == "" {
		return ""
	}
	return filepath.Clean(filepath.FromSlash(u.Path))
}

// copyValue deep-copies an object, renumbering indirect references.
// The memo is populated before a referenced object is descended into,
// which makes reference cycles terminate.
func (imp *importer) copyValue(obj *Object) (*Object, error) {
	if obj == nil {
		return &Object{Type: ObjNull}, nil
	}
	switch obj.Type {
	case ObjRef:
		if id, ok := imp.memo[obj.Ref.Number]; ok {
			return &Object{Type: ObjRef, Ref: Reference{Number: id}}, nil
		}
		id := imp.w.Alloc()
		imp.memo[obj.Ref.Number] = id
		target, err := imp.doc.ResolveRef(obj.Ref)
		if err != nil {
			return nil, err
		}
		copied, err := imp.copyValue(target)
		if err != nil {
			return nil, err
		}
		if err := imp.w.WriteObject(id, copied); err != nil {
			return nil, err
		}
		return &Object{Type: ObjRef, Ref: Reference{Number: id}}, nil
	case ObjArray:
		out := make([]*Object, len(obj.Array))
		for i, el := range obj.Array {
			copied, err := imp.copyValue(el)
			if err != nil {
				return nil, err
			}
			out[i] = copied
		}
		return &Object{Type: ObjArray, Array: out}, nil
	case ObjDict:
		out := make(Dict, len(obj.Dict))
		for k, v := range obj.Dict {
			copied, err := imp.copyValue(v)
			if err != nil {
				return nil, err
			}
			out[k] = copied
		}
		return &Object{Type: ObjDict, Dict: out}, nil
	case ObjStream:
		out := make(Dict, len(obj.Dict))
		for k, v := range obj.Dict {
			copied, err := imp.copyValue(v)
			if err != nil {
				return nil, err
			}
			out[k] = copied
		}
		return &Object{Type: ObjStream, Dict: out, Stream: obj.Stream}, nil
	default:
		// Scalars carry no references; a shallow copy suffices.
		clone := *obj
		return &clone, nil
	}
}
