package docbind

import "fmt"

// BrokenLink records a link whose resolved target does not exist on the
// filesystem. Broken links never abort discovery.
type BrokenLink struct {
	// Source is the canonical path of the file containing the link.
	Source string
	// Target is the resolved path that was not found.
	Target string
}

// TruncatedLink records a link that was not followed because following
// it would exceed the configured depth bound.
type TruncatedLink struct {
	// Source is the canonical path of the file containing the link.
	Source string
	// Target is the resolved path that was not followed.
	Target string
	// Depth is the depth the target would have entered at.
	Depth int
}

// Discovery is the outcome of one hierarchy walk: the ordered set of
// files to merge plus the non-fatal conditions met along the way.
type Discovery struct {
	// Order lists canonical paths in the order they were first
	// discovered. The root is always element 0, and merge order
	// follows this sequence.
	Order []string
	// Broken lists links whose targets do not exist.
	Broken []BrokenLink
	// Truncated lists links cut off by the depth bound.
	Truncated []TruncatedLink
}

// MergeReport summarizes one MergeLinked run.
type MergeReport struct {
	// Order is the discovery order the merge followed.
	Order []string
	// Broken lists links whose targets were missing during discovery.
	Broken []BrokenLink
	// Truncated lists links cut off by the depth bound.
	Truncated []TruncatedLink
	// Failed lists files that could not be rendered and were left out
	// of the merged output.
	Failed []*RenderError
	// OutputPath is where the merged PDF was written.
	OutputPath string
	// Pages is the page count of the merged document.
	Pages int
}

// Summary returns a one-line human-readable account of the run.
func (r *MergeReport) Summary() string {
	return fmt.Sprintf("merged %d of %d file(s) into %s (%d pages, %d broken link(s), %d depth-truncated, %d render failure(s))",
		len(r.Order)-len(r.Failed), len(r.Order), r.OutputPath, r.Pages, len(r.Broken), len(r.Truncated), len(r.Failed))
}
