package steps

import "github.com/grailbio/fqproc/combined"

// targetSegments returns the segment names op should run over: every
// declared segment if names is empty, otherwise just the named ones.
func targetSegments(blk *combined.Block, names []string) []string {
	if len(names) == 0 {
		return blk.SegmentOrder
	}
	return names
}
