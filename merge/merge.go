// Package merge applies translation results to a target .strings file
// without disturbing untouched entries, comments, or ordering.
package merge

import (
	"github.com/lproj/stringsync/batch"
	"github.com/lproj/stringsync/strfile"
)

// Stats summarizes one merge: which keys were updated in place, newly
// appended, deleted, or skipped because their translation failed.
type Stats struct {
	Updated []string
	Added   []string
	Removed []string
	Failed  []string
}

// Changed reports whether the merge altered the target file at all.
func (s Stats) Changed() bool {
	return len(s.Updated)+len(s.Added)+len(s.Removed) > 0
}

// Apply merges translation results and source-side removals into target.
//
//   - A successful result for an existing key updates only its value;
//     comment and position stay untouched.
//   - A successful result for a new key appends an entry at the end,
//     carrying over the source entry's comment if it has one.
//   - A failed result leaves the existing entry (if any) unchanged and
//     is recorded in Stats.Failed — no partial text is ever written.
//   - Every key in removed is deleted from the target entirely.
//
// Applying the same successful result set twice is a no-op the second
// time around.
func Apply(target, source *strfile.File, results []batch.TranslationResult, removed []string) Stats {
	var st Stats

	for _, res := range results {
		if res.Err != nil {
			st.Failed = append(st.Failed, res.Key)
			continue
		}
		if e := target.Get(res.Key); e != nil {
			if e.Value != res.Text {
				e.SetValue(res.Text)
				st.Updated = append(st.Updated, res.Key)
			}
			continue
		}
		comment := ""
		if src := source.Get(res.Key); src != nil {
			comment = src.Comment
		}
		target.Append(res.Key, res.Text, comment)
		st.Added = append(st.Added, res.Key)
	}

	for _, key := range removed {
		if target.Delete(key) {
			st.Removed = append(st.Removed, key)
		}
	}

	return st
}
