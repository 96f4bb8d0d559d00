// Package diff classifies changes between two revisions of a source
// .strings file and detects translation gaps in target files.
package diff

import (
	"github.com/lproj/stringsync/strfile"
)

// ChangeSet is the added/modified/removed classification between two
// revisions of a source file. The three lists are disjoint; Added and
// Modified follow the new file's order, Removed follows the old file's.
type ChangeSet struct {
	Added    []string
	Modified []string
	Removed  []string
}

// Empty reports whether the change set contains no changes.
func (c ChangeSet) Empty() bool {
	return len(c.Added) == 0 && len(c.Modified) == 0 && len(c.Removed) == 0
}

// Translatable returns the keys that need translation (added then
// modified), in new-file order.
func (c ChangeSet) Translatable() []string {
	out := make([]string, 0, len(c.Added)+len(c.Modified))
	out = append(out, c.Added...)
	out = append(out, c.Modified...)
	return out
}

// Diff compares two revisions of a source file.
//
// A key only in new is added; a key in both with a different value is
// modified; a key only in old is removed. Comment-only edits are
// deliberately not modifications: value equality is the sole criterion,
// so cosmetic comment changes never trigger re-translation.
func Diff(old, new *strfile.File) ChangeSet {
	var cs ChangeSet

	for _, e := range new.Entries() {
		oldEntry := old.Get(e.Key)
		switch {
		case oldEntry == nil:
			cs.Added = append(cs.Added, e.Key)
		case oldEntry.Value != e.Value:
			cs.Modified = append(cs.Modified, e.Key)
		}
	}

	for _, e := range old.Entries() {
		if !new.Has(e.Key) {
			cs.Removed = append(cs.Removed, e.Key)
		}
	}

	return cs
}

// Gaps returns the source keys that are untranslated in target: absent
// entirely, or present with an empty value. Keys come back in source
// order; neither file is mutated.
func Gaps(source, target *strfile.File) []string {
	var gaps []string
	for _, e := range source.Entries() {
		t := target.Get(e.Key)
		if t == nil || t.Value == "" {
			gaps = append(gaps, e.Key)
		}
	}
	return gaps
}
