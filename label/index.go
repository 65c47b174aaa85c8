package label

import "github.com/Spiderbuttons/autosort/container"

// Index maps category tags to the ordered list of containers registered
// for them, plus the distinguished catch-all list. Within a tag's list,
// containers keep discovery order; that order is the fill priority the
// router walks. An Index is built fresh per sort and discarded after.
type Index struct {
	byTag    map[string][]container.Container
	catchAll []container.Container
}

// BuildIndex scans the given bindings and produces an Index.
//
// Containers whose advisory lock is contested at scan time are excluded
// from this invocation entirely (they may be valid destinations next
// time); unlabeled containers are never routing candidates. The probe
// takes and immediately releases the lock; holding it for the whole sort
// would starve the other actors the lock exists for.
func BuildIndex(bindings []Binding) *Index {
	idx := &Index{byTag: make(map[string][]container.Container)}

	for _, b := range bindings {
		if b.Label == nil || b.Container == nil {
			continue
		}
		if !b.Container.TryLock() {
			continue
		}
		b.Container.Unlock()

		if b.Label.IsCatchAll() {
			idx.catchAll = append(idx.catchAll, b.Container)
			continue
		}
		idx.byTag[b.Label.Tag] = append(idx.byTag[b.Label.Tag], b.Container)
	}

	return idx
}

// Destinations returns the fill-priority list for a tag: the tag's
// containers first, then the catch-all containers as overflow. The second
// return reports whether any destination exists at all.
func (idx *Index) Destinations(tag string) ([]container.Container, bool) {
	tagged := idx.byTag[tag]
	if len(tagged) == 0 && len(idx.catchAll) == 0 {
		return nil, false
	}
	if len(idx.catchAll) == 0 {
		return tagged, true
	}

	out := make([]container.Container, 0, len(tagged)+len(idx.catchAll))
	out = append(out, tagged...)
	out = append(out, idx.catchAll...)
	return out, true
}

// Tagged returns the containers registered for a tag, in discovery order.
func (idx *Index) Tagged(tag string) []container.Container { return idx.byTag[tag] }

// CatchAll returns the catch-all list, in discovery order.
func (idx *Index) CatchAll() []container.Container { return idx.catchAll }

// Empty reports whether the index holds no destinations at all.
func (idx *Index) Empty() bool {
	return len(idx.byTag) == 0 && len(idx.catchAll) == 0
}

// Tags returns the number of distinct tags with at least one container.
func (idx *Index) Tags() int { return len(idx.byTag) }

// Size returns the total number of destination containers in the index.
func (idx *Index) Size() int {
	n := len(idx.catchAll)
	for _, cs := range idx.byTag {
		n += len(cs)
	}
	return n
}
