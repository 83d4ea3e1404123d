package journey

// AddResult tells what TryAdd did with a candidate.
type AddResult int

const (
	// Added means the candidate entered the frontier, possibly joined with
	// an equivalent entry.
	Added AddResult = iota
	// DominatedByExisting means an entry already covers the candidate.
	DominatedByExisting
	// DominatesExisting means the candidate entered and evicted entries.
	DominatesExisting
)

// Frontier is a mutable Pareto set of journeys under one comparator: no
// entry dominates another. Entries iterate in insertion order. The same flat
// list backs both the per-stop profile frontiers and the per-trip frontiers
// of the scan.
type Frontier struct {
	cmp     Comparator
	entries []*Journey
}

func NewFrontier(cmp Comparator) *Frontier {
	return &Frontier{cmp: cmp}
}

// TryAdd offers a candidate to the frontier. Entries comparing Equal to the
// candidate are kept (first insertion wins) unless the chains differ
// structurally, in which case the entry is replaced by a join of both.
// The evicted entries, if any, are returned.
func (f *Frontier) TryAdd(j *Journey) (AddResult, []*Journey) {
	var equal *Journey
	dominated := make(map[*Journey]bool)
	for _, e := range f.entries {
		switch f.cmp.Compare(e, j) {
		case Less:
			return DominatedByExisting, nil
		case Equal:
			if equal == nil {
				equal = e
			}
		case Greater:
			dominated[e] = true
		}
	}

	if equal != nil && equal.Equal(j) {
		return DominatedByExisting, nil
	}

	var removed []*Journey
	if len(dominated) > 0 {
		kept := f.entries[:0]
		for _, e := range f.entries {
			if dominated[e] {
				removed = append(removed, e)
				continue
			}
			kept = append(kept, e)
		}
		f.entries = kept
	}

	if equal != nil {
		for i, e := range f.entries {
			if e == equal {
				f.entries[i] = e.Join(j)
				break
			}
		}
	} else {
		f.entries = append(f.entries, j)
	}
	if len(removed) > 0 {
		return DominatesExisting, removed
	}
	return Added, nil
}

// Merge offers every entry of other to this frontier.
func (f *Frontier) Merge(other *Frontier) {
	for _, e := range other.entries {
		f.TryAdd(e)
	}
}

// Journeys returns the entries in insertion order. The slice is shared;
// callers must not mutate it.
func (f *Frontier) Journeys() []*Journey {
	return f.entries
}

// Len returns the number of non-dominated entries.
func (f *Frontier) Len() int {
	return len(f.entries)
}

// Remove drops the given entry, matching by pointer identity.
func (f *Frontier) Remove(j *Journey) {
	for i, e := range f.entries {
		if e == j {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			return
		}
	}
}
