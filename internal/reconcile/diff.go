// Package reconcile keeps a displayed list of site rows in step with the
// authoritative list, animating membership changes instead of redrawing.
package reconcile

// Patch is the membership difference between two lists.
type Patch struct {
	Removed []string `json:"removed"`
	Added   []string `json:"added"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return len(p.Removed) == 0 && len(p.Added) == 0
}

// Diff classifies membership only: Removed holds entries of current missing
// from next, in current order; Added holds entries of next missing from
// current, in next order and without duplicates. Reordering the same set
// yields an empty patch.
func Diff(current, next []string) Patch {
	inNext := make(map[string]struct{}, len(next))
	for _, s := range next {
		inNext[s] = struct{}{}
	}
	inCurrent := make(map[string]struct{}, len(current))
	for _, s := range current {
		inCurrent[s] = struct{}{}
	}

	var p Patch
	for _, s := range current {
		if _, ok := inNext[s]; !ok {
			p.Removed = append(p.Removed, s)
		}
	}
	for _, s := range next {
		if _, ok := inCurrent[s]; ok {
			continue
		}
		inCurrent[s] = struct{}{}
		p.Added = append(p.Added, s)
	}
	return p
}
