package terms

import "schoolcal/internal/model"

// SelectedGroup returns the group containing the selected date, else the
// first group, else nil.
func SelectedGroup(selected string, groups []model.TermGroup) *model.TermGroup {
	if i := containingIndex(selected, groups); i >= 0 {
		return &groups[i]
	}
	if len(groups) > 0 {
		return &groups[0]
	}
	return nil
}

// GroupIndex returns the index of the group containing the selected date,
// or -1 when the date falls outside every group.
func GroupIndex(selected string, groups []model.TermGroup) int {
	return containingIndex(selected, groups)
}

func containingIndex(selected string, groups []model.TermGroup) int {
	for i, g := range groups {
		if g.Contains(selected) {
			return i
		}
	}
	return -1
}

// ChangeTerm moves step terms from the one containing selected and returns
// the start date of the target term. From outside every term a positive
// step lands on the first term and any other step on the last. The index
// is clamped to the available terms. With no terms selected is returned
// unchanged.
func ChangeTerm(selected string, groups []model.TermGroup, step int) string {
	if len(groups) == 0 {
		return selected
	}
	current := GroupIndex(selected, groups)
	var next int
	switch {
	case current == -1 && step > 0:
		next = 0
	case current == -1:
		next = len(groups) - 1
	default:
		next = current + step
	}
	next = max(0, min(next, len(groups)-1))
	return groups[next].StartDate
}
