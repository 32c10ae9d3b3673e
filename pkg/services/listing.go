package services

// EmptyKind distinguishes the two empty-list states a view can be in: a user
// with no data at all gets a "create your first X" affordance, a user whose
// filters matched nothing gets an "adjust filters" affordance.
type EmptyKind int

const (
	// EmptyNone: the list has items.
	EmptyNone EmptyKind = iota
	// EmptyNoData: nothing exists yet and no filters are active.
	EmptyNoData
	// EmptyNoMatches: filters are active and excluded everything.
	EmptyNoMatches
)

// ClassifyEmpty derives the empty-state kind from a list result.
func ClassifyEmpty(total int, filtersActive bool) EmptyKind {
	if total > 0 {
		return EmptyNone
	}
	if filtersActive {
		return EmptyNoMatches
	}
	return EmptyNoData
}
