package store

// Status is a fetch progress state, tracked per folder for list fetches and
// per conversation for expansion.
type Status string

const (
	StatusEmpty     Status = "empty"
	StatusPending   Status = "pending"
	StatusComplete  Status = "complete"
	StatusHasMore   Status = "hasMore"
	StatusHasChange Status = "hasChange"
	StatusError     Status = "error"
)

// FetchState is the pagination bookkeeping kept per folder.
type FetchState struct {
	Status Status
	Offset int
	SortBy string
	Query  string
}

// StatusTracker gates fetch issuance per folder. A fetch may only start when
// the folder is not already pending; the guard is a gate, not a queue.
type StatusTracker struct {
	states map[string]*FetchState
}

// NewStatusTracker creates an empty tracker.
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{states: make(map[string]*FetchState)}
}

// State returns a copy of the folder's fetch state. Unknown folders are empty.
func (t *StatusTracker) State(folderID string) FetchState {
	if st, ok := t.states[folderID]; ok {
		return *st
	}
	return FetchState{Status: StatusEmpty}
}

// ShouldFetch reports whether a new fetch is worth issuing: the folder was
// never fetched, has changed remotely, has more pages, or failed last time.
func (t *StatusTracker) ShouldFetch(folderID string) bool {
	switch t.State(folderID).Status {
	case StatusEmpty, StatusHasChange, StatusHasMore, StatusError:
		return true
	}
	return false
}

// Begin transitions the folder to pending and reports whether the caller may
// proceed. A second Begin while pending returns false and changes nothing.
func (t *StatusTracker) Begin(folderID string) bool {
	st := t.ensure(folderID)
	if st.Status == StatusPending {
		return false
	}
	st.Status = StatusPending
	return true
}

// Complete finishes a fetch. fullPage signals the page came back full, so more
// results may exist. This is the only transition that advances the offset.
func (t *StatusTracker) Complete(folderID string, fullPage bool, fetched int) {
	st := t.ensure(folderID)
	if st.Status != StatusPending {
		return
	}
	st.Offset += fetched
	if fullPage {
		st.Status = StatusHasMore
	} else {
		st.Status = StatusComplete
	}
}

// Fail marks the fetch failed. A later Begin retries from the same offset.
func (t *StatusTracker) Fail(folderID string) {
	t.ensure(folderID).Status = StatusError
}

// MarkChanged records a remote change notice. A pending fetch is left alone;
// its completion will be followed by a fresh fetch decision anyway.
func (t *StatusTracker) MarkChanged(folderID string) {
	st := t.ensure(folderID)
	if st.Status == StatusPending {
		return
	}
	st.Status = StatusHasChange
}

// Restore seeds the tracker from persisted fetch states, typically at
// startup. Entries for folders already tracked are overwritten.
func (t *StatusTracker) Restore(states map[string]FetchState) {
	for id, st := range states {
		copied := st
		t.states[id] = &copied
	}
}

// Reset clears the folder's state, e.g. when the query or sort order changes.
func (t *StatusTracker) Reset(folderID, query, sortBy string) {
	t.states[folderID] = &FetchState{Status: StatusEmpty, Query: query, SortBy: sortBy}
}

func (t *StatusTracker) ensure(folderID string) *FetchState {
	st, ok := t.states[folderID]
	if !ok {
		st = &FetchState{Status: StatusEmpty}
		t.states[folderID] = st
	}
	return st
}
