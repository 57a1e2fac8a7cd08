package store

import (
	"errors"

	"github.com/dmolnar/mailstate/internal/models"
)

// ErrFolderNotFound is returned when a folder id does not resolve in the store.
var ErrFolderNotFound = errors.New("folder not found")

// MergePolicy selects how incoming partial folder records combine with the
// stored ones.
type MergePolicy int

const (
	// MergeReplace drops nil-valued incoming fields, then lets the remaining
	// fields win over the stored record (patch semantics).
	MergeReplace MergePolicy = iota
	// MergeShallow applies every incoming field, nil included, so a nil field
	// clears the stored value.
	MergeShallow
	// MergeDeep behaves like MergeReplace but merges nested objects
	// (retention policy) field by field instead of replacing them wholesale.
	MergeDeep
)

// FolderPatch is a partial folder record as received from the mail service.
// Nil fields were absent from the payload.
type FolderPatch struct {
	ID          string
	ParentID    *string
	Name        *string
	Color       *int
	View        *string
	UnreadCount *int
	TotalCount  *int
	IsShared    *bool
	Perm        *string
	Retention   *models.RetentionPolicy
}

// FolderStore is the id-indexed folder table. Folders keep parent-id
// back-references only; children lists, depth, level, path and top ancestor
// are derived indexes rebuilt after every structural mutation.
type FolderStore struct {
	order   []string
	folders map[string]*models.Folder
}

// NewFolderStore creates an empty folder store.
func NewFolderStore() *FolderStore {
	return &FolderStore{folders: make(map[string]*models.Folder)}
}

// Len returns the number of folders in the store.
func (s *FolderStore) Len() int {
	return len(s.folders)
}

// Get returns a copy of the folder with the given id.
func (s *FolderStore) Get(id string) (*models.Folder, error) {
	f, ok := s.folders[id]
	if !ok {
		return nil, ErrFolderNotFound
	}
	return f.Clone(), nil
}

// All returns copies of every folder in insertion order.
func (s *FolderStore) All() []*models.Folder {
	out := make([]*models.Folder, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.folders[id].Clone())
	}
	return out
}

// Add inserts or overwrites whole folder records and recomputes the derived
// fields for the entire table.
func (s *FolderStore) Add(folders ...models.Folder) {
	for i := range folders {
		f := folders[i]
		if f.ID == "" {
			continue
		}
		if _, ok := s.folders[f.ID]; !ok {
			s.order = append(s.order, f.ID)
		}
		s.folders[f.ID] = &f
	}
	s.recompute()
}

// Remove deletes the given folders. Unknown ids are ignored. Descendants of a
// removed folder are kept; their derived fields degrade to the best-effort
// single-level form until the ancestors reappear or they are moved.
func (s *FolderStore) Remove(ids ...string) {
	for _, id := range ids {
		if _, ok := s.folders[id]; !ok {
			continue
		}
		delete(s.folders, id)
		for i, oid := range s.order {
			if oid == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	s.recompute()
}

// Update merges incoming partial records into the stored folders under the
// given policy. Records for ids not present in the store are skipped; new
// folders enter through Add. Derived fields are recomputed afterwards.
func (s *FolderStore) Update(policy MergePolicy, patches []FolderPatch) {
	for _, p := range patches {
		f, ok := s.folders[p.ID]
		if !ok {
			continue
		}
		switch policy {
		case MergeShallow:
			applyShallow(f, p)
		case MergeDeep:
			applyPatch(f, p, true)
		default:
			applyPatch(f, p, false)
		}
	}
	s.recompute()
}

// applyPatch copies non-nil patch fields onto the folder. With deep set, the
// retention policy is merged rule by rule instead of replaced.
func applyPatch(f *models.Folder, p FolderPatch, deep bool) {
	if p.ParentID != nil {
		f.ParentID = *p.ParentID
	}
	if p.Name != nil {
		f.Name = *p.Name
	}
	if p.Color != nil {
		f.Color = *p.Color
	}
	if p.View != nil {
		f.View = *p.View
	}
	if p.UnreadCount != nil {
		f.UnreadCount = *p.UnreadCount
	}
	if p.TotalCount != nil {
		f.TotalCount = *p.TotalCount
	}
	if p.IsShared != nil {
		f.IsShared = *p.IsShared
	}
	if p.Perm != nil {
		f.Perm = *p.Perm
	}
	if p.Retention != nil {
		if deep {
			f.Retention = mergeRetention(f.Retention, p.Retention)
		} else {
			f.Retention = p.Retention.Clone()
		}
	}
}

// applyShallow copies every patch field onto the folder; a nil field resets
// the stored value to its zero.
func applyShallow(f *models.Folder, p FolderPatch) {
	f.ParentID = deref(p.ParentID)
	f.Name = deref(p.Name)
	f.Color = deref(p.Color)
	f.View = deref(p.View)
	f.UnreadCount = deref(p.UnreadCount)
	f.TotalCount = deref(p.TotalCount)
	f.IsShared = deref(p.IsShared)
	f.Perm = deref(p.Perm)
	if p.Retention != nil {
		f.Retention = p.Retention.Clone()
	} else {
		f.Retention = nil
	}
}

// mergeRetention combines retention policies rule by rule, incoming rules
// winning where present.
func mergeRetention(stored, incoming *models.RetentionPolicy) *models.RetentionPolicy {
	if stored == nil {
		return incoming.Clone()
	}
	merged := stored.Clone()
	if incoming.Keep != nil {
		keep := *incoming.Keep
		merged.Keep = &keep
	}
	if incoming.Purge != nil {
		purge := *incoming.Purge
		merged.Purge = &purge
	}
	return merged
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
