package models

// Well-known folder identifiers. The synthetic root is never stored; it only
// appears as a parent reference and as the top ancestor of first-level folders.
const (
	RootFolderID   = "root"
	InboxFolderID  = "inbox"
	TrashFolderID  = "trash"
	JunkFolderID   = "junk"
	SentFolderID   = "sent"
	DraftsFolderID = "drafts"
)

// Folder is a mail container. The fields below the marker comment are derived
// by the hierarchy recomputation and must never be set from wire data.
type Folder struct {
	ID          string           `json:"id"`
	ParentID    string           `json:"parent_id"`
	Name        string           `json:"name"`
	Color       int              `json:"color"`
	View        string           `json:"view"`
	UnreadCount int              `json:"unread_count"`
	TotalCount  int              `json:"total_count"`
	IsShared    bool             `json:"is_shared"`
	Perm        string           `json:"perm,omitempty"`
	Retention   *RetentionPolicy `json:"retention,omitempty"`

	// Derived by the hierarchy engine.
	Children      []string `json:"children"`
	Depth         int      `json:"depth"`
	Level         int      `json:"level"`
	Path          string   `json:"path"`
	TopAncestorID string   `json:"top_ancestor_id"`
}

// RetentionPolicy holds the keep/purge rules attached to a folder.
type RetentionPolicy struct {
	Keep  *RetentionRule `json:"keep,omitempty"`
	Purge *RetentionRule `json:"purge,omitempty"`
}

// RetentionRule is a single retention setting.
type RetentionRule struct {
	Enabled  bool   `json:"enabled"`
	Lifetime string `json:"lifetime"`
}

// Clone returns a deep copy of the folder, including derived fields.
func (f *Folder) Clone() *Folder {
	c := *f
	if f.Retention != nil {
		c.Retention = f.Retention.Clone()
	}
	if f.Children != nil {
		c.Children = append([]string(nil), f.Children...)
	}
	return &c
}

// Clone returns a deep copy of the retention policy.
func (p *RetentionPolicy) Clone() *RetentionPolicy {
	c := &RetentionPolicy{}
	if p.Keep != nil {
		keep := *p.Keep
		c.Keep = &keep
	}
	if p.Purge != nil {
		purge := *p.Purge
		c.Purge = &purge
	}
	return c
}

// IsSystemFolder reports whether the folder is one of the fixed system folders
// that cannot be renamed, moved or deleted.
func (f *Folder) IsSystemFolder() bool {
	switch f.ID {
	case InboxFolderID, TrashFolderID, JunkFolderID, SentFolderID, DraftsFolderID:
		return true
	}
	return false
}
