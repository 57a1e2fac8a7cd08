// Package normalize converts raw mail-service payloads into the canonical
// entity shapes. Normalization is idempotent: the same payload always yields
// structurally identical output.
package normalize

// RawFolder is a folder record as it appears on the wire.
type RawFolder struct {
	ID          string        `json:"id"`
	ParentID    string        `json:"parent_id"`
	Name        string        `json:"name"`
	Color       int           `json:"color"`
	View        string        `json:"view"`
	UnreadCount int           `json:"unread"`
	TotalCount  int           `json:"total"`
	IsShared    bool          `json:"shared"`
	Perm        string        `json:"perm"`
	Retention   *RawRetention `json:"retention,omitempty"`
}

// RawRetention mirrors the nested retention policy object.
type RawRetention struct {
	Keep  *RawRetentionRule `json:"keep,omitempty"`
	Purge *RawRetentionRule `json:"purge,omitempty"`
}

// RawRetentionRule is one retention rule on the wire.
type RawRetentionRule struct {
	Enabled  bool   `json:"enabled"`
	Lifetime string `json:"lifetime"`
}

// RawParticipant is an address entry on a raw message or conversation.
// Type is the single-letter role: f(rom), t(o), c(c), b(cc), r(eply-to),
// s(ender).
type RawParticipant struct {
	Address string `json:"a"`
	Name    string `json:"d"`
	Type    string `json:"t"`
}

// RawPart is one node of the MIME part tree on the wire.
type RawPart struct {
	PartID      string    `json:"part"`
	ContentType string    `json:"ct"`
	Size        int       `json:"s"`
	Disposition string    `json:"cd"`
	Filename    string    `json:"filename"`
	ContentID   string    `json:"ci"`
	Content     string    `json:"content"`
	Body        bool      `json:"body"`
	Parts       []RawPart `json:"mp"`
}

// RawMessage is a message payload. Flags is the service's flag string, one
// letter per set flag: u(nread), f(lagged), a(ttachment), r(eplied),
// w (forwarded), s(ent by me), d(raft), ! for urgent.
type RawMessage struct {
	ID             string           `json:"id"`
	ConversationID string           `json:"cid"`
	FolderID       string           `json:"l"`
	DateMillis     int64            `json:"d"`
	Subject        string           `json:"su"`
	Fragment       string           `json:"fr"`
	Flags          string           `json:"f"`
	Tags           []string         `json:"tn"`
	Participants   []RawParticipant `json:"e"`
	Parts          []RawPart        `json:"mp"`
}

// RawConversation is a conversation payload from a search response. Messages
// carry only the membership triple.
type RawConversation struct {
	ID           string           `json:"id"`
	DateMillis   int64            `json:"d"`
	MessageCount int              `json:"n"`
	UnreadCount  int              `json:"u"`
	Flags        string           `json:"f"`
	Tags         []string         `json:"tn"`
	Participants []RawParticipant `json:"e"`
	Messages     []RawConvMessage `json:"m"`
}

// RawConvMessage is the lightweight message reference inside a conversation.
type RawConvMessage struct {
	ID         string `json:"id"`
	FolderID   string `json:"l"`
	DateMillis int64  `json:"d"`
}

// SearchResult is a page of conversations plus the has-more marker.
type SearchResult struct {
	Conversations []RawConversation `json:"c"`
	More          bool              `json:"more"`
	Offset        int               `json:"offset"`
}
