package models

import "time"

// ParticipantRole identifies how an address participates in a message.
type ParticipantRole string

const (
	RoleFrom    ParticipantRole = "f"
	RoleTo      ParticipantRole = "t"
	RoleCC      ParticipantRole = "c"
	RoleBCC     ParticipantRole = "b"
	RoleReplyTo ParticipantRole = "r"
	RoleSender  ParticipantRole = "s"
)

// Participant is a named address with a role on a message or conversation.
type Participant struct {
	Role    ParticipantRole `json:"role"`
	Address string          `json:"address"`
	Name    string          `json:"name,omitempty"`
}

// MessageFlags are the derived boolean flags of a message.
type MessageFlags struct {
	Read          bool `json:"read"`
	Flagged       bool `json:"flagged"`
	Urgent        bool `json:"urgent"`
	HasAttachment bool `json:"has_attachment"`
	IsDraft       bool `json:"is_draft"`
	IsSentByMe    bool `json:"is_sent_by_me"`
	IsReplied     bool `json:"is_replied"`
	IsForwarded   bool `json:"is_forwarded"`
}

// MimePart is one node of a message's MIME tree. Parts nest arbitrarily.
type MimePart struct {
	PartID      string     `json:"part_id"`
	ContentType string     `json:"content_type"`
	Size        int        `json:"size"`
	Disposition string     `json:"disposition,omitempty"`
	Filename    string     `json:"filename,omitempty"`
	ContentID   string     `json:"content_id,omitempty"`
	Content     string     `json:"content,omitempty"`
	IsBody      bool       `json:"is_body,omitempty"`
	Parts       []MimePart `json:"parts,omitempty"`
}

// Message is a normalized mail message.
type Message struct {
	ID             string        `json:"id"`
	ConversationID string        `json:"conversation_id"`
	FolderID       string        `json:"folder_id"`
	Date           time.Time     `json:"date"`
	Subject        string        `json:"subject"`
	Fragment       string        `json:"fragment"`
	Participants   []Participant `json:"participants"`
	Parts          []MimePart    `json:"parts,omitempty"`
	BodyText       string        `json:"body_text"`
	BodyHTML       string        `json:"body_html"`
	Flags          MessageFlags  `json:"flags"`
	Tags           []string      `json:"tags,omitempty"`
}

// Clone returns a deep copy of the message, part tree included.
func (m *Message) Clone() *Message {
	copied := *m
	if m.Participants != nil {
		copied.Participants = append([]Participant(nil), m.Participants...)
	}
	if m.Tags != nil {
		copied.Tags = append([]string(nil), m.Tags...)
	}
	copied.Parts = cloneParts(m.Parts)
	return &copied
}

func cloneParts(parts []MimePart) []MimePart {
	if parts == nil {
		return nil
	}
	out := make([]MimePart, len(parts))
	for i, p := range parts {
		out[i] = p
		out[i].Parts = cloneParts(p.Parts)
	}
	return out
}

// ParticipantsByRole returns the message participants holding the given role,
// in their original order.
func (m *Message) ParticipantsByRole(role ParticipantRole) []Participant {
	var out []Participant
	for _, p := range m.Participants {
		if p.Role == role {
			out = append(out, p)
		}
	}
	return out
}
