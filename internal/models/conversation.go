package models

import (
	"strings"
	"time"
)

// ConversationFlags are the aggregate flags of a conversation.
type ConversationFlags struct {
	Read          bool `json:"read"`
	Flagged       bool `json:"flagged"`
	Urgent        bool `json:"urgent"`
	HasAttachment bool `json:"has_attachment"`
}

// ConversationMessage is the lightweight reference a conversation keeps for
// each of its member messages.
type ConversationMessage struct {
	ID       string    `json:"id"`
	FolderID string    `json:"folder_id"`
	Date     time.Time `json:"date"`
}

// Conversation groups related messages. Membership in a folder is not stored;
// it is computed from the member messages' folder ids at read time.
type Conversation struct {
	ID           string                `json:"id"`
	Date         time.Time             `json:"date"`
	MessageCount int                   `json:"message_count"`
	UnreadCount  int                   `json:"unread_count"`
	Participants []Participant         `json:"participants"`
	Messages     []ConversationMessage `json:"messages"`
	Tags         []string              `json:"tags,omitempty"`
	Flags        ConversationFlags     `json:"flags"`
}

// InFolder reports whether the conversation has at least one message in the
// given folder. Folder ids may be plain or compound "zid:rid" keys for shared
// mounts; a compound current-folder key matches on its remote half too.
func (c *Conversation) InFolder(folderID string) bool {
	for _, m := range c.Messages {
		if FolderMatches(m.FolderID, folderID) {
			return true
		}
	}
	return false
}

// MessagesInFolder returns the member message references residing in folderID.
func (c *Conversation) MessagesInFolder(folderID string) []ConversationMessage {
	var out []ConversationMessage
	for _, m := range c.Messages {
		if FolderMatches(m.FolderID, folderID) {
			out = append(out, m)
		}
	}
	return out
}

// Clone returns a deep copy of the conversation.
func (c *Conversation) Clone() *Conversation {
	copied := *c
	if c.Participants != nil {
		copied.Participants = append([]Participant(nil), c.Participants...)
	}
	if c.Messages != nil {
		copied.Messages = append([]ConversationMessage(nil), c.Messages...)
	}
	if c.Tags != nil {
		copied.Tags = append([]string(nil), c.Tags...)
	}
	return &copied
}

// FolderMatches reports whether a message residing in messageFolderID belongs
// to the view of folderID.
func FolderMatches(messageFolderID, folderID string) bool {
	if messageFolderID == folderID {
		return true
	}
	// A mounted folder is addressed as "zid:rid" while its messages carry the
	// remote id alone.
	if zid, rid, ok := strings.Cut(folderID, ":"); ok && zid != "" {
		return messageFolderID == rid
	}
	return false
}

// Tag is a user-defined label that can be applied to conversations and
// messages.
type Tag struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Color  int    `json:"color"`
	Unread int    `json:"unread"`
}
