package store

import (
	"errors"
	"sort"

	"github.com/dmolnar/mailstate/internal/models"
)

// ErrConversationNotFound is returned when a conversation id does not resolve
// in the store.
var ErrConversationNotFound = errors.New("conversation not found")

// ConversationStore caches conversations keyed by id, insertion-order
// preserving, plus the per-conversation expansion status.
type ConversationStore struct {
	order         []string
	conversations map[string]*models.Conversation
	currentFolder string
	expanded      map[string]Status
}

// NewConversationStore creates an empty conversation store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		conversations: make(map[string]*models.Conversation),
		expanded:      make(map[string]Status),
	}
}

// Len returns the number of cached conversations.
func (s *ConversationStore) Len() int {
	return len(s.conversations)
}

// CurrentFolder returns the folder the conversation list is currently scoped to.
func (s *ConversationStore) CurrentFolder() string {
	return s.currentFolder
}

// SetCurrentFolder scopes the conversation list to a folder.
func (s *ConversationStore) SetCurrentFolder(folderID string) {
	s.currentFolder = folderID
}

// Get returns a copy of the conversation with the given id.
func (s *ConversationStore) Get(id string) (*models.Conversation, error) {
	c, ok := s.conversations[id]
	if !ok {
		return nil, ErrConversationNotFound
	}
	return c.Clone(), nil
}

// Upsert inserts or wholesale-replaces conversations, as search results
// arrive. An existing conversation keeps its insertion position and its
// expansion status.
func (s *ConversationStore) Upsert(conversations ...models.Conversation) {
	for i := range conversations {
		c := conversations[i]
		if c.ID == "" {
			continue
		}
		if _, ok := s.conversations[c.ID]; !ok {
			s.order = append(s.order, c.ID)
		}
		s.conversations[c.ID] = &c
	}
}

// Remove deletes conversations by id.
func (s *ConversationStore) Remove(ids ...string) {
	for _, id := range ids {
		if _, ok := s.conversations[id]; !ok {
			continue
		}
		delete(s.conversations, id)
		delete(s.expanded, id)
		for i, oid := range s.order {
			if oid == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
}

// InFolder returns the conversations with at least one message in folderID,
// newest first.
func (s *ConversationStore) InFolder(folderID string) []*models.Conversation {
	var out []*models.Conversation
	for _, id := range s.order {
		c := s.conversations[id]
		if c.InFolder(folderID) {
			out = append(out, c.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out
}

// MoveMessage updates the folder reference a conversation holds for one of
// its messages. Unknown conversations or messages are a no-op.
func (s *ConversationStore) MoveMessage(convID, messageID, folderID string) {
	c, ok := s.conversations[convID]
	if !ok {
		return
	}
	for i := range c.Messages {
		if c.Messages[i].ID == messageID {
			c.Messages[i].FolderID = folderID
		}
	}
}

// RelocateMessage updates the folder reference of the message in every
// conversation that holds it, for moves addressed by message id alone.
func (s *ConversationStore) RelocateMessage(messageID, folderID string) {
	for _, c := range s.conversations {
		for i := range c.Messages {
			if c.Messages[i].ID == messageID {
				c.Messages[i].FolderID = folderID
			}
		}
	}
}

// PatchFlags applies fn to the flags of each listed conversation, in place.
// Missing ids are skipped.
func (s *ConversationStore) PatchFlags(ids []string, fn func(*models.ConversationFlags)) {
	for _, id := range ids {
		if c, ok := s.conversations[id]; ok {
			fn(&c.Flags)
		}
	}
}

// SetTags replaces the tag list of each listed conversation.
func (s *ConversationStore) SetTags(ids []string, tags []string) {
	for _, id := range ids {
		if c, ok := s.conversations[id]; ok {
			c.Tags = append([]string(nil), tags...)
		}
	}
}

// ExpandedStatus returns the expansion (member-message fetch) status of a
// conversation; StatusEmpty when it was never expanded.
func (s *ConversationStore) ExpandedStatus(id string) Status {
	if st, ok := s.expanded[id]; ok {
		return st
	}
	return StatusEmpty
}

// SetExpandedStatus records the expansion status of a conversation.
func (s *ConversationStore) SetExpandedStatus(id string, st Status) {
	s.expanded[id] = st
}
