package store

import (
	"errors"

	"github.com/dmolnar/mailstate/internal/models"
)

// ErrMessageNotFound is returned when a message id does not resolve in the store.
var ErrMessageNotFound = errors.New("message not found")

// MessageStore is the id-indexed message cache, insertion-order preserving.
type MessageStore struct {
	order    []string
	messages map[string]*models.Message
}

// NewMessageStore creates an empty message store.
func NewMessageStore() *MessageStore {
	return &MessageStore{messages: make(map[string]*models.Message)}
}

// Len returns the number of cached messages.
func (s *MessageStore) Len() int {
	return len(s.messages)
}

// Get returns a copy of the message with the given id.
func (s *MessageStore) Get(id string) (*models.Message, error) {
	m, ok := s.messages[id]
	if !ok {
		return nil, ErrMessageNotFound
	}
	return m.Clone(), nil
}

// Upsert inserts or wholesale-replaces messages. Replacement keeps the
// original insertion position.
func (s *MessageStore) Upsert(messages ...models.Message) {
	for i := range messages {
		m := messages[i]
		if m.ID == "" {
			continue
		}
		if _, ok := s.messages[m.ID]; !ok {
			s.order = append(s.order, m.ID)
		}
		s.messages[m.ID] = &m
	}
}

// Remove deletes messages by id. Unknown ids are ignored.
func (s *MessageStore) Remove(ids ...string) {
	for _, id := range ids {
		if _, ok := s.messages[id]; !ok {
			continue
		}
		delete(s.messages, id)
		for i, oid := range s.order {
			if oid == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
}

// InFolder returns the cached messages whose folder matches, in insertion order.
func (s *MessageStore) InFolder(folderID string) []*models.Message {
	var out []*models.Message
	for _, id := range s.order {
		m := s.messages[id]
		if models.FolderMatches(m.FolderID, folderID) {
			out = append(out, m.Clone())
		}
	}
	return out
}

// PatchFlags applies fn to the flags of each listed message, in place.
// Missing ids are skipped: flag patches are idempotent merges keyed by id and
// a stale reference is a no-op, not an error.
func (s *MessageStore) PatchFlags(ids []string, fn func(*models.MessageFlags)) {
	for _, id := range ids {
		if m, ok := s.messages[id]; ok {
			fn(&m.Flags)
		}
	}
}

// Move re-homes the listed messages to the target folder. Missing ids are
// skipped.
func (s *MessageStore) Move(ids []string, folderID string) {
	for _, id := range ids {
		if m, ok := s.messages[id]; ok {
			m.FolderID = folderID
		}
	}
}

// SetTags replaces the tag list of each listed message.
func (s *MessageStore) SetTags(ids []string, tags []string) {
	for _, id := range ids {
		if m, ok := s.messages[id]; ok {
			m.Tags = append([]string(nil), tags...)
		}
	}
}
