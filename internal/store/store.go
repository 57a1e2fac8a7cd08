// Package store holds the normalized, id-indexed caches of the mailbox model
// and the derived folder hierarchy. All mutation entry points are synchronous
// and run to completion; serialization across actions is the dispatcher's job,
// so no locking happens here.
package store

import (
	"errors"

	"github.com/dmolnar/mailstate/internal/models"
)

// ErrTagNotFound is returned when a tag id does not resolve in the store.
var ErrTagNotFound = errors.New("tag not found")

// Store bundles the entity caches and the fetch status trackers.
type Store struct {
	Folders       *FolderStore
	Conversations *ConversationStore
	Messages      *MessageStore
	Searches      *StatusTracker
	tags          map[string]*models.Tag
	tagOrder      []string
}

// New creates an empty store.
func New() *Store {
	return &Store{
		Folders:       NewFolderStore(),
		Conversations: NewConversationStore(),
		Messages:      NewMessageStore(),
		Searches:      NewStatusTracker(),
		tags:          make(map[string]*models.Tag),
	}
}

// Tag returns the tag with the given id.
func (s *Store) Tag(id string) (*models.Tag, error) {
	t, ok := s.tags[id]
	if !ok {
		return nil, ErrTagNotFound
	}
	copied := *t
	return &copied, nil
}

// Tags returns all tags in insertion order.
func (s *Store) Tags() []*models.Tag {
	out := make([]*models.Tag, 0, len(s.tagOrder))
	for _, id := range s.tagOrder {
		copied := *s.tags[id]
		out = append(out, &copied)
	}
	return out
}

// UpsertTag inserts or replaces a tag.
func (s *Store) UpsertTag(t models.Tag) {
	if t.ID == "" {
		return
	}
	if _, ok := s.tags[t.ID]; !ok {
		s.tagOrder = append(s.tagOrder, t.ID)
	}
	s.tags[t.ID] = &t
}

// RemoveTag deletes a tag and strips its name from every cached conversation
// and message.
func (s *Store) RemoveTag(id string) {
	t, ok := s.tags[id]
	if !ok {
		return
	}
	delete(s.tags, id)
	for i, oid := range s.tagOrder {
		if oid == id {
			s.tagOrder = append(s.tagOrder[:i], s.tagOrder[i+1:]...)
			break
		}
	}
	for _, c := range s.Conversations.conversations {
		c.Tags = removeString(c.Tags, t.Name)
	}
	for _, m := range s.Messages.messages {
		m.Tags = removeString(m.Tags, t.Name)
	}
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
