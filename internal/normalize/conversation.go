package normalize

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/dmolnar/mailstate/internal/models"
	"github.com/dmolnar/mailstate/internal/store"
)

// Conversation converts a raw conversation payload into the canonical shape.
func Conversation(raw *RawConversation) (*models.Conversation, error) {
	if raw == nil || raw.ID == "" {
		return nil, fmt.Errorf("conversation: %w", ErrMalformedPayload)
	}

	msgs := make([]models.ConversationMessage, 0, len(raw.Messages))
	for _, m := range raw.Messages {
		msgs = append(msgs, models.ConversationMessage{
			ID:       m.ID,
			FolderID: m.FolderID,
			Date:     time.UnixMilli(m.DateMillis).UTC(),
		})
	}

	has := func(r rune) bool { return strings.ContainsRune(raw.Flags, r) }
	return &models.Conversation{
		ID:           raw.ID,
		Date:         time.UnixMilli(raw.DateMillis).UTC(),
		MessageCount: raw.MessageCount,
		UnreadCount:  raw.UnreadCount,
		Participants: participants(raw.Participants),
		Messages:     msgs,
		Tags:         append([]string(nil), raw.Tags...),
		Flags: models.ConversationFlags{
			Read:          raw.UnreadCount == 0 && !has(flagUnread),
			Flagged:       has(flagFlagged),
			Urgent:        has(flagUrgent),
			HasAttachment: has(flagAttachment),
		},
	}, nil
}

// ConversationBatch normalizes a batch, dropping malformed entries. Dropping
// one entity never fails the batch.
func ConversationBatch(raw []RawConversation) []models.Conversation {
	out := make([]models.Conversation, 0, len(raw))
	for i := range raw {
		c, err := Conversation(&raw[i])
		if err != nil {
			log.Printf("normalize: dropping conversation %q: %v", raw[i].ID, err)
			continue
		}
		out = append(out, *c)
	}
	return out
}

// MessageBatch normalizes a batch of messages, dropping malformed entries.
func MessageBatch(raw []RawMessage, forPrint bool) []models.Message {
	out := make([]models.Message, 0, len(raw))
	for i := range raw {
		m, err := Message(&raw[i], forPrint)
		if err != nil {
			log.Printf("normalize: dropping message %q: %v", raw[i].ID, err)
			continue
		}
		out = append(out, *m)
	}
	return out
}

// Folder converts a raw folder record into a whole-record entity, for first
// fetches and creations.
func Folder(raw *RawFolder) (*models.Folder, error) {
	if raw == nil || raw.ID == "" {
		return nil, fmt.Errorf("folder: %w", ErrMalformedPayload)
	}
	parentID := raw.ParentID
	if parentID == "" {
		parentID = models.RootFolderID
	}
	return &models.Folder{
		ID:          raw.ID,
		ParentID:    parentID,
		Name:        raw.Name,
		Color:       raw.Color,
		View:        raw.View,
		UnreadCount: raw.UnreadCount,
		TotalCount:  raw.TotalCount,
		IsShared:    raw.IsShared,
		Perm:        raw.Perm,
		Retention:   retention(raw.Retention),
	}, nil
}

// FolderBatch normalizes a batch of folders, dropping malformed entries.
func FolderBatch(raw []RawFolder) []models.Folder {
	out := make([]models.Folder, 0, len(raw))
	for i := range raw {
		f, err := Folder(&raw[i])
		if err != nil {
			log.Printf("normalize: dropping folder %q: %v", raw[i].ID, err)
			continue
		}
		out = append(out, *f)
	}
	return out
}

// FolderPatch converts a raw folder record into a partial update, for merge
// policies that distinguish absent fields. Only identity and the fields the
// wire format always carries are filled; the retention policy is included
// when present.
func FolderPatch(raw *RawFolder) (store.FolderPatch, error) {
	if raw == nil || raw.ID == "" {
		return store.FolderPatch{}, fmt.Errorf("folder: %w", ErrMalformedPayload)
	}
	p := store.FolderPatch{ID: raw.ID}
	if raw.ParentID != "" {
		p.ParentID = &raw.ParentID
	}
	if raw.Name != "" {
		p.Name = &raw.Name
	}
	if raw.View != "" {
		p.View = &raw.View
	}
	p.Color = &raw.Color
	p.UnreadCount = &raw.UnreadCount
	p.TotalCount = &raw.TotalCount
	p.IsShared = &raw.IsShared
	if raw.Perm != "" {
		p.Perm = &raw.Perm
	}
	if raw.Retention != nil {
		p.Retention = retention(raw.Retention)
	}
	return p, nil
}

func retention(raw *RawRetention) *models.RetentionPolicy {
	if raw == nil {
		return nil
	}
	policy := &models.RetentionPolicy{}
	if raw.Keep != nil {
		policy.Keep = &models.RetentionRule{Enabled: raw.Keep.Enabled, Lifetime: raw.Keep.Lifetime}
	}
	if raw.Purge != nil {
		policy.Purge = &models.RetentionRule{Enabled: raw.Purge.Enabled, Lifetime: raw.Purge.Lifetime}
	}
	return policy
}
