package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmolnar/mailstate/internal/models"
)

func conv(id string, date time.Time, msgs ...models.ConversationMessage) models.Conversation {
	return models.Conversation{ID: id, Date: date, Messages: msgs, MessageCount: len(msgs)}
}

func TestConversationsInFolder(t *testing.T) {
	now := time.Now()
	s := NewConversationStore()
	s.Upsert(
		conv("c1", now.Add(-time.Hour), models.ConversationMessage{ID: "m1", FolderID: "inbox"}),
		conv("c2", now,
			models.ConversationMessage{ID: "m2", FolderID: "inbox"},
			models.ConversationMessage{ID: "m3", FolderID: "sent"},
		),
		conv("c3", now.Add(-2*time.Hour), models.ConversationMessage{ID: "m4", FolderID: "trash"}),
	)

	got := s.InFolder("inbox")
	require.Len(t, got, 2)
	// Newest first.
	assert.Equal(t, "c2", got[0].ID)
	assert.Equal(t, "c1", got[1].ID)
}

func TestConversationsInMountedFolder(t *testing.T) {
	s := NewConversationStore()
	s.Upsert(conv("c1", time.Now(), models.ConversationMessage{ID: "m1", FolderID: "257"}))

	// Shared mounts are addressed with a compound zid:rid key whose remote
	// half is what member messages carry.
	got := s.InFolder("acct-2:257")
	require.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].ID)
}

func TestConversationMoveMessage(t *testing.T) {
	s := NewConversationStore()
	s.Upsert(conv("c1", time.Now(),
		models.ConversationMessage{ID: "m1", FolderID: "inbox"},
		models.ConversationMessage{ID: "m2", FolderID: "inbox"},
	))

	s.MoveMessage("c1", "m2", "trash")

	c, err := s.Get("c1")
	require.NoError(t, err)
	assert.Equal(t, "inbox", c.Messages[0].FolderID)
	assert.Equal(t, "trash", c.Messages[1].FolderID)

	// Stale references are no-ops.
	s.MoveMessage("nope", "m2", "trash")
	s.MoveMessage("c1", "nope", "trash")
}

func TestConversationUpsertReplacesWholesale(t *testing.T) {
	s := NewConversationStore()
	s.Upsert(conv("c1", time.Now(), models.ConversationMessage{ID: "m1", FolderID: "inbox"}))
	s.SetExpandedStatus("c1", StatusComplete)

	replacement := conv("c1", time.Now(), models.ConversationMessage{ID: "m9", FolderID: "inbox"})
	replacement.UnreadCount = 4
	s.Upsert(replacement)

	c, err := s.Get("c1")
	require.NoError(t, err)
	assert.Equal(t, 4, c.UnreadCount)
	require.Len(t, c.Messages, 1)
	assert.Equal(t, "m9", c.Messages[0].ID)
	// Expansion status survives the replacement.
	assert.Equal(t, StatusComplete, s.ExpandedStatus("c1"))
}

func TestConversationPatchFlags(t *testing.T) {
	s := NewConversationStore()
	s.Upsert(conv("c1", time.Now()))

	s.PatchFlags([]string{"c1", "missing"}, func(f *models.ConversationFlags) {
		f.Read = true
	})

	c, err := s.Get("c1")
	require.NoError(t, err)
	assert.True(t, c.Flags.Read)
}

func TestMessagesInFolder(t *testing.T) {
	s := NewMessageStore()
	s.Upsert(
		models.Message{ID: "m1", FolderID: "inbox"},
		models.Message{ID: "m2", FolderID: "sent"},
		models.Message{ID: "m3", FolderID: "inbox"},
	)

	got := s.InFolder("inbox")
	require.Len(t, got, 2)
	assert.Equal(t, "m1", got[0].ID)
	assert.Equal(t, "m3", got[1].ID)
}

func TestMessagePatchFlagsIsIdempotent(t *testing.T) {
	s := NewMessageStore()
	s.Upsert(models.Message{ID: "m1", FolderID: "inbox"})

	markRead := func(f *models.MessageFlags) { f.Read = true }
	s.PatchFlags([]string{"m1"}, markRead)
	s.PatchFlags([]string{"m1"}, markRead)

	m, err := s.Get("m1")
	require.NoError(t, err)
	assert.True(t, m.Flags.Read)
}

func TestRemoveTagStripsEntities(t *testing.T) {
	s := New()
	s.UpsertTag(models.Tag{ID: "t1", Name: "work"})
	s.Conversations.Upsert(models.Conversation{ID: "c1", Tags: []string{"work", "urgent"}})
	s.Messages.Upsert(models.Message{ID: "m1", Tags: []string{"work"}})

	s.RemoveTag("t1")

	c, err := s.Conversations.Get("c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"urgent"}, c.Tags)
	m, err := s.Messages.Get("m1")
	require.NoError(t, err)
	assert.Empty(t, m.Tags)
	_, err = s.Tag("t1")
	assert.ErrorIs(t, err, ErrTagNotFound)
}

func TestReturnedCopiesDoNotAliasCache(t *testing.T) {
	t.Run("conversation slices", func(t *testing.T) {
		s := NewConversationStore()
		s.Upsert(models.Conversation{
			ID:           "c1",
			Participants: []models.Participant{{Role: models.RoleFrom, Address: "bob@example.com"}},
			Messages:     []models.ConversationMessage{{ID: "m1", FolderID: "inbox"}},
			Tags:         []string{"work"},
		})

		c, err := s.Get("c1")
		require.NoError(t, err)
		c.Messages[0].FolderID = "trash"
		c.Tags[0] = "mangled"
		c.Participants[0].Address = "mallory@example.com"

		fresh, err := s.Get("c1")
		require.NoError(t, err)
		assert.Equal(t, "inbox", fresh.Messages[0].FolderID)
		assert.Equal(t, []string{"work"}, fresh.Tags)
		assert.Equal(t, "bob@example.com", fresh.Participants[0].Address)

		listed := s.InFolder("inbox")
		require.Len(t, listed, 1)
		listed[0].Messages[0].FolderID = "trash"
		fresh, err = s.Get("c1")
		require.NoError(t, err)
		assert.Equal(t, "inbox", fresh.Messages[0].FolderID)
	})

	t.Run("message slices", func(t *testing.T) {
		s := NewMessageStore()
		s.Upsert(models.Message{
			ID:           "m1",
			FolderID:     "inbox",
			Participants: []models.Participant{{Role: models.RoleFrom, Address: "bob@example.com"}},
			Parts: []models.MimePart{{
				PartID:      "1",
				ContentType: "multipart/mixed",
				Parts:       []models.MimePart{{PartID: "1.1", ContentType: "text/plain"}},
			}},
			Tags: []string{"work"},
		})

		m, err := s.Get("m1")
		require.NoError(t, err)
		m.Parts[0].Parts[0].ContentType = "mangled"
		m.Tags[0] = "mangled"
		m.Participants[0].Address = "mallory@example.com"

		fresh, err := s.Get("m1")
		require.NoError(t, err)
		assert.Equal(t, "text/plain", fresh.Parts[0].Parts[0].ContentType)
		assert.Equal(t, []string{"work"}, fresh.Tags)
		assert.Equal(t, "bob@example.com", fresh.Participants[0].Address)

		listed := s.InFolder("inbox")
		require.Len(t, listed, 1)
		listed[0].Tags[0] = "mangled"
		fresh, err = s.Get("m1")
		require.NoError(t, err)
		assert.Equal(t, []string{"work"}, fresh.Tags)
	})
}
