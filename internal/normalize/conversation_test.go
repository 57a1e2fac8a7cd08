package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmolnar/mailstate/internal/models"
)

func TestConversation(t *testing.T) {
	raw := &RawConversation{
		ID:           "c-1",
		DateMillis:   1700000000000,
		MessageCount: 3,
		UnreadCount:  1,
		Flags:        "uf",
		Participants: []RawParticipant{{Address: "ada@example.com", Type: "f"}},
		Messages: []RawConvMessage{
			{ID: "m1", FolderID: "inbox", DateMillis: 1700000000000},
			{ID: "m2", FolderID: "sent", DateMillis: 1699990000000},
		},
	}

	c, err := Conversation(raw)
	require.NoError(t, err)
	assert.Equal(t, "c-1", c.ID)
	assert.Equal(t, 3, c.MessageCount)
	require.Len(t, c.Messages, 2)
	assert.Equal(t, "inbox", c.Messages[0].FolderID)
	assert.False(t, c.Flags.Read)
	assert.True(t, c.Flags.Flagged)
}

func TestConversationBatchDropsMalformed(t *testing.T) {
	raw := []RawConversation{
		{ID: "c-1"},
		{ID: ""},
		{ID: "c-2"},
	}
	got := ConversationBatch(raw)
	require.Len(t, got, 2)
	assert.Equal(t, "c-1", got[0].ID)
	assert.Equal(t, "c-2", got[1].ID)
}

func TestFolder(t *testing.T) {
	t.Run("defaults the parent to the root sentinel", func(t *testing.T) {
		f, err := Folder(&RawFolder{ID: "10", Name: "Receipts"})
		require.NoError(t, err)
		assert.Equal(t, models.RootFolderID, f.ParentID)
	})

	t.Run("maps the retention policy", func(t *testing.T) {
		f, err := Folder(&RawFolder{
			ID: "10", Name: "Receipts",
			Retention: &RawRetention{Keep: &RawRetentionRule{Enabled: true, Lifetime: "30d"}},
		})
		require.NoError(t, err)
		require.NotNil(t, f.Retention)
		require.NotNil(t, f.Retention.Keep)
		assert.Equal(t, "30d", f.Retention.Keep.Lifetime)
	})
}

func TestFolderPatchDistinguishesAbsentFields(t *testing.T) {
	p, err := FolderPatch(&RawFolder{ID: "10", Name: "Receipts"})
	require.NoError(t, err)
	require.NotNil(t, p.Name)
	assert.Equal(t, "Receipts", *p.Name)
	assert.Nil(t, p.ParentID)
	assert.Nil(t, p.Retention)
}

func TestParseFullBody(t *testing.T) {
	rawMail := strings.Join([]string{
		"From: ada@example.com",
		"To: bob@example.com",
		"Subject: numbers",
		"MIME-Version: 1.0",
		`Content-Type: multipart/mixed; boundary="XBOUND"`,
		"",
		"--XBOUND",
		"Content-Type: text/plain",
		"",
		"see attachment",
		"--XBOUND",
		"Content-Type: application/octet-stream",
		`Content-Disposition: attachment; filename="data.bin"`,
		"",
		"0123456789",
		"--XBOUND--",
		"",
	}, "\r\n")

	body, err := ParseFullBody(strings.NewReader(rawMail))
	require.NoError(t, err)
	assert.Contains(t, body.Text, "see attachment")
	require.Len(t, body.Attachments, 1)
	assert.Equal(t, "data.bin", body.Attachments[0].Filename)
}
