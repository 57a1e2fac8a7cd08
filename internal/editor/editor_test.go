package editor

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmolnar/mailstate/internal/models"
)

var testSignatures = Signatures{
	NewMessage:   Signature{Text: "-- Ada", HTML: "<div>-- Ada</div>"},
	ReplyForward: Signature{Text: "-- Ada", HTML: "<div>-- Ada</div>"},
}

var testLabels = ReplyLabels{From: "From", To: "To", CC: "Cc", Sent: "Sent", Subject: "Subject"}

func originalMessage() *models.Message {
	return &models.Message{
		ID:       "77",
		FolderID: "inbox",
		Subject:  "Budget",
		Date:     time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC),
		BodyText: "Numbers attached.",
		BodyHTML: "<p>Numbers attached.</p>",
		Participants: []models.Participant{
			{Role: models.RoleFrom, Address: "bob@example.com", Name: "Bob"},
			{Role: models.RoleTo, Address: "ada@example.com", Name: "Ada"},
			{Role: models.RoleTo, Address: "carol@example.com", Name: "Carol"},
			{Role: models.RoleCC, Address: "dan@example.com", Name: "Dan"},
		},
		Parts: []models.MimePart{
			{PartID: "1", ContentType: "multipart/mixed", Parts: []models.MimePart{
				{PartID: "1.1", ContentType: "text/plain", Content: "Numbers attached."},
				{PartID: "1.2", ContentType: "application/pdf", Disposition: "attachment", Filename: "q3.pdf", Size: 1000},
				{PartID: "1.3", ContentType: "image/png", Disposition: "attachment", ContentID: "<logo@local>", Filename: "logo.png"},
			}},
		},
		Flags: models.MessageFlags{Urgent: true},
	}
}

func TestOpenNew(t *testing.T) {
	e := NewEditors()
	ed, err := e.Open(ActionNew, CreateParams{Signatures: testSignatures})
	require.NoError(t, err)

	assert.NotEmpty(t, ed.ID)
	assert.Empty(t, ed.To)
	assert.Empty(t, ed.Subject)
	assert.Equal(t, "\n\n-- Ada", ed.Text[0])
	assert.Equal(t, "<br><div>-- Ada</div>", ed.Text[1])
	assert.Equal(t, 1, e.Len())
}

func TestOpenMailTo(t *testing.T) {
	e := NewEditors()
	ed, err := e.Open(ActionMailTo, CreateParams{
		Contacts: []models.Participant{
			{Role: models.RoleTo, Address: "x@example.com"},
			{Role: models.RoleTo, Address: "y@example.com"},
			{Role: models.RoleTo, Address: "z@example.com"},
		},
	})
	require.NoError(t, err)

	require.Len(t, ed.To, 1)
	assert.Equal(t, "x@example.com", ed.To[0].Address)
	assert.Equal(t, models.RoleTo, ed.To[0].Role)
	require.Len(t, ed.CC, 2)
	assert.Equal(t, "y@example.com", ed.CC[0].Address)
	assert.Equal(t, models.RoleCC, ed.CC[0].Role)

	t.Run("recipient lists do not alias", func(t *testing.T) {
		require.NoError(t, e.Update(ed.ID, func(m *models.Editor) {
			m.To = append(m.To, models.Participant{Role: models.RoleTo, Address: "extra@example.com"})
		}))
		cur, err := e.Get(ed.ID)
		require.NoError(t, err)
		assert.Equal(t, "y@example.com", cur.CC[0].Address)
	})
}

func TestOpenEditAsDraft(t *testing.T) {
	e := NewEditors()
	ed, err := e.Open(ActionEditAsDraft, CreateParams{
		EditorID:   "77",
		Original:   originalMessage(),
		Signatures: testSignatures,
	})
	require.NoError(t, err)

	assert.Equal(t, "Budget", ed.Subject)
	assert.Equal(t, "Numbers attached.", ed.Text[0])
	require.Len(t, ed.To, 2)
	require.Len(t, ed.CC, 1)
	assert.Equal(t, "dan@example.com", ed.CC[0].Address)
	assert.True(t, ed.Urgent)
	// Editing a draft keeps pointing at the stored message for overwrite.
	assert.Equal(t, "77", ed.DID)
	assert.Equal(t, "77", ed.OriginalID)
}

func TestOpenEditAsNewDropsDraftID(t *testing.T) {
	e := NewEditors()
	ed, err := e.Open(ActionEditAsNew, CreateParams{Original: originalMessage(), Signatures: testSignatures})
	require.NoError(t, err)

	assert.Empty(t, ed.DID)
	assert.Equal(t, "Budget", ed.Subject)
}

func TestSaveResultAssignsPersistedID(t *testing.T) {
	e := NewEditors()
	ed, err := e.Open(ActionEditAsDraft, CreateParams{
		EditorID: "77", Original: originalMessage(), Signatures: testSignatures,
	})
	require.NoError(t, err)

	require.NoError(t, e.ApplySaveResult(ed.ID, &models.Message{ID: "901"}))

	saved, err := e.Get(ed.ID)
	require.NoError(t, err)
	assert.Equal(t, "901", saved.DID)
	assert.Equal(t, "77", saved.OldID)

	// A second save keeps the original OldID.
	require.NoError(t, e.ApplySaveResult(ed.ID, &models.Message{ID: "902"}))
	saved, err = e.Get(ed.ID)
	require.NoError(t, err)
	assert.Equal(t, "902", saved.DID)
	assert.Equal(t, "77", saved.OldID)
}

func TestOpenReply(t *testing.T) {
	e := NewEditors()
	ed, err := e.Open(ActionReply, CreateParams{
		Original:   originalMessage(),
		Account:    Account{Address: "ada@example.com"},
		Signatures: testSignatures,
		Labels:     testLabels,
	})
	require.NoError(t, err)

	assert.Equal(t, "RE: Budget", ed.Subject)
	require.Len(t, ed.To, 1)
	assert.Equal(t, "bob@example.com", ed.To[0].Address)
	assert.Empty(t, ed.CC)
	assert.Contains(t, ed.Text[0], "Numbers attached.")
	assert.Contains(t, ed.Text[1], "<p>Numbers attached.</p>")
}

func TestOpenReplyPrefersReplyTo(t *testing.T) {
	orig := originalMessage()
	orig.Participants = append(orig.Participants,
		models.Participant{Role: models.RoleReplyTo, Address: "list@example.com"})

	e := NewEditors()
	ed, err := e.Open(ActionReply, CreateParams{Original: orig, Signatures: testSignatures, Labels: testLabels})
	require.NoError(t, err)

	require.Len(t, ed.To, 1)
	assert.Equal(t, "list@example.com", ed.To[0].Address)
}

func TestOpenReplyAll(t *testing.T) {
	t.Run("collects everyone but the account", func(t *testing.T) {
		e := NewEditors()
		ed, err := e.Open(ActionReplyAll, CreateParams{
			Original:   originalMessage(),
			Account:    Account{Address: "ada@example.com"},
			Signatures: testSignatures,
			Labels:     testLabels,
		})
		require.NoError(t, err)

		addresses := func(ps []models.Participant) []string {
			var out []string
			for _, p := range ps {
				out = append(out, p.Address)
			}
			return out
		}
		assert.Equal(t, []string{"bob@example.com", "carol@example.com"}, addresses(ed.To))
		assert.Equal(t, []string{"dan@example.com"}, addresses(ed.CC))
	})

	t.Run("excludes duplicate self-addressed participants", func(t *testing.T) {
		orig := originalMessage()
		orig.Participants = append(orig.Participants,
			models.Participant{Role: models.RoleTo, Address: "Ada@Example.com"},
			models.Participant{Role: models.RoleCC, Address: "ada@example.com"},
		)

		e := NewEditors()
		ed, err := e.Open(ActionReplyAll, CreateParams{
			Original:   orig,
			Account:    Account{Address: "ada@example.com"},
			Signatures: testSignatures,
			Labels:     testLabels,
		})
		require.NoError(t, err)

		for _, p := range append(ed.To, ed.CC...) {
			assert.False(t, strings.EqualFold("ada@example.com", p.Address), "self address leaked: %s", p.Address)
		}
	})
}

func TestOpenForward(t *testing.T) {
	e := NewEditors()
	ed, err := e.Open(ActionForward, CreateParams{Original: originalMessage(), Signatures: testSignatures, Labels: testLabels})
	require.NoError(t, err)

	assert.Equal(t, "Fwd: Budget", ed.Subject)
	assert.Empty(t, ed.To)
	assert.Empty(t, ed.CC)
	assert.True(t, ed.Urgent)
}

func TestAttachmentRefsExcludeInlineParts(t *testing.T) {
	e := NewEditors()
	ed, err := e.Open(ActionForward, CreateParams{Original: originalMessage(), Signatures: testSignatures, Labels: testLabels})
	require.NoError(t, err)

	require.Len(t, ed.Attachments, 1)
	assert.Equal(t, "q3.pdf", ed.Attachments[0].Filename)
	assert.Equal(t, "77", ed.Attachments[0].MessageID)
	assert.Equal(t, "1.2", ed.Attachments[0].PartID)
}

func TestOpenRequiresOriginal(t *testing.T) {
	e := NewEditors()
	for _, action := range []Action{ActionReply, ActionReplyAll, ActionForward, ActionEditAsDraft, ActionEditAsNew} {
		_, err := e.Open(action, CreateParams{Signatures: testSignatures})
		assert.Error(t, err, "action %s", action)
	}
}

func TestCloseEditor(t *testing.T) {
	e := NewEditors()
	ed, err := e.Open(ActionNew, CreateParams{Signatures: testSignatures})
	require.NoError(t, err)

	e.Close(ed.ID)
	_, err = e.Get(ed.ID)
	assert.ErrorIs(t, err, ErrEditorNotFound)

	// Closing again is a no-op.
	e.Close(ed.ID)
}
