package imapsmtp

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmolnar/mailstate/internal/models"
	"github.com/dmolnar/mailstate/internal/testutil"
	"github.com/dmolnar/mailstate/internal/transport"
)

func newTestAdapter(t *testing.T) (*Adapter, *testutil.TestIMAPServer, *testutil.TestSMTPServer) {
	t.Helper()

	imapSrv := testutil.NewTestIMAPServer(t)
	t.Cleanup(imapSrv.Close)
	imapSrv.EnsureMailboxes(t)

	smtpSrv := testutil.NewTestSMTPServer(t)
	t.Cleanup(smtpSrv.Close)

	a := New(Config{
		IMAPAddr: imapSrv.Address,
		SMTPAddr: smtpSrv.Address,
		Username: imapSrv.Username(),
		Password: imapSrv.Password(),
	})
	t.Cleanup(func() { _ = a.Close() })
	return a, imapSrv, smtpSrv
}

func TestFetchFoldersIntegration(t *testing.T) {
	a, _, _ := newTestAdapter(t)

	folders, err := a.FetchFolders(context.Background())
	require.NoError(t, err)

	ids := make(map[string]int)
	for _, f := range folders {
		ids[f.ID] = f.TotalCount
	}
	for _, want := range []string{"inbox", "drafts", "sent", "trash", "junk"} {
		assert.Contains(t, ids, want)
	}
	// The memory backend seeds INBOX with one message.
	assert.Equal(t, 1, ids["inbox"])
}

func TestCreateAndDeleteFolderIntegration(t *testing.T) {
	a, _, _ := newTestAdapter(t)
	ctx := context.Background()

	raw, err := a.CreateFolder(ctx, "", "Projects")
	require.NoError(t, err)
	assert.Equal(t, "Projects", raw.ID)
	assert.Empty(t, raw.ParentID)

	child, err := a.CreateFolder(ctx, "Projects", "Go")
	require.NoError(t, err)
	assert.Equal(t, "Projects/Go", child.ID)
	assert.Equal(t, "Projects", child.ParentID)
	assert.Equal(t, "Go", child.Name)

	newID, err := a.FolderAction(ctx, transport.FolderActionRequest{
		FolderID: "Projects/Go", Op: transport.FolderRename, Name: "Rust",
	})
	require.NoError(t, err)
	assert.Equal(t, "Projects/Rust", newID, "renaming changes the mailbox path, which is the id")

	_, err = a.FolderAction(ctx, transport.FolderActionRequest{
		FolderID: "Projects/Rust", Op: transport.FolderDelete,
	})
	require.NoError(t, err)

	folders, err := a.FetchFolders(ctx)
	require.NoError(t, err)
	for _, f := range folders {
		assert.NotEqual(t, "Projects/Go", f.ID)
		assert.NotEqual(t, "Projects/Rust", f.ID)
	}
}

func TestFetchMessageIntegration(t *testing.T) {
	a, imapSrv, _ := newTestAdapter(t)
	uid := imapSrv.AddMessage(t, "INBOX", "<fm-1@test>", "Quarterly numbers",
		"bob@example.com", "ada@example.com", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))

	raw, err := a.FetchMessage(context.Background(), messageID("inbox", uid), false)
	require.NoError(t, err)
	assert.Equal(t, "Quarterly numbers", raw.Subject)
	assert.Equal(t, "inbox", raw.FolderID)
	require.NotEmpty(t, raw.Participants)
	assert.Equal(t, "bob@example.com", raw.Participants[0].Address)
	assert.Equal(t, "f", raw.Participants[0].Type)

	t.Run("full fetch carries body content", func(t *testing.T) {
		full, err := a.FetchMessage(context.Background(), messageID("inbox", uid), true)
		require.NoError(t, err)
		require.NotEmpty(t, full.Parts)
		var text string
		for _, p := range full.Parts[0].Parts {
			if p.Body {
				text = p.Content
			}
		}
		assert.Contains(t, text, "Test message body.")
	})
}

func TestMsgActionFlagsIntegration(t *testing.T) {
	a, imapSrv, _ := newTestAdapter(t)
	uid := imapSrv.AddMessage(t, "INBOX", "<flag-1@test>", "Unread one",
		"bob@example.com", "ada@example.com", time.Now())
	id := messageID("inbox", uid)
	ctx := context.Background()

	raw, err := a.FetchMessage(ctx, id, false)
	require.NoError(t, err)
	assert.Contains(t, raw.Flags, "u")

	require.NoError(t, a.MsgAction(ctx, transport.ItemActionRequest{
		IDs: []string{id}, Op: transport.ItemRead,
	}))
	raw, err = a.FetchMessage(ctx, id, false)
	require.NoError(t, err)
	assert.NotContains(t, raw.Flags, "u")

	require.NoError(t, a.MsgAction(ctx, transport.ItemActionRequest{
		IDs: []string{id}, Op: transport.ItemFlag,
	}))
	raw, err = a.FetchMessage(ctx, id, false)
	require.NoError(t, err)
	assert.Contains(t, raw.Flags, "f")
}

func TestSaveDraftIntegration(t *testing.T) {
	a, _, _ := newTestAdapter(t)
	ctx := context.Background()

	draft := transport.Draft{
		From:    models.Participant{Name: "Ada", Address: "ada@example.com"},
		To:      []models.Participant{{Address: "bob@example.com"}},
		Subject: "WIP",
		Text:    "first version",
	}
	saved, err := a.SaveDraft(ctx, draft)
	require.NoError(t, err)
	assert.Equal(t, models.DraftsFolderID, saved.FolderID)
	assert.Contains(t, saved.Flags, "d")
	assert.Equal(t, "WIP", saved.Subject)

	t.Run("second save replaces the stored draft", func(t *testing.T) {
		draft.ID = saved.ID
		draft.Text = "second version"
		resaved, err := a.SaveDraft(ctx, draft)
		require.NoError(t, err)
		assert.NotEqual(t, saved.ID, resaved.ID)

		// The superseded draft is gone.
		_, err = a.FetchMessage(ctx, saved.ID, false)
		assert.Error(t, err)
	})
}

func TestSendMessageIntegration(t *testing.T) {
	a, _, smtpSrv := newTestAdapter(t)
	ctx := context.Background()

	draft := transport.Draft{
		From:    models.Participant{Name: "Ada", Address: "ada@example.com"},
		To:      []models.Participant{{Address: "bob@example.com"}},
		CC:      []models.Participant{{Address: "carol@example.com"}},
		Subject: "Hello",
		Text:    "plain body",
		HTML:    "<p>plain body</p>",
	}
	require.NoError(t, a.SendMessage(ctx, draft))

	msgs := smtpSrv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "ada@example.com", msgs[0].From)
	assert.ElementsMatch(t, []string{"bob@example.com", "carol@example.com"}, msgs[0].To)
	assert.True(t, bytes.Contains(msgs[0].Data, []byte("Subject: Hello")))

	t.Run("rejects empty recipient list", func(t *testing.T) {
		err := a.SendMessage(ctx, transport.Draft{
			From: models.Participant{Address: "ada@example.com"},
		})
		require.Error(t, err)
		var terr *transport.Error
		assert.ErrorAs(t, err, &terr)
	})
}

func TestUploadAttachmentIntegration(t *testing.T) {
	a, _, _ := newTestAdapter(t)
	ctx := context.Background()

	id, err := a.UploadAttachment(ctx, "notes.txt", "text/plain", strings.NewReader("attached notes"))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	saved, err := a.SaveDraft(ctx, transport.Draft{
		From:          models.Participant{Address: "ada@example.com"},
		Subject:       "with attachment",
		Text:          "see attached",
		AttachmentIDs: []string{id},
	})
	require.NoError(t, err)

	full, err := a.FetchMessage(ctx, saved.ID, true)
	require.NoError(t, err)
	var filenames []string
	for _, p := range full.Parts[0].Parts {
		if p.Disposition == "attachment" {
			filenames = append(filenames, p.Filename)
		}
	}
	assert.Contains(t, filenames, "notes.txt")
}
