package normalize

import (
	"reflect"
	"testing"

	"github.com/dmolnar/mailstate/internal/models"
)

func sampleRawMessage() *RawMessage {
	return &RawMessage{
		ID:             "257",
		ConversationID: "c-12",
		FolderID:       "inbox",
		DateMillis:     1700000000000,
		Subject:        "Quarterly numbers",
		Fragment:       "Hi, please find attached...",
		Flags:          "uf",
		Tags:           []string{"work"},
		Participants: []RawParticipant{
			{Address: "ada@example.com", Name: "Ada", Type: "f"},
			{Address: "bob@example.com", Name: "Bob", Type: "t"},
		},
		Parts: []RawPart{
			{
				PartID: "1", ContentType: "multipart/mixed",
				Parts: []RawPart{
					{PartID: "1.1", ContentType: "text/plain", Content: "Hi, please find attached the numbers.", Body: true},
					{PartID: "1.2", ContentType: "text/html", Content: "<p>Hi, please find attached the numbers.</p>"},
					{PartID: "1.3", ContentType: "application/pdf", Disposition: "attachment", Filename: "q3.pdf", Size: 52100},
				},
			},
		},
	}
}

func TestMessage(t *testing.T) {
	t.Run("maps identity and participants", func(t *testing.T) {
		msg, err := Message(sampleRawMessage(), false)
		if err != nil {
			t.Fatalf("Message: %v", err)
		}
		if msg.ID != "257" || msg.ConversationID != "c-12" || msg.FolderID != "inbox" {
			t.Errorf("identity not mapped: %+v", msg)
		}
		if len(msg.Participants) != 2 || msg.Participants[0].Role != models.RoleFrom {
			t.Errorf("participants = %+v", msg.Participants)
		}
	})

	t.Run("derives flags from the flag string", func(t *testing.T) {
		raw := sampleRawMessage()
		raw.Flags = "f!rw"
		msg, err := Message(raw, false)
		if err != nil {
			t.Fatalf("Message: %v", err)
		}
		if !msg.Flags.Read {
			t.Error("no 'u' flag should mean read")
		}
		if !msg.Flags.Flagged || !msg.Flags.Urgent || !msg.Flags.IsReplied || !msg.Flags.IsForwarded {
			t.Errorf("flags = %+v", msg.Flags)
		}
	})

	t.Run("drafts folder implies draft", func(t *testing.T) {
		raw := sampleRawMessage()
		raw.FolderID = models.DraftsFolderID
		raw.Flags = ""
		msg, err := Message(raw, false)
		if err != nil {
			t.Fatalf("Message: %v", err)
		}
		if !msg.Flags.IsDraft {
			t.Error("message in drafts folder should be a draft")
		}
	})

	t.Run("sent folder implies sent by me", func(t *testing.T) {
		raw := sampleRawMessage()
		raw.FolderID = models.SentFolderID
		raw.Flags = ""
		msg, err := Message(raw, false)
		if err != nil {
			t.Fatalf("Message: %v", err)
		}
		if !msg.Flags.IsSentByMe {
			t.Error("message in sent folder should be sent by me")
		}
	})

	t.Run("attachment part sets the attachment flag", func(t *testing.T) {
		msg, err := Message(sampleRawMessage(), false)
		if err != nil {
			t.Fatalf("Message: %v", err)
		}
		if !msg.Flags.HasAttachment {
			t.Error("attachment part should set the flag")
		}
	})

	t.Run("missing id is a malformed payload", func(t *testing.T) {
		raw := sampleRawMessage()
		raw.ID = ""
		if _, err := Message(raw, false); err == nil {
			t.Fatal("expected error for missing id")
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		first, err := Message(sampleRawMessage(), true)
		if err != nil {
			t.Fatalf("Message: %v", err)
		}
		second, err := Message(sampleRawMessage(), true)
		if err != nil {
			t.Fatalf("Message: %v", err)
		}
		if !reflect.DeepEqual(first, second) {
			t.Errorf("normalization not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
		}
	})
}

func TestExtractBody(t *testing.T) {
	t.Run("prefers plaintext by default", func(t *testing.T) {
		msg, err := Message(sampleRawMessage(), false)
		if err != nil {
			t.Fatalf("Message: %v", err)
		}
		if msg.BodyText != "Hi, please find attached the numbers." {
			t.Errorf("body text = %q", msg.BodyText)
		}
		// The html part is not marked as body, so it stays empty.
		if msg.BodyHTML != "" {
			t.Errorf("body html = %q, want empty", msg.BodyHTML)
		}
	})

	t.Run("fills html when requested for print", func(t *testing.T) {
		msg, err := Message(sampleRawMessage(), true)
		if err != nil {
			t.Fatalf("Message: %v", err)
		}
		if msg.BodyHTML != "<p>Hi, please find attached the numbers.</p>" {
			t.Errorf("body html = %q", msg.BodyHTML)
		}
	})

	t.Run("marked body part wins over earlier candidates", func(t *testing.T) {
		raw := sampleRawMessage()
		raw.Parts = []RawPart{
			{PartID: "1", ContentType: "text/plain", Content: "quoted preamble"},
			{PartID: "2", ContentType: "text/plain", Content: "the real body", Body: true},
		}
		msg, err := Message(raw, false)
		if err != nil {
			t.Fatalf("Message: %v", err)
		}
		if msg.BodyText != "the real body" {
			t.Errorf("body text = %q", msg.BodyText)
		}
	})
}

func TestAttachments(t *testing.T) {
	t.Run("collects nested attachment parts", func(t *testing.T) {
		tree := []RawPart{
			{PartID: "1", ContentType: "multipart/mixed", Parts: []RawPart{
				{PartID: "1.1", ContentType: "text/plain", Content: "body", Body: true},
				{PartID: "1.2", ContentType: "multipart/alternative", Parts: []RawPart{
					{PartID: "1.2.1", ContentType: "image/png", Disposition: "attachment", Filename: "deep.png"},
				}},
				{PartID: "1.3", ContentType: "application/zip", Disposition: "attachment", Filename: "top.zip"},
			}},
		}
		got := Attachments(tree)
		if len(got) != 2 {
			t.Fatalf("got %d attachments, want 2", len(got))
		}
		if got[0].Filename != "deep.png" || got[1].Filename != "top.zip" {
			t.Errorf("attachments = %+v", got)
		}
	})

	t.Run("never includes inline parts regardless of depth", func(t *testing.T) {
		tree := []RawPart{
			{PartID: "1", ContentType: "multipart/related", Parts: []RawPart{
				{PartID: "1.1", ContentType: "image/png", Disposition: "attachment", ContentID: "<logo@local>", Filename: "logo.png"},
				{PartID: "1.2", ContentType: "multipart/mixed", Parts: []RawPart{
					{PartID: "1.2.1", ContentType: "image/gif", Disposition: "attachment", ContentID: "<deep@local>", Filename: "deep.gif"},
				}},
			}},
		}
		if got := Attachments(tree); len(got) != 0 {
			t.Errorf("inline parts leaked into attachments: %+v", got)
		}
	})
}

func TestMessageBatchDropsMalformed(t *testing.T) {
	raw := []RawMessage{
		*sampleRawMessage(),
		{ID: "", Subject: "no identity"},
		{ID: "300", FolderID: "inbox"},
	}
	got := MessageBatch(raw, false)
	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2", len(got))
	}
	if got[0].ID != "257" || got[1].ID != "300" {
		t.Errorf("batch = %v, %v", got[0].ID, got[1].ID)
	}
}
