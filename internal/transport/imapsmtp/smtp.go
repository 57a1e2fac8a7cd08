package imapsmtp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/mail"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"github.com/jhillyerd/enmime"

	"github.com/dmolnar/mailstate/internal/models"
	"github.com/dmolnar/mailstate/internal/normalize"
	"github.com/dmolnar/mailstate/internal/transport"
)

// UploadAttachment buffers an attachment ahead of the draft that will
// reference it, returning the id to put in the draft's attachment list.
func (a *Adapter) UploadAttachment(ctx context.Context, filename, contentType string, r io.Reader) (string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return "", &transport.Error{Op: "upload attachment", Err: fmt.Errorf("failed to read attachment: %w", err)}
	}

	id := uuid.NewString()
	a.uploadsMu.Lock()
	a.uploads[id] = upload{filename: filename, contentType: contentType, content: content}
	a.uploadsMu.Unlock()
	return id, nil
}

// buildMIME renders a draft as an RFC 822 message. The generated Message-ID
// is returned so the caller can find the message after an APPEND.
func (a *Adapter) buildMIME(lc *lockedClient, draft transport.Draft) (string, []byte, error) {
	msgID := fmt.Sprintf("<%s@mailstate>", uuid.NewString())

	b := enmime.Builder().
		From(draft.From.Name, draft.From.Address).
		Subject(draft.Subject).
		Header("Message-Id", msgID)
	for _, p := range draft.To {
		b = b.To(p.Name, p.Address)
	}
	for _, p := range draft.CC {
		b = b.CC(p.Name, p.Address)
	}
	for _, p := range draft.BCC {
		b = b.BCC(p.Name, p.Address)
	}
	if draft.Text != "" {
		b = b.Text([]byte(draft.Text))
	}
	if draft.HTML != "" {
		b = b.HTML([]byte(draft.HTML))
	}
	if draft.Urgent {
		b = b.Header("X-Priority", "1")
	}

	a.uploadsMu.Lock()
	for _, id := range draft.AttachmentIDs {
		if up, ok := a.uploads[id]; ok {
			b = b.AddAttachment(up.content, up.contentType, up.filename)
		}
	}
	a.uploadsMu.Unlock()

	for _, ref := range draft.Attachments {
		content, err := a.resolveAttachment(lc, ref)
		if err != nil {
			return "", nil, err
		}
		b = b.AddAttachment(content, ref.ContentType, ref.Filename)
	}

	part, err := b.Build()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build message: %w", err)
	}
	var buf bytes.Buffer
	if err := part.Encode(&buf); err != nil {
		return "", nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return msgID, buf.Bytes(), nil
}

// resolveAttachment downloads the content of an attachment referenced from a
// stored message, matching by filename within the parsed body.
func (a *Adapter) resolveAttachment(lc *lockedClient, ref models.AttachmentRef) ([]byte, error) {
	folderID, uid, err := parseMessageID(ref.MessageID)
	if err != nil {
		return nil, err
	}
	if err := lc.selectMailbox(mailboxName(folderID)); err != nil {
		return nil, err
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)
	section := &imap.BodySectionName{}
	items := []imap.FetchItem{section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- lc.client.UidFetch(seqSet, items, messages)
	}()
	msg := <-messages
	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch attachment source: %w", err)
	}
	if msg == nil {
		return nil, fmt.Errorf("attachment source %s not found", ref.MessageID)
	}
	r := msg.GetBody(section)
	if r == nil {
		return nil, fmt.Errorf("attachment source %s has no body", ref.MessageID)
	}

	envelope, err := enmime.ReadEnvelope(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse attachment source: %w", err)
	}
	for _, p := range envelope.Attachments {
		if p.FileName == ref.Filename {
			return p.Content, nil
		}
	}
	return nil, fmt.Errorf("attachment %s not found in message %s", ref.Filename, ref.MessageID)
}

// SaveDraft appends the composition to the drafts mailbox, replacing the
// previous saved draft when one exists, and returns the stored message.
func (a *Adapter) SaveDraft(ctx context.Context, draft transport.Draft) (*normalize.RawMessage, error) {
	lc, err := a.acquireWorker()
	if err != nil {
		return nil, &transport.Error{Op: "save draft", Err: err}
	}
	defer lc.release()

	msgID, data, err := a.buildMIME(lc, draft)
	if err != nil {
		return nil, &transport.Error{Op: "save draft", Err: err}
	}

	drafts := mailboxName(models.DraftsFolderID)
	flags := []string{imap.DraftFlag, imap.SeenFlag}
	if err := lc.client.Append(drafts, flags, time.Now(), bytes.NewReader(data)); err != nil {
		return nil, &transport.Error{Op: "save draft", Err: fmt.Errorf("failed to append draft: %w", err)}
	}

	if draft.ID != "" {
		if err := a.deleteStoredMessage(lc, draft.ID); err != nil {
			return nil, &transport.Error{Op: "save draft", Err: err}
		}
	}

	uid, err := a.findByMessageID(lc, drafts, msgID)
	if err != nil {
		return nil, &transport.Error{Op: "save draft", Err: err}
	}

	headers, err := fetchHeaders(lc, []uint32{uid})
	if err != nil || len(headers) == 0 {
		return nil, &transport.Error{Op: "save draft", Err: fmt.Errorf("failed to read back draft: %w", err)}
	}
	raw := rawMessage(models.DraftsFolderID, headers[0])
	return &raw, nil
}

// findByMessageID locates the UID of a message by its Message-ID header.
func (a *Adapter) findByMessageID(lc *lockedClient, mailbox, msgID string) (uint32, error) {
	if err := lc.selectMailbox(mailbox); err != nil {
		return 0, err
	}
	criteria := imap.NewSearchCriteria()
	criteria.Header.Set("Message-Id", msgID)
	uids, err := lc.client.UidSearch(criteria)
	if err != nil {
		return 0, fmt.Errorf("failed to search for %s: %w", msgID, err)
	}
	if len(uids) == 0 {
		return 0, fmt.Errorf("appended message %s not found", msgID)
	}
	return uids[len(uids)-1], nil
}

// deleteStoredMessage expunges one message by wire id.
func (a *Adapter) deleteStoredMessage(lc *lockedClient, id string) error {
	folderID, uid, err := parseMessageID(id)
	if err != nil {
		return err
	}
	if err := lc.selectMailbox(mailboxName(folderID)); err != nil {
		return err
	}
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := lc.client.UidStore(seqSet, item, []interface{}{imap.DeletedFlag}, nil); err != nil {
		return fmt.Errorf("failed to flag old draft: %w", err)
	}
	if err := lc.client.Expunge(nil); err != nil {
		return fmt.Errorf("failed to expunge old draft: %w", err)
	}
	return nil
}

// SendMessage submits the composition over SMTP and files a copy in the sent
// mailbox.
func (a *Adapter) SendMessage(ctx context.Context, draft transport.Draft) error {
	lc, err := a.acquireWorker()
	if err != nil {
		return &transport.Error{Op: "send message", Err: err}
	}
	defer lc.release()

	_, data, err := a.buildMIME(lc, draft)
	if err != nil {
		return &transport.Error{Op: "send message", Err: err}
	}

	var rcpts []string
	for _, p := range append(append(append([]models.Participant{}, draft.To...), draft.CC...), draft.BCC...) {
		if _, err := mail.ParseAddress(p.Address); err != nil {
			return &transport.Error{Op: "send message", Err: fmt.Errorf("invalid recipient %q: %w", p.Address, err)}
		}
		rcpts = append(rcpts, p.Address)
	}
	if len(rcpts) == 0 {
		return &transport.Error{Op: "send message", Err: fmt.Errorf("no recipients")}
	}

	if err := a.submit(draft.From.Address, rcpts, data); err != nil {
		return &transport.Error{Op: "send message", Err: err}
	}

	// File the sent copy. Best effort: the message is already out.
	sent := mailboxName(models.SentFolderID)
	_ = lc.client.Append(sent, []string{imap.SeenFlag}, time.Now(), bytes.NewReader(data))

	if draft.ID != "" {
		if err := a.deleteStoredMessage(lc, draft.ID); err != nil {
			return &transport.Error{Op: "send message", Err: err}
		}
	}
	if draft.OriginalID != "" && draft.ReplyType != "" {
		flag := imap.AnsweredFlag
		if draft.ReplyType == "w" {
			flag = forwardedKeyword
		}
		folderID, uid, err := parseMessageID(draft.OriginalID)
		if err == nil {
			if err := lc.selectMailbox(mailboxName(folderID)); err == nil {
				seqSet := new(imap.SeqSet)
				seqSet.AddNum(uid)
				item := imap.FormatFlagsOp(imap.AddFlags, true)
				_ = lc.client.UidStore(seqSet, item, []interface{}{flag}, nil)
			}
		}
	}
	return nil
}

// submit performs the SMTP transaction.
func (a *Adapter) submit(from string, rcpts []string, data []byte) error {
	auth := sasl.NewPlainClient("", a.cfg.Username, a.cfg.Password)

	if a.cfg.UseTLS {
		if err := smtp.SendMail(a.cfg.SMTPAddr, auth, from, rcpts, bytes.NewReader(data)); err != nil {
			return fmt.Errorf("failed to send mail: %w", err)
		}
		return nil
	}

	// Plaintext connection for local test servers.
	c, err := smtp.Dial(a.cfg.SMTPAddr)
	if err != nil {
		return fmt.Errorf("failed to dial SMTP server: %w", err)
	}
	defer func() { _ = c.Close() }()
	if err := c.Auth(auth); err != nil {
		return fmt.Errorf("failed to authenticate with SMTP server: %w", err)
	}
	if err := c.SendMail(from, rcpts, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}
