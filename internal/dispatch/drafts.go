package dispatch

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/dmolnar/mailstate/internal/editor"
	"github.com/dmolnar/mailstate/internal/models"
	"github.com/dmolnar/mailstate/internal/normalize"
	"github.com/dmolnar/mailstate/internal/transport"
)

// OpenEditor starts a composition. originalID is resolved against the message
// cache for the variants that derive from an existing message; contacts seed
// the mailTo variant.
func (d *Dispatcher) OpenEditor(action editor.Action, editorID, originalID string, contacts []models.Participant) (*models.Editor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	params := editor.CreateParams{
		EditorID:   editorID,
		Contacts:   contacts,
		Account:    d.cfg.Account,
		Signatures: d.cfg.Signatures,
		Labels:     d.cfg.Labels,
	}
	if originalID != "" {
		original, err := d.store.Messages.Get(originalID)
		if err != nil {
			return nil, err
		}
		params.Original = original
	}
	return d.editors.Open(action, params)
}

// EditDraft applies fn to the editor's fields and schedules a debounced
// autosave. Editing an unknown editor is reported as stale.
func (d *Dispatcher) EditDraft(editorID string, fn func(*models.Editor)) error {
	d.mu.Lock()
	err := d.editors.Update(editorID, fn)
	d.mu.Unlock()
	if err != nil {
		return err
	}
	d.autosave.Schedule(editorID)
	return nil
}

// CloseEditor discards a composition and any pending autosave.
func (d *Dispatcher) CloseEditor(editorID string) {
	d.autosave.Cancel(editorID)
	d.mu.Lock()
	d.editors.Close(editorID)
	d.mu.Unlock()
}

// autosaveFired is the scheduler callback. It re-checks eligibility at fire
// time: the editor may have been closed or may still be waiting for its first
// save to come back.
func (d *Dispatcher) autosaveFired(editorID string) {
	d.mu.Lock()
	if !d.editors.ShouldAutosave(editorID) {
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := d.SaveDraft(ctx, editorID); err != nil {
		log.Printf("dispatch: autosave of editor %s: %v", editorID, err)
	}
}

// SaveDraft persists the composition as a draft. The saved message replaces
// the editor's working draft id, and the cached copy in the drafts folder is
// refreshed. When a save returns a new id, the superseded draft is evicted.
func (d *Dispatcher) SaveDraft(ctx context.Context, editorID string) error {
	d.mu.Lock()
	ed, err := d.editors.Get(editorID)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	d.editors.MarkSaveIssued(editorID)
	draft := d.buildDraft(ed)
	d.mu.Unlock()

	raw, err := d.transport.SaveDraft(ctx, draft)
	if err != nil {
		d.publish("draft/save", err, editorID)
		return err
	}
	saved, err := normalize.Message(raw, false)
	if err != nil {
		d.publish("draft/save", err, editorID)
		return err
	}

	d.mu.Lock()
	if err := d.editors.ApplySaveResult(editorID, saved); err != nil {
		// Editor closed while the save was in flight; keep the stored draft.
		d.mu.Unlock()
		d.persistMessages(ctx, []models.Message{*saved})
		d.publish("draft/save", nil, editorID)
		return nil
	}
	if ed.DID != "" && ed.DID != saved.ID {
		d.store.Messages.Remove(ed.DID)
	}
	d.store.Messages.Upsert(*saved)
	d.mu.Unlock()

	d.persistMessages(ctx, []models.Message{*saved})
	if ed.DID != "" && ed.DID != saved.ID {
		d.deleteMessages(ctx, []string{ed.DID})
	}
	d.publish("draft/save", nil, editorID)
	return nil
}

// SendMessage submits the composition. On success any pending autosave is
// cancelled, the editor is destroyed and the working draft leaves the cache.
func (d *Dispatcher) SendMessage(ctx context.Context, editorID string) error {
	d.mu.Lock()
	ed, err := d.editors.Get(editorID)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	draft := d.buildDraft(ed)
	d.mu.Unlock()

	if err := d.transport.SendMessage(ctx, draft); err != nil {
		d.publish("message/send", err, editorID)
		return err
	}

	d.autosave.Cancel(editorID)
	d.mu.Lock()
	d.editors.Close(editorID)
	if ed.DID != "" {
		d.store.Messages.Remove(ed.DID)
	}
	if ed.OriginalID != "" && ed.ReplyType != "" {
		d.store.Messages.PatchFlags([]string{ed.OriginalID}, func(f *models.MessageFlags) {
			switch ed.ReplyType {
			case "r":
				f.IsReplied = true
			case "w":
				f.IsForwarded = true
			}
		})
	}
	d.mu.Unlock()

	if ed.DID != "" {
		d.deleteMessages(ctx, []string{ed.DID})
	}
	d.publish("message/send", nil, editorID)
	return nil
}

// UploadAttachment streams an attachment to the mail service and records the
// returned id on the editor for the next save.
func (d *Dispatcher) UploadAttachment(ctx context.Context, editorID, filename, contentType string, r io.Reader) (string, error) {
	d.mu.RLock()
	_, err := d.editors.Get(editorID)
	d.mu.RUnlock()
	if err != nil {
		return "", err
	}

	id, err := d.transport.UploadAttachment(ctx, filename, contentType, r)
	if err != nil {
		d.publish("attachment/upload", err, editorID)
		return "", err
	}

	d.mu.Lock()
	uerr := d.editors.Update(editorID, func(m *models.Editor) {
		m.UploadedIDs = append(m.UploadedIDs, id)
	})
	d.mu.Unlock()
	if uerr != nil {
		return "", uerr
	}

	d.autosave.Schedule(editorID)
	d.publish("attachment/upload", nil, editorID)
	return id, nil
}

// DeleteAllAttachments strips every attachment from the composition. A draft
// already persisted by the mail service is re-saved without them and the
// editor's list is refreshed from the saved message; an unsaved composition
// only clears locally and lets the next autosave pick it up.
func (d *Dispatcher) DeleteAllAttachments(ctx context.Context, editorID string) error {
	d.mu.Lock()
	err := d.editors.Update(editorID, func(m *models.Editor) {
		m.Attachments = nil
		m.UploadedIDs = nil
	})
	var ed *models.Editor
	if err == nil {
		ed, err = d.editors.Get(editorID)
	}
	d.mu.Unlock()
	if err != nil {
		return err
	}

	if ed.DID == "" {
		d.autosave.Schedule(editorID)
		d.publish("attachment/deleteall", nil, editorID)
		return nil
	}

	raw, err := d.transport.SaveDraft(ctx, d.buildDraft(ed))
	if err != nil {
		d.publish("attachment/deleteall", err, editorID)
		return err
	}
	saved, err := normalize.Message(raw, false)
	if err != nil {
		d.publish("attachment/deleteall", err, editorID)
		return err
	}

	d.mu.Lock()
	if aerr := d.editors.ApplySaveResult(editorID, saved); aerr == nil {
		_ = d.editors.Update(editorID, func(m *models.Editor) {
			m.Attachments = editor.AttachmentRefs(saved)
		})
	}
	if ed.DID != saved.ID {
		d.store.Messages.Remove(ed.DID)
	}
	d.store.Messages.Upsert(*saved)
	d.mu.Unlock()

	d.persistMessages(ctx, []models.Message{*saved})
	if ed.DID != saved.ID {
		d.deleteMessages(ctx, []string{ed.DID})
	}
	d.publish("attachment/deleteall", nil, editorID)
	return nil
}

// buildDraft snapshots an editor into the outgoing draft shape.
func (d *Dispatcher) buildDraft(ed *models.Editor) transport.Draft {
	return transport.Draft{
		ID: ed.DID,
		From: models.Participant{
			Role:    models.RoleFrom,
			Name:    d.cfg.Account.Name,
			Address: d.cfg.Account.Address,
		},
		To:            ed.To,
		CC:            ed.CC,
		BCC:           ed.BCC,
		Subject:       ed.Subject,
		Text:          ed.Text[0],
		HTML:          ed.Text[1],
		Attachments:   ed.Attachments,
		AttachmentIDs: ed.UploadedIDs,
		Urgent:        ed.Urgent,
		OriginalID:    ed.OriginalID,
		ReplyType:     ed.ReplyType,
	}
}
