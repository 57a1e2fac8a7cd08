// Package editor owns the in-progress composition collection. Each editor is
// created by a single constructor selecting on the composition action, and is
// the only writer of its own record; original messages are read, never
// mutated.
package editor

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmolnar/mailstate/internal/models"
)

// ErrEditorNotFound is returned when an editor id does not resolve.
var ErrEditorNotFound = errors.New("editor not found")

// Action selects the composition variant.
type Action string

const (
	ActionNew         Action = "new"
	ActionMailTo      Action = "mailTo"
	ActionEditAsDraft Action = "editAsDraft"
	ActionEditAsNew   Action = "editAsNew"
	ActionReply       Action = "reply"
	ActionReplyAll    Action = "replyAll"
	ActionForward     Action = "forward"
	ActionCompose     Action = "compose"
)

// Account identifies the composing account; its address is excluded from
// reply-all recipient lists.
type Account struct {
	Name    string
	Address string
}

// Signature is a body signature rendered in both formats.
type Signature struct {
	Text string
	HTML string
}

// Signatures holds the account's configured signatures.
type Signatures struct {
	NewMessage   Signature
	ReplyForward Signature
}

// ReplyLabels are the localized header labels used when quoting an original
// message. Label formatting is the caller's concern; the lifecycle only
// interpolates.
type ReplyLabels struct {
	From    string
	To      string
	CC      string
	Sent    string
	Subject string
}

// CreateParams carries everything a composition variant derives its initial
// fields from.
type CreateParams struct {
	// EditorID keys the new editor. Empty means a fresh synthetic id.
	EditorID string
	// Original is the message the composition starts from. Required for the
	// reply, forward and edit variants.
	Original *models.Message
	// Contacts seeds recipients for the mailTo variant.
	Contacts   []models.Participant
	Account    Account
	Signatures Signatures
	Labels     ReplyLabels
}

// Editors is the keyed collection of active compositions.
type Editors struct {
	editors map[string]*models.Editor
	// firstSaveIssued marks editors whose first autosave has been dispatched,
	// so later autosaves can be skipped until a persisted id exists.
	firstSaveIssued map[string]bool
}

// NewEditors creates an empty collection.
func NewEditors() *Editors {
	return &Editors{
		editors:         make(map[string]*models.Editor),
		firstSaveIssued: make(map[string]bool),
	}
}

// Len returns the number of active editors.
func (e *Editors) Len() int {
	return len(e.editors)
}

// Get returns a copy of the editor with the given id.
func (e *Editors) Get(id string) (*models.Editor, error) {
	ed, ok := e.editors[id]
	if !ok {
		return nil, ErrEditorNotFound
	}
	copied := *ed
	return &copied, nil
}

// Open creates the editor for a composition action and stores it under its
// id. Opening an id that already exists replaces the previous editor.
func (e *Editors) Open(action Action, params CreateParams) (*models.Editor, error) {
	ed, err := create(action, params)
	if err != nil {
		return nil, err
	}
	e.editors[ed.ID] = ed
	delete(e.firstSaveIssued, ed.ID)
	copied := *ed
	return &copied, nil
}

// Update applies fn to the editor's fields. Unknown ids return
// ErrEditorNotFound so callers can treat the edit as stale.
func (e *Editors) Update(id string, fn func(*models.Editor)) error {
	ed, ok := e.editors[id]
	if !ok {
		return ErrEditorNotFound
	}
	fn(ed)
	return nil
}

// Close destroys an editor. Closing an unknown id is a no-op.
func (e *Editors) Close(id string) {
	delete(e.editors, id)
	delete(e.firstSaveIssued, id)
}

// CloseAll destroys every editor.
func (e *Editors) CloseAll() {
	e.editors = make(map[string]*models.Editor)
	e.firstSaveIssued = make(map[string]bool)
}

// ShouldAutosave decides whether a scheduled autosave may fire: the first
// save of a composition always may; later saves only once a persisted draft
// id exists, so rapid typing cannot create duplicate unidentified drafts.
func (e *Editors) ShouldAutosave(id string) bool {
	ed, ok := e.editors[id]
	if !ok {
		return false
	}
	if !e.firstSaveIssued[id] {
		return true
	}
	return ed.DID != ""
}

// MarkSaveIssued records that a save has been dispatched for the editor.
func (e *Editors) MarkSaveIssued(id string) {
	if _, ok := e.editors[id]; ok {
		e.firstSaveIssued[id] = true
	}
}

// ApplySaveResult folds a completed save-draft round trip back into the
// editor: the persisted draft id is assigned or refreshed, and the first save
// of an edited draft records the superseded message id.
func (e *Editors) ApplySaveResult(id string, saved *models.Message) error {
	ed, ok := e.editors[id]
	if !ok {
		return ErrEditorNotFound
	}
	ed.DID = saved.ID
	if ed.OldID == "" {
		ed.OldID = ed.OriginalID
	}
	return nil
}

// create derives the initial editor fields for the action variant.
func create(action Action, p CreateParams) (*models.Editor, error) {
	id := p.EditorID
	if id == "" {
		id = uuid.NewString()
	}

	ed := &models.Editor{
		ID:       id,
		RichText: true,
		Text:     newMessageText(p.Signatures),
	}

	needsOriginal := action == ActionEditAsDraft || action == ActionEditAsNew ||
		action == ActionReply || action == ActionReplyAll || action == ActionForward
	if needsOriginal && p.Original == nil {
		return nil, fmt.Errorf("action %s requires an original message", action)
	}

	switch action {
	case ActionNew, ActionCompose:
		// Nothing beyond the signature-prefilled empty editor.

	case ActionMailTo:
		if len(p.Contacts) > 0 {
			to := p.Contacts[0]
			to.Role = models.RoleTo
			ed.To = []models.Participant{to}
			for _, c := range p.Contacts[1:] {
				c.Role = models.RoleCC
				ed.CC = append(ed.CC, c)
			}
		}

	case ActionEditAsDraft, ActionEditAsNew:
		ed.To = p.Original.ParticipantsByRole(models.RoleTo)
		ed.CC = p.Original.ParticipantsByRole(models.RoleCC)
		ed.BCC = p.Original.ParticipantsByRole(models.RoleBCC)
		ed.Subject = p.Original.Subject
		ed.Text = [2]string{p.Original.BodyText, p.Original.BodyHTML}
		ed.Attachments = AttachmentRefs(p.Original)
		ed.Urgent = p.Original.Flags.Urgent
		ed.OriginalID = p.Original.ID
		if action == ActionEditAsDraft {
			// Keep pointing at the stored draft so the next save overwrites it.
			ed.DID = p.Original.ID
		}

	case ActionReply:
		ed.To = replyRecipients(p.Original)
		ed.Subject = "RE: " + p.Original.Subject
		ed.Text = replyText(p.Original, p.Signatures, p.Labels)
		ed.Attachments = AttachmentRefs(p.Original)
		ed.Urgent = p.Original.Flags.Urgent
		ed.OriginalID = p.Original.ID
		ed.ReplyType = "r"

	case ActionReplyAll:
		ed.To, ed.CC = replyAllRecipients(p.Original, p.Account)
		ed.Subject = "RE: " + p.Original.Subject
		ed.Text = replyText(p.Original, p.Signatures, p.Labels)
		ed.Attachments = AttachmentRefs(p.Original)
		ed.Urgent = p.Original.Flags.Urgent
		ed.OriginalID = p.Original.ID
		ed.ReplyType = "r"

	case ActionForward:
		ed.Subject = "Fwd: " + p.Original.Subject
		ed.Text = replyText(p.Original, p.Signatures, p.Labels)
		ed.Attachments = AttachmentRefs(p.Original)
		ed.Urgent = p.Original.Flags.Urgent
		ed.OriginalID = p.Original.ID
		ed.ReplyType = "w"

	default:
		return nil, fmt.Errorf("unknown composition action %q", action)
	}

	return ed, nil
}
