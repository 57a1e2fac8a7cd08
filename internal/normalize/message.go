package normalize

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmolnar/mailstate/internal/models"
)

// ErrMalformedPayload is returned when a raw entity is missing its identity.
// The caller drops the entity from the merge; other entities in the same
// batch still apply.
var ErrMalformedPayload = errors.New("malformed payload")

// Flag letters used in the service's flag string.
const (
	flagUnread     = 'u'
	flagFlagged    = 'f'
	flagAttachment = 'a'
	flagReplied    = 'r'
	flagForwarded  = 'w'
	flagSentByMe   = 's'
	flagDraft      = 'd'
	flagUrgent     = '!'
)

// Message converts a raw message payload into the canonical shape. With
// forPrint set, the HTML body part is preferred over the plaintext
// alternative.
func Message(raw *RawMessage, forPrint bool) (*models.Message, error) {
	if raw == nil || raw.ID == "" {
		return nil, fmt.Errorf("message: %w", ErrMalformedPayload)
	}

	msg := &models.Message{
		ID:             raw.ID,
		ConversationID: raw.ConversationID,
		FolderID:       raw.FolderID,
		Date:           time.UnixMilli(raw.DateMillis).UTC(),
		Subject:        raw.Subject,
		Fragment:       raw.Fragment,
		Participants:   participants(raw.Participants),
		Parts:          parts(raw.Parts),
		Tags:           append([]string(nil), raw.Tags...),
	}

	msg.BodyText, msg.BodyHTML = extractBody(raw.Parts, forPrint)
	msg.Flags = messageFlags(raw)
	return msg, nil
}

// messageFlags derives the boolean flags from the flag string and the
// folder-id conventions: a message in Drafts is a draft and one in Sent is
// sent by me even when the service omitted the letter.
func messageFlags(raw *RawMessage) models.MessageFlags {
	has := func(r rune) bool { return strings.ContainsRune(raw.Flags, r) }
	return models.MessageFlags{
		Read:          !has(flagUnread),
		Flagged:       has(flagFlagged),
		Urgent:        has(flagUrgent),
		HasAttachment: has(flagAttachment) || len(Attachments(raw.Parts)) > 0,
		IsDraft:       has(flagDraft) || raw.FolderID == models.DraftsFolderID,
		IsSentByMe:    has(flagSentByMe) || raw.FolderID == models.SentFolderID,
		IsReplied:     has(flagReplied),
		IsForwarded:   has(flagForwarded),
	}
}

// Attachments walks the part tree and collects the attachment parts: parts
// with attachment disposition and no content-id. Inline parts (content-id
// set) are excluded at any nesting depth.
func Attachments(tree []RawPart) []models.MimePart {
	var out []models.MimePart
	for _, p := range tree {
		if p.Disposition == "attachment" && p.ContentID == "" {
			out = append(out, part(p))
		}
		out = append(out, Attachments(p.Parts)...)
	}
	return out
}

// extractBody picks the plain and HTML body variants out of the part tree.
// The part the service marked as body wins within each content type; with
// forPrint the HTML variant is filled even from unmarked text/html parts.
func extractBody(tree []RawPart, forPrint bool) (plain, html string) {
	var plainFound, htmlFound, htmlMarked bool
	var walk func(parts []RawPart)
	walk = func(ps []RawPart) {
		for _, p := range ps {
			switch {
			case strings.HasPrefix(p.ContentType, "text/html") && p.Disposition != "attachment":
				if p.Body && !htmlMarked {
					html = p.Content
					htmlFound, htmlMarked = true, true
				} else if !htmlFound && forPrint {
					html = p.Content
					htmlFound = true
				}
			case strings.HasPrefix(p.ContentType, "text/plain") && p.Disposition != "attachment":
				if p.Body || !plainFound {
					plain = p.Content
					plainFound = true
				}
			}
			walk(p.Parts)
		}
	}
	walk(tree)
	return plain, html
}

func participants(raw []RawParticipant) []models.Participant {
	out := make([]models.Participant, 0, len(raw))
	for _, p := range raw {
		out = append(out, models.Participant{
			Role:    models.ParticipantRole(p.Type),
			Address: p.Address,
			Name:    p.Name,
		})
	}
	return out
}

func parts(raw []RawPart) []models.MimePart {
	if len(raw) == 0 {
		return nil
	}
	out := make([]models.MimePart, 0, len(raw))
	for _, p := range raw {
		out = append(out, part(p))
	}
	return out
}

func part(p RawPart) models.MimePart {
	return models.MimePart{
		PartID:      p.PartID,
		ContentType: p.ContentType,
		Size:        p.Size,
		Disposition: p.Disposition,
		Filename:    p.Filename,
		ContentID:   p.ContentID,
		Content:     p.Content,
		IsBody:      p.Body,
		Parts:       parts(p.Parts),
	}
}
