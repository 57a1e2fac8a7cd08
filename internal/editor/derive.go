package editor

import (
	"fmt"
	"strings"

	"github.com/dmolnar/mailstate/internal/models"
)

// newMessageText is the body pair of a fresh composition: just the
// new-message signature in both renderings.
func newMessageText(s Signatures) [2]string {
	return [2]string{
		"\n\n" + s.NewMessage.Text,
		"<br>" + s.NewMessage.HTML,
	}
}

// replyText builds the body pair for replies and forwards: the reply/forward
// signature followed by the quoted original under a localized header block.
func replyText(original *models.Message, s Signatures, labels ReplyLabels) [2]string {
	sender := ""
	if from := original.ParticipantsByRole(models.RoleFrom); len(from) > 0 {
		sender = formatParticipant(from[0])
	}
	to := formatParticipants(original.ParticipantsByRole(models.RoleTo))
	cc := formatParticipants(original.ParticipantsByRole(models.RoleCC))
	date := original.Date.Format("Mon, 2 Jan 2006 15:04")

	var header strings.Builder
	fmt.Fprintf(&header, "%s: %s\n", labels.From, sender)
	fmt.Fprintf(&header, "%s: %s\n", labels.To, to)
	if cc != "" {
		fmt.Fprintf(&header, "%s: %s\n", labels.CC, cc)
	}
	fmt.Fprintf(&header, "%s: %s\n", labels.Sent, date)
	fmt.Fprintf(&header, "%s: %s\n", labels.Subject, original.Subject)

	plain := "\n\n" + s.ReplyForward.Text + "\n\n---------------------------\n" +
		header.String() + "\n" + original.BodyText

	quotedHTML := original.BodyHTML
	if quotedHTML == "" {
		quotedHTML = strings.ReplaceAll(original.BodyText, "\n", "<br>")
	}
	html := "<br>" + s.ReplyForward.HTML + "<br><hr>" +
		strings.ReplaceAll(header.String(), "\n", "<br>") + "<br>" + quotedHTML

	return [2]string{plain, html}
}

// replyRecipients returns the original sender: the reply-to participants when
// present, the from participant otherwise.
func replyRecipients(original *models.Message) []models.Participant {
	if rt := original.ParticipantsByRole(models.RoleReplyTo); len(rt) > 0 {
		return asRole(rt, models.RoleTo)
	}
	return asRole(original.ParticipantsByRole(models.RoleFrom), models.RoleTo)
}

// replyAllRecipients derives the to/cc lists for reply-all: every original
// from/reply-to/to participant lands in to and every cc participant in cc,
// minus the composing account's own address, deduplicated.
func replyAllRecipients(original *models.Message, account Account) (to, cc []models.Participant) {
	self := strings.ToLower(account.Address)
	seen := map[string]bool{self: true}

	collect := func(roles []models.ParticipantRole, target models.ParticipantRole) []models.Participant {
		var out []models.Participant
		for _, role := range roles {
			for _, p := range original.ParticipantsByRole(role) {
				key := strings.ToLower(p.Address)
				if seen[key] {
					continue
				}
				seen[key] = true
				p.Role = target
				out = append(out, p)
			}
		}
		return out
	}

	to = collect([]models.ParticipantRole{models.RoleReplyTo, models.RoleFrom, models.RoleTo}, models.RoleTo)
	cc = collect([]models.ParticipantRole{models.RoleCC}, models.RoleCC)
	return to, cc
}

// AttachmentRefs lists a message's non-inline attachment parts as references,
// never copying content.
func AttachmentRefs(original *models.Message) []models.AttachmentRef {
	var out []models.AttachmentRef
	var walk func(parts []models.MimePart)
	walk = func(parts []models.MimePart) {
		for _, p := range parts {
			if p.Disposition == "attachment" && p.ContentID == "" {
				out = append(out, models.AttachmentRef{
					MessageID:   original.ID,
					PartID:      p.PartID,
					Filename:    p.Filename,
					ContentType: p.ContentType,
					Size:        p.Size,
				})
			}
			walk(p.Parts)
		}
	}
	walk(original.Parts)
	return out
}

func asRole(ps []models.Participant, role models.ParticipantRole) []models.Participant {
	out := make([]models.Participant, 0, len(ps))
	for _, p := range ps {
		p.Role = role
		out = append(out, p)
	}
	return out
}

func formatParticipant(p models.Participant) string {
	if p.Name != "" {
		return fmt.Sprintf("%s <%s>", p.Name, p.Address)
	}
	return p.Address
}

func formatParticipants(ps []models.Participant) string {
	parts := make([]string, 0, len(ps))
	for _, p := range ps {
		parts = append(parts, formatParticipant(p))
	}
	return strings.Join(parts, ", ")
}
