package imapsmtp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/emersion/go-imap"

	"github.com/dmolnar/mailstate/internal/normalize"
)

// messageID builds the wire id of a message: the folder id and the IMAP UID,
// which together are stable for the lifetime of the mailbox.
func messageID(folderID string, uid uint32) string {
	return fmt.Sprintf("%s:%d", folderID, uid)
}

// parseMessageID splits a wire id back into folder id and UID.
func parseMessageID(id string) (string, uint32, error) {
	i := strings.LastIndex(id, ":")
	if i < 0 {
		return "", 0, fmt.Errorf("malformed message id %q", id)
	}
	uid, err := strconv.ParseUint(id[i+1:], 10, 32)
	if err != nil {
		return "", 0, fmt.Errorf("malformed message id %q: %w", id, err)
	}
	return id[:i], uint32(uid), nil
}

// conversationID builds the wire id of a conversation from its thread root.
func conversationID(folderID string, rootUID uint32) string {
	return fmt.Sprintf("%s:t%d", folderID, rootUID)
}

// parseConversationID splits a conversation id into folder id and root UID.
func parseConversationID(id string) (string, uint32, error) {
	i := strings.LastIndex(id, ":t")
	if i < 0 {
		return "", 0, fmt.Errorf("malformed conversation id %q", id)
	}
	uid, err := strconv.ParseUint(id[i+2:], 10, 32)
	if err != nil {
		return "", 0, fmt.Errorf("malformed conversation id %q: %w", id, err)
	}
	return id[:i], uint32(uid), nil
}

// forwardedKeyword is the de-facto standard keyword for forwarded messages.
const forwardedKeyword = "$Forwarded"

// urgentKeyword marks messages the user flagged urgent.
const urgentKeyword = "$Urgent"

// flagString renders IMAP flags as the compact flag letters of the wire
// format.
func flagString(flags []string, hasAttachment bool) string {
	var b strings.Builder
	seen := false
	for _, f := range flags {
		switch f {
		case imap.SeenFlag:
			seen = true
		case imap.FlaggedFlag:
			b.WriteByte('f')
		case imap.AnsweredFlag:
			b.WriteByte('r')
		case imap.DraftFlag:
			b.WriteByte('d')
		case forwardedKeyword:
			b.WriteByte('w')
		case urgentKeyword:
			b.WriteByte('!')
		}
	}
	if !seen {
		b.WriteByte('u')
	}
	if hasAttachment {
		b.WriteByte('a')
	}
	return b.String()
}

// rawParticipants converts envelope address lists into wire participants.
func rawParticipants(env *imap.Envelope) []normalize.RawParticipant {
	if env == nil {
		return nil
	}
	var out []normalize.RawParticipant
	add := func(role string, addrs []*imap.Address) {
		for _, a := range addrs {
			if a == nil || (a.MailboxName == "" && a.HostName == "") {
				continue
			}
			out = append(out, normalize.RawParticipant{
				Address: a.MailboxName + "@" + a.HostName,
				Name:    a.PersonalName,
				Type:    role,
			})
		}
	}
	add("f", env.From)
	add("t", env.To)
	add("c", env.Cc)
	add("b", env.Bcc)
	add("r", env.ReplyTo)
	return out
}

// rawParts converts an IMAP body structure into the wire part tree.
func rawParts(bs *imap.BodyStructure, partID string) []normalize.RawPart {
	if bs == nil {
		return nil
	}
	if len(bs.Parts) == 0 {
		if partID == "" {
			partID = "1"
		}
		return []normalize.RawPart{bodyStructurePart(bs, partID)}
	}
	p := bodyStructurePart(bs, partID)
	for i, child := range bs.Parts {
		childID := strconv.Itoa(i + 1)
		if partID != "" {
			childID = partID + "." + childID
		}
		p.Parts = append(p.Parts, rawParts(child, childID)...)
	}
	return []normalize.RawPart{p}
}

func bodyStructurePart(bs *imap.BodyStructure, partID string) normalize.RawPart {
	p := normalize.RawPart{
		PartID:      partID,
		ContentType: strings.ToLower(bs.MIMEType + "/" + bs.MIMESubType),
		Size:        int(bs.Size),
		Disposition: strings.ToLower(bs.Disposition),
		ContentID:   strings.Trim(bs.Id, "<>"),
	}
	if bs.DispositionParams != nil {
		p.Filename = bs.DispositionParams["filename"]
	}
	if p.Filename == "" && bs.Params != nil {
		p.Filename = bs.Params["name"]
	}
	if len(bs.Parts) == 0 && p.Disposition == "" && strings.HasPrefix(p.ContentType, "text/") {
		p.Body = true
	}
	return p
}

// hasAttachmentPart reports whether the body structure carries a non-inline
// attachment.
func hasAttachmentPart(bs *imap.BodyStructure) bool {
	if bs == nil {
		return false
	}
	if strings.EqualFold(bs.Disposition, "attachment") && bs.Id == "" {
		return true
	}
	for _, child := range bs.Parts {
		if hasAttachmentPart(child) {
			return true
		}
	}
	return false
}

// rawMessage converts a fetched IMAP message into the wire shape. Body
// content, when present, is attached by the caller.
func rawMessage(folderID string, msg *imap.Message) normalize.RawMessage {
	raw := normalize.RawMessage{
		ID:       messageID(folderID, msg.Uid),
		FolderID: folderID,
		Flags:    flagString(msg.Flags, hasAttachmentPart(msg.BodyStructure)),
		Parts:    rawParts(msg.BodyStructure, ""),
	}
	if msg.Envelope != nil {
		raw.Subject = msg.Envelope.Subject
		raw.Participants = rawParticipants(msg.Envelope)
		if !msg.Envelope.Date.IsZero() {
			raw.DateMillis = msg.Envelope.Date.UnixMilli()
		}
	}
	return raw
}
