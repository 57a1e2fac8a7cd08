package imapsmtp

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/emersion/go-imap"
	sortthread "github.com/emersion/go-imap-sortthread"

	"github.com/dmolnar/mailstate/internal/normalize"
	"github.com/dmolnar/mailstate/internal/transport"
)

// fetchHeaders fetches envelope, body structure, flags and UID for the given
// UIDs on an already-selected mailbox.
func fetchHeaders(lc *lockedClient, uids []uint32) ([]*imap.Message, error) {
	if len(uids) == 0 {
		return nil, nil
	}

	seqSet := new(imap.SeqSet)
	for _, uid := range uids {
		seqSet.AddNum(uid)
	}
	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchBodyStructure,
		imap.FetchFlags,
		imap.FetchUid,
	}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- lc.client.UidFetch(seqSet, items, messages)
	}()

	var result []*imap.Message
	for msg := range messages {
		result = append(result, msg)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return result, nil
}

// runThread runs UID THREAD with the REFERENCES algorithm on the selected
// mailbox, restricted by the criteria.
func runThread(lc *lockedClient, criteria *imap.SearchCriteria) ([]*sortthread.Thread, error) {
	threadClient := sortthread.NewThreadClient(lc.client)
	threads, err := threadClient.UidThread(sortthread.References, criteria)
	if err != nil {
		return nil, fmt.Errorf("THREAD command returned error: %w", err)
	}
	return threads, nil
}

// threadMembers flattens a thread tree into its member UIDs, root first.
func threadMembers(t *sortthread.Thread) []uint32 {
	if t == nil {
		return nil
	}
	uids := []uint32{t.Id}
	for _, child := range t.Children {
		uids = append(uids, threadMembers(child)...)
	}
	return uids
}

// searchCriteria builds the IMAP criteria for a free-text query.
func searchCriteria(query string) *imap.SearchCriteria {
	criteria := imap.NewSearchCriteria()
	if q := strings.TrimSpace(query); q != "" {
		criteria.Text = []string{q}
	}
	return criteria
}

// Search returns one page of the folder's conversation list, grouped by
// thread. Pagination runs over thread roots ordered by their latest message
// date.
func (a *Adapter) Search(ctx context.Context, req transport.SearchRequest) (*normalize.SearchResult, error) {
	lc, err := a.acquireWorker()
	if err != nil {
		return nil, &transport.Error{Op: "search", Err: err}
	}
	defer lc.release()

	if err := lc.selectMailbox(mailboxName(req.FolderID)); err != nil {
		return nil, &transport.Error{Op: "search", Err: err}
	}

	threads, err := runThread(lc, searchCriteria(req.Query))
	if err != nil {
		return nil, &transport.Error{Op: "search", Err: err}
	}

	// Fetch every member header once, keyed by UID, then assemble per thread.
	var allUIDs []uint32
	for _, t := range threads {
		allUIDs = append(allUIDs, threadMembers(t)...)
	}
	headers, err := fetchHeaders(lc, allUIDs)
	if err != nil {
		return nil, &transport.Error{Op: "search", Err: err}
	}
	byUID := make(map[uint32]*imap.Message, len(headers))
	for _, m := range headers {
		byUID[m.Uid] = m
	}

	convs := make([]normalize.RawConversation, 0, len(threads))
	for _, t := range threads {
		if t == nil {
			continue
		}
		if c, ok := buildConversation(req.FolderID, t, byUID); ok {
			convs = append(convs, c)
		}
	}

	sort.SliceStable(convs, func(i, j int) bool {
		if req.SortBy == transport.SortDateAsc {
			return convs[i].DateMillis < convs[j].DateMillis
		}
		return convs[i].DateMillis > convs[j].DateMillis
	})

	total := len(convs)
	if req.Offset >= total {
		return &normalize.SearchResult{Offset: req.Offset}, nil
	}
	end := req.Offset + req.Limit
	if req.Limit <= 0 || end > total {
		end = total
	}
	return &normalize.SearchResult{
		Conversations: convs[req.Offset:end],
		More:          end < total,
		Offset:        req.Offset,
	}, nil
}

// buildConversation assembles the wire conversation for one thread from the
// fetched member headers.
func buildConversation(folderID string, t *sortthread.Thread, byUID map[uint32]*imap.Message) (normalize.RawConversation, bool) {
	conv := normalize.RawConversation{ID: conversationID(folderID, t.Id)}

	for _, uid := range threadMembers(t) {
		msg, ok := byUID[uid]
		if !ok {
			continue
		}
		raw := rawMessage(folderID, msg)
		conv.MessageCount++
		if strings.ContainsRune(raw.Flags, 'u') {
			conv.UnreadCount++
		}
		if raw.DateMillis > conv.DateMillis {
			conv.DateMillis = raw.DateMillis
		}
		conv.Flags = mergeFlagString(conv.Flags, raw.Flags)
		conv.Participants = appendParticipants(conv.Participants, raw.Participants)
		conv.Messages = append(conv.Messages, normalize.RawConvMessage{
			ID:         raw.ID,
			FolderID:   folderID,
			DateMillis: raw.DateMillis,
		})
	}
	return conv, conv.MessageCount > 0
}

// mergeFlagString unions two flag strings without duplicating letters.
func mergeFlagString(a, b string) string {
	out := a
	for _, r := range b {
		if !strings.ContainsRune(out, r) {
			out += string(r)
		}
	}
	return out
}

// appendParticipants unions participants by address and role.
func appendParticipants(have, add []normalize.RawParticipant) []normalize.RawParticipant {
	for _, p := range add {
		dup := false
		for _, h := range have {
			if strings.EqualFold(h.Address, p.Address) && h.Type == p.Type {
				dup = true
				break
			}
		}
		if !dup {
			have = append(have, p)
		}
	}
	return have
}

// FetchConversation returns the member messages of a conversation.
func (a *Adapter) FetchConversation(ctx context.Context, convID string) ([]normalize.RawMessage, error) {
	folderID, rootUID, err := parseConversationID(convID)
	if err != nil {
		return nil, &transport.Error{Op: "fetch conversation", Err: err}
	}

	lc, err := a.acquireWorker()
	if err != nil {
		return nil, &transport.Error{Op: "fetch conversation", Err: err}
	}
	defer lc.release()

	if err := lc.selectMailbox(mailboxName(folderID)); err != nil {
		return nil, &transport.Error{Op: "fetch conversation", Err: err}
	}

	uids, err := a.conversationMembers(lc, rootUID)
	if err != nil {
		return nil, &transport.Error{Op: "fetch conversation", Err: err}
	}
	headers, err := fetchHeaders(lc, uids)
	if err != nil {
		return nil, &transport.Error{Op: "fetch conversation", Err: err}
	}

	out := make([]normalize.RawMessage, 0, len(headers))
	for _, msg := range headers {
		raw := rawMessage(folderID, msg)
		raw.ConversationID = convID
		out = append(out, raw)
	}
	return out, nil
}

// conversationMembers resolves the member UIDs of the thread rooted at
// rootUID. An absent root means the thread collapsed to the root alone.
func (a *Adapter) conversationMembers(lc *lockedClient, rootUID uint32) ([]uint32, error) {
	threads, err := runThread(lc, imap.NewSearchCriteria())
	if err != nil {
		return nil, err
	}
	for _, t := range threads {
		if t != nil && t.Id == rootUID {
			return threadMembers(t), nil
		}
	}
	return []uint32{rootUID}, nil
}

// FetchMessage fetches one message. With full set, the body is downloaded and
// parsed so the returned parts carry content.
func (a *Adapter) FetchMessage(ctx context.Context, id string, full bool) (*normalize.RawMessage, error) {
	folderID, uid, err := parseMessageID(id)
	if err != nil {
		return nil, &transport.Error{Op: "fetch message", Err: err}
	}

	lc, err := a.acquireWorker()
	if err != nil {
		return nil, &transport.Error{Op: "fetch message", Err: err}
	}
	defer lc.release()

	if err := lc.selectMailbox(mailboxName(folderID)); err != nil {
		return nil, &transport.Error{Op: "fetch message", Err: err}
	}

	headers, err := fetchHeaders(lc, []uint32{uid})
	if err != nil {
		return nil, &transport.Error{Op: "fetch message", Err: err}
	}
	if len(headers) == 0 {
		return nil, &transport.Error{Op: "fetch message", Err: fmt.Errorf("message %s not found", id)}
	}
	raw := rawMessage(folderID, headers[0])

	if full {
		body, err := a.fetchFullBody(lc, uid)
		if err != nil {
			return nil, &transport.Error{Op: "fetch message", Err: err}
		}
		raw.Parts = bodyToParts(body)
	}
	return &raw, nil
}

// fetchFullBody downloads and parses the raw RFC 822 body of one message.
func (a *Adapter) fetchFullBody(lc *lockedClient, uid uint32) (*normalize.FullBody, error) {
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
		return nil, fmt.Errorf("failed to fetch message body: %w", err)
	}
	if msg == nil {
		return nil, fmt.Errorf("server did not return message")
	}
	r := msg.GetBody(section)
	if r == nil {
		return nil, fmt.Errorf("server returned no body section")
	}
	return normalize.ParseFullBody(r)
}

// bodyToParts renders a parsed body as the wire part tree, content included.
func bodyToParts(body *normalize.FullBody) []normalize.RawPart {
	root := normalize.RawPart{PartID: "1", ContentType: "multipart/mixed"}
	root.Parts = append(root.Parts, normalize.RawPart{
		PartID:      "1.1",
		ContentType: "text/plain",
		Content:     body.Text,
		Body:        true,
	})
	if body.HTML != "" {
		root.Parts = append(root.Parts, normalize.RawPart{
			PartID:      "1.2",
			ContentType: "text/html",
			Content:     body.HTML,
		})
	}
	for i, att := range body.Attachments {
		root.Parts = append(root.Parts, normalize.RawPart{
			PartID:      fmt.Sprintf("1.%d", i+3),
			ContentType: att.ContentType,
			Disposition: "attachment",
			Filename:    att.Filename,
			Size:        att.Size,
		})
	}
	return []normalize.RawPart{root}
}
