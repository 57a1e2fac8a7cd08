package dispatch

import (
	"context"

	"github.com/dmolnar/mailstate/internal/models"
	"github.com/dmolnar/mailstate/internal/normalize"
	"github.com/dmolnar/mailstate/internal/store"
	"github.com/dmolnar/mailstate/internal/transport"
)

// OpenFolder scopes the conversation list to a folder, resetting its fetch
// state when the query or sort order differs from the last fetch.
func (d *Dispatcher) OpenFolder(folderID, query, sortBy string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.store.Conversations.SetCurrentFolder(folderID)
	st := d.store.Searches.State(folderID)
	if st.Query != query || st.SortBy != sortBy {
		d.store.Searches.Reset(folderID, query, sortBy)
	}
}

// SearchConversations fetches the next page of the folder's conversation list.
// A fetch already in flight makes the call a no-op; callers do not queue.
func (d *Dispatcher) SearchConversations(ctx context.Context, folderID string) error {
	d.mu.Lock()
	if !d.store.Searches.Begin(folderID) {
		d.mu.Unlock()
		return nil
	}
	st := d.store.Searches.State(folderID)
	d.mu.Unlock()

	req := transport.SearchRequest{
		FolderID: folderID,
		Query:    st.Query,
		SortBy:   transport.SortOrder(st.SortBy),
		Offset:   st.Offset,
		Limit:    d.cfg.PageSize,
	}
	res, err := d.transport.Search(ctx, req)
	if err != nil {
		d.mu.Lock()
		d.store.Searches.Fail(folderID)
		d.mu.Unlock()
		d.publish("search/fetch", err, folderID)
		return err
	}

	convs := normalize.ConversationBatch(res.Conversations)
	d.mu.Lock()
	d.store.Conversations.Upsert(convs...)
	d.store.Searches.Complete(folderID, res.More, len(convs))
	d.mu.Unlock()

	d.persistFetchState(ctx, folderID)
	d.publish("search/fetch", nil, folderID)
	return nil
}

// ExpandConversation fetches the member messages of a conversation. A second
// expansion while one is in flight is a no-op, and an already-expanded
// conversation is served from cache.
func (d *Dispatcher) ExpandConversation(ctx context.Context, convID string) error {
	d.mu.Lock()
	switch d.store.Conversations.ExpandedStatus(convID) {
	case store.StatusPending, store.StatusComplete:
		d.mu.Unlock()
		return nil
	}
	d.store.Conversations.SetExpandedStatus(convID, store.StatusPending)
	d.mu.Unlock()

	raw, err := d.transport.FetchConversation(ctx, convID)
	if err != nil {
		d.mu.Lock()
		d.store.Conversations.SetExpandedStatus(convID, store.StatusError)
		d.mu.Unlock()
		d.publish("conversation/expand", err, convID)
		return err
	}

	msgs := normalize.MessageBatch(raw, false)
	d.mu.Lock()
	d.store.Messages.Upsert(msgs...)
	d.store.Conversations.SetExpandedStatus(convID, store.StatusComplete)
	d.mu.Unlock()

	d.persistMessages(ctx, msgs)
	d.publish("conversation/expand", nil, convID)
	return nil
}

// FetchMessage loads one message body. With forPrint set, the full body
// including unmarked HTML alternatives is requested and kept.
func (d *Dispatcher) FetchMessage(ctx context.Context, id string, forPrint bool) (*models.Message, error) {
	raw, err := d.transport.FetchMessage(ctx, id, forPrint)
	if err != nil {
		d.publish("message/fetch", err, id)
		return nil, err
	}
	m, err := normalize.Message(raw, forPrint)
	if err != nil {
		d.publish("message/fetch", err, id)
		return nil, err
	}

	d.mu.Lock()
	d.store.Messages.Upsert(*m)
	d.mu.Unlock()

	d.persistMessages(ctx, []models.Message{*m})
	d.publish("message/fetch", nil, id)
	return m, nil
}

// ConvAction applies a flag-or-move action to conversations. Flag changes are
// applied to the cache before the request goes out; a failed request surfaces
// the error without rolling the flags back, since the next list fetch
// reconciles anyway. Moves and deletes touch the cache only after success.
func (d *Dispatcher) ConvAction(ctx context.Context, req transport.ItemActionRequest) error {
	if patch, memberPatch := flagPatch(req.Op); patch != nil {
		d.mu.Lock()
		d.store.Conversations.PatchFlags(req.IDs, patch)
		d.store.Messages.PatchFlags(d.memberMessageIDs(req.IDs), memberPatch)
		d.mu.Unlock()
	}

	if err := d.transport.ConvAction(ctx, req); err != nil {
		d.publish("conversation/action", err, req.IDs...)
		return err
	}

	var moved, deleted []string
	d.mu.Lock()
	switch req.Op {
	case transport.ItemMove, transport.ItemSpam, transport.ItemNotSpam, transport.ItemTrash:
		target := moveTarget(req)
		moved = d.memberMessageIDs(req.IDs)
		d.store.Messages.Move(moved, target)
		for _, convID := range req.IDs {
			for _, msgID := range moved {
				d.store.Conversations.MoveMessage(convID, msgID, target)
			}
		}
	case transport.ItemDelete:
		deleted = d.memberMessageIDs(req.IDs)
		d.store.Messages.Remove(deleted...)
		d.store.Conversations.Remove(req.IDs...)
	case transport.ItemTag, transport.ItemUntag:
		d.retag(req, true)
	}
	d.mu.Unlock()

	d.persistMoved(ctx, moved)
	d.deleteMessages(ctx, deleted)
	d.publish("conversation/action", nil, req.IDs...)
	return nil
}

// MsgAction applies a flag-or-move action to individual messages, with the
// same optimistic flag semantics as ConvAction.
func (d *Dispatcher) MsgAction(ctx context.Context, req transport.ItemActionRequest) error {
	if _, patch := flagPatch(req.Op); patch != nil {
		d.mu.Lock()
		d.store.Messages.PatchFlags(req.IDs, patch)
		d.mu.Unlock()
	}

	if err := d.transport.MsgAction(ctx, req); err != nil {
		d.publish("message/action", err, req.IDs...)
		return err
	}

	var moved, deleted []string
	d.mu.Lock()
	switch req.Op {
	case transport.ItemMove, transport.ItemSpam, transport.ItemNotSpam, transport.ItemTrash:
		target := moveTarget(req)
		moved = req.IDs
		d.store.Messages.Move(moved, target)
		for _, msgID := range moved {
			d.store.Conversations.RelocateMessage(msgID, target)
		}
	case transport.ItemDelete:
		deleted = req.IDs
		d.store.Messages.Remove(deleted...)
	case transport.ItemTag, transport.ItemUntag:
		d.retag(req, false)
	}
	d.mu.Unlock()

	d.persistMoved(ctx, moved)
	d.deleteMessages(ctx, deleted)
	d.publish("message/action", nil, req.IDs...)
	return nil
}

// persistMoved writes the post-move records of the listed messages through to
// storage, so a warm start does not resurrect them in their old folder.
func (d *Dispatcher) persistMoved(ctx context.Context, ids []string) {
	if d.persister == nil || len(ids) == 0 {
		return
	}
	var messages []models.Message
	d.mu.RLock()
	for _, id := range ids {
		if m, err := d.store.Messages.Get(id); err == nil {
			messages = append(messages, *m)
		}
	}
	d.mu.RUnlock()
	d.persistMessages(ctx, messages)
}

// memberMessageIDs collects the message ids the given conversations reference.
// Caller holds a lock.
func (d *Dispatcher) memberMessageIDs(convIDs []string) []string {
	var out []string
	for _, id := range convIDs {
		c, err := d.store.Conversations.Get(id)
		if err != nil {
			continue
		}
		for _, m := range c.Messages {
			out = append(out, m.ID)
		}
	}
	return out
}

// retag recomputes the tag list of each item after a tag/untag action. Caller
// holds the write lock.
func (d *Dispatcher) retag(req transport.ItemActionRequest, conversations bool) {
	for _, id := range req.IDs {
		var tags []string
		if conversations {
			c, err := d.store.Conversations.Get(id)
			if err != nil {
				continue
			}
			tags = c.Tags
		} else {
			m, err := d.store.Messages.Get(id)
			if err != nil {
				continue
			}
			tags = m.Tags
		}
		tags = removeTag(tags, req.TagName)
		if req.Op == transport.ItemTag {
			tags = append(tags, req.TagName)
		}
		if conversations {
			d.store.Conversations.SetTags([]string{id}, tags)
		} else {
			d.store.Messages.SetTags([]string{id}, tags)
		}
	}
}

func removeTag(tags []string, name string) []string {
	out := tags[:0:0]
	for _, t := range tags {
		if t != name {
			out = append(out, t)
		}
	}
	return out
}

// moveTarget resolves the destination folder of a move-flavoured op.
func moveTarget(req transport.ItemActionRequest) string {
	switch req.Op {
	case transport.ItemSpam:
		return models.JunkFolderID
	case transport.ItemNotSpam:
		return models.InboxFolderID
	case transport.ItemTrash:
		return models.TrashFolderID
	}
	return req.FolderID
}

// flagPatch maps a flag op to its conversation and message mutations. Both are
// nil for non-flag ops.
func flagPatch(op transport.ItemOp) (func(*models.ConversationFlags), func(*models.MessageFlags)) {
	switch op {
	case transport.ItemRead:
		return func(f *models.ConversationFlags) { f.Read = true },
			func(f *models.MessageFlags) { f.Read = true }
	case transport.ItemUnread:
		return func(f *models.ConversationFlags) { f.Read = false },
			func(f *models.MessageFlags) { f.Read = false }
	case transport.ItemFlag:
		return func(f *models.ConversationFlags) { f.Flagged = true },
			func(f *models.MessageFlags) { f.Flagged = true }
	case transport.ItemUnflag:
		return func(f *models.ConversationFlags) { f.Flagged = false },
			func(f *models.MessageFlags) { f.Flagged = false }
	case transport.ItemUrgent:
		return func(f *models.ConversationFlags) { f.Urgent = true },
			func(f *models.MessageFlags) { f.Urgent = true }
	}
	return nil, nil
}

// CreateTag creates a tag remotely and caches it.
func (d *Dispatcher) CreateTag(ctx context.Context, name string, color int) (*models.Tag, error) {
	tag, err := d.transport.CreateTag(ctx, name, color)
	if err != nil {
		d.publish("tag/create", err)
		return nil, err
	}
	d.mu.Lock()
	d.store.UpsertTag(*tag)
	d.mu.Unlock()
	d.publish("tag/create", nil, tag.ID)
	return tag, nil
}

// TagAction mutates a tag remotely and, on success, folds the change into the
// cache. Deleting a tag also strips it from every cached conversation and
// message.
func (d *Dispatcher) TagAction(ctx context.Context, req transport.TagActionRequest) error {
	if err := d.transport.TagAction(ctx, req); err != nil {
		d.publish("tag/action", err, req.TagID)
		return err
	}

	d.mu.Lock()
	switch req.Op {
	case transport.TagDelete:
		d.store.RemoveTag(req.TagID)
	default:
		if tag, err := d.store.Tag(req.TagID); err == nil {
			switch req.Op {
			case transport.TagRename:
				tag.Name = req.Name
			case transport.TagRecolor:
				tag.Color = req.Color
			}
			d.store.UpsertTag(*tag)
		}
	}
	d.mu.Unlock()

	d.publish("tag/action", nil, req.TagID)
	return nil
}
