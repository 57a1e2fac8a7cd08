package imapsmtp

import (
	"context"
	"fmt"

	"github.com/emersion/go-imap"

	"github.com/dmolnar/mailstate/internal/models"
	"github.com/dmolnar/mailstate/internal/transport"
)

// ConvAction applies an action to whole conversations: every member of each
// thread is affected.
func (a *Adapter) ConvAction(ctx context.Context, req transport.ItemActionRequest) error {
	groups := make(map[string][]uint32)
	for _, id := range req.IDs {
		folderID, rootUID, err := parseConversationID(id)
		if err != nil {
			return &transport.Error{Op: "conversation action", Err: err}
		}
		groups[folderID] = append(groups[folderID], rootUID)
	}

	lc, err := a.acquireWorker()
	if err != nil {
		return &transport.Error{Op: "conversation action", Err: err}
	}
	defer lc.release()

	for folderID, roots := range groups {
		if err := lc.selectMailbox(mailboxName(folderID)); err != nil {
			return &transport.Error{Op: "conversation action", Err: err}
		}
		var uids []uint32
		for _, root := range roots {
			members, err := a.conversationMembers(lc, root)
			if err != nil {
				return &transport.Error{Op: "conversation action", Err: err}
			}
			uids = append(uids, members...)
		}
		if err := applyItemOp(lc, req, uids); err != nil {
			return &transport.Error{Op: "conversation action", Err: err}
		}
	}
	return nil
}

// MsgAction applies an action to individual messages.
func (a *Adapter) MsgAction(ctx context.Context, req transport.ItemActionRequest) error {
	groups := make(map[string][]uint32)
	for _, id := range req.IDs {
		folderID, uid, err := parseMessageID(id)
		if err != nil {
			return &transport.Error{Op: "message action", Err: err}
		}
		groups[folderID] = append(groups[folderID], uid)
	}

	lc, err := a.acquireWorker()
	if err != nil {
		return &transport.Error{Op: "message action", Err: err}
	}
	defer lc.release()

	for folderID, uids := range groups {
		if err := lc.selectMailbox(mailboxName(folderID)); err != nil {
			return &transport.Error{Op: "message action", Err: err}
		}
		if err := applyItemOp(lc, req, uids); err != nil {
			return &transport.Error{Op: "message action", Err: err}
		}
	}
	return nil
}

// applyItemOp runs one op against UIDs on the selected mailbox.
func applyItemOp(lc *lockedClient, req transport.ItemActionRequest, uids []uint32) error {
	if len(uids) == 0 {
		return nil
	}
	seqSet := new(imap.SeqSet)
	for _, uid := range uids {
		seqSet.AddNum(uid)
	}

	storeFlags := func(op imap.FlagsOp, flags ...interface{}) error {
		item := imap.FormatFlagsOp(op, true)
		if err := lc.client.UidStore(seqSet, item, flags, nil); err != nil {
			return fmt.Errorf("failed to store flags: %w", err)
		}
		return nil
	}
	move := func(folderID string) error {
		if err := lc.client.UidMove(seqSet, mailboxName(folderID)); err != nil {
			return fmt.Errorf("failed to move messages: %w", err)
		}
		return nil
	}

	switch req.Op {
	case transport.ItemRead:
		return storeFlags(imap.AddFlags, imap.SeenFlag)
	case transport.ItemUnread:
		return storeFlags(imap.RemoveFlags, imap.SeenFlag)
	case transport.ItemFlag:
		return storeFlags(imap.AddFlags, imap.FlaggedFlag)
	case transport.ItemUnflag:
		return storeFlags(imap.RemoveFlags, imap.FlaggedFlag)
	case transport.ItemUrgent:
		return storeFlags(imap.AddFlags, urgentKeyword)
	case transport.ItemTag:
		return storeFlags(imap.AddFlags, req.TagName)
	case transport.ItemUntag:
		return storeFlags(imap.RemoveFlags, req.TagName)
	case transport.ItemMove:
		return move(req.FolderID)
	case transport.ItemSpam:
		return move(models.JunkFolderID)
	case transport.ItemNotSpam:
		return move(models.InboxFolderID)
	case transport.ItemTrash:
		return move(models.TrashFolderID)
	case transport.ItemDelete:
		if err := storeFlags(imap.AddFlags, imap.DeletedFlag); err != nil {
			return err
		}
		if err := lc.client.Expunge(nil); err != nil {
			return fmt.Errorf("failed to expunge: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unsupported op %q", req.Op)
}

// CreateTag registers a tag. IMAP has no tag registry; tags are message
// keywords, so creation is purely local and the name doubles as the id.
func (a *Adapter) CreateTag(ctx context.Context, name string, color int) (*models.Tag, error) {
	if name == "" {
		return nil, &transport.Error{Op: "create tag", Err: fmt.Errorf("empty tag name")}
	}
	return &models.Tag{ID: name, Name: name, Color: color}, nil
}

// TagAction mutates a tag. Renames and recolors are local-only for the same
// reason creation is. Deleting would need a keyword sweep across every
// mailbox, so stale keywords are left to age out instead.
func (a *Adapter) TagAction(ctx context.Context, req transport.TagActionRequest) error {
	switch req.Op {
	case transport.TagRename, transport.TagRecolor, transport.TagDelete:
		return nil
	}
	return &transport.Error{Op: "tag action", Err: fmt.Errorf("unsupported op %q", req.Op)}
}
