package imapsmtp

import (
	"context"
	"fmt"
	"strings"

	"github.com/emersion/go-imap"

	"github.com/dmolnar/mailstate/internal/models"
	"github.com/dmolnar/mailstate/internal/normalize"
	"github.com/dmolnar/mailstate/internal/transport"
)

// wellKnown maps IMAP special-use mailbox names to the canonical system ids.
var wellKnown = map[string]string{
	"INBOX":  models.InboxFolderID,
	"Drafts": models.DraftsFolderID,
	"Sent":   models.SentFolderID,
	"Trash":  models.TrashFolderID,
	"Junk":   models.JunkFolderID,
	"Spam":   models.JunkFolderID,
}

// folderID maps a mailbox name to a folder id. System mailboxes get their
// canonical id; everything else keeps the full mailbox name, which is stable
// across sessions.
func folderID(mailbox string) string {
	if id, ok := wellKnown[mailbox]; ok {
		return id
	}
	return mailbox
}

// mailboxName maps a folder id back to its IMAP mailbox name.
func mailboxName(id string) string {
	switch id {
	case models.InboxFolderID:
		return "INBOX"
	case models.DraftsFolderID:
		return "Drafts"
	case models.SentFolderID:
		return "Sent"
	case models.TrashFolderID:
		return "Trash"
	case models.JunkFolderID:
		return "Junk"
	}
	return id
}

// FetchFolders lists every mailbox and its counts.
func (a *Adapter) FetchFolders(ctx context.Context) ([]normalize.RawFolder, error) {
	lc, err := a.acquireWorker()
	if err != nil {
		return nil, &transport.Error{Op: "fetch folders", Err: err}
	}
	defer lc.release()

	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)
	go func() {
		done <- lc.client.List("", "*", mailboxes)
	}()

	type listed struct {
		name      string
		delimiter string
	}
	var infos []listed
	for m := range mailboxes {
		infos = append(infos, listed{name: m.Name, delimiter: m.Delimiter})
	}
	if err := <-done; err != nil {
		return nil, &transport.Error{Op: "fetch folders", Err: fmt.Errorf("failed to list folders: %w", err)}
	}

	// A LIST response invalidates the selection tracking on some servers.
	lc.selected = ""

	folders := make([]normalize.RawFolder, 0, len(infos))
	for _, info := range infos {
		status, err := lc.client.Status(info.name, []imap.StatusItem{imap.StatusMessages, imap.StatusUnseen})
		if err != nil {
			return nil, &transport.Error{Op: "fetch folders", Err: fmt.Errorf("failed to get status of %s: %w", info.name, err)}
		}

		name := info.name
		parentID := ""
		if info.delimiter != "" {
			if i := strings.LastIndex(info.name, info.delimiter); i >= 0 {
				parentID = folderID(info.name[:i])
				name = info.name[i+len(info.delimiter):]
			}
		}

		folders = append(folders, normalize.RawFolder{
			ID:          folderID(info.name),
			ParentID:    parentID,
			Name:        name,
			UnreadCount: int(status.Unseen),
			TotalCount:  int(status.Messages),
		})
	}
	return folders, nil
}

// CreateFolder creates a mailbox under the parent.
func (a *Adapter) CreateFolder(ctx context.Context, parentID, name string) (*normalize.RawFolder, error) {
	lc, err := a.acquireWorker()
	if err != nil {
		return nil, &transport.Error{Op: "create folder", Err: err}
	}
	defer lc.release()

	mailbox := name
	if parentID != "" && parentID != models.RootFolderID {
		mailbox = mailboxName(parentID) + "/" + name
	}
	if err := lc.client.Create(mailbox); err != nil {
		return nil, &transport.Error{Op: "create folder", Err: fmt.Errorf("failed to create %s: %w", mailbox, err)}
	}

	raw := &normalize.RawFolder{ID: folderID(mailbox), Name: name}
	if parentID != "" && parentID != models.RootFolderID {
		raw.ParentID = parentID
	}
	return raw, nil
}

// FolderAction performs a folder mutation. Color and retention have no IMAP
// representation; they are accepted and live only in the local folder table.
// Renames and moves change the mailbox path, which doubles as the folder id,
// so the new id is returned.
func (a *Adapter) FolderAction(ctx context.Context, req transport.FolderActionRequest) (string, error) {
	switch req.Op {
	case transport.FolderRecolor, transport.FolderRetention:
		return "", nil
	}

	lc, err := a.acquireWorker()
	if err != nil {
		return "", &transport.Error{Op: "folder action", Err: err}
	}
	defer lc.release()

	mailbox := mailboxName(req.FolderID)
	switch req.Op {
	case transport.FolderRename:
		target := req.Name
		if i := strings.LastIndex(mailbox, "/"); i >= 0 {
			target = mailbox[:i+1] + req.Name
		}
		if err := lc.client.Rename(mailbox, target); err != nil {
			return "", &transport.Error{Op: "folder action", Err: fmt.Errorf("failed to rename %s: %w", mailbox, err)}
		}
		lc.selected = ""
		return folderID(target), nil

	case transport.FolderMove:
		leaf := mailbox
		if i := strings.LastIndex(mailbox, "/"); i >= 0 {
			leaf = mailbox[i+1:]
		}
		target := leaf
		if req.ParentID != "" && req.ParentID != models.RootFolderID {
			target = mailboxName(req.ParentID) + "/" + leaf
		}
		if err := lc.client.Rename(mailbox, target); err != nil {
			return "", &transport.Error{Op: "folder action", Err: fmt.Errorf("failed to move %s: %w", mailbox, err)}
		}
		lc.selected = ""
		return folderID(target), nil

	case transport.FolderDelete:
		if err := lc.client.Delete(mailbox); err != nil {
			return "", &transport.Error{Op: "folder action", Err: fmt.Errorf("failed to delete %s: %w", mailbox, err)}
		}
		lc.selected = ""

	case transport.FolderEmpty:
		if err := lc.selectMailbox(mailbox); err != nil {
			return "", &transport.Error{Op: "folder action", Err: err}
		}
		seqSet := new(imap.SeqSet)
		seqSet.AddRange(1, 0)
		item := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := lc.client.Store(seqSet, item, []interface{}{imap.DeletedFlag}, nil); err != nil {
			return "", &transport.Error{Op: "folder action", Err: fmt.Errorf("failed to flag messages in %s: %w", mailbox, err)}
		}
		if err := lc.client.Expunge(nil); err != nil {
			return "", &transport.Error{Op: "folder action", Err: fmt.Errorf("failed to expunge %s: %w", mailbox, err)}
		}

	default:
		return "", &transport.Error{Op: "folder action", Err: fmt.Errorf("unsupported op %q", req.Op)}
	}
	return "", nil
}
