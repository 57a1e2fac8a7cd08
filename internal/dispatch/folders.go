package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/dmolnar/mailstate/internal/models"
	"github.com/dmolnar/mailstate/internal/normalize"
	"github.com/dmolnar/mailstate/internal/store"
	"github.com/dmolnar/mailstate/internal/transport"
)

// ErrNestingTooDeep is returned when creating a folder would exceed the
// three-level nesting limit.
var ErrNestingTooDeep = errors.New("folder nesting limit reached")

// maxFolderLevel is how deep a folder may sit below the root.
const maxFolderLevel = 3

// LoadFolders replaces the folder table with the remote list. Used for the
// initial load, where every record is authoritative.
func (d *Dispatcher) LoadFolders(ctx context.Context) error {
	raw, err := d.transport.FetchFolders(ctx)
	if err != nil {
		d.publish("folders/fetch", err)
		return err
	}
	folders := normalize.FolderBatch(raw)

	d.mu.Lock()
	d.store.Folders.Add(folders...)
	d.mu.Unlock()

	d.persistFolders(ctx)
	d.publish("folders/fetch", nil)
	return nil
}

// RefreshFolders merges the remote folder list into the table under the given
// policy. Known folders are patched, unknown ones enter as whole records.
func (d *Dispatcher) RefreshFolders(ctx context.Context, policy store.MergePolicy) error {
	raw, err := d.transport.FetchFolders(ctx)
	if err != nil {
		d.publish("folders/refresh", err)
		return err
	}

	var adds []models.Folder
	var patches []store.FolderPatch
	d.mu.Lock()
	for i := range raw {
		if _, err := d.store.Folders.Get(raw[i].ID); err == nil {
			p, perr := normalize.FolderPatch(&raw[i])
			if perr == nil {
				patches = append(patches, p)
			}
			continue
		}
		f, ferr := normalize.Folder(&raw[i])
		if ferr == nil {
			adds = append(adds, *f)
		}
	}
	if len(adds) > 0 {
		d.store.Folders.Add(adds...)
	}
	d.store.Folders.Update(policy, patches)
	d.mu.Unlock()

	d.persistFolders(ctx)
	d.publish("folders/refresh", nil)
	return nil
}

// CreateFolder creates a folder under parentID. An empty parent creates a root
// folder. Folders deeper than three levels are rejected before any request is
// sent.
func (d *Dispatcher) CreateFolder(ctx context.Context, parentID, name string) (*models.Folder, error) {
	if parentID != "" && parentID != models.RootFolderID {
		d.mu.RLock()
		parent, err := d.store.Folders.Get(parentID)
		d.mu.RUnlock()
		if err != nil {
			d.publish("folder/create", err)
			return nil, err
		}
		if parent.Level >= maxFolderLevel {
			d.publish("folder/create", ErrNestingTooDeep)
			return nil, ErrNestingTooDeep
		}
	}

	raw, err := d.transport.CreateFolder(ctx, parentID, name)
	if err != nil {
		d.publish("folder/create", err)
		return nil, err
	}
	f, err := normalize.Folder(raw)
	if err != nil {
		d.publish("folder/create", err)
		return nil, err
	}

	d.mu.Lock()
	d.store.Folders.Add(*f)
	created, _ := d.store.Folders.Get(f.ID)
	d.mu.Unlock()

	d.persistFolders(ctx)
	d.publish("folder/create", nil, f.ID)
	return created, nil
}

// FolderAction performs a folder mutation remotely and, on success, folds the
// result into the table. Moves are depth-checked before any request goes out,
// and a service that re-keys the folder as part of a rename or move has the
// change propagated through the caches.
func (d *Dispatcher) FolderAction(ctx context.Context, req transport.FolderActionRequest) error {
	if req.Op == transport.FolderMove {
		if err := d.checkMoveDepth(req); err != nil {
			d.publish("folder/action", err, req.FolderID)
			return err
		}
	}

	newID, err := d.transport.FolderAction(ctx, req)
	if err != nil {
		d.publish("folder/action", err, req.FolderID)
		return err
	}

	var emptied []string
	d.mu.Lock()
	switch req.Op {
	case transport.FolderRename:
		d.store.Folders.Update(store.MergeReplace, []store.FolderPatch{{ID: req.FolderID, Name: &req.Name}})
	case transport.FolderMove:
		parentID := req.ParentID
		if parentID == "" {
			parentID = models.RootFolderID
		}
		d.store.Folders.Update(store.MergeReplace, []store.FolderPatch{{ID: req.FolderID, ParentID: &parentID}})
	case transport.FolderRecolor:
		d.store.Folders.Update(store.MergeReplace, []store.FolderPatch{{ID: req.FolderID, Color: &req.Color}})
	case transport.FolderRetention:
		d.store.Folders.Update(store.MergeDeep, []store.FolderPatch{{
			ID:        req.FolderID,
			Retention: retentionFromRaw(req.Retention),
		}})
	case transport.FolderDelete:
		d.store.Folders.Remove(req.FolderID)
		d.evictFolderContents(req.FolderID)
	case transport.FolderEmpty:
		emptied = d.evictFolderContents(req.FolderID)
		zero := 0
		d.store.Folders.Update(store.MergeReplace, []store.FolderPatch{{
			ID: req.FolderID, UnreadCount: &zero, TotalCount: &zero,
		}})
	default:
		d.mu.Unlock()
		err := fmt.Errorf("unknown folder op %q", req.Op)
		d.publish("folder/action", err, req.FolderID)
		return err
	}
	if req.Op != transport.FolderRetention && req.Retention != nil {
		// A retention update batched with another op lands in the same dispatch.
		d.store.Folders.Update(store.MergeDeep, []store.FolderPatch{{
			ID:        req.FolderID,
			Retention: retentionFromRaw(req.Retention),
		}})
	}
	d.mu.Unlock()

	if req.Op == transport.FolderDelete && d.persister != nil {
		if err := d.persister.DeleteFolders(ctx, []string{req.FolderID}); err != nil {
			d.publish("folder/action", err, req.FolderID)
			return err
		}
	}
	d.deleteMessages(ctx, emptied)
	if newID != "" && newID != req.FolderID {
		d.rekeyFolder(ctx, req.FolderID, newID)
	}
	d.persistFolders(ctx)
	d.publish("folder/action", nil, req.FolderID)
	return nil
}

// checkMoveDepth rejects a move that would nest the folder's subtree past the
// level limit. The subtree height counts: moving a folder with children needs
// headroom for its deepest descendant.
func (d *Dispatcher) checkMoveDepth(req transport.FolderActionRequest) error {
	if req.ParentID == "" || req.ParentID == models.RootFolderID {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	parent, err := d.store.Folders.Get(req.ParentID)
	if err != nil {
		return err
	}
	subtree := 1
	if moved, merr := d.store.Folders.Get(req.FolderID); merr == nil {
		subtree = moved.Depth
	}
	if parent.Level+subtree > maxFolderLevel {
		return ErrNestingTooDeep
	}
	return nil
}

// rekeyFolder re-homes a folder whose id changed as part of a rename or move.
// Cached contents keyed by the old id (and by its descendants, whose ids
// change with it) are unusable, so they are dropped and the folder table is
// refreshed from the service to pick up the subtree under its new ids.
func (d *Dispatcher) rekeyFolder(ctx context.Context, oldID, newID string) {
	d.mu.Lock()
	old, err := d.store.Folders.Get(oldID)
	if err != nil {
		d.mu.Unlock()
		return
	}
	gone := append([]string{oldID}, d.descendantIDs(oldID)...)
	for _, id := range gone {
		d.evictFolderContents(id)
	}
	d.store.Folders.Remove(gone...)
	moved := *old
	moved.ID = newID
	d.store.Folders.Add(moved)
	d.mu.Unlock()

	if d.persister != nil {
		if err := d.persister.DeleteFolders(ctx, gone); err != nil {
			log.Printf("dispatch: deleting re-keyed folders: %v", err)
		}
	}
	if err := d.RefreshFolders(ctx, store.MergeReplace); err != nil {
		log.Printf("dispatch: refreshing folders after re-key of %s: %v", oldID, err)
	}
}

// descendantIDs walks the derived children lists below rootID. Caller holds a
// lock.
func (d *Dispatcher) descendantIDs(rootID string) []string {
	f, err := d.store.Folders.Get(rootID)
	if err != nil {
		return nil
	}
	var out []string
	for _, child := range f.Children {
		out = append(out, child)
		out = append(out, d.descendantIDs(child)...)
	}
	return out
}

// evictFolderContents drops cached conversations and messages residing in the
// folder and returns the evicted message ids. Conversations spanning other
// folders only lose the references into this one. Caller holds the write lock.
func (d *Dispatcher) evictFolderContents(folderID string) []string {
	var convGone []string
	for _, c := range d.store.Conversations.InFolder(folderID) {
		if len(c.MessagesInFolder(folderID)) == len(c.Messages) {
			convGone = append(convGone, c.ID)
		}
	}
	d.store.Conversations.Remove(convGone...)

	var msgGone []string
	for _, m := range d.store.Messages.InFolder(folderID) {
		msgGone = append(msgGone, m.ID)
	}
	d.store.Messages.Remove(msgGone...)
	d.store.Searches.Reset(folderID, "", "")
	return msgGone
}

func retentionFromRaw(raw *normalize.RawRetention) *models.RetentionPolicy {
	if raw == nil {
		return nil
	}
	policy := &models.RetentionPolicy{}
	if raw.Keep != nil {
		policy.Keep = &models.RetentionRule{Enabled: raw.Keep.Enabled, Lifetime: raw.Keep.Lifetime}
	}
	if raw.Purge != nil {
		policy.Purge = &models.RetentionRule{Enabled: raw.Purge.Enabled, Lifetime: raw.Purge.Lifetime}
	}
	return policy
}

// MarkFolderChanged records a remote change notice for the folder, so the next
// fetch decision sees stale state. Ignored while a fetch is in flight.
func (d *Dispatcher) MarkFolderChanged(folderID string) {
	d.mu.Lock()
	d.store.Searches.MarkChanged(folderID)
	d.mu.Unlock()
	d.publish("folder/changed", nil, folderID)
}

// Run consumes remote change notices until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	changes, err := d.transport.Changes(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ch, ok := <-changes:
			if !ok {
				return nil
			}
			d.MarkFolderChanged(ch.FolderID)
		}
	}
}
