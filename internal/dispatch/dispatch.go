// Package dispatch wires user actions and fetch completions to the entity
// store. Every action runs its store mutations under one mutex, so reducers
// never interleave and each event is applied to completion before the next.
package dispatch

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/dmolnar/mailstate/internal/editor"
	"github.com/dmolnar/mailstate/internal/models"
	"github.com/dmolnar/mailstate/internal/store"
	"github.com/dmolnar/mailstate/internal/transport"
)

// Outcome is the tagged result of a dispatched action, for the notification
// layer to map to user-visible feedback.
type Outcome struct {
	Action string   `json:"action"`
	Status string   `json:"status"`
	Error  string   `json:"error,omitempty"`
	IDs    []string `json:"ids,omitempty"`
}

// Outcome statuses.
const (
	StatusFulfilled = "fulfilled"
	StatusRejected  = "rejected"
)

// Notifier receives action outcomes.
type Notifier interface {
	Publish(Outcome)
}

// Persister writes normalized entities through to durable storage for warm
// starts. All methods are best-effort from the dispatcher's point of view.
type Persister interface {
	SaveFolders(ctx context.Context, folders []models.Folder) error
	DeleteFolders(ctx context.Context, ids []string) error
	SaveMessages(ctx context.Context, messages []models.Message) error
	DeleteMessages(ctx context.Context, ids []string) error
	SaveFetchState(ctx context.Context, folderID string, state store.FetchState) error
}

// Config carries the per-account composition context and tunables.
type Config struct {
	Account       editor.Account
	Signatures    editor.Signatures
	Labels        editor.ReplyLabels
	PageSize      int
	AutosaveDelay time.Duration
}

// Dispatcher owns the store and serializes every mutation against it.
type Dispatcher struct {
	mu        sync.RWMutex
	store     *store.Store
	transport transport.Transport
	editors   *editor.Editors
	autosave  *editor.Scheduler
	notifier  Notifier
	persister Persister
	cfg       Config
}

// New creates a dispatcher. notifier and persister may be nil.
func New(st *store.Store, tr transport.Transport, notifier Notifier, persister Persister, cfg Config) *Dispatcher {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.AutosaveDelay <= 0 {
		cfg.AutosaveDelay = 2 * time.Second
	}
	d := &Dispatcher{
		store:     st,
		transport: tr,
		editors:   editor.NewEditors(),
		notifier:  notifier,
		persister: persister,
		cfg:       cfg,
	}
	d.autosave = editor.NewScheduler(cfg.AutosaveDelay, d.autosaveFired)
	return d
}

// Stop cancels all pending autosave timers.
func (d *Dispatcher) Stop() {
	d.autosave.Stop()
}

// publish reports an action outcome, fulfilled when err is nil.
func (d *Dispatcher) publish(action string, err error, ids ...string) {
	if d.notifier == nil {
		return
	}
	o := Outcome{Action: action, Status: StatusFulfilled, IDs: ids}
	if err != nil {
		o.Status = StatusRejected
		o.Error = err.Error()
	}
	d.notifier.Publish(o)
}

// persistFolders writes the current folder table through to storage.
func (d *Dispatcher) persistFolders(ctx context.Context) {
	if d.persister == nil {
		return
	}
	all := d.store.Folders.All()
	folders := make([]models.Folder, 0, len(all))
	for _, f := range all {
		folders = append(folders, *f)
	}
	if err := d.persister.SaveFolders(ctx, folders); err != nil {
		log.Printf("dispatch: persisting folders: %v", err)
	}
}

func (d *Dispatcher) persistMessages(ctx context.Context, messages []models.Message) {
	if d.persister == nil || len(messages) == 0 {
		return
	}
	if err := d.persister.SaveMessages(ctx, messages); err != nil {
		log.Printf("dispatch: persisting messages: %v", err)
	}
}

// deleteMessages removes evicted messages from durable storage, so they do
// not resurrect on the next warm start.
func (d *Dispatcher) deleteMessages(ctx context.Context, ids []string) {
	if d.persister == nil || len(ids) == 0 {
		return
	}
	if err := d.persister.DeleteMessages(ctx, ids); err != nil {
		log.Printf("dispatch: deleting messages: %v", err)
	}
}

func (d *Dispatcher) persistFetchState(ctx context.Context, folderID string) {
	if d.persister == nil {
		return
	}
	if err := d.persister.SaveFetchState(ctx, folderID, d.store.Searches.State(folderID)); err != nil {
		log.Printf("dispatch: persisting fetch state for %s: %v", folderID, err)
	}
}

// Hydrate seeds the store from persisted entities, typically at startup.
// Restored fetch states resume pagination where the last run left off; an
// interrupted fetch was persisted as an error, so it retries from its offset.
func (d *Dispatcher) Hydrate(folders []models.Folder, messages []models.Message, states map[string]store.FetchState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.store.Folders.Add(folders...)
	d.store.Messages.Upsert(messages...)
	d.store.Searches.Restore(states)
}

// Read-only selectors for the presentation layer.

// Folder returns the folder with its derived fields.
func (d *Dispatcher) Folder(id string) (*models.Folder, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.store.Folders.Get(id)
}

// Folders returns every folder in insertion order.
func (d *Dispatcher) Folders() []*models.Folder {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.store.Folders.All()
}

// ConversationsForFolder returns the folder's conversation list, newest first.
func (d *Dispatcher) ConversationsForFolder(folderID string) []*models.Conversation {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.store.Conversations.InFolder(folderID)
}

// MessagesForFolder returns the cached messages residing in the folder.
func (d *Dispatcher) MessagesForFolder(folderID string) []*models.Message {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.store.Messages.InFolder(folderID)
}

// Message returns a cached message.
func (d *Dispatcher) Message(id string) (*models.Message, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.store.Messages.Get(id)
}

// Editor returns an active composition.
func (d *Dispatcher) Editor(id string) (*models.Editor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.editors.Get(id)
}

// Tags returns every tag.
func (d *Dispatcher) Tags() []*models.Tag {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.store.Tags()
}

// SearchState returns the folder's fetch state.
func (d *Dispatcher) SearchState(folderID string) store.FetchState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.store.Searches.State(folderID)
}
