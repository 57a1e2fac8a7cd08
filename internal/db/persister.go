package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmolnar/mailstate/internal/models"
	"github.com/dmolnar/mailstate/internal/store"
)

// Persister binds the package-level persistence functions to a pool so the
// dispatcher can write through without knowing about pgx.
type Persister struct {
	pool *pgxpool.Pool
}

// NewPersister wraps the given pool.
func NewPersister(pool *pgxpool.Pool) *Persister {
	return &Persister{pool: pool}
}

// SaveFolders upserts the given folders.
func (p *Persister) SaveFolders(ctx context.Context, folders []models.Folder) error {
	return SaveFolders(ctx, p.pool, folders)
}

// DeleteFolders removes the given folders and their messages.
func (p *Persister) DeleteFolders(ctx context.Context, ids []string) error {
	return DeleteFolders(ctx, p.pool, ids)
}

// SaveMessages upserts the given messages.
func (p *Persister) SaveMessages(ctx context.Context, messages []models.Message) error {
	return SaveMessages(ctx, p.pool, messages)
}

// DeleteMessages removes the given messages.
func (p *Persister) DeleteMessages(ctx context.Context, ids []string) error {
	return DeleteMessages(ctx, p.pool, ids)
}

// SaveFetchState upserts a folder's pagination bookkeeping.
func (p *Persister) SaveFetchState(ctx context.Context, folderID string, state store.FetchState) error {
	return SaveFetchState(ctx, p.pool, folderID, state)
}

// LoadFolders returns every stored folder for warm start.
func (p *Persister) LoadFolders(ctx context.Context) ([]models.Folder, error) {
	return LoadFolders(ctx, p.pool)
}

// LoadMessages returns every stored message for warm start.
func (p *Persister) LoadMessages(ctx context.Context) ([]models.Message, error) {
	return LoadMessages(ctx, p.pool)
}

// LoadFetchStates returns the stored fetch state of every folder.
func (p *Persister) LoadFetchStates(ctx context.Context) (map[string]store.FetchState, error) {
	return LoadFetchStates(ctx, p.pool)
}
