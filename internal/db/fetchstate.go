package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmolnar/mailstate/internal/store"
)

// SaveFetchState upserts the pagination bookkeeping for a folder. A pending
// status is stored as error so a restart retries the interrupted fetch instead
// of waiting for a completion that will never come.
func SaveFetchState(ctx context.Context, pool *pgxpool.Pool, folderID string, state store.FetchState) error {
	status := state.Status
	if status == store.StatusPending {
		status = store.StatusError
	}

	_, err := pool.Exec(ctx, `
		INSERT INTO folder_fetch_state (folder_id, status, fetch_offset, sort_by, query, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (folder_id) DO UPDATE SET
			status = EXCLUDED.status,
			fetch_offset = EXCLUDED.fetch_offset,
			sort_by = EXCLUDED.sort_by,
			query = EXCLUDED.query,
			updated_at = now()
	`, folderID, string(status), state.Offset, state.SortBy, state.Query)

	if err != nil {
		return fmt.Errorf("failed to save fetch state for folder %s: %w", folderID, err)
	}

	return nil
}

// LoadFetchStates returns the stored fetch state of every folder.
func LoadFetchStates(ctx context.Context, pool *pgxpool.Pool) (map[string]store.FetchState, error) {
	rows, err := pool.Query(ctx, `
		SELECT folder_id, status, fetch_offset, sort_by, query
		FROM folder_fetch_state
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load fetch states: %w", err)
	}
	defer rows.Close()

	states := make(map[string]store.FetchState)
	for rows.Next() {
		var folderID, status string
		var st store.FetchState
		if err := rows.Scan(&folderID, &status, &st.Offset, &st.SortBy, &st.Query); err != nil {
			return nil, fmt.Errorf("failed to scan fetch state: %w", err)
		}
		st.Status = store.Status(status)
		states[folderID] = st
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fetch states: %w", err)
	}

	return states, nil
}
