package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmolnar/mailstate/internal/models"
)

// SaveFolders upserts the given folders. Derived hierarchy fields are not
// stored; they are recomputed when the folders are loaded back into the store.
func SaveFolders(ctx context.Context, pool *pgxpool.Pool, folders []models.Folder) error {
	for _, f := range folders {
		var retention *string
		if f.Retention != nil {
			data, err := json.Marshal(f.Retention)
			if err != nil {
				return fmt.Errorf("failed to marshal retention for folder %s: %w", f.ID, err)
			}
			s := string(data)
			retention = &s
		}

		_, err := pool.Exec(ctx, `
			INSERT INTO folders (id, parent_id, name, color, view, unread_count, total_count, is_shared, perm, retention, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, now())
			ON CONFLICT (id) DO UPDATE SET
				parent_id = EXCLUDED.parent_id,
				name = EXCLUDED.name,
				color = EXCLUDED.color,
				view = EXCLUDED.view,
				unread_count = EXCLUDED.unread_count,
				total_count = EXCLUDED.total_count,
				is_shared = EXCLUDED.is_shared,
				perm = EXCLUDED.perm,
				retention = EXCLUDED.retention,
				updated_at = now()
		`, f.ID, f.ParentID, f.Name, f.Color, f.View, f.UnreadCount, f.TotalCount, f.IsShared, f.Perm, retention)

		if err != nil {
			return fmt.Errorf("failed to save folder %s: %w", f.ID, err)
		}
	}

	return nil
}

// DeleteFolders removes the given folders and every message stored under them.
func DeleteFolders(ctx context.Context, pool *pgxpool.Pool, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	if _, err := pool.Exec(ctx, `DELETE FROM messages WHERE folder_id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("failed to delete folder messages: %w", err)
	}

	if _, err := pool.Exec(ctx, `DELETE FROM folder_fetch_state WHERE folder_id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("failed to delete folder fetch state: %w", err)
	}

	if _, err := pool.Exec(ctx, `DELETE FROM folders WHERE id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("failed to delete folders: %w", err)
	}

	return nil
}

// LoadFolders returns every stored folder, ready to be re-added to the store.
func LoadFolders(ctx context.Context, pool *pgxpool.Pool) ([]models.Folder, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, parent_id, name, color, view, unread_count, total_count, is_shared, perm, retention
		FROM folders
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load folders: %w", err)
	}
	defer rows.Close()

	var folders []models.Folder
	for rows.Next() {
		var f models.Folder
		var retention *string
		if err := rows.Scan(
			&f.ID,
			&f.ParentID,
			&f.Name,
			&f.Color,
			&f.View,
			&f.UnreadCount,
			&f.TotalCount,
			&f.IsShared,
			&f.Perm,
			&retention,
		); err != nil {
			return nil, fmt.Errorf("failed to scan folder: %w", err)
		}
		if retention != nil {
			var policy models.RetentionPolicy
			if err := json.Unmarshal([]byte(*retention), &policy); err != nil {
				return nil, fmt.Errorf("failed to unmarshal retention for folder %s: %w", f.ID, err)
			}
			f.Retention = &policy
		}
		folders = append(folders, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating folders: %w", err)
	}

	return folders, nil
}
