package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmolnar/mailstate/internal/models"
)

// SaveMessages upserts the given messages. The key columns exist for queries;
// the payload column carries the full normalized message so nothing is lost
// between restarts.
func SaveMessages(ctx context.Context, pool *pgxpool.Pool, messages []models.Message) error {
	for _, m := range messages {
		payload, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to marshal message %s: %w", m.ID, err)
		}

		_, err = pool.Exec(ctx, `
			INSERT INTO messages (id, conversation_id, folder_id, date, subject, payload, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6::jsonb, now())
			ON CONFLICT (id) DO UPDATE SET
				conversation_id = EXCLUDED.conversation_id,
				folder_id = EXCLUDED.folder_id,
				date = EXCLUDED.date,
				subject = EXCLUDED.subject,
				payload = EXCLUDED.payload,
				updated_at = now()
		`, m.ID, m.ConversationID, m.FolderID, m.Date, m.Subject, string(payload))

		if err != nil {
			return fmt.Errorf("failed to save message %s: %w", m.ID, err)
		}
	}

	return nil
}

// LoadMessages returns every stored message, newest first.
func LoadMessages(ctx context.Context, pool *pgxpool.Pool) ([]models.Message, error) {
	rows, err := pool.Query(ctx, `
		SELECT payload FROM messages ORDER BY date DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		var m models.Message
		if err := json.Unmarshal([]byte(payload), &m); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

// DeleteMessages removes the given messages.
func DeleteMessages(ctx context.Context, pool *pgxpool.Pool, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	if _, err := pool.Exec(ctx, `DELETE FROM messages WHERE id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}

	return nil
}
