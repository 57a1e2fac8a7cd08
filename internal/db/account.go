package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmolnar/mailstate/internal/models"
)

// ErrAccountNotFound is returned when no account has been configured yet.
var ErrAccountNotFound = errors.New("account settings not found")

// SaveAccountSettings stores the single configured account. The password must
// already be sealed by the caller; this layer never sees plaintext credentials.
func SaveAccountSettings(ctx context.Context, pool *pgxpool.Pool, settings *models.AccountSettings) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO account_settings (id, display_name, address, imap_host, smtp_host, username, sealed_password, signature_text, signature_html, use_tls, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			address = EXCLUDED.address,
			imap_host = EXCLUDED.imap_host,
			smtp_host = EXCLUDED.smtp_host,
			username = EXCLUDED.username,
			sealed_password = EXCLUDED.sealed_password,
			signature_text = EXCLUDED.signature_text,
			signature_html = EXCLUDED.signature_html,
			use_tls = EXCLUDED.use_tls,
			updated_at = now()
	`, settings.DisplayName, settings.Address, settings.IMAPHost, settings.SMTPHost,
		settings.Username, settings.SealedPassword, settings.SignatureText, settings.SignatureHTML, settings.UseTLS)

	if err != nil {
		return fmt.Errorf("failed to save account settings: %w", err)
	}

	return nil
}

// GetAccountSettings returns the configured account.
func GetAccountSettings(ctx context.Context, pool *pgxpool.Pool) (*models.AccountSettings, error) {
	var settings models.AccountSettings

	err := pool.QueryRow(ctx, `
		SELECT display_name, address, imap_host, smtp_host, username, sealed_password, signature_text, signature_html, use_tls
		FROM account_settings
		WHERE id = 1
	`).Scan(
		&settings.DisplayName,
		&settings.Address,
		&settings.IMAPHost,
		&settings.SMTPHost,
		&settings.Username,
		&settings.SealedPassword,
		&settings.SignatureText,
		&settings.SignatureHTML,
		&settings.UseTLS,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account settings: %w", err)
	}

	return &settings, nil
}
