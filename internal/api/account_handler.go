package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmolnar/mailstate/internal/crypto"
	"github.com/dmolnar/mailstate/internal/db"
	"github.com/dmolnar/mailstate/internal/models"
)

// AccountHandler handles the configured mail account's settings.
type AccountHandler struct {
	pool   *pgxpool.Pool
	keeper *crypto.Keeper
}

// NewAccountHandler creates a new AccountHandler instance.
func NewAccountHandler(pool *pgxpool.Pool, keeper *crypto.Keeper) *AccountHandler {
	return &AccountHandler{pool: pool, keeper: keeper}
}

// AccountRequest is the settings update payload. The password is optional on
// update; leaving it empty keeps the stored one.
type AccountRequest struct {
	DisplayName   string `json:"display_name"`
	Address       string `json:"address"`
	IMAPHost      string `json:"imap_host"`
	SMTPHost      string `json:"smtp_host"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	SignatureText string `json:"signature_text"`
	SignatureHTML string `json:"signature_html"`
	UseTLS        bool   `json:"use_tls"`
}

// AccountResponse mirrors the stored settings without ever carrying the
// password back out.
type AccountResponse struct {
	DisplayName   string `json:"display_name"`
	Address       string `json:"address"`
	IMAPHost      string `json:"imap_host"`
	SMTPHost      string `json:"smtp_host"`
	Username      string `json:"username"`
	PasswordSet   bool   `json:"password_set"`
	SignatureText string `json:"signature_text"`
	SignatureHTML string `json:"signature_html"`
	UseTLS        bool   `json:"use_tls"`
}

// GetAccount returns the configured account.
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	settings, err := db.GetAccountSettings(r.Context(), h.pool)
	if errors.Is(err, db.ErrAccountNotFound) {
		http.Error(w, "Account not configured", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("AccountHandler: Failed to get settings: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	WriteJSONResponse(w, AccountResponse{
		DisplayName:   settings.DisplayName,
		Address:       settings.Address,
		IMAPHost:      settings.IMAPHost,
		SMTPHost:      settings.SMTPHost,
		Username:      settings.Username,
		PasswordSet:   settings.SealedPassword != "",
		SignatureText: settings.SignatureText,
		SignatureHTML: settings.SignatureHTML,
		UseTLS:        settings.UseTLS,
	})
}

// PostAccount saves or updates the account settings.
func (h *AccountHandler) PostAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req AccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("AccountHandler: Failed to decode request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := validateAccountRequest(&req); err != nil {
		log.Printf("AccountHandler: Validation failed: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Preserve the stored password when the request leaves it empty, so other
	// settings can change without re-entering it. Initial setup requires one.
	existing, err := db.GetAccountSettings(ctx, h.pool)
	if err != nil && !errors.Is(err, db.ErrAccountNotFound) {
		log.Printf("AccountHandler: Failed to get existing settings: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var sealedPassword string
	if req.Password == "" {
		if existing == nil {
			http.Error(w, "Password is required for initial setup", http.StatusBadRequest)
			return
		}
		sealedPassword = existing.SealedPassword
	} else {
		sealedPassword, err = h.keeper.Seal(req.Password)
		if err != nil {
			log.Printf("AccountHandler: Failed to seal password: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
	}

	settings := &models.AccountSettings{
		DisplayName:    req.DisplayName,
		Address:        req.Address,
		IMAPHost:       req.IMAPHost,
		SMTPHost:       req.SMTPHost,
		Username:       req.Username,
		SealedPassword: sealedPassword,
		SignatureText:  req.SignatureText,
		SignatureHTML:  req.SignatureHTML,
		UseTLS:         req.UseTLS,
	}

	if err := db.SaveAccountSettings(ctx, h.pool, settings); err != nil {
		log.Printf("AccountHandler: Failed to save settings: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	WriteJSONResponse(w, struct {
		Success bool `json:"success"`
	}{Success: true})
}

// validateAccountRequest ensures all required fields are present. The
// password is validated separately because it is optional on update.
func validateAccountRequest(req *AccountRequest) error {
	if req.Address == "" {
		return errors.New("address is required")
	}
	if req.IMAPHost == "" {
		return errors.New("IMAP host is required")
	}
	if req.SMTPHost == "" {
		return errors.New("SMTP host is required")
	}
	if req.Username == "" {
		return errors.New("username is required")
	}
	return nil
}
