package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmolnar/mailstate/internal/api"
	"github.com/dmolnar/mailstate/internal/config"
	"github.com/dmolnar/mailstate/internal/crypto"
	"github.com/dmolnar/mailstate/internal/db"
	"github.com/dmolnar/mailstate/internal/dispatch"
	"github.com/dmolnar/mailstate/internal/editor"
	"github.com/dmolnar/mailstate/internal/notify"
	"github.com/dmolnar/mailstate/internal/store"
	"github.com/dmolnar/mailstate/internal/transport/imapsmtp"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.NewConnection(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.CloseConnection(pool)

	log.Printf("Successfully connected to database")

	keeper, err := crypto.NewKeeper(cfg.EncryptionKeyBase64)
	if err != nil {
		log.Fatalf("Failed to create keeper: %v", err)
	}

	hub := notify.NewHub(10)
	dispatcher := buildDispatcher(ctx, cfg, pool, keeper, hub)
	server := NewServer(pool, keeper, dispatcher, hub)

	address := ":" + cfg.Port
	log.Printf("mailstate server starting on %s (environment: %s)", address, cfg.Environment)

	if err := http.ListenAndServe(address, server); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

// buildDispatcher assembles the store, transport and dispatcher for the
// configured account, seeds the store from Postgres and starts the remote
// change listener. Returns nil when no account has been configured yet; the
// server then only serves the account endpoints until a restart.
func buildDispatcher(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, keeper *crypto.Keeper, hub *notify.Hub) *dispatch.Dispatcher {
	settings, err := db.GetAccountSettings(ctx, pool)
	if errors.Is(err, db.ErrAccountNotFound) {
		log.Printf("No account configured; save settings via /api/v1/account and restart")
		return nil
	}
	if err != nil {
		log.Fatalf("Failed to load account settings: %v", err)
	}

	password, err := keeper.Open(settings.SealedPassword)
	if err != nil {
		log.Fatalf("Failed to open account password: %v", err)
	}

	adapter := imapsmtp.New(imapsmtp.Config{
		IMAPAddr: settings.IMAPHost,
		SMTPAddr: settings.SMTPHost,
		Username: settings.Username,
		Password: password,
		UseTLS:   settings.UseTLS,
	})

	persister := db.NewPersister(pool)
	signature := editor.Signature{Text: settings.SignatureText, HTML: settings.SignatureHTML}
	dispatcher := dispatch.New(store.New(), adapter, hub, persister, dispatch.Config{
		Account:    editor.Account{Name: settings.DisplayName, Address: settings.Address},
		Signatures: editor.Signatures{NewMessage: signature, ReplyForward: signature},
		Labels: editor.ReplyLabels{
			From:    "From",
			To:      "To",
			CC:      "Cc",
			Sent:    "Sent",
			Subject: "Subject",
		},
		PageSize:      cfg.PageSize,
		AutosaveDelay: cfg.AutosaveDelay,
	})

	warmStart(ctx, dispatcher, persister)

	go func() {
		if err := dispatcher.Run(ctx); err != nil {
			log.Printf("Change listener stopped: %v", err)
		}
	}()
	go func() {
		if err := dispatcher.LoadFolders(ctx); err != nil {
			log.Printf("Initial folder load failed: %v", err)
		}
	}()

	return dispatcher
}

// warmStart seeds the store from the persisted entities of the last run.
func warmStart(ctx context.Context, dispatcher *dispatch.Dispatcher, persister *db.Persister) {
	folders, err := persister.LoadFolders(ctx)
	if err != nil {
		log.Printf("Warm start: failed to load folders: %v", err)
		return
	}
	messages, err := persister.LoadMessages(ctx)
	if err != nil {
		log.Printf("Warm start: failed to load messages: %v", err)
		return
	}
	states, err := persister.LoadFetchStates(ctx)
	if err != nil {
		log.Printf("Warm start: failed to load fetch states: %v", err)
		return
	}
	dispatcher.Hydrate(folders, messages, states)
	log.Printf("Warm start: restored %d folders, %d messages, %d fetch states", len(folders), len(messages), len(states))
}

// NewServer creates and returns the HTTP handler for the mailstate API.
// dispatcher may be nil when no account is configured; only the account
// endpoints are registered then.
func NewServer(pool *pgxpool.Pool, keeper *crypto.Keeper, dispatcher *dispatch.Dispatcher, hub *notify.Hub) http.Handler {
	accountHandler := api.NewAccountHandler(pool, keeper)

	mux := http.NewServeMux()
	mux.HandleFunc("/", handleRoot)

	mux.Handle("/api/v1/account", api.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			accountHandler.GetAccount(w, r)
		case http.MethodPost:
			accountHandler.PostAccount(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	if dispatcher == nil {
		return mux
	}

	foldersHandler := api.NewFoldersHandler(dispatcher)
	conversationsHandler := api.NewConversationsHandler(dispatcher)
	messagesHandler := api.NewMessagesHandler(dispatcher)
	editorsHandler := api.NewEditorsHandler(dispatcher)
	wsHandler := api.NewWebSocketHandler(hub)

	mux.Handle("/api/v1/folders", api.RequireAuth(http.HandlerFunc(foldersHandler.GetFolders)))
	mux.Handle("/api/v1/folders/", api.RequireAuth(http.HandlerFunc(foldersHandler.GetFolder)))
	mux.Handle("/api/v1/conversations", api.RequireAuth(http.HandlerFunc(conversationsHandler.GetConversations)))
	mux.Handle("/api/v1/messages", api.RequireAuth(http.HandlerFunc(messagesHandler.GetMessages)))
	mux.Handle("/api/v1/messages/", api.RequireAuth(http.HandlerFunc(messagesHandler.GetMessage)))
	mux.Handle("/api/v1/editors/", api.RequireAuth(http.HandlerFunc(editorsHandler.GetEditor)))
	mux.Handle("/api/v1/tags", api.RequireAuth(http.HandlerFunc(editorsHandler.GetTags)))
	mux.Handle("/api/v1/ws", api.RequireAuth(http.HandlerFunc(wsHandler.Handle)))

	return mux
}

func handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "mailstate API is running")
}
