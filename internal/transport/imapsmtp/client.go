// Package imapsmtp implements the transport boundary against a standard
// IMAP/SMTP mail service. One adapter serves one account; it keeps a worker
// connection for commands and a dedicated listener connection for IDLE, each
// behind its own mutex.
package imapsmtp

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/emersion/go-imap/client"
)

// Config carries the account's server endpoints and credentials.
type Config struct {
	IMAPAddr string
	SMTPAddr string
	Username string
	Password string
	// UseTLS is true for production, false for local test servers.
	UseTLS bool
}

// lockedClient wraps an IMAP client with a mutex so concurrent dispatcher
// actions serialize on the connection instead of interleaving commands.
type lockedClient struct {
	mu       sync.Mutex
	client   *client.Client
	selected string
	lastUsed time.Time
}

// Adapter is the IMAP/SMTP implementation of the transport boundary.
type Adapter struct {
	cfg Config

	workerMu sync.Mutex
	worker   *lockedClient

	uploadsMu sync.Mutex
	uploads   map[string]upload
}

// upload is an attachment received ahead of the draft that references it.
type upload struct {
	filename    string
	contentType string
	content     []byte
}

// New creates an adapter. Connections are dialed lazily on first use.
func New(cfg Config) *Adapter {
	return &Adapter{cfg: cfg, uploads: make(map[string]upload)}
}

// dial connects and authenticates a fresh IMAP client with a 5-second timeout.
func (a *Adapter) dial() (*client.Client, error) {
	dialer := &net.Dialer{Timeout: 5 * time.Second}

	var c *client.Client
	var err error
	if a.cfg.UseTLS {
		c, err = client.DialWithDialerTLS(dialer, a.cfg.IMAPAddr, nil)
	} else {
		c, err = client.DialWithDialer(dialer, a.cfg.IMAPAddr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", a.cfg.IMAPAddr, err)
	}

	if err := c.Login(a.cfg.Username, a.cfg.Password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	return c, nil
}

// acquireWorker returns the locked worker connection, dialing or re-dialing as
// needed. The caller must release() it when done.
func (a *Adapter) acquireWorker() (*lockedClient, error) {
	a.workerMu.Lock()
	defer a.workerMu.Unlock()

	if a.worker != nil {
		select {
		case <-a.worker.client.LoggedOut():
			a.worker = nil
		default:
		}
	}
	if a.worker == nil {
		c, err := a.dial()
		if err != nil {
			return nil, err
		}
		a.worker = &lockedClient{client: c}
	}

	a.worker.mu.Lock()
	a.worker.lastUsed = time.Now()
	return a.worker, nil
}

func (lc *lockedClient) release() {
	lc.mu.Unlock()
}

// selectMailbox selects the mailbox unless it is already selected.
func (lc *lockedClient) selectMailbox(name string) error {
	if lc.selected == name {
		return nil
	}
	if _, err := lc.client.Select(name, false); err != nil {
		lc.selected = ""
		return fmt.Errorf("failed to select folder %s: %w", name, err)
	}
	lc.selected = name
	return nil
}

// Close logs out the worker connection.
func (a *Adapter) Close() error {
	a.workerMu.Lock()
	defer a.workerMu.Unlock()
	if a.worker == nil {
		return nil
	}
	err := a.worker.client.Logout()
	a.worker = nil
	return err
}
