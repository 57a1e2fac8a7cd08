package testutil

import (
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/backend/memory"
	imapclient "github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/server"
)

// TestIMAPServer is an in-memory IMAP server for adapter tests.
type TestIMAPServer struct {
	Server   *server.Server
	Address  string
	Backend  *memory.Backend
	cleanup  func()
	username string
	password string
}

// NewTestIMAPServer starts an in-memory IMAP server on a random port. The
// memory backend ships a default user with username "username" and password
// "password".
func NewTestIMAPServer(t *testing.T) *TestIMAPServer {
	t.Helper()

	be := memory.New()
	s := server.New(be)
	s.AllowInsecureAuth = true

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	addr := listener.Addr().String()

	go func() {
		if err := s.Serve(listener); err != nil {
			t.Logf("IMAP server error: %v", err)
		}
	}()

	// Give the server time to start.
	time.Sleep(100 * time.Millisecond)

	return &TestIMAPServer{
		Server:   s,
		Address:  addr,
		Backend:  be,
		cleanup:  func() { _ = s.Close() },
		username: "username",
		password: "password",
	}
}

// Close shuts down the test IMAP server.
func (s *TestIMAPServer) Close() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

// Username returns the default test username.
func (s *TestIMAPServer) Username() string {
	return s.username
}

// Password returns the default test password.
func (s *TestIMAPServer) Password() string {
	return s.password
}

// Connect creates an authenticated client connection to the test server.
func (s *TestIMAPServer) Connect(t *testing.T) (*imapclient.Client, func()) {
	t.Helper()

	client, err := imapclient.Dial(s.Address)
	if err != nil {
		t.Fatalf("Failed to connect to test server: %v", err)
	}
	if err := client.Login(s.username, s.password); err != nil {
		_ = client.Logout()
		t.Fatalf("Failed to login: %v", err)
	}
	return client, func() { _ = client.Logout() }
}

// EnsureMailboxes creates the standard mailbox set next to the backend's
// default INBOX.
func (s *TestIMAPServer) EnsureMailboxes(t *testing.T, names ...string) {
	t.Helper()

	client, cleanup := s.Connect(t)
	defer cleanup()

	if len(names) == 0 {
		names = []string{"Drafts", "Sent", "Trash", "Junk"}
	}
	for _, name := range names {
		if _, err := client.Select(name, false); err == nil {
			continue
		}
		if err := client.Create(name); err != nil {
			t.Fatalf("Failed to create mailbox %s: %v", name, err)
		}
	}
}

// AddMessage appends a message to the mailbox and returns its UID.
func (s *TestIMAPServer) AddMessage(t *testing.T, mailbox, messageID, subject, from, to string, sentAt time.Time, flags ...string) uint32 {
	t.Helper()

	client, cleanup := s.Connect(t)
	defer cleanup()

	if _, err := client.Select(mailbox, false); err != nil {
		t.Fatalf("Failed to select mailbox: %v", err)
	}

	body := fmt.Sprintf(`Message-ID: %s
Date: %s
From: %s
To: %s
Subject: %s
Content-Type: text/plain; charset=utf-8

Test message body.
`, messageID, sentAt.Format(time.RFC1123Z), from, to, subject)

	if err := client.Append(mailbox, flags, time.Now(), strings.NewReader(body)); err != nil {
		t.Fatalf("Failed to append message: %v", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Header.Add("Message-ID", messageID)
	uids, err := client.UidSearch(criteria)
	if err != nil {
		t.Fatalf("Failed to search for message: %v", err)
	}
	if len(uids) == 0 {
		t.Fatalf("Message not found after append")
	}
	return uids[0]
}
