package testutil

import (
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// OutboundMessage is a message captured by the test SMTP server.
type OutboundMessage struct {
	From string
	To   []string
	Data []byte
}

// MemoryBackend is an in-memory SMTP backend that records every submission.
type MemoryBackend struct {
	mu       sync.Mutex
	messages []*OutboundMessage
}

// NewMemoryBackend creates an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// NewSession starts a session. Any credentials are accepted.
func (b *MemoryBackend) NewSession(*smtp.Conn) (smtp.Session, error) {
	return &memorySession{backend: b}, nil
}

// Messages returns the captured submissions.
func (b *MemoryBackend) Messages() []*OutboundMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.messages
}

// Clear drops the captured submissions.
func (b *MemoryBackend) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = nil
}

type memorySession struct {
	backend *MemoryBackend
	from    string
	to      []string
}

func (s *memorySession) AuthMechanisms() []string {
	return []string{sasl.Plain}
}

func (s *memorySession) Auth(mech string) (sasl.Server, error) {
	return sasl.NewPlainServer(func(identity, username, password string) error {
		return nil
	}), nil
}

func (s *memorySession) Mail(from string, opts *smtp.MailOptions) error {
	s.from = from
	return nil
}

func (s *memorySession) Rcpt(to string, opts *smtp.RcptOptions) error {
	s.to = append(s.to, to)
	return nil
}

func (s *memorySession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	s.backend.messages = append(s.backend.messages, &OutboundMessage{
		From: s.from,
		To:   s.to,
		Data: data,
	})
	return nil
}

func (s *memorySession) Reset() {
	s.from = ""
	s.to = nil
}

func (s *memorySession) Logout() error {
	return nil
}

// TestSMTPServer is an in-memory SMTP server for adapter tests.
type TestSMTPServer struct {
	Server  *smtp.Server
	Address string
	Backend *MemoryBackend
	cleanup func()
}

// NewTestSMTPServer starts an in-memory SMTP server on a random port.
func NewTestSMTPServer(t *testing.T) *TestSMTPServer {
	t.Helper()

	be := NewMemoryBackend()
	s := smtp.NewServer(be)
	s.AllowInsecureAuth = true
	s.Domain = "localhost"

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	addr := listener.Addr().String()

	go func() {
		if err := s.Serve(listener); err != nil {
			t.Logf("SMTP server error: %v", err)
		}
	}()

	// Give the server time to start.
	time.Sleep(100 * time.Millisecond)

	return &TestSMTPServer{
		Server:  s,
		Address: addr,
		Backend: be,
		cleanup: func() { _ = s.Close() },
	}
}

// Close shuts down the test SMTP server.
func (s *TestSMTPServer) Close() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

// Messages returns all captured submissions.
func (s *TestSMTPServer) Messages() []*OutboundMessage {
	return s.Backend.Messages()
}
