package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmolnar/mailstate/internal/notify"
	"github.com/dmolnar/mailstate/internal/testutil"
)

func TestHandleRoot(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	handleRoot(w, req)

	res := w.Result()
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			t.Fatalf("failed to close response body: %v", err)
		}
	}(res.Body)

	if res.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", res.StatusCode)
	}

	contentType := res.Header.Get("Content-Type")
	if contentType != "text/plain" {
		t.Errorf("expected Content-Type 'text/plain', got '%s'", contentType)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}

	expected := "mailstate API is running"
	if string(body) != expected {
		t.Errorf("expected body '%s', got '%s'", expected, string(body))
	}
}

func TestNewServerWithoutAccount(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()
	keeper := testutil.NewTestKeeper(t)
	hub := notify.NewHub(10)

	server := NewServer(pool, keeper, nil, hub)
	if server == nil {
		t.Fatal("NewServer() returned nil")
	}

	t.Run("root responds", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		if w.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", w.Code)
		}
	})

	t.Run("account endpoint requires auth", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/account", nil))
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", w.Code)
		}
	})

	t.Run("unconfigured account is 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/account", nil)
		req.Header.Set("Remote-User", "ada")
		w := httptest.NewRecorder()
		server.ServeHTTP(w, req)
		if w.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", w.Code)
		}
	})

	t.Run("selector routes are absent without a dispatcher", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/folders", nil)
		req.Header.Set("Remote-User", "ada")
		w := httptest.NewRecorder()
		server.ServeHTTP(w, req)
		// The catch-all root handler answers with plain text, not JSON.
		if ct := w.Header().Get("Content-Type"); ct != "text/plain" {
			t.Errorf("expected the root fallback, got Content-Type '%s'", ct)
		}
	})
}
