package testutil

import (
	"encoding/base64"
	"testing"

	"github.com/dmolnar/mailstate/internal/crypto"
)

// NewTestKeeper creates a keeper with a deterministic key, shared across test
// packages so sealed fixtures are interchangeable.
func NewTestKeeper(t *testing.T) *crypto.Keeper {
	t.Helper()

	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}

	keeper, err := crypto.NewKeeper(base64.StdEncoding.EncodeToString(key))
	if err != nil {
		t.Fatalf("Failed to create keeper: %v", err)
	}
	return keeper
}
