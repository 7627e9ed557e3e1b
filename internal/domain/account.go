package domain

import (
	"path/filepath"
	"strings"
)

// Account is one credentialed entry in a batch. Status is the only field
// mutated after construction, and it is written exactly once per run by the
// completion handler that owns the account's check.
type Account struct {
	ID           string // source path relative to the batch root, extension stripped
	Username     string
	Password     string
	SharedSecret string // optional, empty when no sidecar secret was found
	Status       Status
}

// NewAccount constructs an account in its initial Active state.
func NewAccount(id, username, password string) *Account {
	return &Account{
		ID:       id,
		Username: username,
		Password: password,
		Status:   StatusActive,
	}
}

// AccountID derives the stable account identity from a credential file path:
// the path relative to root with the extension stripped, slash-separated.
// "farms/a1.json" under root yields "farms/a1".
func AccountID(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	return filepath.ToSlash(rel)
}
