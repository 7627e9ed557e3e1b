package source

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/farmaudit/farmaudit/internal/domain"
)

// credentials is the on-disk shape of an account file.
type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// secretExtractor parses one sidecar format and returns the shared secret.
type secretExtractor func(data []byte) (string, error)

// secretFormats are tried in priority order; the first sidecar that exists
// and parses wins.
var secretFormats = []struct {
	suffix  string
	extract secretExtractor
}{
	{".mafile", extractJSONSecret},
	{".secret.yaml", extractYAMLSecret},
	{".secret", extractRawSecret},
}

// LoadAccounts scans root recursively for *.json credential files and
// builds one account per readable, complete entry. Entries with unreadable
// bodies, bad JSON, or missing username/password are skipped silently: they
// never enter the batch and never receive a status.
func LoadAccounts(root string) ([]*domain.Account, error) {
	var accounts []*domain.Account

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".json") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		var creds credentials
		if err := json.Unmarshal(data, &creds); err != nil {
			return nil
		}
		if creds.Username == "" || creds.Password == "" {
			return nil
		}

		acct := domain.NewAccount(domain.AccountID(root, path), creds.Username, creds.Password)
		acct.SharedSecret = loadSecret(strings.TrimSuffix(path, filepath.Ext(path)))
		accounts = append(accounts, acct)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// loadSecret looks for a sidecar secret next to the credential file, trying
// each known format in priority order. base is the credential path without
// its extension.
func loadSecret(base string) string {
	for _, f := range secretFormats {
		data, err := os.ReadFile(base + f.suffix)
		if err != nil {
			continue
		}
		secret, err := f.extract(data)
		if err != nil || secret == "" {
			continue
		}
		return secret
	}
	return ""
}

func extractJSONSecret(data []byte) (string, error) {
	var v struct {
		SharedSecret string `json:"shared_secret"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return "", err
	}
	return v.SharedSecret, nil
}

func extractYAMLSecret(data []byte) (string, error) {
	var v struct {
		SharedSecret string `yaml:"shared_secret"`
	}
	if err := yaml.Unmarshal(data, &v); err != nil {
		return "", err
	}
	return v.SharedSecret, nil
}

func extractRawSecret(data []byte) (string, error) {
	return strings.TrimSpace(string(data)), nil
}
