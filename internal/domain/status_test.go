package domain

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		bans  []string
		level int
		want  Status
	}{
		{"failed check is unknown", errors.New("login: timeout"), nil, 0, StatusUnknown},
		{"failed check ignores gathered signals", errors.New("level: no markup"), []string{"vac"}, 7, StatusUnknown},
		{"ban present", nil, []string{"vac"}, 12, StatusBanned},
		{"ban dominates level zero", nil, []string{"vac"}, 0, StatusBanned},
		{"level zero is limited", nil, nil, 0, StatusLimited},
		{"positive level is active", nil, nil, 5, StatusActive},
		{"empty ban slice with level", nil, []string{}, 1, StatusActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err, tt.bans, tt.level); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAccountID(t *testing.T) {
	tests := []struct {
		root, path, want string
	}{
		{"/data", "/data/farms/a1.json", "farms/a1"},
		{"/data", "/data/a1.json", "a1"},
		{"/data", "/data/farms/sub/b2.json", "farms/sub/b2"},
	}

	for _, tt := range tests {
		if got := AccountID(tt.root, tt.path); got != tt.want {
			t.Errorf("AccountID(%q, %q) = %q, want %q", tt.root, tt.path, got, tt.want)
		}
	}

	// Stable across repeated derivation of the same path.
	first := AccountID("/data", "/data/farms/a1.json")
	second := AccountID("/data", "/data/farms/a1.json")
	if first != second {
		t.Errorf("AccountID not stable: %q vs %q", first, second)
	}
}

func TestNewAccountStartsActive(t *testing.T) {
	acct := NewAccount("farms/a1", "user", "pass")
	if acct.Status != StatusActive {
		t.Errorf("Status = %q, want %q", acct.Status, StatusActive)
	}
}
