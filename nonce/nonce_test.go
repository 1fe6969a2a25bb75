package nonce

import (
	"testing"
	"time"
)

func TestVerify(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	issuer := New(Config{Secret: []byte("0123456789abcdef"), TTL: time.Hour, Clock: clock})

	token, err := issuer.Issue("add-7", 3)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tests := []struct {
		name   string
		issuer *Issuer
		scope  string
		userID int64
		token  string
		want   bool
	}{
		{"matching scope and user", issuer, "add-7", 3, token, true},
		{"other subject", issuer, "add-8", 3, token, false},
		{"other acting user", issuer, "add-7", 4, token, false},
		{"empty token", issuer, "add-7", 3, "", false},
		{"garbage token", issuer, "add-7", 3, "not-a-token", false},
		{"other secret", New(Config{Secret: []byte("fedcba9876543210"), Clock: clock}), "add-7", 3, token, false},
		{"expired", New(Config{Secret: []byte("0123456789abcdef"), Clock: func() time.Time { return now.Add(2 * time.Hour) }}), "add-7", 3, token, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.issuer.Verify(tt.scope, tt.userID, tt.token); got != tt.want {
				t.Errorf("Verify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIssueRequiresSecretAndScope(t *testing.T) {
	if _, err := New(Config{}).Issue("add-1", 1); err == nil {
		t.Errorf("expected error without secret")
	}
	if _, err := New(Config{Secret: []byte("0123456789abcdef")}).Issue("", 1); err == nil {
		t.Errorf("expected error without scope")
	}
}
