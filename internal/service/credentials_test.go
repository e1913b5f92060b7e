package service

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestCredentialsHashAndVerify(t *testing.T) {
	c := NewCredentials(bcrypt.MinCost)

	hash, err := c.Hash("pw123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("hash %q does not look like bcrypt", hash)
	}

	ok, err := c.Verify("pw123", hash)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Error("expected password to verify")
	}

	ok, err = c.Verify("wrong", hash)
	if err != nil {
		t.Fatalf("Verify mismatch returned error: %v", err)
	}
	if ok {
		t.Error("expected wrong password to fail")
	}
}

func TestCredentialsLongPassword(t *testing.T) {
	c := NewCredentials(bcrypt.MinCost)
	long := strings.Repeat("x", 80)

	hash, err := c.Hash(long)
	if err != nil {
		t.Fatalf("Hash of %d-byte password: %v", len(long), err)
	}

	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{"same password", long, true},
		{"same first 72 bytes", long[:MaxPasswordBytes], true},
		{"differs after 72 bytes", long[:MaxPasswordBytes] + "yyyyyyyy", true},
		{"differs within 72 bytes", "y" + long[1:], false},
		{"too short", long[:MaxPasswordBytes-1], false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := c.Verify(tt.password, hash)
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if ok != tt.want {
				t.Errorf("Verify = %v, want %v", ok, tt.want)
			}
		})
	}
}

func TestCredentialsHashIsSalted(t *testing.T) {
	c := NewCredentials(bcrypt.MinCost)
	h1, _ := c.Hash("same")
	h2, _ := c.Hash("same")
	if h1 == h2 {
		t.Error("expected distinct hashes for the same password")
	}
}

func TestCredentialsVerifyMalformedHash(t *testing.T) {
	c := NewCredentials(bcrypt.MinCost)
	if _, err := c.Verify("pw", "garbage"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}

func TestNewCredentialsCost(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultBcryptCost},
		{-1, DefaultBcryptCost},
		{bcrypt.MaxCost + 1, DefaultBcryptCost},
		{bcrypt.MinCost, bcrypt.MinCost},
		{12, 12},
	}
	for _, tt := range tests {
		if got := NewCredentials(tt.in).cost; got != tt.want {
			t.Errorf("NewCredentials(%d).cost = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestDefaultCostHashesAtTen(t *testing.T) {
	hash, err := NewCredentials(0).Hash("pw")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("bcrypt.Cost: %v", err)
	}
	if cost != 10 {
		t.Errorf("cost = %d, want 10", cost)
	}
}
