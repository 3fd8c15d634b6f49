package auth

import (
	"errors"
	"testing"
)

func TestVerifyKnownToken(t *testing.T) {
	v := NewVerifier(map[string]string{
		"alice": "token-a",
		"bob":   "token-b",
	})

	identity, err := v.Verify("token-b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if identity != "bob" {
		t.Errorf("expected bob, got %s", identity)
	}
}

func TestVerifyUnknownToken(t *testing.T) {
	v := NewVerifier(map[string]string{"alice": "token-a"})

	if _, err := v.Verify("wrong"); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestVerifyEmptyCredential(t *testing.T) {
	v := NewVerifier(map[string]string{"alice": "token-a"})

	if _, err := v.Verify(""); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestVerifyFailClosed(t *testing.T) {
	v := NewVerifier(nil)

	if _, err := v.Verify("anything"); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("expected ErrInvalidCredential with no identities configured, got %v", err)
	}
}
