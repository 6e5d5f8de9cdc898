package auth

import (
	"errors"
	"testing"
	"time"
)

func TestAccessToken_RoundTrip(t *testing.T) {
	m := NewManager("test-secret-key", time.Hour)

	raw, err := m.GenerateAccessToken("user-1", "sam@student.edu", "student")
	if err != nil {
		t.Fatalf("GenerateAccessToken error: %v", err)
	}

	claims, err := m.VerifyAccessToken(raw)
	if err != nil {
		t.Fatalf("VerifyAccessToken error: %v", err)
	}

	if claims.UserID != "user-1" {
		t.Fatalf("expected subject user-1, got %s", claims.UserID)
	}
	if claims.Role != "student" {
		t.Fatalf("expected role student, got %s", claims.Role)
	}
	if claims.Email != "sam@student.edu" {
		t.Fatalf("expected email preserved, got %s", claims.Email)
	}
}

func TestAccessToken_TamperRejected(t *testing.T) {
	m := NewManager("test-secret-key", time.Hour)

	raw, err := m.GenerateAccessToken("user-1", "sam@student.edu", "student")
	if err != nil {
		t.Fatalf("GenerateAccessToken error: %v", err)
	}

	// flip one byte in the payload section
	b := []byte(raw)
	mid := len(b) / 2
	if b[mid] == 'a' {
		b[mid] = 'b'
	} else {
		b[mid] = 'a'
	}

	_, err = m.VerifyAccessToken(string(b))
	if err == nil {
		t.Fatalf("expected tampered token to be rejected")
	}
}

func TestAccessToken_WrongSecretRejected(t *testing.T) {
	m := NewManager("test-secret-key", time.Hour)
	other := NewManager("a-different-secret", time.Hour)

	raw, err := m.GenerateAccessToken("user-1", "sam@student.edu", "student")
	if err != nil {
		t.Fatalf("GenerateAccessToken error: %v", err)
	}

	_, err = other.VerifyAccessToken(raw)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestAccessToken_ExpiredRejected(t *testing.T) {
	m := NewManager("test-secret-key", -time.Minute)

	raw, err := m.GenerateAccessToken("user-1", "sam@student.edu", "student")
	if err != nil {
		t.Fatalf("GenerateAccessToken error: %v", err)
	}

	_, err = m.VerifyAccessToken(raw)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestAccessToken_GarbageRejected(t *testing.T) {
	m := NewManager("test-secret-key", time.Hour)

	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := m.VerifyAccessToken(raw); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken for %q, got %v", raw, err)
		}
	}
}
