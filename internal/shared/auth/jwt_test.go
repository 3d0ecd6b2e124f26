package auth

import (
	"testing"
	"time"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	v, err := NewVerifier("s3cret", "dev")
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	token, err := v.Sign(Claims{Sub: "user-1"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	claims, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Sub != "user-1" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestVerifyRejectsTamperedAndExpired(t *testing.T) {
	v, _ := NewVerifier("s3cret", "dev")
	other, _ := NewVerifier("other", "dev")
	token, _ := other.Sign(Claims{Sub: "user-1"})
	if _, err := v.Verify(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for foreign signature, got %v", err)
	}

	v.now = func() time.Time { return time.Unix(1_000, 0) }
	expired, _ := v.Sign(Claims{Sub: "user-1", Exp: 1_500})
	v.now = func() time.Time { return time.Unix(2_000, 0) }
	if _, err := v.Verify(expired); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestProductionRequiresSecret(t *testing.T) {
	if _, err := NewVerifier("", "production"); err != ErrMissingSecret {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
	if _, err := NewVerifier("", "dev"); err != nil {
		t.Fatalf("dev should fall back to a development secret: %v", err)
	}
}
