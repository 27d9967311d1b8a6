//go:build !integration

package security

import (
	"errors"
	"testing"
	"time"

	"activation-gateway/internal/domain"
	"activation-gateway/internal/domain/model"
)

func TestTokenService_IssueAndVerify(t *testing.T) {
	svc, err := NewTokenService("unit-test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	cred, err := svc.Issue(model.CredentialTypeActivation, "K7H2PX")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if cred.Token == "" {
		t.Fatal("expected a signed token")
	}
	if until := time.Until(cred.ExpiresAt); until < 59*time.Minute || until > time.Hour {
		t.Errorf("unexpected expiry distance: %v", until)
	}

	info, err := svc.Verify(cred.Token, model.CredentialTypeActivation)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if info.Code != "K7H2PX" {
		t.Errorf("expected subject code K7H2PX, got %q", info.Code)
	}
	if !info.ExpiresAt.Equal(cred.ExpiresAt.Truncate(time.Second)) {
		t.Errorf("expiry mismatch: issued %v, verified %v", cred.ExpiresAt, info.ExpiresAt)
	}
}

func TestTokenService_Verify_Expired(t *testing.T) {
	// A 1ns TTL expires before Verify runs.
	svc, _ := NewTokenService("unit-test-secret", time.Nanosecond)
	cred, err := svc.Issue(model.CredentialTypeActivation, "")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	if _, err := svc.Verify(cred.Token, model.CredentialTypeActivation); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenService_Verify_TamperedSignature(t *testing.T) {
	svc, _ := NewTokenService("unit-test-secret", time.Hour)
	cred, _ := svc.Issue(model.CredentialTypeActivation, "K7H2PX")

	// Flip one byte near the end of the signature segment.
	raw := []byte(cred.Token)
	last := raw[len(raw)-1]
	if last == 'A' {
		raw[len(raw)-1] = 'B'
	} else {
		raw[len(raw)-1] = 'A'
	}

	if _, err := svc.Verify(string(raw), model.CredentialTypeActivation); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenService_Verify_WrongSecret(t *testing.T) {
	mint, _ := NewTokenService("secret-a", time.Hour)
	check, _ := NewTokenService("secret-b", time.Hour)

	cred, _ := mint.Issue(model.CredentialTypeActivation, "")
	if _, err := check.Verify(cred.Token, model.CredentialTypeActivation); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after secret rotation, got %v", err)
	}
}

func TestTokenService_Verify_WrongType(t *testing.T) {
	svc, _ := NewTokenService("unit-test-secret", time.Hour)
	cred, _ := svc.Issue("refresh", "K7H2PX")

	if _, err := svc.Verify(cred.Token, model.CredentialTypeActivation); !errors.Is(err, domain.ErrWrongTokenType) {
		t.Fatalf("expected ErrWrongTokenType, got %v", err)
	}
}

func TestTokenService_Verify_Garbage(t *testing.T) {
	svc, _ := NewTokenService("unit-test-secret", time.Hour)
	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := svc.Verify(tok, model.CredentialTypeActivation); !errors.Is(err, domain.ErrInvalidToken) {
			t.Errorf("token %q: expected ErrInvalidToken, got %v", tok, err)
		}
	}
}
