package adapter

import "activation-gateway/internal/domain/model"

// CredentialService mints and verifies signed activation credentials.
// Both operations are pure in-memory cryptography over a process-wide secret
// fixed at startup; rotating the secret invalidates every outstanding token
// (break-glass only, not a normal path).
type CredentialService interface {
	// Issue mints a credential of the given type bound to the subject code.
	Issue(typeTag, subjectCode string) (*model.Credential, error)

	// Verify checks signature, expiry and type tag, in that order. Failures are
	// domain.ErrInvalidToken, ErrTokenExpired or ErrWrongTokenType.
	Verify(token, expectedType string) (*model.CredentialInfo, error)
}
