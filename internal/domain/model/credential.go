package model

import "time"

// CredentialTypeActivation is the type tag stamped into every credential this
// service mints. Verification rejects any other tag even when the signature
// checks out.
const CredentialTypeActivation = "activation"

// Credential is a freshly issued, signed bearer token.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// CredentialInfo is the verified payload of a presented credential.
type CredentialInfo struct {
	Code      string // subject activation code, may be empty
	IssuedAt  time.Time
	ExpiresAt time.Time
}
