package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"activation-gateway/internal/domain"
	"activation-gateway/internal/domain/model"
	"activation-gateway/internal/domain/ports/adapter"
)

// Compile-time assurance this service satisfies the port
var _ adapter.CredentialService = (*TokenService)(nil)

// ActivationClaims is the exact credential payload: a type tag, the subject
// code and the registered issued-at/expiry claims, signed as a whole.
type ActivationClaims struct {
	Type string `json:"type"`
	Code string `json:"code,omitempty"`
	jwt.RegisteredClaims
}

// TokenService mints and verifies HS256 credentials with a process-wide
// secret fixed at startup.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("token service: empty secret")
	}
	if ttl <= 0 {
		return nil, errors.New("token service: non-positive ttl")
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

func (s *TokenService) Issue(typeTag, subjectCode string) (*model.Credential, error) {
	now := time.Now()
	expiresAt := now.Add(s.ttl)
	claims := ActivationClaims{
		Type: typeTag,
		Code: subjectCode,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, err
	}
	return &model.Credential{Token: signed, ExpiresAt: expiresAt}, nil
}

// Verify checks signature integrity before claims, then expiry, then the type
// tag. It touches no store; it is a pure function of (token, secret, now).
func (s *TokenService) Verify(tok, expectedType string) (*model.CredentialInfo, error) {
	claims := &ActivationClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrInvalidToken
	}
	if !tkn.Valid {
		return nil, domain.ErrInvalidToken
	}
	if claims.ExpiresAt == nil {
		// Expiry is mandatory for credentials; a signed token without one is
		// not something this service ever minted.
		return nil, domain.ErrInvalidToken
	}
	if claims.Type != expectedType {
		return nil, domain.ErrWrongTokenType
	}

	info := &model.CredentialInfo{
		Code:      claims.Code,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	return info, nil
}
