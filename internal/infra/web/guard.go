package web

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"activation-gateway/internal/domain"
	"activation-gateway/internal/domain/model"
	"activation-gateway/internal/infra/logging"
	"activation-gateway/internal/infra/metrics"
)

type ctxKey string

const ctxCredential ctxKey = "credential"

// bearerToken extracts the presented credential. Both carriers are accepted:
// Authorization: Bearer <jwt> and the bare X-Token header.
func bearerToken(r *http.Request) string {
	if hdr := r.Header.Get("Authorization"); hdr != "" {
		if strings.HasPrefix(strings.ToLower(hdr), "bearer ") {
			return strings.TrimSpace(hdr[7:])
		}
	}
	return strings.TrimSpace(r.Header.Get("X-Token"))
}

// requireCredential is the access guard: it verifies the presented token and,
// when live revocation is enabled, re-checks the store for the subject code so
// an admin revoke takes effect before the token's natural expiry. Every failure
// is the same generic 401.
func (s *Server) requireCredential(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := logging.With(r.Context(), s.log)

		tok := bearerToken(r)
		if tok == "" {
			metrics.IncVerification("missing")
			unauthorized(w)
			return
		}

		info, err := s.credentials.Verify(tok, model.CredentialTypeActivation)
		if err != nil {
			metrics.IncVerification(verifyOutcome(err))
			l.Info().Str("reason", err.Error()).Msg("credential rejected")
			unauthorized(w)
			return
		}

		if s.liveRevocation {
			if err := s.activation.CheckLive(r.Context(), info.Code); err != nil {
				metrics.IncVerification("revoked")
				l.Info().Str("code", logging.Redact(info.Code, s.dev)).Msg("credential subject revoked")
				unauthorized(w)
				return
			}
		}

		metrics.IncVerification("ok")
		ctx := context.WithValue(r.Context(), ctxCredential, info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// credentialFrom returns the verified payload stored by requireCredential.
func credentialFrom(ctx context.Context) *model.CredentialInfo {
	if v := ctx.Value(ctxCredential); v != nil {
		return v.(*model.CredentialInfo)
	}
	return nil
}

func verifyOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrTokenExpired):
		return "expired"
	case errors.Is(err, domain.ErrWrongTokenType):
		return "wrong_type"
	default:
		return "invalid"
	}
}
