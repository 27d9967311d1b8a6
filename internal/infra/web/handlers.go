package web

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"activation-gateway/internal/domain"
	"activation-gateway/internal/domain/model"
	"activation-gateway/internal/infra/logging"
	redisinfra "activation-gateway/internal/infra/redis"
)

// A struct to define the expected JSON request body for creating a code.
type codeCreateRequest struct {
	Policy         string `json:"policy"`           // "single" (default) | "limited" | "unlimited"
	UsageLimit     int    `json:"usage_limit"`      // required when policy == "limited"
	ExpiresInHours int    `json:"expires_in_hours"` // 0 means non-expiring
}

type codeResponse struct {
	Code       string     `json:"code"`
	Policy     string     `json:"policy"`
	UsageLimit int        `json:"usage_limit,omitempty"`
	UsageCount int        `json:"usage_count"`
	Active     bool       `json:"active"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

func toCodeResponse(c *model.ActivationCode) codeResponse {
	resp := codeResponse{
		Code:       c.Code,
		Policy:     string(c.Policy.Kind),
		UsageCount: c.UsageCount,
		Active:     c.Active,
		CreatedAt:  c.CreatedAt,
		ExpiresAt:  c.ExpiresAt,
		LastUsedAt: c.LastUsedAt,
	}
	if c.Policy.Kind == model.PolicyLimited {
		resp.UsageLimit = c.Policy.Limit
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// unauthorized is the single response body for every activation or credential
// failure. Keeping it byte-identical across reasons prevents using the API as
// an oracle for which codes exist or why one stopped working.
func unauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func (s *Server) handleCreateCode(w http.ResponseWriter, r *http.Request) {
	var req codeCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	policy := model.UsagePolicy{Kind: model.PolicySingleUse}
	if req.Policy != "" {
		policy.Kind = model.PolicyKind(req.Policy)
	}
	if policy.Kind == model.PolicyLimited {
		policy.Limit = req.UsageLimit
	}

	var expiresAt *time.Time
	if req.ExpiresInHours > 0 {
		t := time.Now().Add(time.Duration(req.ExpiresInHours) * time.Hour)
		expiresAt = &t
	}

	code, err := s.activation.CreateCode(r.Context(), expiresAt, policy)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			badRequest(w, "invalid policy")
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create code"})
		return
	}

	writeJSON(w, http.StatusCreated, toCodeResponse(code))
}

func (s *Server) handleListCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := s.activation.ListCodes(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list codes"})
		return
	}

	data := make([]codeResponse, 0, len(codes))
	for _, c := range codes {
		data = append(data, toCodeResponse(c))
	}
	writeJSON(w, http.StatusOK, struct {
		Data []codeResponse `json:"data"`
	}{Data: data})
}

func (s *Server) handleRevokeCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		badRequest(w, "code is required")
		return
	}
	if err := s.activation.RevokeCode(r.Context(), code); err != nil {
		if errors.Is(err, domain.ErrCodeNotFound) {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to revoke code"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type redeemRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	if !s.allowRedeem(r) {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many attempts"})
		return
	}

	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		badRequest(w, "invalid request body")
		return
	}

	cred, err := s.activation.Redeem(r.Context(), req.Code)
	if err != nil {
		// Redeem already collapsed the reason; everything is the generic 401.
		unauthorized(w)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Token     string `json:"token"`
		ExpiresIn int64  `json:"expires_in"`
	}{
		Token:     cred.Token,
		ExpiresIn: int64(time.Until(cred.ExpiresAt).Seconds()),
	})
}

// allowRedeem applies the per-client redemption throttle. A missing limiter or
// a Redis hiccup fails open: slowing enumeration is worth a throttle, not an
// outage.
func (s *Server) allowRedeem(r *http.Request) bool {
	if s.limiter == nil {
		return true
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ok, err := s.limiter.Allow(r.Context(), redisinfra.RedeemKey(host), s.redeemPerMinute, time.Minute)
	if err != nil {
		l := logging.With(r.Context(), s.log)
		l.Warn().Err(err).Msg("rate limiter unavailable, failing open")
		return true
	}
	return ok
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	// requireCredential already did the work; reaching here means valid.
	info := credentialFrom(r.Context())
	if info == nil {
		unauthorized(w)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Status    string    `json:"status"`
		ExpiresAt time.Time `json:"expires_at"`
	}{Status: "valid", ExpiresAt: info.ExpiresAt})
}

type completionRequest struct {
	Prompt string `json:"prompt"`
}

func (s *Server) handleCompletion(w http.ResponseWriter, r *http.Request) {
	var req completionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	if info := credentialFrom(r.Context()); info != nil {
		l := logging.With(r.Context(), s.log)
		l.Info().Str("code", logging.Redact(info.Code, s.dev)).Msg("completion requested")
	}

	answer, err := s.completion.Complete(r.Context(), req.Prompt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			badRequest(w, "prompt is required")
			return
		}
		// Downstream failure is not a trust boundary; detail may surface.
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error":  "service_error",
			"detail": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Answer string `json:"answer"`
	}{Answer: answer})
}
