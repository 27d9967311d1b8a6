// File: internal/usecase/activation_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"activation-gateway/internal/domain"
	"activation-gateway/internal/domain/model"
	"activation-gateway/internal/domain/ports/adapter"
	"activation-gateway/internal/domain/ports/repository"
	"activation-gateway/internal/infra/logging"
	"activation-gateway/internal/infra/metrics"
)

// Compile-time check
var _ ActivationUseCase = (*activationUC)(nil)

// maxGenerateAttempts bounds collision retries when minting a new code value.
const maxGenerateAttempts = 5

type ActivationUseCase interface {
	// CreateCode mints a unique code and stores it. expiresAt nil means
	// non-expiring.
	CreateCode(ctx context.Context, expiresAt *time.Time, policy model.UsagePolicy) (*model.ActivationCode, error)

	// Redeem exchanges a redeemable code for a signed credential, consuming one
	// use atomically. Every failure collapses to domain.ErrUnauthorized; the
	// underlying reason is logged, never returned to the caller.
	Redeem(ctx context.Context, code string) (*model.Credential, error)

	ListCodes(ctx context.Context) ([]*model.ActivationCode, error)
	RevokeCode(ctx context.Context, code string) error

	// CheckLive re-reads the store for a credential's subject code. Used by the
	// access guard when live revocation is enabled.
	CheckLive(ctx context.Context, code string) error
}

type activationUC struct {
	codes       repository.ActivationCodeRepository
	credentials adapter.CredentialService
	codeLength  int
	log         *zerolog.Logger
	dev         bool
}

func NewActivationUseCase(
	codes repository.ActivationCodeRepository,
	credentials adapter.CredentialService,
	codeLength int,
	logger *zerolog.Logger,
	dev bool,
) *activationUC {
	return &activationUC{
		codes:       codes,
		credentials: credentials,
		codeLength:  codeLength,
		log:         logger,
		dev:         dev,
	}
}

func (a *activationUC) CreateCode(ctx context.Context, expiresAt *time.Time, policy model.UsagePolicy) (*model.ActivationCode, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if expiresAt != nil && !expiresAt.After(time.Now()) {
		return nil, domain.ErrInvalidArgument
	}

	l := logging.With(ctx, a.log)

	// The code space is large but finite; collisions are unlikely, not
	// impossible. Regenerate until the store accepts the value.
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		value, err := generateCode(a.codeLength)
		if err != nil {
			return nil, err
		}
		rec := &model.ActivationCode{
			ID:        ulid.Make().String(),
			Code:      value,
			Policy:    policy,
			Active:    true,
			CreatedAt: time.Now(),
			ExpiresAt: expiresAt,
		}
		err = a.codes.Create(ctx, nil, rec)
		if err == nil {
			metrics.IncCodeCreated(string(policy.Kind))
			l.Info().
				Str("code_id", rec.ID).
				Str("code", logging.Redact(value, a.dev)).
				Str("policy", string(policy.Kind)).
				Msg("activation code created")
			return rec, nil
		}
		if !errors.Is(err, domain.ErrAlreadyExists) {
			return nil, err
		}
		l.Warn().Int("attempt", attempt+1).Msg("code collision, regenerating")
	}
	return nil, domain.ErrAlreadyExists
}

func (a *activationUC) Redeem(ctx context.Context, code string) (*model.Credential, error) {
	l := logging.With(ctx, a.log)
	defer logging.TraceDuration(l, "ActivationUC.Redeem")()

	rec, err := a.codes.TryConsume(ctx, nil, code, time.Now())
	if err != nil {
		// Log the precise reason, return the collapsed kind. Distinguishing
		// not-found from expired at the boundary would let callers enumerate
		// the code space.
		metrics.IncRedemption(outcomeLabel(err))
		l.Info().
			Str("code", logging.Redact(code, a.dev)).
			Str("reason", err.Error()).
			Msg("redemption refused")
		return nil, domain.ErrUnauthorized
	}

	cred, err := a.credentials.Issue(model.CredentialTypeActivation, rec.Code)
	if err != nil {
		metrics.IncRedemption("issue_error")
		l.Error().Err(err).Str("code_id", rec.ID).Msg("credential issue failed")
		return nil, err
	}

	metrics.IncRedemption("ok")
	l.Info().
		Str("code_id", rec.ID).
		Int("usage_count", rec.UsageCount).
		Time("credential_expires_at", cred.ExpiresAt).
		Msg("code redeemed")
	return cred, nil
}

func (a *activationUC) ListCodes(ctx context.Context) ([]*model.ActivationCode, error) {
	return a.codes.List(ctx, nil)
}

func (a *activationUC) RevokeCode(ctx context.Context, code string) error {
	if err := a.codes.Revoke(ctx, nil, code); err != nil {
		return err
	}
	l := logging.With(ctx, a.log)
	l.Info().Str("code", logging.Redact(code, a.dev)).Msg("activation code revoked")
	return nil
}

// CheckLive fails when the subject code has been revoked or has naturally
// expired. Usage counts are deliberately not re-checked: the redemption that
// produced the credential already consumed its use, so a fully consumed
// single-use code still backs a valid credential until the token expires.
func (a *activationUC) CheckLive(ctx context.Context, code string) error {
	if code == "" {
		return domain.ErrUnauthorized
	}
	rec, err := a.codes.FindByCode(ctx, nil, code)
	if err != nil {
		return domain.ErrUnauthorized
	}
	if !rec.Active {
		return domain.ErrUnauthorized
	}
	if rec.ExpiresAt != nil && !rec.ExpiresAt.After(time.Now()) {
		return domain.ErrUnauthorized
	}
	return nil
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrCodeNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrCodeInactive):
		return "inactive"
	case errors.Is(err, domain.ErrCodeExpired):
		return "expired"
	case errors.Is(err, domain.ErrUsageExhausted):
		return "exhausted"
	default:
		return "error"
	}
}
