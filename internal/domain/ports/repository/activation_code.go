package repository

import (
	"context"
	"time"

	"activation-gateway/internal/domain/model"
)

// ActivationCodeRepository is the port for the code store. It is the only
// mutable shared state in the system; all mutation goes through TryConsume,
// Revoke and DeactivateExpired.
type ActivationCodeRepository interface {
	// Create stores a new code. Returns domain.ErrAlreadyExists when the code
	// value is already taken.
	Create(ctx context.Context, tx Tx, code *model.ActivationCode) error

	// FindByCode returns the code record or domain.ErrCodeNotFound.
	FindByCode(ctx context.Context, tx Tx, code string) (*model.ActivationCode, error)

	// TryConsume evaluates redeemability at `now` and, only if redeemable,
	// increments the usage count and stamps LastUsedAt in one atomic step.
	// Two concurrent calls on a code with one remaining use must yield exactly
	// one success. Failures are domain.ErrCodeNotFound, ErrCodeInactive,
	// ErrCodeExpired or ErrUsageExhausted.
	TryConsume(ctx context.Context, tx Tx, code string, now time.Time) (*model.ActivationCode, error)

	// Revoke sets Active=false. Idempotent; unknown codes return ErrCodeNotFound.
	Revoke(ctx context.Context, tx Tx, code string) error

	// List returns all codes, newest first. Admin use only.
	List(ctx context.Context, tx Tx) ([]*model.ActivationCode, error)

	// DeactivateExpired marks naturally expired codes inactive and returns how
	// many records changed. Used by the background sweep.
	DeactivateExpired(ctx context.Context, tx Tx, now time.Time) (int, error)
}
