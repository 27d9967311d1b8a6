package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"activation-gateway/internal/domain"
	"activation-gateway/internal/domain/model"
	"activation-gateway/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.ActivationCodeRepository = (*activationCodeRepo)(nil)

const uniqueViolation = "23505"

// transient retry policy for lock contention / serialization hiccups.
const (
	maxRetries   = 3
	retryBackoff = 100 * time.Millisecond
)

type activationCodeRepo struct {
	pool *pgxpool.Pool
}

func NewActivationCodeRepo(pool *pgxpool.Pool) repository.ActivationCodeRepository {
	return &activationCodeRepo{pool: pool}
}

const codeColumns = `id, code, policy, usage_limit, usage_count, active, created_at, expires_at, last_used_at`

func scanCode(row pgx.Row) (*model.ActivationCode, error) {
	var (
		ac         model.ActivationCode
		policy     string
		usageLimit *int
	)
	err := row.Scan(
		&ac.ID, &ac.Code, &policy, &usageLimit, &ac.UsageCount,
		&ac.Active, &ac.CreatedAt, &ac.ExpiresAt, &ac.LastUsedAt,
	)
	if err != nil {
		return nil, err
	}
	ac.Policy = model.UsagePolicy{Kind: model.PolicyKind(policy)}
	if usageLimit != nil {
		ac.Policy.Limit = *usageLimit
	}
	return &ac, nil
}

// usageLimitColumn maps the policy onto the nullable usage_limit column:
// 1 for single-use, n for limited, NULL for unlimited. The TryConsume guard
// relies on this encoding.
func usageLimitColumn(p model.UsagePolicy) *int {
	if limit := p.EffectiveLimit(); limit > 0 {
		return &limit
	}
	return nil
}

func (r *activationCodeRepo) Create(ctx context.Context, tx repository.Tx, code *model.ActivationCode) error {
	const q = `
INSERT INTO activation_codes (id, code, policy, usage_limit, usage_count, active, created_at, expires_at, last_used_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
`
	_, err := execSQL(ctx, r.pool, tx, q,
		code.ID, code.Code, string(code.Policy.Kind), usageLimitColumn(code.Policy),
		code.UsageCount, code.Active, code.CreatedAt, code.ExpiresAt, code.LastUsedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrAlreadyExists
	}
	return err
}

func (r *activationCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.ActivationCode, error) {
	const q = `SELECT ` + codeColumns + ` FROM activation_codes WHERE code = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return nil, err
	}
	ac, err := scanCode(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCodeNotFound
		}
		return nil, err
	}
	return ac, nil
}

// TryConsume performs the redeemability check and the usage increment in one
// guarded UPDATE, which Postgres executes atomically against concurrent
// writers: of two redemptions racing for a code's last use, only one sees the
// pre-update row and passes the WHERE clause.
func (r *activationCodeRepo) TryConsume(ctx context.Context, tx repository.Tx, code string, now time.Time) (*model.ActivationCode, error) {
	const q = `
UPDATE activation_codes
   SET usage_count = usage_count + 1, last_used_at = $2
 WHERE code = $1
   AND active
   AND (expires_at IS NULL OR expires_at > $2)
   AND (usage_limit IS NULL OR usage_count < usage_limit)
RETURNING ` + codeColumns + `;`

	var (
		ac  *model.ActivationCode
		err error
	)
	for attempt := 0; ; attempt++ {
		var row pgx.Row
		row, err = pickRow(ctx, r.pool, tx, q, code, now)
		if err == nil {
			ac, err = scanCode(row)
		}
		if err == nil || errors.Is(err, pgx.ErrNoRows) || attempt >= maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryBackoff):
		}
	}
	if err == nil {
		return ac, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// No row matched the guard. Re-read to name the reason; this second read is
	// advisory, for logs and metrics only. Atomicity rests on the UPDATE.
	rec, ferr := r.FindByCode(ctx, tx, code)
	if ferr != nil {
		return nil, ferr
	}
	if rerr := rec.RedeemableAt(now); rerr != nil {
		return nil, rerr
	}
	// The code became redeemable between the two statements; report exhaustion
	// rather than retrying the consume on the caller's behalf.
	return nil, domain.ErrUsageExhausted
}

func (r *activationCodeRepo) Revoke(ctx context.Context, tx repository.Tx, code string) error {
	const q = `UPDATE activation_codes SET active = FALSE WHERE code = $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCodeNotFound
	}
	return nil
}

func (r *activationCodeRepo) List(ctx context.Context, tx repository.Tx) ([]*model.ActivationCode, error) {
	const q = `SELECT ` + codeColumns + ` FROM activation_codes ORDER BY created_at DESC;`
	rows, err := pickRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.ActivationCode
	for rows.Next() {
		ac, err := scanCode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ac)
	}
	return out, rows.Err()
}

func (r *activationCodeRepo) DeactivateExpired(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	const q = `
UPDATE activation_codes
   SET active = FALSE
 WHERE active AND expires_at IS NOT NULL AND expires_at <= $1;
`
	tag, err := execSQL(ctx, r.pool, tx, q, now)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
