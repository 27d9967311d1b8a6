package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"activation-gateway/internal/domain"
	"activation-gateway/internal/domain/model"
	"activation-gateway/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.ActivationCodeRepository = (*activationCodeRepo)(nil)

// activationCodeRepo is the in-memory code store. One mutex guards the whole
// map, which makes TryConsume's check-and-increment a single critical section
// and rules out the read-then-write race by construction.
type activationCodeRepo struct {
	mu    sync.Mutex
	codes map[string]*model.ActivationCode
}

func NewActivationCodeRepo() repository.ActivationCodeRepository {
	return &activationCodeRepo{codes: make(map[string]*model.ActivationCode)}
}

func (r *activationCodeRepo) Create(ctx context.Context, _ repository.Tx, code *model.ActivationCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.codes[code.Code]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *code
	r.codes[code.Code] = &cp
	return nil
}

func (r *activationCodeRepo) FindByCode(ctx context.Context, _ repository.Tx, code string) (*model.ActivationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.codes[code]
	if !ok {
		return nil, domain.ErrCodeNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *activationCodeRepo) TryConsume(ctx context.Context, _ repository.Tx, code string, now time.Time) (*model.ActivationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.codes[code]
	if !ok {
		return nil, domain.ErrCodeNotFound
	}
	if err := rec.RedeemableAt(now); err != nil {
		return nil, err
	}
	rec.UsageCount++
	used := now
	rec.LastUsedAt = &used
	cp := *rec
	return &cp, nil
}

func (r *activationCodeRepo) Revoke(ctx context.Context, _ repository.Tx, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.codes[code]
	if !ok {
		return domain.ErrCodeNotFound
	}
	rec.Active = false
	return nil
}

func (r *activationCodeRepo) List(ctx context.Context, _ repository.Tx) ([]*model.ActivationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.ActivationCode, 0, len(r.codes))
	for _, rec := range r.codes {
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *activationCodeRepo) DeactivateExpired(ctx context.Context, _ repository.Tx, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.codes {
		if rec.Active && rec.ExpiresAt != nil && !rec.ExpiresAt.After(now) {
			rec.Active = false
			n++
		}
	}
	return n, nil
}
