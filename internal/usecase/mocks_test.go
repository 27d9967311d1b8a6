//go:build !integration

// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"activation-gateway/internal/domain"
	"activation-gateway/internal/domain/model"
	"activation-gateway/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// memCodeRepo is a small in-memory implementation used by unit tests.
// One mutex makes TryConsume atomic, matching the port contract.
type memCodeRepo struct {
	mu    sync.Mutex
	codes map[string]*model.ActivationCode

	createErr error // used by tests to simulate store failures
	// CreateFunc, when set, intercepts Create entirely.
	CreateFunc func(ctx context.Context, tx repository.Tx, code *model.ActivationCode) error
}

func newMemCodeRepo() *memCodeRepo {
	return &memCodeRepo{codes: make(map[string]*model.ActivationCode)}
}

func (m *memCodeRepo) Create(ctx context.Context, tx repository.Tx, code *model.ActivationCode) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, code)
	}
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.codes[code.Code]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *code
	m.codes[code.Code] = &cp
	return nil
}

func (m *memCodeRepo) FindByCode(ctx context.Context, _ repository.Tx, code string) (*model.ActivationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.codes[code]
	if !ok {
		return nil, domain.ErrCodeNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memCodeRepo) TryConsume(ctx context.Context, _ repository.Tx, code string, now time.Time) (*model.ActivationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.codes[code]
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

func (m *memCodeRepo) Revoke(ctx context.Context, _ repository.Tx, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.codes[code]
	if !ok {
		return domain.ErrCodeNotFound
	}
	rec.Active = false
	return nil
}

func (m *memCodeRepo) List(ctx context.Context, _ repository.Tx) ([]*model.ActivationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.ActivationCode, 0, len(m.codes))
	for _, rec := range m.codes {
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memCodeRepo) DeactivateExpired(ctx context.Context, _ repository.Tx, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, rec := range m.codes {
		if rec.Active && rec.ExpiresAt != nil && !rec.ExpiresAt.After(now) {
			rec.Active = false
			n++
		}
	}
	return n, nil
}

// mockCredentialService lets tests observe issuance and inject failures.
type mockCredentialService struct {
	mu       sync.Mutex
	issued   []string // subject codes, in order
	issueErr error
}

func (m *mockCredentialService) Issue(typeTag, subjectCode string) (*model.Credential, error) {
	if m.issueErr != nil {
		return nil, m.issueErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issued = append(m.issued, subjectCode)
	return &model.Credential{
		Token:     "token-for-" + subjectCode,
		ExpiresAt: time.Now().Add(30 * 24 * time.Hour),
	}, nil
}

func (m *mockCredentialService) Verify(token, expectedType string) (*model.CredentialInfo, error) {
	return nil, domain.ErrInvalidToken
}

func (m *mockCredentialService) issuedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.issued)
}
