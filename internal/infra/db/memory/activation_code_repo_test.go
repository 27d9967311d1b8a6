//go:build !integration

package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"activation-gateway/internal/domain"
	"activation-gateway/internal/domain/model"
)

func newCode(value string, policy model.UsagePolicy, expiresAt *time.Time) *model.ActivationCode {
	return &model.ActivationCode{
		ID:        "rec-" + value,
		Code:      value,
		Policy:    policy,
		Active:    true,
		CreatedAt: time.Now(),
		ExpiresAt: expiresAt,
	}
}

func TestActivationCodeRepo_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewActivationCodeRepo()

	code := newCode("K7H2PX", model.UsagePolicy{Kind: model.PolicySingleUse}, nil)
	if err := repo.Create(ctx, nil, code); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, nil, code); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("duplicate Create: expected ErrAlreadyExists, got %v", err)
	}

	found, err := repo.FindByCode(ctx, nil, "K7H2PX")
	if err != nil {
		t.Fatalf("FindByCode: %v", err)
	}
	if found.UsageCount != 0 || !found.Active {
		t.Errorf("unexpected fresh code state: %+v", found)
	}

	if _, err := repo.FindByCode(ctx, nil, "BOGUS1"); !errors.Is(err, domain.ErrCodeNotFound) {
		t.Fatalf("expected ErrCodeNotFound, got %v", err)
	}
}

func TestActivationCodeRepo_TryConsume_SingleUse(t *testing.T) {
	ctx := context.Background()
	repo := NewActivationCodeRepo()
	now := time.Now()

	repo.Create(ctx, nil, newCode("ONCE42", model.UsagePolicy{Kind: model.PolicySingleUse}, nil))

	rec, err := repo.TryConsume(ctx, nil, "ONCE42", now)
	if err != nil {
		t.Fatalf("first TryConsume: %v", err)
	}
	if rec.UsageCount != 1 {
		t.Errorf("expected usage count 1, got %d", rec.UsageCount)
	}
	if rec.LastUsedAt == nil || !rec.LastUsedAt.Equal(now) {
		t.Error("expected LastUsedAt to be stamped with the consume instant")
	}

	if _, err := repo.TryConsume(ctx, nil, "ONCE42", now); !errors.Is(err, domain.ErrUsageExhausted) {
		t.Fatalf("second TryConsume: expected ErrUsageExhausted, got %v", err)
	}
}

func TestActivationCodeRepo_TryConsume_Expired(t *testing.T) {
	ctx := context.Background()
	repo := NewActivationCodeRepo()

	past := time.Now().Add(-time.Minute)
	repo.Create(ctx, nil, newCode("OLD999", model.UsagePolicy{Kind: model.PolicySingleUse}, &past))

	// Expiry takes precedence over the untouched usage budget.
	if _, err := repo.TryConsume(ctx, nil, "OLD999", time.Now()); !errors.Is(err, domain.ErrCodeExpired) {
		t.Fatalf("expected ErrCodeExpired, got %v", err)
	}
}

func TestActivationCodeRepo_Revoke(t *testing.T) {
	ctx := context.Background()
	repo := NewActivationCodeRepo()

	repo.Create(ctx, nil, newCode("REVOKE", model.UsagePolicy{Kind: model.PolicyUnlimited}, nil))

	if err := repo.Revoke(ctx, nil, "REVOKE"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	// Idempotent.
	if err := repo.Revoke(ctx, nil, "REVOKE"); err != nil {
		t.Fatalf("second Revoke: %v", err)
	}
	if _, err := repo.TryConsume(ctx, nil, "REVOKE", time.Now()); !errors.Is(err, domain.ErrCodeInactive) {
		t.Fatalf("expected ErrCodeInactive after revoke, got %v", err)
	}
}

// Two concurrent redemptions of a code with one remaining use must yield
// exactly one success, never two.
func TestActivationCodeRepo_TryConsume_ConcurrentSingleUse(t *testing.T) {
	ctx := context.Background()
	repo := NewActivationCodeRepo()
	repo.Create(ctx, nil, newCode("RACE77", model.UsagePolicy{Kind: model.PolicySingleUse}, nil))

	const goroutines = 100
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.TryConsume(ctx, nil, "RACE77", time.Now()); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly 1 successful redemption, got %d", successes)
	}
}

func TestActivationCodeRepo_TryConsume_ConcurrentLimited(t *testing.T) {
	ctx := context.Background()
	repo := NewActivationCodeRepo()
	const limit = 7
	repo.Create(ctx, nil, newCode("LIMIT7", model.UsagePolicy{Kind: model.PolicyLimited, Limit: limit}, nil))

	const goroutines = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.TryConsume(ctx, nil, "LIMIT7", time.Now()); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != limit {
		t.Fatalf("expected exactly %d successful redemptions, got %d", limit, successes)
	}
	if _, err := repo.TryConsume(ctx, nil, "LIMIT7", time.Now()); !errors.Is(err, domain.ErrUsageExhausted) {
		t.Fatalf("expected ErrUsageExhausted after the budget, got %v", err)
	}
}

func TestActivationCodeRepo_DeactivateExpired(t *testing.T) {
	ctx := context.Background()
	repo := NewActivationCodeRepo()

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	repo.Create(ctx, nil, newCode("DEAD01", model.UsagePolicy{Kind: model.PolicySingleUse}, &past))
	repo.Create(ctx, nil, newCode("DEAD02", model.UsagePolicy{Kind: model.PolicyUnlimited}, &past))
	repo.Create(ctx, nil, newCode("ALIVE1", model.UsagePolicy{Kind: model.PolicySingleUse}, &future))
	repo.Create(ctx, nil, newCode("ETERN1", model.UsagePolicy{Kind: model.PolicySingleUse}, nil))

	n, err := repo.DeactivateExpired(ctx, nil, time.Now())
	if err != nil {
		t.Fatalf("DeactivateExpired: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 deactivations, got %d", n)
	}
	// Second sweep is a no-op.
	if n, _ := repo.DeactivateExpired(ctx, nil, time.Now()); n != 0 {
		t.Fatalf("expected sweep to be idempotent, got %d", n)
	}

	alive, _ := repo.FindByCode(ctx, nil, "ALIVE1")
	if !alive.Active {
		t.Error("unexpired code was deactivated")
	}
}
