//go:build !integration

// File: internal/infra/sched/sweep_worker_test.go
package sched

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"activation-gateway/internal/domain/model"
	"activation-gateway/internal/infra/db/memory"
)

func TestSweepWorker_Run(t *testing.T) {
	logger := zerolog.Nop()
	repo := memory.NewActivationCodeRepo()
	ctx := context.Background()

	past := time.Now().Add(time.Millisecond)
	expired := &model.ActivationCode{
		ID:        "01TESTSWEEPEXPIRED0000000",
		Code:      "OLDONE",
		Policy:    model.UsagePolicy{Kind: model.PolicyUnlimited},
		Active:    true,
		CreatedAt: time.Now(),
		ExpiresAt: &past,
	}
	fresh := &model.ActivationCode{
		ID:        "01TESTSWEEPFRESH00000000A",
		Code:      "NEWONE",
		Policy:    model.UsagePolicy{Kind: model.PolicyUnlimited},
		Active:    true,
		CreatedAt: time.Now(),
	}
	if err := repo.Create(ctx, nil, expired); err != nil {
		t.Fatalf("create expired: %v", err)
	}
	if err := repo.Create(ctx, nil, fresh); err != nil {
		t.Fatalf("create fresh: %v", err)
	}

	w := NewSweepWorker(10*time.Millisecond, repo, &logger)
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- w.Run(runCtx) }()

	deadline := time.After(2 * time.Second)
	for {
		rec, err := repo.FindByCode(ctx, nil, "OLDONE")
		if err != nil {
			t.Fatalf("find expired: %v", err)
		}
		if !rec.Active {
			break
		}
		select {
		case <-deadline:
			t.Fatal("sweep never deactivated the expired code")
		case <-time.After(5 * time.Millisecond):
		}
	}

	rec, err := repo.FindByCode(ctx, nil, "NEWONE")
	if err != nil {
		t.Fatalf("find fresh: %v", err)
	}
	if !rec.Active {
		t.Error("non-expiring code should stay active")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on cancel")
	}
}
