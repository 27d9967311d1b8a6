package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"activation-gateway/internal/domain/ports/repository"
)

// SweepWorker periodically marks naturally expired activation codes inactive.
// Expired codes are already unredeemable; the sweep keeps the admin listing
// honest without waiting for someone to try the code.
type SweepWorker struct {
	interval time.Duration
	codes    repository.ActivationCodeRepository
	log      *zerolog.Logger
}

func NewSweepWorker(interval time.Duration, codes repository.ActivationCodeRepository, logger *zerolog.Logger) *SweepWorker {
	sweepLog := logger.With().Str("component", "SweepWorker").Logger()
	return &SweepWorker{
		interval: interval,
		codes:    codes,
		log:      &sweepLog,
	}
}

func (w *SweepWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting sweep worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping sweep worker")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.codes.DeactivateExpired(ctx, nil, time.Now())
			if err != nil {
				w.log.Error().Err(err).Msg("sweep worker error")
			}
			if n > 0 {
				w.log.Info().Int("count", n).Msg("expired codes deactivated")
			}
		}
	}
}
