package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/amazingprincelee/backend-collabogig/internal/domain"
	"github.com/amazingprincelee/backend-collabogig/internal/domain/ports/repository"
	"github.com/amazingprincelee/backend-collabogig/internal/usecase"
)

// PaymentReconciler periodically scans for stale pending payments and drives
// them through reconciliation. This is the safety net for lost webhooks,
// abandoned checkouts and crashes mid-settlement.
type PaymentReconciler struct {
	uc         usecase.PaymentUseCase
	payments   repository.PaymentRepository
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a pending payment must be to retry
	log        *zerolog.Logger
}

func NewPaymentReconciler(uc usecase.PaymentUseCase, payments repository.PaymentRepository, interval, staleAfter time.Duration, logger *zerolog.Logger) *PaymentReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	l := logger.With().Str("worker", "payment-reconciler").Logger()
	return &PaymentReconciler{uc: uc, payments: payments, interval: interval, staleAfter: staleAfter, log: &l}
}

func (w *PaymentReconciler) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *PaymentReconciler) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	pending, err := w.payments.ListPendingOlderThan(ctx, repository.NoTX, cutoff, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("list pending failed")
		return
	}

	for _, p := range pending {
		if _, err := w.uc.Reconcile(ctx, usecase.TriggerPoller, p.TransactionID); err != nil {
			if errors.Is(err, domain.ErrLockNotAcquired) {
				continue // another entry point is on it
			}
			w.log.Warn().Err(err).Str("transaction_id", p.TransactionID).Msg("reconcile attempt failed")
			continue
		}
		w.log.Info().Str("transaction_id", p.TransactionID).Msg("stale payment reconciled")
	}
}
