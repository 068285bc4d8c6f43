package purchase

import (
	"context"
	"time"

	"github.com/zjoart/go-topup-wallet/internal/wallet"
	"github.com/zjoart/go-topup-wallet/pkg/logger"
)

// Reconciler finishes purchases whose settlement was interrupted after the debit.
type Reconciler struct {
	Intents   Repository
	Grace     time.Duration
	BatchSize int
	now       func() time.Time
}

func NewReconciler(intents Repository, grace time.Duration) *Reconciler {
	return &Reconciler{Intents: intents, Grace: grace, BatchSize: 100, now: time.Now}
}

// Report counts what a single pass did.
type Report struct {
	Completed int
	Refunded  int
	Review    int
	Failed    int
}

// RunOnce settles every intent left unfinished for longer than the grace period:
// vendor_failed is refunded, vendor_succeeded gets its completed ledger row, and
// debited (vendor outcome unknown) is parked in review.
func (r *Reconciler) RunOnce(ctx context.Context) (Report, error) {
	var report Report

	intents, err := r.Intents.ListStale(ctx, r.now().UTC().Add(-r.Grace), r.BatchSize)
	if err != nil {
		return report, err
	}

	for i := range intents {
		intent := &intents[i]
		fields := logger.Fields{
			logger.IntentIDKey: intent.ID.String(),
			logger.UserIdKey:   intent.UserID.String(),
			logger.AmountKey:   intent.Amount.String(),
			"state":            string(intent.State),
		}

		switch intent.State {
		case StateVendorFailed:
			var entry *wallet.Transaction
			if intent.TransactionID == nil {
				entry, err = intent.ledgerEntry(wallet.TransactionFailed)
			}
			if err == nil {
				err = r.Intents.Refund(ctx, intent, entry)
			}
			if err == nil {
				report.Refunded++
				logger.Info("Reconciler refunded purchase", fields)
			}
		case StateVendorSucceeded:
			var entry *wallet.Transaction
			entry, err = intent.ledgerEntry(wallet.TransactionCompleted)
			if err == nil {
				err = r.Intents.Complete(ctx, intent, entry)
			}
			if err == nil {
				report.Completed++
				logger.Info("Reconciler recorded completed purchase", fields)
			}
		case StateDebited:
			intent.State = StateReview
			intent.Error = "vendor outcome unknown"
			err = r.Intents.Transition(ctx, intent, StateDebited)
			if err == nil {
				report.Review++
				logger.Warn("Purchase needs manual review", fields)
			}
		}

		if err != nil {
			report.Failed++
			logger.Error("Reconciler failed to settle purchase", logger.Merge(fields, logger.WithError(err)))
			err = nil
		}
	}
	return report, nil
}

func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("Purchase reconciler started", logger.Fields{"interval": interval.String(), "grace": r.Grace.String()})
	for {
		select {
		case <-ctx.Done():
			logger.Info("Purchase reconciler stopped")
			return
		case <-ticker.C:
			report, err := r.RunOnce(ctx)
			if err != nil {
				logger.Error("Reconciler pass failed", logger.WithError(err))
				continue
			}
			if report != (Report{}) {
				logger.Info("Reconciler pass finished", logger.Fields{
					"completed": report.Completed,
					"refunded":  report.Refunded,
					"review":    report.Review,
					"failed":    report.Failed,
				})
			}
		}
	}
}
