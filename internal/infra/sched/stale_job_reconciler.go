package sched

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"enrollment-docgen/internal/domain/model"
	"enrollment-docgen/internal/domain/ports/queue"
	"enrollment-docgen/internal/domain/ports/repository"
)

// StaleJobReconciler requeues jobs stuck in processing past a threshold age,
// typically left behind by a worker that crashed after claiming but before
// the terminal write. Safe under concurrency: the claim CAS admits
// processing re-entry, and terminal jobs ignore any extra envelope.
type StaleJobReconciler struct {
	interval   time.Duration
	staleAfter time.Duration
	jobs       repository.JobRepository
	q          queue.Queue
	tm         repository.TransactionManager
	log        *zerolog.Logger
}

func NewStaleJobReconciler(
	interval, staleAfter time.Duration,
	jobs repository.JobRepository,
	q queue.Queue,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *StaleJobReconciler {
	recLog := logger.With().Str("component", "StaleJobReconciler").Logger()
	return &StaleJobReconciler{
		interval:   interval,
		staleAfter: staleAfter,
		jobs:       jobs,
		q:          q,
		tm:         tm,
		log:        &recLog,
	}
}

func (w *StaleJobReconciler) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Dur("stale_after", w.staleAfter).Msg("starting stale job reconciler")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping stale job reconciler")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.reconcileOnce(ctx)
			if err != nil {
				w.log.Error().Err(err).Msg("reconcile pass failed")
			}
			if n > 0 {
				w.log.Info().Int("count", n).Msg("stale processing jobs requeued")
			}
		}
	}
}

func (w *StaleJobReconciler) reconcileOnce(ctx context.Context) (int, error) {
	var stale []*model.DocumentJob

	// Claim candidates inside a transaction: the row locks keep concurrent
	// reconcilers from requeueing the same job, and the touch via
	// MarkProcessing pushes updated_at forward so the next pass skips it.
	err := w.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		cutoff := time.Now().Add(-w.staleAfter)
		jobs, err := w.jobs.ListStaleProcessing(ctx, tx, cutoff, 50)
		if err != nil {
			return err
		}
		for _, j := range jobs {
			if _, err := w.jobs.MarkProcessing(ctx, tx, j.ID); err != nil {
				return err
			}
		}
		stale = jobs
		return nil
	})
	if err != nil {
		return 0, err
	}

	// Enqueue after commit, keeping the persist-happens-before-enqueue
	// ordering. A failed send leaves the job to the next pass.
	requeued := 0
	for _, j := range stale {
		if err := w.q.Enqueue(ctx, model.TaskPayload{JobID: j.ID, StudentID: j.StudentID}); err != nil {
			w.log.Error().Err(err).Str("job_id", j.ID).Msg("requeue failed")
			continue
		}
		requeued++
	}
	return requeued, nil
}
