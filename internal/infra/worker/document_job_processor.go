package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"enrollment-docgen/internal/domain"
	"enrollment-docgen/internal/domain/model"
	"enrollment-docgen/internal/domain/ports/adapter"
	"enrollment-docgen/internal/domain/ports/queue"
	"enrollment-docgen/internal/domain/ports/repository"
	"enrollment-docgen/internal/domain/ports/storage"
	"enrollment-docgen/internal/infra/logging"
	"enrollment-docgen/internal/infra/metrics"
)

// outcome classifies what processing an envelope did to its job and to the
// envelope itself.
type outcome int

const (
	// outcomeCompleted: job advanced to completed, envelope acked.
	outcomeCompleted outcome = iota
	// outcomeFailed: job advanced to failed (terminal), envelope acked.
	outcomeFailed
	// outcomeDuplicate: job already terminal, envelope acked, no writes.
	outcomeDuplicate
	// outcomeRedeliver: transient trouble, envelope left for redelivery.
	// The job stays wherever the conditional chain last left it.
	outcomeRedeliver
)

// FailureReport carries one envelope's failure cause for batch observability.
type FailureReport struct {
	Receipt string
	JobID   string
	Cause   string
}

// BatchResult summarizes one batch. Envelopes are independent: a failure
// never aborts or rolls back its siblings.
type BatchResult struct {
	Succeeded int
	Failed    int
	Failures  []FailureReport
}

// DocumentJobProcessor drives each queue envelope through the job state
// machine: claim (pending -> processing, the CAS idempotency guard), student
// lookup, render, artifact write, and the terminal status write. Workers
// share nothing; the record store's conditional update is the only
// cross-worker coordination.
type DocumentJobProcessor struct {
	jobs      repository.JobRepository
	students  repository.StudentRepository
	q         queue.Queue
	artifacts storage.ArtifactStore
	renderer  adapter.DocumentRenderer

	keyPrefix string
	batchSize int
	pollWait  time.Duration
	log       zerolog.Logger
}

func NewDocumentJobProcessor(
	jobs repository.JobRepository,
	students repository.StudentRepository,
	q queue.Queue,
	artifacts storage.ArtifactStore,
	renderer adapter.DocumentRenderer,
	keyPrefix string,
	batchSize int,
	pollWait time.Duration,
	logger *zerolog.Logger,
) *DocumentJobProcessor {
	return &DocumentJobProcessor{
		jobs:      jobs,
		students:  students,
		q:         q,
		artifacts: artifacts,
		renderer:  renderer,
		keyPrefix: keyPrefix,
		batchSize: batchSize,
		pollWait:  pollWait,
		log:       logger.With().Str("component", "DocumentJobProcessor").Logger(),
	}
}

// Run is the consumer loop. It blocks until ctx is done; run it in a
// goroutine. Envelopes of a batch are fanned out to the pool and the loop
// waits for the whole batch before pulling the next one.
func (p *DocumentJobProcessor) Run(ctx context.Context, pool *Pool) {
	p.log.Info().Msg("document job processor started")
	for {
		if ctx.Err() != nil {
			p.log.Info().Msg("document job processor stopping")
			return
		}
		envs, err := p.q.ReceiveBatch(ctx, p.batchSize, p.pollWait)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.log.Error().Err(err).Msg("receive batch failed")
			time.Sleep(time.Second)
			continue
		}
		if len(envs) == 0 {
			continue
		}
		res := p.ProcessBatch(ctx, pool, envs)
		evt := p.log.Info().Int("received", len(envs)).Int("succeeded", res.Succeeded).Int("failed", res.Failed)
		if res.Failed > 0 {
			evt = p.log.Warn().Int("received", len(envs)).Int("succeeded", res.Succeeded).Int("failed", res.Failed)
			for _, f := range res.Failures {
				p.log.Warn().Str("receipt", f.Receipt).Str("job_id", f.JobID).Str("cause", f.Cause).Msg("envelope failed")
			}
		}
		evt.Msg("batch processed")
	}
}

// ProcessBatch runs every envelope independently on the pool and gathers the
// per-batch report.
func (p *DocumentJobProcessor) ProcessBatch(ctx context.Context, pool *Pool, envs []queue.Envelope) BatchResult {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		res BatchResult
	)
	record := func(env queue.Envelope, jobID string, out outcome, cause error) {
		mu.Lock()
		defer mu.Unlock()
		switch out {
		case outcomeCompleted, outcomeDuplicate:
			res.Succeeded++
		default:
			res.Failed++
			res.Failures = append(res.Failures, FailureReport{
				Receipt: env.Receipt(),
				JobID:   jobID,
				Cause:   cause.Error(),
			})
		}
	}

	for _, env := range envs {
		env := env
		wg.Add(1)
		task := func(ctx context.Context) error {
			defer wg.Done()
			jobID, out, cause := p.processEnvelope(ctx, env)
			record(env, jobID, out, cause)
			return nil
		}
		if err := pool.Submit(ctx, task); err != nil {
			// Shutdown mid-batch: the un-submitted envelopes stay
			// unacked and redeliver.
			wg.Done()
			record(env, "", outcomeRedeliver, err)
		}
	}
	wg.Wait()
	return res
}

// processEnvelope is the per-envelope state machine. It returns the job id
// (when resolvable), the outcome, and the failure cause if any. The one
// rule it never breaks: an envelope is acknowledged only after its job has
// durably advanced (to processing re-entry excluded: terminal or duplicate).
func (p *DocumentJobProcessor) processEnvelope(ctx context.Context, env queue.Envelope) (string, outcome, error) {
	start := time.Now()
	defer func() { metrics.ObserveEnvelopeLatency(time.Since(start).Seconds()) }()

	payload, err := model.DecodeTaskPayload(env.Payload())
	if err != nil {
		// No job to update. Left unacked: the transport's delivery limit
		// dead-letters it.
		p.log.Error().Err(err).Str("receipt", env.Receipt()).Msg("undecodable payload")
		return "", outcomeRedeliver, err
	}

	ctx = logging.WithJobID(ctx, payload.JobID)
	ctx = logging.WithStudentID(ctx, payload.StudentID)
	ctx = logging.WithReceipt(ctx, env.Receipt())
	log := logging.With(ctx, &p.log).With().Int("delivery", env.DeliveryCount()).Logger()
	log.Info().Msg("processing envelope")

	// Claim: pending -> processing, with processing re-entry for
	// redeliveries. Terminal jobs lose the condition; that is the
	// duplicate-delivery short circuit.
	job, err := p.jobs.MarkProcessing(ctx, nil, payload.JobID)
	switch {
	case errors.Is(err, domain.ErrConditionFailed):
		metrics.IncDuplicateDelivery()
		status := ""
		if job != nil {
			status = string(job.Status)
		}
		log.Info().Str("status", status).Msg("duplicate delivery of terminal job, acking")
		return payload.JobID, p.ackAs(ctx, env, outcomeDuplicate, &log), nil
	case errors.Is(err, domain.ErrNotFound):
		log.Error().Msg("job record missing, leaving envelope to dead-letter")
		return payload.JobID, outcomeRedeliver, fmt.Errorf("job %s: %w", payload.JobID, err)
	case err != nil:
		log.Error().Err(err).Msg("claim failed, leaving envelope for redelivery")
		return payload.JobID, outcomeRedeliver, err
	}

	// Lookup. A missing student is not transient: fail the job terminally.
	student, err := p.students.FindByID(ctx, nil, payload.StudentID)
	if errors.Is(err, domain.ErrNotFound) {
		out, ferr := p.failJob(ctx, env, job, fmt.Errorf("student %s not found", payload.StudentID), &log)
		return payload.JobID, out, ferr
	}
	if err != nil {
		log.Error().Err(err).Msg("student lookup failed, leaving envelope for redelivery")
		return payload.JobID, outcomeRedeliver, err
	}

	// Render. Deterministic, so a failure is terminal too.
	doc, err := p.renderer.Render(student)
	if err != nil {
		out, ferr := p.failJob(ctx, env, job, err, &log)
		return payload.JobID, out, ferr
	}

	// Store under the key derived from the job id: a redelivered envelope
	// rewrites the same object, never a second artifact.
	key := storage.ArtifactKey(p.keyPrefix, job.ID)
	if err := p.artifacts.Put(ctx, key, doc, p.renderer.ContentType()); err != nil {
		log.Error().Err(err).Str("artifact_key", key).Msg("artifact write failed, leaving envelope for redelivery")
		return payload.JobID, outcomeRedeliver, err
	}

	if err := p.jobs.MarkCompleted(ctx, nil, job.ID, key); err != nil {
		if errors.Is(err, domain.ErrConditionFailed) {
			// Another worker finished the race first.
			metrics.IncDuplicateDelivery()
			return payload.JobID, p.ackAs(ctx, env, outcomeDuplicate, &log), nil
		}
		log.Error().Err(err).Msg("completion write failed, leaving envelope for redelivery")
		return payload.JobID, outcomeRedeliver, err
	}

	metrics.IncJobProcessed(string(model.JobStatusCompleted))
	log.Info().Str("artifact_key", key).Dur("duration", time.Since(start)).Msg("job completed")
	return payload.JobID, p.ackAs(ctx, env, outcomeCompleted, &log), nil
}

// failJob records a terminal failure and acks the envelope. If the failed
// write itself does not land, the envelope stays unacked: never acknowledge
// an envelope whose job was not durably advanced.
func (p *DocumentJobProcessor) failJob(ctx context.Context, env queue.Envelope, job *model.DocumentJob, cause error, log *zerolog.Logger) (outcome, error) {
	if err := p.jobs.MarkFailed(ctx, nil, job.ID, cause.Error()); err != nil {
		if errors.Is(err, domain.ErrConditionFailed) {
			metrics.IncDuplicateDelivery()
			return p.ackAs(ctx, env, outcomeDuplicate, log), nil
		}
		log.Error().Err(err).Msg("failure write failed, leaving envelope for redelivery")
		return outcomeRedeliver, err
	}
	metrics.IncJobProcessed(string(model.JobStatusFailed))
	log.Warn().Err(cause).Msg("job failed")
	return p.ackAs(ctx, env, outcomeFailed, log), cause
}

// ackAs acknowledges the envelope and returns the given outcome. An ack
// failure is logged but does not change the outcome: the job already
// advanced durably, and a redelivery will hit the duplicate short-circuit.
func (p *DocumentJobProcessor) ackAs(ctx context.Context, env queue.Envelope, out outcome, log *zerolog.Logger) outcome {
	if err := env.Ack(ctx); err != nil {
		log.Error().Err(err).Msg("ack failed; duplicate delivery expected")
	}
	return out
}
