package service

import (
	"context"
	"time"

	"walletbridge/internal/constants"
	apperrors "walletbridge/internal/errors"
	"walletbridge/internal/metrics"
	"walletbridge/internal/models"
	"walletbridge/internal/privacy"
	"walletbridge/internal/tracing"

	"github.com/sirupsen/logrus"
)

// Dispatcher drains due jobs from the store in strictly sequential
// batches. Jobs that fail retryably are rescheduled with exponential
// backoff; jobs that fail fatally or exhaust their attempts are deleted.
type Dispatcher struct {
	jobs         JobStore
	orchestrator *Orchestrator
	pusher       PushSender
	cfg          models.JobsConfig
	logger       *logrus.Logger
	metrics      *metrics.Registry
}

func NewDispatcher(jobs JobStore, orchestrator *Orchestrator, pusher PushSender, cfg models.JobsConfig, logger *logrus.Logger, registry *metrics.Registry) *Dispatcher {
	if logger == nil {
		logger = logrus.New()
	}
	if registry == nil {
		registry = metrics.NewRegistry()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = constants.DefaultJobBatchSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = constants.DefaultJobMaxAttempts
	}
	if cfg.BackoffBaseSec <= 0 {
		cfg.BackoffBaseSec = constants.DefaultJobBackoffBaseSec
	}
	if cfg.JobTimeoutSec <= 0 {
		cfg.JobTimeoutSec = constants.DefaultJobTimeoutSec
	}

	return &Dispatcher{
		jobs:         jobs,
		orchestrator: orchestrator,
		pusher:       pusher,
		cfg:          cfg,
		logger:       logger,
		metrics:      registry,
	}
}

// RunBatch fetches one batch of due jobs and processes them in order.
// Returns the number of jobs handled successfully. A store-level failure
// aborts the batch; individual job failures only affect their own row.
func (d *Dispatcher) RunBatch(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "dispatcher.RunBatch")
	defer span.End()

	var jobs []models.WalletJob
	var err error
	if d.cfg.LeaseSec > 0 {
		jobs, err = d.jobs.ClaimDueJobs(ctx, d.cfg.BatchSize, time.Duration(d.cfg.LeaseSec)*time.Second)
	} else {
		jobs, err = d.jobs.FetchDueJobs(ctx, d.cfg.BatchSize)
	}
	if err != nil {
		tracing.RecordError(ctx, err)
		return 0, err
	}
	d.metrics.SetGauge("job_batch_size", float64(len(jobs)), nil)

	succeeded := 0
	for i := range jobs {
		if ctx.Err() != nil {
			return succeeded, ctx.Err()
		}
		if d.runJob(ctx, &jobs[i]) {
			succeeded++
		}
	}

	if len(jobs) > 0 {
		d.logger.WithFields(logrus.Fields{
			"fetched":   len(jobs),
			"succeeded": succeeded,
		}).Info("Processed job batch")
	}
	return succeeded, nil
}

// runJob executes one job under its own timeout and settles the row.
// Returns true when the job succeeded.
func (d *Dispatcher) runJob(ctx context.Context, job *models.WalletJob) bool {
	jobCtx, cancel := context.WithTimeout(ctx, time.Duration(d.cfg.JobTimeoutSec)*time.Second)
	defer cancel()

	start := time.Now()
	err := d.handle(jobCtx, job)
	d.metrics.RecordTimer("job_duration", time.Since(start), map[string]string{"type": string(job.Type)})

	if err == nil {
		if doneErr := d.jobs.MarkJobDone(ctx, job.ID); doneErr != nil {
			apperrors.LogError(d.logger, doneErr, "failed to delete completed job",
				logrus.Fields{"jobId": job.ID})
		}
		return true
	}

	if jobCtx.Err() == context.DeadlineExceeded {
		err = apperrors.NewTimeoutError("job execution", (time.Duration(d.cfg.JobTimeoutSec) * time.Second).String()).
			WithContext("jobId", job.ID)
	}

	d.settleFailure(ctx, job, err)
	return false
}

// settleFailure applies the retry policy to a failed job. Fatal errors
// and exhausted jobs are dropped by deleting the row; everything else is
// rescheduled at base * 2^attempts.
func (d *Dispatcher) settleFailure(ctx context.Context, job *models.WalletJob, err error) {
	if !apperrors.IsRetryable(err) {
		apperrors.LogError(d.logger, err, "dropping job after fatal error",
			logrus.Fields{"jobId": job.ID, "type": job.Type})
		d.metrics.IncrementCounter("jobs_dropped", map[string]string{"reason": "fatal"})
		d.deleteJob(ctx, job.ID)
		return
	}

	attempts := job.Attempts + 1
	maxAttempts := job.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = d.cfg.MaxAttempts
	}

	if attempts >= maxAttempts {
		apperrors.LogError(d.logger, err, "dropping job after exhausting attempts",
			logrus.Fields{"jobId": job.ID, "type": job.Type, "attempts": attempts})
		d.metrics.IncrementCounter("jobs_dropped", map[string]string{"reason": "exhausted"})
		d.deleteJob(ctx, job.ID)
		return
	}

	backoff := time.Duration(d.cfg.BackoffBaseSec) * time.Second << attempts
	apperrors.LogWarn(d.logger, err, "rescheduling failed job",
		logrus.Fields{"jobId": job.ID, "type": job.Type, "attempts": attempts, "backoff": backoff})
	d.metrics.IncrementCounter("jobs_retried", map[string]string{"type": string(job.Type)})

	if failErr := d.jobs.MarkJobFailed(ctx, job.ID, attempts, backoff); failErr != nil {
		apperrors.LogError(d.logger, failErr, "failed to reschedule job",
			logrus.Fields{"jobId": job.ID})
	}
}

func (d *Dispatcher) deleteJob(ctx context.Context, id int64) {
	if err := d.jobs.MarkJobDone(ctx, id); err != nil {
		apperrors.LogError(d.logger, err, "failed to delete dropped job",
			logrus.Fields{"jobId": id})
	}
}

// handle routes one job to its handler. Undecodable payloads are poison
// and come back non-retryable.
func (d *Dispatcher) handle(ctx context.Context, job *models.WalletJob) error {
	payload, err := models.DecodeJobPayload(job)
	if err != nil {
		return apperrors.NewPoisonError(err).WithContext("jobId", job.ID)
	}

	switch job.Type {
	case models.JobTypeGooglePatch:
		return d.orchestrator.PatchGoogleObject(ctx, payload.GooglePatch.ObjectID, payload.GooglePatch.Balance.String())

	case models.JobTypeRegeneratePass:
		return d.handleRegenerate(ctx, payload.RegeneratePass)

	case models.JobTypeApplePush:
		_, err := d.pusher.Push(ctx, payload.ApplePush.DeviceToken, payload.ApplePush.SerialNumber)
		return err

	default:
		// DecodeJobPayload already rejects unknown types.
		return apperrors.New(apperrors.ErrCodeInvalidInput, "unhandled job type").
			WithContext("type", job.Type)
	}
}

// handleRegenerate rebuilds the bundle and, when the payload names a
// device, pushes so the device fetches the new bundle. The push is a
// sub-step of the job: its failure fails the whole job, which is then
// retried from scratch including the rebuild.
func (d *Dispatcher) handleRegenerate(ctx context.Context, payload *models.RegeneratePassPayload) error {
	bundle, err := d.orchestrator.RegenerateApplePass(ctx, payload.PassID)
	if err != nil {
		return err
	}

	if payload.DeviceToken == "" {
		return nil
	}

	if _, err := d.pusher.Push(ctx, payload.DeviceToken, bundle.SerialNumber); err != nil {
		return err
	}

	d.logger.WithFields(logrus.Fields{
		"passId":      payload.PassID,
		"deviceToken": privacy.MaskToken(payload.DeviceToken),
	}).Debug("Pushed device after bundle regeneration")
	return nil
}
