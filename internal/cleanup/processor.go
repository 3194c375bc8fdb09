package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ksred/klear-journal/internal/config"
)

const batchSize = 100

// Deleter removes a stored screenshot by key
type Deleter interface {
	Delete(ctx context.Context, key string) error
}

// Processor retries screenshot deletions that failed while a trade was
// updated or deleted
type Processor struct {
	db          *Database
	store       Deleter
	interval    time.Duration // time between processing passes
	maxAttempts int
	logger      zerolog.Logger
}

func NewProcessor(gormDB *gorm.DB, store Deleter, cfg config.Cleanup) *Processor {
	p := &Processor{
		db:          NewDatabase(gormDB),
		store:       store,
		interval:    cfg.Interval,
		maxAttempts: cfg.MaxAttempts,
		logger:      log.With().Str("component", "cleanup_processor").Logger(),
	}
	if p.interval <= 0 {
		p.interval = 5 * time.Minute
	}
	if p.maxAttempts <= 0 {
		p.maxAttempts = 5
	}
	return p
}

// Enqueue records a deletion to retry later. cause is the error of the
// failed first attempt.
func (p *Processor) Enqueue(key string, cause error) error {
	job := &ScreenshotDeletion{
		ID:       uuid.New().String(),
		Key:      key,
		Status:   StatusPending,
		Attempts: 1,
	}
	if cause != nil {
		job.LastError = cause.Error()
	}
	if err := p.db.CreateDeletion(job); err != nil {
		return fmt.Errorf("failed to enqueue screenshot deletion: %w", err)
	}
	p.logger.Info().Str("job_id", job.ID).Str("key", key).Msg("queued screenshot deletion")
	return nil
}

// Start begins the processing loop
func (p *Processor) Start(ctx context.Context) {
	p.logger.Info().Dur("interval", p.interval).Msg("starting cleanup processor")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("shutting down cleanup processor")
			return
		case <-ticker.C:
			if err := p.processPending(ctx); err != nil {
				p.logger.Error().Err(err).Msg("failed to process pending deletions")
			}
		}
	}
}

func (p *Processor) processPending(ctx context.Context) error {
	jobs, err := p.db.GetPendingDeletions(batchSize)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return nil
	}

	p.logger.Info().Int("pending_count", len(jobs)).Msg("processing pending deletions")

	for _, job := range jobs {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		job.Attempts++
		if err := p.store.Delete(ctx, job.Key); err != nil {
			job.LastError = err.Error()
			if job.Attempts >= p.maxAttempts {
				job.Status = StatusFailed
				p.logger.Warn().
					Err(err).
					Str("job_id", job.ID).
					Str("key", job.Key).
					Int("attempts", job.Attempts).
					Msg("giving up on screenshot deletion")
			}
		} else {
			job.Status = StatusDeleted
			job.LastError = ""
			p.logger.Info().
				Str("job_id", job.ID).
				Str("key", job.Key).
				Msg("screenshot deleted")
		}

		if err := p.db.UpdateDeletion(&job); err != nil {
			p.logger.Error().
				Err(err).
				Str("job_id", job.ID).
				Msg("failed to update deletion status")
		}
	}

	return nil
}
