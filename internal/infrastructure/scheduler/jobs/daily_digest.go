// Package jobs contains the scheduled jobs of the attendance bot.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dailypractice/attendance-hub/internal/application/query"
	"github.com/dailypractice/attendance-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// DAILY DIGEST JOB
// ══════════════════════════════════════════════════════════════════════════════

// StatusSource answers today's status for a chat.
type StatusSource interface {
	TodayStatus(ctx context.Context, chatID string) (*query.TodayStatusResult, error)
}

// StatusRenderer turns a status into message blocks.
type StatusRenderer interface {
	Status(res *query.TodayStatusResult) []string
}

// Pusher delivers unsolicited messages to a chat.
type Pusher interface {
	Push(ctx context.Context, to string, texts []string) error
}

// DailyDigestConfig contains configuration for the daily digest job.
type DailyDigestConfig struct {
	// ChatIDs receive the digest.
	ChatIDs []string

	// Concurrency limits parallel chats (default: 4).
	Concurrency int

	// SkipEmpty leaves chats without registered members alone.
	SkipEmpty bool
}

// DailyDigestStats summarizes one run.
type DailyDigestStats struct {
	StartedAt time.Time
	Duration  time.Duration
	Total     int
	Sent      int
	Skipped   int
	Failed    int
}

// DailyDigestJob pushes today's status report to each configured chat.
// A failing chat is logged and does not stop the others.
type DailyDigestJob struct {
	statuses StatusSource
	renderer StatusRenderer
	pusher   Pusher
	logger   *logger.Logger
	config   DailyDigestConfig

	lastRunStats atomic.Value // DailyDigestStats
}

// NewDailyDigestJob creates a new daily digest job.
func NewDailyDigestJob(
	statuses StatusSource,
	renderer StatusRenderer,
	pusher Pusher,
	log *logger.Logger,
	config DailyDigestConfig,
) *DailyDigestJob {
	if log == nil {
		log = logger.Nop()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 4
	}
	return &DailyDigestJob{
		statuses: statuses,
		renderer: renderer,
		pusher:   pusher,
		logger:   log.With(logger.Component("daily_digest")),
		config:   config,
	}
}

// Name returns the job name.
func (j *DailyDigestJob) Name() string { return "daily_digest" }

// Description returns a human-readable description.
func (j *DailyDigestJob) Description() string {
	return "Pushes today's attendance status to the configured chats"
}

// LastRunStats returns the summary of the most recent run.
func (j *DailyDigestJob) LastRunStats() (DailyDigestStats, bool) {
	stats, ok := j.lastRunStats.Load().(DailyDigestStats)
	return stats, ok
}

// Run executes the daily digest job. It returns an error only when at
// least one chat failed.
func (j *DailyDigestJob) Run(ctx context.Context) error {
	stats := DailyDigestStats{StartedAt: time.Now(), Total: len(j.config.ChatIDs)}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		semaphore = make(chan struct{}, j.config.Concurrency)
	)

loop:
	for _, chatID := range j.config.ChatIDs {
		select {
		case <-ctx.Done():
			break loop
		case semaphore <- struct{}{}:
		}

		wg.Add(1)
		go func(chatID string) {
			defer wg.Done()
			defer func() { <-semaphore }()

			sent, err := j.sendDigest(ctx, chatID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				stats.Failed++
				j.logger.Error("failed to send digest", logger.ChatID(chatID), logger.Err(err))
			case !sent:
				stats.Skipped++
			default:
				stats.Sent++
			}
		}(chatID)
	}
	wg.Wait()

	stats.Duration = time.Since(stats.StartedAt)
	j.lastRunStats.Store(stats)

	j.logger.Info("daily digest completed",
		logger.Int("total", stats.Total),
		logger.Int("sent", stats.Sent),
		logger.Int("skipped", stats.Skipped),
		logger.Int("failed", stats.Failed),
		logger.Duration("duration", stats.Duration),
	)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("daily digest interrupted: %w", err)
	}
	if stats.Failed > 0 {
		return fmt.Errorf("daily digest: %d of %d chats failed", stats.Failed, stats.Total)
	}
	return nil
}

func (j *DailyDigestJob) sendDigest(ctx context.Context, chatID string) (bool, error) {
	res, err := j.statuses.TodayStatus(ctx, chatID)
	if err != nil {
		return false, fmt.Errorf("load status: %w", err)
	}
	if j.config.SkipEmpty && len(res.Done)+len(res.Pending) == 0 {
		return false, nil
	}
	blocks := j.renderer.Status(res)
	if len(blocks) == 0 {
		return false, nil
	}
	if err := j.pusher.Push(ctx, chatID, blocks); err != nil {
		return false, fmt.Errorf("push: %w", err)
	}
	return true, nil
}
