package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// OrphanSweeper removes stored image files that no image row references.
type OrphanSweeper interface {
	SweepOrphans(ctx context.Context, minAge time.Duration) (int, error)
}

// OrphanSweepWorker runs the orphan sweep on a fixed interval.
type OrphanSweepWorker struct {
	sweeper  OrphanSweeper
	interval time.Duration
	minAge   time.Duration
}

// NewOrphanSweepWorker constructs an OrphanSweepWorker.
func NewOrphanSweepWorker(sweeper OrphanSweeper, interval, minAge time.Duration) *OrphanSweepWorker {
	return &OrphanSweepWorker{
		sweeper:  sweeper,
		interval: interval,
		minAge:   minAge,
	}
}

// Start begins the sweep loop and returns when ctx is cancelled. A zero
// interval disables the worker.
func (w *OrphanSweepWorker) Start(ctx context.Context) {
	if w.interval <= 0 {
		log.Info().Msg("Orphan sweep worker disabled")
		return
	}
	log.Info().Dur("interval", w.interval).Dur("min_age", w.minAge).Msg("Starting orphan sweep worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Orphan sweep worker stopped")
			return
		}
	}
}

func (w *OrphanSweepWorker) run(ctx context.Context) {
	if _, err := w.sweeper.SweepOrphans(ctx, w.minAge); err != nil {
		log.Error().Err(err).Msg("Failed to sweep orphaned image files")
	}
}
