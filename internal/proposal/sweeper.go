package proposal

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/freightline/comms/internal/models"
)

// DefaultSweepInterval is how often the expiry sweep runs when not
// configured otherwise.
const DefaultSweepInterval = 60 * time.Second

// Sweeper is the background maintenance loop that expires overdue pending
// proposals. It shares the engine's conditional PENDING-only update, so it
// needs no coordination with request handlers: whichever side flips the row
// first wins, and the other sees it as already resolved.
type Sweeper struct {
	engine   *Engine
	interval time.Duration
}

// NewSweeper creates a Sweeper. A non-positive interval falls back to
// DefaultSweepInterval.
func NewSweeper(engine *Engine, interval time.Duration) (*Sweeper, error) {
	if engine == nil {
		return nil, fmt.Errorf("proposal: sweeper: engine is required")
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{engine: engine, interval: interval}, nil
}

// Run executes the sweep loop until ctx is cancelled. Nothing is surfaced to
// any caller: every failure is logged and the affected rows are retried on
// the next pass, because only PENDING rows are ever selected.
func (s *Sweeper) Run(ctx context.Context) {
	log.Printf("proposal: sweeper starting (every %s)", s.interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("proposal: sweeper stopped")
			return
		case <-time.After(s.interval):
		}

		expired, err := s.SweepOnce(ctx)
		if err != nil {
			log.Printf("proposal: sweep error: %v", err)
			continue
		}
		if expired > 0 {
			log.Printf("proposal: sweep expired %d proposal(s)", expired)
		}
	}
}

// SweepOnce runs a single sweep pass and returns how many proposals were
// expired. Each row is flipped individually, so a crash mid-pass leaves the
// already-updated rows correctly EXPIRED and the rest PENDING for the next
// pass. A single row's failure never aborts the batch.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	db := s.engine.db.WithContext(ctx)

	var due []models.Proposal
	err := db.Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?",
		StatusPending, time.Now()).Find(&due).Error
	if err != nil {
		return 0, fmt.Errorf("%w: query due proposals: %v", ErrStoreUnavailable, err)
	}

	expired := 0
	for i := range due {
		ok, err := s.engine.transition(ctx, &due[i], StatusExpired, "")
		if err != nil {
			log.Printf("proposal: expire %s: %v", due[i].ID, err)
			continue
		}
		if ok {
			expired++
		}
	}
	return expired, nil
}
