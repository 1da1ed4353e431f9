package service

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"

	"archsketch/internal/logs"
	"archsketch/internal/repository"
)

// Reaper deletes artifacts older than a TTL
type Reaper struct {
	ledger   repository.ArtifactLedger
	eventBus *EventBus
	ttl      time.Duration
	now      func() time.Time
}

// NewReaper creates a reaper. A non-positive ttl disables reaping.
func NewReaper(ledger repository.ArtifactLedger, eventBus *EventBus, ttl time.Duration) *Reaper {
	return &Reaper{
		ledger:   ledger,
		eventBus: eventBus,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Enabled reports whether the reaper will delete anything
func (r *Reaper) Enabled() bool {
	return r.ttl > 0 && r.ledger != nil
}

// Run sweeps every ttl/2 until ctx is done
func (r *Reaper) Run(ctx context.Context) {
	if !r.Enabled() {
		return
	}

	interval := r.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
				logs.From(ctx).WarnContext(ctx, "artifact sweep failed", "error", err)
			}
		}
	}
}

// Sweep deletes every expired artifact file and ledger row, returning the
// number removed. A file that is already gone still has its row removed.
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	if !r.Enabled() {
		return 0, nil
	}

	expired, err := r.ledger.Expired(ctx, r.now().Add(-r.ttl))
	if err != nil {
		return 0, err
	}

	var errs []error
	removed := 0
	for _, a := range expired {
		if err := os.Remove(a.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		if err := r.ledger.Delete(ctx, a.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		logs.From(ctx).InfoContext(ctx, "expired artifacts removed", "count", removed)
		r.eventBus.Publish(Event{
			Type:    EventArtifactsReaped,
			Payload: map[string]int{"count": removed},
		})
	}
	return removed, errors.Join(errs...)
}
