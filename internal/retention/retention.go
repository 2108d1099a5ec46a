// Package retention prunes old location history in the background. It is
// the only component allowed to delete trail entries.
package retention

import (
	"context"
	"log"
	"time"

	"uav-fleet-backend/config"
	"uav-fleet-backend/internal/store"
)

// Service periodically removes location history older than the configured
// retention window.
type Service struct {
	cfg   *config.Config
	store store.Store
}

// NewService creates the retention service.
func NewService(cfg *config.Config, s store.Store) *Service {
	return &Service{cfg: cfg, store: s}
}

// Run starts the pruning loop. Returns when ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Retention.Enabled {
		log.Println("Retention service is disabled. Not starting.")
		return
	}
	log.Printf("Starting retention service (max age %d days, every %s)...",
		s.cfg.Retention.MaxAgeDays, s.cfg.Retention.Interval)

	s.PruneOnce(ctx)

	timer := time.NewTimer(s.cfg.Retention.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Retention service shutting down.")
			return
		case <-timer.C:
			s.PruneOnce(ctx)
			timer.Reset(s.cfg.Retention.Interval)
		}
	}
}

// PruneOnce performs a single pruning pass.
func (s *Service) PruneOnce(ctx context.Context) {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.cfg.Retention.MaxAgeDays)
	removed, err := s.store.PruneLocationHistory(ctx, cutoff)
	if err != nil {
		log.Printf("Retention prune failed: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("Retention pruned %d location history entries older than %s", removed, cutoff.Format(time.RFC3339))
	}
}
