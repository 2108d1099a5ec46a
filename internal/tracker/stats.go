package tracker

import (
	"sync/atomic"
	"time"
)

// IngestStats tracks position-ingest counters. All counters are atomics;
// reads may be slightly stale relative to each other, which is fine for
// reporting.
type IngestStats struct {
	TotalUpdates       uint64
	FailedUpdates      uint64
	BulkBatches        uint64
	ViolationsDetected uint64

	lastUpdateNano int64
}

func (s *IngestStats) recordUpdate(violations int) {
	atomic.AddUint64(&s.TotalUpdates, 1)
	if violations > 0 {
		atomic.AddUint64(&s.ViolationsDetected, uint64(violations))
	}
	atomic.StoreInt64(&s.lastUpdateNano, time.Now().UnixNano())
}

func (s *IngestStats) recordFailure() {
	atomic.AddUint64(&s.FailedUpdates, 1)
}

func (s *IngestStats) recordBatch() {
	atomic.AddUint64(&s.BulkBatches, 1)
}

// StatsSnapshot is a point-in-time copy of the ingest counters.
type StatsSnapshot struct {
	TotalUpdates       uint64    `json:"total_updates"`
	FailedUpdates      uint64    `json:"failed_updates"`
	BulkBatches        uint64    `json:"bulk_batches"`
	ViolationsDetected uint64    `json:"violations_detected"`
	LastUpdateAt       time.Time `json:"last_update_at"`
}

// Snapshot returns a consistent-enough copy for reporting.
func (s *IngestStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		TotalUpdates:       atomic.LoadUint64(&s.TotalUpdates),
		FailedUpdates:      atomic.LoadUint64(&s.FailedUpdates),
		BulkBatches:        atomic.LoadUint64(&s.BulkBatches),
		ViolationsDetected: atomic.LoadUint64(&s.ViolationsDetected),
		LastUpdateAt:       time.Unix(0, atomic.LoadInt64(&s.lastUpdateNano)),
	}
}
