// Package slot provides a bounded-membership primitive shared by docking
// stations and the hibernate pod. Occupancy is always derived from the
// membership set, never tracked as a separate counter.
package slot

import (
	"sync"
	"time"
)

// AdmitReason explains the outcome of a TryAdmit call.
type AdmitReason string

const (
	AdmitOK            AdmitReason = "ok"
	AdmitFull          AdmitReason = "full"
	AdmitAlreadyMember AdmitReason = "already_member"
)

// CapacitySlot is a fixed-capacity membership set with atomic admit/release.
// The zero value is not usable; construct with New.
type CapacitySlot struct {
	mu       sync.Mutex
	capacity int
	members  map[string]time.Time
}

// New creates a CapacitySlot with the given capacity. Panics on a
// non-positive capacity, which indicates a configuration defect.
func New(capacity int) *CapacitySlot {
	if capacity <= 0 {
		panic("slot: capacity must be positive")
	}
	return &CapacitySlot{
		capacity: capacity,
		members:  make(map[string]time.Time, capacity),
	}
}

// TryAdmit atomically inserts id into the membership set. It never blocks:
// it fails immediately when id is already a member or the slot is full.
// Exactly one of two racing admits for the last free place succeeds.
func (s *CapacitySlot) TryAdmit(id string) (bool, AdmitReason) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[id]; ok {
		return false, AdmitAlreadyMember
	}
	if len(s.members) >= s.capacity {
		return false, AdmitFull
	}
	s.members[id] = time.Now().UTC()
	return true, AdmitOK
}

// Release removes id from the membership set. Releasing an id that is not a
// member is a no-op returning false.
func (s *CapacitySlot) Release(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[id]; !ok {
		return false
	}
	delete(s.members, id)
	return true
}

// Occupancy returns the current member count.
func (s *CapacitySlot) Occupancy() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members)
}

// Capacity returns the fixed capacity.
func (s *CapacitySlot) Capacity() int {
	return s.capacity
}

// IsFull reports whether no further admits can succeed.
func (s *CapacitySlot) IsFull() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members) >= s.capacity
}

// Contains reports whether id is currently a member.
func (s *CapacitySlot) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.members[id]
	return ok
}

// JoinedAt returns the admission time for id, if it is a member.
func (s *CapacitySlot) JoinedAt(id string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.members[id]
	return t, ok
}

// Members returns a snapshot of the current member ids.
func (s *CapacitySlot) Members() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.members))
	for id := range s.members {
		ids = append(ids, id)
	}
	return ids
}
