// Package docking owns station occupancy, the hibernate pod, and the
// dock/undock state transitions. All occupancy mutation in the system goes
// through the Coordinator.
package docking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"

	"uav-fleet-backend/internal/geo"
	"uav-fleet-backend/internal/model"
	"uav-fleet-backend/internal/slot"
	"uav-fleet-backend/internal/store"
)

var dockingOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "docking_operations_total",
	Help: "Docking engine operations, by operation and outcome.",
}, []string{"op", "outcome"})

// Coordinator owns the per-station capacity slots and the hibernate pod.
// Slot membership is the authoritative occupancy; the database holds the
// session records. Construct once at startup and call LoadStations before
// serving requests.
type Coordinator struct {
	store store.Store
	pod   *slot.CapacitySlot

	mu    sync.Mutex
	slots map[string]*slot.CapacitySlot

	uavMu    sync.Mutex
	uavLocks map[string]*sync.Mutex
}

// NewCoordinator creates a Coordinator with a hibernate pod of the given
// capacity.
func NewCoordinator(s store.Store, podCapacity int) *Coordinator {
	return &Coordinator{
		store:    s,
		pod:      slot.New(podCapacity),
		slots:    make(map[string]*slot.CapacitySlot),
		uavLocks: make(map[string]*sync.Mutex),
	}
}

// LoadStations builds capacity slots for every station and replays active
// docking records into slot membership, so a restart does not lose
// occupancy.
func (c *Coordinator) LoadStations(ctx context.Context) error {
	stations, err := c.store.ListStations(ctx)
	if err != nil {
		return fmt.Errorf("failed to list stations: %w", err)
	}
	for i := range stations {
		c.slotFor(&stations[i])
	}

	records, err := c.store.ListActiveDockingRecords(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active docking records: %w", err)
	}
	for _, record := range records {
		c.mu.Lock()
		s, ok := c.slots[record.StationID]
		c.mu.Unlock()
		if !ok {
			log.Printf("Active docking record %s references unknown station %s; skipping", record.ID, record.StationID)
			continue
		}
		if admitted, reason := s.TryAdmit(record.UAVID); !admitted {
			log.Printf("Could not replay docking record %s into station %s: %s", record.ID, record.StationID, reason)
		}
	}

	log.Printf("Docking coordinator loaded %d stations, %d active sessions", len(stations), len(records))
	return nil
}

// slotFor returns the capacity slot for a station, creating it on first
// use. Each station has exactly one slot for its whole lifetime; capacity
// changes require a restart.
func (c *Coordinator) slotFor(station *model.DockingStation) *slot.CapacitySlot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.slots[station.ID]; ok {
		return s
	}
	s := slot.New(station.MaxCapacity)
	c.slots[station.ID] = s
	return s
}

// lockUAV serializes dock-state operations per UAV. Different UAVs never
// contend with each other.
func (c *Coordinator) lockUAV(uavID string) func() {
	c.uavMu.Lock()
	m, ok := c.uavLocks[uavID]
	if !ok {
		m = &sync.Mutex{}
		c.uavLocks[uavID] = m
	}
	c.uavMu.Unlock()

	m.Lock()
	return m.Unlock
}

// StationOccupancy returns (occupancy, capacity) for a station's slot.
func (c *Coordinator) StationOccupancy(stationID string) (int, int, bool) {
	c.mu.Lock()
	s, ok := c.slots[stationID]
	c.mu.Unlock()
	if !ok {
		return 0, 0, false
	}
	return s.Occupancy(), s.Capacity(), true
}

// FindOptimalStation returns the nearest OPERATIONAL, non-full station
// matching the required capability, or nil when no station qualifies.
func (c *Coordinator) FindOptimalStation(ctx context.Context, point geo.Point, capability model.Capability) (*model.DockingStation, error) {
	stations, err := c.store.ListStations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stations: %w", err)
	}

	type candidate struct {
		station  *model.DockingStation
		distance float64
	}
	var candidates []candidate

	for i := range stations {
		station := &stations[i]
		if station.Status != model.StationOperational {
			continue
		}
		if !station.HasCapability(capability) {
			continue
		}
		if c.slotFor(station).IsFull() {
			continue
		}
		d := geo.Distance(point, geo.Point{Lat: station.Latitude, Lon: station.Longitude})
		candidates = append(candidates, candidate{station: station, distance: d})
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})
	return candidates[0].station, nil
}

// Dock admits a UAV into a station slot and opens a docking session.
// The slot admit is the only step racing other requests for the same
// station; everything before it is validation, everything after it is
// bookkeeping that rolls the admit back on failure.
func (c *Coordinator) Dock(ctx context.Context, uavID, stationID string, purpose model.DockPurpose) (*model.DockingRecord, error) {
	unlock := c.lockUAV(uavID)
	defer unlock()

	record, err := c.dock(ctx, uavID, stationID, purpose)
	if err != nil {
		dockingOpsTotal.WithLabelValues("dock", "failure").Inc()
		return nil, err
	}
	dockingOpsTotal.WithLabelValues("dock", "success").Inc()
	return record, nil
}

func (c *Coordinator) dock(ctx context.Context, uavID, stationID string, purpose model.DockPurpose) (*model.DockingRecord, error) {
	uav, err := c.store.GetUAV(ctx, uavID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUAVNotFound, uavID)
	}
	if err != nil {
		return nil, err
	}

	station, err := c.store.GetStation(ctx, stationID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrStationNotFound, stationID)
	}
	if err != nil {
		return nil, err
	}

	if station.Status != model.StationOperational {
		return nil, fmt.Errorf("%w: %s is %s", ErrStationNotOperational, stationID, station.Status)
	}

	active, err := c.store.ActiveDockingRecord(ctx, uavID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, fmt.Errorf("%w: active session %s at station %s", ErrAlreadyDocked, active.ID, active.StationID)
	}

	event, err := dockEventForPurpose(purpose)
	if err != nil {
		return nil, err
	}
	newStatus, err := transition(ctx, uav.OpStatus, event)
	if err != nil {
		return nil, err
	}

	s := c.slotFor(station)
	admitted, reason := s.TryAdmit(uavID)
	if !admitted {
		if reason == slot.AdmitAlreadyMember {
			return nil, fmt.Errorf("%w: already occupying a slot at %s", ErrAlreadyDocked, stationID)
		}
		return nil, fmt.Errorf("%w: %s at capacity %d", ErrStationFull, stationID, s.Capacity())
	}

	record := &model.DockingRecord{
		ID:               uuid.NewString(),
		UAVID:            uavID,
		StationID:        stationID,
		Purpose:          purpose,
		Status:           model.RecordDocked,
		DockTime:         time.Now().UTC(),
		BatteryOnArrival: uav.BatteryLevel,
	}

	if err := c.store.CreateDockingSession(ctx, record, newStatus); err != nil {
		// Roll the admit back so slot occupancy never drifts from the
		// session records.
		s.Release(uavID)
		return nil, err
	}
	return record, nil
}

// Undock seals the active session and frees the station slot.
func (c *Coordinator) Undock(ctx context.Context, uavID string) (*model.DockingRecord, error) {
	return c.undock(ctx, uavID, model.RecordCompleted)
}

// EmergencyUndock seals the session as EMERGENCY_UNDOCK. It shares the
// release path with Undock, skipping only the purpose bookkeeping.
func (c *Coordinator) EmergencyUndock(ctx context.Context, uavID string) (*model.DockingRecord, error) {
	return c.undock(ctx, uavID, model.RecordEmergencyUndock)
}

func (c *Coordinator) undock(ctx context.Context, uavID string, sealStatus model.DockingRecordStatus) (*model.DockingRecord, error) {
	unlock := c.lockUAV(uavID)
	defer unlock()

	op := "undock"
	if sealStatus == model.RecordEmergencyUndock {
		op = "emergency_undock"
	}

	record, err := c.sealActive(ctx, uavID, sealStatus)
	if err != nil {
		dockingOpsTotal.WithLabelValues(op, "failure").Inc()
		return nil, err
	}
	dockingOpsTotal.WithLabelValues(op, "success").Inc()
	return record, nil
}

func (c *Coordinator) sealActive(ctx context.Context, uavID string, sealStatus model.DockingRecordStatus) (*model.DockingRecord, error) {
	uav, err := c.store.GetUAV(ctx, uavID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUAVNotFound, uavID)
	}
	if err != nil {
		return nil, err
	}

	record, err := c.store.ActiveDockingRecord(ctx, uavID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoActiveDocking, uavID)
	}

	newStatus, err := transition(ctx, uav.OpStatus, eventUndock)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	battery := uav.BatteryLevel
	record.UndockTime = &now
	record.Status = sealStatus
	record.BatteryOnDeparture = &battery

	if err := c.store.SealDockingSession(ctx, record, newStatus); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNoActiveDocking, uavID)
		}
		return nil, err
	}

	c.mu.Lock()
	s, ok := c.slots[record.StationID]
	c.mu.Unlock()
	if ok {
		s.Release(uavID)
	}

	return record, nil
}

// JoinHibernation admits a UAV into the hibernate pod. Lighter weight than
// docking: pod membership plus a status flip, no session record.
func (c *Coordinator) JoinHibernation(ctx context.Context, uavID string) error {
	unlock := c.lockUAV(uavID)
	defer unlock()

	uav, err := c.store.GetUAV(ctx, uavID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrUAVNotFound, uavID)
	}
	if err != nil {
		return err
	}

	active, err := c.store.ActiveDockingRecord(ctx, uavID)
	if err != nil {
		return err
	}
	if active != nil {
		return fmt.Errorf("%w: undock before hibernating", ErrAlreadyDocked)
	}

	newStatus, err := transition(ctx, uav.OpStatus, eventHibernate)
	if err != nil {
		return err
	}

	admitted, reason := c.pod.TryAdmit(uavID)
	if !admitted {
		if reason == slot.AdmitAlreadyMember {
			return fmt.Errorf("%w: %s", ErrAlreadyHibernating, uavID)
		}
		return fmt.Errorf("%w: capacity %d", ErrPodFull, c.pod.Capacity())
	}

	if err := c.store.UpdateUAVStatus(ctx, uavID, newStatus); err != nil {
		c.pod.Release(uavID)
		return err
	}
	return nil
}

// LeaveHibernation removes a UAV from the pod and returns it to READY.
func (c *Coordinator) LeaveHibernation(ctx context.Context, uavID string) error {
	unlock := c.lockUAV(uavID)
	defer unlock()

	uav, err := c.store.GetUAV(ctx, uavID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrUAVNotFound, uavID)
	}
	if err != nil {
		return err
	}

	if !c.pod.Contains(uavID) {
		return fmt.Errorf("%w: %s", ErrNotHibernating, uavID)
	}

	newStatus, err := transition(ctx, uav.OpStatus, eventWake)
	if err != nil {
		return err
	}

	if err := c.store.UpdateUAVStatus(ctx, uavID, newStatus); err != nil {
		return err
	}
	c.pod.Release(uavID)
	return nil
}

// HibernationDwell returns how long a UAV has been in the pod. Scheduling
// heuristics use dwell time to pick which vehicle to wake first.
func (c *Coordinator) HibernationDwell(uavID string) (time.Duration, error) {
	joined, ok := c.pod.JoinedAt(uavID)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotHibernating, uavID)
	}
	return time.Since(joined), nil
}

// PodOccupancy returns (occupancy, capacity) for the hibernate pod.
func (c *Coordinator) PodOccupancy() (int, int) {
	return c.pod.Occupancy(), c.pod.Capacity()
}
