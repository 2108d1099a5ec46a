package docking

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"

	"uav-fleet-backend/internal/model"
)

const (
	eventDockCharging    = "dock_charging"
	eventDockMaintenance = "dock_maintenance"
	eventDockStandby     = "dock_standby"
	eventUndock          = "undock"
	eventHibernate       = "hibernate"
	eventWake            = "wake"
)

// newStatusFSM builds the operational-status machine for one UAV,
// positioned at its current status. The machine encodes which status
// transitions the coordinator may perform; anything else is an
// ErrInvalidTransition.
func newStatusFSM(current model.OpStatus) *fsm.FSM {
	return fsm.NewFSM(
		string(current),
		fsm.Events{
			{Name: eventDockCharging, Src: []string{string(model.OpReady), string(model.OpInFlight)}, Dst: string(model.OpCharging)},
			{Name: eventDockMaintenance, Src: []string{string(model.OpReady), string(model.OpInFlight)}, Dst: string(model.OpMaintenance)},
			{Name: eventDockStandby, Src: []string{string(model.OpReady), string(model.OpInFlight)}, Dst: string(model.OpReady)},
			{Name: eventUndock, Src: []string{string(model.OpCharging), string(model.OpMaintenance), string(model.OpReady)}, Dst: string(model.OpReady)},
			{Name: eventHibernate, Src: []string{string(model.OpReady)}, Dst: string(model.OpHibernating)},
			{Name: eventWake, Src: []string{string(model.OpHibernating)}, Dst: string(model.OpReady)},
		},
		fsm.Callbacks{},
	)
}

// dockEventForPurpose maps a dock purpose to the status event it triggers.
// Shelter and standby docking keep the UAV READY while it occupies a slot.
func dockEventForPurpose(purpose model.DockPurpose) (string, error) {
	switch purpose {
	case model.PurposeCharging:
		return eventDockCharging, nil
	case model.PurposeMaintenance:
		return eventDockMaintenance, nil
	case model.PurposeShelter, model.PurposeStandby:
		return eventDockStandby, nil
	default:
		return "", fmt.Errorf("unknown dock purpose %q", purpose)
	}
}

// transition applies event to the machine and returns the resulting
// status. looplab/fsm failures surface as ErrInvalidTransition so callers
// get a uniform taxonomy.
func transition(ctx context.Context, current model.OpStatus, event string) (model.OpStatus, error) {
	machine := newStatusFSM(current)
	if err := machine.Event(ctx, event); err != nil {
		// Standby docking keeps the current status; the library reports
		// that as a no-transition, not a failure.
		var noTransition fsm.NoTransitionError
		if !errors.As(err, &noTransition) {
			return current, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, event, current)
		}
	}
	return model.OpStatus(machine.Current()), nil
}
