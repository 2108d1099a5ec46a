package docking

import "errors"

// Every engine failure is a reportable outcome tied to a request. The API
// layer maps these to HTTP statuses with errors.Is.
var (
	ErrUAVNotFound           = errors.New("uav not found")
	ErrStationNotFound       = errors.New("station not found")
	ErrStationNotOperational = errors.New("station is not operational")
	ErrStationFull           = errors.New("station is full")
	ErrAlreadyDocked         = errors.New("uav is already docked")
	ErrNoActiveDocking       = errors.New("uav has no active docking session")
	ErrPodFull               = errors.New("hibernate pod is full")
	ErrAlreadyHibernating    = errors.New("uav is already hibernating")
	ErrNotHibernating        = errors.New("uav is not hibernating")
	ErrInvalidTransition     = errors.New("invalid operational status transition")
)
