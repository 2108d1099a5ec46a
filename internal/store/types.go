package store

import "uav-fleet-backend/internal/model"

// FleetAggregates is the denormalized fleet summary computed by a single
// aggregation pass over the UAV and docking tables.
type FleetAggregates struct {
	TotalUAVs      int64                    `json:"total_uavs"`
	ByOpStatus     map[model.OpStatus]int64 `json:"by_op_status"`
	ActiveSessions int64                    `json:"active_sessions"`
	MaxAltitudeM   float64                  `json:"max_altitude_m"`
	AvgBattery     float64                  `json:"avg_battery"`
}
