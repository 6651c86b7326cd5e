package realtime

import "time"

// OccupancyStatus is the crowding category a vehicle reports. The empty value means not reported.
type OccupancyStatus string

const (
	OccupancyEmpty                   OccupancyStatus = "EMPTY"
	OccupancyManySeatsAvailable      OccupancyStatus = "MANY_SEATS_AVAILABLE"
	OccupancyFewSeatsAvailable       OccupancyStatus = "FEW_SEATS_AVAILABLE"
	OccupancyStandingRoomOnly        OccupancyStatus = "STANDING_ROOM_ONLY"
	OccupancyCrushedStandingRoomOnly OccupancyStatus = "CRUSHED_STANDING_ROOM_ONLY"
	OccupancyFull                    OccupancyStatus = "FULL"
	OccupancyNotAcceptingPassengers  OccupancyStatus = "NOT_ACCEPTING_PASSENGERS"
	OccupancyUnknown                 OccupancyStatus = "UNKNOWN"
)

var occupancyCodes = map[int32]OccupancyStatus{
	0: OccupancyEmpty,
	1: OccupancyManySeatsAvailable,
	2: OccupancyFewSeatsAvailable,
	3: OccupancyStandingRoomOnly,
	4: OccupancyCrushedStandingRoomOnly,
	5: OccupancyFull,
	6: OccupancyNotAcceptingPassengers,
}

// OccupancyFromCode maps a wire occupancy code; unmapped codes are UNKNOWN.
func OccupancyFromCode(code int32) OccupancyStatus {
	if status, ok := occupancyCodes[code]; ok {
		return status
	}
	return OccupancyUnknown
}

// Severity is the alert severity level.
type Severity string

const (
	SeverityUnknown Severity = "UNKNOWN"
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeveritySevere  Severity = "SEVERE"
)

var severityCodes = map[int32]Severity{
	1: SeverityUnknown,
	2: SeverityInfo,
	3: SeverityWarning,
	4: SeveritySevere,
}

// SeverityFromCode maps a wire severity level; unmapped codes are UNKNOWN.
func SeverityFromCode(code int32) Severity {
	if severity, ok := severityCodes[code]; ok {
		return severity
	}
	return SeverityUnknown
}

// VehiclePosition is the last reported location of one vehicle.
type VehiclePosition struct {
	VehicleID string
	TripID    string
	RouteID   string
	Lat       float64
	Lon       float64
	Bearing   *float64
	SpeedMPS  *float64
	Timestamp time.Time
	Occupancy OccupancyStatus
}

// TripUpdate carries the realtime stop-time updates for one trip.
type TripUpdate struct {
	TripID          string
	RouteID         string
	VehicleID       string
	Timestamp       time.Time
	StopTimeUpdates []StopTimeUpdate
}

// StopTimeUpdate returns the first stop-time update for stopID. Stop sequence is not consulted.
func (u TripUpdate) StopTimeUpdate(stopID string) (StopTimeUpdate, bool) {
	for _, stu := range u.StopTimeUpdates {
		if stu.StopID == stopID {
			return stu, true
		}
	}
	return StopTimeUpdate{}, false
}

type StopTimeUpdate struct {
	StopID       string
	StopSequence *uint32
	Arrival      *StopTimeEvent
	Departure    *StopTimeEvent
}

// StopTimeEvent adjusts a scheduled event either by a delay or with an absolute time.
type StopTimeEvent struct {
	Delay *int32
	Time  *time.Time
}

// Resolve applies the event to a scheduled instant. An absolute time wins over a delay;
// the returned delay is then recomputed from it. ok is false when the event carries neither.
func (e *StopTimeEvent) Resolve(scheduled time.Time) (predicted time.Time, delaySeconds int, ok bool) {
	if e == nil {
		return scheduled, 0, false
	}
	if e.Time != nil {
		return *e.Time, int(e.Time.Sub(scheduled) / time.Second), true
	}
	if e.Delay != nil {
		return scheduled.Add(time.Duration(*e.Delay) * time.Second), int(*e.Delay), true
	}
	return scheduled, 0, false
}

// ActivePeriod is an alert window; either end may be open.
type ActivePeriod struct {
	Start *time.Time
	End   *time.Time
}

func (p ActivePeriod) contains(at time.Time) bool {
	if p.Start != nil && at.Before(*p.Start) {
		return false
	}
	if p.End != nil && at.After(*p.End) {
		return false
	}
	return true
}

type InformedEntity struct {
	RouteID *string
	TripID  *string
	StopID  *string
}

// ServiceAlert is a rider-facing disruption notice.
type ServiceAlert struct {
	ID               string
	Header           string
	Description      string
	Severity         Severity
	ActivePeriods    []ActivePeriod
	InformedEntities []InformedEntity
}

// IsActive reports whether at falls in any active period. An alert without periods is always active.
func (a ServiceAlert) IsActive(at time.Time) bool {
	if len(a.ActivePeriods) == 0 {
		return true
	}
	for _, p := range a.ActivePeriods {
		if p.contains(at) {
			return true
		}
	}
	return false
}

// AffectedRoutes returns the distinct route ids named by informed entities, in order of appearance.
func (a ServiceAlert) AffectedRoutes() []string {
	seen := map[string]bool{}
	routes := []string{}
	for _, e := range a.InformedEntities {
		if e.RouteID == nil || *e.RouteID == "" || seen[*e.RouteID] {
			continue
		}
		seen[*e.RouteID] = true
		routes = append(routes, *e.RouteID)
	}
	return routes
}

// AffectsRoute reports whether any informed entity names routeID.
func (a ServiceAlert) AffectsRoute(routeID string) bool {
	for _, e := range a.InformedEntities {
		if e.RouteID != nil && *e.RouteID == routeID {
			return true
		}
	}
	return false
}
