package realtime

import (
	"sync/atomic"
	"time"
)

// VehicleSet is one published generation of vehicle positions. It is never mutated after publish.
type VehicleSet struct {
	ByID      map[string]VehiclePosition
	UpdatedAt time.Time
}

type TripUpdateSet struct {
	ByTripID  map[string]TripUpdate
	UpdatedAt time.Time
}

type AlertSet struct {
	Alerts    []ServiceAlert
	UpdatedAt time.Time
}

// Freshness holds each category's last publish time; zero means never updated.
type Freshness struct {
	Vehicles    time.Time
	TripUpdates time.Time
	Alerts      time.Time
}

// Snapshot holds the latest realtime state. Each category is replaced as a whole with one
// atomic swap, so a reader sees either the old or the new generation of a category.
// Categories are independent and may be from different poll cycles.
type Snapshot struct {
	vehicles    atomic.Pointer[VehicleSet]
	tripUpdates atomic.Pointer[TripUpdateSet]
	alerts      atomic.Pointer[AlertSet]
}

func NewSnapshot() *Snapshot {
	s := &Snapshot{}
	s.vehicles.Store(&VehicleSet{ByID: map[string]VehiclePosition{}})
	s.tripUpdates.Store(&TripUpdateSet{ByTripID: map[string]TripUpdate{}})
	s.alerts.Store(&AlertSet{Alerts: []ServiceAlert{}})
	return s
}

// PublishVehicles replaces the vehicle set. The caller must not retain or modify vehicles.
func (s *Snapshot) PublishVehicles(vehicles map[string]VehiclePosition, at time.Time) {
	if vehicles == nil {
		vehicles = map[string]VehiclePosition{}
	}
	s.vehicles.Store(&VehicleSet{ByID: vehicles, UpdatedAt: at})
}

func (s *Snapshot) PublishTripUpdates(updates map[string]TripUpdate, at time.Time) {
	if updates == nil {
		updates = map[string]TripUpdate{}
	}
	s.tripUpdates.Store(&TripUpdateSet{ByTripID: updates, UpdatedAt: at})
}

func (s *Snapshot) PublishAlerts(alerts []ServiceAlert, at time.Time) {
	if alerts == nil {
		alerts = []ServiceAlert{}
	}
	s.alerts.Store(&AlertSet{Alerts: alerts, UpdatedAt: at})
}

func (s *Snapshot) Vehicles() *VehicleSet {
	return s.vehicles.Load()
}

func (s *Snapshot) TripUpdates() *TripUpdateSet {
	return s.tripUpdates.Load()
}

func (s *Snapshot) Alerts() *AlertSet {
	return s.alerts.Load()
}

// TripUpdate looks up the current update for tripID.
func (s *Snapshot) TripUpdate(tripID string) (TripUpdate, bool) {
	u, ok := s.tripUpdates.Load().ByTripID[tripID]
	return u, ok
}

func (s *Snapshot) Freshness() Freshness {
	return Freshness{
		Vehicles:    s.vehicles.Load().UpdatedAt,
		TripUpdates: s.tripUpdates.Load().UpdatedAt,
		Alerts:      s.alerts.Load().UpdatedAt,
	}
}
