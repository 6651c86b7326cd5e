// Package query implements the read-only tools served over the API. Every tool answers from
// already-published data and returns an empty list, never an error, for unknown ids.
package query

import (
	"sort"
	"strings"
	"time"

	"catabus.org/transit/internal/arrivals"
	"catabus.org/transit/internal/clock"
	"catabus.org/transit/internal/gtfs"
	"catabus.org/transit/internal/models"
	"catabus.org/transit/internal/realtime"
)

// StaticSource is the static dataset holder, normally *gtfs.Manager.
type StaticSource interface {
	Current() *gtfs.Static
	LastLoad() gtfs.LoadResult
}

type Service struct {
	static     StaticSource
	snapshot   *realtime.Snapshot
	reconciler *arrivals.Reconciler
	clock      clock.Clock
}

func NewService(static StaticSource, snapshot *realtime.Snapshot, reconciler *arrivals.Reconciler, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Service{static: static, snapshot: snapshot, reconciler: reconciler, clock: clk}
}

// ListRoutes returns every route ordered by short name.
func (s *Service) ListRoutes() []models.RouteSummary {
	routes := s.static.Current().Routes
	out := make([]models.RouteSummary, 0, len(routes))
	for _, r := range routes {
		summary := models.RouteSummary{RouteID: r.ID, ShortName: r.ShortName, LongName: r.LongName}
		if r.Color != "" {
			color := "#" + r.Color
			summary.Color = &color
		}
		out = append(out, summary)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ShortName < out[j].ShortName })
	return out
}

// SearchStops matches q case-insensitively against stop id, name, code and description.
func (s *Service) SearchStops(q string) []models.StopSummary {
	needle := strings.ToLower(strings.TrimSpace(q))
	out := []models.StopSummary{}
	if needle == "" {
		return out
	}

	for _, stop := range s.static.Current().Stops {
		if !containsFold(needle, stop.ID, stop.Name, stop.Code, stop.Desc) {
			continue
		}
		out = append(out, stopSummary(stop))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func containsFold(needle string, fields ...string) bool {
	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func stopSummary(stop gtfs.Stop) models.StopSummary {
	return models.StopSummary{StopID: stop.ID, Name: stop.Name, Lat: stop.Lat, Lon: stop.Lon}
}

// NextArrivals returns reconciled predictions for stopID within horizonMinutes.
func (s *Service) NextArrivals(stopID string, horizonMinutes int) []models.ArrivalPrediction {
	predictions := s.reconciler.NextArrivals(stopID, horizonMinutes)
	out := make([]models.ArrivalPrediction, 0, len(predictions))
	for _, p := range predictions {
		out = append(out, models.ArrivalPrediction{
			TripID:           p.TripID,
			RouteID:          p.RouteID,
			StopID:           p.StopID,
			Headsign:         p.Headsign,
			ScheduledArrival: p.ScheduledArrival,
			ArrivalTime:      p.PredictedArrival,
			DelaySeconds:     p.DelaySeconds,
			Predicted:        p.Realtime,
		})
	}
	return out
}

// VehiclePositions returns the vehicles serving routeID, ordered by vehicle id. A vehicle that
// reports no route is matched through its trip in the static schedule.
func (s *Service) VehiclePositions(routeID string) []models.VehicleSummary {
	static := s.static.Current()
	out := []models.VehicleSummary{}
	for _, v := range s.snapshot.Vehicles().ByID {
		vehicleRoute := v.RouteID
		if vehicleRoute == "" && v.TripID != "" {
			if trip, ok := static.Trip(v.TripID); ok {
				vehicleRoute = trip.RouteID
			}
		}
		if vehicleRoute != routeID {
			continue
		}
		out = append(out, models.VehicleSummary{
			VehicleID: v.VehicleID,
			TripID:    v.TripID,
			Lat:       v.Lat,
			Lon:       v.Lon,
			Bearing:   v.Bearing,
			SpeedMPS:  v.SpeedMPS,
			Occupancy: string(v.Occupancy),
			Timestamp: v.Timestamp,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VehicleID < out[j].VehicleID })
	return out
}

// TripAlerts returns alerts naming routeID, or all alerts when routeID is empty. With
// activeOnly, alerts outside their active periods are left out.
func (s *Service) TripAlerts(routeID string, activeOnly bool) []models.AlertSummary {
	now := s.clock.Now()
	out := []models.AlertSummary{}
	for _, a := range s.snapshot.Alerts().Alerts {
		if routeID != "" && !a.AffectsRoute(routeID) {
			continue
		}
		if activeOnly && !a.IsActive(now) {
			continue
		}

		summary := models.AlertSummary{
			ID:             a.ID,
			AffectedRoutes: a.AffectedRoutes(),
			Header:         a.Header,
			Description:    a.Description,
			Severity:       string(a.Severity),
			ActiveWindows:  make([]models.ActiveWindow, 0, len(a.ActivePeriods)),
		}
		if len(summary.AffectedRoutes) == 1 {
			only := summary.AffectedRoutes[0]
			summary.RouteID = &only
		}
		for _, p := range a.ActivePeriods {
			var w models.ActiveWindow
			if p.Start != nil {
				w.From = p.Start.UnixMilli()
			}
			if p.End != nil {
				w.To = p.End.UnixMilli()
			}
			summary.ActiveWindows = append(summary.ActiveWindows, w)
		}
		out = append(out, summary)
	}
	return out
}

// StopsNear returns stops within radiusMeters of the point, nearest first. Non-positive radii
// use the default search radius and large ones are capped.
func (s *Service) StopsNear(lat, lon, radiusMeters float64) []models.NearbyStop {
	if radiusMeters <= 0 {
		radiusMeters = models.DefaultSearchRadiusInMeters
	}
	radiusMeters = min(radiusMeters, models.MaxSearchRadiusInMeters)

	nearby := s.static.Current().StopsNear(lat, lon, radiusMeters)
	out := make([]models.NearbyStop, 0, len(nearby))
	for _, n := range nearby {
		out = append(out, models.NearbyStop{StopSummary: stopSummary(n.Stop), Distance: n.Distance})
	}
	return out
}

// RouteShapes returns the encoded polylines of the route's distinct shapes.
func (s *Service) RouteShapes(routeID string) []models.RouteShape {
	static := s.static.Current()
	out := []models.RouteShape{}
	for _, shapeID := range static.ShapeIDsForRoute(routeID) {
		encoded, ok := static.ShapePolyline(shapeID)
		if !ok {
			continue
		}
		out = append(out, models.RouteShape{ShapeID: shapeID, Polyline: encoded, Points: len(static.Shapes[shapeID])})
	}
	return out
}

// Health reports data freshness. The service is degraded while the static schedule is.
func (s *Service) Health() models.HealthStatus {
	load := s.static.LastLoad()
	summary := load.Static.Summary()
	freshness := s.snapshot.Freshness()

	health := models.HealthStatus{
		Status:            models.HealthOK,
		Initialized:       !load.LoadedAt.IsZero(),
		RoutesLoaded:      summary.Routes,
		StopsLoaded:       summary.Stops,
		TripsLoaded:       summary.Trips,
		StaticStatus:      load.Status.String(),
		LastStaticUpdate:  timePtr(load.LoadedAt),
		LastVehicleUpdate: timePtr(freshness.Vehicles),
		LastTripUpdate:    timePtr(freshness.TripUpdates),
		LastAlertUpdate:   timePtr(freshness.Alerts),
		ServerTime:        s.clock.Now().UTC(),
	}
	if load.Degraded() {
		health.Status = models.HealthDegraded
		if load.Err != nil {
			health.StaticError = load.Err.Error()
		}
	}
	return health
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
