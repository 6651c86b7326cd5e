package models

import "time"

type RouteSummary struct {
	RouteID   string  `json:"routeId"`
	ShortName string  `json:"shortName"`
	LongName  string  `json:"longName"`
	Color     *string `json:"color"`
}

type StopSummary struct {
	StopID string  `json:"stopId"`
	Name   string  `json:"name"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

// NearbyStop is a StopSummary with its distance in meters from the query point.
type NearbyStop struct {
	StopSummary
	Distance float64 `json:"distance"`
}

type ArrivalPrediction struct {
	TripID           string    `json:"tripId"`
	RouteID          string    `json:"routeId"`
	StopID           string    `json:"stopId"`
	Headsign         string    `json:"headsign,omitempty"`
	ScheduledArrival time.Time `json:"scheduledArrival"`
	ArrivalTime      time.Time `json:"arrivalTime"`
	DelaySeconds     int       `json:"delaySec"`
	Predicted        bool      `json:"predicted"`
}

type VehicleSummary struct {
	VehicleID string    `json:"vehicleId"`
	TripID    string    `json:"tripId,omitempty"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Bearing   *float64  `json:"bearing"`
	SpeedMPS  *float64  `json:"speedMps"`
	Occupancy string    `json:"occupancy,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type AlertSummary struct {
	ID             string         `json:"id"`
	RouteID        *string        `json:"routeId"`
	AffectedRoutes []string       `json:"affectedRoutes"`
	Header         string         `json:"header"`
	Description    string         `json:"description"`
	Severity       string         `json:"severity"`
	ActiveWindows  []ActiveWindow `json:"activeWindows"`
}

// ActiveWindow bounds are Unix milliseconds; 0 means open-ended.
type ActiveWindow struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

type RouteShape struct {
	ShapeID  string `json:"shapeId"`
	Polyline string `json:"polyline"`
	Points   int    `json:"points"`
}

type HealthStatus struct {
	Status            string     `json:"status"`
	Initialized       bool       `json:"initialized"`
	RoutesLoaded      int        `json:"routesLoaded"`
	StopsLoaded       int        `json:"stopsLoaded"`
	TripsLoaded       int        `json:"tripsLoaded"`
	StaticStatus      string     `json:"staticStatus"`
	StaticError       string     `json:"staticError,omitempty"`
	LastStaticUpdate  *time.Time `json:"lastStaticUpdate"`
	LastVehicleUpdate *time.Time `json:"lastVehicleUpdate"`
	LastTripUpdate    *time.Time `json:"lastTripUpdate"`
	LastAlertUpdate   *time.Time `json:"lastAlertUpdate"`
	ServerTime        time.Time  `json:"serverTime"`
}
