package gtfs

import (
	"sort"
	"time"

	"github.com/tidwall/rtree"
)

// DefaultRouteType is used when routes.txt leaves route_type empty (3 = bus).
const DefaultRouteType = 3

type Route struct {
	ID        string
	ShortName string
	LongName  string
	Type      int
	Color     string
	TextColor string
}

type Stop struct {
	ID   string
	Name string
	Lat  float64
	Lon  float64
	Code string
	Desc string
}

type Trip struct {
	ID          string
	RouteID     string
	ServiceID   string
	Headsign    string
	DirectionID int
	ShapeID     string
}

// StopTime is one scheduled visit of a trip to a stop. Arrival and departure keep the
// feed's day-relative strings, which may run past 24:00:00.
type StopTime struct {
	TripID        string
	ArrivalTime   string
	DepartureTime string
	StopID        string
	StopSequence  int
	PickupType    int
	DropOffType   int
}

type ShapePoint struct {
	Lat      float64
	Lon      float64
	Sequence int
}

// Static is an immutable, indexed GTFS schedule. Build it with NewStatic and never
// mutate it afterwards; readers share it without locking.
type Static struct {
	Routes    []Route
	Stops     []Stop
	Trips     []Trip
	StopTimes []StopTime
	Shapes    map[string][]ShapePoint

	routeByID       map[string]int
	stopByID        map[string]int
	tripByID        map[string]int
	stopTimesByStop map[string][]int
	stopTimesByTrip map[string][]int
	tripsByRoute    map[string][]int
	stopIndex       *rtree.RTree
}

// NewStatic indexes the given tables. Stop-times keep file order per stop and are
// ordered by stop_sequence per trip; shape points are ordered by sequence.
func NewStatic(routes []Route, stops []Stop, trips []Trip, stopTimes []StopTime, shapes map[string][]ShapePoint) *Static {
	if shapes == nil {
		shapes = map[string][]ShapePoint{}
	}
	s := &Static{
		Routes:          routes,
		Stops:           stops,
		Trips:           trips,
		StopTimes:       stopTimes,
		Shapes:          shapes,
		routeByID:       make(map[string]int, len(routes)),
		stopByID:        make(map[string]int, len(stops)),
		tripByID:        make(map[string]int, len(trips)),
		stopTimesByStop: make(map[string][]int),
		stopTimesByTrip: make(map[string][]int),
		tripsByRoute:    make(map[string][]int),
	}

	for i, r := range routes {
		s.routeByID[r.ID] = i
	}
	for i, st := range stops {
		s.stopByID[st.ID] = i
	}
	for i, t := range trips {
		s.tripByID[t.ID] = i
		s.tripsByRoute[t.RouteID] = append(s.tripsByRoute[t.RouteID], i)
	}
	for i, st := range stopTimes {
		s.stopTimesByStop[st.StopID] = append(s.stopTimesByStop[st.StopID], i)
		s.stopTimesByTrip[st.TripID] = append(s.stopTimesByTrip[st.TripID], i)
	}
	for _, idx := range s.stopTimesByTrip {
		sort.SliceStable(idx, func(a, b int) bool {
			return stopTimes[idx[a]].StopSequence < stopTimes[idx[b]].StopSequence
		})
	}
	for _, pts := range shapes {
		sort.SliceStable(pts, func(a, b int) bool { return pts[a].Sequence < pts[b].Sequence })
	}

	s.stopIndex = buildStopSpatialIndex(stops)
	return s
}

// EmptyStatic is the dataset served when no schedule could be loaded.
func EmptyStatic() *Static {
	return NewStatic(nil, nil, nil, nil, nil)
}

func (s *Static) Route(id string) (Route, bool) {
	i, ok := s.routeByID[id]
	if !ok {
		return Route{}, false
	}
	return s.Routes[i], true
}

func (s *Static) Stop(id string) (Stop, bool) {
	i, ok := s.stopByID[id]
	if !ok {
		return Stop{}, false
	}
	return s.Stops[i], true
}

func (s *Static) Trip(id string) (Trip, bool) {
	i, ok := s.tripByID[id]
	if !ok {
		return Trip{}, false
	}
	return s.Trips[i], true
}

// StopTimesForStop returns the stop's scheduled visits in feed order.
func (s *Static) StopTimesForStop(stopID string) []StopTime {
	return s.collectStopTimes(s.stopTimesByStop[stopID])
}

// StopTimesForTrip returns the trip's stop-times ordered by stop_sequence.
func (s *Static) StopTimesForTrip(tripID string) []StopTime {
	return s.collectStopTimes(s.stopTimesByTrip[tripID])
}

func (s *Static) collectStopTimes(idx []int) []StopTime {
	out := make([]StopTime, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.StopTimes[i])
	}
	return out
}

// TripsForRoute returns the route's trips in feed order.
func (s *Static) TripsForRoute(routeID string) []Trip {
	idx := s.tripsByRoute[routeID]
	out := make([]Trip, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.Trips[i])
	}
	return out
}

// ShapeIDsForRoute returns the distinct shape ids used by the route's trips, in first-seen order.
func (s *Static) ShapeIDsForRoute(routeID string) []string {
	seen := map[string]bool{}
	var ids []string
	for _, i := range s.tripsByRoute[routeID] {
		shapeID := s.Trips[i].ShapeID
		if shapeID == "" || seen[shapeID] {
			continue
		}
		seen[shapeID] = true
		ids = append(ids, shapeID)
	}
	return ids
}

// Summary counts the loaded entities.
type Summary struct {
	Routes    int
	Stops     int
	Trips     int
	StopTimes int
	Shapes    int
}

func (s *Static) Summary() Summary {
	return Summary{
		Routes:    len(s.Routes),
		Stops:     len(s.Stops),
		Trips:     len(s.Trips),
		StopTimes: len(s.StopTimes),
		Shapes:    len(s.Shapes),
	}
}

// LoadStatus distinguishes a successful static load from a degraded one.
type LoadStatus int

const (
	LoadOK LoadStatus = iota
	LoadDegraded
)

func (s LoadStatus) String() string {
	if s == LoadOK {
		return "ok"
	}
	return "degraded"
}

// LoadResult is the outcome of one static load attempt. Static is never nil: a degraded
// result carries either the previously loaded dataset or an empty one, plus the cause.
type LoadResult struct {
	Static   *Static
	Status   LoadStatus
	Err      error
	LoadedAt time.Time
}

func (r LoadResult) Degraded() bool {
	return r.Status == LoadDegraded
}
