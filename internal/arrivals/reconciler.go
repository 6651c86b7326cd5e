// Package arrivals merges the static schedule with realtime trip updates into ranked
// arrival predictions for a stop.
package arrivals

import (
	"log/slog"
	"sort"
	"time"

	"catabus.org/transit/internal/clock"
	"catabus.org/transit/internal/gtfs"
	"catabus.org/transit/internal/realtime"
)

const (
	DefaultHorizonMinutes = 30
	MaxHorizonMinutes     = 1440
)

// ScheduleSource supplies the static dataset currently in service.
type ScheduleSource interface {
	Current() *gtfs.Static
}

// TripUpdateSource supplies the latest realtime update for a trip.
type TripUpdateSource interface {
	TripUpdate(tripID string) (realtime.TripUpdate, bool)
}

// Prediction is one upcoming arrival of a trip at a stop.
type Prediction struct {
	TripID           string
	RouteID          string
	StopID           string
	Headsign         string
	ScheduledArrival time.Time
	PredictedArrival time.Time
	DelaySeconds     int
	Realtime         bool
}

// Reconciler produces arrival predictions from the schedule and the latest trip updates.
type Reconciler struct {
	schedule ScheduleSource
	updates  TripUpdateSource
	clock    clock.Clock
	location *time.Location
	logger   *slog.Logger
}

// NewReconciler returns a reconciler evaluating service days in loc (UTC when nil).
func NewReconciler(schedule ScheduleSource, updates TripUpdateSource, clk clock.Clock, loc *time.Location, logger *slog.Logger) *Reconciler {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		schedule: schedule,
		updates:  updates,
		clock:    clk,
		location: loc,
		logger:   logger.With(slog.String("component", "arrival_reconciler")),
	}
}

// ClampHorizon maps a requested horizon onto the supported range.
func ClampHorizon(minutes int) int {
	switch {
	case minutes <= 0:
		return DefaultHorizonMinutes
	case minutes > MaxHorizonMinutes:
		return MaxHorizonMinutes
	default:
		return minutes
	}
}

type candidate struct {
	trip      gtfs.Trip
	scheduled time.Time
}

// NextArrivals predicts arrivals at stopID from now through now+horizonMinutes, both ends
// inclusive, ordered by predicted time. Trips after midnight that belong to the previous
// service day are included. An unknown stop yields an empty slice.
func (r *Reconciler) NextArrivals(stopID string, horizonMinutes int) []Prediction {
	now := r.clock.Now().In(r.location)
	horizon := now.Add(time.Duration(ClampHorizon(horizonMinutes)) * time.Minute)

	candidates := r.scheduledInWindow(stopID, now, horizon)

	predictions := make([]Prediction, 0, len(candidates))
	for _, c := range candidates {
		p := Prediction{
			TripID:           c.trip.ID,
			RouteID:          c.trip.RouteID,
			StopID:           stopID,
			Headsign:         c.trip.Headsign,
			ScheduledArrival: c.scheduled,
			PredictedArrival: c.scheduled,
		}
		if update, ok := r.updates.TripUpdate(c.trip.ID); ok {
			if stu, ok := update.StopTimeUpdate(stopID); ok {
				if predicted, delay, ok := stu.Arrival.Resolve(c.scheduled); ok {
					p.PredictedArrival = predicted.In(r.location)
					p.DelaySeconds = delay
					p.Realtime = true
				}
			}
		}
		predictions = append(predictions, p)
	}

	sort.SliceStable(predictions, func(i, j int) bool {
		return predictions[i].PredictedArrival.Before(predictions[j].PredictedArrival)
	})
	return predictions
}

// scheduledInWindow resolves the stop's stop-times against yesterday's and today's service
// dates and keeps those inside [now, horizon] whose trip is known. A trip contributes one
// visit: the previous service date's run wins over today's, and within a date the first
// visit in feed order wins.
func (r *Reconciler) scheduledInWindow(stopID string, now, horizon time.Time) []candidate {
	static := r.schedule.Current()
	stopTimes := static.StopTimesForStop(stopID)
	if len(stopTimes) == 0 {
		return nil
	}

	today := gtfs.ServiceDate(now, r.location)
	serviceDates := []time.Time{today.AddDate(0, 0, -1), today}

	seen := make(map[string]bool)

	var out []candidate
	for i, date := range serviceDates {
		previousDay := i == 0
		for _, st := range stopTimes {
			if st.ArrivalTime == "" {
				continue
			}
			offset, err := gtfs.ParseGTFSTime(st.ArrivalTime)
			if err != nil {
				r.logger.Debug("skipping unparseable stop time",
					slog.String("trip_id", st.TripID), slog.String("arrival_time", st.ArrivalTime))
				continue
			}
			if previousDay && offset < 24*time.Hour {
				continue
			}

			scheduled, err := gtfs.ResolveServiceTime(st.ArrivalTime, date, r.location)
			if err != nil || scheduled.Before(now) || scheduled.After(horizon) {
				continue
			}

			if seen[st.TripID] {
				continue
			}
			trip, ok := static.Trip(st.TripID)
			if !ok {
				continue
			}
			seen[st.TripID] = true
			out = append(out, candidate{trip: trip, scheduled: scheduled})
		}
	}
	return out
}
