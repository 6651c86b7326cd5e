package realtime

import (
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

const preferredLanguage = "en"

// Feeds in the wild routinely omit proto2 required fields; they are tolerated here and
// presence is checked field by field during translation.
var unmarshalOptions = proto.UnmarshalOptions{AllowPartial: true}

// Decode parses a GTFS-realtime FeedMessage. url only labels the error.
func Decode(url string, payload []byte) (*gtfsrt.FeedMessage, error) {
	msg := &gtfsrt.FeedMessage{}
	if err := unmarshalOptions.Unmarshal(payload, msg); err != nil {
		return nil, &DecodeError{URL: url, Err: err}
	}
	return msg, nil
}

// TranslateVehicles converts vehicle entities. Entities without a position are skipped and the
// vehicle id falls back to the entity id. Later entities replace earlier ones with the same id.
func TranslateVehicles(msg *gtfsrt.FeedMessage) map[string]VehiclePosition {
	vehicles := make(map[string]VehiclePosition)
	for _, entity := range msg.GetEntity() {
		v := entity.GetVehicle()
		if v == nil || v.GetPosition() == nil {
			continue
		}

		id := v.GetVehicle().GetId()
		if id == "" {
			id = entity.GetId()
		}
		if id == "" {
			continue
		}

		pos := v.GetPosition()
		vp := VehiclePosition{
			VehicleID: id,
			TripID:    v.GetTrip().GetTripId(),
			RouteID:   v.GetTrip().GetRouteId(),
			Lat:       float64(pos.GetLatitude()),
			Lon:       float64(pos.GetLongitude()),
			Timestamp: unixTime(v.GetTimestamp()),
		}
		if pos.Bearing != nil {
			bearing := float64(*pos.Bearing)
			vp.Bearing = &bearing
		}
		if pos.Speed != nil {
			speed := float64(*pos.Speed)
			vp.SpeedMPS = &speed
		}
		if v.OccupancyStatus != nil {
			vp.Occupancy = OccupancyFromCode(int32(*v.OccupancyStatus))
		}
		vehicles[id] = vp
	}
	return vehicles
}

// TranslateTripUpdates converts trip-update entities keyed by trip id. A missing timestamp
// becomes receivedAt; updates without a trip id are skipped.
func TranslateTripUpdates(msg *gtfsrt.FeedMessage, receivedAt time.Time) map[string]TripUpdate {
	updates := make(map[string]TripUpdate)
	for _, entity := range msg.GetEntity() {
		tu := entity.GetTripUpdate()
		if tu == nil {
			continue
		}
		tripID := tu.GetTrip().GetTripId()
		if tripID == "" {
			continue
		}

		update := TripUpdate{
			TripID:          tripID,
			RouteID:         tu.GetTrip().GetRouteId(),
			VehicleID:       tu.GetVehicle().GetId(),
			Timestamp:       receivedAt,
			StopTimeUpdates: make([]StopTimeUpdate, 0, len(tu.GetStopTimeUpdate())),
		}
		if tu.Timestamp != nil {
			update.Timestamp = unixTime(*tu.Timestamp)
		}

		for _, stu := range tu.GetStopTimeUpdate() {
			out := StopTimeUpdate{
				StopID:    stu.GetStopId(),
				Arrival:   translateEvent(stu.GetArrival()),
				Departure: translateEvent(stu.GetDeparture()),
			}
			if stu.StopSequence != nil {
				seq := *stu.StopSequence
				out.StopSequence = &seq
			}
			update.StopTimeUpdates = append(update.StopTimeUpdates, out)
		}
		updates[tripID] = update
	}
	return updates
}

func translateEvent(event *gtfsrt.TripUpdate_StopTimeEvent) *StopTimeEvent {
	if event == nil {
		return nil
	}
	out := &StopTimeEvent{}
	if event.Delay != nil {
		delay := *event.Delay
		out.Delay = &delay
	}
	if event.Time != nil {
		t := time.Unix(*event.Time, 0).UTC()
		out.Time = &t
	}
	return out
}

// TranslateAlerts converts alert entities in feed order.
func TranslateAlerts(msg *gtfsrt.FeedMessage) []ServiceAlert {
	alerts := []ServiceAlert{}
	for _, entity := range msg.GetEntity() {
		a := entity.GetAlert()
		if a == nil {
			continue
		}

		alert := ServiceAlert{
			ID:               entity.GetId(),
			Header:           selectTranslation(a.GetHeaderText(), preferredLanguage),
			Description:      selectTranslation(a.GetDescriptionText(), preferredLanguage),
			Severity:         SeverityUnknown,
			ActivePeriods:    make([]ActivePeriod, 0, len(a.GetActivePeriod())),
			InformedEntities: make([]InformedEntity, 0, len(a.GetInformedEntity())),
		}
		if a.SeverityLevel != nil {
			alert.Severity = SeverityFromCode(int32(*a.SeverityLevel))
		}

		for _, period := range a.GetActivePeriod() {
			var p ActivePeriod
			if period.Start != nil {
				start := unixTime(*period.Start)
				p.Start = &start
			}
			if period.End != nil {
				end := unixTime(*period.End)
				p.End = &end
			}
			alert.ActivePeriods = append(alert.ActivePeriods, p)
		}

		for _, ie := range a.GetInformedEntity() {
			var e InformedEntity
			if ie.RouteId != nil {
				e.RouteID = proto.String(*ie.RouteId)
			}
			if trip := ie.GetTrip(); trip != nil && trip.TripId != nil {
				e.TripID = proto.String(*trip.TripId)
			}
			if ie.StopId != nil {
				e.StopID = proto.String(*ie.StopId)
			}
			alert.InformedEntities = append(alert.InformedEntities, e)
		}
		alerts = append(alerts, alert)
	}
	return alerts
}

// selectTranslation picks the first translation in lang, else the first translation, else "".
func selectTranslation(ts *gtfsrt.TranslatedString, lang string) string {
	translations := ts.GetTranslation()
	for _, t := range translations {
		if t.GetLanguage() == lang {
			return t.GetText()
		}
	}
	if len(translations) > 0 {
		return translations[0].GetText()
	}
	return ""
}

func unixTime(seconds uint64) time.Time {
	if seconds == 0 {
		return time.Time{}
	}
	return time.Unix(int64(seconds), 0).UTC()
}
