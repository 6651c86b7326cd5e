package realtime

import (
	"testing"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
)

func feedMessage(entities ...*gtfsrt.FeedEntity) *gtfsrt.FeedMessage {
	return &gtfsrt.FeedMessage{
		Header: &gtfsrt.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Timestamp:           proto.Uint64(1772460000),
		},
		Entity: entities,
	}
}

func marshalFeed(t *testing.T, msg *gtfsrt.FeedMessage) []byte {
	t.Helper()
	b, err := proto.MarshalOptions{AllowPartial: true}.Marshal(msg)
	require.NoError(t, err)
	return b
}

func vehicleEntity(entityID, vehicleID, tripID, routeID string, lat, lon float32) *gtfsrt.FeedEntity {
	v := &gtfsrt.VehiclePosition{
		Position:  &gtfsrt.Position{Latitude: proto.Float32(lat), Longitude: proto.Float32(lon)},
		Timestamp: proto.Uint64(1772460000),
	}
	if vehicleID != "" {
		v.Vehicle = &gtfsrt.VehicleDescriptor{Id: proto.String(vehicleID)}
	}
	if tripID != "" || routeID != "" {
		v.Trip = &gtfsrt.TripDescriptor{TripId: proto.String(tripID), RouteId: proto.String(routeID)}
	}
	return &gtfsrt.FeedEntity{Id: proto.String(entityID), Vehicle: v}
}

func tripUpdateEntity(tripID string, stus ...*gtfsrt.TripUpdate_StopTimeUpdate) *gtfsrt.FeedEntity {
	return &gtfsrt.FeedEntity{
		Id: proto.String("tu-" + tripID),
		TripUpdate: &gtfsrt.TripUpdate{
			Trip:           &gtfsrt.TripDescriptor{TripId: proto.String(tripID), RouteId: proto.String("N")},
			StopTimeUpdate: stus,
		},
	}
}

func delayUpdate(stopID string, delay int32) *gtfsrt.TripUpdate_StopTimeUpdate {
	return &gtfsrt.TripUpdate_StopTimeUpdate{
		StopId:  proto.String(stopID),
		Arrival: &gtfsrt.TripUpdate_StopTimeEvent{Delay: proto.Int32(delay)},
	}
}

func translated(pairs ...string) *gtfsrt.TranslatedString {
	ts := &gtfsrt.TranslatedString{}
	for i := 0; i+1 < len(pairs); i += 2 {
		tr := &gtfsrt.TranslatedString_Translation{Text: proto.String(pairs[i])}
		if pairs[i+1] != "" {
			tr.Language = proto.String(pairs[i+1])
		}
		ts.Translation = append(ts.Translation, tr)
	}
	return ts
}

func alertEntity(id string, routeIDs ...string) *gtfsrt.FeedEntity {
	alert := &gtfsrt.Alert{
		HeaderText:      translated("Detour", "en"),
		DescriptionText: translated("Route detoured around College Ave", "en"),
		SeverityLevel:   gtfsrt.Alert_WARNING.Enum(),
	}
	for _, r := range routeIDs {
		alert.InformedEntity = append(alert.InformedEntity, &gtfsrt.EntitySelector{RouteId: proto.String(r)})
	}
	return &gtfsrt.FeedEntity{Id: proto.String(id), Alert: alert}
}
