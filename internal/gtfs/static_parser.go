package gtfs

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zip"
)

var (
	errMissingColumn = errors.New("required column missing")
	errEmptyValue    = errors.New("required value empty")
	errMissingFile   = errors.New("required file missing from archive")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseStatic parses a GTFS zip archive. routes.txt, stops.txt, trips.txt and
// stop_times.txt are required; shapes.txt is optional. Any malformed row fails the whole parse.
func ParseStatic(data []byte) (*Static, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("error opening GTFS archive: %w", err)
	}

	files := make(map[string]*zip.File, len(archive.File))
	for _, f := range archive.File {
		files[strings.ToLower(path.Base(f.Name))] = f
	}

	routes, err := parseRoutes(files)
	if err != nil {
		return nil, err
	}
	stops, err := parseStops(files)
	if err != nil {
		return nil, err
	}
	trips, err := parseTrips(files)
	if err != nil {
		return nil, err
	}
	stopTimes, err := parseStopTimes(files)
	if err != nil {
		return nil, err
	}
	shapes, err := parseShapes(files)
	if err != nil {
		return nil, err
	}

	return NewStatic(routes, stops, trips, stopTimes, shapes), nil
}

// csvRow gives header-indexed access to one record.
type csvRow struct {
	file   string
	line   int
	header map[string]int
	record []string
}

func (r csvRow) get(column string) string {
	i, ok := r.header[column]
	if !ok || i >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[i])
}

func (r csvRow) parseErr(column string, err error) error {
	return &ParseError{File: r.file, Line: r.line, Field: column, Value: r.get(column), Err: err}
}

func (r csvRow) required(column string) (string, error) {
	v := r.get(column)
	if v == "" {
		return "", r.parseErr(column, errEmptyValue)
	}
	return v, nil
}

func (r csvRow) float(column string) (float64, error) {
	v, err := r.required(column)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, r.parseErr(column, err)
	}
	return f, nil
}

func (r csvRow) intOr(column string, def int) (int, error) {
	v := r.get(column)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, r.parseErr(column, err)
	}
	return n, nil
}

func (r csvRow) requiredInt(column string) (int, error) {
	if _, err := r.required(column); err != nil {
		return 0, err
	}
	return r.intOr(column, 0)
}

// forEachRow streams a CSV table, stripping a UTF-8 BOM and mapping columns by header name.
func forEachRow(files map[string]*zip.File, name string, required bool, columns []string, fn func(csvRow) error) error {
	f, ok := files[name]
	if !ok {
		if required {
			return &ParseError{File: name, Err: errMissingFile}
		}
		return nil
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("error opening %s: %w", name, err)
	}
	defer func() { _ = rc.Close() }()

	br := bufio.NewReader(rc)
	if prefix, _ := br.Peek(len(utf8BOM)); bytes.Equal(prefix, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headerRecord, err := reader.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return &ParseError{File: name, Line: 1, Err: err}
	}

	header := make(map[string]int, len(headerRecord))
	for i, col := range headerRecord {
		header[strings.TrimSpace(col)] = i
	}
	for _, col := range columns {
		if _, ok := header[col]; !ok {
			return &ParseError{File: name, Line: 1, Field: col, Err: errMissingColumn}
		}
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			var csvErr *csv.ParseError
			line := 0
			if errors.As(err, &csvErr) {
				line = csvErr.Line
			}
			return &ParseError{File: name, Line: line, Err: err}
		}
		line, _ := reader.FieldPos(0)
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		if err := fn(csvRow{file: name, line: line, header: header, record: record}); err != nil {
			return err
		}
	}
}

func parseRoutes(files map[string]*zip.File) ([]Route, error) {
	var routes []Route
	err := forEachRow(files, "routes.txt", true, []string{"route_id"}, func(r csvRow) error {
		id, err := r.required("route_id")
		if err != nil {
			return err
		}
		routeType, err := r.intOr("route_type", DefaultRouteType)
		if err != nil {
			return err
		}
		routes = append(routes, Route{
			ID:        id,
			ShortName: r.get("route_short_name"),
			LongName:  r.get("route_long_name"),
			Type:      routeType,
			Color:     r.get("route_color"),
			TextColor: r.get("route_text_color"),
		})
		return nil
	})
	return routes, err
}

func parseStops(files map[string]*zip.File) ([]Stop, error) {
	var stops []Stop
	err := forEachRow(files, "stops.txt", true, []string{"stop_id"}, func(r csvRow) error {
		id, err := r.required("stop_id")
		if err != nil {
			return err
		}
		// Generic nodes and boarding areas may omit coordinates; they are not servable stops.
		if locType := r.get("location_type"); (locType == "3" || locType == "4") && r.get("stop_lat") == "" {
			return nil
		}
		lat, err := r.float("stop_lat")
		if err != nil {
			return err
		}
		lon, err := r.float("stop_lon")
		if err != nil {
			return err
		}
		stops = append(stops, Stop{
			ID:   id,
			Name: r.get("stop_name"),
			Lat:  lat,
			Lon:  lon,
			Code: r.get("stop_code"),
			Desc: r.get("stop_desc"),
		})
		return nil
	})
	return stops, err
}

func parseTrips(files map[string]*zip.File) ([]Trip, error) {
	var trips []Trip
	err := forEachRow(files, "trips.txt", true, []string{"trip_id", "route_id"}, func(r csvRow) error {
		id, err := r.required("trip_id")
		if err != nil {
			return err
		}
		routeID, err := r.required("route_id")
		if err != nil {
			return err
		}
		direction, err := r.intOr("direction_id", 0)
		if err != nil {
			return err
		}
		trips = append(trips, Trip{
			ID:          id,
			RouteID:     routeID,
			ServiceID:   r.get("service_id"),
			Headsign:    r.get("trip_headsign"),
			DirectionID: direction,
			ShapeID:     r.get("shape_id"),
		})
		return nil
	})
	return trips, err
}

func parseStopTimes(files map[string]*zip.File) ([]StopTime, error) {
	var stopTimes []StopTime
	columns := []string{"trip_id", "stop_id", "stop_sequence", "arrival_time"}
	err := forEachRow(files, "stop_times.txt", true, columns, func(r csvRow) error {
		tripID, err := r.required("trip_id")
		if err != nil {
			return err
		}
		stopID, err := r.required("stop_id")
		if err != nil {
			return err
		}
		seq, err := r.requiredInt("stop_sequence")
		if err != nil {
			return err
		}
		// Non-timepoint rows may leave times empty; anything present must be well formed.
		for _, col := range []string{"arrival_time", "departure_time"} {
			if v := r.get(col); v != "" {
				if _, err := ParseGTFSTime(v); err != nil {
					return r.parseErr(col, errors.Unwrap(err))
				}
			}
		}
		pickup, err := r.intOr("pickup_type", 0)
		if err != nil {
			return err
		}
		dropOff, err := r.intOr("drop_off_type", 0)
		if err != nil {
			return err
		}
		stopTimes = append(stopTimes, StopTime{
			TripID:        tripID,
			ArrivalTime:   r.get("arrival_time"),
			DepartureTime: r.get("departure_time"),
			StopID:        stopID,
			StopSequence:  seq,
			PickupType:    pickup,
			DropOffType:   dropOff,
		})
		return nil
	})
	return stopTimes, err
}

func parseShapes(files map[string]*zip.File) (map[string][]ShapePoint, error) {
	shapes := map[string][]ShapePoint{}
	columns := []string{"shape_id", "shape_pt_lat", "shape_pt_lon", "shape_pt_sequence"}
	err := forEachRow(files, "shapes.txt", false, columns, func(r csvRow) error {
		id, err := r.required("shape_id")
		if err != nil {
			return err
		}
		lat, err := r.float("shape_pt_lat")
		if err != nil {
			return err
		}
		lon, err := r.float("shape_pt_lon")
		if err != nil {
			return err
		}
		seq, err := r.requiredInt("shape_pt_sequence")
		if err != nil {
			return err
		}
		shapes[id] = append(shapes[id], ShapePoint{Lat: lat, Lon: lon, Sequence: seq})
		return nil
	})
	return shapes, err
}
