package gtfs

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// DefaultServiceTimezone is the timezone CATA publishes its schedule in.
const DefaultServiceTimezone = "America/New_York"

var errTimeFormat = errors.New("expected H:MM:SS")

// ParseGTFSTime parses a day-relative GTFS time such as "08:15:00" or "25:30:00"
// into an offset from the start of the service day. Hours may exceed 23.
func ParseGTFSTime(s string) (time.Duration, error) {
	h, m, sec, err := splitGTFSTime(s)
	if err != nil {
		return 0, err
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second, nil
}

func splitGTFSTime(s string) (hours, minutes, seconds int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, 0, 0, &ParseError{Field: "time", Value: s, Err: errTimeFormat}
	}

	values := [3]int{}
	for i, part := range parts {
		if part == "" || len(part) > 3 || (i > 0 && len(part) != 2) {
			return 0, 0, 0, &ParseError{Field: "time", Value: s, Err: errTimeFormat}
		}
		n, convErr := strconv.Atoi(part)
		if convErr != nil || n < 0 {
			return 0, 0, 0, &ParseError{Field: "time", Value: s, Err: errTimeFormat}
		}
		values[i] = n
	}

	if values[1] > 59 || values[2] > 59 {
		return 0, 0, 0, &ParseError{Field: "time", Value: s, Err: errors.New("minutes and seconds must be 00-59")}
	}
	return values[0], values[1], values[2], nil
}

// ResolveServiceTime anchors a day-relative GTFS time to the calendar date of serviceDate
// (as written, not converted to loc) and interprets the wall time in loc.
// Hours past 23 roll onto following calendar days: "25:30:00" on D is D+1 01:30:00 local.
func ResolveServiceTime(s string, serviceDate time.Time, loc *time.Location) (time.Time, error) {
	h, m, sec, err := splitGTFSTime(s)
	if err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = time.UTC
	}

	dayOffset := h / 24
	wallHour := h % 24
	y, mo, d := serviceDate.Date()
	return time.Date(y, mo, d+dayOffset, wallHour, m, sec, 0, loc), nil
}

// ServiceDate returns midnight of now's calendar date in loc.
func ServiceDate(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// LoadServiceLocation loads the named IANA zone, defaulting to DefaultServiceTimezone.
func LoadServiceLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultServiceTimezone
	}
	return time.LoadLocation(name)
}
