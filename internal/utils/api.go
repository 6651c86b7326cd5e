package utils

import (
	"log/slog"
	"math"
	"net/url"
	"strconv"
	"time"
)

// ParseFloatParam reads key from params as a float64. Missing or empty values return 0 with no
// error; unparsable and non-finite values are recorded in fieldErrors, which is allocated if nil
// and returned.
func ParseFloatParam(params url.Values, key string, fieldErrors map[string][]string) (float64, map[string][]string) {
	if fieldErrors == nil {
		fieldErrors = make(map[string][]string)
	}

	raw := params.Get(key)
	if raw == "" {
		return 0, fieldErrors
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		fieldErrors[key] = append(fieldErrors[key], "Invalid field value for field \""+key+"\".")
		return 0, fieldErrors
	}
	return value, fieldErrors
}

// ParseIntParam is ParseFloatParam for integers; missing values return defaultValue.
func ParseIntParam(params url.Values, key string, defaultValue int, fieldErrors map[string][]string) (int, map[string][]string) {
	if fieldErrors == nil {
		fieldErrors = make(map[string][]string)
	}

	raw := params.Get(key)
	if raw == "" {
		return defaultValue, fieldErrors
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		fieldErrors[key] = append(fieldErrors[key], "Invalid field value for field \""+key+"\".")
		return defaultValue, fieldErrors
	}
	return value, fieldErrors
}

// LoadLocationWithUTCFallBack loads timezone, falling back to UTC with a warning.
func LoadLocationWithUTCFallBack(timezone string, source string) *time.Location {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		slog.Warn("invalid timezone, falling back to UTC",
			slog.String("timezone", timezone),
			slog.String("source", source),
			slog.String("error", err.Error()))
		return time.UTC
	}
	return loc
}
