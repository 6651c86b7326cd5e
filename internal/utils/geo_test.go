package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	// Two points in downtown State College about 300 m apart.
	d := Distance(40.7982, -77.8599, 40.7964, -77.8627)
	assert.InDelta(t, 310, d, 60)

	assert.Zero(t, Distance(40.8, -77.86, 40.8, -77.86))
}

func TestCalculateBounds(t *testing.T) {
	lat, lon := 40.7934, -77.86
	bounds := CalculateBounds(lat, lon, 1000)

	assert.Less(t, bounds.MinLat, lat)
	assert.Greater(t, bounds.MaxLat, lat)
	assert.Less(t, bounds.MinLon, lon)
	assert.Greater(t, bounds.MaxLon, lon)

	// Every corner of the box is at least radius away along each axis.
	assert.GreaterOrEqual(t, Distance(lat, lon, bounds.MaxLat, lon), 999.0)
	assert.GreaterOrEqual(t, Distance(lat, lon, lat, bounds.MaxLon), 999.0)
}
