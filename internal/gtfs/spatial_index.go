package gtfs

import (
	"sort"

	"catabus.org/transit/internal/utils"

	"github.com/tidwall/rtree"
)

// buildStopSpatialIndex creates an R-tree over stop coordinates; entries hold stop indices.
func buildStopSpatialIndex(stops []Stop) *rtree.RTree {
	tree := &rtree.RTree{}

	// For points, min and max are the same [lat, lon]
	for i, stop := range stops {
		point := [2]float64{stop.Lat, stop.Lon}
		tree.Insert(point, point, i)
	}

	return tree
}

// queryStopsInBounds returns the stops inside the bounding box, in index order.
func (s *Static) queryStopsInBounds(bounds utils.CoordinateBounds) []Stop {
	if s.stopIndex == nil {
		return []Stop{}
	}

	minLat := min(bounds.MinLat, bounds.MaxLat)
	maxLat := max(bounds.MinLat, bounds.MaxLat)
	minLon := min(bounds.MinLon, bounds.MaxLon)
	maxLon := max(bounds.MinLon, bounds.MaxLon)

	var results []Stop
	s.stopIndex.Search(
		[2]float64{minLat, minLon},
		[2]float64{maxLat, maxLon},
		func(_, _ [2]float64, data interface{}) bool {
			if i, ok := data.(int); ok {
				results = append(results, s.Stops[i])
			}
			return true
		},
	)
	return results
}

// StopWithDistance pairs a stop with its distance from a query point.
type StopWithDistance struct {
	Stop     Stop
	Distance float64
}

// StopsNear returns stops within radiusMeters of (lat, lon), nearest first.
func (s *Static) StopsNear(lat, lon, radiusMeters float64) []StopWithDistance {
	candidates := s.queryStopsInBounds(utils.CalculateBounds(lat, lon, radiusMeters))

	results := make([]StopWithDistance, 0, len(candidates))
	for _, stop := range candidates {
		d := utils.Distance(lat, lon, stop.Lat, stop.Lon)
		if d <= radiusMeters {
			results = append(results, StopWithDistance{Stop: stop, Distance: d})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Distance == results[j].Distance {
			return results[i].Stop.ID < results[j].Stop.ID
		}
		return results[i].Distance < results[j].Distance
	})
	return results
}
