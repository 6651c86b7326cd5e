package gtfs

import (
	"github.com/twpayne/go-polyline"
)

// ShapePolyline encodes a shape's points as a Google encoded polyline.
func (s *Static) ShapePolyline(shapeID string) (string, bool) {
	points, ok := s.Shapes[shapeID]
	if !ok || len(points) == 0 {
		return "", false
	}

	coords := make([][]float64, 0, len(points))
	for _, p := range points {
		coords = append(coords, []float64{p.Lat, p.Lon})
	}
	return string(polyline.EncodeCoords(coords)), true
}
