package restapi

import (
	"net/http"
	"strings"

	"catabus.org/transit/internal/arrivals"
	"catabus.org/transit/internal/models"
	"catabus.org/transit/internal/utils"
)

func (api *RestAPI) searchStopsHandler(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(q) > models.MaxSearchQueryLength {
		api.validationErrorResponse(w, r, map[string][]string{"q": {"query is too long"}})
		return
	}
	api.sendResponse(w, r, models.NewListResponse(api.Query.SearchStops(q), api.Clock))
}

func (api *RestAPI) stopsNearHandler(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	lat, fieldErrors := utils.ParseFloatParam(params, "lat", nil)
	lon, fieldErrors := utils.ParseFloatParam(params, "lon", fieldErrors)
	radius, fieldErrors := utils.ParseFloatParam(params, "radius", fieldErrors)

	for _, key := range []string{"lat", "lon"} {
		if params.Get(key) == "" {
			fieldErrors[key] = append(fieldErrors[key], key+" is required")
		}
	}
	if lat < -90 || lat > 90 {
		fieldErrors["lat"] = append(fieldErrors["lat"], "lat must be between -90 and 90")
	}
	if lon < -180 || lon > 180 {
		fieldErrors["lon"] = append(fieldErrors["lon"], "lon must be between -180 and 180")
	}
	if radius < 0 {
		fieldErrors["radius"] = append(fieldErrors["radius"], "radius must not be negative")
	}
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	api.sendResponse(w, r, models.NewListResponse(api.Query.StopsNear(lat, lon, radius), api.Clock))
}

// arrivalsForStopHandler predicts arrivals at a stop. horizon is in minutes and is clamped to
// the supported range.
func (api *RestAPI) arrivalsForStopHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if fieldErrors := validateID(id); fieldErrors != nil {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	horizon, fieldErrors := utils.ParseIntParam(r.URL.Query(), "horizon", arrivals.DefaultHorizonMinutes, nil)
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	predictions := api.Query.NextArrivals(id, arrivals.ClampHorizon(horizon))
	api.sendResponse(w, r, models.NewListResponse(predictions, api.Clock))
}
