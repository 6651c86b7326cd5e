package restapi

import (
	"net/http"
	"strconv"

	"catabus.org/transit/internal/models"
)

// alertsHandler lists service alerts, optionally narrowed to one route (routeId) and to those
// currently in effect (active=true).
func (api *RestAPI) alertsHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	routeID := query.Get("routeId")
	if routeID != "" {
		if fieldErrors := validateID(routeID); fieldErrors != nil {
			api.validationErrorResponse(w, r, map[string][]string{"routeId": fieldErrors["id"]})
			return
		}
	}

	activeOnly := false
	if raw := query.Get("active"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			api.validationErrorResponse(w, r, map[string][]string{"active": {"must be true or false"}})
			return
		}
		activeOnly = parsed
	}

	alerts := api.Query.TripAlerts(routeID, activeOnly)
	api.sendResponse(w, r, models.NewListResponse(alerts, api.Clock))
}
