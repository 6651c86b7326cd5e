package restapi

import (
	"net/http"

	"catabus.org/transit/internal/models"
)

// healthHandler always answers 200 so a degraded instance keeps serving realtime data;
// the body carries the status.
func (api *RestAPI) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := models.NewEntryResponse(api.Query.Health(), api.Clock)
	api.sendResponse(w, r, response)
}
