package restapi

import (
	"net/http"

	"catabus.org/transit/internal/models"
)

func (api *RestAPI) listRoutesHandler(w http.ResponseWriter, r *http.Request) {
	api.sendResponse(w, r, models.NewListResponse(api.Query.ListRoutes(), api.Clock))
}

func (api *RestAPI) vehiclesForRouteHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if fieldErrors := validateID(id); fieldErrors != nil {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}
	api.sendResponse(w, r, models.NewListResponse(api.Query.VehiclePositions(id), api.Clock))
}

func (api *RestAPI) shapesForRouteHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if fieldErrors := validateID(id); fieldErrors != nil {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}
	api.sendResponse(w, r, models.NewListResponse(api.Query.RouteShapes(id), api.Clock))
}
