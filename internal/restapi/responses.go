package restapi

import (
	"encoding/json"
	"net/http"

	"catabus.org/transit/internal/logging"
	"catabus.org/transit/internal/models"
)

func (api *RestAPI) sendResponse(w http.ResponseWriter, r *http.Request, response models.ResponseModel) {
	status := response.Code
	if status == 0 {
		status = http.StatusOK
	}
	api.sendJSON(w, r, status, response)
}

func (api *RestAPI) sendJSON(w http.ResponseWriter, r *http.Request, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.LogError(logging.FromContext(r.Context()), "failed to encode response", err)
	}
}

// serverErrorResponse logs err and answers with a generic 500 envelope.
func (api *RestAPI) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	logging.LogError(logging.FromContext(r.Context()), "internal server error", err)
	response := models.NewResponse(http.StatusInternalServerError, nil, "internal server error", api.Clock)
	api.sendResponse(w, r, response)
}

func (api *RestAPI) validationErrorResponse(w http.ResponseWriter, r *http.Request, fieldErrors map[string][]string) {
	body := struct {
		models.ResponseModel
		FieldErrors map[string][]string `json:"fieldErrors"`
	}{
		ResponseModel: models.NewResponse(http.StatusBadRequest, nil, "validation error", api.Clock),
		FieldErrors:   fieldErrors,
	}
	api.sendJSON(w, r, http.StatusBadRequest, body)
}
