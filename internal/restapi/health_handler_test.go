package restapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catabus.org/transit/internal/models"
	"catabus.org/transit/internal/realtime"
)

func decodeHealth(t *testing.T, model testResponse) models.HealthStatus {
	t.Helper()
	var data struct {
		Entry models.HealthStatus `json:"entry"`
	}
	require.NoError(t, json.Unmarshal(model.Data, &data))
	return data.Entry
}

func TestHealthHandler(t *testing.T) {
	api := createTestApi(t)
	api.Snapshot.PublishVehicles(map[string]realtime.VehiclePosition{}, api.Clock.Now())

	resp, model := serveApiAndRetrieveEndpoint(t, api, "/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	health := decodeHealth(t, model)
	assert.Equal(t, models.HealthOK, health.Status)
	assert.True(t, health.Initialized)
	assert.Equal(t, 2, health.RoutesLoaded)
	assert.Equal(t, 3, health.StopsLoaded)
	assert.Equal(t, 3, health.TripsLoaded)
	require.NotNil(t, health.LastVehicleUpdate)
	assert.Nil(t, health.LastTripUpdate)
	assert.Nil(t, health.LastAlertUpdate)
}

func TestHealthHandlerIsNotRateLimited(t *testing.T) {
	api := NewRestAPI(createTestApp(t, 1))
	defer api.Shutdown()

	for i := 0; i < 5; i++ {
		resp, _ := serveApiAndRetrieveEndpoint(t, api, "/healthz")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
}
