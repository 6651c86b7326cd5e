package restapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"catabus.org/transit/internal/app"
	"catabus.org/transit/internal/appconf"
	"catabus.org/transit/internal/arrivals"
	"catabus.org/transit/internal/clock"
	"catabus.org/transit/internal/gtfs"
	"catabus.org/transit/internal/metrics"
	"catabus.org/transit/internal/query"
	"catabus.org/transit/internal/realtime"
)

var samplePath = filepath.Join("..", "..", "testdata", "cata_sample.zip")

// testNow is a Monday morning in State College; the sample feed's trips run shortly after it.
func testNow(t *testing.T) time.Time {
	t.Helper()
	loc, err := gtfs.LoadServiceLocation("America/New_York")
	require.NoError(t, err)
	return time.Date(2024, 3, 4, 8, 0, 0, 0, loc)
}

func createTestApp(t *testing.T, rateLimit int) *app.Application {
	t.Helper()
	now := testNow(t)
	clk := clock.NewMockClock(now)

	gtfsCfg := gtfs.Config{StaticURL: samplePath, Timezone: "America/New_York", Env: appconf.Test}
	manager := gtfs.NewManager(gtfsCfg, nil, clk)
	result := manager.Load(context.Background())
	require.Equal(t, gtfs.LoadOK, result.Status, "sample feed should load: %v", result.Err)
	t.Cleanup(manager.Shutdown)

	snapshot := realtime.NewSnapshot()
	reconciler := arrivals.NewReconciler(manager, snapshot, clk, now.Location(), nil)

	return &app.Application{
		Config:        appconf.Config{Port: 4000, Env: appconf.Test, RateLimit: rateLimit},
		GtfsConfig:    gtfsCfg,
		StaticManager: manager,
		Snapshot:      snapshot,
		Reconciler:    reconciler,
		Query:         query.NewService(manager, snapshot, reconciler, clk),
		Metrics:       metrics.NewCollector(),
		Clock:         clk,
	}
}

func createTestApi(t *testing.T) *RestAPI {
	t.Helper()
	api := NewRestAPI(createTestApp(t, 100))
	t.Cleanup(api.Shutdown)
	return api
}

type listData struct {
	List json.RawMessage `json:"list"`
}

type testResponse struct {
	Code        int                 `json:"code"`
	CurrentTime int64               `json:"currentTime"`
	Text        string              `json:"text"`
	Version     int                 `json:"version"`
	Data        json.RawMessage     `json:"data"`
	FieldErrors map[string][]string `json:"fieldErrors"`
}

// serveApiAndRetrieveEndpoint runs the full routed handler behind an httptest server.
func serveApiAndRetrieveEndpoint(t *testing.T, api *RestAPI, endpoint string) (*http.Response, testResponse) {
	t.Helper()
	server := httptest.NewServer(api.SetupAPIRoutes())
	defer server.Close()

	resp, err := http.Get(server.URL + endpoint)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var model testResponse
	if len(body) > 0 && resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(body, &model), "body: %s", body)
	}
	return resp, model
}

// decodeList unmarshals the envelope's data.list into out.
func decodeList(t *testing.T, model testResponse, out interface{}) {
	t.Helper()
	var data listData
	require.NoError(t, json.Unmarshal(model.Data, &data))
	require.NoError(t, json.Unmarshal(data.List, out))
}
