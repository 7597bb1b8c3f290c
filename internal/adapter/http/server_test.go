package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	httpadapter "github.com/couchcryptid/methane-encoder-service/internal/adapter/http"
	"github.com/couchcryptid/methane-encoder-service/internal/dataset"
	"github.com/couchcryptid/methane-encoder-service/internal/domain"
	"github.com/couchcryptid/methane-encoder-service/internal/observability"
	"github.com/couchcryptid/methane-encoder-service/internal/render"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, nil, discardLogger())
}

type apiFixture struct {
	srv       *httpadapter.Server
	store     *dataset.Store
	threshold *dataset.Threshold
}

func newAPIServer(t *testing.T) apiFixture {
	t.Helper()
	store := dataset.NewStore()
	store.Add(
		domain.EmissionRecord{ID: "fac-big", FacilityName: "Baytown Refinery", Longitude: -95.0108, Latitude: 29.745, MethaneTonsCO2e: 2268589, IndustryType: "Petroleum and Natural Gas Systems"},
		domain.EmissionRecord{ID: "fac-mid", FacilityName: "Scherer Plant", Longitude: -83.8065, Latitude: 33.0614, MethaneTonsCO2e: 40000, IndustryType: "Power Plants"},
		domain.EmissionRecord{ID: "fac-zero", FacilityName: "Closed Landfill", Longitude: -117.1, Latitude: 32.7, IndustryType: "Waste"},
	)
	cfg := domain.DefaultEncodingConfig()
	threshold := dataset.NewThreshold(cfg.LowerBound, cfg.DomainMin, cfg.DomainMax, nil)
	cache, err := render.NewCache(8, observability.NewMetricsForTesting())
	require.NoError(t, err)

	api := httpadapter.NewAPI(store, threshold, cache, cfg, nil, discardLogger())
	return apiFixture{
		srv:       httpadapter.NewServer(":0", store, api, discardLogger()),
		store:     store,
		threshold: threshold,
	}
}

func do(srv http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(method, target, r))
	return rec
}

func decodePoints(t *testing.T, rec *httptest.ResponseRecorder) *geojson.FeatureCollection {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code)
	fc, err := geojson.UnmarshalFeatureCollection(rec.Body.Bytes())
	require.NoError(t, err)
	return fc
}

func TestHealthzReturns200(t *testing.T) {
	rec := do(newTestServer(nil), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := do(newTestServer(nil), http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := do(newTestServer(fmt.Errorf("not ready yet")), http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReadyzEmptyDataset(t *testing.T) {
	store := dataset.NewStore()
	srv := httpadapter.NewServer(":0", store, nil, discardLogger())

	assert.Equal(t, http.StatusServiceUnavailable, do(srv, http.MethodGet, "/readyz", "").Code)

	store.Add(domain.EmissionRecord{ID: "fac-1"})
	assert.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/readyz", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(newTestServer(nil), http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestAPIRoutesAbsentWithoutAPI(t *testing.T) {
	rec := do(newTestServer(nil), http.MethodGet, "/api/points", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPoints_DefaultThreshold(t *testing.T) {
	f := newAPIServer(t)
	rec := do(f.srv, http.MethodGet, "/api/points", "")

	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("ETag"))

	fc := decodePoints(t, rec)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "fac-big", fc.Features[0].ID)
	assert.Equal(t, 25.0, fc.Features[0].Properties.MustFloat64("radius"))
}

func TestPoints_IncludeFiltered(t *testing.T) {
	f := newAPIServer(t)
	fc := decodePoints(t, do(f.srv, http.MethodGet, "/api/points?all=true", ""))

	require.Len(t, fc.Features, 3)
	assert.False(t, fc.Features[2].Properties.MustBool("passes_filter"))
}

func TestPoints_InvalidAll(t *testing.T) {
	f := newAPIServer(t)
	rec := do(f.srv, http.MethodGet, "/api/points?all=maybe", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPoints_NotModified(t *testing.T) {
	f := newAPIServer(t)
	first := do(f.srv, http.MethodGet, "/api/points", "")

	req := httptest.NewRequest(http.MethodGet, "/api/points", nil)
	req.Header.Set("If-None-Match", first.Header().Get("ETag"))
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.Bytes())
}

func TestThreshold_PutFiltersPoints(t *testing.T) {
	f := newAPIServer(t)
	etagBefore := do(f.srv, http.MethodGet, "/api/points", "").Header().Get("ETag")

	rec := do(f.srv, http.MethodPut, "/api/threshold", `{"lower_bound": 500000}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 500000.0, body["lower_bound"])
	assert.Equal(t, true, body["changed"])

	after := do(f.srv, http.MethodGet, "/api/points", "")
	assert.NotEqual(t, etagBefore, after.Header().Get("ETag"))
	fc := decodePoints(t, after)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "fac-big", fc.Features[0].ID)
}

func TestThreshold_PutClamps(t *testing.T) {
	f := newAPIServer(t)
	rec := do(f.srv, http.MethodPut, "/api/threshold", `{"lower_bound": 1e12}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 2268589.0, f.threshold.Get())
}

func TestThreshold_PutSameValue(t *testing.T) {
	f := newAPIServer(t)
	rec := do(f.srv, http.MethodPut, "/api/threshold", `{"lower_bound": 1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["changed"])
}

func TestThreshold_PutInvalid(t *testing.T) {
	f := newAPIServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"non-numeric", `{"lower_bound": "lots"}`},
		{"missing field", `{}`},
		{"malformed", `{lower_bound`},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(f.srv, http.MethodPut, "/api/threshold", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
	assert.Equal(t, 1.0, f.threshold.Get(), "rejected requests leave the threshold unchanged")
}

func TestThreshold_Get(t *testing.T) {
	f := newAPIServer(t)
	f.threshold.Set(1234)

	rec := do(f.srv, http.MethodGet, "/api/threshold", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1234.0, body["lower_bound"])
	assert.Equal(t, 1.0, body["min"])
	assert.Equal(t, 2268589.0, body["max"])
	assert.NotContains(t, body, "changed")
}

func TestFacility_Found(t *testing.T) {
	f := newAPIServer(t)
	rec := do(f.srv, http.MethodGet, "/api/facilities/fac-mid", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Record   domain.EmissionRecord `json:"record"`
		Encoding domain.EncodingResult `json:"encoding"`
		Details  string                `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Scherer Plant", body.Record.FacilityName)
	assert.Equal(t, domain.RGB{142, 154, 175}, body.Encoding.FillColor)
	assert.Equal(t, [2]float64{-83.8065, 33.0614}, body.Encoding.Position)
	assert.Contains(t, body.Details, "Facility: Scherer Plant")
}

func TestFacility_NotFound(t *testing.T) {
	f := newAPIServer(t)
	rec := do(f.srv, http.MethodGet, "/api/facilities/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLayer(t *testing.T) {
	f := newAPIServer(t)
	f.threshold.Set(777)

	rec := do(f.srv, http.MethodGet, "/api/layer", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var style render.LayerStyle
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &style))
	assert.Equal(t, "pixels", style.RadiusUnits)
	assert.Equal(t, [2]float64{777, 2268589}, style.FilterRange)
	assert.Len(t, style.Legend, 4)
}

func TestPoints_DatasetGrowth(t *testing.T) {
	f := newAPIServer(t)
	before := decodePoints(t, do(f.srv, http.MethodGet, "/api/points", ""))

	f.store.Add(domain.EmissionRecord{ID: "fac-new", MethaneTonsCO2e: 10, IndustryType: "Waste"})
	after := decodePoints(t, do(f.srv, http.MethodGet, "/api/points", ""))

	assert.Len(t, after.Features, len(before.Features)+1)
}
