package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/methane-encoder-service/internal/dataset"
	"github.com/couchcryptid/methane-encoder-service/internal/domain"
	"github.com/couchcryptid/methane-encoder-service/internal/render"
)

const (
	contentTypeJSON    = "application/json"
	contentTypeGeoJSON = "application/geo+json"
	maxBodyBytes       = 1 << 12
)

// Facilities is the read side of the dataset the API serves.
type Facilities interface {
	render.Source
	Get(id string) (domain.EmissionRecord, bool)
	Len() int
}

// API serves encoded points and the session threshold.
type API struct {
	facilities Facilities
	threshold  *dataset.Threshold
	renderer   *render.Cache
	encoding   domain.EncodingConfig
	events     http.Handler
	logger     *slog.Logger
}

// NewAPI wires the points API. encoding is the base configuration; its
// LowerBound is replaced by the threshold's current value on every request.
// events may be nil to disable /api/events.
func NewAPI(facilities Facilities, threshold *dataset.Threshold, renderer *render.Cache, encoding domain.EncodingConfig, events http.Handler, logger *slog.Logger) *API {
	return &API{
		facilities: facilities,
		threshold:  threshold,
		renderer:   renderer,
		encoding:   encoding,
		events:     events,
		logger:     logger,
	}
}

func (a *API) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/points", a.handlePoints)
	mux.HandleFunc("GET /api/facilities/{id}", a.handleFacility)
	mux.HandleFunc("GET /api/threshold", a.handleGetThreshold)
	mux.HandleFunc("PUT /api/threshold", a.handlePutThreshold)
	mux.HandleFunc("GET /api/layer", a.handleLayer)
	if a.events != nil {
		mux.Handle("GET /api/events", a.events)
	}
}

// config returns the encoding configuration for the current threshold.
func (a *API) config() domain.EncodingConfig {
	return a.encoding.WithLowerBound(a.threshold.Get())
}

func (a *API) handlePoints(w http.ResponseWriter, r *http.Request) {
	opts := render.Options{}
	if v := r.URL.Query().Get("all"); v != "" {
		all, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid all parameter")
			return
		}
		opts.IncludeFiltered = all
	}

	cfg := a.config()
	etag := fmt.Sprintf(`"%x"`, render.Fingerprint(a.facilities.Version(), cfg, opts))
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	body, err := a.renderer.Render(a.facilities, cfg, opts)
	if err != nil {
		a.logger.Error("render points failed", "error", err)
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}

	w.Header().Set("Content-Type", contentTypeGeoJSON)
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

type facilityResponse struct {
	Record   domain.EmissionRecord `json:"record"`
	Encoding domain.EncodingResult `json:"encoding"`
	Details  string                `json:"details"`
}

func (a *API) handleFacility(w http.ResponseWriter, r *http.Request) {
	record, ok := a.facilities.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "facility not found")
		return
	}
	writeJSON(w, http.StatusOK, facilityResponse{
		Record:   record,
		Encoding: domain.Encode(record, a.config()),
		Details:  domain.FormatDetails(record),
	})
}

type thresholdResponse struct {
	LowerBound float64   `json:"lower_bound"`
	Min        float64   `json:"min"`
	Max        float64   `json:"max"`
	UpdatedAt  time.Time `json:"updated_at"`
	Changed    *bool     `json:"changed,omitempty"`
}

func (a *API) thresholdState() thresholdResponse {
	lo, hi := a.threshold.Range()
	return thresholdResponse{
		LowerBound: a.threshold.Get(),
		Min:        lo,
		Max:        hi,
		UpdatedAt:  a.threshold.UpdatedAt(),
	}
}

func (a *API) handleGetThreshold(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.thresholdState())
}

type thresholdRequest struct {
	LowerBound *float64 `json:"lower_bound"`
}

func (a *API) handlePutThreshold(w http.ResponseWriter, r *http.Request) {
	var req thresholdRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+decodeErrorMessage(err))
		return
	}
	if req.LowerBound == nil {
		writeError(w, http.StatusBadRequest, "lower_bound is required")
		return
	}

	change, changed := a.threshold.Set(*req.LowerBound)
	if changed {
		a.logger.Info("lower bound updated", "lower_bound", change.LowerBound, "previous", change.Previous)
	}

	resp := a.thresholdState()
	resp.Changed = &changed
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleLayer(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, render.Style(a.config()))
}

func decodeErrorMessage(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return typeErr.Field + " must be a number"
	}
	if errors.Is(err, io.EOF) {
		return "empty body"
	}
	return err.Error()
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
