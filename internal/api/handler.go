package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/alexivanou/geocity-etl/internal/model"
	"github.com/alexivanou/geocity-etl/internal/service"
	"go.uber.org/zap"
)

// maxBodyBytes limits the size of request bodies
const maxBodyBytes = 1 << 20

// AddCitiesRequest is the body of POST /api/v1/cities
type AddCitiesRequest struct {
	Cities []string `json:"cities"`
}

// Handler handles HTTP requests
type Handler struct {
	service service.SyncService
	logger  *zap.Logger
}

// NewHandler creates a new handler instance
func NewHandler(service service.SyncService, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// UpdateWeather handles POST /api/v1/update/weather
func (h *Handler) UpdateWeather(w http.ResponseWriter, r *http.Request) {
	h.runUpdate(w, r, model.OpFetchWeather, h.service.FetchWeather)
}

// UpdateFlights handles POST /api/v1/update/flights
func (h *Handler) UpdateFlights(w http.ResponseWriter, r *http.Request) {
	h.runUpdate(w, r, model.OpFetchFlights, h.service.FetchFlights)
}

// UpdatePopulation handles POST /api/v1/update/population
func (h *Handler) UpdatePopulation(w http.ResponseWriter, r *http.Request) {
	h.runUpdate(w, r, model.OpFetchPopulation, h.service.FetchPopulation)
}

// runUpdate answers with a plain "Success" so schedulers only have to check the status
func (h *Handler) runUpdate(w http.ResponseWriter, r *http.Request, op string, run func(context.Context) (model.Summary, error)) {
	if _, err := run(r.Context()); err != nil {
		h.logger.Error("Update failed", zap.String("operation", op), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Success"))
}

// AddCities handles POST /api/v1/cities
func (h *Handler) AddCities(w http.ResponseWriter, r *http.Request) {
	var req AddCitiesRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Cities) == 0 {
		http.Error(w, "field 'cities' is required", http.StatusBadRequest)
		return
	}

	summary, err := h.service.AddCities(r.Context(), req.Cities)
	if err != nil {
		h.logger.Error("Adding cities failed", zap.Strings("cities", req.Cities), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(summary); err != nil {
		h.logger.Error("Error encoding response", zap.Error(err))
	}
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
