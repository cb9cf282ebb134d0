package api

import (
	"github.com/alexivanou/geocity-etl/internal/service"
	"github.com/alexivanou/geocity-etl/internal/stats"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const apiPrefix = "/api/v1"

// NewRouter creates a new HTTP router
func NewRouter(service service.SyncService, statsCollector *stats.Collector, logger *zap.Logger) *mux.Router {
	handler := NewHandler(service, logger)
	statsHandler := NewStatsHandler(statsCollector, logger)

	router := mux.NewRouter()

	// Health check
	router.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// API v1 on the root router, so a wrong method gets 405
	router.HandleFunc(apiPrefix+"/update/weather", handler.UpdateWeather).Methods("POST")
	router.HandleFunc(apiPrefix+"/update/flights", handler.UpdateFlights).Methods("POST")
	router.HandleFunc(apiPrefix+"/update/population", handler.UpdatePopulation).Methods("POST")
	router.HandleFunc(apiPrefix+"/cities", handler.AddCities).Methods("POST")
	router.HandleFunc(apiPrefix+"/stats", statsHandler.GetStats).Methods("GET")

	return router
}
