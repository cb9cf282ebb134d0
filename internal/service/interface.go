package service

import (
	"context"

	"github.com/alexivanou/geocity-etl/internal/model"
)

// CityLocator resolves city names
type CityLocator interface {
	Locate(ctx context.Context, names []string) (model.Result[model.CityRecord], error)
}

// AirportLocator finds airports near coordinate pairs
type AirportLocator interface {
	Find(ctx context.Context, lats, lons []float64) (model.Result[model.AirportRecord], error)
}

// WeatherProvider fetches forecasts for coordinate pairs
type WeatherProvider interface {
	Forecast(ctx context.Context, lats, lons []float64) (model.Result[model.ForecastRecord], error)
}

// FlightProvider fetches next-day arrivals for airports
type FlightProvider interface {
	Arrivals(ctx context.Context, icaos []string) model.Result[model.ArrivalRecord]
}

// SyncService defines the sync operations for callers such as the HTTP handlers
type SyncService interface {
	AddCities(ctx context.Context, names []string) (model.Summary, error)
	AddAirports(ctx context.Context) (model.Summary, error)
	FetchPopulation(ctx context.Context) (model.Summary, error)
	FetchWeather(ctx context.Context) (model.Summary, error)
	FetchFlights(ctx context.Context) (model.Summary, error)
}
