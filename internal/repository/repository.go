package repository

import (
	"context"

	"github.com/alexivanou/geocity-etl/internal/config"
	"github.com/alexivanou/geocity-etl/internal/model"
	"github.com/jmoiron/sqlx"
)

// CityRepository defines operations for cities
type CityRepository interface {
	ListCities(ctx context.Context) ([]model.City, error)
	BulkInsertCities(ctx context.Context, cities []model.City) error
}

// PopulationRepository defines operations for population history
type PopulationRepository interface {
	LatestPopulation(ctx context.Context) ([]model.Population, error)
	BulkInsertPopulation(ctx context.Context, rows []model.Population) error
}

// GeoRepository defines operations for city locations
type GeoRepository interface {
	ListGeo(ctx context.Context) ([]model.Geo, error)
	BulkInsertGeo(ctx context.Context, rows []model.Geo) error
}

// AirportRepository defines operations for airports
type AirportRepository interface {
	ListAirports(ctx context.Context) ([]model.Airport, error)
	BulkInsertAirports(ctx context.Context, airports []model.Airport) error
}

// WeatherRepository defines operations for weather samples
type WeatherRepository interface {
	BulkInsertWeather(ctx context.Context, samples []model.WeatherSample) error
}

// FlightRepository defines operations for flight arrivals
type FlightRepository interface {
	BulkInsertFlights(ctx context.Context, flights []model.FlightArrival) error
}

// Container holds all repositories
type Container struct {
	City       CityRepository
	Population PopulationRepository
	Geo        GeoRepository
	Airport    AirportRepository
	Weather    WeatherRepository
	Flight     FlightRepository
}

// NewRepositories creates repository implementations based on DB type
func NewRepositories(db *sqlx.DB, dbType config.DBType) *Container {
	s := &store{db: db, chunkSize: chunkSizeFor(dbType)}
	return &Container{
		City:       &cityRepository{s},
		Population: &populationRepository{s},
		Geo:        &geoRepository{s},
		Airport:    &airportRepository{s},
		Weather:    &weatherRepository{s},
		Flight:     &flightRepository{s},
	}
}

// IsDatabaseEmpty reports whether no city has been stored yet
func IsDatabaseEmpty(ctx context.Context, db *sqlx.DB) (bool, error) {
	var count int
	if err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM cities"); err != nil {
		return false, err
	}
	return count == 0, nil
}
