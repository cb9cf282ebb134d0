package repository

import (
	"context"

	"github.com/alexivanou/geocity-etl/internal/model"
)

type cityRepository struct {
	*store
}

func (r *cityRepository) ListCities(ctx context.Context) ([]model.City, error) {
	var cities []model.City
	if err := r.db.SelectContext(ctx, &cities, "SELECT city_id, city_name, country_code FROM cities ORDER BY city_id"); err != nil {
		return nil, err
	}
	return cities, nil
}

func (r *cityRepository) BulkInsertCities(ctx context.Context, cities []model.City) error {
	return bulkInsert(ctx, r.store, `
		INSERT INTO cities (city_name, country_code)
		VALUES (:city_name, :country_code)`,
		cities)
}

type populationRepository struct {
	*store
}

// LatestPopulation returns the most recent row per city: highest year, then highest id
func (r *populationRepository) LatestPopulation(ctx context.Context) ([]model.Population, error) {
	q := `
		SELECT p.population_id, p.city_id, p.population, p.population_year
		FROM population p
		WHERE NOT EXISTS (
			SELECT 1 FROM population newer
			WHERE newer.city_id = p.city_id
			AND (
				newer.population_year > p.population_year
				OR (newer.population_year = p.population_year AND newer.population_id > p.population_id)
			)
		)
		ORDER BY p.city_id
	`
	var rows []model.Population
	if err := r.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *populationRepository) BulkInsertPopulation(ctx context.Context, rows []model.Population) error {
	return bulkInsert(ctx, r.store, `
		INSERT INTO population (city_id, population, population_year)
		VALUES (:city_id, :population, :population_year)`,
		rows)
}

type geoRepository struct {
	*store
}

func (r *geoRepository) ListGeo(ctx context.Context) ([]model.Geo, error) {
	var rows []model.Geo
	if err := r.db.SelectContext(ctx, &rows, "SELECT city_id, latitude, longitude, timezone FROM geo ORDER BY city_id"); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *geoRepository) BulkInsertGeo(ctx context.Context, rows []model.Geo) error {
	return bulkInsert(ctx, r.store, `
		INSERT INTO geo (city_id, latitude, longitude, timezone)
		VALUES (:city_id, :latitude, :longitude, :timezone)`,
		rows)
}

type airportRepository struct {
	*store
}

func (r *airportRepository) ListAirports(ctx context.Context) ([]model.Airport, error) {
	var airports []model.Airport
	if err := r.db.SelectContext(ctx, &airports, "SELECT icao, city_id, airport_name, distance_km FROM airports ORDER BY icao"); err != nil {
		return nil, err
	}
	return airports, nil
}

func (r *airportRepository) BulkInsertAirports(ctx context.Context, airports []model.Airport) error {
	return bulkInsert(ctx, r.store, `
		INSERT INTO airports (icao, city_id, airport_name, distance_km)
		VALUES (:icao, :city_id, :airport_name, :distance_km)`,
		airports)
}

type weatherRepository struct {
	*store
}

func (r *weatherRepository) BulkInsertWeather(ctx context.Context, samples []model.WeatherSample) error {
	return bulkInsert(ctx, r.store, `
		INSERT INTO weather (city_id, forecast_time, outlook, temperature, feels_like, wind_speed, rain_prob, rain_in_last_3h, retrieved_at)
		VALUES (:city_id, :forecast_time, :outlook, :temperature, :feels_like, :wind_speed, :rain_prob, :rain_in_last_3h, :retrieved_at)`,
		samples)
}

type flightRepository struct {
	*store
}

func (r *flightRepository) BulkInsertFlights(ctx context.Context, flights []model.FlightArrival) error {
	return bulkInsert(ctx, r.store, `
		INSERT INTO flights (flight_num, departure_icao, arrival_icao, arrival_time, retrieved_at)
		VALUES (:flight_num, :departure_icao, :arrival_icao, :arrival_time, :retrieved_at)`,
		flights)
}
