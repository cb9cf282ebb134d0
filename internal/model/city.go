package model

import "time"

// City represents a row of the cities table
type City struct {
	ID          int    `db:"city_id"`
	Name        string `db:"city_name"`
	CountryCode string `db:"country_code"`
}

// Population represents one population observation of a city
type Population struct {
	ID             int   `db:"population_id"`
	CityID         int   `db:"city_id"`
	Population     int64 `db:"population"`
	PopulationYear int   `db:"population_year"`
}

// Geo holds the location and timezone of a city
type Geo struct {
	CityID    int     `db:"city_id"`
	Latitude  float64 `db:"latitude"`
	Longitude float64 `db:"longitude"`
	Timezone  string  `db:"timezone"`
}

// Airport represents an airport serving a city
type Airport struct {
	ICAO       string  `db:"icao"`
	CityID     int     `db:"city_id"`
	Name       string  `db:"airport_name"`
	DistanceKm float64 `db:"distance_km"`
}

// WeatherSample is one forecast timestep for a city
type WeatherSample struct {
	ID           int       `db:"weather_id"`
	CityID       int       `db:"city_id"`
	ForecastTime time.Time `db:"forecast_time"`
	Outlook      string    `db:"outlook"`
	Temperature  float64   `db:"temperature"`
	FeelsLike    float64   `db:"feels_like"`
	WindSpeed    float64   `db:"wind_speed"`
	RainProb     float64   `db:"rain_prob"`
	RainLast3h   float64   `db:"rain_in_last_3h"`
	RetrievedAt  time.Time `db:"retrieved_at"`
}

// FlightArrival is one scheduled arrival at a stored airport
type FlightArrival struct {
	ID            int       `db:"flight_id"`
	FlightNum     string    `db:"flight_num"`
	DepartureICAO *string   `db:"departure_icao"`
	ArrivalICAO   string    `db:"arrival_icao"`
	ArrivalTime   time.Time `db:"arrival_time"`
	RetrievedAt   time.Time `db:"retrieved_at"`
}
