package model

import "time"

// Sync operation names
const (
	OpAddCities       = "add_cities"
	OpAddAirports     = "add_airports"
	OpFetchPopulation = "fetch_population"
	OpFetchWeather    = "fetch_weather"
	OpFetchFlights    = "fetch_flights"
)

// Summary reports the outcome of a sync operation
type Summary struct {
	Operation string `json:"operation"`
	Requested int    `json:"requested"`
	Fetched   int    `json:"fetched"`
	Inserted  int    `json:"inserted"`
	Warnings  int    `json:"warnings"`
}

// SyncEvent is published after a sync operation completed
type SyncEvent struct {
	Summary
	CompletedAt time.Time `json:"completed_at"`
}
