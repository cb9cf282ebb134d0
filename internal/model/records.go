package model

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// ErrLengthMismatch is returned when parallel latitude/longitude lists differ in length
var ErrLengthMismatch = errors.New("latitudes and longitudes must have the same length")

// CityRecord is a city resolved by the city locator
type CityRecord struct {
	Name           string
	CountryCode    string
	Population     int64
	PopulationYear int
	Latitude       float64
	Longitude      float64
	Timezone       string
}

// AirportRecord is an airport found near the coordinate pair at Index
type AirportRecord struct {
	Index     int
	ICAO      string
	Name      string
	Latitude  float64
	Longitude float64
}

// ForecastRecord is one forecast timestep for the coordinate pair at Index
type ForecastRecord struct {
	Index        int
	ForecastTime time.Time
	Outlook      string
	Temperature  float64
	FeelsLike    float64
	WindSpeed    float64
	RainProb     float64
	RainLast3h   float64
	RetrievedAt  time.Time
}

// ArrivalRecord is one scheduled arrival returned for a queried airport
type ArrivalRecord struct {
	FlightNum     string
	DepartureICAO string
	ArrivalICAO   string
	ArrivalTime   time.Time
	RetrievedAt   time.Time
}

// Failure describes an input item that contributed no rows.
// Index is the 0-based position of the item in the request; Key identifies it for humans.
type Failure struct {
	Index int
	Key   string
	Err   error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s (#%d): %v", f.Key, f.Index, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Result collects the rows of a batch call together with the items that failed
type Result[T any] struct {
	Rows     []T
	Failures []Failure
}

// Fail records a failed item
func (r *Result[T]) Fail(index int, key string, err error) {
	r.Failures = append(r.Failures, Failure{Index: index, Key: key, Err: err})
}

// Err combines all failures into one error, or nil if every item succeeded
func (r Result[T]) Err() error {
	var err error
	for _, f := range r.Failures {
		err = multierr.Append(err, f)
	}
	return err
}
