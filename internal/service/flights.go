package service

import (
	"context"
	"fmt"

	"github.com/alexivanou/geocity-etl/internal/model"
)

// FetchFlights stores tomorrow's scheduled arrivals for every stored airport
func (o *Orchestrator) FetchFlights(ctx context.Context) (model.Summary, error) {
	summary := model.Summary{Operation: model.OpFetchFlights}

	airports, err := o.repos.Airport.ListAirports(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to list airports: %w", err)
	}
	summary.Requested = len(airports)
	if len(airports) == 0 {
		return o.finish(ctx, summary), nil
	}

	icaos := make([]string, len(airports))
	for i, a := range airports {
		icaos[i] = a.ICAO
	}

	result := o.flights.Arrivals(ctx, icaos)
	o.warn(&summary, result.Err())
	summary.Fetched = len(result.Rows)

	arrivals := make([]model.FlightArrival, 0, len(result.Rows))
	for _, r := range result.Rows {
		var departure *string
		if r.DepartureICAO != "" {
			d := r.DepartureICAO
			departure = &d
		}
		arrivals = append(arrivals, model.FlightArrival{
			FlightNum:     r.FlightNum,
			DepartureICAO: departure,
			ArrivalICAO:   r.ArrivalICAO,
			ArrivalTime:   r.ArrivalTime,
			RetrievedAt:   r.RetrievedAt,
		})
	}

	if err := o.repos.Flight.BulkInsertFlights(ctx, arrivals); err != nil {
		return summary, fmt.Errorf("failed to insert flights: %w", err)
	}
	summary.Inserted = len(arrivals)

	return o.finish(ctx, summary), nil
}
