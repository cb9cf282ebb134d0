package service

import (
	"context"
	"fmt"

	"github.com/alexivanou/geocity-etl/internal/airports"
	"github.com/alexivanou/geocity-etl/internal/model"
	"go.uber.org/zap"
)

// AddAirports looks up airports around every stored city and stores the ones not
// stored yet. An airport found near several cities belongs to the first of them.
func (o *Orchestrator) AddAirports(ctx context.Context) (model.Summary, error) {
	summary := model.Summary{Operation: model.OpAddAirports}

	geo, err := o.repos.Geo.ListGeo(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to list geo: %w", err)
	}
	existing, err := o.repos.Airport.ListAirports(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to list airports: %w", err)
	}

	summary.Requested = len(geo)
	if len(geo) == 0 {
		return o.finish(ctx, summary), nil
	}

	lats, lons := coordinates(geo)
	result, err := o.airports.Find(ctx, lats, lons)
	if err != nil {
		return summary, fmt.Errorf("failed to find airports: %w", err)
	}
	o.warn(&summary, result.Err())
	summary.Fetched = len(result.Rows)

	known := make(map[string]bool, len(existing)+len(result.Rows))
	for _, a := range existing {
		known[a.ICAO] = true
	}

	var fresh []model.Airport
	for _, r := range result.Rows {
		if r.Index < 0 || r.Index >= len(geo) {
			o.logger.Warn("Airport with unknown index", zap.Int("index", r.Index), zap.String("icao", r.ICAO))
			continue
		}
		if known[r.ICAO] {
			continue
		}
		known[r.ICAO] = true

		city := geo[r.Index]
		fresh = append(fresh, model.Airport{
			ICAO:       r.ICAO,
			CityID:     city.CityID,
			Name:       r.Name,
			DistanceKm: airports.DistanceKm(city.Latitude, city.Longitude, r.Latitude, r.Longitude),
		})
	}

	if err := o.repos.Airport.BulkInsertAirports(ctx, fresh); err != nil {
		return summary, fmt.Errorf("failed to insert airports: %w", err)
	}
	summary.Inserted = len(fresh)

	return o.finish(ctx, summary), nil
}

func coordinates(geo []model.Geo) ([]float64, []float64) {
	lats := make([]float64, len(geo))
	lons := make([]float64, len(geo))
	for i, g := range geo {
		lats[i] = g.Latitude
		lons[i] = g.Longitude
	}
	return lats, lons
}
