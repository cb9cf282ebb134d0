package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexivanou/geocity-etl/internal/model"
	"go.uber.org/zap"
)

// AddCities stores the cities in names that are not stored yet, together with their
// population and location, and then refreshes the airports.
func (o *Orchestrator) AddCities(ctx context.Context, names []string) (model.Summary, error) {
	summary := model.Summary{Operation: model.OpAddCities}

	existing, err := o.repos.City.ListCities(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to list cities: %w", err)
	}
	stored := make(map[string]bool, len(existing))
	for _, c := range existing {
		stored[c.Name] = true
	}

	var missing []string
	for _, name := range uniqueNames(names) {
		if !stored[name] {
			missing = append(missing, name)
		}
	}
	summary.Requested = len(missing)
	if len(missing) == 0 {
		o.logger.Info("All cities already stored", zap.Int("cities", len(names)))
		return o.finish(ctx, summary), nil
	}

	result, err := o.cities.Locate(ctx, missing)
	if err != nil {
		return summary, fmt.Errorf("failed to locate cities: %w", err)
	}
	o.warn(&summary, result.Err())
	summary.Fetched = len(result.Rows)
	if len(result.Rows) == 0 {
		return o.finish(ctx, summary), nil
	}

	cities := make([]model.City, 0, len(result.Rows))
	for _, r := range result.Rows {
		cities = append(cities, model.City{Name: r.Name, CountryCode: r.CountryCode})
	}
	if err := o.repos.City.BulkInsertCities(ctx, cities); err != nil {
		return summary, fmt.Errorf("failed to insert cities: %w", err)
	}
	summary.Inserted = len(cities)

	ids, err := o.cityIDs(ctx)
	if err != nil {
		return summary, err
	}

	var (
		population []model.Population
		geo        []model.Geo
	)
	for _, r := range result.Rows {
		id, ok := ids[r.Name]
		if !ok {
			continue
		}
		population = append(population, model.Population{
			CityID:         id,
			Population:     r.Population,
			PopulationYear: r.PopulationYear,
		})
		geo = append(geo, model.Geo{
			CityID:    id,
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
			Timezone:  r.Timezone,
		})
	}

	if err := o.repos.Population.BulkInsertPopulation(ctx, population); err != nil {
		return summary, fmt.Errorf("failed to insert population: %w", err)
	}
	if err := o.repos.Geo.BulkInsertGeo(ctx, geo); err != nil {
		return summary, fmt.Errorf("failed to insert geo: %w", err)
	}

	summary = o.finish(ctx, summary)

	if _, err := o.AddAirports(ctx); err != nil {
		return summary, fmt.Errorf("failed to refresh airports: %w", err)
	}
	return summary, nil
}

func (o *Orchestrator) cityIDs(ctx context.Context) (map[string]int, error) {
	cities, err := o.repos.City.ListCities(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list cities: %w", err)
	}
	ids := make(map[string]int, len(cities))
	for _, c := range cities {
		ids[c.Name] = c.ID
	}
	return ids, nil
}

// uniqueNames trims names and drops blanks and repeats, keeping the first occurrence
func uniqueNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
