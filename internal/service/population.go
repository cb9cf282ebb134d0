package service

import (
	"context"
	"fmt"

	"github.com/alexivanou/geocity-etl/internal/model"
)

// FetchPopulation rescrapes every stored city and stores population figures that differ
// from the latest stored one.
func (o *Orchestrator) FetchPopulation(ctx context.Context) (model.Summary, error) {
	summary := model.Summary{Operation: model.OpFetchPopulation}

	cities, err := o.repos.City.ListCities(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to list cities: %w", err)
	}
	summary.Requested = len(cities)
	if len(cities) == 0 {
		return o.finish(ctx, summary), nil
	}

	names := make([]string, len(cities))
	ids := make(map[string]int, len(cities))
	for i, c := range cities {
		names[i] = c.Name
		ids[c.Name] = c.ID
	}

	result, err := o.cities.Locate(ctx, names)
	if err != nil {
		return summary, fmt.Errorf("failed to locate cities: %w", err)
	}
	o.warn(&summary, result.Err())
	summary.Fetched = len(result.Rows)

	var scraped []model.Population
	for _, r := range result.Rows {
		id, ok := ids[r.Name]
		if !ok {
			continue
		}
		scraped = append(scraped, model.Population{
			CityID:         id,
			Population:     r.Population,
			PopulationYear: r.PopulationYear,
		})
	}

	latest, err := o.repos.Population.LatestPopulation(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to read latest population: %w", err)
	}

	fresh := newPopulation(latest, scraped)
	if err := o.repos.Population.BulkInsertPopulation(ctx, fresh); err != nil {
		return summary, fmt.Errorf("failed to insert population: %w", err)
	}
	summary.Inserted = len(fresh)

	return o.finish(ctx, summary), nil
}

type populationKey struct {
	cityID     int
	population int64
	year       int
}

func keyOf(p model.Population) populationKey {
	return populationKey{cityID: p.CityID, population: p.Population, year: p.PopulationYear}
}

// newPopulation merges the latest stored rows with scraped rows, drops every
// (city, population, year) that occurs more than once and keeps what was never stored.
// A scraped figure equal to an older, non-latest row is therefore stored again.
func newPopulation(latest, scraped []model.Population) []model.Population {
	counts := make(map[populationKey]int, len(latest)+len(scraped))
	for _, p := range latest {
		counts[keyOf(p)]++
	}
	for _, p := range scraped {
		counts[keyOf(p)]++
	}

	var fresh []model.Population
	for _, p := range scraped {
		if counts[keyOf(p)] == 1 {
			fresh = append(fresh, model.Population{
				CityID:         p.CityID,
				Population:     p.Population,
				PopulationYear: p.PopulationYear,
			})
		}
	}
	return fresh
}
