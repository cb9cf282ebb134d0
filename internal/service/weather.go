package service

import (
	"context"
	"fmt"

	"github.com/alexivanou/geocity-etl/internal/model"
	"go.uber.org/zap"
)

// FetchWeather stores a fresh forecast snapshot for every stored city
func (o *Orchestrator) FetchWeather(ctx context.Context) (model.Summary, error) {
	summary := model.Summary{Operation: model.OpFetchWeather}

	geo, err := o.repos.Geo.ListGeo(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to list geo: %w", err)
	}
	summary.Requested = len(geo)
	if len(geo) == 0 {
		return o.finish(ctx, summary), nil
	}

	lats, lons := coordinates(geo)
	result, err := o.weather.Forecast(ctx, lats, lons)
	if err != nil {
		return summary, fmt.Errorf("failed to fetch forecast: %w", err)
	}
	o.warn(&summary, result.Err())
	summary.Fetched = len(result.Rows)

	samples := make([]model.WeatherSample, 0, len(result.Rows))
	for _, r := range result.Rows {
		if r.Index < 0 || r.Index >= len(geo) {
			o.logger.Warn("Forecast with unknown index", zap.Int("index", r.Index))
			continue
		}
		samples = append(samples, model.WeatherSample{
			CityID:       geo[r.Index].CityID,
			ForecastTime: r.ForecastTime,
			Outlook:      r.Outlook,
			Temperature:  r.Temperature,
			FeelsLike:    r.FeelsLike,
			WindSpeed:    r.WindSpeed,
			RainProb:     r.RainProb,
			RainLast3h:   r.RainLast3h,
			RetrievedAt:  r.RetrievedAt,
		})
	}

	if err := o.repos.Weather.BulkInsertWeather(ctx, samples); err != nil {
		return summary, fmt.Errorf("failed to insert weather: %w", err)
	}
	summary.Inserted = len(samples)

	return o.finish(ctx, summary), nil
}
