package service

import (
	"fmt"

	"github.com/alexivanou/geocity-etl/internal/airports"
	"github.com/alexivanou/geocity-etl/internal/cities"
	"github.com/alexivanou/geocity-etl/internal/config"
	"github.com/alexivanou/geocity-etl/internal/flights"
	"github.com/alexivanou/geocity-etl/internal/httpclient"
	"github.com/alexivanou/geocity-etl/internal/notify"
	"github.com/alexivanou/geocity-etl/internal/repository"
	"github.com/alexivanou/geocity-etl/internal/weather"
	"go.uber.org/zap"
)

// New builds an orchestrator talking to the remote providers named in cfg
func New(cfg *config.Config, repos *repository.Container, notifier notify.Notifier, logger *zap.Logger) (*Orchestrator, error) {
	loc, err := cfg.Sync.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Sync.Timezone, err)
	}
	if cfg.API.OpenWeatherKey == "" {
		logger.Warn("OPENWEATHER_API_KEY is not set, weather requests will fail")
	}
	if cfg.API.RapidAPIKey == "" {
		logger.Warn("RAPIDAPI_API_KEY is not set, airport and flight requests will fail")
	}

	client := httpclient.New(cfg.API.HTTPTimeout, cfg.API.UserAgent)

	return NewOrchestrator(
		repos,
		cities.NewScraper(client, cfg.API.WikipediaURL),
		airports.NewLocator(client, cfg.API.AeroDataBoxURL, cfg.API.AeroDataBoxHost, cfg.API.RapidAPIKey),
		weather.NewProvider(client, cfg.API.WeatherBaseURL, cfg.API.OpenWeatherKey),
		flights.NewProvider(client, cfg.API.AeroDataBoxURL, cfg.API.AeroDataBoxHost, cfg.API.RapidAPIKey, loc),
		notifier,
		logger,
	), nil
}
