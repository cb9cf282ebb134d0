// Package weather fetches 5-day / 3-hour forecasts from OpenWeatherMap.
package weather

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/alexivanou/geocity-etl/internal/httpclient"
	"github.com/alexivanou/geocity-etl/internal/model"
	"github.com/tidwall/gjson"
)

const forecastPath = "/data/2.5/forecast"

// Provider implements the forecast lookup for lists of coordinates
type Provider struct {
	client  *httpclient.Client
	baseURL string
	apiKey  string
}

// NewProvider creates a forecast provider for the OpenWeatherMap API at baseURL
func NewProvider(client *httpclient.Client, baseURL, apiKey string) *Provider {
	return &Provider{
		client:  client,
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// Forecast fetches the forecast for every coordinate pair.
// Rows carry the index of their pair; a failed pair yields a failure and no rows.
func (p *Provider) Forecast(ctx context.Context, lats, lons []float64) (model.Result[model.ForecastRecord], error) {
	var result model.Result[model.ForecastRecord]
	if len(lats) != len(lons) {
		return result, fmt.Errorf("%w: %d latitudes, %d longitudes", model.ErrLengthMismatch, len(lats), len(lons))
	}

	for i := range lats {
		key := fmt.Sprintf("%.2f/%.2f", lats[i], lons[i])
		rows, err := p.fetch(ctx, i, lats[i], lons[i])
		if err != nil {
			result.Fail(i, key, err)
			continue
		}
		result.Rows = append(result.Rows, rows...)
	}

	return result, nil
}

func (p *Provider) fetch(ctx context.Context, index int, lat, lon float64) ([]model.ForecastRecord, error) {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	values.Set("appid", p.apiKey)
	values.Set("units", "metric")

	resp, err := p.client.Get(ctx, p.baseURL+forecastPath, values, nil)
	if err != nil {
		return nil, err
	}
	return parseForecast(index, resp.Body, resp.Date)
}

func parseForecast(index int, body []byte, retrievedAt time.Time) ([]model.ForecastRecord, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("invalid JSON in forecast response")
	}

	list := gjson.GetBytes(body, "list")
	if !list.IsArray() {
		return nil, errors.New("forecast response has no list")
	}

	var rows []model.ForecastRecord
	list.ForEach(func(_, w gjson.Result) bool {
		rows = append(rows, model.ForecastRecord{
			Index:        index,
			ForecastTime: time.Unix(w.Get("dt").Int(), 0).UTC(),
			Outlook:      w.Get("weather.0.description").String(),
			Temperature:  w.Get("main.temp").Float(),
			FeelsLike:    w.Get("main.feels_like").Float(),
			WindSpeed:    w.Get("wind.speed").Float(),
			// Absent keys read as zero.
			RainProb:    w.Get("pop").Float(),
			RainLast3h:  w.Get("rain.3h").Float(),
			RetrievedAt: retrievedAt,
		})
		return true
	})
	return rows, nil
}
