// Package airports finds airports around coordinates through the AeroDataBox API.
package airports

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/alexivanou/geocity-etl/internal/httpclient"
	"github.com/alexivanou/geocity-etl/internal/model"
	"github.com/golang/geo/s2"
	"github.com/tidwall/gjson"
)

const (
	searchPath = "/airports/search/location"

	searchRadiusKm = 50
	searchLimit    = 5

	earthRadiusKm = 6371.0088
)

// Locator implements the airport geo-search for lists of coordinates
type Locator struct {
	client  *httpclient.Client
	baseURL string
	host    string
	apiKey  string
}

// NewLocator creates an airport locator for the AeroDataBox API at baseURL.
// host is sent as X-RapidAPI-Host.
func NewLocator(client *httpclient.Client, baseURL, host, apiKey string) *Locator {
	return &Locator{
		client:  client,
		baseURL: baseURL,
		host:    host,
		apiKey:  apiKey,
	}
}

// Find searches airports with flight information within 50 km of every coordinate pair.
// Rows carry the index of their pair; a failed pair yields a failure and no rows.
func (l *Locator) Find(ctx context.Context, lats, lons []float64) (model.Result[model.AirportRecord], error) {
	var result model.Result[model.AirportRecord]
	if len(lats) != len(lons) {
		return result, fmt.Errorf("%w: %d latitudes, %d longitudes", model.ErrLengthMismatch, len(lats), len(lons))
	}

	headers := http.Header{}
	headers.Set("X-RapidAPI-Host", l.host)
	headers.Set("X-RapidAPI-Key", l.apiKey)

	for i := range lats {
		values := url.Values{}
		values.Set("lat", strconv.FormatFloat(lats[i], 'f', -1, 64))
		values.Set("lon", strconv.FormatFloat(lons[i], 'f', -1, 64))
		values.Set("radiusKm", strconv.Itoa(searchRadiusKm))
		values.Set("limit", strconv.Itoa(searchLimit))
		values.Set("withFlightInfoOnly", "true")

		key := fmt.Sprintf("%.2f/%.2f", lats[i], lons[i])
		resp, err := l.client.Get(ctx, l.baseURL+searchPath, values, headers)
		if err != nil {
			result.Fail(i, key, err)
			continue
		}

		rows, err := parseSearch(i, resp.Body)
		if err != nil {
			result.Fail(i, key, err)
			continue
		}
		result.Rows = append(result.Rows, rows...)
	}

	return result, nil
}

func parseSearch(index int, body []byte) ([]model.AirportRecord, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("invalid JSON in airport search response")
	}

	items := gjson.GetBytes(body, "items")
	if !items.IsArray() {
		return nil, errors.New("airport search response has no items")
	}

	var rows []model.AirportRecord
	items.ForEach(func(_, item gjson.Result) bool {
		icao := item.Get("icao").String()
		if icao == "" {
			return true
		}
		rows = append(rows, model.AirportRecord{
			Index:     index,
			ICAO:      icao,
			Name:      item.Get("name").String(),
			Latitude:  item.Get("location.lat").Float(),
			Longitude: item.Get("location.lon").Float(),
		})
		return true
	})
	return rows, nil
}

// DistanceKm returns the great-circle distance between two points in kilometres
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	a := s2.LatLngFromDegrees(lat1, lon1)
	b := s2.LatLngFromDegrees(lat2, lon2)
	return a.Distance(b).Radians() * earthRadiusKm
}
