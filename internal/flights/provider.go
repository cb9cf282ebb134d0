// Package flights fetches next-day scheduled arrivals through the AeroDataBox API.
package flights

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/alexivanou/geocity-etl/internal/httpclient"
	"github.com/alexivanou/geocity-etl/internal/model"
	"github.com/tidwall/gjson"
)

const arrivalsPath = "/flights/airports/icao"

// The provider rejects windows longer than 12 hours, so a day is queried in two halves.
var halfDays = [2][2]string{
	{"00:00", "11:59"},
	{"12:00", "23:59"},
}

// scheduled times come as "2024-03-02 06:15Z" but other renderings show up too
var timeLayouts = []string{
	"2006-01-02 15:04Z07:00",
	"2006-01-02T15:04Z07:00",
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
}

// Window is a local time range in the provider's "2006-01-02T15:04" notation
type Window struct {
	From string
	To   string
}

func (w Window) String() string {
	return w.From + "/" + w.To
}

// TomorrowWindows splits the day after now, as seen in loc, into two half-day windows
func TomorrowWindows(now time.Time, loc *time.Location) []Window {
	local := now.In(loc)
	tomorrow := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc).Format("2006-01-02")

	windows := make([]Window, 0, len(halfDays))
	for _, h := range halfDays {
		windows = append(windows, Window{From: tomorrow + "T" + h[0], To: tomorrow + "T" + h[1]})
	}
	return windows
}

// Provider implements the arrivals lookup for lists of airports
type Provider struct {
	client   *httpclient.Client
	baseURL  string
	host     string
	apiKey   string
	location *time.Location
	now      func() time.Time
}

// NewProvider creates an arrivals provider. loc decides which day is "tomorrow".
func NewProvider(client *httpclient.Client, baseURL, host, apiKey string, loc *time.Location) *Provider {
	return &Provider{
		client:   client,
		baseURL:  baseURL,
		host:     host,
		apiKey:   apiKey,
		location: loc,
		now:      time.Now,
	}
}

// Arrivals fetches tomorrow's scheduled arrivals for every ICAO code.
// Failures carry the index of the ICAO code they belong to.
func (p *Provider) Arrivals(ctx context.Context, icaos []string) model.Result[model.ArrivalRecord] {
	var result model.Result[model.ArrivalRecord]

	headers := http.Header{}
	headers.Set("X-RapidAPI-Host", p.host)
	headers.Set("X-RapidAPI-Key", p.apiKey)

	values := url.Values{}
	values.Set("withLeg", "true")
	values.Set("direction", "Arrival")
	values.Set("withCancelled", "false")
	values.Set("withCodeshared", "true")
	values.Set("withCargo", "false")
	values.Set("withPrivate", "false")
	values.Set("withLocation", "false")

	windows := TomorrowWindows(p.now(), p.location)
	for i, icao := range icaos {
		for _, w := range windows {
			key := icao + " " + w.String()
			u := fmt.Sprintf("%s%s/%s/%s/%s", p.baseURL, arrivalsPath, url.PathEscape(icao), w.From, w.To)

			resp, err := p.client.Get(ctx, u, values, headers)
			if err != nil {
				result.Fail(i, key, err)
				continue
			}
			if err := parseArrivals(&result, i, key, icao, resp); err != nil {
				result.Fail(i, key, err)
			}
		}
	}

	return result
}

func parseArrivals(result *model.Result[model.ArrivalRecord], index int, key, icao string, resp *httpclient.Response) error {
	// The provider answers 204 with an empty body when nothing is scheduled.
	if len(resp.Body) == 0 {
		return nil
	}
	if !gjson.ValidBytes(resp.Body) {
		return errors.New("invalid JSON in arrivals response")
	}

	arrivals := gjson.GetBytes(resp.Body, "arrivals")
	if !arrivals.IsArray() {
		return errors.New("arrivals response has no arrivals")
	}

	arrivals.ForEach(func(_, a gjson.Result) bool {
		number := a.Get("number").String()
		arrivalTime, err := parseScheduled(a.Get("arrival.scheduledTime.utc").String())
		if err != nil {
			result.Fail(index, key+" "+number, err)
			return true
		}
		result.Rows = append(result.Rows, model.ArrivalRecord{
			FlightNum:     number,
			DepartureICAO: a.Get("departure.airport.icao").String(),
			ArrivalICAO:   icao,
			ArrivalTime:   arrivalTime,
			RetrievedAt:   resp.Date,
		})
		return true
	})
	return nil
}

func parseScheduled(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("missing scheduled arrival time")
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised scheduled arrival time %q", s)
}
