package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alexivanou/geocity-etl/internal/config"
	"github.com/alexivanou/geocity-etl/internal/database"
	"github.com/alexivanou/geocity-etl/internal/model"
	"github.com/alexivanou/geocity-etl/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// MockCityLocator implements CityLocator
type MockCityLocator struct {
	mock.Mock
}

func (m *MockCityLocator) Locate(ctx context.Context, names []string) (model.Result[model.CityRecord], error) {
	args := m.Called(ctx, names)
	return args.Get(0).(model.Result[model.CityRecord]), args.Error(1)
}

// MockAirportLocator implements AirportLocator
type MockAirportLocator struct {
	mock.Mock
}

func (m *MockAirportLocator) Find(ctx context.Context, lats, lons []float64) (model.Result[model.AirportRecord], error) {
	args := m.Called(ctx, lats, lons)
	return args.Get(0).(model.Result[model.AirportRecord]), args.Error(1)
}

// MockWeatherProvider implements WeatherProvider
type MockWeatherProvider struct {
	mock.Mock
}

func (m *MockWeatherProvider) Forecast(ctx context.Context, lats, lons []float64) (model.Result[model.ForecastRecord], error) {
	args := m.Called(ctx, lats, lons)
	return args.Get(0).(model.Result[model.ForecastRecord]), args.Error(1)
}

// MockFlightProvider implements FlightProvider
type MockFlightProvider struct {
	mock.Mock
}

func (m *MockFlightProvider) Arrivals(ctx context.Context, icaos []string) model.Result[model.ArrivalRecord] {
	args := m.Called(ctx, icaos)
	return args.Get(0).(model.Result[model.ArrivalRecord])
}

type recordingNotifier struct {
	events []model.SyncEvent
	err    error
}

func (n *recordingNotifier) Publish(_ context.Context, event model.SyncEvent) error {
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) Close() error { return nil }

type fixture struct {
	o        *Orchestrator
	db       *sqlx.DB
	cities   *MockCityLocator
	airports *MockAirportLocator
	weather  *MockWeatherProvider
	flights  *MockFlightProvider
	notifier *recordingNotifier
}

func setup(t *testing.T) *fixture {
	t.Helper()
	cfg := config.DBConfig{Type: config.DBTypeMemory, Name: "service_" + t.Name()}
	db, err := database.Open(context.Background(), cfg, false, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		db:       db,
		cities:   new(MockCityLocator),
		airports: new(MockAirportLocator),
		weather:  new(MockWeatherProvider),
		flights:  new(MockFlightProvider),
		notifier: &recordingNotifier{},
	}
	f.o = NewOrchestrator(
		repository.NewRepositories(db, config.DBTypeMemory),
		f.cities, f.airports, f.weather, f.flights, f.notifier, zap.NewNop(),
	)
	f.o.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return f
}

func (f *fixture) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.Get(&n, "SELECT COUNT(*) FROM "+table))
	return n
}

var (
	berlin = model.CityRecord{
		Name: "Berlin", CountryCode: "DE", Population: 3850809, PopulationYear: 2022,
		Latitude: 52.52, Longitude: 13.405, Timezone: "Europe/Berlin",
	}
	hamburg = model.CityRecord{
		Name: "Hamburg", CountryCode: "DE", Population: 1852478, PopulationYear: 2020,
		Latitude: 53.55, Longitude: 10, Timezone: "Europe/Berlin",
	}
	munich = model.CityRecord{
		Name: "Munich", CountryCode: "DE", Population: 1512491, PopulationYear: 2022,
		Latitude: 48.1375, Longitude: 11.575, Timezone: "Europe/Berlin",
	}
)

func cityResult(rows ...model.CityRecord) model.Result[model.CityRecord] {
	return model.Result[model.CityRecord]{Rows: rows}
}

func noAirports() model.Result[model.AirportRecord] {
	return model.Result[model.AirportRecord]{}
}

func TestOrchestrator_AddCities(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.cities.On("Locate", ctx, []string{"Berlin", "Hamburg"}).Return(cityResult(berlin, hamburg), nil).Once()
	f.airports.On("Find", ctx, []float64{52.52, 53.55}, []float64{13.405, 10}).Return(model.Result[model.AirportRecord]{
		Rows: []model.AirportRecord{
			{Index: 0, ICAO: "EDDB", Name: "Berlin Brandenburg", Latitude: 52.3514, Longitude: 13.4939},
			{Index: 1, ICAO: "EDDH", Name: "Hamburg", Latitude: 53.6304, Longitude: 9.9882},
			{Index: 1, ICAO: "EDDB", Name: "Berlin Brandenburg", Latitude: 52.3514, Longitude: 13.4939},
		},
	}, nil).Once()

	summary, err := f.o.AddCities(ctx, []string{"Berlin", "Hamburg", "Berlin"})
	require.NoError(t, err)
	assert.Equal(t, model.Summary{Operation: model.OpAddCities, Requested: 2, Fetched: 2, Inserted: 2}, summary)

	assert.Equal(t, 2, f.count(t, "cities"))
	assert.Equal(t, 2, f.count(t, "geo"))
	assert.Equal(t, 2, f.count(t, "population"))
	assert.Equal(t, 2, f.count(t, "airports"))

	var owner string
	require.NoError(t, f.db.Get(&owner,
		"SELECT c.city_name FROM airports a JOIN cities c ON c.city_id = a.city_id WHERE a.icao = 'EDDB'"))
	assert.Equal(t, "Berlin", owner, "first city wins a shared airport")

	var distance float64
	require.NoError(t, f.db.Get(&distance, "SELECT distance_km FROM airports WHERE icao = 'EDDB'"))
	assert.InDelta(t, 19.7, distance, 1.0)

	t.Run("Existing city is a no-op", func(t *testing.T) {
		summary, err := f.o.AddCities(ctx, []string{"Berlin"})
		require.NoError(t, err)
		assert.Zero(t, summary.Requested)
		assert.Equal(t, 2, f.count(t, "cities"))
		f.cities.AssertNumberOfCalls(t, "Locate", 1)
		f.airports.AssertNumberOfCalls(t, "Find", 1)
	})

	t.Run("Overlapping names only locate new cities", func(t *testing.T) {
		f.cities.On("Locate", ctx, []string{"Munich"}).Return(cityResult(munich), nil).Once()
		f.airports.On("Find", ctx, []float64{52.52, 53.55, 48.1375}, []float64{13.405, 10, 11.575}).
			Return(noAirports(), nil).Once()

		summary, err := f.o.AddCities(ctx, []string{"Hamburg", "Munich"})
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Inserted)
		assert.Equal(t, 3, f.count(t, "cities"))
		assert.Equal(t, 3, f.count(t, "population"))
		assert.Equal(t, 2, f.count(t, "airports"))
	})

	f.cities.AssertExpectations(t)
	f.airports.AssertExpectations(t)
}

func TestOrchestrator_AddCitiesPartialFailure(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	result := cityResult(hamburg)
	result.Fail(0, "Atlantis", errors.New("no infobox in article"))
	f.cities.On("Locate", ctx, []string{"Atlantis", "Hamburg"}).Return(result, nil)
	f.airports.On("Find", ctx, mock.Anything, mock.Anything).Return(noAirports(), nil)

	summary, err := f.o.AddCities(ctx, []string{"Atlantis", "Hamburg"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Warnings)
	assert.Equal(t, 1, summary.Inserted)
	assert.Equal(t, 1, f.count(t, "cities"))
}

func TestOrchestrator_AddCitiesNothingResolved(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.cities.On("Locate", ctx, []string{"Atlantis"}).Return(cityResult(), nil)

	summary, err := f.o.AddCities(ctx, []string{"Atlantis"})
	require.NoError(t, err)
	assert.Zero(t, summary.Inserted)
	f.airports.AssertNotCalled(t, "Find", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrchestrator_AddCitiesLocatorError(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.cities.On("Locate", ctx, []string{"Berlin"}).Return(cityResult(), errors.New("HTTP 503"))

	_, err := f.o.AddCities(ctx, []string{"Berlin"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 503")
	assert.Zero(t, f.count(t, "cities"))
	assert.Empty(t, f.notifier.events)
}

func TestOrchestrator_FetchPopulation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.cities.On("Locate", ctx, []string{"Berlin", "Hamburg"}).Return(cityResult(berlin, hamburg), nil).Once()
	f.airports.On("Find", ctx, mock.Anything, mock.Anything).Return(noAirports(), nil)
	_, err := f.o.AddCities(ctx, []string{"Berlin", "Hamburg"})
	require.NoError(t, err)

	t.Run("Unchanged source inserts nothing", func(t *testing.T) {
		f.cities.On("Locate", ctx, []string{"Berlin", "Hamburg"}).Return(cityResult(berlin, hamburg), nil).Twice()

		for i := 0; i < 2; i++ {
			summary, err := f.o.FetchPopulation(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, summary.Fetched)
			assert.Zero(t, summary.Inserted)
		}
		assert.Equal(t, 2, f.count(t, "population"))
	})

	t.Run("New figure is inserted once", func(t *testing.T) {
		updated := berlin
		updated.Population = 3878100
		updated.PopulationYear = 2023
		f.cities.On("Locate", ctx, []string{"Berlin", "Hamburg"}).Return(cityResult(updated, hamburg), nil).Twice()

		summary, err := f.o.FetchPopulation(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Inserted)

		summary, err = f.o.FetchPopulation(ctx)
		require.NoError(t, err)
		assert.Zero(t, summary.Inserted)
		assert.Equal(t, 3, f.count(t, "population"))
	})
}

func TestNewPopulation(t *testing.T) {
	latest := []model.Population{
		{ID: 7, CityID: 1, Population: 3850809, PopulationYear: 2022},
		{ID: 9, CityID: 2, Population: 1852478, PopulationYear: 2020},
	}
	scraped := []model.Population{
		{CityID: 1, Population: 3850809, PopulationYear: 2022},
		{CityID: 2, Population: 1860000, PopulationYear: 2023},
		{CityID: 3, Population: 1512491, PopulationYear: 2022},
	}

	assert.Equal(t, []model.Population{
		{CityID: 2, Population: 1860000, PopulationYear: 2023},
		{CityID: 3, Population: 1512491, PopulationYear: 2022},
	}, newPopulation(latest, scraped))

	assert.Empty(t, newPopulation(latest, nil))
}

func TestOrchestrator_FetchWeather(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.cities.On("Locate", ctx, mock.Anything).Return(cityResult(berlin, hamburg, munich), nil)
	f.airports.On("Find", ctx, mock.Anything, mock.Anything).Return(noAirports(), nil)
	_, err := f.o.AddCities(ctx, []string{"Berlin", "Hamburg", "Munich"})
	require.NoError(t, err)

	retrieved := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	forecast := model.Result[model.ForecastRecord]{
		Rows: []model.ForecastRecord{
			{Index: 0, ForecastTime: retrieved.Add(3 * time.Hour), Outlook: "light rain", Temperature: 7, RetrievedAt: retrieved},
			{Index: 0, ForecastTime: retrieved.Add(6 * time.Hour), Outlook: "overcast clouds", Temperature: 6, RetrievedAt: retrieved},
			{Index: 2, ForecastTime: retrieved.Add(3 * time.Hour), Outlook: "clear sky", Temperature: 11, RetrievedAt: retrieved},
		},
	}
	forecast.Fail(1, "53.55/10.00", errors.New("HTTP 401"))
	f.weather.On("Forecast", ctx, []float64{52.52, 53.55, 48.1375}, []float64{13.405, 10, 11.575}).Return(forecast, nil)

	summary, err := f.o.FetchWeather(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Summary{Operation: model.OpFetchWeather, Requested: 3, Fetched: 3, Inserted: 3, Warnings: 1}, summary)

	var cities []string
	require.NoError(t, f.db.Select(&cities,
		"SELECT c.city_name FROM weather w JOIN cities c ON c.city_id = w.city_id ORDER BY w.weather_id"))
	assert.Equal(t, []string{"Berlin", "Berlin", "Munich"}, cities)

	t.Run("Every call appends a snapshot", func(t *testing.T) {
		_, err := f.o.FetchWeather(ctx)
		require.NoError(t, err)
		assert.Equal(t, 6, f.count(t, "weather"))
	})

	t.Run("Length mismatch is returned", func(t *testing.T) {
		w := new(MockWeatherProvider)
		w.On("Forecast", ctx, mock.Anything, mock.Anything).Return(model.Result[model.ForecastRecord]{}, model.ErrLengthMismatch)
		f.o.weather = w

		_, err := f.o.FetchWeather(ctx)
		assert.ErrorIs(t, err, model.ErrLengthMismatch)
	})
}

func TestOrchestrator_FetchFlights(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.cities.On("Locate", ctx, mock.Anything).Return(cityResult(berlin), nil)
	f.airports.On("Find", ctx, mock.Anything, mock.Anything).Return(model.Result[model.AirportRecord]{
		Rows: []model.AirportRecord{{Index: 0, ICAO: "EDDB", Name: "Berlin Brandenburg", Latitude: 52.3514, Longitude: 13.4939}},
	}, nil)
	_, err := f.o.AddCities(ctx, []string{"Berlin"})
	require.NoError(t, err)

	retrieved := time.Date(2024, 3, 1, 19, 0, 0, 0, time.UTC)
	arrivals := model.Result[model.ArrivalRecord]{
		Rows: []model.ArrivalRecord{
			{FlightNum: "LH 180", DepartureICAO: "EDDF", ArrivalICAO: "EDDB", ArrivalTime: retrieved.Add(11 * time.Hour), RetrievedAt: retrieved},
			{FlightNum: "XQ 999", ArrivalICAO: "EDDB", ArrivalTime: retrieved.Add(14 * time.Hour), RetrievedAt: retrieved},
		},
	}
	f.flights.On("Arrivals", ctx, []string{"EDDB"}).Return(arrivals)

	summary, err := f.o.FetchFlights(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Inserted)

	var nullDepartures int
	require.NoError(t, f.db.Get(&nullDepartures, "SELECT COUNT(*) FROM flights WHERE departure_icao IS NULL"))
	assert.Equal(t, 1, nullDepartures)
}

func TestOrchestrator_EmptyStore(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for _, op := range []func(context.Context) (model.Summary, error){
		f.o.AddAirports, f.o.FetchPopulation, f.o.FetchWeather, f.o.FetchFlights,
	} {
		summary, err := op(ctx)
		require.NoError(t, err)
		assert.Zero(t, summary.Requested)
	}

	f.cities.AssertNotCalled(t, "Locate", mock.Anything, mock.Anything)
	f.airports.AssertNotCalled(t, "Find", mock.Anything, mock.Anything, mock.Anything)
	f.weather.AssertNotCalled(t, "Forecast", mock.Anything, mock.Anything, mock.Anything)
	f.flights.AssertNotCalled(t, "Arrivals", mock.Anything, mock.Anything)
}

func TestOrchestrator_PublishesEvents(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.notifier.err = errors.New("nats: connection closed")

	f.cities.On("Locate", ctx, mock.Anything).Return(cityResult(berlin), nil)
	f.airports.On("Find", ctx, mock.Anything, mock.Anything).Return(noAirports(), nil)

	_, err := f.o.AddCities(ctx, []string{"Berlin"})
	require.NoError(t, err, "publish errors are not returned")

	require.Len(t, f.notifier.events, 2)
	assert.Equal(t, model.OpAddCities, f.notifier.events[0].Operation)
	assert.Equal(t, model.OpAddAirports, f.notifier.events[1].Operation)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), f.notifier.events[0].CompletedAt)
}

func TestUniqueNames(t *testing.T) {
	assert.Equal(t, []string{"Berlin", "Hamburg"}, uniqueNames([]string{" Berlin", "", "Hamburg", "Berlin "}))
	assert.Empty(t, uniqueNames(nil))
}

func TestOrchestrator_Warn(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	o := &Orchestrator{logger: zap.New(core)}

	var result model.Result[model.ForecastRecord]
	result.Fail(0, "52.52/13.41", errors.New("timeout"))
	result.Fail(2, "48.14/11.58", errors.New("HTTP 500"))

	summary := model.Summary{Operation: model.OpFetchWeather, Warnings: 1}
	o.warn(&summary, result.Err())

	assert.Equal(t, 3, summary.Warnings)
	entries := logs.FilterMessage("Item skipped").All()
	require.Len(t, entries, 2)

	first := entries[0].ContextMap()
	assert.Equal(t, model.OpFetchWeather, first["operation"])
	assert.Equal(t, int64(0), first["index"])
	assert.Equal(t, "52.52/13.41", first["key"])
	assert.Equal(t, "timeout", first["error"])
	assert.Equal(t, int64(2), entries[1].ContextMap()["index"])

	t.Run("No failures", func(t *testing.T) {
		var ok model.Result[model.ForecastRecord]
		o.warn(&summary, ok.Err())
		assert.Equal(t, 3, summary.Warnings)
		assert.Equal(t, 2, logs.Len())
	})
}
