package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/alexivanou/geocity-etl/internal/config"
	"github.com/alexivanou/geocity-etl/internal/database"
	"go.uber.org/zap"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := newRootCmd()

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, expected := range []string{
		"setup", "add-cities", "add-airports", "fetch-population", "fetch-weather", "fetch-flights",
	} {
		assert.Contains(t, names, expected)
	}
}

func TestAddCitiesCmd_RequiresCities(t *testing.T) {
	t.Setenv("SYNC_CITIES", "")
	t.Setenv("DB_TYPE", "memory")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"add-cities"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SYNC_CITIES")
}

func TestSetupCmd_Memory(t *testing.T) {
	t.Setenv("DB_TYPE", "memory")
	t.Setenv("DB_NAME", "etl_setup_test")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"setup", "--reset"})
	assert.NoError(t, cmd.Execute())
}

func TestSyncCmd_RejectsArgs(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"fetch-weather", "Berlin"})

	assert.Error(t, cmd.Execute())
}

func TestSyncCmd_KeepsDataWhenResetIsSet(t *testing.T) {
	t.Setenv("DB_TYPE", "memory")
	t.Setenv("DB_NAME", "etl_keep_data_test")
	t.Setenv("DB_RESET", "true")
	t.Setenv("NATS_URL", "")

	// Holding a connection keeps the shared in-memory database alive between commands
	db, err := database.Open(context.Background(),
		config.DBConfig{Type: config.DBTypeMemory, Name: "etl_keep_data_test"}, false, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("INSERT INTO cities (city_name, country_code) VALUES (?, ?)", "Berlin", "DE")
	require.NoError(t, err)

	for _, name := range []string{"fetch-weather", "fetch-flights", "add-airports"} {
		t.Run(name, func(t *testing.T) {
			cmd := newRootCmd()
			cmd.SetArgs([]string{name})
			require.NoError(t, cmd.Execute())

			var count int
			require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM cities"))
			assert.Equal(t, 1, count)
		})
	}

	t.Run("setup honours DB_RESET", func(t *testing.T) {
		cmd := newRootCmd()
		cmd.SetArgs([]string{"setup"})
		require.NoError(t, cmd.Execute())

		var count int
		require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM cities"))
		assert.Equal(t, 0, count)
	})
}
