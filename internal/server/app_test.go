package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/registadb/internal/common"
	"github.com/dmitrijs2005/registadb/internal/logging"
	"github.com/dmitrijs2005/registadb/internal/server/config"
	"github.com/dmitrijs2005/registadb/internal/server/storage"
	"github.com/stretchr/testify/require"
)

func testConfig(dir string) *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.DataDir = dir
	c.EndpointAddrGRPC = "127.0.0.1:0"
	c.EndpointAddrIngest = "127.0.0.1:0"
	c.EndpointAddrHTTP = "127.0.0.1:0"
	c.MetricsAddr = "127.0.0.1:0"
	return c
}

func TestNewApp_LockedDirectoryFails(t *testing.T) {
	dir := t.TempDir()
	engine, err := storage.Open(dir, storage.Options{NoSync: true})
	require.NoError(t, err)
	defer engine.Close()

	_, err = NewApp(testConfig(dir), logging.Nop{})
	require.Error(t, err)
	require.True(t, errors.Is(err, common.ErrStorageUnavailable))
}

func TestNewApp_StatisticsFollowConfig(t *testing.T) {
	for _, enabled := range []bool{false, true} {
		c := testConfig(t.TempDir())
		c.EnableStatistics = enabled

		app, err := NewApp(c, logging.Nop{})
		require.NoError(t, err)
		require.Equal(t, enabled, app.engine.StatisticsEnabled())

		_, err = app.engine.Stats()
		if enabled {
			require.NoError(t, err)
		} else {
			require.ErrorIs(t, err, common.ErrStatisticsDisabled)
		}
		require.NoError(t, app.engine.Close())
	}
}

func TestRun_StopsOnCancelAndReleasesStorage(t *testing.T) {
	dir := t.TempDir()
	c := testConfig(dir)
	c.EnableStatistics = true

	app, err := NewApp(c, logging.Nop{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	time.Sleep(150 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}

	engine, err := storage.Open(dir, storage.Options{NoSync: true})
	require.NoError(t, err, "lock must be released after Run")
	require.NoError(t, engine.Close())
}

func TestRun_ComponentFailureStopsApp(t *testing.T) {
	c := testConfig(t.TempDir())
	c.EndpointAddrGRPC = "127.0.0.1:99999"

	app, err := NewApp(c, logging.Nop{})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		app.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop after a component failed")
	}
}
