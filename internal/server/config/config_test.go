package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "./data/registadb_store", c.DataDir)
	assert.False(t, c.EnableStatistics)
	assert.Equal(t, ":5556", c.EndpointAddrGRPC)
	assert.Equal(t, ":5555", c.EndpointAddrIngest)
	assert.Equal(t, ":8000", c.EndpointAddrHTTP)
	assert.Equal(t, ":8080", c.MetricsAddr)
	assert.Empty(t, c.SecretKey)
	assert.Equal(t, time.Duration(0), c.BackupInterval)
	assert.Equal(t, "registadb-snapshots", c.S3Bucket)
	assert.Equal(t, "us-east-1", c.S3Region)
	assert.False(t, c.Verbose)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}

	c := LoadConfig()
	require.NotNil(t, c, "LoadConfig must not return nil")

	var want Config
	want.LoadDefaults()
	assert.Equal(t, want, *c)
}

func TestLoadConfig_FlagsOverrideJSON(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, "", "", map[string]any{
		"data_dir":           "/from/json",
		"endpoint_addr_http": ":9000",
	})
	os.Args = []string{"testbin", "-c", path, "-d", "/from/flag"}

	c := LoadConfig()

	assert.Equal(t, "/from/flag", c.DataDir)
	assert.Equal(t, ":9000", c.EndpointAddrHTTP)
	assert.Equal(t, ":5556", c.EndpointAddrGRPC)
}
