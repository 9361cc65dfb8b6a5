// Package config handles configuration for the server component,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the RegistaDB server.
//
// Fields:
//   - DataDir: storage directory, created if absent.
//   - EnableStatistics: collect engine statistics and serve them on MetricsAddr.
//   - EndpointAddrGRPC / EndpointAddrIngest / EndpointAddrHTTP: bind addresses for
//     the query channel, the push ingest channel and the REST façade.
//   - MetricsAddr: bind address for /metrics, used only with EnableStatistics.
//   - SecretKey: HMAC secret for bearer JWTs (HS256). Empty disables auth.
//   - BackupInterval: period of snapshot uploads to S3. Zero disables backups.
//   - S3RootUser / S3RootPassword / S3Bucket / S3Region / S3BaseEndpoint: object storage settings.
//   - Verbose: enables Debug logging.
type Config struct {
	DataDir            string
	EnableStatistics   bool
	EndpointAddrGRPC   string
	EndpointAddrIngest string
	EndpointAddrHTTP   string
	MetricsAddr        string
	SecretKey          string
	BackupInterval     time.Duration
	S3RootUser         string
	S3RootPassword     string
	S3Bucket           string
	S3Region           string
	S3BaseEndpoint     string
	Verbose            bool
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.DataDir = "./data/registadb_store"
	c.EnableStatistics = false
	c.EndpointAddrGRPC = ":5556"
	c.EndpointAddrIngest = ":5555"
	c.EndpointAddrHTTP = ":8000"
	c.MetricsAddr = ":8080"
	c.SecretKey = ""
	c.BackupInterval = 0
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "registadb-snapshots"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.Verbose = false
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
