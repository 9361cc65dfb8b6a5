package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/registadb/internal/flagx"
	"github.com/dmitrijs2005/registadb/internal/timex"
)

// JsonConfig is the on-disk shape of the optional JSON config file. Interval
// fields use timex.Duration, so both "15m" and integer nanoseconds parse.
//
// Pointer fields distinguish "absent" from "false"/"" so that a partial file
// only overrides what it names.
type JsonConfig struct {
	DataDir            *string         `json:"data_dir"`
	EnableStatistics   *bool           `json:"enable_statistics"`
	EndpointAddrGRPC   *string         `json:"endpoint_addr_grpc"`
	EndpointAddrIngest *string         `json:"endpoint_addr_ingest"`
	EndpointAddrHTTP   *string         `json:"endpoint_addr_http"`
	MetricsAddr        *string         `json:"metrics_addr"`
	SecretKey          *string         `json:"secret_key"`
	BackupInterval     *timex.Duration `json:"backup_interval"`
	S3RootUser         *string         `json:"s3_root_user"`
	S3RootPassword     *string         `json:"s3_root_password"`
	S3Bucket           *string         `json:"s3_bucket"`
	S3Region           *string         `json:"s3_region"`
	S3BaseEndpoint     *string         `json:"s3_base_endpoint"`
	Verbose            *bool           `json:"verbose"`
}

// parseJson overlays config with the JSON file named by -c/-config. Without
// the flag nothing is loaded. An unreadable file or invalid JSON panics; the
// server cannot start on a config it cannot read.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(data, c); err != nil {
		panic(err)
	}

	setString(&config.DataDir, c.DataDir)
	setBool(&config.EnableStatistics, c.EnableStatistics)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.EndpointAddrIngest, c.EndpointAddrIngest)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.MetricsAddr, c.MetricsAddr)
	setString(&config.SecretKey, c.SecretKey)
	if c.BackupInterval != nil {
		config.BackupInterval = c.BackupInterval.Duration
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setBool(&config.Verbose, c.Verbose)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
