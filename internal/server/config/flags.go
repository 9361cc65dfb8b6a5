package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/registadb/internal/flagx"
)

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   storage directory
//	-stats      enable engine statistics and the metrics endpoint
//	-q string   query channel (gRPC) bind address
//	-i string   ingest channel bind address
//	-a string   REST bind address
//	-m string   metrics bind address
//	-s string   JWT HMAC secret key
//	-backup int snapshot backup interval, minutes (0 disables)
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint
//	-v          debug logging
//
// Only the flags declared here are parsed; everything else in os.Args is
// skipped via flagx.FilterFor.
func parseFlags(config *Config) {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DataDir, "d", config.DataDir, "storage directory")
	fs.BoolVar(&config.EnableStatistics, "stats", config.EnableStatistics, "enable engine statistics")
	fs.StringVar(&config.EndpointAddrGRPC, "q", config.EndpointAddrGRPC, "query channel address")
	fs.StringVar(&config.EndpointAddrIngest, "i", config.EndpointAddrIngest, "ingest channel address")
	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "REST address")
	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "metrics address")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	backupInterval := fs.Int("backup", int(config.BackupInterval.Minutes()), "backup interval (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.BoolVar(&config.Verbose, "v", config.Verbose, "debug logging")

	if err := fs.Parse(flagx.FilterFor(os.Args[1:], fs)); err != nil {
		panic(err)
	}

	config.BackupInterval = time.Duration(*backupInterval) * time.Minute
}
