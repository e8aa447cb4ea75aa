package config

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/drivegate/internal/flagx"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding config keys,
// e.g. DRIVEGATE_LINK_SECRET.
const EnvPrefix = "DRIVEGATE"

// parseFile overlays values from the config file named by -c/-config (JSON
// or YAML, detected by extension) and from DRIVEGATE_* environment variables.
// A missing -c flag is not an error; an unreadable file is.
func parseFile(config *Config) error {
	return parseFileFrom(config, flagx.ConfigFileFlag())
}

func parseFileFrom(config *Config, path string) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Every key needs a default so AutomaticEnv can see it during Unmarshal.
	for key, value := range keyValues(config) {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}

func keyValues(c *Config) map[string]any {
	return map[string]any{
		"endpoint_addr_http":    c.EndpointAddrHTTP,
		"endpoint_addr_grpc":    c.EndpointAddrGRPC,
		"directory_service_url": c.DirectoryServiceURL,
		"storage_service_url":   c.StorageServiceURL,
		"identity_service_url":  c.IdentityServiceURL,
		"link_secret":           c.LinkSecret,
		"user_header":           c.UserHeader,
		"client_name":           c.ClientName,
		"downstream_timeout":    c.DownstreamTimeout,
		"transfer_timeout":      c.TransferTimeout,
		"shutdown_timeout":      c.ShutdownTimeout,
		"archive_concurrency":   c.ArchiveConcurrency,
		"archive_max_depth":     c.ArchiveMaxDepth,
		"archive_flat_listing":  c.ArchiveFlatListing,
		"bulk_concurrency":      c.BulkConcurrency,
		"max_file_size":         c.MaxFileSize,
		"store_backend":         c.StoreBackend,
		"s3_root_user":          c.S3RootUser,
		"s3_root_password":      c.S3RootPassword,
		"s3_region":             c.S3Region,
		"s3_base_endpoint":      c.S3BaseEndpoint,
		"ledger_backend":        c.LedgerBackend,
		"database_dsn":          c.DatabaseDSN,
		"badger_dir":            c.BadgerDir,
		"log_backend":           c.LogBackend,
		"log_level":             c.LogLevel,
	}
}
