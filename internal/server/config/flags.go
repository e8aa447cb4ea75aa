package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/drivegate/internal/flagx"
)

// serverFlags are the short flags handled by parseFlags.
var serverFlags = []string{"-a", "-g", "-d", "-o", "-i", "-s", "-t", "-T", "-w", "-m", "-W", "-b", "-l", "-D", "-L"}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     HTTP bind address (e.g. ":8080")
//	-g string     gRPC health bind address
//	-d string     object directory base URL
//	-o string     object store (storage service) base URL
//	-i string     identity directory base URL
//	-s string     link secret
//	-t duration   downstream call timeout (e.g. "30s")
//	-T duration   content transfer timeout (e.g. "30m")
//	-w int        archive download concurrency
//	-m int        archive breadth-first max depth
//	-W int        bulk delete and share concurrency
//	-b string     store backend (http|s3)
//	-l string     ledger backend (memory|postgres|badger)
//	-D string     PostgreSQL DSN for the postgres ledger
//	-L string     log level
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], serverFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run HTTP server")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "address and port to run gRPC health server")
	fs.StringVar(&config.DirectoryServiceURL, "d", config.DirectoryServiceURL, "object directory URL")
	fs.StringVar(&config.StorageServiceURL, "o", config.StorageServiceURL, "object store URL")
	fs.StringVar(&config.IdentityServiceURL, "i", config.IdentityServiceURL, "identity directory URL")
	fs.StringVar(&config.LinkSecret, "s", config.LinkSecret, "share link secret")
	fs.DurationVar(&config.DownstreamTimeout, "t", config.DownstreamTimeout, "downstream call timeout")
	fs.DurationVar(&config.TransferTimeout, "T", config.TransferTimeout, "content transfer timeout")
	fs.IntVar(&config.ArchiveConcurrency, "w", config.ArchiveConcurrency, "archive download concurrency")
	fs.IntVar(&config.ArchiveMaxDepth, "m", config.ArchiveMaxDepth, "archive hierarchy max depth")
	fs.IntVar(&config.BulkConcurrency, "W", config.BulkConcurrency, "bulk operation concurrency")
	fs.StringVar(&config.StoreBackend, "b", config.StoreBackend, "store backend (http|s3)")
	fs.StringVar(&config.LedgerBackend, "l", config.LedgerBackend, "ledger backend (memory|postgres|badger)")
	fs.StringVar(&config.DatabaseDSN, "D", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.LogLevel, "L", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
