package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks struct tags first, then the cross-field rules tags cannot
// express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	switch cfg.StoreBackend {
	case "http":
		if cfg.StorageServiceURL == "" {
			return fmt.Errorf("storage_service_url: required for store backend %q", cfg.StoreBackend)
		}
	case "s3":
		if cfg.S3Region == "" {
			return fmt.Errorf("s3_region: required for store backend %q", cfg.StoreBackend)
		}
	}

	switch cfg.LedgerBackend {
	case "postgres":
		if cfg.DatabaseDSN == "" {
			return fmt.Errorf("database_dsn: required for ledger backend %q", cfg.LedgerBackend)
		}
	case "badger":
		if cfg.BadgerDir == "" {
			return fmt.Errorf("badger_dir: required for ledger backend %q", cfg.LedgerBackend)
		}
	}

	return nil
}

func formatValidationError(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}
