package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/hay-kot/criterio"
	"github.com/rs/zerolog"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Validate checks the configuration for values the service cannot start with.
// All problems are reported at once as criterio.FieldErrors.
func (c *Config) Validate() error {
	return criterio.ValidateStruct(
		c.validateAirtable(),
		c.validateDatabase(),
		c.validatePush(),
		c.validateEvents(),
		criterio.Run("dashboard.timezone", c.Dashboard.Timezone, validTimezone),
		criterio.Run("log.level", c.Log.Level, validLogLevel),
	)
}

func (c *Config) validateAirtable() error {
	var errs criterio.FieldErrorsBuilder

	if c.Airtable.APIKey == "" {
		errs = errs.Append("airtable.api_key", fmt.Errorf("is required (or set %s)", EnvAPIKey))
	}
	if c.Airtable.BaseID == "" {
		errs = errs.Append("airtable.base_id", fmt.Errorf("is required (or set %s)", EnvBaseID))
	}
	if c.Airtable.WorkOrders.Table == "" {
		errs = errs.Append("airtable.work_orders.table", fmt.Errorf("is required (or set %s)", EnvWorkOrderTable))
	}
	if c.Airtable.Technicians.Table == "" {
		errs = errs.Append("airtable.technicians.table", fmt.Errorf("is required (or set %s)", EnvTechnicianTable))
	}
	if _, err := url.ParseRequestURI(c.Airtable.BaseURL); err != nil {
		errs = errs.Append("airtable.base_url", fmt.Errorf("invalid url: %w", err))
	}
	if c.Airtable.HTTPProxy != "" {
		if _, err := url.Parse(c.Airtable.HTTPProxy); err != nil {
			errs = errs.Append("airtable.http_proxy", fmt.Errorf("invalid url: %w", err))
		}
	}
	if c.Airtable.PageSize < 0 || c.Airtable.PageSize > 100 {
		errs = errs.Append("airtable.page_size", fmt.Errorf("must be between 1 and 100, got %d", c.Airtable.PageSize))
	}

	return errs.ToError()
}

func (c *Config) validateDatabase() error {
	var errs criterio.FieldErrorsBuilder

	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		errs = errs.Append("database.driver", fmt.Errorf("unsupported driver %q", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = errs.Append("database.dsn", errors.New("is required"))
	}

	return errs.ToError()
}

func (c *Config) validatePush() error {
	if (c.Push.PublicKey == "") != (c.Push.PrivateKey == "") {
		return criterio.NewFieldErrors("push", errors.New("vapid_public_key and vapid_private_key must be set together"))
	}
	return nil
}

func (c *Config) validateEvents() error {
	if !c.Events.Enabled {
		return nil
	}
	if c.Events.URL == "" {
		return criterio.NewFieldErrors("events.url", errors.New("is required when events are enabled"))
	}
	return nil
}

func validTimezone(tz string) error {
	if tz == "" {
		return nil
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("unknown timezone %q", tz)
	}
	return nil
}

func validLogLevel(level string) error {
	if _, err := zerolog.ParseLevel(level); err != nil {
		return fmt.Errorf("invalid level %q", level)
	}
	return nil
}
