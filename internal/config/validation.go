package config

import (
	"fmt"
	"slices"
	"time"
	_ "time/tzdata"

	"github.com/klabast/wb-services/timetable-roster/internal/storage"
)

// MinPeriods is the number of period start times the meeting calendar needs.
const MinPeriods = 7

var (
	validBackends   = []string{storage.KindFile, storage.KindSQLite, storage.KindMemory}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json"}
)

// Validate checks the configuration for correctness.
func Validate(cfg *Config) error {
	var errs []ValidationError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateCalendar(&cfg.Calendar)...)
	errs = append(errs, validateLog(&cfg.Log)...)

	if len(errs) > 0 {
		return &ValidationErrors{Errors: errs}
	}
	return nil
}

func validateServer(s *ServerConfig) []ValidationError {
	if s.Port < 1 || s.Port > 65535 {
		return []ValidationError{{
			Field:   "server.port",
			Message: "must be between 1 and 65535",
			Value:   s.Port,
			Wrapped: ErrInvalidPort,
		}}
	}
	return nil
}

func validateStorage(s *StorageConfig) []ValidationError {
	var errs []ValidationError
	if !slices.Contains(validBackends, s.Backend) {
		errs = append(errs, ValidationError{
			Field:   "storage.backend",
			Message: "unknown backend",
			Value:   s.Backend,
			Wrapped: ErrInvalidBackend,
		})
	}
	if s.Backend != storage.KindMemory && s.DataDir == "" {
		errs = append(errs, ValidationError{
			Field:   "storage.data_dir",
			Message: "required for persistent backends",
			Wrapped: ErrInvalidConfig,
		})
	}
	if s.QuotaBytes < 0 {
		errs = append(errs, ValidationError{
			Field:   "storage.quota_bytes",
			Message: "must not be negative (0 disables the quota)",
			Value:   s.QuotaBytes,
			Wrapped: ErrInvalidConfig,
		})
	}
	return errs
}

func validateCalendar(c *CalendarConfig) []ValidationError {
	var errs []ValidationError
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, ValidationError{
			Field:   "calendar.timezone",
			Message: err.Error(),
			Value:   c.Timezone,
			Wrapped: ErrInvalidTimezone,
		})
	}
	if len(c.PeriodStarts) < MinPeriods {
		errs = append(errs, ValidationError{
			Field:   "calendar.period_starts",
			Message: fmt.Sprintf("needs at least %d entries", MinPeriods),
			Value:   len(c.PeriodStarts),
			Wrapped: ErrInvalidPeriodTime,
		})
	}
	for i, start := range c.PeriodStarts {
		if _, err := time.Parse("15:04", start); err != nil {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("calendar.period_starts[%d]", i),
				Message: "must be HH:MM",
				Value:   start,
				Wrapped: ErrInvalidPeriodTime,
			})
		}
	}
	if c.PeriodMinutes <= 0 {
		errs = append(errs, ValidationError{
			Field:   "calendar.period_minutes",
			Message: "must be positive",
			Value:   c.PeriodMinutes,
			Wrapped: ErrInvalidConfig,
		})
	}
	return errs
}

func validateLog(l *LogConfig) []ValidationError {
	var errs []ValidationError
	if !slices.Contains(validLogLevels, l.Level) {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: "unknown level",
			Value:   l.Level,
			Wrapped: ErrInvalidLogLevel,
		})
	}
	if !slices.Contains(validLogFormats, l.Format) {
		errs = append(errs, ValidationError{
			Field:   "log.format",
			Message: "must be text or json",
			Value:   l.Format,
			Wrapped: ErrInvalidConfig,
		})
	}
	return errs
}
