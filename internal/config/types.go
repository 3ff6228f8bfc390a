package config

import (
	"slices"

	"github.com/klabast/wb-services/timetable-roster/internal/storage"
)

// Default value constants.
const (
	DefaultFileName      = "timetable-roster.yaml"
	DefaultPort          = 8080
	DefaultBackend       = storage.KindFile
	DefaultDataDir       = "data"
	DefaultQuotaBytes    = 5 << 20
	DefaultTimezone      = "Asia/Tokyo"
	DefaultPeriodMinutes = 50
	DefaultProductID     = "-//Timetable Roster//Meetings//JA"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
)

// Environment variables consulted by the loader.
const (
	EnvConfigPath = "ROSTER_CONFIG"
	EnvDataDir    = "ROSTER_DATA_DIR"
)

// DefaultPeriodStarts holds the start time of periods 1 to 7.
var DefaultPeriodStarts = []string{"08:50", "09:50", "10:50", "11:50", "13:30", "14:30", "15:30"}

// Config is the complete configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Calendar CalendarConfig `yaml:"calendar"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig configures the HTTP view.
type ServerConfig struct {
	Port     int  `yaml:"port"`
	EditMode bool `yaml:"edit_mode"`
}

// StorageConfig selects the key-value backend.
type StorageConfig struct {
	Backend    string `yaml:"backend"`
	DataDir    string `yaml:"data_dir"`
	QuotaBytes int64  `yaml:"quota_bytes"`
}

// CalendarConfig controls the meetings calendar export.
type CalendarConfig struct {
	Timezone      string   `yaml:"timezone"`
	PeriodStarts  []string `yaml:"period_starts"`
	PeriodMinutes int      `yaml:"period_minutes"`
	ProductID     string   `yaml:"product_id"`
}

// LogConfig controls slog output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// NewDefaultConfig returns a Config with every field set to its default.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: DefaultPort},
		Storage: StorageConfig{
			Backend:    DefaultBackend,
			DataDir:    DefaultDataDir,
			QuotaBytes: DefaultQuotaBytes,
		},
		Calendar: CalendarConfig{
			Timezone:      DefaultTimezone,
			PeriodStarts:  slices.Clone(DefaultPeriodStarts),
			PeriodMinutes: DefaultPeriodMinutes,
			ProductID:     DefaultProductID,
		},
		Log: LogConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
	}
}
