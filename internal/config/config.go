package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	EnvConfigPath = "MUSTER_CONFIG"
	EnvDotenvPath = "MUSTER_DOTENV"
)

type Sheets struct {
	Ledger    string
	Personnel string
	Real      string
	Simulated string
	Errors    string
}

type Config struct {
	HTTPAddr       string
	GRPCAddr       string
	AllowedOrigins []string

	// DB
	Env    string // "dev" | "prod"
	DBPath string // e.g. "./data/muster.db"

	Sheets   Sheets
	TimeZone string

	// Evacuation notices
	NotifyOnEvacuation bool
	Recipients         []string

	// Error log retention
	ErrorRetentionDays int // 0 = keep forever
	PruneIntervalHours int // how often the pruner runs (default 6)

	LogLevel  string
	LogFormat string // "json" | "console"
}

func Defaults() Config {
	return Config{
		HTTPAddr: ":8080",
		GRPCAddr: ":9090",
		Env:      "dev",
		DBPath:   "./data/muster.db",
		Sheets: Sheets{
			Ledger:    "Historial",
			Personnel: "Base de Datos",
			Real:      "Log_Emergencias",
			Simulated: "Log_Simulacros",
			Errors:    "Log_Errores",
		},
		TimeZone:           "America/Panama",
		NotifyOnEvacuation: true,
		ErrorRetentionDays: 30,
		PruneIntervalHours: 6,
		LogLevel:           "info",
		LogFormat:          "json",
	}
}

// Load builds the configuration from defaults, an optional TOML file named by
// MUSTER_CONFIG, and MUSTER_* environment variables, in that order. A .env
// file is read first when present; it never overrides variables already set.
func Load() (Config, error) {
	_ = godotenv.Load(getenvDefault(EnvDotenvPath, ".env"))

	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv(EnvConfigPath)); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)

	if _, err := cfg.Location(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv is Load without a config file error path; invalid files fall back
// to defaults plus environment.
func FromEnv() Config {
	cfg, err := Load()
	if err != nil {
		cfg = Defaults()
		applyEnv(&cfg)
	}
	return cfg
}

func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

type fileConfig struct {
	HTTPAddr       string   `toml:"http_addr"`
	GRPCAddr       string   `toml:"grpc_addr"`
	AllowedOrigins []string `toml:"allowed_origins"`
	Env            string   `toml:"env"`
	DBPath         string   `toml:"db_path"`
	TimeZone       string   `toml:"time_zone"`

	Sheets struct {
		Ledger    string `toml:"ledger"`
		Personnel string `toml:"personnel"`
		Real      string `toml:"real"`
		Simulated string `toml:"simulated"`
		Errors    string `toml:"errors"`
	} `toml:"sheets"`

	Notify struct {
		Enabled    bool     `toml:"enabled"`
		Recipients []string `toml:"recipients"`
	} `toml:"notify"`

	ErrorRetentionDays int    `toml:"error_retention_days"`
	PruneIntervalHours int    `toml:"prune_interval_hours"`
	LogLevel           string `toml:"log_level"`
	LogFormat          string `toml:"log_format"`
}

func applyFile(cfg *Config, path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}

	setString := func(key, v string, dst *string) {
		if meta.IsDefined(strings.Split(key, ".")...) && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	setString("http_addr", raw.HTTPAddr, &cfg.HTTPAddr)
	setString("grpc_addr", raw.GRPCAddr, &cfg.GRPCAddr)
	setString("env", raw.Env, &cfg.Env)
	setString("db_path", raw.DBPath, &cfg.DBPath)
	setString("time_zone", raw.TimeZone, &cfg.TimeZone)
	setString("sheets.ledger", raw.Sheets.Ledger, &cfg.Sheets.Ledger)
	setString("sheets.personnel", raw.Sheets.Personnel, &cfg.Sheets.Personnel)
	setString("sheets.real", raw.Sheets.Real, &cfg.Sheets.Real)
	setString("sheets.simulated", raw.Sheets.Simulated, &cfg.Sheets.Simulated)
	setString("sheets.errors", raw.Sheets.Errors, &cfg.Sheets.Errors)
	setString("log_level", raw.LogLevel, &cfg.LogLevel)
	setString("log_format", raw.LogFormat, &cfg.LogFormat)

	if meta.IsDefined("allowed_origins") {
		cfg.AllowedOrigins = splitCSV(strings.Join(raw.AllowedOrigins, ","))
	}
	if meta.IsDefined("notify", "enabled") {
		cfg.NotifyOnEvacuation = raw.Notify.Enabled
	}
	if meta.IsDefined("notify", "recipients") {
		cfg.Recipients = splitCSV(strings.Join(raw.Notify.Recipients, ","))
	}
	if meta.IsDefined("error_retention_days") {
		if raw.ErrorRetentionDays < 0 {
			return fmt.Errorf("parse error_retention_days: must not be negative")
		}
		cfg.ErrorRetentionDays = raw.ErrorRetentionDays
	}
	if meta.IsDefined("prune_interval_hours") {
		if raw.PruneIntervalHours < 0 {
			return fmt.Errorf("parse prune_interval_hours: must not be negative")
		}
		cfg.PruneIntervalHours = raw.PruneIntervalHours
	}
	cfg.Env = normalizeEnv(cfg.Env)
	return nil
}

func applyEnv(cfg *Config) {
	cfg.HTTPAddr = getenvDefault("MUSTER_HTTP_ADDR", cfg.HTTPAddr)
	cfg.GRPCAddr = getenvDefault("MUSTER_GRPC_ADDR", cfg.GRPCAddr)
	if v := splitCSV(os.Getenv("MUSTER_ALLOWED_ORIGINS")); v != nil {
		cfg.AllowedOrigins = v
	}

	cfg.Env = normalizeEnv(getenvDefault("MUSTER_ENV", cfg.Env))
	cfg.DBPath = getenvDefault("MUSTER_DB_PATH", cfg.DBPath)
	cfg.TimeZone = getenvDefault("MUSTER_TZ", cfg.TimeZone)

	cfg.Sheets.Ledger = getenvDefault("MUSTER_SHEET_LEDGER", cfg.Sheets.Ledger)
	cfg.Sheets.Personnel = getenvDefault("MUSTER_SHEET_PERSONNEL", cfg.Sheets.Personnel)
	cfg.Sheets.Real = getenvDefault("MUSTER_SHEET_REAL", cfg.Sheets.Real)
	cfg.Sheets.Simulated = getenvDefault("MUSTER_SHEET_SIMULATED", cfg.Sheets.Simulated)
	cfg.Sheets.Errors = getenvDefault("MUSTER_SHEET_ERRORS", cfg.Sheets.Errors)

	cfg.NotifyOnEvacuation = getenvBool("MUSTER_NOTIFY", cfg.NotifyOnEvacuation)
	// Primary and secondary recipients; each may hold a comma list.
	if r := splitCSV(strings.Join([]string{
		os.Getenv("MUSTER_NOTIFY_EMAIL"),
		os.Getenv("MUSTER_NOTIFY_EMAIL_SECONDARY"),
	}, ",")); r != nil {
		cfg.Recipients = r
	}

	cfg.ErrorRetentionDays = getenvInt("MUSTER_ERROR_RETENTION_DAYS", cfg.ErrorRetentionDays)
	cfg.PruneIntervalHours = getenvInt("MUSTER_PRUNE_INTERVAL_HOURS", cfg.PruneIntervalHours)

	cfg.LogLevel = getenvDefault("MUSTER_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getenvDefault("MUSTER_LOG_FORMAT", cfg.LogFormat)
}

func normalizeEnv(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v != "dev" && v != "prod" {
		// fail-soft: treat unknown as dev
		return "dev"
	}
	return v
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func getenvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
