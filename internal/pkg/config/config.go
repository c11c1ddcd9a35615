package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Upstreams UpstreamsConfig `mapstructure:"upstreams"`
	Planner   PlannerConfig   `mapstructure:"planner"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

// UpstreamsConfig holds the base URLs and shared timeout for the external
// collaborators the planner fans out to.
type UpstreamsConfig struct {
	CatalogURL    string `mapstructure:"catalog_url"`
	TopologyURL   string `mapstructure:"topology_url"`
	ArrivalsURL   string `mapstructure:"arrivals_url"`
	DirectionsURL string `mapstructure:"directions_url"`
	TimeoutSecs   int    `mapstructure:"timeout_seconds"`
}

// Timeout returns the per-call upstream timeout.
func (u UpstreamsConfig) Timeout() time.Duration {
	return time.Duration(u.TimeoutSecs) * time.Second
}

// PlannerConfig carries the tunable fan-out widths and timing constants of the
// itinerary engine. Keeping them here rather than as literals lets the
// combinatorial width be adjusted without touching the planning logic.
type PlannerConfig struct {
	OriginRadiusMeters      float64 `mapstructure:"origin_radius_meters"`
	DestinationRadiusMeters float64 `mapstructure:"destination_radius_meters"`
	MaxStopsPerSide         int     `mapstructure:"max_stops_per_side"`
	MaxArrivals             int     `mapstructure:"max_arrivals"`
	PerStopSeconds          int     `mapstructure:"per_stop_seconds"`
	WalkSpeedMps            float64 `mapstructure:"walk_speed_mps"`
	CatchBufferSeconds      int     `mapstructure:"catch_buffer_seconds"`
	BaselineToleranceSecs   int     `mapstructure:"baseline_tolerance_seconds"`
	CandidateTimeoutSecs    int     `mapstructure:"candidate_timeout_seconds"`
	FanoutLimit             int     `mapstructure:"fanout_limit"`
}

// CandidateTimeout returns the budget for a single (route, stop pair) candidate.
func (p PlannerConfig) CandidateTimeout() time.Duration {
	return time.Duration(p.CandidateTimeoutSecs) * time.Second
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "shuttle")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "shuttleplan")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("upstreams.catalog_url", "http://localhost:9101")
	v.SetDefault("upstreams.topology_url", "http://localhost:9101")
	v.SetDefault("upstreams.arrivals_url", "http://localhost:9102")
	v.SetDefault("upstreams.directions_url", "http://localhost:9103")
	v.SetDefault("upstreams.timeout_seconds", 5)
	v.SetDefault("planner.origin_radius_meters", 800.0)
	v.SetDefault("planner.destination_radius_meters", 500.0)
	v.SetDefault("planner.max_stops_per_side", 3)
	v.SetDefault("planner.max_arrivals", 2)
	v.SetDefault("planner.per_stop_seconds", 120)
	v.SetDefault("planner.walk_speed_mps", 1.4)
	v.SetDefault("planner.catch_buffer_seconds", 120)
	v.SetDefault("planner.baseline_tolerance_seconds", 300)
	v.SetDefault("planner.candidate_timeout_seconds", 8)
	v.SetDefault("planner.fanout_limit", 8)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: SHUTTLEPLAN_PLANNER_FANOUT_LIMIT → planner.fanout_limit
	v.SetEnvPrefix("SHUTTLEPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Upstreams.CatalogURL == "" {
		errs = append(errs, "upstreams.catalog_url is required")
	}
	if c.Upstreams.TopologyURL == "" {
		errs = append(errs, "upstreams.topology_url is required")
	}
	if c.Upstreams.ArrivalsURL == "" {
		errs = append(errs, "upstreams.arrivals_url is required")
	}
	if c.Upstreams.DirectionsURL == "" {
		errs = append(errs, "upstreams.directions_url is required")
	}
	if c.Upstreams.TimeoutSecs <= 0 {
		errs = append(errs, "upstreams.timeout_seconds must be positive")
	}
	if c.Planner.OriginRadiusMeters <= 0 || c.Planner.DestinationRadiusMeters <= 0 {
		errs = append(errs, "planner radii must be positive")
	}
	if c.Planner.MaxStopsPerSide <= 0 {
		errs = append(errs, "planner.max_stops_per_side must be positive")
	}
	if c.Planner.MaxArrivals <= 0 {
		errs = append(errs, "planner.max_arrivals must be positive")
	}
	if c.Planner.PerStopSeconds <= 0 {
		errs = append(errs, "planner.per_stop_seconds must be positive")
	}
	if c.Planner.WalkSpeedMps <= 0 {
		errs = append(errs, "planner.walk_speed_mps must be positive")
	}
	if c.Planner.CatchBufferSeconds < 0 {
		errs = append(errs, "planner.catch_buffer_seconds must not be negative")
	}
	if c.Planner.CandidateTimeoutSecs <= 0 {
		errs = append(errs, "planner.candidate_timeout_seconds must be positive")
	}
	if c.Planner.FanoutLimit <= 0 {
		errs = append(errs, "planner.fanout_limit must be positive")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
