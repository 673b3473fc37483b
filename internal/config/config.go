package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Undo policies accepted by AuctionConfig.UndoPolicy.
const (
	UndoPolicyIdle    = "idle"
	UndoPolicyRestore = "restore"
)

// DefaultTeams is the team roster used when none is configured.
var DefaultTeams = []string{
	"Naman Communication",
	"bhagat sing club",
	"Yaar Albela",
	"Maa Santoshi",
	"Ramdevariya",
	"Maa Karni club",
	"Lemda Eleven",
	"Risingin Star",
	"Pareek Patrolium",
	"Rajasthan Royal",
	"Kevin XI",
	"khetarpal Eleven",
	"Dadoji Eleven",
	"Jabaz Eleven",
	"Review Later",
}

// Config represents the application configuration.
type Config struct {
	Auction        AuctionConfig        `yaml:"auction"`
	Discord        DiscordConfig        `yaml:"discord"`
	Database       DatabaseConfig       `yaml:"database"`
	Server         ServerConfig         `yaml:"server"`
	Telemetry      TelemetryConfig      `yaml:"telemetry"`
	LeaderElection LeaderElectionConfig `yaml:"leader_election"`
}

// AuctionConfig holds the rules of the auction itself.
type AuctionConfig struct {
	// PlayersFile is the JSON player catalog. When empty the catalog is read
	// from the configured database.
	PlayersFile     string   `yaml:"players_file"`
	Teams           []string `yaml:"teams"`
	InitialPoints   int      `yaml:"initial_points"`
	MinimumTeamSize int      `yaml:"minimum_team_size"`
	MinimumBid      int      `yaml:"minimum_bid"`
	SearchLimit     int      `yaml:"search_limit"`
	UndoPolicy      string   `yaml:"undo_policy"`
	// Seed makes draws reproducible when non-zero.
	Seed uint64 `yaml:"seed"`
}

// DiscordConfig holds Discord bot settings. The bot is disabled when Token is empty.
type DiscordConfig struct {
	Token     string `yaml:"token"`
	GuildID   string `yaml:"guild_id"`
	ChannelID string `yaml:"channel_id"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "memory", "file", "sqlx" or "ent"
	Path     string `yaml:"path"`   // directory for the "file" driver
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	Migrate  bool   `yaml:"migrate"`
}

// DSN returns the Postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AdminPassword   string        `yaml:"admin_password"`
	SessionSecret   string        `yaml:"session_secret"`
	SessionTTL      time.Duration `yaml:"session_ttl"`
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	Insecure       bool   `yaml:"insecure"`
	// LogLevel is one of debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
	// LogFormat selects the stderr handler used without an OTLP endpoint:
	// "text" or "json".
	LogFormat string `yaml:"log_format"`
}

// LeaderElectionConfig holds Kubernetes leader election settings.
type LeaderElectionConfig struct {
	Enabled        bool          `yaml:"enabled"`
	LeaseName      string        `yaml:"lease_name"`
	LeaseNamespace string        `yaml:"lease_namespace"`
	LeaseDuration  time.Duration `yaml:"lease_duration"`
	RenewDeadline  time.Duration `yaml:"renew_deadline"`
	RetryPeriod    time.Duration `yaml:"retry_period"`
	// Identity names this replica in the lease. Defaults to POD_NAME or the hostname.
	Identity string `yaml:"identity"`
	// Kubeconfig is used instead of the in-cluster config when set.
	Kubeconfig string `yaml:"kubeconfig"`
}

// Load reads a YAML configuration file from the given path. Secrets set in the
// environment take precedence over the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, applying defaults, environment overrides
// and validation.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnv()

	if len(cfg.Auction.Teams) == 0 {
		cfg.Auction.Teams = append([]string(nil), DefaultTeams...)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when a field is not set.
func Default() *Config {
	return &Config{
		Auction: AuctionConfig{
			InitialPoints:   110000,
			MinimumTeamSize: 13,
			MinimumBid:      500,
			SearchLimit:     10,
			UndoPolicy:      UndoPolicyIdle,
		},
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 15 * time.Second,
			SessionTTL:      12 * time.Hour,
		},
		Database: DatabaseConfig{
			Driver:  "memory",
			Path:    "data",
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "auctioneer",
			ServiceVersion: "0.1.0",
			LogLevel:       "info",
			LogFormat:      "text",
		},
		LeaderElection: LeaderElectionConfig{
			Enabled:        false,
			LeaseName:      "auctioneer-leader",
			LeaseNamespace: "default",
			LeaseDuration:  15 * time.Second,
			RenewDeadline:  10 * time.Second,
			RetryPeriod:    2 * time.Second,
		},
	}
}

func (c *Config) applyEnv() {
	for env, dst := range map[string]*string{
		"AUCTION_ADMIN_PASSWORD": &c.Server.AdminPassword,
		"AUCTION_SESSION_SECRET": &c.Server.SessionSecret,
		"DISCORD_TOKEN":          &c.Discord.Token,
		"DATABASE_PASSWORD":      &c.Database.Password,
	} {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			*dst = v
		}
	}
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "memory", "file", "sqlx", "ent":
		// valid
	default:
		return fmt.Errorf("unsupported database driver %q: must be one of memory, file, sqlx, ent", c.Database.Driver)
	}

	a := c.Auction
	switch a.UndoPolicy {
	case UndoPolicyIdle, UndoPolicyRestore:
	default:
		return fmt.Errorf("unsupported undo policy %q: must be %q or %q", a.UndoPolicy, UndoPolicyIdle, UndoPolicyRestore)
	}
	if a.InitialPoints < 0 {
		return fmt.Errorf("auction.initial_points must not be negative, got %d", a.InitialPoints)
	}
	if a.MinimumTeamSize < 0 || a.MinimumBid < 0 {
		return fmt.Errorf("auction.minimum_team_size and auction.minimum_bid must not be negative")
	}

	seen := make(map[string]struct{}, len(a.Teams))
	for _, name := range a.Teams {
		if name == "" {
			return fmt.Errorf("auction.teams contains an empty name")
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("auction.teams contains %q twice", name)
		}
		seen[name] = struct{}{}
	}

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Telemetry.LogLevel)); err != nil {
		return fmt.Errorf("telemetry.log_level: %w", err)
	}
	if f := c.Telemetry.LogFormat; f != "text" && f != "json" {
		return fmt.Errorf("telemetry.log_format must be text or json, got %q", f)
	}

	if c.Server.AdminPassword != "" && c.Server.SessionSecret == "" {
		return fmt.Errorf("server.session_secret is required when server.admin_password is set")
	}
	return nil
}
