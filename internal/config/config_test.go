package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jensholdgaard/auctioneer/internal/config"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
		check   func(t *testing.T, cfg *config.Config)
	}{
		{
			name: "valid full config",
			yaml: `
auction:
  players_file: "players.json"
  teams: ["Alpha", "Beta"]
  initial_points: 5000
  minimum_team_size: 11
  minimum_bid: 100
  search_limit: 5
  undo_policy: "restore"
  seed: 7
discord:
  token: "test-token"
  guild_id: "123456"
  channel_id: "987"
database:
  host: "db.example.com"
  port: 5433
  user: "auction"
  password: "secret"
  dbname: "auction"
  sslmode: "require"
  driver: "sqlx"
server:
  port: 9090
  admin_password: "pw"
  session_secret: "s3cret"
  session_ttl: 1h
telemetry:
  service_name: "my-auction"
  otlp_endpoint: "localhost:4318"
`,
			wantErr: false,
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				if cfg.Discord.ChannelID != "987" {
					t.Errorf("got channel %q, want %q", cfg.Discord.ChannelID, "987")
				}
				if cfg.Database.Port != 5433 {
					t.Errorf("got db port %d, want %d", cfg.Database.Port, 5433)
				}
				if cfg.Server.Port != 9090 {
					t.Errorf("got server port %d, want %d", cfg.Server.Port, 9090)
				}
				if cfg.Server.SessionTTL != time.Hour {
					t.Errorf("got session ttl %v, want %v", cfg.Server.SessionTTL, time.Hour)
				}
				if len(cfg.Auction.Teams) != 2 || cfg.Auction.Teams[0] != "Alpha" {
					t.Errorf("got teams %v, want [Alpha Beta]", cfg.Auction.Teams)
				}
				if cfg.Auction.InitialPoints != 5000 {
					t.Errorf("got initial points %d, want %d", cfg.Auction.InitialPoints, 5000)
				}
				if cfg.Auction.UndoPolicy != config.UndoPolicyRestore {
					t.Errorf("got undo policy %q, want %q", cfg.Auction.UndoPolicy, config.UndoPolicyRestore)
				}
				if cfg.Auction.Seed != 7 {
					t.Errorf("got seed %d, want 7", cfg.Auction.Seed)
				}
			},
		},
		{
			name: "defaults applied",
			yaml: `
discord:
  token: "tok"
`,
			wantErr: false,
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				if cfg.Database.Host != "localhost" {
					t.Errorf("got db host %q, want %q", cfg.Database.Host, "localhost")
				}
				if cfg.Server.Port != 8080 {
					t.Errorf("got server port %d, want %d", cfg.Server.Port, 8080)
				}
				if cfg.Telemetry.ServiceName != "auctioneer" {
					t.Errorf("got service name %q, want %q", cfg.Telemetry.ServiceName, "auctioneer")
				}
				if cfg.Auction.InitialPoints != 110000 {
					t.Errorf("got initial points %d, want %d", cfg.Auction.InitialPoints, 110000)
				}
				if cfg.Auction.MinimumTeamSize != 13 || cfg.Auction.MinimumBid != 500 {
					t.Errorf("got rules %d/%d, want 13/500", cfg.Auction.MinimumTeamSize, cfg.Auction.MinimumBid)
				}
				if cfg.Auction.SearchLimit != 10 {
					t.Errorf("got search limit %d, want 10", cfg.Auction.SearchLimit)
				}
				if len(cfg.Auction.Teams) != len(config.DefaultTeams) {
					t.Errorf("got %d teams, want %d", len(cfg.Auction.Teams), len(config.DefaultTeams))
				}
				if cfg.Auction.UndoPolicy != config.UndoPolicyIdle {
					t.Errorf("got undo policy %q, want %q", cfg.Auction.UndoPolicy, config.UndoPolicyIdle)
				}
			},
		},
		{
			name:    "invalid yaml",
			yaml:    `{{{invalid`,
			wantErr: true,
		},
		{
			name: "unknown log level",
			yaml: `
telemetry:
  log_level: "loud"
`,
			wantErr: true,
		},
		{
			name: "unknown log format",
			yaml: `
telemetry:
  log_format: "xml"
`,
			wantErr: true,
		},
		{
			name: "debug json logging",
			yaml: `
telemetry:
  log_level: "debug"
  log_format: "json"
`,
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				if cfg.Telemetry.LogLevel != "debug" || cfg.Telemetry.LogFormat != "json" {
					t.Errorf("got logging %q/%q, want debug/json", cfg.Telemetry.LogLevel, cfg.Telemetry.LogFormat)
				}
			},
		},
		{
			name: "ent driver accepted",
			yaml: `
database:
  driver: "ent"
`,
			wantErr: false,
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				if cfg.Database.Driver != "ent" {
					t.Errorf("got driver %q, want %q", cfg.Database.Driver, "ent")
				}
			},
		},
		{
			name: "file driver accepted",
			yaml: `
database:
  driver: "file"
  path: "/var/lib/auction"
`,
			wantErr: false,
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				if cfg.Database.Path != "/var/lib/auction" {
					t.Errorf("got path %q, want %q", cfg.Database.Path, "/var/lib/auction")
				}
			},
		},
		{
			name: "invalid driver rejected",
			yaml: `
database:
  driver: "mongodb"
`,
			wantErr: true,
		},
		{
			name: "default driver is memory",
			yaml: `
discord:
  token: "tok"
`,
			wantErr: false,
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				if cfg.Database.Driver != "memory" {
					t.Errorf("got driver %q, want %q", cfg.Database.Driver, "memory")
				}
			},
		},
		{
			name: "invalid undo policy rejected",
			yaml: `
auction:
  undo_policy: "rewind"
`,
			wantErr: true,
		},
		{
			name: "duplicate team rejected",
			yaml: `
auction:
  teams: ["Alpha", "Alpha"]
`,
			wantErr: true,
		},
		{
			name: "negative initial points rejected",
			yaml: `
auction:
  initial_points: -1
`,
			wantErr: true,
		},
		{
			name: "password without secret rejected",
			yaml: `
server:
  admin_password: "pw"
`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "config.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o644); err != nil {
				t.Fatal(err)
			}

			cfg, err := config.Load(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil && cfg != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := config.Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("AUCTION_ADMIN_PASSWORD", "from-env")
	t.Setenv("AUCTION_SESSION_SECRET", "secret-env")
	t.Setenv("DISCORD_TOKEN", "discord-env")
	t.Setenv("DATABASE_PASSWORD", "db-env")

	cfg, err := config.Parse([]byte(`
server:
  admin_password: "from-file"
database:
  password: "file-pass"
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Server.AdminPassword != "from-env" {
		t.Errorf("got admin password %q, want %q", cfg.Server.AdminPassword, "from-env")
	}
	if cfg.Server.SessionSecret != "secret-env" {
		t.Errorf("got session secret %q, want %q", cfg.Server.SessionSecret, "secret-env")
	}
	if cfg.Discord.Token != "discord-env" {
		t.Errorf("got discord token %q, want %q", cfg.Discord.Token, "discord-env")
	}
	if cfg.Database.Password != "db-env" {
		t.Errorf("got db password %q, want %q", cfg.Database.Password, "db-env")
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "user",
		Password: "pass",
		DBName:   "testdb",
		SSLMode:  "disable",
	}
	want := "host=localhost port=5432 user=user password=pass dbname=testdb sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
