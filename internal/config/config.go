package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

const (
	EnvPrefix = "MINDLESS"

	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	Bind           string
	Port           int
	Dev            bool
	LogLevel       string
	Store          string
	DatabaseURL    string
	Archive        bool
	RoomMaxAge     time.Duration
	SweepInterval  time.Duration
	ThemesFile     string
	RateLimit      float64
	RateBurst      int
	AllowedOrigins []string
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %q", c.LogLevel)
	}
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("--store=postgres requires --database-url")
		}
	default:
		return fmt.Errorf("unknown store %q (want memory or postgres)", c.Store)
	}
	if c.Archive && c.DatabaseURL == "" {
		return errors.New("--archive requires --database-url")
	}
	if c.RoomMaxAge <= 0 || c.SweepInterval <= 0 {
		return errors.New("--room-max-age and --sweep-interval must be positive")
	}
	if c.RateLimit <= 0 || c.RateBurst <= 0 {
		return errors.New("--rate-limit and --rate-burst must be positive")
	}
	return nil
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

// NewCommand builds the root command. Flags fall back to MINDLESS_* env vars,
// which may come from a .env file in the working directory.
func NewCommand(cfg *Config, run func(ctx context.Context, cfg *Config) error) *cobra.Command {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "ignoring .env: %v\n", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "mindless",
		Short: "Game server for Mindless, a word game where one player has no idea what the theme is.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: MINDLESS_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 3001, "port to listen on (env: MINDLESS_PORT)")
	fs.BoolVar(&cfg.Dev, "dev", false, "human-readable logs (env: MINDLESS_DEV)")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "debug, info, warn or error (env: MINDLESS_LOG_LEVEL)")
	fs.StringVar(&cfg.Store, "store", StoreMemory, "room store: memory or postgres (env: MINDLESS_STORE)")
	fs.StringVar(&cfg.DatabaseURL, "database-url", "", "postgres connection string (env: MINDLESS_DATABASE_URL)")
	fs.BoolVar(&cfg.Archive, "archive", false, "archive finished rounds to postgres (env: MINDLESS_ARCHIVE)")
	fs.DurationVar(&cfg.RoomMaxAge, "room-max-age", 24*time.Hour, "idle time before waiting or finished rooms are removed (env: MINDLESS_ROOM_MAX_AGE)")
	fs.DurationVar(&cfg.SweepInterval, "sweep-interval", time.Hour, "how often to look for idle rooms (env: MINDLESS_SWEEP_INTERVAL)")
	fs.StringVar(&cfg.ThemesFile, "themes-file", "", "JSON theme catalog replacing the built-in one (env: MINDLESS_THEMES_FILE)")
	fs.Float64Var(&cfg.RateLimit, "rate-limit", 10, "messages per second per connection (env: MINDLESS_RATE_LIMIT)")
	fs.IntVar(&cfg.RateBurst, "rate-burst", 20, "message burst per connection (env: MINDLESS_RATE_BURST)")
	fs.StringSliceVar(&cfg.AllowedOrigins, "allowed-origins", nil, "extra websocket origin patterns (env: MINDLESS_ALLOWED_ORIGINS)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
