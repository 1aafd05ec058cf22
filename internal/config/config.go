package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/benbeisheim/chess-backend/internal/model"
)

// Config holds the server settings. Every flag falls back to an environment
// variable, then to the default.
type Config struct {
	Addr          string
	AllowOrigins  string
	ClockTime     time.Duration
	MatchInterval time.Duration
	HistoryDir    string
	StartLayout   string
	WSBufferSize  int

	// UnderpromotedCastling lets a rook gained by promotion castle.
	UnderpromotedCastling bool
}

func Default() Config {
	return Config{
		Addr:          ":3000",
		AllowOrigins:  "http://localhost:5173",
		ClockTime:     model.DefaultClockTime,
		MatchInterval: time.Second,
		StartLayout:   model.StartLayout,
		WSBufferSize:  1024,
	}
}

// Load parses args (without the program name) on top of the environment.
func Load(args []string) (Config, error) {
	def := Default()
	cfg := Config{}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", getenv("CHESS_ADDR", def.Addr), "listen address")
	fs.StringVar(&cfg.AllowOrigins, "allow-origins", getenv("CHESS_ALLOW_ORIGINS", def.AllowOrigins), "comma-separated CORS and websocket origins")
	fs.DurationVar(&cfg.ClockTime, "clock", getenvSeconds("CHESS_CLOCK_SECONDS", def.ClockTime), "time per player")
	fs.DurationVar(&cfg.MatchInterval, "match-interval", getenvDuration("CHESS_MATCH_INTERVAL", def.MatchInterval), "matchmaking tick")
	fs.StringVar(&cfg.HistoryDir, "history-dir", getenv("CHESS_HISTORY_DIR", def.HistoryDir), "directory finished game logs are written to (empty: disabled)")
	fs.StringVar(&cfg.StartLayout, "layout", getenv("CHESS_START_LAYOUT", def.StartLayout), "layout of new games")
	fs.IntVar(&cfg.WSBufferSize, "ws-buffer", def.WSBufferSize, "websocket read/write buffer size")
	fs.BoolVar(&cfg.UnderpromotedCastling, "underpromoted-castling", getenvBool("CHESS_UNDERPROMOTED_CASTLING", def.UnderpromotedCastling), "promoted rooks may castle")
	if err := fs.Parse(args); err != nil {
		return Config{}, errors.Wrap(err, "parse flags")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var result *multierror.Error
	if c.Addr == "" {
		result = multierror.Append(result, fmt.Errorf("addr is empty"))
	}
	if c.ClockTime <= 0 {
		result = multierror.Append(result, fmt.Errorf("clock must be positive, got %v", c.ClockTime))
	}
	if c.MatchInterval <= 0 {
		result = multierror.Append(result, fmt.Errorf("match interval must be positive, got %v", c.MatchInterval))
	}
	if c.WSBufferSize <= 0 {
		result = multierror.Append(result, fmt.Errorf("websocket buffer size must be positive, got %d", c.WSBufferSize))
	}
	if _, err := model.ParseLayout(c.StartLayout); err != nil {
		result = multierror.Append(result, err)
	}
	if c.HistoryDir != "" {
		if info, err := os.Stat(c.HistoryDir); err != nil || !info.IsDir() {
			result = multierror.Append(result, fmt.Errorf("history dir %q is not a directory", c.HistoryDir))
		}
	}
	return errors.Wrap(result.ErrorOrNil(), "invalid config")
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getenvSeconds(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
