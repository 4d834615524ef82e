package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is everything the server reads from the environment.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string
	// CallInterval is the pause between called numbers during a round.
	CallInterval time.Duration
	// ResetClearsTickets decides whether reset-round forces everyone to pick
	// a ticket again.
	ResetClearsTickets bool
	// AllowedOrigins lists extra origin patterns accepted on the WebSocket
	// upgrade, for a frontend served from another host. Empty means
	// same-origin only.
	AllowedOrigins []string
}

// Load reads .env if present, then the environment, falling back to
// defaults for anything unset or unparseable.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Addr:         ":8080",
		CallInterval: 10 * time.Second,
	}
	if v := os.Getenv("ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("CALL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.CallInterval = d
		}
	}
	if v := os.Getenv("RESET_CLEARS_TICKETS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.ResetClearsTickets = b
		}
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}
	return cfg
}
