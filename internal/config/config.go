// Package config collects process configuration from flags with environment
// fallbacks.
package config

import (
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"
)

// SSLMode controls whether the database connection requires TLS.
type SSLMode string

const (
	// SSLRequire always negotiates TLS.
	SSLRequire SSLMode = "require"
	// SSLAuto negotiates TLS unless the database host is local.
	SSLAuto SSLMode = "auto"
	// SSLOff never negotiates TLS.
	SSLOff SSLMode = "off"
)

// Config is the full process configuration.
type Config struct {
	Addr           string
	DatabaseDSN    string
	SessionTTLDays int
	Production     bool
	SSLMode        SSLMode
}

// Parse reads flags, falling back to environment variables when a flag is
// left at its default. Flag precedence over env follows the usual
// gophermart convention.
func Parse(args []string) (Config, error) {
	fs := flag.NewFlagSet("authcore", flag.ContinueOnError)
	cfg := Config{}

	fs.StringVar(&cfg.Addr, "addr", envOr("RUN_ADDRESS", ":8080"), "listen address")
	fs.StringVar(&cfg.DatabaseDSN, "dsn", envOr("DATABASE_DSN", ""), "PostgreSQL DSN")
	fs.IntVar(&cfg.SessionTTLDays, "session-ttl-days", envOrInt("SESSION_TTL_DAYS", 30), "session lifetime in days")
	fs.BoolVar(&cfg.Production, "production", envOrBool("PRODUCTION", false), "production mode (Secure cookies, TLS to DB)")
	mode := fs.String("ssl-mode", envOr("DB_SSL_MODE", string(SSLAuto)), "database TLS: require, auto, off")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	switch SSLMode(*mode) {
	case SSLRequire, SSLAuto, SSLOff:
		cfg.SSLMode = SSLMode(*mode)
	default:
		return Config{}, fmt.Errorf("config: unknown ssl-mode %q", *mode)
	}

	if cfg.DatabaseDSN == "" {
		return Config{}, fmt.Errorf("config: database DSN is required (-dsn or DATABASE_DSN)")
	}
	if cfg.SessionTTLDays <= 0 {
		return Config{}, fmt.Errorf("config: session-ttl-days must be positive")
	}

	dsn, err := applySSLMode(cfg.DatabaseDSN, cfg.SSLMode)
	if err != nil {
		return Config{}, err
	}
	cfg.DatabaseDSN = dsn

	return cfg, nil
}

// SessionTTL is the configured session lifetime as a duration.
func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLDays) * 24 * time.Hour
}

// applySSLMode stamps an sslmode query parameter onto the DSN unless the
// DSN already carries one.
func applySSLMode(dsn string, mode SSLMode) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("config: parse DSN: %w", err)
	}
	q := u.Query()
	if q.Get("sslmode") != "" {
		return dsn, nil
	}

	switch mode {
	case SSLRequire:
		q.Set("sslmode", "require")
	case SSLOff:
		q.Set("sslmode", "disable")
	case SSLAuto:
		if isLocalHost(u.Hostname()) {
			q.Set("sslmode", "disable")
		} else {
			q.Set("sslmode", "require")
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// isLocalHost reports whether host is the local machine.
func isLocalHost(host string) bool {
	if host == "" || host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
