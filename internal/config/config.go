package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string

	MySQLHost string
	MySQLPort string
	MySQLDB   string
	MySQLUser string
	MySQLPass string

	RedisAddr string
	RedisDB   int

	IdempTTLSecs int

	// identity this service uses when calling the escrow relay and token
	// ledgers; the relay only honors its configured owner
	OwnerAccount string

	EscrowBaseURL      string
	TokenLedgerBaseURL string

	// defaults seeded into the settings table on first boot
	Greeting      string
	EscrowAccount string

	// inbound-hook throttle
	HookRPS   float64
	HookBurst int
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func Load() *Config {
	_ = godotenv.Load()

	c := &Config{
		AppPort:   getenv("APP_PORT", "8080"),
		MySQLHost: getenv("MYSQL_HOST", "mysql"),
		MySQLPort: getenv("MYSQL_PORT", "3306"),
		MySQLDB:   getenv("MYSQL_DB", "p2plend"),
		MySQLUser: getenv("MYSQL_USER", "p2plend"),
		MySQLPass: getenv("MYSQL_PASS", "p2plend"),

		RedisAddr:    getenv("REDIS_ADDR", "redis:6379"),
		IdempTTLSecs: 300,

		OwnerAccount:       getenv("OWNER_ACCOUNT", "p2plend.service"),
		EscrowBaseURL:      getenv("ESCROW_BASE_URL", "http://escrow:8081"),
		TokenLedgerBaseURL: getenv("TOKEN_LEDGER_BASE_URL", "http://token-ledger:8082"),

		Greeting:      getenv("GREETING", "welcome to p2plend"),
		EscrowAccount: getenv("ESCROW_ACCOUNT", ""),

		HookRPS:   5,
		HookBurst: 10,
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RedisDB = n
		}
	}
	if v := os.Getenv("IDEMPOTENCY_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.IdempTTLSecs = n
		}
	}
	if v := os.Getenv("HOOK_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.HookRPS = f
		}
	}
	if v := os.Getenv("HOOK_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.HookBurst = n
		}
	}
	return c
}

func (c *Config) Validate() error {
	if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
		return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
	}
	// ensure port is valid
	if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
		return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
	}
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if c.OwnerAccount == "" {
		return errors.New("missing OWNER_ACCOUNT")
	}
	if c.EscrowBaseURL == "" || c.TokenLedgerBaseURL == "" {
		return errors.New("missing ESCROW_BASE_URL/TOKEN_LEDGER_BASE_URL")
	}
	return nil
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// multiStatements=true is handy for migrations; parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?multiStatements=true&parseTime=true&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}

// SupportedTokens parses SUPPORTED_TOKENS ("SYM:account,SYM2:account2")
// into seed pairs for the token registry.
func (c *Config) SupportedTokens() map[string]string {
	out := map[string]string{}
	raw := os.Getenv("SUPPORTED_TOKENS")
	if raw == "" {
		return out
	}
	for _, pair := range strings.Split(raw, ",") {
		kv := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(kv) == 2 && kv[0] != "" && kv[1] != "" {
			out[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
		}
	}
	return out
}
