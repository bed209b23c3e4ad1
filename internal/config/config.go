package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Wallet    WalletConfig    `mapstructure:"wallet"`
	Cron      CronConfig      `mapstructure:"cron"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	// Driver is "postgres" or "memory" (local development only).
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	SharedSecret    string        `mapstructure:"shared_secret"`
	KeyDomain       string        `mapstructure:"key_domain"`
	Issuer          string        `mapstructure:"issuer"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
	DefaultScope    string        `mapstructure:"default_scope"`
}

type RateLimitConfig struct {
	// Backend is "db" or "redis".
	Backend           string        `mapstructure:"backend"`
	Window            time.Duration `mapstructure:"window"`
	SyncClientLimit   int           `mapstructure:"sync_client_limit"`
	SyncUserLimit     int           `mapstructure:"sync_user_limit"`
	RegisterLimit     int           `mapstructure:"register_limit"`
	RegisterWindow    time.Duration `mapstructure:"register_window"`
	LedgerClientLimit int           `mapstructure:"ledger_client_limit"`
}

type SyncConfig struct {
	MaxPayloadBytes  int     `mapstructure:"max_payload_bytes"`
	MaxDepth         int     `mapstructure:"max_depth"`
	MaxStringLength  int     `mapstructure:"max_string_length"`
	MaxArrayLength   int     `mapstructure:"max_array_length"`
	MaxAbsNumber     float64 `mapstructure:"max_abs_number"`
	LegacyFinancial  bool    `mapstructure:"legacy_financial"`
	MaxSaveAttempts  int     `mapstructure:"max_save_attempts"`
	MaxErrorsPerCall int     `mapstructure:"max_errors_per_call"`
}

type LedgerConfig struct {
	DefaultCurrency     string `mapstructure:"default_currency"`
	RequireFinanceScope bool   `mapstructure:"require_finance_scope"`
}

type WalletConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type CronConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Maintenance string `mapstructure:"maintenance"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SSO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if !envOnly && path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.development", false)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.shared_secret", "")
	v.SetDefault("auth.key_domain", "fun-profile-sso-jwt-signing-key")
	v.SetDefault("auth.issuer", "fun-profile-sso")
	v.SetDefault("auth.access_token_ttl", "1h")
	v.SetDefault("auth.refresh_token_ttl", "720h")
	v.SetDefault("auth.default_scope", "profile")

	v.SetDefault("rate_limit.backend", "db")
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("rate_limit.sync_client_limit", 60)
	v.SetDefault("rate_limit.sync_user_limit", 120)
	v.SetDefault("rate_limit.register_limit", 20)
	v.SetDefault("rate_limit.register_window", "1m")
	v.SetDefault("rate_limit.ledger_client_limit", 300)

	v.SetDefault("sync.max_payload_bytes", 50*1024)
	v.SetDefault("sync.max_depth", 5)
	v.SetDefault("sync.max_string_length", 1000)
	v.SetDefault("sync.max_array_length", 100)
	v.SetDefault("sync.max_abs_number", 1e15)
	v.SetDefault("sync.legacy_financial", true)
	v.SetDefault("sync.max_save_attempts", 3)
	v.SetDefault("sync.max_errors_per_call", 10)

	v.SetDefault("ledger.default_currency", "CAMLY")
	v.SetDefault("ledger.require_finance_scope", false)

	v.SetDefault("wallet.base_url", "")
	v.SetDefault("wallet.api_key", "")
	v.SetDefault("wallet.timeout", "5s")

	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.maintenance", "@every 10m")
}
