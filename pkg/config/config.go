package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Invite       InviteConfig
	Claims       ClaimsConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GIFTLOOP_APP_ENV" required:"true"`
	Port         string `envconfig:"GIFTLOOP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GIFTLOOP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GIFTLOOP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"GIFTLOOP_DB_DSN"`
	Driver string `envconfig:"GIFTLOOP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GIFTLOOP_DB_HOST"`
	LegacyPort     int    `envconfig:"GIFTLOOP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GIFTLOOP_DB_USER"`
	LegacyPassword string `envconfig:"GIFTLOOP_DB_PASSWORD"`
	LegacyName     string `envconfig:"GIFTLOOP_DB_NAME"`
	LegacySSLMode  string `envconfig:"GIFTLOOP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GIFTLOOP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GIFTLOOP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GIFTLOOP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GIFTLOOP_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// LockTimeout bounds how long a transaction waits for a row lock before it
	// aborts with a retryable conflict instead of queueing indefinitely.
	LockTimeout time.Duration `envconfig:"GIFTLOOP_DB_LOCK_TIMEOUT" default:"3s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GIFTLOOP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GIFTLOOP_REDIS_ADDR"`
	Password     string        `envconfig:"GIFTLOOP_REDIS_PASSWORD"`
	DB           int           `envconfig:"GIFTLOOP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GIFTLOOP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GIFTLOOP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GIFTLOOP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GIFTLOOP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GIFTLOOP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"GIFTLOOP_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"GIFTLOOP_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"GIFTLOOP_JWT_EXPIRATION_MINUTES" default:"60"`
}

type InviteConfig struct {
	TokenTTL time.Duration `envconfig:"GIFTLOOP_INVITE_TOKEN_TTL" default:"720h"`
}

type ClaimsConfig struct {
	// MetricsEnabled toggles prometheus counters for claim operations.
	MetricsEnabled bool `envconfig:"GIFTLOOP_CLAIM_METRICS_ENABLED" default:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"GIFTLOOP_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
