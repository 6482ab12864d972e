package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "bookshelf"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names shared with tests and deploy manifests.
const (
	EnvAppEnv = "BOOKSHELF_APP_ENV"
	EnvPort   = "BOOKSHELF_APP_PORT"
	EnvDBDSN  = "BOOKSHELF_DB_DSN"
	EnvDBHost = "BOOKSHELF_DB_HOST"
	EnvDBUser = "BOOKSHELF_DB_USER"
	EnvDBName = "BOOKSHELF_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Lending      LendingConfig
	CORS         CORSConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if !cfg.FeatureFlags.UseSQLite {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BOOKSHELF_APP_ENV" required:"true"`
	Port         string `envconfig:"BOOKSHELF_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BOOKSHELF_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BOOKSHELF_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"BOOKSHELF_DB_DSN"`

	LegacyHost     string `envconfig:"BOOKSHELF_DB_HOST"`
	LegacyPort     int    `envconfig:"BOOKSHELF_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BOOKSHELF_DB_USER"`
	LegacyPassword string `envconfig:"BOOKSHELF_DB_PASSWORD"`
	LegacyName     string `envconfig:"BOOKSHELF_DB_NAME"`
	LegacySSLMode  string `envconfig:"BOOKSHELF_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BOOKSHELF_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BOOKSHELF_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BOOKSHELF_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BOOKSHELF_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// LendingConfig bounds how long a borrow/return may wait on row contention
// before it fails with a retryable error instead of hanging.
type LendingConfig struct {
	OperationTimeout time.Duration `envconfig:"BOOKSHELF_LENDING_OP_TIMEOUT" default:"5s"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"BOOKSHELF_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool   `envconfig:"BOOKSHELF_USE_SQLITE" default:"false"`
	SQLitePath  string `envconfig:"BOOKSHELF_SQLITE_PATH" default:"bookshelf.db"`
	AutoMigrate bool   `envconfig:"BOOKSHELF_AUTO_MIGRATE" default:"false"`
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
