package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv  = "SCRAPLINE_APP_ENV"
	EnvDBDSN   = "SCRAPLINE_DB_DSN"
	EnvDBHost  = "SCRAPLINE_DB_HOST"
	EnvDBUser  = "SCRAPLINE_DB_USER"
	EnvDBName  = "SCRAPLINE_DB_NAME"
	EnvRedis   = "SCRAPLINE_REDIS_URL"
	EnvAppPort = "SCRAPLINE_APP_PORT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Matching     MatchingConfig
	Directory    DirectoryConfig
	CORS         CORSConfig
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
	Env          string `envconfig:"SCRAPLINE_APP_ENV" required:"true"`
	Port         string `envconfig:"SCRAPLINE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SCRAPLINE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SCRAPLINE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SCRAPLINE_DB_DSN"`
	Driver string `envconfig:"SCRAPLINE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SCRAPLINE_DB_HOST"`
	LegacyPort     int    `envconfig:"SCRAPLINE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SCRAPLINE_DB_USER"`
	LegacyPassword string `envconfig:"SCRAPLINE_DB_PASSWORD"`
	LegacyName     string `envconfig:"SCRAPLINE_DB_NAME"`
	LegacySSLMode  string `envconfig:"SCRAPLINE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SCRAPLINE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SCRAPLINE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SCRAPLINE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SCRAPLINE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SCRAPLINE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SCRAPLINE_REDIS_ADDR"`
	Password     string        `envconfig:"SCRAPLINE_REDIS_PASSWORD"`
	DB           int           `envconfig:"SCRAPLINE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SCRAPLINE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SCRAPLINE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SCRAPLINE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SCRAPLINE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SCRAPLINE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SCRAPLINE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SCRAPLINE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SCRAPLINE_JWT_EXPIRATION_MINUTES" default:"1440"`
}

// MatchingConfig holds the search radii used by the matching engine.
// CreateRadiusKm applies when a pickup request is created; QueryRadiusKm is
// the default for on-demand available-request queries and is caller-adjustable.
type MatchingConfig struct {
	CreateRadiusKm float64 `envconfig:"SCRAPLINE_MATCHING_CREATE_RADIUS_KM" default:"15"`
	QueryRadiusKm  float64 `envconfig:"SCRAPLINE_MATCHING_QUERY_RADIUS_KM" default:"10"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"SCRAPLINE_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type DirectoryConfig struct {
	CacheTTL time.Duration `envconfig:"SCRAPLINE_DIRECTORY_CACHE_TTL" default:"5m"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SCRAPLINE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SCRAPLINE_AUTO_MIGRATE" default:"false"`
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
