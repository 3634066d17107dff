package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "gadgethub"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "GADGETHUB_DB_DSN"
	EnvDBHost = "GADGETHUB_DB_HOST"
	EnvDBUser = "GADGETHUB_DB_USER"
	EnvDBName = "GADGETHUB_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Identity      IdentityConfig
	Payments      PaymentsConfig
	Delivery      DeliveryConfig
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
	Env          string `envconfig:"GADGETHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"GADGETHUB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GADGETHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GADGETHUB_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"GADGETHUB_DB_DSN"`
	Driver string `envconfig:"GADGETHUB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GADGETHUB_DB_HOST"`
	LegacyPort     int    `envconfig:"GADGETHUB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GADGETHUB_DB_USER"`
	LegacyPassword string `envconfig:"GADGETHUB_DB_PASSWORD"`
	LegacyName     string `envconfig:"GADGETHUB_DB_NAME"`
	LegacySSLMode  string `envconfig:"GADGETHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GADGETHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GADGETHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GADGETHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GADGETHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GADGETHUB_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GADGETHUB_REDIS_ADDR"`
	Password     string        `envconfig:"GADGETHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"GADGETHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GADGETHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GADGETHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GADGETHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GADGETHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GADGETHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"GADGETHUB_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"GADGETHUB_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"GADGETHUB_JWT_EXPIRATION_MINUTES" default:"30"`
	RefreshTokenTTLMinutes int    `envconfig:"GADGETHUB_REFRESH_TOKEN_TTL_MINUTES" default:"10080"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"GADGETHUB_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"GADGETHUB_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"GADGETHUB_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"GADGETHUB_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"GADGETHUB_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"GADGETHUB_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"GADGETHUB_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"GADGETHUB_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"GADGETHUB_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"GADGETHUB_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"GADGETHUB_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"GADGETHUB_AUTO_MIGRATE" default:"false"`
	// TrustOnSubmit marks newly created digital orders as paid without waiting
	// for the payment gateway callback. Demo environments only.
	TrustOnSubmit bool `envconfig:"GADGETHUB_TRUST_ON_SUBMIT" default:"false"`
}

type IdentityConfig struct {
	// AdminEmails promotes matching addresses to the admin role on first sign-in.
	AdminEmails []string `envconfig:"GADGETHUB_ADMIN_EMAILS"`
}

type PaymentsConfig struct {
	WebhookSecret string        `envconfig:"GADGETHUB_PAYMENTS_WEBHOOK_SECRET"`
	EventTTL      time.Duration `envconfig:"GADGETHUB_PAYMENTS_EVENT_TTL" default:"168h"`
}

type DeliveryConfig struct {
	// DownloadBaseURL prefixes the fallback download path issued for digital
	// order lines whose product has no dedicated URL.
	DownloadBaseURL string `envconfig:"GADGETHUB_DOWNLOAD_BASE_URL" default:"/downloads"`
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
