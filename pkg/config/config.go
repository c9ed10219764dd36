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

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Quota        QuotaConfig
	Plans        PlanConfig
	Referral     ReferralConfig
	Notify       NotifyConfig
	SessionCache SessionCacheConfig
	Retention    RetentionConfig
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
	Env          string `envconfig:"SOLVEBOT_APP_ENV" required:"true"`
	Port         string `envconfig:"SOLVEBOT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SOLVEBOT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SOLVEBOT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SOLVEBOT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SOLVEBOT_DB_DSN"`
	Driver string `envconfig:"SOLVEBOT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SOLVEBOT_DB_HOST"`
	LegacyPort     int    `envconfig:"SOLVEBOT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SOLVEBOT_DB_USER"`
	LegacyPassword string `envconfig:"SOLVEBOT_DB_PASSWORD"`
	LegacyName     string `envconfig:"SOLVEBOT_DB_NAME"`
	LegacySSLMode  string `envconfig:"SOLVEBOT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SOLVEBOT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SOLVEBOT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SOLVEBOT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SOLVEBOT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SOLVEBOT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SOLVEBOT_REDIS_ADDR"`
	Password     string        `envconfig:"SOLVEBOT_REDIS_PASSWORD"`
	DB           int           `envconfig:"SOLVEBOT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SOLVEBOT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SOLVEBOT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SOLVEBOT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SOLVEBOT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SOLVEBOT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// QuotaConfig holds the free daily allowance per request kind.
type QuotaConfig struct {
	FreeTextsPerDay  int `envconfig:"SOLVEBOT_FREE_TEXTS_PER_DAY" default:"20"`
	FreePhotosPerDay int `envconfig:"SOLVEBOT_FREE_PHOTOS_PER_DAY" default:"10"`
}

// Plan describes one purchasable premium window. Prices are integer currency
// units (Telegram Stars); the ledger treats both fields as opaque inputs.
type Plan struct {
	Code  string `json:"code"`
	Price int    `json:"price"`
	Days  int    `json:"days"`
}

type PlanConfig struct {
	DayPrice   int `envconfig:"SOLVEBOT_PREMIUM_DAY" default:"99"`
	WeekPrice  int `envconfig:"SOLVEBOT_PREMIUM_WEEK" default:"299"`
	MonthPrice int `envconfig:"SOLVEBOT_PREMIUM_MONTH" default:"399"`

	Currency string `envconfig:"SOLVEBOT_CURRENCY" default:"XTR"`
}

// Catalog returns the static plan list in display order.
func (p PlanConfig) Catalog() []Plan {
	return []Plan{
		{Code: "day", Price: p.DayPrice, Days: 1},
		{Code: "week", Price: p.WeekPrice, Days: 7},
		{Code: "month", Price: p.MonthPrice, Days: 30},
	}
}

type ReferralConfig struct {
	BonusDays int `envconfig:"SOLVEBOT_REF_BONUS_DAYS" default:"2"`

	// BonusEveryPurchase grants the referrer bonus on every purchase by the
	// invitee; when false only the invitee's first payment qualifies.
	BonusEveryPurchase bool `envconfig:"SOLVEBOT_REF_BONUS_EVERY_PURCHASE" default:"true"`
}

type NotifyConfig struct {
	BaseURL   string        `envconfig:"SOLVEBOT_NOTIFY_BASE_URL"`
	Token     string        `envconfig:"SOLVEBOT_NOTIFY_TOKEN"`
	Timeout   time.Duration `envconfig:"SOLVEBOT_NOTIFY_TIMEOUT" default:"5s"`
	RatePerS  float64       `envconfig:"SOLVEBOT_NOTIFY_RATE_PER_SECOND" default:"25"`
	RateBurst int           `envconfig:"SOLVEBOT_NOTIFY_RATE_BURST" default:"5"`
}

type SessionCacheConfig struct {
	TTL time.Duration `envconfig:"SOLVEBOT_SESSION_CACHE_TTL" default:"1h"`
}

type RetentionConfig struct {
	UsageDays int `envconfig:"SOLVEBOT_USAGE_RETENTION_DAYS" default:"90"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SOLVEBOT_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		"SOLVEBOT_DB_HOST": db.LegacyHost,
		"SOLVEBOT_DB_USER": db.LegacyUser,
		"SOLVEBOT_DB_NAME": db.LegacyName,
	}
	for _, env := range []string{"SOLVEBOT_DB_HOST", "SOLVEBOT_DB_USER", "SOLVEBOT_DB_NAME"} {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either SOLVEBOT_DB_DSN or %s are required", strings.Join(missing, ", "))
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
