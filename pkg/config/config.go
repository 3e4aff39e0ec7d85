package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/treumlabs/signalcast/pkg/enums"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Queue        QueueConfig
	RateLimits   RateLimitConfig
	Worker       WorkerConfig
	Cron         CronConfig
	LinkedIn     LinkedInConfig
	Twitter      TwitterConfig
	Telegram     TelegramConfig
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
	Env          string `envconfig:"SIGNALCAST_APP_ENV" required:"true"`
	Port         string `envconfig:"SIGNALCAST_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SIGNALCAST_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SIGNALCAST_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SIGNALCAST_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SIGNALCAST_DB_DSN"`
	Driver string `envconfig:"SIGNALCAST_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SIGNALCAST_DB_HOST"`
	LegacyPort     int    `envconfig:"SIGNALCAST_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SIGNALCAST_DB_USER"`
	LegacyPassword string `envconfig:"SIGNALCAST_DB_PASSWORD"`
	LegacyName     string `envconfig:"SIGNALCAST_DB_NAME"`
	LegacySSLMode  string `envconfig:"SIGNALCAST_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SIGNALCAST_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SIGNALCAST_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SIGNALCAST_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SIGNALCAST_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SIGNALCAST_REDIS_URL"`
	Address      string        `envconfig:"SIGNALCAST_REDIS_ADDR"`
	Password     string        `envconfig:"SIGNALCAST_REDIS_PASSWORD"`
	DB           int           `envconfig:"SIGNALCAST_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SIGNALCAST_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SIGNALCAST_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SIGNALCAST_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SIGNALCAST_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SIGNALCAST_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SIGNALCAST_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SIGNALCAST_AUTO_MIGRATE" default:"false"`
}

// QueueConfig tunes admission and dispatch behavior.
type QueueConfig struct {
	MaxRetries       int           `envconfig:"SIGNALCAST_QUEUE_MAX_RETRIES" default:"3"`
	ProcessBatchSize int           `envconfig:"SIGNALCAST_QUEUE_PROCESS_BATCH_SIZE" default:"5"`
	InterPostDelay   time.Duration `envconfig:"SIGNALCAST_QUEUE_INTER_POST_DELAY" default:"2s"`
	MinGap           time.Duration `envconfig:"SIGNALCAST_QUEUE_MIN_GAP" default:"30m"`
	RetentionDays    int           `envconfig:"SIGNALCAST_QUEUE_RETENTION_DAYS" default:"7"`
}

// RateLimitConfig carries per-platform posting caps. The defaults mirror the
// operating limits this system has run with; they are configuration, not a
// contract.
type RateLimitConfig struct {
	LinkedInHourly int `envconfig:"SIGNALCAST_RATE_LINKEDIN_HOURLY" default:"10"`
	LinkedInDaily  int `envconfig:"SIGNALCAST_RATE_LINKEDIN_DAILY" default:"50"`
	TwitterHourly  int `envconfig:"SIGNALCAST_RATE_TWITTER_HOURLY" default:"20"`
	TwitterDaily   int `envconfig:"SIGNALCAST_RATE_TWITTER_DAILY" default:"100"`
	TelegramHourly int `envconfig:"SIGNALCAST_RATE_TELEGRAM_HOURLY" default:"50"`
	TelegramDaily  int `envconfig:"SIGNALCAST_RATE_TELEGRAM_DAILY" default:"200"`
}

// PlatformLimits are the resolved caps for one platform.
type PlatformLimits struct {
	Hourly int
	Daily  int
}

// ForPlatform resolves caps for the given platform. Unknown platforms get an
// effectively unlimited allowance, matching the permissive legacy behavior.
func (r RateLimitConfig) ForPlatform(platform enums.Platform) PlatformLimits {
	switch platform {
	case enums.PlatformLinkedin:
		return PlatformLimits{Hourly: r.LinkedInHourly, Daily: r.LinkedInDaily}
	case enums.PlatformTwitter:
		return PlatformLimits{Hourly: r.TwitterHourly, Daily: r.TwitterDaily}
	case enums.PlatformTelegram:
		return PlatformLimits{Hourly: r.TelegramHourly, Daily: r.TelegramDaily}
	}
	return PlatformLimits{Hourly: 999, Daily: 999}
}

type WorkerConfig struct {
	PollInterval time.Duration `envconfig:"SIGNALCAST_WORKER_POLL_INTERVAL" default:"10m"`
	LockKey      string        `envconfig:"SIGNALCAST_WORKER_LOCK_KEY" default:"signalcast:queue-worker:lock"`
	LockTTL      time.Duration `envconfig:"SIGNALCAST_WORKER_LOCK_TTL" default:"15m"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"SIGNALCAST_CRON_INTERVAL" default:"1h"`
	LockKey  string        `envconfig:"SIGNALCAST_CRON_LOCK_KEY" default:"signalcast:cron:lock"`
	LockTTL  time.Duration `envconfig:"SIGNALCAST_CRON_LOCK_TTL" default:"2h"`
}

type LinkedInConfig struct {
	AccessToken string `envconfig:"SIGNALCAST_LINKEDIN_ACCESS_TOKEN"`
}

type TwitterConfig struct {
	ConsumerKey       string `envconfig:"SIGNALCAST_TWITTER_CONSUMER_KEY"`
	ConsumerSecret    string `envconfig:"SIGNALCAST_TWITTER_CONSUMER_SECRET"`
	AccessToken       string `envconfig:"SIGNALCAST_TWITTER_ACCESS_TOKEN"`
	AccessTokenSecret string `envconfig:"SIGNALCAST_TWITTER_ACCESS_TOKEN_SECRET"`
}

type TelegramConfig struct {
	BotToken  string `envconfig:"SIGNALCAST_TELEGRAM_BOT_TOKEN"`
	ChannelID string `envconfig:"SIGNALCAST_TELEGRAM_CHANNEL_ID" default:"@AIFinanceNews2024"`
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
