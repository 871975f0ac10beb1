package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-cart/pkg/enums"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Cart         CartConfig
	Marketplace  MarketplaceConfig
	Kafka        KafkaConfig
	RateLimit    RateLimitConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Cart.validate(); err != nil {
		return nil, err
	}
	if cfg.Cart.Backend == enums.StateBackendSQL.String() {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"STOREFRONT_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`

	CORSAllowedOrigins []string `envconfig:"STOREFRONT_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

// JWTConfig verifies bearer tokens minted by the hosted auth provider.
type JWTConfig struct {
	Secret string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"STOREFRONT_JWT_ISSUER" required:"true"`
}

type CartConfig struct {
	Backend         string        `envconfig:"STOREFRONT_CART_BACKEND" default:"redis"`
	TTL             time.Duration `envconfig:"STOREFRONT_CART_TTL" default:"720h"`
	QuantityPolicy  string        `envconfig:"STOREFRONT_CART_QUANTITY_POLICY" default:"clamp"`
	MaxQuantity     int           `envconfig:"STOREFRONT_CART_MAX_QUANTITY" default:"0"`
	AutoSelectOnAdd bool          `envconfig:"STOREFRONT_CART_AUTO_SELECT_ON_ADD" default:"false"`
	MotorcycleFee   string        `envconfig:"STOREFRONT_CART_MOTORCYCLE_FEE" default:"40"`
	BicycleFee      string        `envconfig:"STOREFRONT_CART_BICYCLE_FEE" default:"30"`
	LockTTL         time.Duration `envconfig:"STOREFRONT_CART_LOCK_TTL" default:"10s"`
	LockWait        time.Duration `envconfig:"STOREFRONT_CART_LOCK_WAIT" default:"3s"`
}

// StateBackend returns the parsed backend enum.
func (c CartConfig) StateBackend() enums.StateBackend {
	backend, err := enums.ParseStateBackend(c.Backend)
	if err != nil {
		return enums.StateBackendRedis
	}
	return backend
}

// Policy returns the parsed quantity policy.
func (c CartConfig) Policy() enums.QuantityPolicy {
	policy, err := enums.ParseQuantityPolicy(c.QuantityPolicy)
	if err != nil {
		return enums.QuantityPolicyClamp
	}
	return policy
}

func (c CartConfig) validate() error {
	if _, err := enums.ParseStateBackend(c.Backend); err != nil {
		return fmt.Errorf("%s: %w", EnvCartBackend, err)
	}
	if _, err := enums.ParseQuantityPolicy(c.QuantityPolicy); err != nil {
		return fmt.Errorf("%s: %w", EnvCartQuantityPolicy, err)
	}
	if c.MaxQuantity < 0 {
		return fmt.Errorf("%s must be non-negative", EnvCartMaxQuantity)
	}
	return nil
}

type MarketplaceConfig struct {
	BaseURL string        `envconfig:"STOREFRONT_MARKETPLACE_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"STOREFRONT_MARKETPLACE_TIMEOUT" default:"10s"`
}

type KafkaConfig struct {
	Brokers    []string `envconfig:"STOREFRONT_KAFKA_BROKERS"`
	Topic      string   `envconfig:"STOREFRONT_KAFKA_TOPIC" default:"storefront.cart.events"`
	BufferSize int      `envconfig:"STOREFRONT_KAFKA_BUFFER_SIZE" default:"256"`
}

// Enabled reports whether events should be shipped to Kafka.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type RateLimitConfig struct {
	VoucherWindow     time.Duration `envconfig:"STOREFRONT_RATE_LIMIT_VOUCHER_WINDOW" default:"1m"`
	VoucherBuyerLimit int           `envconfig:"STOREFRONT_RATE_LIMIT_VOUCHER_BUYER_LIMIT" default:"10"`
	VoucherIPLimit    int           `envconfig:"STOREFRONT_RATE_LIMIT_VOUCHER_IP_LIMIT" default:"30"`
	IdempotencyTTL    time.Duration `envconfig:"STOREFRONT_IDEMPOTENCY_TTL" default:"168h"`
}

// CronConfig drives the cron-worker binary.
type CronConfig struct {
	Interval   time.Duration `envconfig:"STOREFRONT_CRON_INTERVAL" default:"1h"`
	PurgeBatch int           `envconfig:"STOREFRONT_CRON_PURGE_BATCH" default:"500"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
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
