package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "fotoescolar"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv = "FOTOESCOLAR_APP_ENV"
	EnvDBDSN  = "FOTOESCOLAR_DB_DSN"
	EnvDBHost = "FOTOESCOLAR_DB_HOST"
	EnvDBUser = "FOTOESCOLAR_DB_USER"
	EnvDBName = "FOTOESCOLAR_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App            AppConfig
	DB             DBConfig
	Redis          RedisConfig
	JWT            JWTConfig
	Password       PasswordConfig
	AuthRateLimit  AuthRateLimitConfig
	ShareRateLimit ShareRateLimitConfig
	Share          ShareConfig
	FeatureFlags   FeatureFlagsConfig
	GCP            GCPConfig
	GCS            GCSConfig
	Media          MediaConfig
	PubSub         PubSubConfig
	BigQuery       BigQueryConfig
	MercadoPago    MercadoPagoConfig
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
	Env          string `envconfig:"FOTOESCOLAR_APP_ENV" required:"true"`
	Port         string `envconfig:"FOTOESCOLAR_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FOTOESCOLAR_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FOTOESCOLAR_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"FOTOESCOLAR_DB_DSN"`
	Driver string `envconfig:"FOTOESCOLAR_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FOTOESCOLAR_DB_HOST"`
	LegacyPort     int    `envconfig:"FOTOESCOLAR_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FOTOESCOLAR_DB_USER"`
	LegacyPassword string `envconfig:"FOTOESCOLAR_DB_PASSWORD"`
	LegacyName     string `envconfig:"FOTOESCOLAR_DB_NAME"`
	LegacySSLMode  string `envconfig:"FOTOESCOLAR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FOTOESCOLAR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FOTOESCOLAR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FOTOESCOLAR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FOTOESCOLAR_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FOTOESCOLAR_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FOTOESCOLAR_REDIS_ADDR"`
	Password     string        `envconfig:"FOTOESCOLAR_REDIS_PASSWORD"`
	DB           int           `envconfig:"FOTOESCOLAR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FOTOESCOLAR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FOTOESCOLAR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FOTOESCOLAR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FOTOESCOLAR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FOTOESCOLAR_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FOTOESCOLAR_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FOTOESCOLAR_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"FOTOESCOLAR_JWT_EXPIRATION_MINUTES" required:"true"`
	SessionTTLMinutes int    `envconfig:"FOTOESCOLAR_SESSION_TTL_MINUTES" default:"720"`
}

// SessionTTL returns the redis session lifetime configured in minutes.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"FOTOESCOLAR_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"FOTOESCOLAR_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"FOTOESCOLAR_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"FOTOESCOLAR_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"FOTOESCOLAR_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"FOTOESCOLAR_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"FOTOESCOLAR_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"FOTOESCOLAR_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

// ShareRateLimitConfig bounds password guessing against protected shares.
type ShareRateLimitConfig struct {
	Window     time.Duration `envconfig:"FOTOESCOLAR_SHARE_RATE_LIMIT_WINDOW" default:"1m"`
	TokenLimit int           `envconfig:"FOTOESCOLAR_SHARE_RATE_LIMIT_TOKEN_LIMIT" default:"10"`
	IPLimit    int           `envconfig:"FOTOESCOLAR_SHARE_RATE_LIMIT_IP_LIMIT" default:"30"`
}

type ShareConfig struct {
	WebhookIdempotencyTTL time.Duration `envconfig:"FOTOESCOLAR_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"FOTOESCOLAR_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"FOTOESCOLAR_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"FOTOESCOLAR_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"FOTOESCOLAR_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"FOTOESCOLAR_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"FOTOESCOLAR_GCS_BUCKET_NAME" required:"true"`
	UploadURLExpiry   time.Duration `envconfig:"FOTOESCOLAR_GCS_UPLOAD_URL_EXPIRY" default:"15m"`
	DownloadURLExpiry time.Duration `envconfig:"FOTOESCOLAR_GCS_DOWNLOAD_URL_EXPIRY" default:"1h"`
}

type MediaConfig struct {
	MaxUploadMB      int    `envconfig:"FOTOESCOLAR_MAX_UPLOAD_MB" default:"50"`
	PreviewMaxWidth  int    `envconfig:"FOTOESCOLAR_MEDIA_PREVIEW_MAX_WIDTH" default:"1600"`
	PreviewMaxHeight int    `envconfig:"FOTOESCOLAR_MEDIA_PREVIEW_MAX_HEIGHT" default:"1600"`
	PreviewQuality   int    `envconfig:"FOTOESCOLAR_MEDIA_PREVIEW_QUALITY" default:"80"`
	WatermarkText    string `envconfig:"FOTOESCOLAR_MEDIA_WATERMARK_TEXT" default:"MUESTRA"`
}

type PubSubConfig struct {
	PhotoTopic        string `envconfig:"FOTOESCOLAR_PUBSUB_PHOTO_TOPIC" required:"true"`
	PhotoSubscription string `envconfig:"FOTOESCOLAR_PUBSUB_PHOTO_SUBSCRIPTION" required:"true"`
}

type BigQueryConfig struct {
	Dataset           string `envconfig:"FOTOESCOLAR_BIGQUERY_DATASET" default:"fotoescolar"`
	AccessEventsTable string `envconfig:"FOTOESCOLAR_BIGQUERY_ACCESS_TABLE" default:"share_access_events"`
}

type MercadoPagoConfig struct {
	WebhookSecret string `envconfig:"FOTOESCOLAR_MP_WEBHOOK_SECRET"`
	AccessToken   string `envconfig:"FOTOESCOLAR_MP_ACCESS_TOKEN"`
	BaseURL       string `envconfig:"FOTOESCOLAR_MP_BASE_URL" default:"https://api.mercadopago.com"`
	Env           string `envconfig:"FOTOESCOLAR_MP_ENV" default:"test"`
}

// Environment returns the normalized MercadoPago environment (test/live).
func (m MercadoPagoConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(m.Env))
	if env == "" {
		return "test"
	}
	return env
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
