package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string // "json" or "text"

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL    string
	DBMaxConns     int32
	DBMinConns     int32
	MigrateOnStart bool

	// Rate limiting.
	UserRatePerMin int
	IPRatePerMin   int
	RateIdleTTL    time.Duration
	RateSweepEvery time.Duration

	// Object storage for album covers.
	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool

	// Regionals sync.
	RegionalURL string

	// WebSocket origin patterns for cross-origin upgrades.
	WSAllowedOrigins []string
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("MUSE_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("MUSE_LOG_LEVEL", "info"),
		LogFormat: EnvString("MUSE_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("MUSE_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("MUSE_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("MUSE_HTTP_WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:       EnvDuration("MUSE_HTTP_IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    EnvInt("MUSE_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL:    EnvString("MUSE_DATABASE_URL", ""),
		DBMaxConns:     EnvInt32("MUSE_DB_MAX_CONNS", 10),
		DBMinConns:     EnvInt32("MUSE_DB_MIN_CONNS", 0),
		MigrateOnStart: EnvBool("MUSE_DB_MIGRATE_ON_START", true),

		UserRatePerMin: EnvInt("MUSE_RATE_USER_PER_MIN", 100),
		IPRatePerMin:   EnvInt("MUSE_RATE_IP_PER_MIN", 20),
		RateIdleTTL:    EnvDuration("MUSE_RATE_IDLE_TTL", 10*time.Minute),
		RateSweepEvery: EnvDuration("MUSE_RATE_SWEEP_EVERY", time.Minute),

		S3Endpoint:     EnvString("MUSE_S3_ENDPOINT", ""),
		S3Region:       EnvString("MUSE_S3_REGION", "us-east-1"),
		S3Bucket:       EnvString("MUSE_S3_BUCKET", ""),
		S3AccessKey:    EnvString("MUSE_S3_ACCESS_KEY", ""),
		S3SecretKey:    EnvString("MUSE_S3_SECRET_KEY", ""),
		S3UsePathStyle: EnvBool("MUSE_S3_PATH_STYLE", true),

		RegionalURL: EnvString("MUSE_REGIONAL_URL", ""),

		WSAllowedOrigins: EnvCSV("MUSE_WS_ALLOWED_ORIGINS", ""),
	}
}
