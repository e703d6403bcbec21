package app

import (
	"strings"
	"time"

	"github.com/yungbote/northwind-slim-backend/internal/data/db"
	"github.com/yungbote/northwind-slim-backend/internal/platform/envutil"
	"github.com/yungbote/northwind-slim-backend/internal/platform/logger"
)

type Config struct {
	Environment string
	Port        string

	DBProvider string
	SQLitePath string
	Postgres   db.PostgresConfig
	DBSeed     bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisChannel  string

	JWTSecretKey   string
	AccessTokenTTL time.Duration

	MetricsAddr     string
	ShutdownTimeout time.Duration

	CORSAllowedOrigins []string
}

func LoadConfig(log *logger.Logger) Config {
	env := strings.ToLower(envutil.String("APP_ENV", "development"))
	cfg := Config{
		Environment: env,
		Port:        envutil.String("PORT", "8080"),

		DBProvider: strings.ToLower(envutil.String("DB_PROVIDER", "sqlite")),
		SQLitePath: envutil.String("SQLITE_PATH", "northwindslim.db"),
		Postgres: db.PostgresConfig{
			Host:     envutil.String("POSTGRES_HOST", "localhost"),
			Port:     envutil.String("POSTGRES_PORT", "5432"),
			User:     envutil.String("POSTGRES_USER", "postgres"),
			Password: envutil.String("POSTGRES_PASSWORD", ""),
			Name:     envutil.String("POSTGRES_NAME", "northwindslim"),
			SSLMode:  envutil.String("POSTGRES_SSLMODE", "disable"),
		},
		DBSeed: envutil.Bool("DB_SEED", env == "development"),

		RedisAddr:     envutil.String("REDIS_ADDR", ""),
		RedisPassword: envutil.String("REDIS_PASSWORD", ""),
		RedisDB:       envutil.Int("REDIS_DB", 0),
		RedisChannel:  envutil.String("REDIS_CHANNEL", ""),

		JWTSecretKey:   envutil.String("JWT_SECRET_KEY", ""),
		AccessTokenTTL: envutil.Duration("ACCESS_TOKEN_TTL", time.Hour),

		MetricsAddr:     envutil.String("METRICS_ADDR", ""),
		ShutdownTimeout: envutil.Duration("SHUTDOWN_TIMEOUT", 15*time.Second),

		CORSAllowedOrigins: envutil.List("CORS_ALLOWED_ORIGINS", nil),
	}
	if log != nil {
		log.Info("Loaded config",
			"env", cfg.Environment,
			"port", cfg.Port,
			"db_provider", cfg.DBProvider,
			"db_seed", cfg.DBSeed,
			"redis", cfg.RedisAddr != "",
			"jwt_auth", cfg.JWTSecretKey != "",
			"metrics_addr", cfg.MetricsAddr,
		)
	}
	return cfg
}
