package app

import (
	"strings"
	"time"

	"github.com/nordvale/planline-backend/internal/pkg/envutil"
	"github.com/nordvale/planline-backend/internal/pkg/logger"
)

type Config struct {
	JWTSecretKey   string
	AccessTokenTTL time.Duration

	ServerPort   string
	AllowOrigins []string

	RedisAddr        string
	RedisPassword    string
	ProgressCacheTTL time.Duration

	AutoActivateSprints bool
	AutoCompleteSprints bool

	NotifyFallbackEmail string

	MetricsAddr string
	Environment string
	Version     string
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		JWTSecretKey:        envutil.String("JWT_SECRET_KEY", "defaultsecret"),
		AccessTokenTTL:      time.Duration(envutil.Int("ACCESS_TOKEN_TTL", 3600)) * time.Second,
		ServerPort:          envutil.String("PORT", "8080"),
		RedisAddr:           envutil.String("REDIS_ADDR", ""),
		RedisPassword:       envutil.String("REDIS_PASSWORD", ""),
		ProgressCacheTTL:    time.Duration(envutil.Int("PROGRESS_CACHE_TTL_SECONDS", 60)) * time.Second,
		AutoActivateSprints: envutil.Bool("ENGINE_AUTO_ACTIVATE_SPRINTS", true),
		AutoCompleteSprints: envutil.Bool("ENGINE_AUTO_COMPLETE_SPRINTS", true),
		NotifyFallbackEmail: envutil.String("NOTIFY_FALLBACK_EMAIL", ""),
		MetricsAddr:         envutil.String("METRICS_ADDR", ""),
		Environment:         envutil.String("ENVIRONMENT", "development"),
		Version:             envutil.String("SERVICE_VERSION", "dev"),
	}
	if origins := envutil.String("CORS_ALLOW_ORIGINS", ""); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowOrigins = append(cfg.AllowOrigins, o)
			}
		}
	}
	if cfg.JWTSecretKey == "defaultsecret" {
		log.Warn("JWT_SECRET_KEY not set, using insecure default")
	}
	return cfg
}
