package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds everything Hestia reads from the environment. A .env file is
// loaded by main before this runs; empty REDIS_ADDR or ATLAS_API_URL disables
// the optional subsystems.
type Config struct {
	HTTP struct {
		Addr string
	}
	DatabaseURL string
	TokenKey    string
	Redis       struct {
		Addr     string
		Password string
		DB       int
	}
	Atlas struct {
		APIURL    string
		AppID     string
		SecretKey string
		Timeout   time.Duration
	}
	Log struct {
		Level  string
		Format string
	}
	UploadDir      string
	ResultCacheTTL time.Duration
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.DatabaseURL = getEnv("DATABASE_URL", "user=postgres dbname=hestia password=password sslmode=disable")
	cfg.TokenKey = getEnv("TOKEN_KEY", "")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.Atlas.APIURL = getEnv("ATLAS_API_URL", "")
	cfg.Atlas.AppID = getEnv("ATLAS_APP_ID", "")
	cfg.Atlas.SecretKey = getEnv("ATLAS_SECRET_KEY", "")
	cfg.Atlas.Timeout = time.Duration(parseInt(getEnv("ATLAS_TIMEOUT_SECONDS", "30"), 30)) * time.Second

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.UploadDir = getEnv("UPLOAD_DIR", "./static/uploads")
	cfg.ResultCacheTTL = time.Duration(parseInt(getEnv("RESULT_CACHE_TTL_SECONDS", "3600"), 3600)) * time.Second

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
