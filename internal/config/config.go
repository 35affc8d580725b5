package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppName string
	Env     string
	Host    string
	Port    int

	JWTSecret          string
	AccessTokenMinutes int

	// StoreBackend selects the persistence layer: memory, sqlite or mongo.
	StoreBackend string
	SQLitePath   string
	MongoURI     string
	MongoDB      string

	UploadDir   string
	CORSOrigins []string
	Debug       bool

	// OfflineDebounce is the window before a "went offline" transition is
	// announced; a reconnect within the window cancels it.
	OfflineDebounce time.Duration

	TURNURL  string
	TURNUser string
	TURNPass string
}

func Load() (*Config, error) {
	cfg := &Config{
		AppName: getEnv("APP_NAME", "chatserver"),
		Env:     getEnv("APP_ENV", "development"),
		Host:    getEnv("HTTP_HOST", "0.0.0.0"),
		Port:    getEnvAsInt("HTTP_PORT", 5000),

		JWTSecret:          os.Getenv("JWT_SECRET"),
		AccessTokenMinutes: getEnvAsInt("ACCESS_TOKEN_EXPIRE_MINUTES", 60*24),

		StoreBackend: getEnv("STORE_BACKEND", "memory"),
		SQLitePath:   getEnv("SQLITE_PATH", "chatserver.db"),
		MongoURI:     getEnv("MONGO_URI", ""),
		MongoDB:      getEnv("MONGO_DB", "chatserver"),

		UploadDir: getEnv("UPLOAD_DIR", "uploads"),
		Debug:     getEnvAsBool("DEBUG", true),

		OfflineDebounce: time.Duration(getEnvAsInt("OFFLINE_DEBOUNCE_MS", 100)) * time.Millisecond,

		TURNURL:  os.Getenv("TURN_URL"),
		TURNUser: os.Getenv("TURN_USER"),
		TURNPass: os.Getenv("TURN_PASS"),
	}

	cors := getEnv("CORS_ORIGINS", "")
	if cors != "" {
		parts := strings.Split(cors, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		cfg.CORSOrigins = parts
	} else {
		cfg.CORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	switch cfg.StoreBackend {
	case "memory", "sqlite", "mongo":
	default:
		return nil, fmt.Errorf("STORE_BACKEND must be memory, sqlite or mongo, got %q", cfg.StoreBackend)
	}
	if cfg.StoreBackend == "mongo" && cfg.MongoURI == "" {
		return nil, fmt.Errorf("MONGO_URI is required for the mongo store backend")
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}

	return cfg, nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvAsInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvAsBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
