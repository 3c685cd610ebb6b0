package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/smartkrishi/smartkrishi-go/internal/model"
)

// MemoryStorage is the STORAGE_DIR value that keeps the session in memory.
const MemoryStorage = ":memory:"

type Config struct {
	Port       string
	Env        string
	AppName    string
	BackendURL string
	StorageDir string
	LogLevel   slog.Level
	LogFile    string
	Soil       model.Coordinate
}

// Production reports whether the app runs with ENV=production.
func (c Config) Production() bool {
	return c.Env == "production"
}

func Load() Config {
	cfg := Config{
		Port:       getEnv("PORT", "3000"),
		Env:        getEnv("ENV", "development"),
		AppName:    getEnv("APP_NAME", "Smart Krishi"),
		BackendURL: strings.TrimRight(os.Getenv("BACKEND_URL"), "/"),
		StorageDir: getEnv("STORAGE_DIR", defaultStorageDir()),
		LogLevel:   getLevel("LOG_LEVEL", slog.LevelInfo),
		LogFile:    os.Getenv("LOG_FILE"),
		Soil: model.Coordinate{
			Lat: getFloat("SOIL_LAT", 26.7),
			Lon: getFloat("SOIL_LON", 83.3),
		},
	}

	if cfg.BackendURL == "" {
		slog.Error("BACKEND_URL is not set, backend requests will fail")
	}

	return cfg
}

// defaultStorageDir is the per-user profile directory shared by every
// running client of the same user.
func defaultStorageDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "smartkrishi", "storage")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("invalid number, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return f
}

func getLevel(key string, fallback slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(v)); err != nil {
		slog.Warn("invalid log level, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return l
}
