package config

import (
	"os"
	"path/filepath"
)

const (
	appNameVar     = "SHOP_APP_NAME"
	apiBaseURLVar  = "SHOP_API_URL"
	sessionFileVar = "SHOP_SESSION_FILE"
)

type EnvVars struct{}

var _ Config = mainConfig{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "shopctl")
}

// GetAPIBaseURL returns the root of the commerce API, including the
// versioned path prefix every endpoint hangs off.
func (EnvVars) GetAPIBaseURL() string {
	return GetEnv(apiBaseURLVar, "http://localhost:3055/v1/api")
}

// GetSessionFile returns where the CLI persists its session keys.
func (EnvVars) GetSessionFile() string {
	fallback := ".shopctl/session.json"
	if home, err := os.UserHomeDir(); err == nil {
		fallback = filepath.Join(home, ".shopctl", "session.json")
	}
	return GetEnv(sessionFileVar, fallback)
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
