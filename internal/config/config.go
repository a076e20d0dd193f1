package config

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

var (
	once      sync.Once
	loadedEnv string
)

// LoadEnv loads environment variables from a .env file in the current or the
// parent directory, once per process. It returns the file that was loaded, or
// an empty string when none was found.
func LoadEnv() string {
	once.Do(func() {
		envFile := ".env"
		if _, err := os.Stat(envFile); os.IsNotExist(err) {
			envFile = filepath.Join("..", ".env")
			if _, err := os.Stat(envFile); os.IsNotExist(err) {
				return
			}
		}
		if err := godotenv.Load(envFile); err == nil {
			loadedEnv = envFile
		}
	})
	return loadedEnv
}

// GetEnv retrieves an environment variable with a fallback value if not set
func GetEnv(key, fallback string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	return value
}
