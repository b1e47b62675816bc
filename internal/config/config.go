package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by PREST_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("PREST_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Missing files are fine; the environment may be set directly.
	_ = godotenv.Load(envFile)
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func MigrationsPath() string {
	p := os.Getenv("MIGRATIONS_PATH")
	if p == "" {
		return "migrations"
	}
	return p
}

// PrecomputedPreordersPath is the preorder cache file loaded at startup.
// Empty means the cache is built on demand.
func PrecomputedPreordersPath() string {
	return os.Getenv("PRECOMPUTED_PREORDERS")
}

// EstimationWorkers bounds the subjects estimated concurrently per request.
// Defaults to GOMAXPROCS.
func EstimationWorkers() int {
	n, err := strconv.Atoi(os.Getenv("ESTIMATION_WORKERS"))
	if err != nil || n <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}

// PrecomputeAlternatives is how many alternatives the server warms the
// preorder cache to at startup. Zero disables warm-up.
func PrecomputeAlternatives() int {
	n, err := strconv.Atoi(os.Getenv("PRECOMPUTE_ALTERNATIVES"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// DatasetRetention is how long datasets are kept, e.g. "720h".
// Zero (the default) keeps them forever.
func DatasetRetention() time.Duration {
	d, err := time.ParseDuration(os.Getenv("DATASET_RETENTION"))
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// MaxUploadBytes caps dataset uploads and wire request bodies.
// Defaults to 32 MiB.
func MaxUploadBytes() int64 {
	n, err := strconv.ParseInt(os.Getenv("MAX_UPLOAD_BYTES"), 10, 64)
	if err != nil || n <= 0 {
		return 32 << 20
	}
	return n
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}
