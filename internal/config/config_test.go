package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	for _, k := range []string{"SERVER_PORT", "MIGRATIONS_PATH", "ESTIMATION_WORKERS", "MAX_UPLOAD_BYTES", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "LOG_LEVEL", "PRECOMPUTE_ALTERNATIVES", "DATASET_RETENTION"} {
		t.Setenv(k, "")
	}

	assert.Equal(t, ":8080", ServerAddr())
	assert.Equal(t, "migrations", MigrationsPath())
	assert.Equal(t, runtime.GOMAXPROCS(0), EstimationWorkers())
	assert.Equal(t, int64(32<<20), MaxUploadBytes())
	assert.Equal(t, 100.0, RateLimitRPS())
	assert.Equal(t, 20, RateLimitBurst())
	assert.Equal(t, "info", LogLevel())
	assert.Equal(t, 0, PrecomputeAlternatives())
	assert.Equal(t, time.Duration(0), DatasetRetention())
}

func TestDatasetRetention(t *testing.T) {
	t.Setenv("DATASET_RETENTION", "720h")
	assert.Equal(t, 30*24*time.Hour, DatasetRetention())

	t.Setenv("DATASET_RETENTION", "a month")
	assert.Equal(t, time.Duration(0), DatasetRetention())
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("ESTIMATION_WORKERS", "-3")
	t.Setenv("MAX_UPLOAD_BYTES", "lots")
	t.Setenv("RATE_LIMIT_RPS", "0")

	assert.Equal(t, runtime.GOMAXPROCS(0), EstimationWorkers())
	assert.Equal(t, int64(32<<20), MaxUploadBytes())
	assert.Equal(t, 100.0, RateLimitRPS())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	env := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(env, []byte("ESTIMATION_WORKERS=3\nPRECOMPUTED_PREORDERS=/tmp/preorders-7.bin\n"), 0o600))
	require.NoError(t, os.WriteFile(env+".secret", []byte("DATABASE_URL=postgres://prest@localhost/prest\n"), 0o600))

	t.Setenv("PREST_ENV", env)
	// registered so t.Setenv restores them after godotenv sets them
	t.Setenv("ESTIMATION_WORKERS", "")
	t.Setenv("PRECOMPUTED_PREORDERS", "")
	t.Setenv("DATABASE_URL", "")
	os.Unsetenv("ESTIMATION_WORKERS")
	os.Unsetenv("PRECOMPUTED_PREORDERS")
	os.Unsetenv("DATABASE_URL")

	require.NoError(t, Load())
	assert.Equal(t, 3, EstimationWorkers())
	assert.Equal(t, "/tmp/preorders-7.bin", PrecomputedPreordersPath())
	assert.Equal(t, "postgres://prest@localhost/prest", DatabaseURL())
}
