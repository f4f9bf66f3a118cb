package main

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/ryujinbites/internal/app"
)

func TestReadConfig_MissingEnvFileUsesDefaults(t *testing.T) {
	t.Setenv(envConfigPath, "")

	cfg, err := readConfig(filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)
	assert.Equal(t, app.DefaultConfig().HTTPAddr, cfg.HTTPAddr)
	assert.Equal(t, app.StorageDriverMemory, cfg.StorageDriver)
}

func TestReadConfig_FromEnvFile(t *testing.T) {
	t.Setenv(envConfigPath, "")
	// godotenv не перезаписывает уже заданные переменные, поэтому очищаем их после теста.
	t.Setenv("RYUJIN_HTTP_ADDR", "")
	require.NoError(t, os.Unsetenv("RYUJIN_HTTP_ADDR"))
	t.Setenv("RYUJIN_ADMIN_EMAIL", "")
	require.NoError(t, os.Unsetenv("RYUJIN_ADMIN_EMAIL"))

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("RYUJIN_HTTP_ADDR=:18080\nRYUJIN_ADMIN_EMAIL=chefe@ryujinbites.com\n"), 0o600))

	cfg, err := readConfig(envFile)
	require.NoError(t, err)
	assert.Equal(t, ":18080", cfg.HTTPAddr)
	assert.Equal(t, "chefe@ryujinbites.com", cfg.Bootstrap.Email)
}

func TestReadConfig_InvalidDriver(t *testing.T) {
	t.Setenv(envConfigPath, "")
	t.Setenv("RYUJIN_STORAGE_DRIVER", "mongo")

	_, err := readConfig(filepath.Join(t.TempDir(), ".env"))
	require.Error(t, err)
}

func TestSetupLogger(t *testing.T) {
	defer log.SetLevel(log.GetLevel())

	setupLogger("debug")
	assert.Equal(t, log.DebugLevel, log.GetLevel())

	setupLogger("verbose")
	assert.Equal(t, log.InfoLevel, log.GetLevel())
}
