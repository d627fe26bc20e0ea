package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := NewConstantsFrom(viper.New())

	assert.Equal(t, "magento-cloud", c.GetCLIBinary())
	assert.Equal(t, 8, c.GetCLIParallel())
	assert.Equal(t, 2*time.Minute, c.GetCLITimeout())
	assert.Equal(t, time.Duration(0), c.GetCotenancySince())
	assert.Equal(t, "@every 1h", c.GetWatchCron())
	assert.Equal(t, "", c.GetSentryDSN())
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := "cli:\n  binary: /opt/bin/magento-cloud\n  parallel: 0\ncotenancy:\n  since: 72h\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Setenv("CLOUDFLEET_SERVE_ADDR", "127.0.0.1:9000")

	v := viper.New()
	require.NoError(t, Load(v, dir))
	c := NewConstantsFrom(v)

	assert.Equal(t, "/opt/bin/magento-cloud", c.GetCLIBinary())
	assert.Equal(t, 1, c.GetCLIParallel())
	assert.Equal(t, 72*time.Hour, c.GetCotenancySince())
	assert.Equal(t, "127.0.0.1:9000", c.GetServeAddr())
}

func TestLoadMissingFile(t *testing.T) {
	assert.NoError(t, Load(viper.New(), t.TempDir()))
}
