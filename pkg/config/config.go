package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Key string // dotted viper key, env var is CLOUDFLEET_ + upper snake

const (
	cliBinary       Key = "cli.binary"
	cliMinVersion   Key = "cli.min_version"
	cliParallel     Key = "cli.parallel"
	cliTimeout      Key = "cli.timeout"
	cachePath       Key = "cache.path"
	sentryDSN       Key = "sentry.dsn"
	serveAddr       Key = "serve.addr"
	watchCron       Key = "watch.cron"
	cotenancySince  Key = "cotenancy.since"
	debugCommands   Key = "debug.commands"
	configDirectory     = ".cloudfleet"
)

type ConstantsConfig struct {
	v *viper.Viper
}

func NewConstants() *ConstantsConfig {
	return NewConstantsFrom(viper.GetViper())
}

func NewConstantsFrom(v *viper.Viper) *ConstantsConfig {
	setDefaults(v)
	return &ConstantsConfig{v: v}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(string(cliBinary), "magento-cloud")
	v.SetDefault(string(cliMinVersion), "1.40.0")
	v.SetDefault(string(cliParallel), 8)
	v.SetDefault(string(cliTimeout), 2*time.Minute)
	v.SetDefault(string(cachePath), filepath.Join(GetConfigDirectory(), "cache.db"))
	v.SetDefault(string(serveAddr), ":8080")
	v.SetDefault(string(watchCron), "@every 1h")
	v.SetDefault(string(cotenancySince), time.Duration(0))
}

func (c ConstantsConfig) GetCLIBinary() string {
	return c.v.GetString(string(cliBinary))
}

func (c ConstantsConfig) GetCLIMinVersion() string {
	return c.v.GetString(string(cliMinVersion))
}

func (c ConstantsConfig) GetCLIParallel() int {
	if n := c.v.GetInt(string(cliParallel)); n > 0 {
		return n
	}
	return 1
}

func (c ConstantsConfig) GetCLITimeout() time.Duration {
	return c.v.GetDuration(string(cliTimeout))
}

func (c ConstantsConfig) GetCachePath() string {
	return c.v.GetString(string(cachePath))
}

func (c ConstantsConfig) GetSentryDSN() string {
	return c.v.GetString(string(sentryDSN))
}

func (c ConstantsConfig) GetServeAddr() string {
	return c.v.GetString(string(serveAddr))
}

func (c ConstantsConfig) GetWatchCron() string {
	return c.v.GetString(string(watchCron))
}

// GetCotenancySince is how far back observations count. 0 means all history.
func (c ConstantsConfig) GetCotenancySince() time.Duration {
	return c.v.GetDuration(string(cotenancySince))
}

func (c ConstantsConfig) GetDebugCommands() bool {
	return c.v.GetBool(string(debugCommands))
}

var GlobalConfig = NewConstants()

func GetConfigDirectory() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return configDirectory
	}
	return filepath.Join(home, configDirectory)
}

// Load reads config.yaml from /etc/cloudfleet or path and binds CLOUDFLEET_*
// env vars. A missing file is not an error.
func Load(v *viper.Viper, path string) error {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/cloudfleet/")
	v.AddConfigPath(path)
	v.SetEnvPrefix("cloudfleet")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return err //nolint:wrapcheck // config cannot import errors
	}
	return nil
}
