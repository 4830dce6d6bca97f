package providers

import (
	"fmt"
	"path/filepath"
	"strings"
	"tandem/internal/structures"

	"github.com/spf13/viper"
)

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	filename := filepath.Base(flags.ConfigPath)
	viper.AddConfigPath(filepath.Dir(flags.ConfigPath))
	viper.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	viper.SetConfigType("yaml")

	viper.BindEnv("logger.level", "TANDEM_LOG_LEVEL")
	viper.BindEnv("store.path", "TANDEM_STORE_PATH")
	viper.BindEnv("store.retentionDays", "TANDEM_RETENTION_DAYS")
	viper.BindEnv("content.freeDays", "TANDEM_FREE_DAYS")
	viper.BindEnv("maintenance.evictionInterval", "TANDEM_EVICTION_INTERVAL")
	viper.BindEnv("cache.enabled", "TANDEM_CACHE_ENABLED")
	viper.BindEnv("cache.size", "TANDEM_CACHE_SIZE")

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = viper.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "TandemContentDaemon"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
