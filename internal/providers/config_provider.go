package providers

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"bousai/internal/structures"
)

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	filename := filepath.Base(flags.ConfigPath)
	viper.AddConfigPath(filepath.Dir(flags.ConfigPath))
	viper.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	viper.SetConfigType("yaml")

	viper.BindEnv("logger.level", "BOUSAI_LOG_LEVEL")
	viper.BindEnv("remote.baseUrl", "BOUSAI_REMOTE_BASE_URL")
	viper.BindEnv("storage.filePath", "BOUSAI_STORAGE_FILE")
	viper.BindEnv("cache.enabled", "BOUSAI_CACHE_ENABLED")
	viper.BindEnv("cache.maxSizeKB", "BOUSAI_CACHE_MAX_SIZE_KB")
	viper.BindEnv("version.checkInterval", "BOUSAI_VERSION_CHECK_INTERVAL")

	// Product-tuned timing defaults. They are configuration, not invariants.
	viper.SetDefault("deviceSync.throttle", 2*time.Second)
	viper.SetDefault("deviceSync.errorCooldown", 10*time.Second)
	viper.SetDefault("deviceSync.rateLimitCooldown", 60*time.Second)
	viper.SetDefault("deviceSync.maxSavedAreas", 5)
	viper.SetDefault("deviceSync.maxFavorites", 5)
	viper.SetDefault("deviceSync.maxRecents", 10)
	viper.SetDefault("deviceSync.maxCheckins", 50)
	viper.SetDefault("checkin.minInterval", 15*time.Second)
	viper.SetDefault("checkin.maxQueued", 50)
	viper.SetDefault("checkin.maxCommentLength", 120)
	viper.SetDefault("cache.maxSizeKB", 5120)
	viper.SetDefault("cache.ttlDays", 7)
	viper.SetDefault("cache.searchHistoryMax", 20)
	viper.SetDefault("cache.hotSizeMB", 8)
	viper.SetDefault("version.checkInterval", 5*time.Minute)
	viper.SetDefault("connectivity.probeInterval", 30*time.Second)
	viper.SetDefault("storage.saveInterval", 30*time.Second)
	viper.SetDefault("remote.timeout", 10*time.Second)

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

	conf.AppName = "BousaiSyncDaemon"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
