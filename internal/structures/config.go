package structures

import "time"

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type Remote struct {
	BaseURL string        `yaml:"baseUrl" validate:"required|fullUrl"`
	Timeout time.Duration `yaml:"timeout" validate:"required|min:1"`
}

type StorageConfig struct {
	FilePath     string        `yaml:"filePath" validate:"required|unixPath"`
	SaveInterval time.Duration `yaml:"saveInterval" validate:"required|min:1"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

// DeviceSyncConfig tunes the push throttle and failure cooldowns for
// device record synchronization, plus the list caps on the record itself.
type DeviceSyncConfig struct {
	Throttle          time.Duration `yaml:"throttle"`
	ErrorCooldown     time.Duration `yaml:"errorCooldown"`
	RateLimitCooldown time.Duration `yaml:"rateLimitCooldown"`
	MaxSavedAreas     int           `yaml:"maxSavedAreas"`
	MaxFavorites      int           `yaml:"maxFavorites"`
	MaxRecents        int           `yaml:"maxRecents"`
	MaxCheckins       int           `yaml:"maxCheckins"`
}

type CheckinConfig struct {
	MinInterval      time.Duration `yaml:"minInterval"`
	MaxQueued        int           `yaml:"maxQueued"`
	MaxCommentLength int           `yaml:"maxCommentLength"`
}

type CacheConfig struct {
	Enabled          bool `yaml:"enabled"`
	MaxSizeKB        int  `yaml:"maxSizeKB"`
	TTLDays          int  `yaml:"ttlDays"`
	SearchHistoryMax int  `yaml:"searchHistoryMax"`
	HotSizeMB        int  `yaml:"hotSizeMB"`
}

type VersionConfig struct {
	CheckInterval time.Duration `yaml:"checkInterval"`
}

type ConnectivityConfig struct {
	ProbeInterval time.Duration `yaml:"probeInterval"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	AppName      string
	Debug        bool
	Path         string
	WebServer    Server             `yaml:"webServer"`
	Remote       Remote             `yaml:"remote"`
	Storage      StorageConfig      `yaml:"storage"`
	Logger       LoggerConfig       `yaml:"logger"`
	DeviceSync   DeviceSyncConfig   `yaml:"deviceSync"`
	Checkin      CheckinConfig      `yaml:"checkin"`
	Cache        CacheConfig        `yaml:"cache"`
	Version      VersionConfig      `yaml:"version"`
	Connectivity ConnectivityConfig `yaml:"connectivity"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}
