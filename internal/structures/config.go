package structures

import "time"

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type StoreConfig struct {
	Path             string        `yaml:"path" validate:"required|unixPath"`
	SchemaVersion    int           `yaml:"schemaVersion" validate:"required|min:1"`
	RetentionDays    int           `yaml:"retentionDays" validate:"required|min:1"`
	MaxPerCategory   int           `yaml:"maxPerCategory"`
	CleanupThreshold int           `yaml:"cleanupThreshold"`
	OpenTimeout      time.Duration `yaml:"openTimeout"`
}

type ContentConfig struct {
	ManifestPath   string        `yaml:"manifestPath" validate:"required|unixPath"`
	FreeDays       int           `yaml:"freeDays" validate:"min:0"`
	FallbackLocale string        `yaml:"fallbackLocale" validate:"required"`
	ReleaseHour    int           `yaml:"releaseHour" validate:"min:0|max:23"`
	AnswerWindow   time.Duration `yaml:"answerWindow" validate:"required|min:1"`
}

type MaintenanceConfig struct {
	EvictionInterval time.Duration `yaml:"evictionInterval" validate:"required|min:1"`
}

type RemoteConfig struct {
	Timeout time.Duration `yaml:"timeout" validate:"required|min:1"`
}

type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	Size    int  `yaml:"size"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	AppName     string
	Debug       bool
	Path        string
	WebServer   Server            `yaml:"webServer"`
	Store       StoreConfig       `yaml:"store"`
	Content     ContentConfig     `yaml:"content"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Remote      RemoteConfig      `yaml:"remote"`
	Logger      LoggerConfig      `yaml:"logger"`
	Cache       CacheConfig       `yaml:"cache"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}
