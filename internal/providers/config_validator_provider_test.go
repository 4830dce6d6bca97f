package providers_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tandem/internal/providers"
	"tandem/internal/structures"
)

func validConfig() *structures.Config {
	conf := &structures.Config{}
	conf.WebServer.Host = "127.0.0.1"
	conf.WebServer.Port = 8080
	conf.Logger.Level = "info"
	conf.Logger.Mode = 1
	conf.Logger.Dir = "/var/log/tandem"
	conf.Store.Path = "/var/lib/tandem/cache.db"
	conf.Store.SchemaVersion = 2
	conf.Store.RetentionDays = 30
	conf.Content.ManifestPath = "/etc/tandem/manifest.yaml"
	conf.Content.FreeDays = 7
	conf.Content.FallbackLocale = "en"
	conf.Content.ReleaseHour = 21
	conf.Content.AnswerWindow = 24 * time.Hour
	conf.Maintenance.EvictionInterval = time.Hour
	conf.Remote.Timeout = 5 * time.Second
	return conf
}

func TestCnfValidatorAcceptsValidConfig(t *testing.T) {
	assert.NoError(t, providers.NewCnfValidator(validConfig()).Validate())
}

func TestCnfValidatorRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*structures.Config)
	}{
		{"unknown log level", func(c *structures.Config) { c.Logger.Level = "verbose" }},
		{"missing host", func(c *structures.Config) { c.WebServer.Host = "" }},
		{"zero port", func(c *structures.Config) { c.WebServer.Port = 0 }},
		{"missing store path", func(c *structures.Config) { c.Store.Path = "" }},
		{"zero retention", func(c *structures.Config) { c.Store.RetentionDays = 0 }},
		{"missing manifest", func(c *structures.Config) { c.Content.ManifestPath = "" }},
		{"missing fallback locale", func(c *structures.Config) { c.Content.FallbackLocale = "" }},
		{"zero answer window", func(c *structures.Config) { c.Content.AnswerWindow = 0 }},
		{"zero remote timeout", func(c *structures.Config) { c.Remote.Timeout = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conf := validConfig()
			tc.mutate(conf)
			assert.Error(t, providers.NewCnfValidator(conf).Validate())
		})
	}
}
