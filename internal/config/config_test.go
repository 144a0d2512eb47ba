// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "testbrowser", cfg.Logger.ServiceName)
	assert.Equal(t, DriverHTTP, cfg.Browser.Driver)
	assert.Equal(t, 10, cfg.Browser.MaxRedirects)
	assert.True(t, cfg.Browser.RaiseHTTPErrors)
	assert.True(t, cfg.Browser.SuppressResources)
	assert.False(t, cfg.Browser.KeepDumps)
	assert.Equal(t, "html", cfg.Browser.ParseMode)
	assert.Equal(t, 30*time.Second, cfg.Network.RequestTimeout)
	assert.Equal(t, 60*time.Second, cfg.Chrome.NavigationTimeout)
	assert.NoError(t, cfg.Validate())
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"unknown driver", func(c *Config) { c.Browser.Driver = "mechanize" }, "browser.driver"},
		{"negative redirects", func(c *Config) { c.Browser.MaxRedirects = -1 }, "browser.max_redirects"},
		{"bad parse mode", func(c *Config) { c.Browser.ParseMode = "json" }, "browser.parse_mode"},
		{"negative timeout", func(c *Config) { c.Network.RequestTimeout = -time.Second }, "network.request_timeout"},
		{"negative rate limit", func(c *Config) { c.Network.RateLimit = -1 }, "network.rate_limit"},
		{"no driver is allowed", func(c *Config) { c.Browser.Driver = "" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// -- Viper Loading Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("Successful Load from YAML", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)

		yamlBytes := []byte(`
browser:
  driver: inprocess
  base_url: http://nohost/plone
  max_redirects: 3
network:
  headers:
    X-Test: "1"
`)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlBytes)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, DriverInProcess, cfg.Browser.Driver)
		assert.Equal(t, "http://nohost/plone", cfg.Browser.BaseURL)
		assert.Equal(t, 3, cfg.Browser.MaxRedirects)
		assert.Equal(t, "1", cfg.Network.Headers["x-test"])
	})

	t.Run("Validation Failure", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("browser.parse_mode", "yaml")

		_, err := NewConfigFromViper(v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})

	t.Run("Render Resources Toggle", func(t *testing.T) {
		t.Setenv("TESTBROWSER_RENDER_RESOURCES", "true")
		v := viper.New()
		SetDefaults(v)

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.False(t, cfg.Browser.SuppressResources)
	})

	t.Run("Resources Suppressed By Default", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.True(t, cfg.Browser.SuppressResources)
	})

	t.Run("Dump Dir Home Expansion", func(t *testing.T) {
		t.Setenv("HOME", "/tmp/testbrowser-home")
		homedir.DisableCache = true
		t.Cleanup(func() { homedir.DisableCache = false })
		v := viper.New()
		SetDefaults(v)
		v.Set("browser.dump_dir", "~/dumps")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "/tmp/testbrowser-home/dumps", cfg.Browser.DumpDir)
	})
}
