// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Driver names accepted by browser.driver.
const (
	DriverHTTP       = "http"
	DriverInProcess  = "inprocess"
	DriverStatic     = "static"
	DriverChrome     = "chrome"
	DriverPlaywright = "playwright"
)

// Config holds the entire testbrowser configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Network NetworkConfig `mapstructure:"network" yaml:"network"`
	Chrome  ChromeConfig  `mapstructure:"chrome" yaml:"chrome"`
}

// LoggerConfig defines the logging settings.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for the console level encoder.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
}

// BrowserConfig controls session behaviour.
type BrowserConfig struct {
	Driver          string `mapstructure:"driver" yaml:"driver"`
	BaseURL         string `mapstructure:"base_url" yaml:"base_url"`
	MaxRedirects    int    `mapstructure:"max_redirects" yaml:"max_redirects"`
	RaiseHTTPErrors bool   `mapstructure:"raise_http_errors" yaml:"raise_http_errors"`
	ParseMode       string `mapstructure:"parse_mode" yaml:"parse_mode"`
	DumpDir         string `mapstructure:"dump_dir" yaml:"dump_dir"`
	KeepDumps       bool   `mapstructure:"keep_dumps" yaml:"keep_dumps"`
	// SuppressResources asks the application under test to skip rendering
	// static resource viewlets. TESTBROWSER_RENDER_RESOURCES turns it off.
	SuppressResources bool   `mapstructure:"suppress_resources" yaml:"suppress_resources"`
	UserAgent         string `mapstructure:"user_agent" yaml:"user_agent"`
}

// NetworkConfig holds transport settings for the socket based drivers.
type NetworkConfig struct {
	RequestTimeout  time.Duration     `mapstructure:"request_timeout" yaml:"request_timeout"`
	IgnoreTLSErrors bool              `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	ProxyURL        string            `mapstructure:"proxy_url" yaml:"proxy_url"`
	Headers         map[string]string `mapstructure:"headers" yaml:"headers"`
	// RateLimit caps outgoing requests per second. Zero disables pacing.
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// ChromeConfig holds settings for the JS capable drivers.
type ChromeConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	ExecPath          string        `mapstructure:"exec_path" yaml:"exec_path"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
}

// NewDefaultConfig returns a configuration populated with the defaults from SetDefaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// Defaults are static and always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// SetDefaults registers every default on the given viper instance.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "testbrowser")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")

	// -- Browser --
	v.SetDefault("browser.driver", DriverHTTP)
	v.SetDefault("browser.base_url", "")
	v.SetDefault("browser.max_redirects", 10)
	v.SetDefault("browser.raise_http_errors", true)
	v.SetDefault("browser.parse_mode", "html")
	v.SetDefault("browser.dump_dir", "")
	v.SetDefault("browser.keep_dumps", false)
	v.SetDefault("browser.suppress_resources", true)
	v.SetDefault("browser.user_agent", "testbrowser/1.0")

	// -- Network --
	v.SetDefault("network.request_timeout", "30s")
	v.SetDefault("network.ignore_tls_errors", false)
	v.SetDefault("network.proxy_url", "")
	v.SetDefault("network.rate_limit", 0)

	// -- Chrome --
	v.SetDefault("chrome.headless", true)
	v.SetDefault("chrome.exec_path", "")
	v.SetDefault("chrome.navigation_timeout", "60s")
}

// NewConfigFromViper decodes and validates the configuration held by v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// The resource toggle predates the TESTBROWSER_BROWSER_ prefix scheme.
	_ = v.BindEnv("browser.render_resources", "TESTBROWSER_RENDER_RESOURCES")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if v.GetBool("browser.render_resources") {
		cfg.Browser.SuppressResources = false
	}

	if cfg.Browser.DumpDir != "" {
		expanded, err := homedir.Expand(cfg.Browser.DumpDir)
		if err != nil {
			return nil, fmt.Errorf("could not expand browser.dump_dir: %w", err)
		}
		cfg.Browser.DumpDir = expanded
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for values no session can work with.
func (c *Config) Validate() error {
	switch c.Browser.Driver {
	case "", DriverHTTP, DriverInProcess, DriverStatic, DriverChrome, DriverPlaywright:
	default:
		return fmt.Errorf("browser.driver %q is not one of http, inprocess, static, chrome, playwright", c.Browser.Driver)
	}
	if c.Browser.MaxRedirects < 0 {
		return fmt.Errorf("browser.max_redirects must not be negative")
	}
	switch strings.ToLower(c.Browser.ParseMode) {
	case "html", "xml":
	default:
		return fmt.Errorf("browser.parse_mode must be html or xml, got %q", c.Browser.ParseMode)
	}
	if c.Network.RequestTimeout < 0 {
		return fmt.Errorf("network.request_timeout must not be negative")
	}
	if c.Network.RateLimit < 0 {
		return fmt.Errorf("network.rate_limit must not be negative")
	}
	return nil
}
