// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Target() TargetConfig
	Timing() TimingConfig
	Suite() SuiteConfig

	SetBrowserHeadless(bool)
	SetSuiteParallel(int)
	SetSuiteReportDir(string)
	SetTargetBaseURL(string)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	BrowserCfg BrowserConfig `mapstructure:"browser" yaml:"browser"`
	TargetCfg  TargetConfig  `mapstructure:"target" yaml:"target"`
	TimingCfg  TimingConfig  `mapstructure:"timing" yaml:"timing"`
	SuiteCfg   SuiteConfig   `mapstructure:"suite" yaml:"suite"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig   { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig { return c.BrowserCfg }
func (c *Config) Target() TargetConfig   { return c.TargetCfg }
func (c *Config) Timing() TimingConfig   { return c.TimingCfg }
func (c *Config) Suite() SuiteConfig     { return c.SuiteCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetBrowserHeadless(b bool)     { c.BrowserCfg.Headless = b }
func (c *Config) SetSuiteParallel(n int)        { c.SuiteCfg.Parallel = n }
func (c *Config) SetSuiteReportDir(dir string)  { c.SuiteCfg.ReportDir = dir }
func (c *Config) SetTargetBaseURL(base string)  { c.TargetCfg.BaseURL = base }

// LoggerConfig holds all the configuration for the logger.
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

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the Chromium instance driving each page suite.
type BrowserConfig struct {
	Headless            bool           `mapstructure:"headless" yaml:"headless"`
	DisableGPU          bool           `mapstructure:"disable_gpu" yaml:"disable_gpu"`
	IgnoreTLSErrors     bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	ExecPath            string         `mapstructure:"exec_path" yaml:"exec_path"`
	Args                []string       `mapstructure:"args" yaml:"args"`
	Viewport            map[string]int `mapstructure:"viewport" yaml:"viewport"`
	ScreenshotOnFailure bool           `mapstructure:"screenshot_on_failure" yaml:"screenshot_on_failure"`
}

// TargetConfig describes the dashboard under test.
type TargetConfig struct {
	BaseURL         string   `mapstructure:"base_url" yaml:"base_url"`
	RequestPrefixes []string `mapstructure:"request_prefixes" yaml:"request_prefixes"`
	// DefaultDate is the reporting date the dashboard opens on.
	DefaultDate string `mapstructure:"default_date" yaml:"default_date"`
}

// TimingConfig holds the fixed settle delays between UI interactions.
type TimingConfig struct {
	ClickSettle       time.Duration `mapstructure:"click_settle" yaml:"click_settle"`
	OptionCommit      time.Duration `mapstructure:"option_commit" yaml:"option_commit"`
	ModalSettle       time.Duration `mapstructure:"modal_settle" yaml:"modal_settle"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
}

// SuiteConfig controls how page suites are discovered, scheduled and reported.
type SuiteConfig struct {
	PagesDir       string        `mapstructure:"pages_dir" yaml:"pages_dir"`
	Parallel       int           `mapstructure:"parallel" yaml:"parallel"`
	LaunchInterval time.Duration `mapstructure:"launch_interval" yaml:"launch_interval"`
	ReportDir      string        `mapstructure:"report_dir" yaml:"report_dir"`
	JUnit          bool          `mapstructure:"junit" yaml:"junit"`
	HAR            bool          `mapstructure:"har" yaml:"har"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "dashprobe")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.disable_gpu", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.args", []string{})
	v.SetDefault("browser.viewport", map[string]int{"width": 1920, "height": 1080})
	v.SetDefault("browser.screenshot_on_failure", true)

	// -- Target --
	v.SetDefault("target.base_url", "http://localhost:5173/#/")
	v.SetDefault("target.request_prefixes", []string{"http://srv-am-dsb:81/rpc/"})
	v.SetDefault("target.default_date", "2023-09-30")

	// -- Timing --
	v.SetDefault("timing.click_settle", 500*time.Millisecond)
	v.SetDefault("timing.option_commit", time.Second)
	v.SetDefault("timing.modal_settle", 500*time.Millisecond)
	v.SetDefault("timing.navigation_timeout", 60*time.Second)

	// -- Suite --
	v.SetDefault("suite.pages_dir", "pages")
	v.SetDefault("suite.parallel", 1)
	v.SetDefault("suite.launch_interval", 2*time.Second)
	v.SetDefault("suite.report_dir", "reports")
	v.SetDefault("suite.junit", true)
	v.SetDefault("suite.har", true)
}

// NewConfigFromViper unmarshals and validates configuration held by v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.TargetCfg.BaseURL == "" {
		return fmt.Errorf("target.base_url is a required configuration field")
	}
	if !strings.HasPrefix(c.TargetCfg.BaseURL, "http://") && !strings.HasPrefix(c.TargetCfg.BaseURL, "https://") {
		return fmt.Errorf("target.base_url must be an http(s) address, got %q", c.TargetCfg.BaseURL)
	}
	if c.SuiteCfg.Parallel <= 0 {
		return fmt.Errorf("suite.parallel must be a positive integer")
	}
	if c.SuiteCfg.LaunchInterval < 0 {
		return fmt.Errorf("suite.launch_interval must not be negative")
	}
	if err := c.TimingCfg.Validate(); err != nil {
		return fmt.Errorf("timing configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the settle delays.
func (t *TimingConfig) Validate() error {
	if t.ClickSettle < 0 || t.OptionCommit < 0 || t.ModalSettle < 0 {
		return fmt.Errorf("settle delays must not be negative")
	}
	if t.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation_timeout must be a positive duration")
	}
	return nil
}
