package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values
const (
	DefaultCompilerPath = "mojo"
	DefaultVerbose      = false

	// Timeouts default to zero, matching the toolchain's unbounded waits.
	DefaultBuildTimeout = time.Duration(0)
	DefaultRunTimeout   = time.Duration(0)
)

// Holds the configuration options for mojorun
type Config struct {
	// Path or bare name of the Mojo compiler binary
	CompilerPath string

	// Root directory for cached binaries and the build journal.
	// Empty selects the per-user default.
	CacheDir string

	// Maximum duration of one compile; zero means no limit
	BuildTimeout time.Duration

	// Maximum duration of one artifact run; zero means no limit
	RunTimeout time.Duration

	// Mix the toolchain version into cache keys so artifacts are
	// retired when the compiler changes
	FingerprintToolchain bool

	// Optional YAML file with extra hint pairs
	HintsFile string

	// Enable verbose output
	Verbose bool
}

func Load() (*Config, error) {
	cfg := &Config{
		CompilerPath:         viper.GetString("compiler_path"),
		CacheDir:             viper.GetString("cache_dir"),
		BuildTimeout:         viper.GetDuration("build_timeout"),
		RunTimeout:           viper.GetDuration("run_timeout"),
		FingerprintToolchain: viper.GetBool("fingerprint_toolchain"),
		HintsFile:            viper.GetString("hints_file"),
		Verbose:              viper.GetBool("verbose"),
	}

	// Apply defaults if not set
	if cfg.CompilerPath == "" {
		cfg.CompilerPath = DefaultCompilerPath
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.CompilerPath == "" {
		return fmt.Errorf("compiler path not specified")
	}

	// A bare name like "mojo" is resolved via PATH; only explicit paths
	// are absolutized.
	if strings.ContainsRune(c.CompilerPath, filepath.Separator) || strings.ContainsRune(c.CompilerPath, '/') {
		abs, err := filepath.Abs(c.CompilerPath)
		if err != nil {
			return fmt.Errorf("invalid compiler path: %v", err)
		}

		c.CompilerPath = abs
	}

	// Resolve cache directory
	if c.CacheDir != "" {
		abs, err := filepath.Abs(c.CacheDir)
		if err != nil {
			return fmt.Errorf("invalid cache directory: %v", err)
		}

		c.CacheDir = abs
	}

	// Resolve hints file
	if c.HintsFile != "" {
		abs, err := filepath.Abs(c.HintsFile)
		if err != nil {
			return fmt.Errorf("invalid hints file path: %v", err)
		}

		c.HintsFile = abs
	}

	// Validate timeouts
	if c.BuildTimeout < 0 {
		return fmt.Errorf("invalid build timeout: %s", c.BuildTimeout)
	}

	if c.RunTimeout < 0 {
		return fmt.Errorf("invalid run timeout: %s", c.RunTimeout)
	}

	return nil
}
