package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Loader handles configuration loading from various sources
type Loader struct{}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadForCommand loads configuration for a CLI invocation. Precedence is
// flags over local config over global config over defaults; args is only
// used to locate a project-local config file near the source argument.
func (l *Loader) LoadForCommand(cmd *cobra.Command, args []string) (*Config, error) {
	l.setupViperDefaults()
	l.loadGlobalConfig()
	l.loadLocalConfig(args)
	l.bindCommandFlags(cmd)

	return Load()
}

// setupViperDefaults sets up default values for viper
func (l *Loader) setupViperDefaults() {
	viper.SetDefault("compiler_path", DefaultCompilerPath)
	viper.SetDefault("cache_dir", "")
	viper.SetDefault("build_timeout", DefaultBuildTimeout)
	viper.SetDefault("run_timeout", DefaultRunTimeout)
	viper.SetDefault("fingerprint_toolchain", false)
	viper.SetDefault("hints_file", "")
	viper.SetDefault("verbose", DefaultVerbose)
}

// loadGlobalConfig loads global configuration from the user config
// directory ($XDG_CONFIG_HOME or the platform equivalent)
func (l *Loader) loadGlobalConfig() {
	base, err := os.UserConfigDir()
	if err != nil {
		return
	}

	globalDir := filepath.Join(base, "mojorun")

	for _, ext := range []string{"yml", "yaml", "json", "toml"} {
		globalPath := filepath.Join(globalDir, "config."+ext)

		if _, err := os.Stat(globalPath); err == nil {
			viper.SetConfigFile(globalPath)

			if err := viper.ReadInConfig(); err == nil {
				break
			}
		}
	}
}

// loadLocalConfig loads project configuration found by walking up from the
// source file's directory, or from the working directory when the argument
// is literal source rather than a path
func (l *Loader) loadLocalConfig(args []string) {
	dir, err := os.Getwd()
	if err != nil {
		return // silently ignore, config.Load() will handle validation
	}

	if len(args) > 0 {
		if abs, err := filepath.Abs(args[0]); err == nil {
			if info, statErr := os.Stat(abs); statErr == nil && info.Mode().IsRegular() {
				dir = filepath.Dir(abs)
			}
		}
	}

	localPath := FindLocalConfig(dir)
	if localPath != "" {
		// Merge so local files override global keys without erasing the rest.
		viper.SetConfigFile(localPath)
		_ = viper.MergeInConfig()
	}
}

// bindCommandFlags binds command flags to viper
func (l *Loader) bindCommandFlags(cmd *cobra.Command) {
	_ = viper.BindPFlag("compiler_path", cmd.Flags().Lookup("compiler"))
	_ = viper.BindPFlag("cache_dir", cmd.Flags().Lookup("cache-dir"))
	_ = viper.BindPFlag("build_timeout", cmd.Flags().Lookup("build-timeout"))
	_ = viper.BindPFlag("run_timeout", cmd.Flags().Lookup("run-timeout"))
	_ = viper.BindPFlag("fingerprint_toolchain", cmd.Flags().Lookup("fingerprint"))
	_ = viper.BindPFlag("hints_file", cmd.Flags().Lookup("hints-file"))
	_ = viper.BindPFlag("verbose", cmd.Flags().Lookup("verbose"))
}
