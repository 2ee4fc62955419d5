package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setXDGConfigHome points the user config directory at dir. Only Linux and
// the BSDs honor XDG_CONFIG_HOME, so other platforms skip.
func setXDGConfigHome(t *testing.T, dir string) {
	t.Helper()

	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("global config location is platform specific")
	}

	t.Setenv("XDG_CONFIG_HOME", dir)
}

// newFlaggedCommand builds a cobra command carrying every flag the loader
// binds, mirroring the root command's persistent flag set.
func newFlaggedCommand() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Flags().String("compiler", "", "Path to the Mojo compiler")
	cmd.Flags().String("cache-dir", "", "Cache directory")
	cmd.Flags().Duration("build-timeout", 0, "Compile timeout")
	cmd.Flags().Duration("run-timeout", 0, "Run timeout")
	cmd.Flags().Bool("fingerprint", false, "Key cache entries by toolchain version")
	cmd.Flags().String("hints-file", "", "Extra hints YAML file")
	cmd.Flags().BoolP("verbose", "v", false, "Verbose output")

	return cmd
}

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	assert.NotNil(t, loader)
}

func TestLoader_SetupViperDefaults(t *testing.T) {
	viper.Reset()
	loader := NewLoader()
	loader.setupViperDefaults()

	assert.Equal(t, "mojo", viper.GetString("compiler_path"))
	assert.Equal(t, "", viper.GetString("cache_dir"))
	assert.Equal(t, time.Duration(0), viper.GetDuration("build_timeout"))
	assert.Equal(t, time.Duration(0), viper.GetDuration("run_timeout"))
	assert.Equal(t, false, viper.GetBool("fingerprint_toolchain"))
	assert.Equal(t, "", viper.GetString("hints_file"))
	assert.Equal(t, false, viper.GetBool("verbose"))
}

func TestLoader_LoadGlobalConfig(t *testing.T) {
	t.Run("loads yaml config", func(t *testing.T) {
		viper.Reset()

		tempDir := t.TempDir()
		setXDGConfigHome(t, tempDir)

		mojorunDir := filepath.Join(tempDir, "mojorun")
		require.NoError(t, os.Mkdir(mojorunDir, 0o755))

		configContent := `compiler_path: "/opt/modular/bin/mojo"
build_timeout: 2m
verbose: true`
		require.NoError(t, os.WriteFile(filepath.Join(mojorunDir, "config.yml"), []byte(configContent), 0o644))

		loader := NewLoader()
		loader.loadGlobalConfig()

		assert.Equal(t, "/opt/modular/bin/mojo", viper.GetString("compiler_path"))
		assert.Equal(t, 2*time.Minute, viper.GetDuration("build_timeout"))
		assert.Equal(t, true, viper.GetBool("verbose"))
	})

	t.Run("loads json config", func(t *testing.T) {
		viper.Reset()

		tempDir := t.TempDir()
		setXDGConfigHome(t, tempDir)

		mojorunDir := filepath.Join(tempDir, "mojorun")
		require.NoError(t, os.Mkdir(mojorunDir, 0o755))

		configContent := `{
  "compiler_path": "/usr/local/bin/mojo",
  "fingerprint_toolchain": true
}`
		require.NoError(t, os.WriteFile(filepath.Join(mojorunDir, "config.json"), []byte(configContent), 0o644))

		loader := NewLoader()
		loader.loadGlobalConfig()

		assert.Equal(t, "/usr/local/bin/mojo", viper.GetString("compiler_path"))
		assert.Equal(t, true, viper.GetBool("fingerprint_toolchain"))
	})

	t.Run("handles missing global config gracefully", func(t *testing.T) {
		viper.Reset()

		setXDGConfigHome(t, t.TempDir())

		loader := NewLoader()
		assert.NotPanics(t, func() {
			loader.loadGlobalConfig()
		})
	})
}

func TestLoader_LoadLocalConfig(t *testing.T) {
	t.Run("loads local config from source file directory", func(t *testing.T) {
		viper.Reset()

		tempDir := t.TempDir()
		configContent := `cache_dir: "/var/cache/mojorun"
run_timeout: 30s`
		require.NoError(t, os.WriteFile(filepath.Join(tempDir, ".mojorun.yml"), []byte(configContent), 0o644))

		sourceFile := filepath.Join(tempDir, "hello.mojo")
		require.NoError(t, os.WriteFile(sourceFile, []byte("fn main():\n    print(1)\n"), 0o644))

		loader := NewLoader()
		loader.loadLocalConfig([]string{sourceFile})

		assert.Equal(t, "/var/cache/mojorun", viper.GetString("cache_dir"))
		assert.Equal(t, 30*time.Second, viper.GetDuration("run_timeout"))
	})

	t.Run("walks up directory tree to find config", func(t *testing.T) {
		viper.Reset()

		tempDir := t.TempDir()
		subDir := filepath.Join(tempDir, "examples", "nested")
		require.NoError(t, os.MkdirAll(subDir, 0o755))

		require.NoError(t, os.WriteFile(filepath.Join(tempDir, ".mojorun.yml"), []byte(`verbose: true`), 0o644))

		sourceFile := filepath.Join(subDir, "hello.mojo")
		require.NoError(t, os.WriteFile(sourceFile, []byte("fn main():\n    print(1)\n"), 0o644))

		loader := NewLoader()
		loader.loadLocalConfig([]string{sourceFile})

		assert.Equal(t, true, viper.GetBool("verbose"))
	})

	t.Run("literal source argument falls back to working directory", func(t *testing.T) {
		viper.Reset()

		loader := NewLoader()
		assert.NotPanics(t, func() {
			loader.loadLocalConfig([]string{"fn main():\n    print(1)"})
		})
	})

	t.Run("handles empty args", func(t *testing.T) {
		viper.Reset()

		loader := NewLoader()
		assert.NotPanics(t, func() {
			loader.loadLocalConfig([]string{})
		})
	})
}

func TestLoader_BindCommandFlags(t *testing.T) {
	viper.Reset()

	cmd := newFlaggedCommand()
	require.NoError(t, cmd.Flags().Set("compiler", "/opt/mojo/bin/mojo"))
	require.NoError(t, cmd.Flags().Set("cache-dir", "/tmp/mojorun-cache"))
	require.NoError(t, cmd.Flags().Set("build-timeout", "45s"))
	require.NoError(t, cmd.Flags().Set("fingerprint", "true"))
	require.NoError(t, cmd.Flags().Set("verbose", "true"))

	loader := NewLoader()
	loader.bindCommandFlags(cmd)

	assert.Equal(t, "/opt/mojo/bin/mojo", viper.GetString("compiler_path"))
	assert.Equal(t, "/tmp/mojorun-cache", viper.GetString("cache_dir"))
	assert.Equal(t, 45*time.Second, viper.GetDuration("build_timeout"))
	assert.Equal(t, true, viper.GetBool("fingerprint_toolchain"))
	assert.Equal(t, true, viper.GetBool("verbose"))
}

func TestLoader_LoadForCommand_Integration(t *testing.T) {
	t.Run("flags override local config which overrides global config", func(t *testing.T) {
		viper.Reset()

		globalBase := t.TempDir()
		setXDGConfigHome(t, globalBase)

		mojorunDir := filepath.Join(globalBase, "mojorun")
		require.NoError(t, os.Mkdir(mojorunDir, 0o755))

		globalContent := `compiler_path: "/global/mojo"
build_timeout: 1m
verbose: false`
		require.NoError(t, os.WriteFile(filepath.Join(mojorunDir, "config.yml"), []byte(globalContent), 0o644))

		localDir := t.TempDir()
		localContent := `build_timeout: 2m
verbose: true`
		require.NoError(t, os.WriteFile(filepath.Join(localDir, ".mojorun.yml"), []byte(localContent), 0o644))

		sourceFile := filepath.Join(localDir, "hello.mojo")
		require.NoError(t, os.WriteFile(sourceFile, []byte("fn main():\n    print(1)\n"), 0o644))

		cmd := newFlaggedCommand()
		require.NoError(t, cmd.Flags().Set("build-timeout", "3m"))

		loader := NewLoader()
		cfg, err := loader.LoadForCommand(cmd, []string{sourceFile})
		require.NoError(t, err)

		// Flag value wins.
		assert.Equal(t, 3*time.Minute, cfg.BuildTimeout)
		// Local config overrides global.
		assert.Equal(t, true, cfg.Verbose)
		// Global config is the base.
		assert.Equal(t, "/global/mojo", cfg.CompilerPath)
	})
}
