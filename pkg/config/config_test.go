package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawbytedev/flatwire"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "./data", config.DataDir)
	assert.Equal(t, 1024, config.Builder.InitialSize)
	assert.Empty(t, config.Builder.FileIdentifier)
	assert.False(t, config.Wire.Compress)
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "text", config.Logging.Format)
	assert.NoError(t, config.Validate())
}

func TestLoadConfig(t *testing.T) {
	t.Run("load existing config", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")
		expected := &Config{
			DataDir: "/custom/data",
			Builder: Builder{InitialSize: 64, FileIdentifier: "STAT", SizePrefixed: true},
			Wire:    Wire{Compress: true},
			Logging: Logging{Level: "debug", Format: "json"},
		}
		require.NoError(t, SaveConfig(expected, configPath))
		assert.True(t, ConfigExists(configPath))

		loaded, err := LoadConfig(configPath)
		require.NoError(t, err)
		assert.Equal(t, expected, loaded)

		info, err := os.Stat(configPath)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	})

	t.Run("partial file keeps defaults", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("wire:\n  compress: true\n"), 0600))
		loaded, err := LoadConfig(configPath)
		require.NoError(t, err)
		assert.True(t, loaded.Wire.Compress)
		assert.Equal(t, 1024, loaded.Builder.InitialSize)
		assert.Equal(t, "info", loaded.Logging.Level)
	})

	t.Run("missing file", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "absent.yaml")
		assert.False(t, ConfigExists(configPath))
		_, err := LoadConfig(configPath)
		assert.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("data_dir: [unclosed"), 0600))
		_, err := LoadConfig(configPath)
		assert.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("builder:\n  file_identifier: TOOLONG\n"), 0600))
		_, err := LoadConfig(configPath)
		assert.ErrorContains(t, err, "file_identifier")
	})
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"negative size": func(c *Config) { c.Builder.InitialSize = -1 },
		"short fid":     func(c *Config) { c.Builder.FileIdentifier = "AB" },
		"bad format":    func(c *Config) { c.Logging.Format = "xml" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := DefaultConfig()
			mutate(c)
			assert.Error(t, c.Validate())
			assert.Error(t, SaveConfig(c, filepath.Join(t.TempDir(), "c.yaml")))
		})
	}
}

func TestOptions(t *testing.T) {
	c := DefaultConfig()
	c.Builder = Builder{InitialSize: 32, FileIdentifier: "ABCD", SizePrefixed: true, ForceDefaults: true}
	assert.Equal(t, flatwire.Options{InitialSize: 32, FileIdentifier: "ABCD", SizePrefixed: true, ForceDefaults: true}, c.Options())
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	assert.Equal(t, filepath.Join("/home/tester", ".config", "flatwire", "config.yaml"), DefaultConfigPath())
}
