package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rawbytedev/flatwire"
	"github.com/rawbytedev/flatwire/internal/logging"
	"github.com/rawbytedev/flatwire/pkg/config"
	"github.com/rawbytedev/flatwire/pkg/schema"
	"github.com/rawbytedev/flatwire/pkg/store"
)

// app is the state shared by every subcommand once flags are parsed.
type app struct {
	configPath string
	dataDir    string
	cfg        *config.Config
	log        *slog.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "flatwire",
		Short: "flatwire - zero-copy binary tables",
		Long: `flatwire encodes YAML values into flat buffers described by a YAML
schema, decodes them back, inspects their layout and keeps them in a
local store.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", config.DefaultConfigPath(), "Config file")
	rootCmd.PersistentFlags().StringVarP(&a.dataDir, "data-dir", "d", "", "Data directory for the store (overrides config)")

	rootCmd.AddCommand(
		newInitCmd(a),
		newEncodeCmd(a),
		newDecodeCmd(a),
		newInspectCmd(a),
		newPutCmd(a),
		newGetCmd(a),
		newBenchCmd(a),
	)
	return rootCmd
}

// Execute runs the command tree against os.Args.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func (a *app) load(cmd *cobra.Command) error {
	a.cfg = config.DefaultConfig()
	if config.ConfigExists(a.configPath) {
		cfg, err := config.LoadConfig(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	if a.dataDir != "" {
		a.cfg.DataDir = a.dataDir
	}
	log, err := logging.New(a.cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.log = log
	return nil
}

// codec returns a facade configured from the config file. A schema's file
// identifier applies when the config names none.
func (a *app) codec(s *schema.Schema) *flatwire.Flatwire {
	opts := a.cfg.Options()
	if opts.FileIdentifier == "" && s != nil {
		opts.FileIdentifier = s.FileIdentifier
	}
	return flatwire.New(opts)
}

func (a *app) openStore() (*store.Store, error) {
	if err := os.MkdirAll(a.cfg.DataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return store.Open(store.Options{
		Dir:          a.cfg.DataDir,
		SizePrefixed: a.cfg.Builder.SizePrefixed,
		Logger:       a.log,
	})
}

// schemaTable loads the schema file and resolves the table to use, the
// schema root when none is named.
func schemaTable(path, table string) (*schema.Schema, string, error) {
	if path == "" {
		return nil, "", fmt.Errorf("--schema is required")
	}
	s, err := schema.LoadFile(path)
	if err != nil {
		return nil, "", err
	}
	if table == "" {
		t, err := s.RootTable()
		if err != nil {
			return nil, "", err
		}
		table = t.Name
	}
	if _, ok := s.Table(table); !ok {
		return nil, "", fmt.Errorf("schema %s has no table %q", path, table)
	}
	return s, table, nil
}

func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}
