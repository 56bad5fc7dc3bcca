package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rawbytedev/flatwire/pkg/config"
)

func newInitCmd(a *app) *cobra.Command {
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Long: `Write a default config file to the --config path.

Examples:
  flatwire init
  flatwire init --config ./flatwire.yaml --data-dir ./data`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.ConfigExists(a.configPath) && !force {
				return fmt.Errorf("config %s already exists, use --force to overwrite", a.configPath)
			}
			cfg := config.DefaultConfig()
			if a.dataDir != "" {
				cfg.DataDir = a.dataDir
			}
			if err := config.SaveConfig(cfg, a.configPath); err != nil {
				return err
			}
			cmd.Printf("Wrote %s\n", a.configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return initCmd
}
