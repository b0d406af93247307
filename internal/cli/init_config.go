package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"facilityops/internal/config"
)

func initConfigCommand(opts *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write a configuration file with the default settings",
		Long: `Write the default configuration to the --config path. Secrets are left
empty; supply them in the file or through the environment.

Examples:
  # Write facilityops.yaml in the current directory
  facilityops init-config

  # Replace an existing file
  facilityops init-config --config /etc/facilityops/config.yaml --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				_, err := os.Stat(opts.configPath)
				if err == nil {
					return fmt.Errorf("%s already exists; use --force to overwrite", opts.configPath)
				}
				if !errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("failed to check %s: %w", opts.configPath, err)
				}
			}
			if err := config.DefaultConfig().Save(opts.configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", opts.configPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}
