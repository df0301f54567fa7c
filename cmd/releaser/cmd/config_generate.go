package cmd

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

var configGen = &cobra.Command{
	Use:   "create",
	Short: "Create a config",
	Long: `Create a config to use for releaser, from the current settings and flags.

The config file is placed in $HOME/.releaser/releaser.yaml unless --output is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := releaserFlags.config.output
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("could not get home directory for user: %w", err)
			}
			path = filepath.Join(home, ".releaser", "releaser.yaml")
		}

		o, err := yaml.Marshal(config)
		if err != nil {
			return fmt.Errorf("serialize config to yaml: %w", err)
		}
		if err = os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
		if err = ioutil.WriteFile(path, o, 0600); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "config written to", path)
		return nil
	},
}

func init() {
	addConfigOutputFlag(configGen)

	configCmd.AddCommand(configGen)
}
