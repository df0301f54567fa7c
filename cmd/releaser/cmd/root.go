// Copyright © 2018 One Concern

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "releaser",
	Short: "Releaser builds and publishes versioned docker images",
	Long: `Releaser builds and publishes versioned docker images.

The version of the image is computed from a baseline VERSION file kept in the source tree.
While an image builds, the VERSION file holds the version being released so it gets embedded in the image.
The baseline is restored once the build is done, whatever its outcome.
Its lock file and restore journal live in a state directory (baseline.state), out of the build context.

Images are tagged both with their local name and their registry namespace, e.g. "img:1.2.3" and "ns/img:1.2.3".
`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

var config *Config

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
//
// The exit code is decided here, once the command has returned.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "error:", err)
		osExit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() error {
	setConfigDefaults()

	if os.Getenv(envConfig) != "" {
		// Use config file from the environment.
		viper.SetConfigFile(os.Getenv(envConfig))
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.releaser")
		viper.AddConfigPath("/etc/releaser")
		viper.SetConfigName("releaser")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return fmt.Errorf("reading config file: %w", err)
		}
	} else {
		infoLogger.Println("Using config file:", viper.ConfigFileUsed())
	}

	var err error
	config, err = newConfig()
	return err
}

func init() {
	addImageNameFlag(rootCmd)
	addNamespaceFlag(rootCmd)
	addBuildContextFlag(rootCmd)
	addBaselineFileFlag(rootCmd)
	addLogLevelFlag(rootCmd)
}
