package cmd

import (
	"time"

	"github.com/oneconcern/releaser/pkg/baseline"
	"github.com/oneconcern/releaser/pkg/dlogger"
	"github.com/oneconcern/releaser/pkg/image"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	envPrefix = "RELEASER"
	envConfig = "RELEASER_CONFIG"

	defaultTranscript     = "image.log"
	defaultCommandTimeout = 30 * time.Minute
	defaultReleaseTimeout = 2 * time.Hour
)

// Config describes the CLI configuration.
type Config struct {
	Image    image.Spec     `mapstructure:"image" json:"image" yaml:"image"`
	Registry RegistryConfig `mapstructure:"registry" json:"registry" yaml:"registry"`
	Baseline BaselineConfig `mapstructure:"baseline" json:"baseline" yaml:"baseline"`
	Log      LogConfig      `mapstructure:"log" json:"log" yaml:"log"`
	Timeouts TimeoutsConfig `mapstructure:"timeouts" json:"timeouts" yaml:"timeouts"`
	Metrics  MetricsConfig  `mapstructure:"metrics" json:"metrics" yaml:"metrics"`
}

// RegistryConfig tells how to query the registry
type RegistryConfig struct {
	Check image.CheckMethod `mapstructure:"check" json:"check" yaml:"check"`
	Tool  string            `mapstructure:"tool" json:"tool" yaml:"tool"`
}

// BaselineConfig locates the baseline VERSION file
type BaselineConfig struct {
	File string `mapstructure:"file" json:"file" yaml:"file"`
	// State holds the lock file and the restore journal. It defaults to a directory in the user cache.
	State string `mapstructure:"state" json:"state,omitempty" yaml:"state,omitempty"`
}

// LogConfig for the CLI logger and the build transcript
type LogConfig struct {
	// File receives the transcript of all external commands
	File    string `mapstructure:"file" json:"file" yaml:"file"`
	Level   string `mapstructure:"level" json:"level" yaml:"level"`
	Console bool   `mapstructure:"console" json:"console" yaml:"console"`
}

// TimeoutsConfig bounds external commands and whole releases
type TimeoutsConfig struct {
	Command time.Duration `mapstructure:"command" json:"command" yaml:"command"`
	Release time.Duration `mapstructure:"release" json:"release" yaml:"release"`
}

// MarshalYAML renders durations the way viper reads them back
func (t TimeoutsConfig) MarshalYAML() (interface{}, error) {
	return map[string]string{
		"command": t.Command.String(),
		"release": t.Release.String(),
	}, nil
}

// MetricsConfig for the textfile export
type MetricsConfig struct {
	// File is written in the prometheus text format after each run, when set
	File string `mapstructure:"file" json:"file,omitempty" yaml:"file,omitempty"`
}

func setConfigDefaults() {
	viper.SetDefault("image.name", "")
	viper.SetDefault("image.namespace", "")
	viper.SetDefault("image.context", ".")
	viper.SetDefault("image.dockerfile", "")
	viper.SetDefault("image.marker", image.DefaultMarker)
	viper.SetDefault("registry.check", string(image.CheckManifest))
	viper.SetDefault("registry.tool", "docker")
	viper.SetDefault("baseline.file", baseline.DefaultKey)
	viper.SetDefault("baseline.state", "")
	viper.SetDefault("log.file", defaultTranscript)
	viper.SetDefault("log.level", dlogger.LogLevelInfo)
	viper.SetDefault("log.console", true)
	viper.SetDefault("timeouts.command", defaultCommandTimeout)
	viper.SetDefault("timeouts.release", defaultReleaseTimeout)
	viper.SetDefault("metrics.file", "")
}

func newConfig() (*Config, error) {
	var config Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return nil, err
	}
	return &config, nil
}

// configCmd represents the config related commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Commands to manage a config",
	Long: `Commands to manage the releaser CLI config.

Configuration for releaser is the set of settings that do not change across releases of an image:
the image name, its registry namespace, where the baseline VERSION file lives.

Settings are read from releaser.yaml in the current directory, $HOME/.releaser or /etc/releaser,
or from the file set by RELEASER_CONFIG. Environment variables such as RELEASER_IMAGE_NAME override the file,
and flags override both.`,
}

func init() {
	rootCmd.AddCommand(configCmd)
}
