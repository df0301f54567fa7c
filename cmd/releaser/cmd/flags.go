// Copyright © 2018 One Concern

package cmd

import (
	"fmt"
	"strings"

	"github.com/oneconcern/releaser/pkg/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type flagsT struct {
	release struct {
		mode            string
		version         string
		latest          bool
		yes             bool
		dryRun          bool
		advanceBaseline bool
		rmi             string
	}
	config struct {
		output string
	}
}

var releaserFlags = flagsT{}

// bindFlag makes a flag override some config key
func bindFlag(cmd *cobra.Command, name, key string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(name)); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", name, err))
	}
}

func addImageNameFlag(cmd *cobra.Command) string {
	name := "image"
	cmd.PersistentFlags().String(name, "", "The name of the image to release")
	bindFlag(cmd, name, "image.name")
	return name
}

func addNamespaceFlag(cmd *cobra.Command) string {
	namespace := "namespace"
	cmd.PersistentFlags().String(namespace, "", "The registry namespace of the image, e.g. syangnub")
	bindFlag(cmd, namespace, "image.namespace")
	return namespace
}

func addBuildContextFlag(cmd *cobra.Command) string {
	buildContext := "context"
	cmd.PersistentFlags().String(buildContext, ".", "The build context directory")
	bindFlag(cmd, buildContext, "image.context")
	return buildContext
}

func addBaselineFileFlag(cmd *cobra.Command) string {
	file := "baseline-file"
	cmd.PersistentFlags().String(file, "VERSION", "The file holding the baseline version")
	bindFlag(cmd, file, "baseline.file")
	return file
}

func addLogLevelFlag(cmd *cobra.Command) string {
	logLevel := "loglevel"
	cmd.PersistentFlags().String(logLevel, "info", "The logging level. Levels by increasing order of verbosity: none, error, warn, info, debug")
	bindFlag(cmd, logLevel, "log.level")
	return logLevel
}

func modeNames() string {
	names := make([]string, 0, len(version.Modes))
	for _, m := range version.Modes {
		names = append(names, string(m))
	}
	return strings.Join(names, "|")
}

func addModeFlag(cmd *cobra.Command) string {
	mode := "mode"
	cmd.Flags().StringVar(&releaserFlags.release.mode, mode, "",
		"Computes the next version from the baseline: "+modeNames()+". The test mode tags the image with the last commit hash")
	return mode
}

func addVersionFlag(cmd *cobra.Command) string {
	v := "version"
	cmd.Flags().StringVar(&releaserFlags.release.version, v, "", "Releases an explicit version, e.g. 1.2.3")
	return v
}

func addLatestFlag(cmd *cobra.Command) string {
	latest := "latest"
	cmd.Flags().BoolVar(&releaserFlags.release.latest, latest, false, "Also tags the released version as latest")
	return latest
}

func addYesFlag(cmd *cobra.Command) string {
	yes := "yes"
	cmd.Flags().BoolVarP(&releaserFlags.release.yes, yes, "y", false, "Answers yes to all confirmations")
	return yes
}

func addDryRunFlag(cmd *cobra.Command) string {
	dryRun := "dry-run"
	cmd.Flags().BoolVar(&releaserFlags.release.dryRun, dryRun, false, "Builds images without pushing them")
	return dryRun
}

func addAdvanceBaselineFlag(cmd *cobra.Command) string {
	advance := "advance-baseline"
	cmd.Flags().BoolVar(&releaserFlags.release.advanceBaseline, advance, false,
		"Records the version promoted to latest as the new baseline, once pushed")
	return advance
}

func addRmiFlag(cmd *cobra.Command) string {
	rmi := "rmi"
	cmd.Flags().StringVar(&releaserFlags.release.rmi, rmi, "", "Removes the local images for a tag, then exits")
	return rmi
}

func addConfigOutputFlag(cmd *cobra.Command) string {
	output := "output"
	cmd.Flags().StringVarP(&releaserFlags.config.output, output, "o", "", "The path of the config file to write")
	return output
}
