package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/go-units"
	"github.com/oneconcern/releaser/pkg/baseline"
	"github.com/oneconcern/releaser/pkg/version"
	"github.com/spf13/cobra"
)

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Commands to manage the baseline version",
	Long: `Commands to manage the baseline version.

The baseline is the last released version, kept in a VERSION file.
Releases compute their target version from it.`,
}

var baselineGet = &cobra.Command{
	Use:   "get",
	Short: "Print the baseline version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := newStore(config)
		if err != nil {
			return err
		}
		v, err := store.Read(context.Background())
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), v)
		return nil
	},
}

var baselineInit = &cobra.Command{
	Use:   "init <version>",
	Short: "Record the baseline version for the first time",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := version.Parse(args[0])
		if err != nil {
			return err
		}
		store, err := newStore(config)
		if err != nil {
			return err
		}
		if err = store.Init(context.Background(), v); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Baseline %s recorded in %s\n", v, config.Baseline.File)
		return nil
	},
}

var baselineRecover = &cobra.Command{
	Use:   "recover",
	Short: "Restore a baseline left staged by an interrupted release",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := newStore(config)
		if err != nil {
			return err
		}
		unlock, err := store.Lock()
		if err != nil {
			return err
		}
		defer func() { _ = unlock() }()

		j, err := store.Recover(context.Background())
		if err != nil {
			return err
		}
		if j == nil {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Nothing to recover")
			return nil
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Baseline restored to %s (%s was staged by run %s, %s)\n",
			j.Previous, j.Staged, j.RunID, stagedAgo(j))
		return nil
	},
}

func stagedAgo(j *baseline.Journal) string {
	return units.HumanDuration(time.Since(j.StagedAt)) + " ago"
}

func init() {
	baselineCmd.AddCommand(baselineGet)
	baselineCmd.AddCommand(baselineInit)
	baselineCmd.AddCommand(baselineRecover)

	rootCmd.AddCommand(baselineCmd)
}
