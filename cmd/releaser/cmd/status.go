package cmd

import (
	"context"
	"fmt"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the baseline and published versions",
	Long: `Show the baseline version, the version of the latest published image,
and any release left staged by an interrupted run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, true, true, func(ctx context.Context, a *app) error {
			rep, err := a.releaser.Status(ctx)
			if err != nil {
				return err
			}

			table := uitable.New()
			table.MaxColWidth = 80
			table.Wrap = true
			table.AddRow("IMAGE", a.cfg.Image.Remote("latest"))
			table.AddRow("BASELINE", rep.Baseline)
			switch {
			case rep.RegistryError != "":
				table.AddRow("PUBLISHED", "unknown: "+rep.RegistryError)
			case rep.Published == "":
				table.AddRow("PUBLISHED", "none")
			default:
				table.AddRow("PUBLISHED", rep.Published)
			}
			if rep.Pending != nil {
				table.AddRow("PENDING", fmt.Sprintf("%s staged by run %s, %s: run \"releaser baseline recover\"",
					rep.Pending.Staged, rep.Pending.RunID, stagedAgo(rep.Pending)))
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
