package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var rmiCmd = &cobra.Command{
	Use:   "rmi <tag>",
	Short: "Remove the local images for a tag",
	Long: `Remove the local images for a tag, under both the local and the namespaced name.

This is best effort: images that do not exist are ignored.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return removeImages(cmd, args[0])
	},
}

func removeImages(cmd *cobra.Command, tag string) error {
	return withApp(cmd, true, false, func(ctx context.Context, a *app) error {
		res, err := a.releaser.Remove(ctx, tag)
		if err != nil {
			return err
		}
		if res.OK() {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed local images for %s\n", tag)
		} else {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Some local images for %s could not be removed\n", tag)
		}
		return nil
	})
}

func init() {
	rootCmd.AddCommand(rmiCmd)
}
