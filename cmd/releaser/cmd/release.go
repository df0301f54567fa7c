// Copyright © 2018 One Concern

package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/docker/go-units"
	"github.com/fatih/color"
	"github.com/oneconcern/releaser/pkg/release"
	"github.com/oneconcern/releaser/pkg/version"
	"github.com/spf13/cobra"
)

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Build and push a versioned image",
	Long: `Build and push a versioned image.

Either --mode or --version must be given:

  --mode major|minor|patch   releases the next version after the baseline
  --mode test                releases an image tagged with the last commit hash
  --version X.Y.Z            releases an explicit version

With --latest, the released version is then also built and pushed as "latest".

Releasing a version that is already published asks for confirmation, unless --yes is set.
`,
	Example: `  releaser release --image nginx-uwsgi-falcon-server --namespace syangnub --mode patch
  releaser release --version 2.0.0 --latest --yes
  releaser release --mode minor --dry-run`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := releaserFlags.release
		if flags.rmi != "" {
			return removeImages(cmd, flags.rmi)
		}

		if flags.advanceBaseline && !flags.latest {
			return fmt.Errorf("--advance-baseline requires --latest")
		}
		requests, err := planRelease(flags.mode, flags.version, flags.latest)
		if err != nil {
			return err
		}
		for i := range requests {
			requests[i].DryRun = flags.dryRun
			requests[i].AutoConfirm = flags.yes
			if requests[i].Flow == release.FlowPromote {
				requests[i].AdvanceBaseline = flags.advanceBaseline
			}
		}

		return withApp(cmd, flags.yes, flags.dryRun, func(ctx context.Context, a *app) error {
			return runReleases(ctx, cmd.OutOrStdout(), a.releaser, requests)
		})
	},
}

// planRelease validates the combination of flags and builds the release requests to run, in order
func planRelease(mode, explicit string, latest bool) ([]release.Request, error) {
	switch {
	case mode != "" && explicit != "":
		return nil, fmt.Errorf("--mode and --version are mutually exclusive")
	case mode == "" && explicit == "":
		return nil, fmt.Errorf("either --mode or --version is required")
	}

	var first release.Request
	if explicit != "" {
		if !version.ValidFormat(explicit) {
			return nil, version.ErrInvalidVersionFormat.WrapMessage("%q: a version is made of 3 numbers, e.g. 1.2.3", explicit)
		}
		first = release.ByExplicitVersion(explicit)
	} else {
		m, err := version.ParseMode(mode)
		if err != nil {
			return nil, err
		}
		if m == version.Test && latest {
			return nil, fmt.Errorf("a test image cannot be released as latest")
		}
		first = release.ByMode(m)
	}
	if err := first.Validate(); err != nil {
		return nil, err
	}

	requests := []release.Request{first}
	if latest {
		// the version to promote is only known once the first release is done
		promote := release.PromoteLatest(explicit)
		promote.Mode = first.Mode
		requests = append(requests, promote)
	}
	return requests, nil
}

func runReleases(ctx context.Context, out io.Writer, r *release.Releaser, requests []release.Request) error {
	var previous release.Outcome
	for _, req := range requests {
		if req.Flow == release.FlowPromote && req.Version == "" {
			req.Version = previous.Version
		}
		outcome, err := r.Release(ctx, req)
		printOutcome(out, outcome)
		if err != nil {
			return err
		}
		previous = outcome
	}
	return nil
}

func printOutcome(out io.Writer, o release.Outcome) {
	elapsed := units.HumanDuration(o.Elapsed.Round(time.Second))
	switch o.State {
	case release.Done:
		verb := "pushed"
		if !o.Pushed {
			verb = "built (dry run, not pushed)"
		}
		_, _ = color.New(color.FgGreen).Fprintf(out, "Image %s %s in %s\n", o.Tag, verb, elapsed)
	case release.Aborted:
		_, _ = color.New(color.FgYellow).Fprintf(out, "Release of %s aborted at stage %s\n", o.Tag, o.FailedStage)
	default:
		tag := o.Tag
		if tag == "" {
			tag = "image"
		}
		_, _ = color.New(color.FgRed).Fprintf(out, "Release of %s failed at stage %s after %s\n", tag, o.FailedStage, elapsed)
	}
}

func init() {
	addModeFlag(releaseCmd)
	addVersionFlag(releaseCmd)
	addLatestFlag(releaseCmd)
	addYesFlag(releaseCmd)
	addDryRunFlag(releaseCmd)
	addAdvanceBaselineFlag(releaseCmd)
	addRmiFlag(releaseCmd)

	rootCmd.AddCommand(releaseCmd)
}
