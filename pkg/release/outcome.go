package release

import (
	"context"
	"strings"
	"time"

	"github.com/oneconcern/releaser/pkg/baseline"
	"go.uber.org/zap"
)

// Outcome of a release flow
type Outcome struct {
	RunID string
	Flow  Flow
	State State

	// Tag built, e.g. "1.2.3", "latest" or a revision hash
	Tag string
	// Version embedded in the image, empty for test images
	Version string
	// Previous baseline, when it was read
	Previous string
	// Published version of the latest image, when promoting
	Published string

	DryRun bool
	Pushed bool

	// FailedStage is set when the flow did not complete
	FailedStage State
	Elapsed     time.Duration

	start time.Time
}

// OK tells if the flow completed
func (o Outcome) OK() bool {
	return o.State == Done
}

// Report on the baseline and published images
type Report struct {
	Baseline string
	// Pending describes a staged release that was never restored
	Pending *baseline.Journal
	// Published version of the latest image, empty when none is published
	Published string
	// RegistryError is set when the registry could not be queried
	RegistryError string
}

// Status reports on the current baseline, a staged release left over and the published latest image.
//
// Registry failures do not fail the report.
func (r *Releaser) Status(ctx context.Context) (Report, error) {
	var rep Report

	v, err := r.store.Read(ctx)
	if err != nil {
		return rep, err
	}
	rep.Baseline = v.String()

	rep.Pending, err = r.store.Pending(ctx)
	if err != nil {
		return rep, err
	}

	published, err := r.registry.FetchPublishedBaseline(ctx)
	switch {
	case err != nil:
		r.l.Warn("could not fetch published version", zap.Error(err))
		rep.RegistryError = err.Error()
	case published != nil:
		rep.Published = published.String()
	}
	return rep, nil
}

type nopRecorder struct{}

func (nopRecorder) ObserveRelease(string, string)      {}
func (nopRecorder) ObserveStage(string, time.Duration) {}

const tailLines = 5

// tail keeps the last lines of some command output
func tail(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) > tailLines {
		lines = lines[len(lines)-tailLines:]
	}
	return strings.Join(lines, "\n")
}
