package release

import (
	"strings"

	"github.com/oneconcern/releaser/pkg/release/status"
	"github.com/oneconcern/releaser/pkg/version"
)

// Flow of a release request
type Flow string

const (
	// FlowMode releases the next version according to a mode
	FlowMode Flow = "mode"
	// FlowVersion releases an explicit version
	FlowVersion Flow = "version"
	// FlowPromote rebuilds the latest tag for some version
	FlowPromote Flow = "promote"
)

// Request to release an image
type Request struct {
	Flow    Flow
	Mode    version.Mode
	Version string

	// DryRun builds without pushing
	DryRun bool

	// AutoConfirm answers yes to all confirmations
	AutoConfirm bool

	// AdvanceBaseline keeps a promoted version as the new baseline, once pushed
	AdvanceBaseline bool
}

// ByMode requests the release of the next version computed with mode
func ByMode(mode version.Mode) Request {
	return Request{Flow: FlowMode, Mode: mode}
}

// ByExplicitVersion requests the release of a given version
func ByExplicitVersion(v string) Request {
	return Request{Flow: FlowVersion, Version: v}
}

// PromoteLatest requests the latest tag to be rebuilt for version v
func PromoteLatest(v string) Request {
	return Request{Flow: FlowPromote, Version: v}
}

// Validate a request before any side effect
func (r Request) Validate() error {
	switch r.Flow {
	case FlowMode:
		if _, err := version.ParseMode(string(r.Mode)); err != nil {
			return status.ErrInvalidRequest.Wrap(err)
		}
		if r.AdvanceBaseline {
			return status.ErrInvalidRequest.WrapMessage("only a promotion to latest may advance the baseline")
		}
	case FlowVersion, FlowPromote:
		if strings.TrimSpace(r.Version) == "" {
			return status.ErrInvalidRequest.WrapMessage("a %s release requires a version", r.Flow)
		}
		if r.Flow == FlowVersion && r.AdvanceBaseline {
			return status.ErrInvalidRequest.WrapMessage("only a promotion to latest may advance the baseline")
		}
		if r.Mode == version.Test {
			return status.ErrInvalidRequest.WrapMessage("mode cannot be %q when releasing a version or promoting latest", version.Test)
		}
	default:
		return status.ErrInvalidRequest.WrapMessage("unknown release flow %q", r.Flow)
	}
	return nil
}
