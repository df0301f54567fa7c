// Copyright © 2018 One Concern

package release

import (
	"context"
	"fmt"
	"time"

	"github.com/oneconcern/releaser/pkg/baseline"
	"github.com/oneconcern/releaser/pkg/command"
	"github.com/oneconcern/releaser/pkg/confirm"
	"github.com/oneconcern/releaser/pkg/errors"
	"github.com/oneconcern/releaser/pkg/image"
	imagestatus "github.com/oneconcern/releaser/pkg/image/status"
	"github.com/oneconcern/releaser/pkg/release/status"
	"github.com/oneconcern/releaser/pkg/version"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Store holds the baseline version
type Store interface {
	Lock() (func() error, error)
	Read(context.Context) (version.Version, error)
	Stage(ctx context.Context, previous, target version.Version, runID string) (*baseline.Staged, error)
	Pending(context.Context) (*baseline.Journal, error)
	Recover(context.Context) (*baseline.Journal, error)
}

// Registry answers queries about published images
type Registry interface {
	TagExists(ctx context.Context, tag string) (bool, error)
	FetchPublishedBaseline(ctx context.Context) (*version.Version, error)
}

// Builder builds, pushes and removes tagged images
type Builder interface {
	Build(ctx context.Context, tag string) (command.Result, error)
	Push(ctx context.Context, tag string) (command.Result, error)
	Clean(ctx context.Context, tag string) command.Result
}

// Gate asks the operator to confirm risky actions
type Gate interface {
	Confirm(ctx context.Context, message string) error
	Inform(message string)
}

// Revision of the source tree
type Revision interface {
	Short(ctx context.Context) (string, error)
}

// Recorder of release metrics
type Recorder interface {
	ObserveRelease(flow, outcome string)
	ObserveStage(stage string, d time.Duration)
}

// Releaser runs release flows
type Releaser struct {
	store    Store
	registry Registry
	builder  Builder
	gate     Gate
	revision Revision

	l       *zap.Logger
	metrics Recorder
	timeout time.Duration
	now     func() time.Time
	runID   func() string
}

// New Releaser
func New(store Store, registry Registry, builder Builder, gate Gate, revision Revision, opts ...Option) *Releaser {
	r := &Releaser{
		store:    store,
		registry: registry,
		builder:  builder,
		gate:     gate,
		revision: revision,
		l:        zap.NewNop(),
		metrics:  nopRecorder{},
		now:      time.Now,
		runID:    defaultRunID,
	}
	for _, apply := range opts {
		apply(r)
	}
	return r
}

// Release runs the flow requested, end to end.
//
// The returned Outcome is always filled, even when an error occurs. Errors are reported
// as a *StageError, carrying the stage at which the flow stopped.
func (r *Releaser) Release(ctx context.Context, req Request) (Outcome, error) {
	rn := r.newRun(req)

	if err := req.Validate(); err != nil {
		return rn.fail(err)
	}
	if req.Flow == FlowMode {
		rn.req.Mode, _ = version.ParseMode(string(req.Mode))
	}

	unlock, err := r.store.Lock()
	if err != nil {
		return rn.fail(err)
	}
	defer func() {
		if err := unlock(); err != nil {
			rn.l.Warn("could not release baseline lock", zap.Error(err))
		}
	}()

	journal, err := r.store.Recover(ctx)
	if err != nil {
		return rn.fail(err)
	}
	if journal != nil {
		rn.l.Warn("restored baseline left staged by an interrupted release",
			zap.String("previous", journal.Previous),
			zap.String("staged", journal.Staged),
			zap.String("interrupted_run", journal.RunID),
		)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	switch req.Flow {
	case FlowMode:
		return rn.byMode(ctx)
	case FlowVersion:
		return rn.byVersion(ctx)
	default:
		return rn.promote(ctx)
	}
}

// Remove a tag from the set of local images. This is best effort: failures are reported in the result.
func (r *Releaser) Remove(ctx context.Context, tag string) (command.Result, error) {
	if !image.ValidTag(tag) {
		return command.Result{}, status.ErrInvalidRequest.WrapMessage("invalid image tag %q", tag)
	}
	res := r.builder.Clean(ctx, tag)
	if !res.OK() {
		r.l.Warn("image removal reported an error", zap.String("tag", tag), zap.Int("exit_code", res.ExitCode))
	}
	return res, nil
}

type run struct {
	*Releaser
	req     Request
	l       *zap.Logger
	out     Outcome
	state   State
	entered time.Time
}

func (r *Releaser) newRun(req Request) *run {
	id := r.runID()
	start := r.now()
	return &run{
		Releaser: r,
		req:      req,
		l:        r.l.With(zap.String("run_id", id), zap.String("flow", string(req.Flow))),
		out: Outcome{
			RunID:  id,
			Flow:   req.Flow,
			DryRun: req.DryRun,
			State:  Idle,
			start:  start,
		},
		state:   Idle,
		entered: start,
	}
}

func (rn *run) enter(s State) {
	now := rn.now()
	if rn.state != Idle && !rn.state.IsTerminal() {
		rn.metrics.ObserveStage(string(rn.state), now.Sub(rn.entered))
	}
	rn.l.Debug("entering stage", zap.Stringer("stage", s), zap.Stringer("from", rn.state))
	rn.state = s
	rn.entered = now
}

func (rn *run) finish(terminal State) {
	rn.enter(terminal)
	rn.metrics.ObserveRelease(string(rn.req.Flow), string(terminal))
	rn.out.State = terminal
	rn.out.Elapsed = rn.now().Sub(rn.out.start)
}

func (rn *run) done() (Outcome, error) {
	rn.finish(Done)
	rn.l.Info("release complete",
		zap.String("tag", rn.out.Tag),
		zap.String("version", rn.out.Version),
		zap.Bool("pushed", rn.out.Pushed),
		zap.Duration("elapsed", rn.out.Elapsed),
	)
	return rn.out, nil
}

func (rn *run) fail(err error) (Outcome, error) {
	return rn.failAt(rn.state, err)
}

func (rn *run) failAt(stage State, err error) (Outcome, error) {
	terminal := Failed
	if errors.Is(err, confirm.ErrDeclined) {
		terminal = Aborted
	}
	rn.out.FailedStage = stage
	rn.finish(terminal)

	if terminal == Aborted {
		rn.l.Info("release aborted", zap.Stringer("stage", stage), zap.Error(err))
	} else {
		rn.l.Error("release failed", zap.Stringer("stage", stage), zap.Error(err))
	}
	return rn.out, &StageError{Stage: stage, Err: err}
}

func (rn *run) confirm(ctx context.Context, message string) error {
	if rn.req.AutoConfirm {
		rn.l.Info("confirmation skipped", zap.String("question", message))
		return nil
	}
	return rn.gate.Confirm(ctx, message)
}

func (rn *run) readBaseline(ctx context.Context) (version.Version, error) {
	previous, err := rn.store.Read(ctx)
	if err != nil {
		return version.Version{}, err
	}
	rn.out.Previous = previous.String()
	return previous, nil
}

// byMode releases the next version computed from the baseline, or a revision tag in test mode
func (rn *run) byMode(ctx context.Context) (Outcome, error) {
	rn.enter(ComputeTarget)
	if rn.req.Mode == version.Test {
		tag, err := rn.revision.Short(ctx)
		if err != nil {
			return rn.fail(err)
		}
		if !image.ValidTag(tag) {
			return rn.fail(imagestatus.ErrRevision.WrapMessage("revision %q is not a valid image tag", tag))
		}
		rn.out.Tag = tag
		rn.l.Info("releasing test image", zap.String("tag", tag))

		rn.enter(Build)
		if err := rn.build(ctx, tag); err != nil {
			return rn.fail(err)
		}
		return rn.push(ctx, tag)
	}

	previous, err := rn.readBaseline(ctx)
	if err != nil {
		return rn.fail(err)
	}
	target, err := version.Next(previous, rn.req.Mode)
	if err != nil {
		return rn.fail(err)
	}
	rn.l.Info("releasing next version",
		zap.Stringer("mode", rn.req.Mode),
		zap.Stringer("previous", previous),
		zap.Stringer("target", target),
	)
	return rn.release(ctx, previous, target, false)
}

// byVersion releases an explicit version
func (rn *run) byVersion(ctx context.Context) (Outcome, error) {
	rn.enter(ComputeTarget)
	target, err := version.Parse(rn.req.Version)
	if err != nil {
		return rn.fail(status.ErrInvalidRequest.Wrap(err))
	}
	previous, err := rn.readBaseline(ctx)
	if err != nil {
		return rn.fail(err)
	}
	rn.l.Info("releasing explicit version", zap.Stringer("previous", previous), zap.Stringer("target", target))
	return rn.release(ctx, previous, target, true)
}

// release a versioned tag: check existence, confirm, stage, build, restore and push
func (rn *run) release(ctx context.Context, previous, target version.Version, clean bool) (Outcome, error) {
	tag := target.String()
	rn.out.Tag = tag
	rn.out.Version = tag

	rn.enter(CheckExistence)
	exists, err := rn.registry.TagExists(ctx, tag)
	if err != nil {
		return rn.fail(err)
	}
	if exists {
		rn.enter(Confirm)
		question := fmt.Sprintf("Image tag %s already exists in the registry. Would you like to continue and overwrite it?", tag)
		if err := rn.confirm(ctx, question); err != nil {
			return rn.fail(err)
		}
	}

	if clean {
		rn.builder.Clean(ctx, tag)
	}
	return rn.stagedBuild(ctx, previous, target, tag, false)
}

// promote rebuilds the latest tag, embedding the requested version
func (rn *run) promote(ctx context.Context) (Outcome, error) {
	rn.enter(ComputeTarget)
	target, err := version.Parse(rn.req.Version)
	if err != nil {
		return rn.fail(status.ErrInvalidRequest.Wrap(err))
	}
	previous, err := rn.readBaseline(ctx)
	if err != nil {
		return rn.fail(err)
	}
	rn.out.Tag = image.LatestTag
	rn.out.Version = target.String()

	rn.enter(CheckExistence)
	published, err := rn.registry.FetchPublishedBaseline(ctx)
	if err != nil {
		return rn.fail(err)
	}
	if published != nil {
		rn.out.Published = published.String()
	}
	switch {
	case published == nil:
		rn.gate.Inform("No previously published version of the latest image found.")
	case published.Equal(target):
		rn.gate.Inform(fmt.Sprintf("The latest image is already at version %s: rebuilding it.", target))
	default:
		rn.gate.Inform(fmt.Sprintf("The latest image is at version %s. You're trying to change it to version %s.", published, target))
		if target.Compare(*published) < 0 {
			rn.l.Warn("promoting an older version to latest", zap.Stringer("published", published), zap.Stringer("target", target))
		}
		rn.enter(Confirm)
		if err := rn.confirm(ctx, fmt.Sprintf("Would you like to set the latest version to %s?", target)); err != nil {
			return rn.fail(err)
		}
	}

	rn.builder.Clean(ctx, image.LatestTag)
	return rn.stagedBuild(ctx, previous, target, image.LatestTag, rn.req.AdvanceBaseline)
}

// stagedBuild stages the target, builds, restores the baseline whatever happened, then pushes.
//
// When advance is set, the target is recorded as the baseline once pushed.
func (rn *run) stagedBuild(ctx context.Context, previous, target version.Version, tag string, advance bool) (Outcome, error) {
	rn.enter(Stage)
	staged, err := rn.store.Stage(ctx, previous, target, rn.out.RunID)
	if err != nil {
		return rn.fail(err)
	}

	rn.enter(Build)
	buildErr := rn.build(ctx, tag)
	if buildErr == nil {
		// cancellation after a successful build still aborts before pushing
		buildErr = ctx.Err()
	}

	rn.enter(Restore)
	// restoring must happen even if the flow is cancelled
	if err := staged.Restore(context.WithoutCancel(ctx)); err != nil {
		if buildErr != nil {
			return rn.failAt(Build, multierr.Append(buildErr, err))
		}
		return rn.fail(err)
	}
	rn.l.Debug("baseline restored", zap.Stringer("baseline", staged.Previous()))
	if buildErr != nil {
		return rn.failAt(Build, buildErr)
	}

	if rn.req.DryRun {
		rn.l.Info("dry run: image not pushed", zap.String("tag", tag))
		return rn.done()
	}

	if _, err := rn.doPush(ctx, tag); err != nil {
		return rn.fail(err)
	}

	if advance {
		rn.enter(Advance)
		if err := rn.advance(context.WithoutCancel(ctx), staged.Previous(), staged.Target()); err != nil {
			return rn.fail(err)
		}
		rn.l.Info("baseline advanced",
			zap.Stringer("previous", staged.Previous()),
			zap.Stringer("baseline", staged.Target()),
		)
	}
	return rn.done()
}

// advance makes target the durable baseline. The write is journaled like any staging:
// a failure or an interruption leaves previous in place.
func (rn *run) advance(ctx context.Context, previous, target version.Version) error {
	promoted, err := rn.store.Stage(ctx, previous, target, rn.out.RunID)
	if err != nil {
		return err
	}
	if err = promoted.Commit(ctx); err != nil {
		return multierr.Append(err, promoted.Restore(ctx))
	}
	return nil
}

func (rn *run) build(ctx context.Context, tag string) error {
	res, err := rn.builder.Build(ctx, tag)
	if err != nil {
		return imagestatus.ErrBuildFailure.WrapMessage("building %s: %v", tag, err)
	}
	if !res.OK() {
		return imagestatus.ErrBuildFailure.WrapMessage("building %s: exit code %d: %s", tag, res.ExitCode, tail(res.Stderr))
	}
	return nil
}

// push an unversioned tag, unless in dry run
func (rn *run) push(ctx context.Context, tag string) (Outcome, error) {
	if rn.req.DryRun {
		rn.l.Info("dry run: image not pushed", zap.String("tag", tag))
		return rn.done()
	}
	if _, err := rn.doPush(ctx, tag); err != nil {
		return rn.fail(err)
	}
	return rn.done()
}

func (rn *run) doPush(ctx context.Context, tag string) (command.Result, error) {
	rn.enter(Push)
	if err := ctx.Err(); err != nil {
		return command.Result{}, err
	}
	res, err := rn.builder.Push(ctx, tag)
	if err != nil {
		return res, imagestatus.ErrBuildFailure.WrapMessage("pushing %s: %v", tag, err)
	}
	if !res.OK() {
		return res, imagestatus.ErrBuildFailure.WrapMessage("pushing %s: exit code %d: %s", tag, res.ExitCode, tail(res.Stderr))
	}
	rn.out.Pushed = true
	return res, nil
}
