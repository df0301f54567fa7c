package cmd

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/oneconcern/releaser/pkg/baseline"
	"github.com/oneconcern/releaser/pkg/command"
	"github.com/oneconcern/releaser/pkg/confirm"
	"github.com/oneconcern/releaser/pkg/dlogger"
	"github.com/oneconcern/releaser/pkg/image"
	"github.com/oneconcern/releaser/pkg/metrics"
	"github.com/oneconcern/releaser/pkg/release"
	"github.com/oneconcern/releaser/pkg/storage/localfs"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// used to patch over the docker and git CLIs during test
var newRunner = func(cfg *Config, l *zap.Logger, transcript io.Writer) command.Runner {
	return command.NewLocal(
		command.Timeout(cfg.Timeouts.Command),
		command.Transcript(transcript),
		command.Logger(l),
	)
}

// app holds the components wired for a command run
type app struct {
	cfg        *Config
	l          *zap.Logger
	store      *baseline.Store
	releaser   *release.Releaser
	metrics    *metrics.Release
	transcript io.WriteCloser
}

func newLogger(cfg *Config) (*zap.Logger, error) {
	var opts []dlogger.Option
	if cfg.Log.Console {
		opts = append(opts, dlogger.WithConsole())
	}
	return dlogger.GetLogger(cfg.Log.Level, opts...)
}

// stateDir holds the lock file and the restore journal of a baseline file, out of the build context
func stateDir(cfg *Config, file string) (string, error) {
	if cfg.Baseline.State != "" {
		return filepath.Abs(cfg.Baseline.State)
	}
	cache, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("no state directory for %q, set baseline.state: %w", file, err)
	}
	sum := sha256.Sum256([]byte(file))
	return filepath.Join(cache, "releaser", hex.EncodeToString(sum[:8])), nil
}

// newStore opens the baseline record. Its lock file and journal are kept in the state directory.
func newStore(cfg *Config) (*baseline.Store, error) {
	file, err := filepath.Abs(cfg.Baseline.File)
	if err != nil {
		return nil, fmt.Errorf("locating baseline file %q: %w", cfg.Baseline.File, err)
	}
	record, err := localfs.New(afero.NewBasePathFs(afero.NewOsFs(), filepath.Dir(file)))
	if err != nil {
		return nil, err
	}

	state, err := stateDir(cfg, file)
	if err != nil {
		return nil, err
	}
	if err = os.MkdirAll(state, 0700); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	journal, err := localfs.New(afero.NewBasePathFs(afero.NewOsFs(), state))
	if err != nil {
		return nil, err
	}

	key := filepath.Base(file)
	return baseline.New(record,
		baseline.Key(key),
		baseline.JournalIn(journal),
		baseline.LockFile(filepath.Join(state, key+".lock")),
	), nil
}

func newApp(cmd *cobra.Command, cfg *Config, autoConfirm, dryRun bool) (*app, error) {
	if cfg.Image.Name == "" {
		return nil, fmt.Errorf("an image name is required: use --image or set image.name in the config")
	}
	if cfg.Registry.Check != "" && !cfg.Registry.Check.IsValid() {
		return nil, fmt.Errorf("invalid registry check method %q: must be %q or %q", cfg.Registry.Check, image.CheckManifest, image.CheckPull)
	}

	l, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set log level: %w", err)
	}

	a := &app{cfg: cfg, l: l, metrics: metrics.New()}
	var transcript io.Writer = io.Discard
	if cfg.Log.File != "" {
		a.transcript, err = os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening build log: %w", err)
		}
		transcript = a.transcript
	}

	a.store, err = newStore(cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	runner := newRunner(cfg, l, transcript)
	opts := []image.Option{
		image.Tool(cfg.Registry.Tool),
		image.Check(cfg.Registry.Check),
		image.DryRun(dryRun),
		image.Logger(l),
	}
	a.releaser = release.New(
		a.store,
		image.NewRegistry(runner, cfg.Image, opts...),
		image.NewBuilder(runner, cfg.Image, opts...),
		confirm.New(cmd.InOrStdin(), cmd.OutOrStdout(), autoConfirm),
		image.NewGitRevision(runner, cfg.Image.Context),
		release.Logger(l),
		release.Metrics(a.metrics),
		release.Timeout(cfg.Timeouts.Release),
	)
	return a, nil
}

// Close flushes metrics and the build log
func (a *app) Close() error {
	var err error
	if a.cfg.Metrics.File != "" {
		err = multierr.Append(err, a.metrics.WriteTextfile(a.cfg.Metrics.File))
	}
	if a.transcript != nil {
		err = multierr.Append(err, a.transcript.Close())
	}
	_ = a.l.Sync()
	return err
}

// withApp runs fn with freshly wired components, under a context cancelled by SIGINT or SIGTERM
func withApp(cmd *cobra.Command, autoConfirm, dryRun bool, fn func(context.Context, *app) error) error {
	a, err := newApp(cmd, config, autoConfirm, dryRun)
	if err != nil {
		return err
	}
	defer func() {
		if e := a.Close(); e != nil {
			a.l.Warn("closing", zap.Error(e))
		}
	}()

	ctx, cancel := signalContext(context.Background())
	defer cancel()
	return fn(ctx, a)
}
