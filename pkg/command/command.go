// Package command runs external tools with an explicit argument vector.
//
// Commands are never interpreted by a shell, unless the caller opts in with Shell.
package command

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/oneconcern/releaser/pkg/errors"
	"go.uber.org/zap"
)

var (
	// ErrInvalidCommand is returned for an empty command
	ErrInvalidCommand = errors.New("invalid command")

	// ErrStart is returned when the command could not be started (e.g. binary not found)
	ErrStart = errors.New("command could not be started")

	// ErrTimeout is returned when the command was killed after exceeding its time budget
	ErrTimeout = errors.New("command timed out")

	// ErrCancelled is returned when the command was killed because its context was cancelled
	ErrCancelled = errors.New("command cancelled")
)

// Command to run
type Command struct {
	Name string
	Args []string
	Dir  string

	// Env holds extra KEY=VALUE pairs, added to the inherited environment
	Env []string

	// Shell runs Name as a "sh -c" script. Args are passed as positional parameters ($1, $2, ...), never interpolated.
	Shell bool
}

// New command with an argument vector
func New(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

// Script builds a command interpreted by the shell
func Script(script string, args ...string) Command {
	return Command{Name: script, Args: args, Shell: true}
}

// Argv is the argument vector actually executed
func (c Command) Argv() []string {
	if c.Shell {
		return append([]string{"sh", "-c", c.Name, "sh"}, c.Args...)
	}
	return append([]string{c.Name}, c.Args...)
}

// String renders the command as a copy-pastable shell line
func (c Command) String() string {
	argv := c.Argv()
	var builder strings.Builder
	for i, arg := range argv {
		if i > 0 {
			builder.WriteByte(' ')
		}
		builder.WriteString(shellEscape(arg))
	}
	return builder.String()
}

func shellEscape(value string) string {
	if value == "" {
		return "''"
	}
	if strings.IndexFunc(value, needsQuote) < 0 {
		return value
	}
	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}

func needsQuote(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	case strings.ContainsRune("-_./:=@%+,", r):
		return false
	default:
		return true
	}
}

// Result of a completed command
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// OK tells if the command exited with status 0
func (r Result) OK() bool {
	return r.ExitCode == 0
}

// Runner runs commands.
//
// A command that runs to completion returns a nil error, whatever its exit code.
// Errors are reserved to commands which could not start or were killed.
type Runner interface {
	Run(context.Context, Command) (Result, error)
}

// Option for the Local runner
type Option func(*Local)

// Timeout sets the time budget granted to each command. Zero means no limit besides the context.
func Timeout(d time.Duration) Option {
	return func(r *Local) {
		r.timeout = d
	}
}

// Transcript appends every command line and its output to w
func Transcript(w io.Writer) Option {
	return func(r *Local) {
		r.transcript = w
	}
}

// Logger injects a logging facility
func Logger(l *zap.Logger) Option {
	return func(r *Local) {
		if l != nil {
			r.l = l
		}
	}
}

// Local runs commands as local processes
type Local struct {
	timeout    time.Duration
	transcript io.Writer
	l          *zap.Logger
	mx         sync.Mutex
}

// NewLocal builds a runner for local processes
func NewLocal(opts ...Option) *Local {
	r := &Local{
		l: zap.NewNop(),
	}
	for _, apply := range opts {
		apply(r)
	}
	return r
}

// grace period for the output pipes to close once a command exits or is killed
const waitDelay = 5 * time.Second

// Run a command until it completes, its time budget expires or the context is cancelled.
//
// A killed command takes down its whole process group, so tools that fork helpers do not outlive their budget.
func (r *Local) Run(ctx context.Context, c Command) (Result, error) {
	if strings.TrimSpace(c.Name) == "" {
		return Result{}, ErrInvalidCommand.WrapMessage("no command name")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, ErrCancelled.Wrap(err)
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	// commands are sequential in practice, but a shared transcript must not interleave
	r.mx.Lock()
	defer r.mx.Unlock()

	line := c.String()
	r.l.Debug("running command", zap.String("command", line), zap.String("dir", c.Dir))

	argv := c.Argv()
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	if r.transcript != nil {
		_, _ = io.WriteString(r.transcript, "\n$ "+line+"\n")
		transcript := &lockedWriter{w: r.transcript}
		cmd.Stdout = io.MultiWriter(&stdout, transcript)
		cmd.Stderr = io.MultiWriter(&stderr, transcript)
	}
	inProcessGroup(cmd, func(err error) {
		r.l.Warn("could not kill command", zap.String("command", line), zap.Error(err))
	})
	cmd.WaitDelay = waitDelay

	if err := cmd.Start(); err != nil {
		return Result{ExitCode: -1}, ErrStart.WrapMessage("%s: %v", line, err)
	}
	err := cmd.Wait()

	result := Result{
		ExitCode: cmd.ProcessState.ExitCode(),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}
	if cause := ctx.Err(); cause != nil && !exitedNormally(cmd) {
		if errors.Is(cause, context.DeadlineExceeded) {
			return result, ErrTimeout.WrapMessage("%s", line)
		}
		return result, ErrCancelled.WrapMessage("%s: %v", line, cause)
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil, errors.As(err, &exitErr):
	case errors.Is(err, exec.ErrWaitDelay):
		// the command exited but left a process holding its output
		r.l.Warn("command output still held open after exit", zap.String("command", line))
	default:
		return result, ErrStart.WrapMessage("%s: %v", line, err)
	}

	r.l.Debug("command completed", zap.String("command", line), zap.Int("exit_code", result.ExitCode))
	return result, nil
}

func exitedNormally(cmd *exec.Cmd) bool {
	return cmd.ProcessState != nil && cmd.ProcessState.Exited()
}

type lockedWriter struct {
	mx sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mx.Lock()
	defer l.mx.Unlock()
	return l.w.Write(p)
}
