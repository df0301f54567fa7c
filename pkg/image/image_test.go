package image

import (
	"context"
	"testing"

	"github.com/oneconcern/releaser/pkg/command"
	"github.com/oneconcern/releaser/pkg/command/mocks"
	"github.com/oneconcern/releaser/pkg/errors"
	"github.com/oneconcern/releaser/pkg/image/status"
	"github.com/oneconcern/releaser/pkg/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSpec = Spec{
	Name:      "nginx-uwsgi-falcon-server",
	Namespace: "syangnub",
}

const (
	notFoundStderr = "Error response from daemon: manifest for syangnub/nginx-uwsgi-falcon-server:latest not found: manifest unknown: manifest unknown\n"
	daemonDown     = "Cannot connect to the Docker daemon at unix:///var/run/docker.sock. Is the docker daemon running?\n"
)

func TestSpec(t *testing.T) {
	assert.Equal(t, "nginx-uwsgi-falcon-server:1.0.0", testSpec.Local("1.0.0"))
	assert.Equal(t, "syangnub/nginx-uwsgi-falcon-server:1.0.0", testSpec.Remote("1.0.0"))
	assert.Equal(t, []string{"nginx-uwsgi-falcon-server:1.0.0", "syangnub/nginx-uwsgi-falcon-server:1.0.0"}, testSpec.Aliases("1.0.0"))

	bare := Spec{Name: "img"}
	assert.Equal(t, []string{"img:latest"}, bare.Aliases(LatestTag))

	d := bare.withDefaults()
	assert.Equal(t, ".", d.Context)
	assert.Equal(t, DefaultMarker, d.Marker)
}

func TestBuild(t *testing.T) {
	r := new(mocks.Runner)
	r.On("Run", "docker build . -t nginx-uwsgi-falcon-server:1.0.1 -t syangnub/nginx-uwsgi-falcon-server:1.0.1").
		Return(command.Result{ExitCode: 1, Stderr: "boom"}, nil).Once()

	b := NewBuilder(r, testSpec)
	res, err := b.Build(context.Background(), "1.0.1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.ExitCode)
	r.AssertExpectations(t)

	r = new(mocks.Runner)
	r.On("Run", "podman build ./server -f Dockerfile.prod -t img:abc1234").Return(command.Result{}, nil).Once()
	b = NewBuilder(r, Spec{Name: "img", Context: "./server", Dockerfile: "Dockerfile.prod"}, Tool("podman"))
	res, err = b.Build(context.Background(), "abc1234")
	require.NoError(t, err)
	assert.True(t, res.OK())
	r.AssertExpectations(t)
}

func TestPush(t *testing.T) {
	r := new(mocks.Runner)
	r.On("Run", "docker push syangnub/nginx-uwsgi-falcon-server:1.0.1").Return(command.Result{}, nil).Once()

	res, err := NewBuilder(r, testSpec).Push(context.Background(), "1.0.1")
	require.NoError(t, err)
	assert.True(t, res.OK())
	r.AssertExpectations(t)

	dry := new(mocks.Runner)
	res, err = NewBuilder(dry, testSpec, DryRun(true)).Push(context.Background(), "1.0.1")
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Contains(t, res.Stdout, "dry run")
	dry.AssertNotCalled(t, "Run", "docker push syangnub/nginx-uwsgi-falcon-server:1.0.1")
	assert.Empty(t, dry.Lines())
}

func TestClean(t *testing.T) {
	r := new(mocks.Runner)
	line := "docker rmi -f nginx-uwsgi-falcon-server:latest syangnub/nginx-uwsgi-falcon-server:latest"
	r.On("Run", line).Return(command.Result{ExitCode: 1, Stderr: "No such image"}, nil).Once()
	r.On("Run", line).Return(command.Result{}, command.ErrStart).Once()

	b := NewBuilder(r, testSpec)
	res := b.Clean(context.Background(), LatestTag)
	assert.Equal(t, 1, res.ExitCode)

	res = b.Clean(context.Background(), LatestTag)
	assert.False(t, res.OK())
	r.AssertExpectations(t)
}

func TestTagExists(t *testing.T) {
	const line = "docker manifest inspect syangnub/nginx-uwsgi-falcon-server:1.0.1"

	for _, toPin := range []struct {
		name     string
		result   command.Result
		err      error
		expected bool
		fails    bool
	}{
		{name: "found", result: command.Result{Stdout: "{}"}, expected: true},
		{name: "not found", result: command.Result{ExitCode: 1, Stderr: "no such manifest: syangnub/nginx-uwsgi-falcon-server:1.0.1"}},
		{name: "manifest unknown", result: command.Result{ExitCode: 1, Stderr: "manifest unknown"}},
		{name: "daemon down", result: command.Result{ExitCode: 1, Stderr: daemonDown}, fails: true},
		{name: "access denied", result: command.Result{ExitCode: 1, Stderr: "denied: requested access to the resource is denied"}, fails: true},
		{name: "timeout", err: command.ErrTimeout, fails: true},
	} {
		tc := toPin
		t.Run(tc.name, func(t *testing.T) {
			r := new(mocks.Runner)
			r.On("Run", line).Return(tc.result, tc.err).Once()

			exists, err := NewRegistry(r, testSpec).TagExists(context.Background(), "1.0.1")
			if tc.fails {
				require.Error(t, err)
				assert.True(t, errors.Is(err, status.ErrRegistry))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, exists)
		})
	}
}

func TestTagExistsWithPull(t *testing.T) {
	r := new(mocks.Runner)
	r.On("Run", "docker pull --quiet syangnub/nginx-uwsgi-falcon-server:2.0.0").Return(command.Result{}, nil).Once()

	exists, err := NewRegistry(r, testSpec, Check(CheckPull)).TagExists(context.Background(), "2.0.0")
	require.NoError(t, err)
	assert.True(t, exists)
	r.AssertExpectations(t)

	assert.True(t, CheckPull.IsValid())
	assert.False(t, CheckMethod("head").IsValid())
}

func TestFetchPublishedBaseline(t *testing.T) {
	const (
		pull = "docker pull --quiet syangnub/nginx-uwsgi-falcon-server:latest"
		cat  = "docker run --rm syangnub/nginx-uwsgi-falcon-server:latest cat VERSION"
	)

	t.Run("published", func(t *testing.T) {
		r := new(mocks.Runner)
		r.On("Run", pull).Return(command.Result{}, nil).Once()
		r.On("Run", cat).Return(command.Result{Stdout: "1.4.2\n"}, nil).Once()

		v, err := NewRegistry(r, testSpec).FetchPublishedBaseline(context.Background())
		require.NoError(t, err)
		require.NotNil(t, v)
		assert.Equal(t, version.New(1, 4, 2), *v)
		r.AssertExpectations(t)
	})

	t.Run("not published", func(t *testing.T) {
		r := new(mocks.Runner)
		r.On("Run", pull).Return(command.Result{ExitCode: 1, Stderr: notFoundStderr}, nil).Once()

		v, err := NewRegistry(r, testSpec).FetchPublishedBaseline(context.Background())
		require.NoError(t, err)
		assert.Nil(t, v)
		assert.False(t, r.CalledWith("docker run"))
	})

	t.Run("registry down", func(t *testing.T) {
		r := new(mocks.Runner)
		r.On("Run", pull).Return(command.Result{ExitCode: 1, Stderr: daemonDown}, nil).Once()

		_, err := NewRegistry(r, testSpec).FetchPublishedBaseline(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, status.ErrRegistry))
	})

	t.Run("bad marker", func(t *testing.T) {
		r := new(mocks.Runner)
		r.On("Run", pull).Return(command.Result{}, nil).Once()
		r.On("Run", cat).Return(command.Result{Stdout: "abc1234\n"}, nil).Once()

		_, err := NewRegistry(r, testSpec).FetchPublishedBaseline(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, version.ErrInvalidVersionFormat))
	})

	t.Run("missing marker", func(t *testing.T) {
		r := new(mocks.Runner)
		r.On("Run", pull).Return(command.Result{}, nil).Once()
		r.On("Run", cat).Return(command.Result{ExitCode: 1, Stderr: "cat: VERSION: No such file or directory"}, nil).Once()

		_, err := NewRegistry(r, testSpec).FetchPublishedBaseline(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, status.ErrRegistry))
	})
}

func TestGitRevision(t *testing.T) {
	const line = "git log -1 --pretty=%h"

	r := new(mocks.Runner)
	r.On("Run", line).Return(command.Result{Stdout: "3f2a9c1\n"}, nil).Once()
	r.On("Run", line).Return(command.Result{ExitCode: 128, Stderr: "fatal: not a git repository"}, nil).Once()

	g := NewGitRevision(r, "")
	rev, err := g.Short(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "3f2a9c1", rev)

	_, err = g.Short(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrRevision))
}

func TestValidTag(t *testing.T) {
	for _, tag := range []string{"1.0.0", "latest", "abc1234", "_build", "v1.2.3-rc.1"} {
		assert.True(t, ValidTag(tag), tag)
	}
	for _, tag := range []string{"", "-dash", ".dot", "a b", "tag;rm", "a/b", string(make([]byte, 129))} {
		assert.False(t, ValidTag(tag), tag)
	}
}
