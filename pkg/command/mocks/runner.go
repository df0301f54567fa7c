// Package mocks provides a mock command runner for tests
package mocks

import (
	"context"
	"strings"

	"github.com/oneconcern/releaser/pkg/command"
	"github.com/stretchr/testify/mock"
)

// Runner is a mock command.Runner.
//
// Expectations are set on the rendered command line, e.g.
//
//	r.On("Run", "docker push ns/img:1.0.0").Return(command.Result{}, nil)
type Runner struct {
	mock.Mock
}

var _ command.Runner = &Runner{}

// Run a mocked command
func (m *Runner) Run(_ context.Context, c command.Command) (command.Result, error) {
	args := m.Called(c.String())
	return args.Get(0).(command.Result), args.Error(1)
}

// Lines returns all command lines received so far
func (m *Runner) Lines() []string {
	lines := make([]string, 0, len(m.Calls))
	for _, call := range m.Calls {
		lines = append(lines, call.Arguments.String(0))
	}
	return lines
}

// CalledWith tells if some command line starting with prefix was received
func (m *Runner) CalledWith(prefix string) bool {
	for _, line := range m.Lines() {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
