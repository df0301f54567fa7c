// Package confirm asks the operator for a yes/no confirmation.
package confirm

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/oneconcern/releaser/pkg/errors"
)

// ErrDeclined is returned when the operator does not confirm
var ErrDeclined = errors.New("stopping update due to non-confirmation input")

var accepted = map[string]struct{}{"y": {}, "ye": {}, "yes": {}}

// Gate asks for confirmations, unless configured to auto-confirm
type Gate struct {
	in          *bufio.Reader
	out         io.Writer
	autoConfirm bool
	prompt      *color.Color
	notice      *color.Color

	// a single reader goroutine owns in, so an abandoned prompt never races with the next one
	readOnce sync.Once
	answers  chan answer
}

// New confirmation gate reading answers from in and writing prompts to out
func New(in io.Reader, out io.Writer, autoConfirm bool) *Gate {
	return &Gate{
		in:          bufio.NewReader(in),
		out:         out,
		autoConfirm: autoConfirm,
		prompt:      color.New(color.FgYellow, color.Bold),
		notice:      color.New(color.FgCyan),
		answers:     make(chan answer),
	}
}

func (g *Gate) readAnswers() {
	for {
		line, err := g.in.ReadString('\n')
		g.answers <- answer{text: line, err: err}
		if err != nil {
			close(g.answers)
			return
		}
	}
}

// Confirm asks a yes/no question. Anything but an explicit yes returns ErrDeclined.
//
// A cancelled context while waiting for an answer is a decline.
func (g *Gate) Confirm(ctx context.Context, message string) error {
	if g.autoConfirm {
		return nil
	}
	_, _ = g.prompt.Fprint(g.out, strings.TrimRight(message, " ")+" (Y/n) ")

	g.readOnce.Do(func() { go g.readAnswers() })

	select {
	case <-ctx.Done():
		_, _ = io.WriteString(g.out, "\n")
		return ErrDeclined.Wrap(ctx.Err())
	case a, ok := <-g.answers:
		if !ok {
			return ErrDeclined.WrapMessage("no more input")
		}
		if _, ok := accepted[strings.ToLower(strings.TrimSpace(a.text))]; ok {
			return nil
		}
		if a.err != nil && a.err != io.EOF {
			return ErrDeclined.Wrap(a.err)
		}
		return ErrDeclined
	}
}

// Inform prints a notice for the operator
func (g *Gate) Inform(message string) {
	_, _ = g.notice.Fprintln(g.out, message)
}

type answer struct {
	text string
	err  error
}
