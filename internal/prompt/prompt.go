// Package prompt asks the user questions on a terminal.
//
// A non-interactive Prompter never reads input: it answers with defaults
// and fails with ErrNonInteractive when no default exists.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// ErrNonInteractive is returned when an answer is required but prompting is disabled.
var ErrNonInteractive = errors.New("input required but running non-interactively")

// maxAttempts bounds how often an invalid answer is re-asked.
const maxAttempts = 3

// Prompter reads answers from in and writes questions to out.
type Prompter struct {
	in          *bufio.Reader
	rawIn       io.Reader
	out         io.Writer
	interactive bool
}

// New returns a Prompter. When interactive is false nothing is read from in.
func New(in io.Reader, out io.Writer, interactive bool) *Prompter {
	return &Prompter{
		in:          bufio.NewReader(in),
		rawIn:       in,
		out:         out,
		interactive: interactive,
	}
}

// Interactive reports whether the prompter reads input.
func (p *Prompter) Interactive() bool {
	return p.interactive
}

// Ask returns the trimmed answer, or def when the answer is empty.
func (p *Prompter) Ask(label, def string) (string, error) {
	if !p.interactive {
		return def, nil
	}

	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s ", label)
	}

	answer, err := p.readLine()
	if err != nil {
		return "", err
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// AskRequired asks until a non-empty answer is given.
func (p *Prompter) AskRequired(label string) (string, error) {
	if !p.interactive {
		return "", fmt.Errorf("%w: %s", ErrNonInteractive, label)
	}

	for i := 0; i < maxAttempts; i++ {
		answer, err := p.Ask(label, "")
		if err != nil {
			return "", err
		}
		if answer != "" {
			return answer, nil
		}
	}
	return "", fmt.Errorf("no answer given for %q", label)
}

// Confirm asks a yes/no question. An empty answer means def.
func (p *Prompter) Confirm(label string, def bool) (bool, error) {
	if !p.interactive {
		return def, nil
	}

	hint := "y/N"
	if def {
		hint = "Y/n"
	}

	for i := 0; i < maxAttempts; i++ {
		fmt.Fprintf(p.out, "%s [%s]: ", label, hint)

		answer, err := p.readLine()
		if err != nil {
			return false, err
		}

		switch strings.ToLower(answer) {
		case "":
			return def, nil
		case "y", "yes", "t", "tak":
			return true, nil
		case "n", "no", "nie":
			return false, nil
		}
	}
	return false, fmt.Errorf("no valid answer given for %q", label)
}

// Select shows numbered options and returns the index of the chosen one.
func (p *Prompter) Select(label string, options []string) (int, error) {
	if len(options) == 0 {
		return -1, fmt.Errorf("no options to select from for %q", label)
	}
	if !p.interactive {
		return -1, fmt.Errorf("%w: %s", ErrNonInteractive, label)
	}

	fmt.Fprintln(p.out, label)
	for i, opt := range options {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, opt)
	}

	for i := 0; i < maxAttempts; i++ {
		fmt.Fprintf(p.out, "[1-%d]: ", len(options))

		answer, err := p.readLine()
		if err != nil {
			return -1, err
		}

		n, err := strconv.Atoi(answer)
		if err == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
	}
	return -1, fmt.Errorf("no valid selection given for %q", label)
}

// Secret reads a value without echo when input is a terminal.
func (p *Prompter) Secret(label string) (string, error) {
	if !p.interactive {
		return "", fmt.Errorf("%w: %s", ErrNonInteractive, label)
	}

	fmt.Fprintf(p.out, "%s: ", label)

	if f, ok := p.rawIn.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("failed to read secret: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	return p.readLine()
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
