// Package prompt asks the user for missing values on the terminal.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/howeyc/gopass"
	"github.com/pkg/errors"
)

// ErrRequired is returned when a required value is missing and prompting is
// disabled or the input ended.
var ErrRequired = errors.New("a value is required")

// SecretReader reads a secret without echoing it.
type SecretReader func(label string) (string, error)

// Prompter asks questions on an input/output pair. When not interactive,
// every question is answered with its default.
type Prompter struct {
	in          *bufio.Reader
	out         io.Writer
	secret      SecretReader
	interactive bool
}

// New creates a Prompter reading answers from in and writing questions to out.
func New(in io.Reader, out io.Writer, secret SecretReader, interactive bool) *Prompter {
	return &Prompter{
		in:          bufio.NewReader(in),
		out:         out,
		secret:      secret,
		interactive: interactive,
	}
}

// NewTerminal creates a Prompter on stdin and stderr, so that stdout stays
// free for results.
func NewTerminal(interactive bool) *Prompter {
	return New(os.Stdin, os.Stderr, terminalSecret, interactive)
}

func terminalSecret(label string) (string, error) {
	data, err := gopass.GetPasswdPrompt(label, true, os.Stdin, os.Stderr)
	if nil != err {
		return "", err
	}

	return string(data), nil
}

// Interactive reports whether questions are actually asked.
func (p *Prompter) Interactive() bool {
	return p.interactive
}

// String asks for a value, offering def when the answer is empty.
func (p *Prompter) String(label, def string) (string, error) {
	if !p.interactive {
		return def, nil
	}

	if "" != def {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}

	line, err := p.in.ReadString('\n')
	if nil != err && (io.EOF != err || "" == line) {
		if io.EOF == err {
			return def, nil
		}
		return "", err
	}

	if answer := strings.TrimSpace(line); "" != answer {
		return answer, nil
	}

	return def, nil
}

// Required is like String, but asks again until a value is given.
func (p *Prompter) Required(label, def string) (string, error) {
	for {
		v, err := p.String(label, def)
		if nil != err {
			return "", err
		} else if "" != v {
			return v, nil
		} else if !p.interactive || p.eof() {
			return "", errors.Wrap(ErrRequired, label)
		}

		fmt.Fprintln(p.out, "A value is required.")
	}
}

// Choice asks for one of options.
func (p *Prompter) Choice(label string, options []string, def string) (string, error) {
	for {
		v, err := p.String(fmt.Sprintf("%s (%s)", label, strings.Join(options, ", ")), def)
		if nil != err {
			return "", err
		}

		for _, o := range options {
			if strings.EqualFold(o, v) {
				return o, nil
			}
		}

		if !p.interactive || p.eof() {
			return "", errors.Errorf("%s: %q is not one of %s", label, v, strings.Join(options, ", "))
		}

		fmt.Fprintf(p.out, "Please answer one of %s.\n", strings.Join(options, ", "))
	}
}

// Confirm asks a yes/no question.
func (p *Prompter) Confirm(label string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}

	for {
		v, err := p.String(fmt.Sprintf("%s (%s)", label, hint), "")
		if nil != err {
			return false, err
		}

		switch strings.ToLower(v) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}

		if p.eof() {
			return def, nil
		}
	}
}

// Secret asks for a value without echoing it. The default is used when not
// interactive.
func (p *Prompter) Secret(label, def string) (string, error) {
	if !p.interactive || nil == p.secret {
		return def, nil
	}

	v, err := p.secret(label + ": ")
	if nil != err {
		return "", errors.Wrapf(err, "failed to read %s", label)
	}
	if "" == v {
		return def, nil
	}

	return v, nil
}

func (p *Prompter) eof() bool {
	_, err := p.in.Peek(1)
	return io.EOF == err
}
