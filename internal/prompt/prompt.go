// Package prompt reads operator choices from the terminal: whole lines, or a
// single keystroke in raw mode for short numbered menus.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alfaoz/v2util/internal/colorstr"
	"golang.org/x/text/message"
)

var (
	// ErrCancelled is returned for empty input: Enter alone, or end of input.
	ErrCancelled = errors.New("cancelled")
	// ErrInterrupted is returned when Ctrl-C arrives during a raw read.
	ErrInterrupted = errors.New("interrupted")
)

// KeyReader reads one keystroke without waiting for Enter.
type KeyReader interface {
	ReadKey() (string, error)
}

type Prompter struct {
	Out     io.Writer
	Lines   *bufio.Reader
	Keys    KeyReader
	Printer *message.Printer
}

// New reads from in (normally os.Stdin) and writes to out.
func New(in *os.File, out io.Writer, p *message.Printer) *Prompter {
	return &Prompter{
		Out:     out,
		Lines:   bufio.NewReader(in),
		Keys:    NewRawKeyReader(in),
		Printer: p,
	}
}

func (p *Prompter) sprintf(key string, args ...any) string {
	if p.Printer == nil {
		return fmt.Sprintf(key, args...)
	}
	return p.Printer.Sprintf(key, args...)
}

// ReadLine prints prompt and returns the trimmed line. End of input with
// nothing typed yields "".
func (p *Prompter) ReadLine(prompt string) (string, error) {
	fmt.Fprint(p.Out, prompt)
	line, err := p.Lines.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ReadChar prints prompt, reads one keystroke and moves to a new line.
func (p *Prompter) ReadChar(prompt string) (string, error) {
	fmt.Fprint(p.Out, prompt)
	ch, err := p.Keys.ReadKey()
	fmt.Fprintln(p.Out)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(ch), nil
}

// ChoiceNumber asks until the answer is a number in [1, length]. Menus with
// ten or more entries read a full line so multi-digit answers work; shorter
// ones take a single keystroke. Empty input returns ErrCancelled.
func (p *Prompter) ChoiceNumber(tip string, length int) (int, error) {
	for {
		fmt.Fprintln(p.Out)
		var (
			choice string
			err    error
		)
		if length >= 10 {
			choice, err = p.ReadLine(tip)
		} else {
			choice, err = p.ReadChar(tip)
		}
		if err != nil {
			return 0, err
		}
		if choice == "" {
			return 0, ErrCancelled
		}
		if n, ok := parseNumber(choice); ok && n > 0 && n <= length {
			return n, nil
		}
		fmt.Fprintln(p.Out, colorstr.Red(p.sprintf("input error, please input again")))
	}
}

func parseNumber(s string) (int, bool) {
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}
