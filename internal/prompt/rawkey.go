package prompt

import (
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/term"
)

type ttyFile interface {
	io.Reader
	Fd() uintptr
}

// RawKeyReader switches the terminal to raw mode for exactly one read and
// always puts the previous mode back.
type RawKeyReader struct {
	File    ttyFile
	makeRaw func(fd int) (*term.State, error)
	restore func(fd int, state *term.State) error
}

func NewRawKeyReader(f ttyFile) *RawKeyReader {
	return &RawKeyReader{File: f, makeRaw: term.MakeRaw, restore: term.Restore}
}

func (r *RawKeyReader) ReadKey() (string, error) {
	fd := int(r.File.Fd())
	old, err := r.makeRaw(fd)
	if err != nil {
		return "", fmt.Errorf("enter raw mode: %w", err)
	}
	defer r.restore(fd, old)

	buf := make([]byte, utf8.UTFMax)
	n, err := r.File.Read(buf)
	if err != nil {
		return "", err
	}
	ch, _ := utf8.DecodeRune(buf[:n])
	if ch == 0x03 {
		return "", ErrInterrupted
	}
	return string(ch), nil
}
