package iocli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Stdio читает из in и пишет в out. Пароль читается без эха,
// если in является терминалом.
type Stdio struct {
	out    io.Writer
	reader *bufio.Reader
	fd     int
	isTerm func(fd int) bool
}

// NewStdio работает с os.Stdin и os.Stdout
func NewStdio() IO {
	return New(os.Stdin, os.Stdout)
}

// New создает Stdio поверх произвольных потоков
func New(in io.Reader, out io.Writer) *Stdio {
	s := &Stdio{
		out:    out,
		reader: bufio.NewReader(in),
		fd:     -1,
		isTerm: term.IsTerminal,
	}
	if f, ok := in.(*os.File); ok {
		s.fd = int(f.Fd())
	}
	return s
}

func (s *Stdio) Println(a ...any) {
	_, _ = fmt.Fprintln(s.out, a...)
}

func (s *Stdio) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(s.out, format, a...)
}

func (s *Stdio) ReadInput(prompt string) (string, error) {
	s.Printf("%s", prompt)
	input, err := s.reader.ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

func (s *Stdio) ReadPassword(prompt string) (string, error) {
	if s.fd < 0 || !s.isTerm(s.fd) {
		return s.ReadInput(prompt)
	}

	s.Printf("%s", prompt)
	pwBytes, err := term.ReadPassword(s.fd)
	s.Println("")
	if err != nil {
		return "", err
	}
	return string(pwBytes), nil
}
