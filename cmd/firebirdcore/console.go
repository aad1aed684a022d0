// This file is part of Firebird Core.
//
// Firebird Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Firebird Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Firebird Core.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/pkg/term"
)

// lineReader is the debugger console's input source: one line at a time,
// with io.EOF (or any error) meaning the session should stop soliciting
// further input.
type lineReader interface {
	ReadLine(prompt string) (string, error)
	Close() error
}

// openConsole prefers a raw-mode tty session (character-at-a-time reads,
// so backspace/interrupt are handled here rather than left to whatever
// line discipline the controlling terminal happens to have) and falls back
// to buffered stdin when no controlling tty is available — stdin
// redirected from a file or a pipe, the common case under a test harness
// or CI runner.
func openConsole() lineReader {
	t, err := term.Open("/dev/tty")
	if err != nil {
		return &scannerConsole{s: bufio.NewScanner(os.Stdin)}
	}
	if err := t.SetCbreak(); err != nil {
		t.Close()
		return &scannerConsole{s: bufio.NewScanner(os.Stdin)}
	}
	return &ttyConsole{t: t}
}

// ttyConsole reads one raw byte at a time from a cbreak-mode tty, echoing
// printable bytes and handling backspace/DEL and Ctrl-C itself since
// cbreak mode disables the kernel's own line editing and echo.
type ttyConsole struct {
	t *term.Term
}

func (c *ttyConsole) Close() error {
	c.t.Restore()
	return c.t.Close()
}

func (c *ttyConsole) ReadLine(prompt string) (string, error) {
	fmt.Fprint(os.Stdout, prompt)
	var line []byte
	buf := make([]byte, 1)
	for {
		n, err := c.t.Read(buf)
		if err != nil {
			return "", err
		}
		if n == 0 {
			continue
		}
		switch b := buf[0]; b {
		case '\r', '\n':
			fmt.Fprintln(os.Stdout)
			return string(line), nil
		case 127, 8: // DEL, backspace
			if len(line) > 0 {
				line = line[:len(line)-1]
				fmt.Fprint(os.Stdout, "\b \b")
			}
		case 3: // Ctrl-C
			fmt.Fprintln(os.Stdout)
			return "", io.EOF
		default:
			line = append(line, b)
			fmt.Fprintf(os.Stdout, "%c", b)
		}
	}
}

// scannerConsole is the non-tty fallback: ordinary buffered line reads,
// with the terminal's own (or the pipe source's) line discipline doing
// any editing.
type scannerConsole struct {
	s *bufio.Scanner
}

func (c *scannerConsole) Close() error { return nil }

func (c *scannerConsole) ReadLine(prompt string) (string, error) {
	fmt.Fprint(os.Stdout, prompt)
	if !c.s.Scan() {
		if err := c.s.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return c.s.Text(), nil
}
