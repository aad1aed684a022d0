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
	"fmt"
	"os"

	"github.com/nspiresim/firebirdcore/internal/gui"
	"github.com/nspiresim/firebirdcore/internal/statsboard"
)

// cliCallbacks is the headless driver's gui.Callbacks: every notification
// lands on stderr (stdout is reserved for the debugger console's own
// prompt/output), and the two GetFeature/SetFeature round trips this
// driver actually needs to answer (is_busy, usblink_changed) are handled
// directly rather than delegated anywhere else.
type cliCallbacks struct {
	board *statsboard.Board
}

func (c *cliCallbacks) SetFeature(request gui.FeatureReq, args ...gui.FeatureReqData) error {
	fmt.Fprintf(os.Stderr, "[%s] %v\n", request, args)
	return nil
}

func (c *cliCallbacks) SetFeatureNoError(request gui.FeatureReq, args ...gui.FeatureReqData) {
	fmt.Fprintf(os.Stderr, "[%s] %v\n", request, args)
}

func (c *cliCallbacks) GetFeature(request gui.FeatureReq) (gui.FeatureReqData, error) {
	if request == gui.ReqIsBusy {
		return false, nil
	}
	return nil, nil
}

func (c *cliCallbacks) LCDFrameReady(pixels []byte, width, height int) {
	if c.board != nil {
		c.board.NoteFrame()
	}
}

func (c *cliCallbacks) SpeedChanged(ratio float64) {
	if c.board != nil {
		c.board.NoteSpeed(ratio)
	}
	fmt.Fprintf(os.Stderr, "speed: %.2fx\n", ratio)
}

func (c *cliCallbacks) DebugPrintf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "debug: "+format+"\n", args...)
}

func (c *cliCallbacks) StatusPrintf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "status: "+format+"\n", args...)
}

func (c *cliCallbacks) Perror(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
}

func (c *cliCallbacks) NlogPrintf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "nlog: "+format+"\n", args...)
}

func (c *cliCallbacks) DebuggerEnteredOrLeft(entered bool) {
	if entered {
		fmt.Fprintln(os.Stderr, "debugger: entered")
	} else {
		fmt.Fprintln(os.Stderr, "debugger: left")
	}
}

func (c *cliCallbacks) DebuggerRequestInput(prompt string) (string, error) {
	// This driver only ever runs the debugger console on its own CPU-thread
	// goroutine (see main.go's onBreak), never by a separate front end
	// soliciting a line on the core's behalf, so there is nothing for this
	// hook to do here.
	return "", nil
}

// Putchar/Getchar bridge the guest's serial console. This driver has no
// separate guest-serial terminal session distinct from the debugger
// console's own stdin/stdout, so guest output is surfaced and guest input
// is reported as unavailable; a front end wanting a real passthrough
// console would give each its own tty.
func (c *cliCallbacks) Putchar(b byte) {
	os.Stdout.Write([]byte{b})
}

func (c *cliCallbacks) Getchar() (byte, bool) {
	return 0, false
}
