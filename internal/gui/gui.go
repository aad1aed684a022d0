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

// Package gui defines the boundary between the core and whatever presents
// it to a user: the headless CLI driver in cmd/firebirdcore today, and any
// future graphical front end. Nothing under internal/ imports a concrete
// GUI toolkit; every component that needs to tell the outside world
// something happened does it through a Callbacks value threaded in via
// internal/sysctx.
package gui

// FeatureReq names a state-change a front end can be told about or asked
// for, the same string-keyed request shape as the emulation this package is
// descended from used for pause/mode requests.
type FeatureReq string

// FeatureReqData is the argument or result associated with a FeatureReq; the
// concrete type depends on which FeatureReq it accompanies, documented
// alongside each constant below.
type FeatureReqData interface{}

const (
	// ReqPaused notifies that the core has entered or left the paused
	// state. Argument: bool.
	ReqPaused FeatureReq = "paused"

	// ReqSuspended notifies that a snapshot was just written. Argument:
	// the path it was written to (string).
	ReqSuspended FeatureReq = "suspended"

	// ReqResumed notifies that the core just resumed from a snapshot.
	// Argument: the path it was read from (string).
	ReqResumed FeatureReq = "resumed"

	// ReqStarted notifies that the core has finished booting and entered
	// Running. No argument.
	ReqStarted FeatureReq = "started"

	// ReqStopped notifies that the core has shut down. No argument.
	ReqStopped FeatureReq = "stopped"

	// ReqUSBLinkChanged notifies a change in USB link attach state.
	// Argument: bool (attached).
	ReqUSBLinkChanged FeatureReq = "usblink_changed"

	// ReqIsBusy asks whether the front end considers itself busy (e.g.
	// mid-dialog) and should not be interrupted. GetFeature only.
	ReqIsBusy FeatureReq = "is_busy"
)

// UnsupportedGUIFeature is the curated message used when a front end is
// asked to handle a FeatureReq it has no implementation for.
const UnsupportedGUIFeature = "unsupported gui feature: %v"

// GUI is the narrow request/response half of the front-end boundary:
// state-style notifications a caller can set or poll, named by FeatureReq.
type GUI interface {
	// SetFeature pushes a state change and waits for the front end to
	// acknowledge or reject it.
	SetFeature(request FeatureReq, args ...FeatureReqData) error

	// SetFeatureNoError is SetFeature for callers in a time-critical path
	// that cannot wait on or handle a rejection.
	SetFeatureNoError(request FeatureReq, args ...FeatureReqData)

	// GetFeature returns the front end's current value for request.
	GetFeature(request FeatureReq) (FeatureReqData, error)
}

// Callbacks is the full front-end surface: GUI's request/response pair plus
// every higher-bandwidth callback the core invokes directly rather than
// through a FeatureReq round trip — a completed display frame, a changed
// emulation speed ratio, and the console/debugger text streams. The
// headless driver and any future GUI both implement this one interface.
type Callbacks interface {
	GUI

	// LCDFrameReady delivers one completed framebuffer, already resolved to
	// 8bpp or 16bpp packed pixels per the LCD's current format register.
	LCDFrameReady(pixels []byte, width, height int)

	// SpeedChanged reports the current ratio of emulated time to wall-clock
	// time, for a front end status bar or the optional statsboard.
	SpeedChanged(ratio float64)

	// DebugPrintf carries the guest's own debug-channel output (e.g. a
	// semihosting or UART debug console), distinct from the core's own
	// logging.
	DebugPrintf(format string, args ...interface{})

	// StatusPrintf carries informational core status text meant for a
	// front-end status line, not a log file.
	StatusPrintf(format string, args ...interface{})

	// Perror reports a non-fatal core error to the front end.
	Perror(err error)

	// NlogPrintf carries verbose/diagnostic logging gated by a front end's
	// own log-level setting.
	NlogPrintf(format string, args ...interface{})

	// DebuggerEnteredOrLeft notifies the front end that the interactive
	// debugger console has taken or released control of the terminal.
	DebuggerEnteredOrLeft(entered bool)

	// DebuggerRequestInput asks the front end for a line of debugger input
	// when the core is not itself attached to an interactive terminal.
	DebuggerRequestInput(prompt string) (string, error)

	// Putchar and Getchar carry the guest's serial console byte stream,
	// used by internal/periph.Serial's front-end-facing side.
	Putchar(b byte)
	Getchar() (byte, bool)
}
