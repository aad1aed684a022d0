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

// Package statsboard is the optional live dashboard named in spec §6's
// front-end integration points: a runtime goroutine/memory/GC view from
// go-echarts/statsview, plus a small JSON status endpoint bound to the
// same counters that drive the gui.Callbacks.SpeedChanged/NlogPrintf
// notifications, so a browser-based front end can poll core state without
// attaching a debugger or GDB session. Entirely optional: a CLI front end
// that never calls Start never opens a socket.
package statsboard

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"github.com/rs/cors"

	"github.com/nspiresim/firebirdcore/internal/intc"
	"github.com/nspiresim/firebirdcore/internal/soc"
)

// Board owns the two HTTP surfaces: statsview's own runtime-metrics server
// and a small status.json endpoint this package adds. Both are optional —
// a Board that is never Started holds no goroutines or listeners.
type Board struct {
	soc *soc.Soc

	mgr *statsview.Manager
	srv *http.Server

	speed uint64 // atomic, ratio * 1e6 fixed-point (SpeedChanged's float64 has no lock-free atomic form)
	frame uint64 // atomic, LCD frames rendered
}

// New builds a Board around s. It opens no listener; the bind addresses of
// both servers are given to Start.
func New(s *soc.Soc) *Board {
	return &Board{soc: s}
}

// NoteSpeed records the emulated/wall-clock ratio last reported through
// gui.Callbacks.SpeedChanged, for status.json to report without the core
// needing a back-reference into this package.
func (b *Board) NoteSpeed(ratio float64) {
	atomic.StoreUint64(&b.speed, uint64(ratio*1e6))
}

// NoteFrame increments the LCD frame counter, driven from the same place
// gui.Callbacks.LCDFrameReady is invoked.
func (b *Board) NoteFrame() {
	atomic.AddUint64(&b.frame, 1)
}

// Start launches the statsview runtime dashboard on statsAddr and this
// package's status.json endpoint on statusAddr, each in its own goroutine.
// Passing "" for either skips that server. Start never blocks.
func (b *Board) Start(statsAddr, statusAddr string) {
	if statsAddr != "" {
		viewer.SetConfiguration(viewer.WithTheme(viewer.ThemeWesteros))
		b.mgr = statsview.New(statsview.WithAddr(statsAddr))
		go b.mgr.Start()
	}
	if statusAddr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/status.json", b.handleStatus)
		b.srv = &http.Server{
			Addr:    statusAddr,
			Handler: cors.Default().Handler(mux),
		}
		go b.srv.ListenAndServe()
	}
}

// Close shuts down the status.json server. statsview's Manager does not
// expose a Stop in the version this module vendors against; its listener
// goroutine exits with the process, same as every other front-end surface
// this core never forcibly tears down mid-run.
func (b *Board) Close(ctx context.Context) error {
	if b.srv == nil {
		return nil
	}
	return b.srv.Shutdown(ctx)
}

// status is the JSON document status.json serves: a snapshot cheap enough
// to poll at a few Hz from a browser tab.
type status struct {
	Variant      string  `json:"variant"`
	SpeedRatio   float64 `json:"speed_ratio"`
	Frames       uint64  `json:"frames"`
	IntcStatus   uint32  `json:"intc_status"`
	IntcPendIRQ  uint32  `json:"intc_pending_irq"`
	IntcPendFIQ  uint32  `json:"intc_pending_fiq"`
	SchedSlots   int     `json:"scheduler_slots"`
	USBAttached  bool    `json:"usb_attached"`
}

// ServeStatusForTest exposes handleStatus to package tests without opening
// a real listener.
func (b *Board) ServeStatusForTest(w http.ResponseWriter, r *http.Request) {
	b.handleStatus(w, r)
}

func (b *Board) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := status{
		Variant:     b.soc.Variant.String(),
		SpeedRatio:  float64(atomic.LoadUint64(&b.speed)) / 1e6,
		Frames:      atomic.LoadUint64(&b.frame),
		IntcStatus:  b.soc.Ctx.Intc.Status(),
		IntcPendIRQ: b.soc.Ctx.Intc.Pending(intc.IRQ),
		IntcPendFIQ: b.soc.Ctx.Intc.Pending(intc.FIQ),
		SchedSlots:  b.soc.Ctx.Scheduler.NumSlots(),
		USBAttached: b.soc.USBLink.Attached(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(st)
}
