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

// Package usblink models the "USB-link polling" scheduler slot named in
// spec §3 as the minimal packet-exchange interface the guest's USB-link
// driver is consumed through — not a USB device/endpoint stack. The actual
// USB protocol this stands in for is external to the core (spec §1); this
// package only carries framed packets between a host side and a guest side
// and arms the scheduler slot that drives polling while attached.
package usblink

import (
	"github.com/nspiresim/firebirdcore/internal/scheduler"
	"github.com/nspiresim/firebirdcore/internal/sysctx"
)

// PacketKind distinguishes a control transfer from a bulk data transfer,
// the two shapes the guest's USB-link driver and debugger `ln` command
// (spec §6) exchange.
type PacketKind int

const (
	PacketControl PacketKind = iota
	PacketBulk
)

// Packet is one framed unit exchanged across the link in either direction.
type Packet struct {
	Kind    PacketKind
	Payload []byte
}

// Link is one USB-link endpoint: a guest-facing Send/Recv pair, a
// host-facing HostSend/HostRecv pair, and the scheduler slot that polls for
// host-side activity while attached.
type Link struct {
	ctx       *sysctx.SystemContext
	slot      scheduler.SlotID
	pollTicks uint64

	attached bool
	inbox    []Packet // host -> guest
	outbox   []Packet // guest -> host
}

// NewLink binds a Link to the scheduler slot it polls on while attached.
// pollTicks is the slot's re-arm interval in its own clock domain.
func NewLink(ctx *sysctx.SystemContext, slot scheduler.SlotID, pollTicks uint64) *Link {
	l := &Link{ctx: ctx, slot: slot, pollTicks: pollTicks}
	ctx.Scheduler.BindHandler(slot, l.poll)
	return l
}

// Attach marks the host side as connected or disconnected, arms or clears
// the polling slot accordingly, and notifies the front end via
// usblink_changed (spec §6 front-end callbacks).
func (l *Link) Attach(attached bool) {
	if l.attached == attached {
		return
	}
	l.attached = attached
	if attached {
		l.ctx.Scheduler.EventSet(l.slot, l.pollTicks)
	} else {
		l.ctx.Scheduler.EventClear(l.slot)
	}
	if l.ctx.Notify != nil {
		l.ctx.Notify("usblink_changed", attached)
	}
}

// Attached reports the current host attach state.
func (l *Link) Attached() bool {
	return l.attached
}

// RestoreAttached sets the attach state without raising usblink_changed,
// for snapshot resume: the front end is told about the state it is about to
// observe, not about a transition that never happened on this process.
func (l *Link) RestoreAttached(attached bool) {
	l.attached = attached
	if attached {
		l.ctx.Scheduler.EventSet(l.slot, l.pollTicks)
	} else {
		l.ctx.Scheduler.EventClear(l.slot)
	}
}

// Send queues a packet from the guest toward the host. Dropped silently if
// no host is attached, matching a real link with nothing plugged in.
func (l *Link) Send(p Packet) {
	if !l.attached {
		return
	}
	l.outbox = append(l.outbox, p)
}

// Recv dequeues the next packet queued for the guest, if any.
func (l *Link) Recv() (Packet, bool) {
	if len(l.inbox) == 0 {
		return Packet{}, false
	}
	p := l.inbox[0]
	l.inbox = l.inbox[1:]
	return p, true
}

// HostSend is the host side's injection point, queuing a packet the guest
// will see on its next Recv.
func (l *Link) HostSend(p Packet) {
	l.inbox = append(l.inbox, p)
}

// HostRecv drains every packet the guest has queued via Send since the last
// call.
func (l *Link) HostRecv() []Packet {
	out := l.outbox
	l.outbox = nil
	return out
}

// poll re-arms the slot while attached; the actual transfer of queued
// packets happens synchronously in Send/Recv/HostSend/HostRecv, so poll
// itself only keeps the slot alive for whatever the guest driver's
// interrupt-driven side expects to observe.
func (l *Link) poll(s *scheduler.Scheduler, id scheduler.SlotID) {
	if l.attached {
		s.EventSet(l.slot, l.pollTicks)
	}
}
