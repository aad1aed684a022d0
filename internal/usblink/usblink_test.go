package usblink_test

import (
	"testing"

	"github.com/nspiresim/firebirdcore/internal/clockdomain"
	"github.com/nspiresim/firebirdcore/internal/config"
	"github.com/nspiresim/firebirdcore/internal/intc"
	"github.com/nspiresim/firebirdcore/internal/scheduler"
	"github.com/nspiresim/firebirdcore/internal/sysctx"
	"github.com/nspiresim/firebirdcore/internal/test"
	"github.com/nspiresim/firebirdcore/internal/usblink"
)

func newCtx() *sysctx.SystemContext {
	rates := clockdomain.NewRates()
	rates.SetCPUTree(100_000_000, 50_000_000, 25_000_000)
	sched := scheduler.New(rates, []string{"usb_link_poll"}, []clockdomain.Domain{clockdomain.APB})
	ic := intc.New()
	return sysctx.New(sched, ic, &rates, config.Config{})
}

func TestAttachArmsSlotAndNotifies(t *testing.T) {
	ctx := newCtx()
	var gotEvent string
	var gotArg interface{}
	ctx.Notify = func(event string, args ...interface{}) {
		gotEvent = event
		if len(args) > 0 {
			gotArg = args[0]
		}
	}
	l := usblink.NewLink(ctx, 0, 1000)

	l.Attach(true)
	test.Equate(t, l.Attached(), true)
	test.Equate(t, gotEvent, "usblink_changed")
	test.Equate(t, gotArg, interface{}(true))
	test.Equate(t, ctx.Scheduler.Active(0), true)

	l.Attach(false)
	test.Equate(t, l.Attached(), false)
	test.Equate(t, ctx.Scheduler.Active(0), false)
}

func TestSendDropsWhenDetached(t *testing.T) {
	ctx := newCtx()
	l := usblink.NewLink(ctx, 0, 1000)

	l.Send(usblink.Packet{Kind: usblink.PacketBulk, Payload: []byte{1}})
	test.Equate(t, len(l.HostRecv()), 0)

	l.Attach(true)
	l.Send(usblink.Packet{Kind: usblink.PacketBulk, Payload: []byte{1, 2}})
	out := l.HostRecv()
	test.Equate(t, len(out), 1)
	test.Equate(t, out[0].Payload[1], byte(2))
	test.Equate(t, len(l.HostRecv()), 0)
}

func TestHostSendIsDrainedByRecvInOrder(t *testing.T) {
	ctx := newCtx()
	l := usblink.NewLink(ctx, 0, 1000)
	l.Attach(true)

	l.HostSend(usblink.Packet{Kind: usblink.PacketControl, Payload: []byte{0xAA}})
	l.HostSend(usblink.Packet{Kind: usblink.PacketBulk, Payload: []byte{0xBB}})

	p1, ok := l.Recv()
	test.Equate(t, ok, true)
	test.Equate(t, p1.Payload[0], byte(0xAA))

	p2, ok := l.Recv()
	test.Equate(t, ok, true)
	test.Equate(t, p2.Payload[0], byte(0xBB))

	_, ok = l.Recv()
	test.Equate(t, ok, false)
}

func TestRestoreAttachedSkipsNotify(t *testing.T) {
	ctx := newCtx()
	notified := false
	ctx.Notify = func(event string, args ...interface{}) { notified = true }
	l := usblink.NewLink(ctx, 0, 1000)

	l.RestoreAttached(true)
	test.Equate(t, l.Attached(), true)
	test.Equate(t, notified, false)
	test.Equate(t, ctx.Scheduler.Active(0), true)
}
