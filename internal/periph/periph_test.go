package periph_test

import (
	"testing"

	"github.com/nspiresim/firebirdcore/internal/clockdomain"
	"github.com/nspiresim/firebirdcore/internal/config"
	"github.com/nspiresim/firebirdcore/internal/intc"
	"github.com/nspiresim/firebirdcore/internal/periph"
	"github.com/nspiresim/firebirdcore/internal/scheduler"
	"github.com/nspiresim/firebirdcore/internal/sysctx"
	"github.com/nspiresim/firebirdcore/internal/test"
)

func newCtx(names []string, domains []clockdomain.Domain) *sysctx.SystemContext {
	rates := clockdomain.NewRates()
	rates.SetCPUTree(100_000_000, 50_000_000, 25_000_000)
	sched := scheduler.New(rates, names, domains)
	ic := intc.New()
	ic.SetNoninverted(0xFFFFFFFF)
	ic.SetMask(intc.IRQ, 0xFFFFFFFF, true)
	return sysctx.New(sched, ic, &rates, config.Config{})
}

func TestGPIODataBlendsInputAndOutput(t *testing.T) {
	ctx := newCtx([]string{"wd"}, []clockdomain.Domain{clockdomain.APB})
	g := periph.NewGPIO(ctx, 0)
	g.WriteDirection(0, 0x0F) // low nibble output, high nibble input
	g.WriteOutput(0, 0x05)
	g.SetInput(0, 0xA0)
	test.Equate(t, g.Data(0), uint8(0xA5))
}

func TestGPIOEdgeRaisesInterruptOnlyWhenArmed(t *testing.T) {
	ctx := newCtx([]string{"wd"}, []clockdomain.Domain{clockdomain.APB})
	g := periph.NewGPIO(ctx, 2)
	g.Sections[1].Edge = 0x1
	g.Sections[1].Mask = 0x1
	g.SetInput(1, 0x1)
	test.Equate(t, ctx.Intc.Pending(intc.IRQ)&(1<<2), uint32(1<<2))

	g.AckStatus(1, 0x1)
	test.Equate(t, ctx.Intc.Pending(intc.IRQ)&(1<<2), uint32(0))
}

func TestWatchdogLockedIgnoresWrites(t *testing.T) {
	ctx := newCtx([]string{"watchdog"}, []clockdomain.Domain{clockdomain.APB})
	w := periph.NewWatchdog(ctx, 0, 3)
	w.WriteLoad(0x1000)
	test.Equate(t, w.Load, uint32(0))

	w.WriteLock(periph.WatchdogLockMagic)
	w.WriteLoad(0x1000)
	test.Equate(t, w.Load, uint32(0x1000))
}

func TestWatchdogFirstExpiryInterruptsSecondResets(t *testing.T) {
	ctx := newCtx([]string{"watchdog"}, []clockdomain.Domain{clockdomain.APB})
	var resetHard bool
	ctx.Notify = func(event string, args ...interface{}) {
		if event == "reset_hard" {
			resetHard = true
		}
	}
	w := periph.NewWatchdog(ctx, 0, 3)
	w.WriteLock(periph.WatchdogLockMagic)
	w.WriteControl(periph.WatchdogCtrlEnable | periph.WatchdogCtrlIntEnable)
	w.WriteLoad(0x1000)

	ctx.Scheduler.ProcessPending(20_000)
	test.Equate(t, ctx.Intc.Pending(intc.IRQ)&(1<<3), uint32(1<<3))

	ctx.Scheduler.ProcessPending(20_000)
	test.Equate(t, resetHard, true)
}

func TestMiscWatchdogResetCause(t *testing.T) {
	ctx := newCtx([]string{"watchdog"}, []clockdomain.Domain{clockdomain.APB})
	m := periph.NewMisc(ctx)
	w := periph.NewWatchdog(ctx, 0, 3)
	w.SetHardResetHook(m.NoteWatchdogReset)
	w.WriteLock(periph.WatchdogLockMagic)
	w.WriteControl(periph.WatchdogCtrlEnable)
	w.WriteLoad(0x10)

	ctx.Scheduler.ProcessPending(200)
	ctx.Scheduler.ProcessPending(200)
	test.Equate(t, m.Cause, periph.ResetCauseWatchdog)
}

type fakeMemory struct {
	data map[uint32]uint8
}

func (f *fakeMemory) ReadByte(addr uint32) (uint8, error) { return f.data[addr], nil }
func (f *fakeMemory) WriteByte(addr uint32, v uint8) error {
	f.data[addr] = v
	return nil
}

func TestDMACopiesAndRaisesInterrupt(t *testing.T) {
	ctx := newCtx([]string{"dma"}, []clockdomain.Domain{clockdomain.APB})
	mem := &fakeMemory{data: map[uint32]uint8{0x100: 0xAB, 0x101: 0xCD}}
	d := periph.NewDMA(ctx, mem, 5)
	d.Channels[0].Src = 0x100
	d.Channels[0].Dst = 0x200
	d.Channels[0].Count = 2

	d.WriteControl(0, periph.DMACtrlEnable|periph.DMACtrlIntEnable)
	test.Equate(t, mem.data[0x200], uint8(0xAB))
	test.Equate(t, mem.data[0x201], uint8(0xCD))
	test.Equate(t, d.Channels[0].Done, true)
	test.Equate(t, ctx.Intc.Pending(intc.IRQ)&(1<<5), uint32(1<<5))
}

func TestKeypadColumnStateOnlyReflectsSelectedRows(t *testing.T) {
	k := periph.NewKeypad()
	k.SetKey(0, 2, true)
	k.SetKey(1, 3, true)
	k.WriteRowSelect(0x1)
	test.Equate(t, k.ColumnState(), uint32(0x4))

	k.WriteRowSelect(0x2)
	test.Equate(t, k.ColumnState(), uint32(0x8))
}
