package timer_test

import (
	"testing"

	"github.com/nspiresim/firebirdcore/internal/clockdomain"
	"github.com/nspiresim/firebirdcore/internal/config"
	"github.com/nspiresim/firebirdcore/internal/intc"
	"github.com/nspiresim/firebirdcore/internal/scheduler"
	"github.com/nspiresim/firebirdcore/internal/sysctx"
	"github.com/nspiresim/firebirdcore/internal/test"
	"github.com/nspiresim/firebirdcore/internal/timer"
)

func newCtx() *sysctx.SystemContext {
	rates := clockdomain.NewRates()
	rates.SetCPUTree(100_000_000, 50_000_000, 25_000_000)
	names := []string{"classic", "sp804a", "sp804b"}
	domains := []clockdomain.Domain{clockdomain.Fixed32K, clockdomain.APB, clockdomain.APB}
	sched := scheduler.New(rates, names, domains)
	ic := intc.New()
	ic.SetNoninverted(0xFFFFFFFF)
	ic.SetMask(intc.IRQ, 0xFFFFFFFF, true)
	return sysctx.New(sched, ic, &rates, config.Config{})
}

func TestClassicBankAdvancesAndCompletes(t *testing.T) {
	ctx := newCtx()
	c := timer.NewClassicBanks(ctx, 0, 3)
	c.Banks[0].Timers[0].Start = 703
	c.Banks[0].Timers[0].Value = 703
	c.Banks[0].Timers[0].Control = 0x1
	c.Banks[0].Mask = 0x1

	ctx.Scheduler.ProcessPending(10_000)
	test.Equate(t, c.Banks[0].Status&0x1, uint32(0x1))
}

func TestSP804LoadRestartsCountdown(t *testing.T) {
	ctx := newCtx()
	b := timer.NewSP804Bank(ctx, 1, 2, 4)

	b.WriteControl(0, timer.CtrlEnable|timer.Ctrl32Bit)
	b.WriteLoad(0, 1000)
	v := b.ReadValue(0)
	test.Equate(t, v <= 1000, true)

	b.WriteLoad(0, 500)
	v2 := b.ReadValue(0)
	test.Equate(t, v2 <= 500, true)
}

func TestSP804BackgroundLoadDefersUntilReload(t *testing.T) {
	ctx := newCtx()
	b := timer.NewSP804Bank(ctx, 1, 2, 4)

	b.WriteControl(0, timer.CtrlEnable|timer.CtrlPeriodic|timer.Ctrl32Bit)
	b.WriteLoad(0, 100)
	b.WriteBackgroundLoad(0, 999)

	// current countdown must still reflect the original load, not 999.
	v := b.ReadValue(0)
	test.Equate(t, v <= 100, true)
}

func TestSP804InterruptFiresAndAcks(t *testing.T) {
	ctx := newCtx()
	b := timer.NewSP804Bank(ctx, 1, 2, 4)

	b.WriteControl(0, timer.CtrlEnable|timer.Ctrl32Bit|timer.CtrlIntEnable)
	b.WriteLoad(0, 10)

	ctx.Scheduler.ProcessPending(100)
	test.Equate(t, b.InterruptPending(0), true)

	b.AckInterrupt(0)
	test.Equate(t, b.InterruptPending(0), false)
}
