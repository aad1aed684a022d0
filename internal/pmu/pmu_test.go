package pmu_test

import (
	"testing"

	"github.com/nspiresim/firebirdcore/internal/clockdomain"
	"github.com/nspiresim/firebirdcore/internal/config"
	"github.com/nspiresim/firebirdcore/internal/intc"
	"github.com/nspiresim/firebirdcore/internal/pmu"
	"github.com/nspiresim/firebirdcore/internal/scheduler"
	"github.com/nspiresim/firebirdcore/internal/sysctx"
	"github.com/nspiresim/firebirdcore/internal/test"
)

func newCtx(t *testing.T) *sysctx.SystemContext {
	rates := clockdomain.NewRates()
	sched := scheduler.New(rates, []string{"a"}, []clockdomain.Domain{clockdomain.CPU})
	ic := intc.New()
	return sysctx.New(sched, ic, &rates, config.Config{})
}

func TestApplyClockDerivesRates(t *testing.T) {
	ctx := newCtx(t)
	p := pmu.New(ctx)

	// multiplier=4 against the 27MHz crystal, /1 cpu, /2 ahb.
	p.ApplyClock(4 | (1 << 8) | (2 << 12))

	test.Equate(t, ctx.Rates.Get(clockdomain.CPU), uint32(27_000_000*4))
	test.Equate(t, ctx.Rates.Get(clockdomain.AHB), uint32(27_000_000*4/2))
	test.Equate(t, ctx.Rates.Get(clockdomain.APB), uint32(27_000_000*4/2/2))
}

func TestSleepSetsFlagAndWakeClears(t *testing.T) {
	ctx := newCtx(t)
	p := pmu.New(ctx)

	released := false
	p.Sleep(func() { released = true }, nil)
	test.Equate(t, released, true)
	test.Equate(t, ctx.Sleep, true)

	p.Wake(0x2)
	test.Equate(t, ctx.Sleep, false)
	test.Equate(t, p.WakeCause(), uint32(0x2))
}

func TestDerivedChargerDisconnected(t *testing.T) {
	ctx := newCtx(t)
	p := pmu.New(ctx)

	d := p.Derive()
	test.Equate(t, d.Charger, pmu.ChargerDisconnected)
}

func TestDerivedChargingFromDock(t *testing.T) {
	ctx := newCtx(t)
	p := pmu.New(ctx)
	p.Inputs.DockAttached = true
	p.Inputs.DockRailmV = 5000
	p.Inputs.BatterymV = 3700

	d := p.Derive()
	test.Equate(t, d.Charger, pmu.ChargerCharging)
	test.Equate(t, d.VSYSmV > p.Inputs.BatterymV, true)
}

func TestStatusWordPreservesStickyHighBits(t *testing.T) {
	ctx := newCtx(t)
	p := pmu.New(ctx)
	p.SetStatusStickyBits(0, 0xABCD0000)

	w := p.StatusWord(0)
	// only bits 24-31 are sticky; the 0xCD in bits 16-23 is not kept.
	test.Equate(t, w&0xFFFF0000, uint32(0xAB000000))
}
