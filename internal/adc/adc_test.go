package adc_test

import (
	"testing"

	"github.com/nspiresim/firebirdcore/internal/adc"
	"github.com/nspiresim/firebirdcore/internal/clockdomain"
	"github.com/nspiresim/firebirdcore/internal/config"
	"github.com/nspiresim/firebirdcore/internal/intc"
	"github.com/nspiresim/firebirdcore/internal/scheduler"
	"github.com/nspiresim/firebirdcore/internal/sysctx"
	"github.com/nspiresim/firebirdcore/internal/test"
)

type fakeSampler struct{ v uint16 }

func (f fakeSampler) ReadChannel(n int) uint16 { return f.v + uint16(n) }

func newCtx() *sysctx.SystemContext {
	rates := clockdomain.NewRates()
	rates.SetCPUTree(100_000_000, 50_000_000, 25_000_000)
	sched := scheduler.New(rates, []string{"adc"}, []clockdomain.Domain{clockdomain.APB})
	ic := intc.New()
	ic.SetNoninverted(0xFFFFFFFF)
	ic.SetMask(intc.IRQ, 0xFFFFFFFF, true)
	return sysctx.New(sched, ic, &rates, config.Config{})
}

func TestClassicWriteCommandLatchesAndSetsDone(t *testing.T) {
	ctx := newCtx()
	c := adc.NewClassic(ctx, fakeSampler{v: 100})

	c.WriteCommand(2)
	test.Equate(t, c.Channels[2].Value, uint32(102))
	test.Equate(t, c.Status&(1<<2), uint32(1<<2))

	c.AckStatus(1 << 2)
	test.Equate(t, c.Status&(1<<2), uint32(0))
}

func TestFIFORefreshBank(t *testing.T) {
	ctx := newCtx()
	f := adc.NewFIFO(ctx, fakeSampler{v: 50}, 0, 2)
	f.RefreshBank()
	test.Equate(t, f.Slots[0], uint32(50))
	test.Equate(t, f.Slots[3], uint32(53))
}

func TestFIFOBackgroundStepCompletesChannel(t *testing.T) {
	ctx := newCtx()
	f := adc.NewFIFO(ctx, fakeSampler{v: 7}, 0, 2)
	f.ReloadCounter = 10
	f.SetBackgroundStepEnable(true)
	f.StartConversion(1)

	ctx.Scheduler.ProcessPending(1000)

	st := f.ChannelStatus(1)
	test.Equate(t, st&0x80000000 != 0, true)
}
