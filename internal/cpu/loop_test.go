package cpu_test

import (
	"testing"

	"github.com/nspiresim/firebirdcore/internal/clockdomain"
	"github.com/nspiresim/firebirdcore/internal/config"
	"github.com/nspiresim/firebirdcore/internal/cpu"
	"github.com/nspiresim/firebirdcore/internal/intc"
	"github.com/nspiresim/firebirdcore/internal/scheduler"
	"github.com/nspiresim/firebirdcore/internal/sysctx"
	"github.com/nspiresim/firebirdcore/internal/test"
)

func newTestCtx() *sysctx.SystemContext {
	rates := clockdomain.NewRates()
	rates.SetCPUTree(1_000_000, 500_000, 250_000)
	sched := scheduler.New(rates, []string{"slot"}, []clockdomain.Domain{clockdomain.Fixed32K})
	return sysctx.New(sched, intc.New(), &rates, config.Config{})
}

func TestNullEngineAdvancesPCByOneTickPerRun(t *testing.T) {
	e := cpu.NewNullEngine(0x100)
	delta, err := e.Run(0)
	test.ExpectSuccess(t, err)
	test.Equate(t, delta, uint64(1))
	test.Equate(t, e.PC(), uint32(0x104))
}

func TestNullEngineSetRegisterIndex15IsPC(t *testing.T) {
	e := cpu.NewNullEngine(0)
	e.SetRegister(15, 0x10000000)
	test.Equate(t, e.PC(), uint32(0x10000000))
}

func TestLoopHookRunsEveryBatch(t *testing.T) {
	e := cpu.NewNullEngine(0)
	ctx := newTestCtx()
	l := cpu.NewLoop(e, ctx.Scheduler, ctx)

	var hookCalls int
	l.SetHook(func() {
		hookCalls++
		if hookCalls == 3 {
			l.RequestStop()
		}
	})

	test.ExpectSuccess(t, l.Run(false))
	test.Equate(t, hookCalls, 3)
}

func TestLoopHookCanPauseBeforeNextBatch(t *testing.T) {
	e := cpu.NewNullEngine(0)
	ctx := newTestCtx()
	l := cpu.NewLoop(e, ctx.Scheduler, ctx)

	var hookCalls int
	l.SetHook(func() {
		hookCalls++
		if hookCalls == 1 {
			l.Pause(true)
			go func() {
				l.Pause(false)
				l.RequestStop()
			}()
		}
	})

	test.ExpectSuccess(t, l.Run(false))
	test.ExpectInequality(t, hookCalls, 0)
}
