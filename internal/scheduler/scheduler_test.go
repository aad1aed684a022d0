package scheduler_test

import (
	"testing"

	"github.com/nspiresim/firebirdcore/internal/clockdomain"
	"github.com/nspiresim/firebirdcore/internal/scheduler"
	"github.com/nspiresim/firebirdcore/internal/test"
)

func newTestScheduler() *scheduler.Scheduler {
	rates := clockdomain.NewRates()
	rates.SetCPUTree(1_000_000, 500_000, 250_000)
	return scheduler.New(rates,
		[]string{"fast", "slow", "apb"},
		[]clockdomain.Domain{clockdomain.Fixed32K, clockdomain.Fixed32K, clockdomain.APB},
	)
}

func TestNextEventIsMinimum(t *testing.T) {
	s := newTestScheduler()
	test.ExpectSuccess(t, s.EventSet(0, 100))
	test.ExpectSuccess(t, s.EventSet(1, 50))

	// slot 1 has the smaller domain-tick deadline so it must fire first.
	var order []scheduler.SlotID
	s.BindHandler(0, func(s *scheduler.Scheduler, id scheduler.SlotID) { order = append(order, id) })
	s.BindHandler(1, func(s *scheduler.Scheduler, id scheduler.SlotID) { order = append(order, id) })

	budget := s.ProcessPending(0)
	test.ExpectInequality(t, budget, uint64(0))

	// Drive it to completion by repeatedly reporting the granted budget.
	for i := 0; i < 10 && len(order) < 2; i++ {
		budget = s.ProcessPending(budget)
	}

	test.ExpectEquality(t, len(order), 2)
	test.ExpectEquality(t, order[0], scheduler.SlotID(1))
	test.ExpectEquality(t, order[1], scheduler.SlotID(0))
}

func TestEventClearDeactivates(t *testing.T) {
	s := newTestScheduler()
	test.ExpectSuccess(t, s.EventSet(0, 100))
	test.ExpectEquality(t, s.Active(0), true)
	test.ExpectSuccess(t, s.EventClear(0))
	test.ExpectEquality(t, s.Active(0), false)
}

func TestReentrantClearDoesNotRecurse(t *testing.T) {
	s := newTestScheduler()
	fired := 0
	s.BindHandler(0, func(s *scheduler.Scheduler, id scheduler.SlotID) {
		fired++
		// cancelling our own slot from inside our own handler must not
		// recurse into ProcessPending.
		_ = s.EventClear(id)
	})
	test.ExpectSuccess(t, s.EventSet(0, 10))
	// the first call returns the CPU ticks until the slot is due; spending
	// exactly that many fires it.
	budget := s.ProcessPending(0)
	budget = s.ProcessPending(budget)
	test.ExpectEquality(t, fired, 1)
	test.ExpectEquality(t, s.Active(0), false)
	_ = budget
}

func TestZeroCPURatePauses(t *testing.T) {
	rates := clockdomain.NewRates()
	// CPU rate left at zero.
	s := scheduler.New(rates, []string{"watchdog"}, []clockdomain.Domain{clockdomain.Fixed32K})
	test.ExpectSuccess(t, s.EventSet(0, 10))
	test.Equate(t, s.ProcessPending(1000), uint64(0))
}

func TestSetClocksPreservesRealTimeDeadline(t *testing.T) {
	s := newTestScheduler()
	test.ExpectSuccess(t, s.EventSet(0, 16384)) // half a second at 32768Hz

	before := s.EventTicksRemaining(0)
	test.Equate(t, before, uint64(16384))

	rates := clockdomain.NewRates()
	rates.SetCPUTree(2_000_000, 1_000_000, 500_000)
	s.SetClocks(rates)

	// Domain-tick deadline (real time) must be unchanged by a CPU-rate-only
	// change, since the slot's own domain clock rate didn't change.
	test.Equate(t, s.EventTicksRemaining(0), uint64(16384))
}

func TestEventRepeatPreservesLeftover(t *testing.T) {
	s := newTestScheduler()
	count := 0
	s.BindHandler(0, func(s *scheduler.Scheduler, id scheduler.SlotID) {
		count++
		if count < 3 {
			_ = s.EventRepeat(id, 10)
		}
	})
	test.ExpectSuccess(t, s.EventSet(0, 10))

	budget := s.ProcessPending(0)
	for i := 0; i < 20 && count < 3; i++ {
		budget = s.ProcessPending(budget)
	}
	test.Equate(t, count, 3)
}

func TestBadSlotIsFatal(t *testing.T) {
	s := newTestScheduler()
	err := s.EventSet(99, 1)
	test.ExpectFailure(t, err)
}
