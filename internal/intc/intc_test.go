package intc_test

import (
	"testing"

	"github.com/nspiresim/firebirdcore/internal/intc"
	"github.com/nspiresim/firebirdcore/internal/test"
)

func TestStatusFormula(t *testing.T) {
	c := intc.New()
	c.SetSticky(1 << 2)
	c.SetNoninverted(0xFFFFFFFF) // every line non-inverted: raw == active

	test.ExpectSuccess(t, c.SetLine(2, true))
	// line 2 is sticky: rising edge latches, and remains in status even
	// after the level drops, until explicitly acknowledged.
	test.Equate(t, c.Status()&(1<<2), uint32(1<<2))

	test.ExpectSuccess(t, c.SetLine(2, false))
	test.Equate(t, c.Status()&(1<<2), uint32(1<<2))

	c.AckStickyStatus(1 << 2)
	test.Equate(t, c.Status()&(1<<2), uint32(0))
}

func TestCPUInputFormula(t *testing.T) {
	c := intc.New()
	var irq, fiq bool
	c.CPUInput = func(i, f bool) { irq, fiq = i, f }
	c.SetNoninverted(0xFFFFFFFF)

	c.SetMask(intc.IRQ, 1<<5, true)
	test.ExpectSuccess(t, c.SetLine(5, true))
	test.Equate(t, irq, true)
	test.Equate(t, fiq, false)

	// routing the same line to FIQ must remove it from IRQ assertion.
	c.SetMask(intc.FIQ, 1<<5, true)
	test.ExpectSuccess(t, c.SetLine(5, true))
	test.Equate(t, irq, false)
	test.Equate(t, fiq, true)
}

func TestPriorityTieBreakLowestIndex(t *testing.T) {
	c := intc.New()
	c.SetNoninverted(0xFFFFFFFF)
	c.SetMask(intc.IRQ, (1<<3)|(1<<7), true)
	c.SetPriorityLimit(intc.IRQ, 7)

	test.ExpectSuccess(t, c.SetPriority(3, 2))
	test.ExpectSuccess(t, c.SetPriority(7, 2))
	test.ExpectSuccess(t, c.SetLine(3, true))
	test.ExpectSuccess(t, c.SetLine(7, true))

	line, ok := c.Current(intc.IRQ)
	test.Equate(t, ok, true)
	test.Equate(t, line, 3)
}

func TestAcknowledgeAndRelease(t *testing.T) {
	c := intc.New()
	c.SetNoninverted(0xFFFFFFFF)
	c.SetMask(intc.IRQ, 1<<4, true)
	c.SetPriorityLimit(intc.IRQ, 7)
	test.ExpectSuccess(t, c.SetPriority(4, 1))
	test.ExpectSuccess(t, c.SetLine(4, true))

	line, ok := c.Acknowledge(intc.IRQ)
	test.Equate(t, ok, true)
	test.Equate(t, line, 4)

	prev := c.Release(intc.IRQ)
	test.Equate(t, prev, uint8(7))
}

func TestVectoredScan(t *testing.T) {
	v := intc.NewVectored()
	v.SetNoninverted(0xFFFFFFFF)
	v.SetMask(intc.IRQ, 1<<9, true)
	v.SetDefaultHandler(0xDEAD0000)
	v.SetVector(0, intc.Vector{Address: 0xCAFE0000, Enable: true, Source: 9})

	test.Equate(t, v.CurrentVectorAddress(), uint32(0xDEAD0000))
	test.ExpectSuccess(t, v.SetLine(9, true))
	test.Equate(t, v.CurrentVectorAddress(), uint32(0xCAFE0000))

	test.ExpectSuccess(t, v.SetLine(9, false))
	test.Equate(t, v.CurrentVectorAddress(), uint32(0xDEAD0000))
}

func TestBadLineIsFatal(t *testing.T) {
	c := intc.New()
	test.ExpectFailure(t, c.SetLine(99, true))
}
