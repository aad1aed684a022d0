package memdispatch_test

import (
	"testing"

	"github.com/nspiresim/firebirdcore/internal/memdispatch"
	"github.com/nspiresim/firebirdcore/internal/test"
)

func TestBackingReadWriteWord(t *testing.T) {
	b := memdispatch.NewBacking()
	r := memdispatch.NewRegion(0x1000, 0x100, false)
	b.Add(r)

	test.ExpectSuccess(t, b.WriteWord(0x1000, 0xCAFEBABE))
	v, err := b.ReadWord(0x1000)
	test.ExpectSuccess(t, err)
	test.Equate(t, v, uint32(0xCAFEBABE))
}

func TestBackingBadAddressIsError(t *testing.T) {
	b := memdispatch.NewBacking()
	b.Add(memdispatch.NewRegion(0x1000, 0x100, false))

	_, err := b.ReadWord(0x5000)
	test.ExpectFailure(t, err)
}

func TestBackingReadOnlyRejectsWrite(t *testing.T) {
	b := memdispatch.NewBacking()
	r := memdispatch.NewRegion(0x1000, 0x100, true)
	b.Add(r)

	test.ExpectFailure(t, b.WriteWord(0x1000, 1))
}

func TestBackingPerWordReadOnlyFlag(t *testing.T) {
	b := memdispatch.NewBacking()
	r := memdispatch.NewRegion(0x1000, 0x100, false)
	r.Flags[0] = r.Flags[0].Set(memdispatch.FlagReadOnly)
	b.Add(r)

	test.ExpectFailure(t, b.WriteWord(0x1000, 1))
	test.ExpectSuccess(t, b.WriteWord(0x1004, 1))
}

func TestBackingWriteInvalidatesTranslationTags(t *testing.T) {
	b := memdispatch.NewBacking()
	r := memdispatch.NewRegion(0x1000, 0x100, false)
	r.Flags[0] = r.Flags[0].Set(memdispatch.FlagCodeTranslated | memdispatch.FlagCodeExecuted)
	b.Add(r)

	test.ExpectSuccess(t, b.WriteByte(0x1000, 0xFF))
	test.Equate(t, r.Flags[0].Has(memdispatch.FlagCodeTranslated), false)
	test.Equate(t, r.Flags[0].Has(memdispatch.FlagCodeExecuted), false)
}

func TestBackingBreakpointHookFires(t *testing.T) {
	b := memdispatch.NewBacking()
	r := memdispatch.NewRegion(0x1000, 0x100, false)
	r.Flags[0] = r.Flags[0].Set(memdispatch.FlagBreakWrite)
	b.Add(r)

	var kind string
	var addr uint32
	b.Breakpoint = func(k string, a uint32) { kind, addr = k, a }

	test.ExpectSuccess(t, b.WriteByte(0x1000, 1))
	test.Equate(t, kind, "write")
	test.Equate(t, addr, uint32(0x1000))
}

func TestBackingLinearScanOrder(t *testing.T) {
	b := memdispatch.NewBacking()
	b.Add(memdispatch.NewRegion(0x1000, 0x100, false))
	b.Add(memdispatch.NewRegion(0x2000, 0x100, false))

	test.ExpectSuccess(t, b.WriteWord(0x2000, 42))
	v, err := b.ReadWord(0x2000)
	test.ExpectSuccess(t, err)
	test.Equate(t, v, uint32(42))
}

func TestMirrorRegionSharesHost(t *testing.T) {
	b := memdispatch.NewBacking()
	rom := memdispatch.NewRegion(0x0, 0x100, true)
	b.Add(rom)
	b.Add(memdispatch.Mirror(rom, 0x10000, 0x100))

	rom.Host[0] = 0x42
	v, err := b.ReadByte(0x10000)
	test.ExpectSuccess(t, err)
	test.Equate(t, v, uint8(0x42))
}

type fakeWordPeripheral struct {
	reg uint32
}

func (f *fakeWordPeripheral) ReadWord(addr uint32) (uint32, error) { return f.reg, nil }
func (f *fakeWordPeripheral) WriteWord(addr uint32, v uint32) error {
	f.reg = v
	return nil
}

func TestWordOnlyMasksByteRead(t *testing.T) {
	p := &fakeWordPeripheral{reg: 0x11223344}
	h := memdispatch.WordOnly(p)

	v, err := h.ReadByte(0x0)
	test.ExpectSuccess(t, err)
	test.Equate(t, v, uint8(0x44))

	v2, err := h.ReadByte(0x1)
	test.ExpectSuccess(t, err)
	test.Equate(t, v2, uint8(0x33))
}

func TestWordOnlyBroadcastsByteWrite(t *testing.T) {
	p := &fakeWordPeripheral{}
	h := memdispatch.WordOnly(p)

	test.ExpectSuccess(t, h.WriteByte(0x0, 0xAB))
	test.Equate(t, p.reg, uint32(0xABABABAB))
}

func TestWordOnlyBroadcastsHalfWrite(t *testing.T) {
	p := &fakeWordPeripheral{}
	h := memdispatch.WordOnly(p)

	test.ExpectSuccess(t, h.WriteHalf(0x0, 0xBEEF))
	test.Equate(t, p.reg, uint32(0xBEEFBEEF))
}

func TestAPBSubDispatchIndexing(t *testing.T) {
	a := memdispatch.NewAPB(memdispatch.UnmappedHandler{})
	p := &fakeWordPeripheral{}
	a.Bind(5, p)

	addr := uint32(5) << 16
	test.ExpectSuccess(t, a.WriteWord(addr, 0x1234))
	test.Equate(t, p.reg, uint32(0x1234))
}

func TestAPBUnboundSlotIsBadAccess(t *testing.T) {
	a := memdispatch.NewAPB(memdispatch.UnmappedHandler{})
	_, err := a.ReadWord(uint32(9) << 16)
	test.ExpectFailure(t, err)
}

func TestDispatchTopLevelBinding(t *testing.T) {
	d := memdispatch.NewDispatch(memdispatch.UnmappedHandler{})
	p := &fakeWordPeripheral{}
	d.Bind(0, 2, memdispatch.WordOnly(p))

	addr := uint32(2) << 26
	test.ExpectSuccess(t, d.WriteWord(0, addr, 0xCAFE))
	v, err := d.ReadWord(0, addr)
	test.ExpectSuccess(t, err)
	test.Equate(t, v, uint32(0xCAFE))
}

func TestDispatchDefaultSlotIsUnmapped(t *testing.T) {
	d := memdispatch.NewDispatch(memdispatch.UnmappedHandler{})
	_, err := d.ReadWord(0, uint32(7)<<26)
	test.ExpectFailure(t, err)
}

func TestDispatchTablesAreIndependent(t *testing.T) {
	d := memdispatch.NewDispatch(memdispatch.UnmappedHandler{})
	p := &fakeWordPeripheral{}
	d.Bind(1, 3, memdispatch.WordOnly(p))

	addr := uint32(3) << 26
	_, err := d.ReadWord(0, addr)
	test.ExpectFailure(t, err)

	test.ExpectSuccess(t, d.WriteWord(1, addr, 7))
}
