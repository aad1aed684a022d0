package debugger_test

import (
	"os"
	"strings"
	"testing"

	"github.com/nspiresim/firebirdcore/internal/config"
	"github.com/nspiresim/firebirdcore/internal/cpu"
	"github.com/nspiresim/firebirdcore/internal/debugger"
	"github.com/nspiresim/firebirdcore/internal/loghook"
	"github.com/nspiresim/firebirdcore/internal/soc"
	"github.com/nspiresim/firebirdcore/internal/test"
)

// fakeEngine is a minimal cpu.Engine stand-in: it has no decoder and just
// tracks a register file and PC, enough to exercise the console commands
// that read/write CPU state without needing a real ARM interpreter.
type fakeEngine struct {
	regs [16]uint32
}

func (f *fakeEngine) Run(budget uint64) (uint64, error) { f.regs[15] += 4; return 1, nil }
func (f *fakeEngine) Reset(warm bool)                   { f.regs = [16]uint32{} }
func (f *fakeEngine) Registers() []uint32               { return f.regs[:] }
func (f *fakeEngine) SetRegister(idx int, v uint32)     { f.regs[idx] = v }
func (f *fakeEngine) PC() uint32                        { return f.regs[15] }

func makeFlashImage(t *testing.T) string {
	t.Helper()
	f, err := os.CreateTemp("", "flash-*.bin")
	test.ExpectSuccess(t, err)
	buf := make([]byte, 33*1024*1024)
	for i := range buf {
		buf[i] = 0xFF
	}
	_, err = f.Write(buf)
	test.ExpectSuccess(t, err)
	test.ExpectSuccess(t, f.Close())
	t.Cleanup(func() { os.Remove(f.Name()) })
	return f.Name()
}

func newDebugger(t *testing.T) (*debugger.Debugger, *soc.Soc, *fakeEngine) {
	t.Helper()
	boot1 := make([]byte, 16)
	s, err := soc.NewClassicSoc(config.Config{}, boot1, makeFlashImage(t))
	test.ExpectSuccess(t, err)
	engine := &fakeEngine{}
	loop := cpu.NewLoop(engine, s.Ctx.Scheduler, s.Ctx)
	hook := loghook.New(s.Ctx, s.Memory(), config.Config{LogHook: true})
	return debugger.New(s, engine, loop, nil, hook), s, engine
}

func TestPortReadWriteRoundTrips(t *testing.T) {
	d, _, _ := newDebugger(t)

	out, err := d.Dispatch("pw 0x10000100 0xDEADBEEF")
	test.ExpectSuccess(t, err)
	test.Equate(t, strings.Contains(out, "0xdeadbeef"), true)

	out, err = d.Dispatch("pr 0x10000100")
	test.ExpectSuccess(t, err)
	test.Equate(t, strings.Contains(out, "0xdeadbeef"), true)
}

func TestBreakpointAddRemove(t *testing.T) {
	d, _, _ := newDebugger(t)

	out, err := d.Dispatch("k 0x1000")
	test.ExpectSuccess(t, err)
	test.Equate(t, strings.Contains(out, "added"), true)
	test.Equate(t, d.ShouldBreak(0x1000), true)

	out, err = d.Dispatch("k 0x1000")
	test.ExpectSuccess(t, err)
	test.Equate(t, strings.Contains(out, "removed"), true)
	test.Equate(t, d.ShouldBreak(0x1000), false)
}

func TestBreakpointFlags(t *testing.T) {
	d, _, _ := newDebugger(t)

	_, err := d.Dispatch("k 0x2000 +r +w")
	test.ExpectSuccess(t, err)
	test.Equate(t, d.ShouldBreak(0x2000), false)

	bps := d.Breakpoints()
	test.Equate(t, len(bps), 1)
	test.Equate(t, bps[0].R, true)
	test.Equate(t, bps[0].W, true)
	test.Equate(t, bps[0].X, false)
}

func TestRegisterSetAndStep(t *testing.T) {
	d, _, engine := newDebugger(t)

	_, err := d.Dispatch("rs 0 0x12345678")
	test.ExpectSuccess(t, err)
	test.Equate(t, engine.Registers()[0], uint32(0x12345678))

	_, err = d.Dispatch("s")
	test.ExpectSuccess(t, err)
	test.Equate(t, engine.PC(), uint32(4))
}

func TestSearchFindsMaskedPattern(t *testing.T) {
	d, s, _ := newDebugger(t)
	test.ExpectSuccess(t, s.Dispatch.WriteWord(0, 0x10000000, 0x11223344))

	out, err := d.Dispatch("ss 0x10000000 16 44 ?? 22 11")
	test.ExpectSuccess(t, err)
	test.Equate(t, strings.Contains(out, "0x10000000"), true)
}

func TestUnknownCommandIsAnError(t *testing.T) {
	d, _, _ := newDebugger(t)
	_, err := d.Dispatch("bogus")
	test.ExpectFailure(t, err)
}

func TestStopReturnsErrStop(t *testing.T) {
	d, _, _ := newDebugger(t)
	_, err := d.Dispatch("stop")
	test.Equate(t, err, debugger.ErrStop)
}

func TestUSBLinkConnectToggles(t *testing.T) {
	d, s, _ := newDebugger(t)
	test.Equate(t, s.USBLink.Attached(), false)

	_, err := d.Dispatch("ln c")
	test.ExpectSuccess(t, err)
	test.Equate(t, s.USBLink.Attached(), true)
}

func TestNlogStatusReflectsConfig(t *testing.T) {
	d, _, _ := newDebugger(t)
	out, err := d.Dispatch("nlog status")
	test.ExpectSuccess(t, err)
	test.Equate(t, strings.Contains(out, "enabled"), true)
}

func TestDisassembleIsHonestStub(t *testing.T) {
	d, _, _ := newDebugger(t)
	_, err := d.Dispatch("u")
	test.ExpectFailure(t, err)
}
