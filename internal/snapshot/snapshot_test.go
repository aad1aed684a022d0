package snapshot_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nspiresim/firebirdcore/internal/config"
	"github.com/nspiresim/firebirdcore/internal/periph"
	"github.com/nspiresim/firebirdcore/internal/snapshot"
	"github.com/nspiresim/firebirdcore/internal/soc"
	"github.com/nspiresim/firebirdcore/internal/test"
)

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

func newClassic(t *testing.T) (*soc.Soc, string) {
	t.Helper()
	boot1 := make([]byte, 16)
	for i := range boot1 {
		boot1[i] = byte(i)
	}
	flashPath := makeFlashImage(t)
	s, err := soc.NewClassicSoc(config.Config{}, boot1, flashPath)
	test.ExpectSuccess(t, err)
	return s, flashPath
}

func TestSuspendResumeRoundTripsRegisterState(t *testing.T) {
	s, flashPath := newClassic(t)

	test.ExpectSuccess(t, s.Dispatch.WriteWord(0, 0x10000100, 0xDEADBEEF))

	const watchdogBase = 0x90000000
	test.ExpectSuccess(t, s.Dispatch.WriteWord(0, watchdogBase+0x08, periph.WatchdogLockMagic))
	test.ExpectSuccess(t, s.Dispatch.WriteWord(0, watchdogBase+0x00, 0x1234))

	s.Keypad.WriteRowSelect(1 << 3)
	s.Keypad.SetKey(3, 2, true)

	s.PMU.Inputs.BatterymV = 4200
	s.PMU.Inputs.BatteryPresent = true

	s.USBLink.Attach(true)

	snapPath := filepath.Join(t.TempDir(), "snap.bin")
	test.ExpectSuccess(t, snapshot.Suspend(s, "boot1.img", flashPath, snapPath))

	resumed, err := snapshot.Resume(snapPath, config.Config{})
	test.ExpectSuccess(t, err)

	v, err := resumed.Dispatch.ReadWord(0, 0x10000100)
	test.ExpectSuccess(t, err)
	test.Equate(t, v, uint32(0xDEADBEEF))

	test.Equate(t, resumed.Watchdog.Load, uint32(0x1234))
	test.Equate(t, resumed.Keypad.RowSelect(), uint32(1<<3))
	test.Equate(t, resumed.Keypad.Matrix()[3][2], true)
	test.Equate(t, resumed.PMU.Inputs.BatterymV, 4200)
	test.Equate(t, resumed.PMU.Inputs.BatteryPresent, true)
	test.Equate(t, resumed.USBLink.Attached(), true)
}

func TestResumeRejectsBadSignature(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.bin")
	test.ExpectSuccess(t, os.WriteFile(path, []byte("not a snapshot"), 0o600))

	_, err := snapshot.Resume(path, config.Config{})
	test.ExpectFailure(t, err)
}
