package soc_test

import (
	"os"
	"testing"

	"github.com/nspiresim/firebirdcore/internal/config"
	"github.com/nspiresim/firebirdcore/internal/periph"
	"github.com/nspiresim/firebirdcore/internal/soc"
	"github.com/nspiresim/firebirdcore/internal/test"
)

func makeClassicFlashImage(t *testing.T) string {
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

func newClassic(t *testing.T) *soc.Soc {
	t.Helper()
	boot1 := make([]byte, 16)
	for i := range boot1 {
		boot1[i] = byte(i)
	}
	s, err := soc.NewClassicSoc(config.Config{}, boot1, makeClassicFlashImage(t))
	test.ExpectSuccess(t, err)
	return s
}

func TestClassicSocBootROMIsReadOnlyAndLoaded(t *testing.T) {
	s := newClassic(t)

	v, err := s.Dispatch.ReadByte(0, 0x00000000)
	test.ExpectSuccess(t, err)
	test.Equate(t, v, byte(0))

	v, err = s.Dispatch.ReadByte(0, 0x00000005)
	test.ExpectSuccess(t, err)
	test.Equate(t, v, byte(5))

	err = s.Dispatch.WriteByte(0, 0x00000000, 0xFF)
	test.ExpectFailure(t, err)
}

func TestClassicSocRAMIsWritable(t *testing.T) {
	s := newClassic(t)

	test.ExpectSuccess(t, s.Dispatch.WriteWord(0, 0x10000100, 0xDEADBEEF))
	v, err := s.Dispatch.ReadWord(0, 0x10000100)
	test.ExpectSuccess(t, err)
	test.Equate(t, v, uint32(0xDEADBEEF))
}

func TestClassicSocWatchdogReachableThroughAPB(t *testing.T) {
	s := newClassic(t)

	const watchdogBase = 0x90000000 // slot 36, sub-slot 0 (apbWatchdog)
	test.ExpectSuccess(t, s.Dispatch.WriteWord(0, watchdogBase+0x08, periph.WatchdogLockMagic))
	test.ExpectSuccess(t, s.Dispatch.WriteWord(0, watchdogBase+0x00, 0x1234))
	test.Equate(t, s.Watchdog.Load, uint32(0x1234))

	v, err := s.Dispatch.ReadWord(0, watchdogBase+0x00)
	test.ExpectSuccess(t, err)
	test.Equate(t, v, uint32(0x1234))
}

func TestClassicSocDMACopiesThroughSharedDispatch(t *testing.T) {
	s := newClassic(t)

	test.ExpectSuccess(t, s.Dispatch.WriteWord(0, 0x10000000, 0x01020304))
	s.DMA.Channels[0].Src = 0x10000000
	s.DMA.Channels[0].Dst = 0x10000200
	s.DMA.Channels[0].Count = 4
	s.DMA.WriteControl(0, periph.DMACtrlEnable)

	v, err := s.Dispatch.ReadWord(0, 0x10000200)
	test.ExpectSuccess(t, err)
	test.Equate(t, v, uint32(0x01020304))
}

func TestClassicSocFilesystemUnrecognisedOnBlankImage(t *testing.T) {
	s := newClassic(t)
	test.Equate(t, s.FS == nil, true)
}
