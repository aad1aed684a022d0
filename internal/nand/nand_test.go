package nand_test

import (
	"os"
	"testing"

	"github.com/nspiresim/firebirdcore/internal/nand"
	"github.com/nspiresim/firebirdcore/internal/test"
)

func makeSmallImage(t *testing.T) string {
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

func TestEraseProgramReadRoundTrip(t *testing.T) {
	path := makeSmallImage(t)
	chip, err := nand.Open(path)
	test.ExpectSuccess(t, err)
	defer chip.Close()

	test.ExpectSuccess(t, chip.EraseBlock(0))

	data := make([]byte, chip.Metrics.PageSize)
	for i := range data {
		data[i] = 0xAA
	}
	test.ExpectSuccess(t, chip.ProgramRaw(0, 0, data))

	got := chip.ReadRaw(0, 0, chip.Metrics.PageSize)
	test.Equate(t, got[0], byte(0xAA))
	test.Equate(t, chip.IsDirty(0), true)
}

func TestProgramWhileNotWritableIsFatal(t *testing.T) {
	path := makeSmallImage(t)
	chip, err := nand.Open(path)
	test.ExpectSuccess(t, err)
	defer chip.Close()

	chip.Writable = false
	err = chip.ProgramRaw(0, 0, []byte{0x00})
	test.ExpectFailure(t, err)
}

func TestECCDeterministic(t *testing.T) {
	data := make([]byte, 512)
	for i := range data {
		data[i] = byte(i)
	}
	e1 := nand.ComputeECC(data)
	e2 := nand.ComputeECC(data)
	test.Equate(t, e1, e2)
}

func TestParallelReadIDCommand(t *testing.T) {
	path := makeSmallImage(t)
	chip, err := nand.Open(path)
	test.ExpectSuccess(t, err)
	defer chip.Close()

	ctrl := nand.NewParallelController(chip)
	ctrl.Command(nand.CmdReadID)
	manuf := ctrl.ReadByte()
	test.Equate(t, manuf, chip.Metrics.ManufacturerID)
}

func TestSPIJedecID(t *testing.T) {
	path := makeSmallImage(t)
	chip, err := nand.Open(path)
	test.ExpectSuccess(t, err)
	defer chip.Close()

	spi := nand.NewSPIController(chip)
	spi.BeginTransaction()
	spi.Byte(nand.SPICmdJEDECID)
	manuf := spi.Byte(0)
	test.Equate(t, manuf, chip.Metrics.ManufacturerID)
}

func TestClassicPartitionsFilesystemReachesEnd(t *testing.T) {
	path := makeSmallImage(t)
	chip, err := nand.Open(path)
	test.ExpectSuccess(t, err)
	defer chip.Close()

	p := nand.ClassicPartitions(chip)
	test.Equate(t, p.Filesystem.EndRow, chip.Metrics.NumPages)
}
