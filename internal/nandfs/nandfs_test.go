package nandfs_test

import (
	"encoding/binary"
	"os"
	"testing"

	"github.com/nspiresim/firebirdcore/internal/nand"
	"github.com/nspiresim/firebirdcore/internal/nandfs"
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

func writePage(t *testing.T, chip *nand.Chip, row uint32, page []byte) {
	t.Helper()
	test.ExpectSuccess(t, chip.EraseBlock(row))
	test.ExpectSuccess(t, chip.ProgramRaw(row, 0, page))
}

func TestParseUnrecognisedImageDowngrades(t *testing.T) {
	path := makeSmallImage(t)
	chip, err := nand.Open(path)
	test.ExpectSuccess(t, err)
	defer chip.Close()

	_, err = nandfs.Parse(chip, nand.PartitionRange{StartRow: 0, EndRow: chip.Metrics.NumPages})
	test.ExpectFailure(t, err)
}

func TestParseMinimalFilesystem(t *testing.T) {
	path := makeSmallImage(t)
	chip, err := nand.Open(path)
	test.ExpectSuccess(t, err)
	defer chip.Close()

	ppb := chip.Metrics.PagesPerBlock()

	// block 0: MAST anchor, pointing at META copies in blocks 1 and 2.
	mast := make([]byte, chip.Metrics.PageSize)
	copy(mast[0:4], "MAST")
	binary.LittleEndian.PutUint32(mast[4:8], 512)
	binary.LittleEndian.PutUint32(mast[8:12], 4)
	binary.LittleEndian.PutUint32(mast[12:16], 1)
	binary.LittleEndian.PutUint32(mast[16:20], 2)
	writePage(t, chip, 0, mast)

	// block 1: META, sequence 2 (wins over block 2's sequence 1).
	meta1 := make([]byte, chip.Metrics.PageSize)
	copy(meta1[0:4], "META")
	binary.LittleEndian.PutUint32(meta1[4:8], 2)
	writePage(t, chip, ppb, meta1)

	meta2 := make([]byte, chip.Metrics.PageSize)
	copy(meta2[0:4], "META")
	binary.LittleEndian.PutUint32(meta2[4:8], 1)
	writePage(t, chip, 2*ppb, meta2)

	// block 3: a single INOD block containing a root dir and one file.
	inodePage := make([]byte, chip.Metrics.PageSize)
	copy(inodePage[0:4], "INOD")
	binary.LittleEndian.PutUint32(inodePage[4:8], 1)  // sequence
	binary.LittleEndian.PutUint32(inodePage[8:12], 1) // inode num
	binary.LittleEndian.PutUint32(inodePage[12:16], 0) // parent
	inodePage[16] = 1 // kind: dir
	// name: UTF-16LE, with a 2-byte continuation header after the first 14 bytes.
	for i, u := range []uint16{'d', 'o', 'c', 'u', 'm', 'e', 'n', 0, 't', 's'} {
		binary.LittleEndian.PutUint16(inodePage[0x20+2*i:], u)
	}
	writePage(t, chip, 3*ppb, inodePage)

	fs, err := nandfs.Parse(chip, nand.PartitionRange{StartRow: 0, EndRow: chip.Metrics.NumPages})
	test.ExpectSuccess(t, err)

	n, err := fs.Lookup("/documents")
	test.ExpectSuccess(t, err)
	test.Equate(t, n.InodeNum, uint32(1))
	test.Equate(t, n.Kind, nandfs.KindDir)
}
