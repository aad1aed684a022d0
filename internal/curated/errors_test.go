package curated_test

import (
	"testing"

	"github.com/nspiresim/firebirdcore/internal/curated"
	"github.com/nspiresim/firebirdcore/internal/test"
)

func TestErrorf(t *testing.T) {
	err := curated.Errorf(curated.BadReadByte, 0x1000)
	test.ExpectEquality(t, err.Error(), "bad read_byte: 0x00001000")
	test.ExpectEquality(t, curated.Head(err), curated.BadReadByte)
	test.ExpectEquality(t, curated.Is(err, curated.BadReadByte), true)
	test.ExpectEquality(t, curated.Is(err, curated.BadReadHalf), false)
}

func TestFatalf(t *testing.T) {
	err := curated.Fatalf(curated.NANDWriteProtected)
	test.ExpectEquality(t, curated.IsFatal(err), true)

	benign := curated.Errorf(curated.BadReadByte, 0)
	test.ExpectEquality(t, curated.IsFatal(benign), false)
}

func TestNesting(t *testing.T) {
	inner := curated.Errorf(curated.BadReadByte, 0x2000)
	outer := curated.Errorf("nand read failed: %v", inner)
	test.ExpectEquality(t, curated.Has(outer, curated.BadReadByte), true)
	test.ExpectEquality(t, curated.Has(outer, curated.BadWriteByte), false)
}

func TestDeduplication(t *testing.T) {
	// an error whose head and first value happen to render identically
	// should not repeat itself.
	inner := curated.Errorf("boom")
	outer := curated.Errorf("boom: %v", inner)
	test.ExpectEquality(t, outer.Error(), "boom")
}
