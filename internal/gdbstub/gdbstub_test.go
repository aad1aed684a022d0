package gdbstub_test

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/nspiresim/firebirdcore/internal/config"
	"github.com/nspiresim/firebirdcore/internal/cpu"
	"github.com/nspiresim/firebirdcore/internal/gdbstub"
	"github.com/nspiresim/firebirdcore/internal/soc"
	"github.com/nspiresim/firebirdcore/internal/test"
)

type fakeEngine struct {
	regs [15]uint32
	pc   uint32
}

func (f *fakeEngine) Run(budget uint64) (uint64, error) { f.pc += 4; return 1, nil }
func (f *fakeEngine) Reset(warm bool)                   {}
func (f *fakeEngine) Registers() []uint32               { return f.regs[:] }
func (f *fakeEngine) SetRegister(idx int, v uint32) {
	if idx == 15 {
		f.pc = v
		return
	}
	f.regs[idx] = v
}
func (f *fakeEngine) PC() uint32 { return f.pc }

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

func newStub(t *testing.T) (*gdbstub.Stub, net.Conn) {
	t.Helper()
	boot1 := make([]byte, 16)
	s, err := soc.NewClassicSoc(config.Config{}, boot1, makeFlashImage(t))
	test.ExpectSuccess(t, err)

	engine := &fakeEngine{}
	loop := cpu.NewLoop(engine, s.Ctx.Scheduler, s.Ctx)

	stub, err := gdbstub.New(s, engine, loop, 0)
	test.ExpectSuccess(t, err)
	t.Cleanup(func() { stub.Close() })

	addr := stub.Addr().(*net.TCPAddr)
	client, err := net.Dial("tcp", addr.String())
	test.ExpectSuccess(t, err)
	t.Cleanup(func() { client.Close() })

	// A couple of polls give the TCP handshake time to land before the
	// stub tries to Accept it.
	for i := 0; i < 5; i++ {
		test.ExpectSuccess(t, stub.Poll())
		time.Sleep(10 * time.Millisecond)
	}

	return stub, client
}

func sendPacket(t *testing.T, conn net.Conn, body string) {
	t.Helper()
	sum := 0
	for i := 0; i < len(body); i++ {
		sum += int(body[i])
	}
	_, err := fmt.Fprintf(conn, "$%s#%02x", body, sum&0xFF)
	test.ExpectSuccess(t, err)
}

func readReply(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	for {
		b, err := r.ReadByte()
		test.ExpectSuccess(t, err)
		if b == '$' {
			break
		}
	}
	var body strings.Builder
	for {
		b, err := r.ReadByte()
		test.ExpectSuccess(t, err)
		if b == '#' {
			break
		}
		body.WriteByte(b)
	}
	r.ReadByte()
	r.ReadByte()
	return body.String()
}

func pollUntilReplied(t *testing.T, stub *gdbstub.Stub) {
	t.Helper()
	for i := 0; i < 20; i++ {
		test.ExpectSuccess(t, stub.Poll())
		time.Sleep(5 * time.Millisecond)
	}
}

func TestQuerySupportedAdvertisesPacketSize(t *testing.T) {
	stub, client := newStub(t)
	r := bufio.NewReader(client)

	sendPacket(t, client, "qSupported")
	pollUntilReplied(t, stub)

	reply := readReply(t, r)
	test.Equate(t, strings.Contains(reply, "PacketSize"), true)
	test.Equate(t, strings.Contains(reply, "qXfer:memory-map:read+"), true)
}

func TestMemoryWriteReadRoundTrip(t *testing.T) {
	stub, client := newStub(t)
	r := bufio.NewReader(client)

	sendPacket(t, client, "M10000000,4:deadbeef")
	pollUntilReplied(t, stub)
	reply := readReply(t, r)
	test.Equate(t, reply, "OK")

	sendPacket(t, client, "m10000000,4")
	pollUntilReplied(t, stub)
	reply = readReply(t, r)
	test.Equate(t, reply, "deadbeef")
}

func TestBreakpointInsertRemove(t *testing.T) {
	stub, client := newStub(t)
	r := bufio.NewReader(client)

	sendPacket(t, client, "Z0,1000,4")
	pollUntilReplied(t, stub)
	test.Equate(t, readReply(t, r), "OK")
	test.Equate(t, stub.ShouldBreak(0x1000), true)

	sendPacket(t, client, "z0,1000,4")
	pollUntilReplied(t, stub)
	test.Equate(t, readReply(t, r), "OK")
	test.Equate(t, stub.ShouldBreak(0x1000), false)
}

func TestMemoryMapXferIncludesRegions(t *testing.T) {
	stub, client := newStub(t)
	r := bufio.NewReader(client)

	sendPacket(t, client, "qXfer:memory-map:read::0,1000")
	pollUntilReplied(t, stub)
	reply := readReply(t, r)
	test.Equate(t, strings.Contains(reply, "boot_rom"), true)
	test.Equate(t, strings.Contains(reply, "sdram"), true)
}
