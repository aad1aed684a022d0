package logger_test

import (
	"testing"

	"github.com/nspiresim/firebirdcore/internal/logger"
	"github.com/nspiresim/firebirdcore/internal/test"
)

func TestLogger(t *testing.T) {
	logger.Clear()
	tw := &test.Writer{}

	logger.Write(tw)
	test.Equate(t, tw.Compare(""), true)

	logger.Log("test", "this is a test")
	logger.Write(tw)
	test.Equate(t, tw.Compare("test: this is a test\n"), true)

	tw.Clear()

	logger.Log("test2", "this is another test")
	logger.Write(tw)
	test.Equate(t, tw.Compare("test: this is a test\ntest2: this is another test\n"), true)

	tw.Clear()
	logger.Tail(tw, 100)
	test.Equate(t, tw.Compare("test: this is a test\ntest2: this is another test\n"), true)

	tw.Clear()
	logger.Tail(tw, 2)
	test.Equate(t, tw.Compare("test: this is a test\ntest2: this is another test\n"), true)

	tw.Clear()
	logger.Tail(tw, 1)
	test.Equate(t, tw.Compare("test2: this is another test\n"), true)

	tw.Clear()
	logger.Tail(tw, 0)
	test.Equate(t, tw.Compare(""), true)
}

func TestLoggerFormatting(t *testing.T) {
	logger.Clear()
	tw := &test.Writer{}

	logger.Log("nand", "unknown command: %#02x", 0x37)
	logger.Write(tw)
	test.Equate(t, tw.Compare("nand: unknown command: 0x37\n"), true)
}

func TestLoggerCapacity(t *testing.T) {
	logger.Clear()
	logger.SetCapacity(2)
	defer logger.SetCapacity(4096)

	logger.Log("a", "1")
	logger.Log("a", "2")
	logger.Log("a", "3")

	tw := &test.Writer{}
	logger.Write(tw)
	test.Equate(t, tw.Compare("a: 2\na: 3\n"), true)
}
