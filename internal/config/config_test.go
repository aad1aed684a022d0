package config_test

import (
	"os"
	"testing"

	"github.com/nspiresim/firebirdcore/internal/config"
	"github.com/nspiresim/firebirdcore/internal/test"
)

func TestLoadDefaultsDisabled(t *testing.T) {
	os.Unsetenv("FIREBIRD_MMIO_TRACE")
	os.Unsetenv("FIREBIRD_TRACE_IRQ")

	c := config.Load()
	test.Equate(t, c.MMIOTrace, false)
	test.Equate(t, c.TraceIRQ, false)
}

func TestLoadEnabled(t *testing.T) {
	os.Setenv("FIREBIRD_TRACE_VIC", "1")
	defer os.Unsetenv("FIREBIRD_TRACE_VIC")

	c := config.Load()
	test.Equate(t, c.TraceVIC, true)
}

func TestEmptyIsDisabled(t *testing.T) {
	os.Setenv("FIREBIRD_NSPIRE_LOG_HOOK", "")
	defer os.Unsetenv("FIREBIRD_NSPIRE_LOG_HOOK")

	c := config.Load()
	test.Equate(t, c.LogHook, false)
}
