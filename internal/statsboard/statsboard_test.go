package statsboard_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/nspiresim/firebirdcore/internal/config"
	"github.com/nspiresim/firebirdcore/internal/soc"
	"github.com/nspiresim/firebirdcore/internal/statsboard"
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

// newBoardSoc builds a real Soc so handleStatus has live scheduler/intc/
// USBLink state to report, without going through Board.Start (which would
// require a real bound address for the test to reach reliably).
func newBoardSoc(t *testing.T) *soc.Soc {
	t.Helper()
	boot1 := make([]byte, 16)
	s, err := soc.NewClassicSoc(config.Config{}, boot1, makeFlashImage(t))
	test.ExpectSuccess(t, err)
	return s
}

func TestStatusReportsSocState(t *testing.T) {
	s := newBoardSoc(t)
	b := statsboard.New(s)
	b.NoteSpeed(1.5)
	b.NoteFrame()
	b.NoteFrame()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status.json", nil)
	b.ServeStatusForTest(rr, req)

	test.Equate(t, rr.Code, http.StatusOK)

	var got struct {
		Variant    string  `json:"variant"`
		SpeedRatio float64 `json:"speed_ratio"`
		Frames     uint64  `json:"frames"`
	}
	test.ExpectSuccess(t, json.NewDecoder(rr.Body).Decode(&got))
	test.Equate(t, got.Variant, "classic")
	test.Equate(t, got.Frames, uint64(2))
}
