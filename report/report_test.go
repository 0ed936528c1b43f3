package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/signalsfoundry/primemover/core"
	"github.com/signalsfoundry/primemover/stats"
)

func testSnapshot() stats.Snapshot {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return stats.Snapshot{
		Spectrum:    map[string]uint64{"server.arrive": 3, "server.depart": 2},
		TotalEvents: 5,
		Started:     start,
		Ended:       start.Add(2 * time.Second),
	}
}

func TestJSONRoundTrips(t *testing.T) {
	r := New("mm1", core.Zero, core.Time(1000), testSnapshot())

	var buf bytes.Buffer
	if err := r.JSON(&buf); err != nil {
		t.Fatalf("JSON: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for _, key := range []string{"name", "startTime", "endTime", "duration", "totalEvents", "spectrum"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("decoded JSON missing key %q: %v", key, decoded)
		}
	}
	if decoded["name"] != "mm1" {
		t.Fatalf("name = %v, want mm1", decoded["name"])
	}
	if decoded["totalEvents"].(float64) != 5 {
		t.Fatalf("totalEvents = %v, want 5", decoded["totalEvents"])
	}
}

func TestJSONSpectrumSortedByCountDescending(t *testing.T) {
	r := New("mm1", core.Zero, core.Time(1000), testSnapshot())
	if len(r.Spectrum) != 2 {
		t.Fatalf("Spectrum = %v, want exactly two entries", r.Spectrum)
	}
	if r.Spectrum[0].Signature != "server.arrive" || r.Spectrum[0].Count != 3 {
		t.Fatalf("Spectrum[0] = %+v, want server.arrive:3 (highest count first)", r.Spectrum[0])
	}
	if r.Spectrum[1].Signature != "server.depart" || r.Spectrum[1].Count != 2 {
		t.Fatalf("Spectrum[1] = %+v, want server.depart:2", r.Spectrum[1])
	}
}

func TestTextIncludesSpectrumRows(t *testing.T) {
	r := New("mm1", core.Zero, core.Time(1000), testSnapshot())

	var buf bytes.Buffer
	if err := r.Text(&buf); err != nil {
		t.Fatalf("Text: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"mm1", "server.arrive", "server.depart", "total events"} {
		if !strings.Contains(out, want) {
			t.Fatalf("Text output missing %q:\n%s", want, out)
		}
	}
}

func TestNewAssignsUniqueRunIDs(t *testing.T) {
	a := New("mm1", core.Zero, core.Time(0), testSnapshot())
	b := New("mm1", core.Zero, core.Time(0), testSnapshot())
	if a.RunID == b.RunID {
		t.Fatalf("expected distinct run IDs, got %q twice", a.RunID)
	}
}
