// Package report renders a finished run's stats.Snapshot into the two
// formats a modeler actually wants: a machine-readable JSON document and a
// tabwriter-aligned text summary for the terminal.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/google/uuid"

	"github.com/signalsfoundry/primemover/core"
	"github.com/signalsfoundry/primemover/stats"
)

// SpectrumEntry is one event signature's dispatch count. Report.Spectrum
// holds these pre-sorted by Count descending, rather than an unordered
// map, so both JSON and Text render the spectrum in the same rank order.
type SpectrumEntry struct {
	Signature string `json:"signature"`
	Count     uint64 `json:"count"`
}

// Report is a completed run's summary, keyed entirely to simulated time -
// StartTime and EndTime are points on the controller's own clock, not
// wall-clock timestamps; Duration is the simulated span between them. A
// run's wall-clock cost is what stats.Snapshot's Started/Ended answer, and
// belongs to observability tooling, not this report.
type Report struct {
	RunID       string          `json:"runId"`
	Name        string          `json:"name"`
	StartTime   core.Time       `json:"startTime"`
	EndTime     core.Time       `json:"endTime"`
	Duration    core.Duration   `json:"duration"`
	TotalEvents uint64          `json:"totalEvents"`
	Spectrum    []SpectrumEntry `json:"spectrum"`
}

// New builds a Report from a run's name, the simulated time its controller
// started and ended at, and a stats.Collector snapshot taken once the run
// completed.
func New(name string, startTime, endTime core.Time, snap stats.Snapshot) Report {
	spectrum := make([]SpectrumEntry, 0, len(snap.Spectrum))
	for sig, n := range snap.Spectrum {
		spectrum = append(spectrum, SpectrumEntry{Signature: sig, Count: n})
	}
	sort.Slice(spectrum, func(i, j int) bool {
		if spectrum[i].Count != spectrum[j].Count {
			return spectrum[i].Count > spectrum[j].Count
		}
		return spectrum[i].Signature < spectrum[j].Signature
	})

	return Report{
		RunID:       uuid.NewString(),
		Name:        name,
		StartTime:   startTime,
		EndTime:     endTime,
		Duration:    endTime.Sub(startTime),
		TotalEvents: snap.TotalEvents,
		Spectrum:    spectrum,
	}
}

// JSON writes the report as indented JSON to w.
func (r Report) JSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Text writes a human-readable, column-aligned summary to w: run metadata
// followed by one row per event signature in the dispatch spectrum, ranked
// by count descending.
func (r Report) Text(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)

	fmt.Fprintf(tw, "run\t%s\n", r.RunID)
	fmt.Fprintf(tw, "name\t%s\n", r.Name)
	fmt.Fprintf(tw, "start time\t%s\n", r.StartTime)
	fmt.Fprintf(tw, "end time\t%s\n", r.EndTime)
	fmt.Fprintf(tw, "duration\t%s\n", r.Duration)
	fmt.Fprintf(tw, "total events\t%d\n", r.TotalEvents)
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "signature\tcount\n")
	for _, e := range r.Spectrum {
		fmt.Fprintf(tw, "%s\t%d\n", e.Signature, e.Count)
	}

	return tw.Flush()
}
