package scenario

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dshills/assetbus/internal/event"
)

// Report summarizes one run.
type Report struct {
	Scenario     string              `json:"scenario"`
	Started      time.Time           `json:"started"`
	Duration     time.Duration       `json:"duration"`
	Steps        int                 `json:"steps"`
	Deliveries   []Delivery          `json:"deliveries"`
	Failures     []Failure           `json:"failures,omitempty"`
	Expectations []ExpectationResult `json:"expectations,omitempty"`
	Stats        event.Stats         `json:"stats"`
}

// Failure is a callback error or panic reported by the bus.
type Failure struct {
	Event  string `json:"event"`
	Scope  string `json:"scope"`
	Target string `json:"target"`
	Error  string `json:"error"`
	Panic  bool   `json:"panic,omitempty"`
}

// ExpectationResult is the outcome of one expectation.
type ExpectationResult struct {
	Expectation
	Got    int  `json:"got"`
	Passed bool `json:"passed"`
}

// String describes the result.
func (r ExpectationResult) String() string {
	desc := r.Listener
	if r.Event != "" {
		desc += " " + r.Event
	}
	if r.Target != "" {
		desc += " from " + r.Target
	}
	return fmt.Sprintf("%s: got %d, want %d", desc, r.Got, r.Count)
}

// Passed reports whether every expectation passed.
func (r *Report) Passed() bool {
	for _, e := range r.Expectations {
		if !e.Passed {
			return false
		}
	}
	return true
}

// WriteText writes the delivery log and summary as aligned columns.
func (r *Report) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "SEQ\tLISTENER\tEVENT\tSCOPE\tTARGET\tDEPTH\tSOURCE\n")
	for _, d := range r.Deliveries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%s\n", d.Seq, d.Listener, d.Event, d.Scope, d.Target, d.Depth, d.Source)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, f := range r.Failures {
		kind := "error"
		if f.Panic {
			kind = "panic"
		}
		fmt.Fprintf(w, "%s: %s at %s (target %s): %s\n", kind, f.Event, f.Scope, f.Target, f.Error)
	}
	for _, e := range r.Expectations {
		status := "ok"
		if !e.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(w, "%-4s %s\n", status, e)
	}

	_, err := fmt.Fprintf(w, "%s: %d steps, %d deliveries, %d failures in %s\n",
		r.Scenario, r.Steps, len(r.Deliveries), len(r.Failures), r.Duration.Round(time.Microsecond))
	return err
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
