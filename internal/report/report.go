// Package report collects per-service unsubscribe results and writes the
// run's export files.
package report

import (
	"github.com/tracyhatemice/gounsub/internal/dispatch"
	"github.com/tracyhatemice/gounsub/internal/registry"
)

// ServiceRecord pairs a service entry with its visit outcome.
type ServiceRecord struct {
	Entry   *registry.Entry
	Outcome dispatch.Outcome
}

// RunReport is the immutable result of one run.
type RunReport struct {
	Entries         []ServiceRecord // first-seen-domain order
	TotalLinksFound int
	TotalServices   int
	SuccessCount    int
	FailureCount    int
	ErrorCount      int
}

// Accumulator gathers records during dispatch. Record preserves insertion
// order; Finalize is called once, after all dispatches complete.
type Accumulator struct {
	records []ServiceRecord
}

// NewAccumulator creates an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Record appends one service's result.
func (a *Accumulator) Record(entry *registry.Entry, outcome dispatch.Outcome) {
	a.records = append(a.records, ServiceRecord{Entry: entry, Outcome: outcome})
}

// Finalize tallies totals and returns the finished report. totalLinks is
// the number of candidate links found across all messages.
func (a *Accumulator) Finalize(totalLinks int) *RunReport {
	rep := &RunReport{
		Entries:         a.records,
		TotalLinksFound: totalLinks,
		TotalServices:   len(a.records),
	}
	for _, rec := range a.records {
		switch rec.Outcome.Kind {
		case dispatch.Success:
			rep.SuccessCount++
		case dispatch.HTTPFailure:
			rep.FailureCount++
		case dispatch.TransportError:
			rep.ErrorCount++
		}
	}
	return rep
}
