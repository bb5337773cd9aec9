// Package scanner runs the unsubscribe pipeline: fetch messages, extract
// candidate links, group them by service, visit one representative link per
// service, and accumulate the run report.
package scanner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tracyhatemice/gounsub/internal/config"
	"github.com/tracyhatemice/gounsub/internal/dispatch"
	"github.com/tracyhatemice/gounsub/internal/extract"
	"github.com/tracyhatemice/gounsub/internal/receiver"
	"github.com/tracyhatemice/gounsub/internal/registry"
	"github.com/tracyhatemice/gounsub/internal/report"
	"github.com/tracyhatemice/gounsub/internal/seen"
)

// Scanner ties the pipeline stages together for one run.
type Scanner struct {
	cfg        *config.Config
	receiver   receiver.Receiver
	extractor  *extract.Extractor
	registry   *registry.Registry
	dispatcher *dispatch.Dispatcher
	tracker    *seen.Tracker // nil disables cross-run skipping
	logger     *slog.Logger

	messagesScanned int
	linksFound      int
}

// New creates a Scanner for the given collaborators.
func New(
	cfg *config.Config,
	recv receiver.Receiver,
	ext *extract.Extractor,
	reg *registry.Registry,
	disp *dispatch.Dispatcher,
	tracker *seen.Tracker,
	logger *slog.Logger,
) *Scanner {
	return &Scanner{
		cfg:        cfg,
		receiver:   recv,
		extractor:  ext,
		registry:   reg,
		dispatcher: disp,
		tracker:    tracker,
		logger:     logger,
	}
}

// Run executes the full pipeline and returns the finished report. The only
// fatal error is a mailbox fetch failure; everything downstream degrades to
// per-item outcomes.
func (s *Scanner) Run(ctx context.Context) (*report.RunReport, error) {
	if err := s.Scan(ctx); err != nil {
		return nil, err
	}
	return s.Unsubscribe(ctx), nil
}

// Scan fetches all messages and registers their candidate links. All
// registration completes before any dispatch begins: first-seen order and
// email counts depend on seeing the full message set.
func (s *Scanner) Scan(ctx context.Context) error {
	emails, err := s.receiver.Fetch(s.cfg.Account.GetProcessDays())
	if err != nil {
		return fmt.Errorf("fetch mailbox: %w", err)
	}

	for _, msg := range emails {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.messagesScanned++

		candidates := s.extractor.Extract(msg)
		s.linksFound += len(candidates)

		for _, c := range candidates {
			if err := s.registry.Register(c); err != nil {
				s.logger.Debug("dropped candidate", "msg_id", c.MessageID, "error", err)
			}
		}
	}

	s.logger.Info("scan complete",
		"messages", s.messagesScanned,
		"links", s.linksFound,
		"services", s.registry.Len(),
		"already_handled", s.registry.Skipped(),
	)
	return nil
}

// Entries returns the registered services in first-seen order.
func (s *Scanner) Entries() []*registry.Entry {
	return s.registry.Representatives()
}

// Unsubscribe visits each registered service once and returns the finished
// report. Successfully unsubscribed domains are persisted so later runs
// skip them.
func (s *Scanner) Unsubscribe(ctx context.Context) *report.RunReport {
	entries := s.registry.Representatives()
	if limit := s.cfg.Dispatch.MaxServices; limit > 0 && len(entries) > limit {
		s.logger.Info("capping dispatched services", "limit", limit, "found", len(entries))
		entries = entries[:limit]
	}

	outcomes := s.dispatcher.DispatchAll(ctx, entries)

	acc := report.NewAccumulator()
	for i, e := range entries {
		acc.Record(e, outcomes[i])
		if outcomes[i].Kind == dispatch.Success && s.tracker != nil {
			if err := s.tracker.Mark(e.Domain); err != nil {
				s.logger.Error("persist domain failed", "domain", e.Domain, "error", err)
			}
		}
	}

	rep := acc.Finalize(s.linksFound)
	s.logger.Info("run complete",
		"services", rep.TotalServices,
		"success", rep.SuccessCount,
		"failed", rep.FailureCount,
		"errors", rep.ErrorCount,
	)
	return rep
}
