package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/tracyhatemice/gounsub/internal/config"
	"github.com/tracyhatemice/gounsub/internal/dispatch"
	"github.com/tracyhatemice/gounsub/internal/extract"
	"github.com/tracyhatemice/gounsub/internal/receiver"
	"github.com/tracyhatemice/gounsub/internal/registry"
	"github.com/tracyhatemice/gounsub/internal/report"
	"github.com/tracyhatemice/gounsub/internal/scanner"
	"github.com/tracyhatemice/gounsub/internal/seen"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	dataDir := flag.String("data-dir", "data", "directory for persistent state (handled domains)")
	dryRun := flag.Bool("dry-run", false, "extract and group only; do not visit any unsubscribe link")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.LogLevel)
	logger.Info("gounsub starting",
		"protocol", cfg.Account.Protocol,
		"host", cfg.Account.Host,
		"process_days", cfg.Account.GetProcessDays(),
	)

	recv, err := newReceiver(cfg.Account, logger)
	if err != nil {
		logger.Error("failed to create receiver", "error", err)
		os.Exit(1)
	}
	defer recv.Close()

	tracker, err := seen.NewTracker(filepath.Join(*dataDir, "unsubscribed.domains"))
	if err != nil {
		logger.Error("failed to load state", "error", err)
		os.Exit(1)
	}
	logger.Info("loaded state", "handled_domains", tracker.Count())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ext := extract.New(cfg.Scan.Keywords)
	reg := registry.New(nil, tracker.Domains())
	disp := dispatch.New(
		cfg.Dispatch.Timeout(),
		cfg.Dispatch.GetConcurrency(),
		cfg.Dispatch.GetRequestsPerSecond(),
		logger,
	)

	sc := scanner.New(cfg, recv, ext, reg, disp, tracker, logger)

	if *dryRun {
		if err := sc.Scan(ctx); err != nil {
			logger.Error("scan failed", "error", err)
			os.Exit(1)
		}
		if err := writeLinksFile(cfg.Output.GetLinksFile(), sc.Entries()); err != nil {
			logger.Error("write links file failed", "error", err)
			os.Exit(1)
		}
		logger.Info("dry run complete", "links_file", cfg.Output.GetLinksFile())
		return
	}

	rep, err := sc.Run(ctx)
	if err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}

	// Export failures are logged but do not discard each other's output.
	if err := writeLinksFile(cfg.Output.GetLinksFile(), sc.Entries()); err != nil {
		logger.Error("write links file failed", "error", err)
	}
	if err := writeCSVFile(cfg.Output.GetCSVFile(), rep); err != nil {
		logger.Error("write csv file failed", "error", err)
	}

	logger.Info("gounsub finished",
		"links_file", cfg.Output.GetLinksFile(),
		"csv_file", cfg.Output.GetCSVFile(),
	)
}

func newReceiver(acct config.Account, logger *slog.Logger) (receiver.Receiver, error) {
	switch acct.Protocol {
	case "pop3":
		return receiver.NewPOP3(
			acct.Host, acct.Port,
			acct.Username, acct.Password,
			acct.UseTLS, logger,
		), nil
	case "imap":
		return receiver.NewIMAP(
			acct.Host, acct.Port,
			acct.Username, acct.Password,
			acct.UseTLS, acct.GetIMAPFolder(), logger,
		), nil
	default:
		return nil, fmt.Errorf("unsupported protocol: %s", acct.Protocol)
	}
}

func writeLinksFile(path string, entries []*registry.Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return report.WriteLinks(f, entries)
}

func writeCSVFile(path string, rep *report.RunReport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return report.WriteCSV(f, rep)
}

func setupLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
