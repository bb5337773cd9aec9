package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validConfig = `
log_level: debug
account:
  protocol: imap
  host: imap.example.com
  port: 993
  username: me@example.com
  password: app-password
  use_tls: true
scan:
  keywords: [unsubscribe, abmelden]
dispatch:
  timeout_seconds: 5
  concurrency: 4
  requests_per_second: 2
  max_services: 50
output:
  links_file: links.txt
  csv_file: services.csv
`

func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
	if cfg.Account.Protocol != "imap" || cfg.Account.Port != 993 {
		t.Errorf("account = %+v", cfg.Account)
	}
	if len(cfg.Scan.Keywords) != 2 {
		t.Errorf("keywords = %v", cfg.Scan.Keywords)
	}
	if cfg.Dispatch.Timeout() != 5*time.Second {
		t.Errorf("timeout = %v", cfg.Dispatch.Timeout())
	}
	if cfg.Dispatch.GetConcurrency() != 4 {
		t.Errorf("concurrency = %d", cfg.Dispatch.GetConcurrency())
	}
	if cfg.Output.GetCSVFile() != "services.csv" {
		t.Errorf("csv file = %q", cfg.Output.GetCSVFile())
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
account:
  protocol: pop3
  host: pop.example.com
  port: 995
  username: me@example.com
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("default log level = %q, want info", cfg.LogLevel)
	}
	if cfg.Account.GetProcessDays() != 7 {
		t.Errorf("default process days = %d, want 7", cfg.Account.GetProcessDays())
	}
	if cfg.Account.GetIMAPFolder() != "INBOX" {
		t.Errorf("default folder = %q, want INBOX", cfg.Account.GetIMAPFolder())
	}
	if cfg.Dispatch.Timeout() != 10*time.Second {
		t.Errorf("default timeout = %v, want 10s", cfg.Dispatch.Timeout())
	}
	if cfg.Dispatch.GetConcurrency() != 1 {
		t.Errorf("default concurrency = %d, want 1", cfg.Dispatch.GetConcurrency())
	}
	if cfg.Dispatch.GetRequestsPerSecond() != 1 {
		t.Errorf("default rps = %v, want 1", cfg.Dispatch.GetRequestsPerSecond())
	}
	if cfg.Output.GetLinksFile() != "unsubscribe_links.txt" {
		t.Errorf("default links file = %q", cfg.Output.GetLinksFile())
	}
	if cfg.Output.GetCSVFile() != "unsubscribe_services.csv" {
		t.Errorf("default csv file = %q", cfg.Output.GetCSVFile())
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "bad protocol",
			yaml:    "account: {protocol: exchange, host: h, port: 1, username: u}",
			wantErr: "protocol",
		},
		{
			name:    "missing host",
			yaml:    "account: {protocol: imap, port: 1, username: u}",
			wantErr: "host",
		},
		{
			name:    "missing port",
			yaml:    "account: {protocol: imap, host: h, username: u}",
			wantErr: "port",
		},
		{
			name:    "missing username",
			yaml:    "account: {protocol: imap, host: h, port: 1}",
			wantErr: "username",
		},
		{
			name: "negative max services",
			yaml: `
account: {protocol: imap, host: h, port: 1, username: u}
dispatch: {max_services: -1}
`,
			wantErr: "max_services",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			if err == nil {
				t.Fatal("Load succeeded, want validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load of missing file succeeded")
	}
}
