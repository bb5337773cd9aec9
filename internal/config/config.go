package config

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v4"
)

// Config is the top-level application configuration.
type Config struct {
	LogLevel string   `yaml:"log_level"`
	Account  Account  `yaml:"account"`
	Scan     Scan     `yaml:"scan"`
	Dispatch Dispatch `yaml:"dispatch"`
	Output   Output   `yaml:"output"`
}

// Account describes the mailbox to scan.
type Account struct {
	Protocol    string `yaml:"protocol"` // "pop3" or "imap"
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	UseTLS      bool   `yaml:"use_tls"`
	IMAPFolder  string `yaml:"imap_folder"`
	ProcessDays int    `yaml:"process_days"`
}

// Scan controls link extraction.
type Scan struct {
	// Keywords matched (case-insensitively) against anchor hrefs and
	// visible text. Empty means the built-in default set.
	Keywords []string `yaml:"keywords"`
}

// Dispatch controls how representative unsubscribe URLs are visited.
type Dispatch struct {
	TimeoutSeconds    int     `yaml:"timeout_seconds"`
	Concurrency       int     `yaml:"concurrency"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	MaxServices       int     `yaml:"max_services"` // 0 = unlimited
}

// Output names the report files written at the end of a run.
type Output struct {
	LinksFile string `yaml:"links_file"`
	CSVFile   string `yaml:"csv_file"`
}

// GetProcessDays returns the number of days to look back, defaulting to 7.
func (a *Account) GetProcessDays() int {
	if a.ProcessDays <= 0 {
		return 7
	}
	return a.ProcessDays
}

// GetIMAPFolder returns the IMAP folder name, defaulting to "INBOX".
func (a *Account) GetIMAPFolder() string {
	if a.IMAPFolder == "" {
		return "INBOX"
	}
	return a.IMAPFolder
}

// Timeout returns the per-request dispatch timeout, defaulting to 10s.
func (d *Dispatch) Timeout() time.Duration {
	if d.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// GetConcurrency returns the dispatch worker count, defaulting to 1.
func (d *Dispatch) GetConcurrency() int {
	if d.Concurrency <= 0 {
		return 1
	}
	return d.Concurrency
}

// GetRequestsPerSecond returns the dispatch pacing rate, defaulting to 1.
func (d *Dispatch) GetRequestsPerSecond() float64 {
	if d.RequestsPerSecond <= 0 {
		return 1
	}
	return d.RequestsPerSecond
}

// GetLinksFile returns the links output path, defaulting to
// "unsubscribe_links.txt".
func (o *Output) GetLinksFile() string {
	if o.LinksFile == "" {
		return "unsubscribe_links.txt"
	}
	return o.LinksFile
}

// GetCSVFile returns the CSV output path, defaulting to
// "unsubscribe_services.csv".
func (o *Output) GetCSVFile() string {
	if o.CSVFile == "" {
		return "unsubscribe_services.csv"
	}
	return o.CSVFile
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{
		LogLevel: "info",
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	a := c.Account
	if a.Protocol != "pop3" && a.Protocol != "imap" {
		return fmt.Errorf("account: protocol must be pop3 or imap")
	}
	if a.Host == "" {
		return fmt.Errorf("account: host is required")
	}
	if a.Port == 0 {
		return fmt.Errorf("account: port is required")
	}
	if a.Username == "" {
		return fmt.Errorf("account: username is required")
	}
	if c.Dispatch.MaxServices < 0 {
		return fmt.Errorf("dispatch: max_services must not be negative")
	}
	return nil
}
