package seen

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Tracker remembers which service domains were already unsubscribed, so a
// rerun does not hit the same endpoint twice. Domains are persisted to a
// file and survive restarts.
type Tracker struct {
	mu      sync.Mutex
	domains map[string]struct{}
	file    string
}

// NewTracker loads (or creates) a tracker backed by filePath.
func NewTracker(filePath string) (*Tracker, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	t := &Tracker{
		domains: make(map[string]struct{}),
		file:    filePath,
	}

	f, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return nil, fmt.Errorf("open state file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			t.domains[line] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	return t, nil
}

// Domains returns a snapshot of all tracked domains.
func (t *Tracker) Domains() map[string]struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := make(map[string]struct{}, len(t.domains))
	for d := range t.domains {
		cp[d] = struct{}{}
	}
	return cp
}

// Mark adds a domain and persists it to disk. Safe for concurrent use;
// dispatch workers mark successes as they land.
func (t *Tracker) Mark(domain string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.domains[domain]; exists {
		return nil
	}
	t.domains[domain] = struct{}{}

	f, err := os.OpenFile(t.file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open state file for append: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, domain); err != nil {
		return fmt.Errorf("write domain: %w", err)
	}
	return nil
}

// Count returns the number of tracked domains.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.domains)
}
