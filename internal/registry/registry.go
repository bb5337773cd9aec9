// Package registry groups candidate unsubscribe links by the registrable
// domain of the sending service, so one action per service is enough no
// matter how many subdomains it mails from.
package registry

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/tracyhatemice/gounsub/internal/extract"
)

// DomainResolver maps a hostname to its registrable (public-suffix-aware)
// base domain. Injected so grouping stays deterministic in tests.
type DomainResolver func(host string) (string, error)

// PublicSuffixResolver resolves against the embedded public suffix list,
// e.g. news.example.co.uk -> example.co.uk.
func PublicSuffixResolver(host string) (string, error) {
	return publicsuffix.EffectiveTLDPlusOne(host)
}

// Entry is the accumulated state for one service.
type Entry struct {
	Domain            string
	Company           string
	RepresentativeURL string   // first URL seen for the domain; never replaced
	EmailCount        int      // distinct source messages, not links
	AllURLs           []string // every distinct URL seen, in order

	urlSet map[string]struct{}
	msgSet map[string]struct{}
}

// Registry deduplicates candidates into one Entry per registrable domain.
// It is mutated only during the sequential registration phase and needs no
// locking.
type Registry struct {
	resolve DomainResolver
	skip    map[string]struct{}
	entries map[string]*Entry
	order   []string
	skipped int
}

// New creates a Registry. resolve may be nil, selecting
// PublicSuffixResolver. Domains present in skip are dropped at registration
// (already handled in a previous run).
func New(resolve DomainResolver, skip map[string]struct{}) *Registry {
	if resolve == nil {
		resolve = PublicSuffixResolver
	}
	return &Registry{
		resolve: resolve,
		skip:    skip,
		entries: make(map[string]*Entry),
	}
}

// Register folds one candidate into the registry. Candidates with
// unparseable URLs are dropped with an error; other candidates are
// unaffected. Registering the same message+domain pair twice is idempotent
// for the email count.
func (r *Registry) Register(c extract.Candidate) error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("parse url %q: %w", c.URL, err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("url %q has no host", c.URL)
	}

	domain, company := r.identify(host)

	if _, skip := r.skip[domain]; skip {
		r.skipped++
		return nil
	}

	e, ok := r.entries[domain]
	if !ok {
		e = &Entry{
			Domain:            domain,
			Company:           company,
			RepresentativeURL: c.URL,
			EmailCount:        1,
			AllURLs:           []string{c.URL},
			urlSet:            map[string]struct{}{c.URL: {}},
			msgSet:            map[string]struct{}{c.MessageID: {}},
		}
		r.entries[domain] = e
		r.order = append(r.order, domain)
		return nil
	}

	if _, counted := e.msgSet[c.MessageID]; !counted {
		e.msgSet[c.MessageID] = struct{}{}
		e.EmailCount++
	}
	if _, dup := e.urlSet[c.URL]; !dup {
		e.urlSet[c.URL] = struct{}{}
		e.AllURLs = append(e.AllURLs, c.URL)
	}
	return nil
}

// identify resolves host to its grouping key and human-readable company
// name. When the resolver fails (IP literals, localhost, single-label
// hosts) the full host serves as both, which keeps grouping deterministic.
func (r *Registry) identify(host string) (domain, company string) {
	domain, err := r.resolve(host)
	if err != nil {
		return host, host
	}
	return domain, companyName(domain)
}

// Representatives returns one entry per service in first-seen-domain order.
func (r *Registry) Representatives() []*Entry {
	out := make([]*Entry, 0, len(r.order))
	for _, d := range r.order {
		out = append(out, r.entries[d])
	}
	return out
}

// Len returns the number of distinct services registered.
func (r *Registry) Len() int {
	return len(r.order)
}

// Skipped returns how many candidates were dropped because their domain was
// already handled in a previous run.
func (r *Registry) Skipped() int {
	return r.skipped
}

// companyName derives a readable default from the registrable domain:
// second-level label, dashes and underscores spaced out, title-cased.
func companyName(domain string) string {
	label, _, _ := strings.Cut(domain, ".")
	label = strings.NewReplacer("-", " ", "_", " ").Replace(label)

	words := strings.Fields(label)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
