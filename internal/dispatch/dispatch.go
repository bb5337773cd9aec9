// Package dispatch visits one representative unsubscribe URL per service
// and classifies what happened. Each service is visited at most once per
// run and never retried: repeated hits on a real unsubscribe endpoint can
// be read as abuse.
package dispatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/tracyhatemice/gounsub/internal/registry"
)

const userAgent = "gounsub/1.0 (+https://github.com/tracyhatemice/gounsub)"

// maxDrain bounds how much of a response body is read before closing.
const maxDrain = 64 << 10

// Kind classifies a visit outcome.
type Kind int

const (
	// Success: a response arrived with status 200-399.
	Success Kind = iota
	// HTTPFailure: a response arrived with status >= 400.
	HTTPFailure
	// TransportError: no usable response (DNS, refused, timeout, TLS,
	// malformed URL).
	TransportError
)

// Outcome is the classified result of visiting a representative URL.
type Outcome struct {
	Kind       Kind
	StatusCode int    // set for HTTPFailure
	Message    string // set for TransportError
}

// String renders the outcome in report form.
func (o Outcome) String() string {
	switch o.Kind {
	case Success:
		return "Success"
	case HTTPFailure:
		return fmt.Sprintf("Failed:%d", o.StatusCode)
	default:
		return "Error:" + o.Message
	}
}

// Dispatcher performs the HTTP visits. Requests are paced by a shared rate
// limiter and fanned out over a bounded worker pool.
type Dispatcher struct {
	client  *http.Client
	limiter *rate.Limiter
	workers int
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a Dispatcher. rps paces successive requests; workers bounds
// concurrent visits.
func New(timeout time.Duration, workers int, rps float64, logger *slog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if rps <= 0 {
		rps = 1
	}
	return &Dispatcher{
		client:  &http.Client{},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		workers: workers,
		timeout: timeout,
		logger:  logger,
	}
}

// Dispatch visits one entry's representative URL and classifies the result.
// It always returns a classified outcome; nothing escapes as an error.
func (d *Dispatcher) Dispatch(ctx context.Context, entry *registry.Entry) Outcome {
	reqCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, entry.RepresentativeURL, nil)
	if err != nil {
		return Outcome{Kind: TransportError, Message: err.Error()}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return Outcome{Kind: TransportError, Message: err.Error()}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))

	if resp.StatusCode >= 400 {
		return Outcome{Kind: HTTPFailure, StatusCode: resp.StatusCode}
	}
	return Outcome{Kind: Success}
}

// DispatchAll visits every entry once and returns outcomes in matching
// order. Each worker writes only its own slot, so no contention arises. A
// failed visit never affects the others.
func (d *Dispatcher) DispatchAll(ctx context.Context, entries []*registry.Entry) []Outcome {
	outcomes := make([]Outcome, len(entries))

	var g errgroup.Group
	g.SetLimit(d.workers)
	for i, entry := range entries {
		i, entry := i, entry
		g.Go(func() error {
			if err := d.limiter.Wait(ctx); err != nil {
				outcomes[i] = Outcome{Kind: TransportError, Message: err.Error()}
			} else {
				outcomes[i] = d.Dispatch(ctx, entry)
			}
			d.logger.Info("visited unsubscribe link",
				"company", entry.Company,
				"domain", entry.Domain,
				"url", entry.RepresentativeURL,
				"outcome", outcomes[i].String(),
			)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}
