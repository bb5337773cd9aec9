package dispatch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tracyhatemice/gounsub/internal/registry"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/redirect", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ok", http.StatusFound)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/notmodified", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	})
	return httptest.NewServer(mux)
}

func TestDispatchClassification(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	d := New(500*time.Millisecond, 1, 1000, discardLogger())

	tests := []struct {
		name       string
		url        string
		wantKind   Kind
		wantStatus int
	}{
		{name: "200 is success", url: srv.URL + "/ok", wantKind: Success},
		{name: "redirect chain ending in 200 is success", url: srv.URL + "/redirect", wantKind: Success},
		{name: "304 counts as success", url: srv.URL + "/notmodified", wantKind: Success},
		{name: "404 is http failure", url: srv.URL + "/missing", wantKind: HTTPFailure, wantStatus: 404},
		{name: "500 is http failure", url: srv.URL + "/boom", wantKind: HTTPFailure, wantStatus: 500},
		{name: "timeout is transport error", url: srv.URL + "/slow", wantKind: TransportError},
		{name: "malformed url is transport error", url: "://not-a-url", wantKind: TransportError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := d.Dispatch(context.Background(), &registry.Entry{
				Domain:            "test",
				RepresentativeURL: tt.url,
			})
			if out.Kind != tt.wantKind {
				t.Fatalf("kind = %v, want %v (outcome %v)", out.Kind, tt.wantKind, out)
			}
			if tt.wantStatus != 0 && out.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", out.StatusCode, tt.wantStatus)
			}
			if tt.wantKind == TransportError && out.Message == "" {
				t.Error("transport error should carry a message")
			}
		})
	}
}

func TestDispatchConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	d := New(500*time.Millisecond, 1, 1000, discardLogger())
	out := d.Dispatch(context.Background(), &registry.Entry{Domain: "dead", RepresentativeURL: url})
	if out.Kind != TransportError {
		t.Fatalf("kind = %v, want TransportError", out.Kind)
	}
}

func TestDispatchAllVisitsEachEntryOnce(t *testing.T) {
	var mu sync.Mutex
	hits := make(map[string]int)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits[r.URL.Path]++
		mu.Unlock()
		if strings.HasPrefix(r.URL.Path, "/fail") {
			w.WriteHeader(http.StatusGone)
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	entries := []*registry.Entry{
		{Domain: "a.com", RepresentativeURL: srv.URL + "/a"},
		{Domain: "b.com", RepresentativeURL: srv.URL + "/fail-b"},
		{Domain: "c.com", RepresentativeURL: srv.URL + "/c"},
	}

	d := New(time.Second, 3, 1000, discardLogger())
	outcomes := d.DispatchAll(context.Background(), entries)

	if len(outcomes) != len(entries) {
		t.Fatalf("outcomes = %d, want %d", len(outcomes), len(entries))
	}
	if outcomes[0].Kind != Success || outcomes[2].Kind != Success {
		t.Errorf("expected success for a.com and c.com, got %v and %v", outcomes[0], outcomes[2])
	}
	if outcomes[1].Kind != HTTPFailure || outcomes[1].StatusCode != http.StatusGone {
		t.Errorf("expected Failed:410 for b.com, got %v", outcomes[1])
	}

	mu.Lock()
	defer mu.Unlock()
	for path, n := range hits {
		if n != 1 {
			t.Errorf("path %s visited %d times, want exactly 1 (no retries)", path, n)
		}
	}
}

func TestOutcomeString(t *testing.T) {
	tests := []struct {
		name    string
		outcome Outcome
		want    string
	}{
		{name: "success", outcome: Outcome{Kind: Success}, want: "Success"},
		{name: "http failure", outcome: Outcome{Kind: HTTPFailure, StatusCode: 404}, want: "Failed:404"},
		{name: "transport error", outcome: Outcome{Kind: TransportError, Message: "no such host"}, want: "Error:no such host"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.outcome.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
