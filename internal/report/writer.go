package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/tracyhatemice/gounsub/internal/registry"
)

// WriteLinks writes every distinct URL seen across all entries, one per
// line, in first-seen order.
func WriteLinks(w io.Writer, entries []*registry.Entry) error {
	seen := make(map[string]struct{})
	for _, e := range entries {
		for _, u := range e.AllURLs {
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			if _, err := fmt.Fprintln(w, u); err != nil {
				return fmt.Errorf("write links output: %w", err)
			}
		}
	}
	return nil
}

// WriteCSV writes one row per service. The file starts with a UTF-8 BOM and
// uses semicolons so it opens cleanly in Excel.
func WriteCSV(w io.Writer, rep *RunReport) error {
	if _, err := w.Write([]byte("\xef\xbb\xbf")); err != nil {
		return fmt.Errorf("write csv bom: %w", err)
	}

	cw := csv.NewWriter(w)
	cw.Comma = ';'

	header := []string{"company", "domain", "representative_url", "email_count", "outcome"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, rec := range rep.Entries {
		row := []string{
			rec.Entry.Company,
			rec.Entry.Domain,
			rec.Entry.RepresentativeURL,
			strconv.Itoa(rec.Entry.EmailCount),
			rec.Outcome.String(),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv record for %s: %w", rec.Entry.Domain, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv output: %w", err)
	}
	return nil
}
