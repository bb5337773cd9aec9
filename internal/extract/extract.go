// Package extract pulls candidate unsubscribe URLs out of raw email
// messages. The List-Unsubscribe header (RFC 2369) is preferred; when it
// carries no usable HTTP URI the HTML body is scanned for anchors that look
// like unsubscribe links.
package extract

import (
	"bytes"
	"io"
	"strings"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"golang.org/x/net/html"

	"github.com/tracyhatemice/gounsub/internal/receiver"
)

// DefaultKeywords is the built-in keyword set matched against anchor hrefs
// and visible anchor text.
var DefaultKeywords = []string{
	"unsubscribe",
	"opt-out",
	"opt out",
	"remove me",
	"email preferences",
}

// Candidate is one unsubscribe URL found in a message.
type Candidate struct {
	URL       string
	MessageID string
}

// Extractor finds candidate unsubscribe links in email messages. Extraction
// is a pure function of message content: the same message always yields the
// same candidates.
type Extractor struct {
	keywords []string
}

// New creates an Extractor. An empty keyword list selects DefaultKeywords.
func New(keywords []string) *Extractor {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	lowered := make([]string, len(keywords))
	for i, k := range keywords {
		lowered[i] = strings.ToLower(k)
	}
	return &Extractor{keywords: lowered}
}

// Extract returns the candidate unsubscribe URLs in msg, deduplicated
// within the message. Malformed messages yield no candidates, never an
// error.
func (e *Extractor) Extract(msg receiver.Email) []Candidate {
	// CreateReader can hand back a usable reader alongside an unknown-charset
	// error; only a nil reader means the message is unreadable.
	mr, _ := mail.CreateReader(bytes.NewReader(msg.Content))
	if mr == nil {
		return nil
	}
	defer mr.Close()

	var urls []string
	if lu := mr.Header.Get("List-Unsubscribe"); lu != "" {
		urls = parseListUnsubscribe(lu)
	}
	if len(urls) == 0 {
		urls = e.scanParts(mr)
	}

	seen := make(map[string]struct{}, len(urls))
	var out []Candidate
	for _, u := range urls {
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, Candidate{URL: u, MessageID: msg.ID})
	}
	return out
}

// parseListUnsubscribe splits a List-Unsubscribe header value into its
// HTTP(S) URIs. The header looks like:
//
//	<mailto:unsub@example.com>, <https://example.com/unsub?x=1>
//
// mailto entries are skipped; they cannot be acted on over HTTP.
func parseListUnsubscribe(header string) []string {
	var urls []string
	for _, part := range strings.Split(header, ",") {
		u := strings.TrimSpace(part)
		u = strings.Trim(u, "<>")
		u = strings.TrimSpace(u)
		if isHTTPURL(u) {
			urls = append(urls, u)
		}
	}
	return urls
}

// scanParts walks the message's inline parts and collects matching anchors
// from every text/html body. Parts that fail to decode are skipped.
func (e *Extractor) scanParts(mr *mail.Reader) []string {
	var urls []string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			return urls
		}
		if err != nil {
			// Malformed remainder; keep whatever was already found.
			return urls
		}
		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ct, _, err := h.ContentType()
		if err != nil || ct != "text/html" {
			continue
		}
		body, err := io.ReadAll(p.Body)
		if err != nil {
			continue
		}
		urls = append(urls, e.scanHTML(body)...)
	}
}

// scanHTML parses an HTML body (best effort, malformed markup included) and
// returns hrefs of anchors whose target or visible text matches a keyword.
func (e *Extractor) scanHTML(body []byte) []string {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	var urls []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			href := attrVal(n, "href")
			if isHTTPURL(href) && e.matches(href, anchorText(n)) {
				urls = append(urls, href)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return urls
}

// matches reports whether the anchor's href or visible text contains any
// configured keyword, case-insensitively.
func (e *Extractor) matches(href, text string) bool {
	href = strings.ToLower(href)
	text = strings.ToLower(text)
	for _, kw := range e.keywords {
		if strings.Contains(href, kw) || strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// anchorText collects the text content beneath an anchor node.
func anchorText(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}

func isHTTPURL(s string) bool {
	l := strings.ToLower(s)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}
