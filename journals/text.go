package journals

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrUnparsableDate is wrapped by NormalizeDate failures.
var ErrUnparsableDate = errors.New("unparsable date")

// dateLayout is how the publisher pages print dates ("05 March 2024").
// A single "2" accepts both "5" and "05".
const dateLayout = "2 January 2006"

// NormalizeDate parses raw with the first layout that fits and returns it
// as YYYY-MM-DD.
func NormalizeDate(raw string, layouts ...string) (string, error) {
	raw = cleanText(raw)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(time.DateOnly), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnparsableDate, raw)
}

// cleanText trims the text and collapses internal runs of whitespace.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// optional returns the cleaned text, or nil when nothing is left.
func optional(s string) *string {
	s = cleanText(s)
	if s == "" {
		return nil
	}
	return &s
}

// textOf returns the cleaned text of the first node in sel, or nil when sel
// is empty.
func textOf(sel *goquery.Selection) *string {
	if sel.Length() == 0 {
		return nil
	}
	return optional(sel.First().Text())
}

// blockTextOf returns the text of the first node in sel with only the
// surrounding whitespace trimmed, keeping its line breaks.
func blockTextOf(sel *goquery.Selection) *string {
	if sel.Length() == 0 {
		return nil
	}
	text := strings.TrimSpace(sel.First().Text())
	if text == "" {
		return nil
	}
	return &text
}

// attrOf returns the cleaned attribute value of the first node in sel.
func attrOf(sel *goquery.Selection, name string) *string {
	v, ok := sel.First().Attr(name)
	if !ok {
		return nil
	}
	return optional(v)
}

// joinNames joins the text of every node in sel in document order with ", ".
func joinNames(sel *goquery.Selection) *string {
	var names []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if name := cleanText(s.Text()); name != "" {
			names = append(names, name)
		}
	})
	if len(names) == 0 {
		return nil
	}
	joined := strings.Join(names, ", ")
	return &joined
}

// resolveLink turns href into an absolute URL against base.
func resolveLink(base *url.URL, href *string) *string {
	if href == nil {
		return nil
	}
	ref, err := url.Parse(*href)
	if err != nil {
		return nil
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	abs := ref.String()
	return &abs
}

func mustBase(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	return u
}

func newDocument(raw string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}
