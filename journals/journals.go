// Package journals turns journal listing pages into articles. Each journal
// has its own parser because the sites share nothing in their markup; the
// parsers only share small text helpers.
package journals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pevans/papersync/articles"
	"github.com/pevans/papersync/fetch"
)

// Kind names a parser variant in configuration.
type Kind string

const (
	KindJPM  Kind = "jpm"  // Journal of Portfolio Management (pm-research.com)
	KindJOF  Kind = "jof"  // Springer journal article listing
	KindJDS  Kind = "jds"  // Journal of Data Science "to appear"
	KindFeed Kind = "feed" // any RSS or Atom listing
)

// Kinds lists every known variant.
var Kinds = []Kind{KindJPM, KindJOF, KindJDS, KindFeed}

// ErrUnknownKind is returned by New for a kind outside Kinds.
var ErrUnknownKind = errors.New("unknown parser kind")

// Parser extracts the articles listed on one journal's page.
type Parser interface {
	// Journal is the name stored on every record the parser produces
	Journal() string
	// Parse reads raw page markup. A page without an article list is zero
	// results, not an error. Only page-level failures return an error.
	Parse(ctx context.Context, raw string) (*Result, error)
}

// Result holds the records of one page in document order, plus every field
// that was present but could not be extracted. A field that simply isn't on
// the page is nil in its record and is not a problem.
type Result struct {
	Records  []articles.Article
	Problems []FieldError
}

// FieldError describes one field of one article that failed to extract.
type FieldError struct {
	Index int    // position of the article on the page
	Field string // "date", "abstract", ...
	Err   error
}

func (e FieldError) Error() string {
	return fmt.Sprintf("article %d: %s: %v", e.Index, e.Field, e.Err)
}

func (e FieldError) Unwrap() error {
	return e.Err
}

// Options configures a parser.
type Options struct {
	// Journal name stored on records; each kind has a default
	Journal string
	// Base for resolving relative links; each kind has a default
	BaseURL string
	// Used for per-article pages (jds abstracts)
	Fetcher fetch.Fetcher
	// Per-article requests per second; zero means DefaultAbstractRate
	AbstractRate float64
	Logger       *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// New builds the parser for kind.
func New(kind Kind, opts Options) (Parser, error) {
	switch kind {
	case KindJPM:
		return NewJPMParser(opts), nil
	case KindJOF:
		return NewJOFParser(opts), nil
	case KindJDS:
		p, err := NewJDSParser(opts)
		if err != nil {
			return nil, err
		}
		return p, nil
	case KindFeed:
		return NewFeedParser(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// ParseKind validates a kind name from configuration.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// collector accumulates a Result while a parser walks a page.
type collector struct {
	journal string
	logger  *slog.Logger
	result  Result
}

func newCollector(journal string, logger *slog.Logger) *collector {
	return &collector{
		journal: journal,
		logger:  logger,
		result:  Result{Records: []articles.Article{}},
	}
}

// problem records a soft failure and logs it.
func (c *collector) problem(index int, field string, err error) {
	c.result.Problems = append(c.result.Problems, FieldError{Index: index, Field: field, Err: err})
	c.logger.Warn("field extraction failed",
		"journal", c.journal, "index", index, "field", field, "error", err)
}

// add runs extract for the article at index. A panic inside extract only
// loses that article; the rest of the page is still parsed.
func (c *collector) add(index int, extract func() articles.Article) {
	defer func() {
		if r := recover(); r != nil {
			c.problem(index, "article", fmt.Errorf("extraction panicked: %v", r))
		}
	}()

	a := extract()
	a.Journal = c.journal
	c.result.Records = append(c.result.Records, a)
}

func (c *collector) done() *Result {
	c.logger.Debug("parsed listing",
		"journal", c.journal, "articles", len(c.result.Records), "problems", len(c.result.Problems))
	return &c.result
}
