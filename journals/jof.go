package journals

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/papersync/articles"
)

const (
	jofJournal = "Journal of Finance"
	jofBaseURL = "https://link.springer.com"
)

// JOFParser reads a Springer journal's article listing
// (link.springer.com/journal/<id>/articles). Springer serves it behind a
// cookie wall, so it is fetched in browser mode.
type JOFParser struct {
	journal string
	base    *url.URL
	logger  *slog.Logger
}

// NewJOFParser creates the Springer listing parser.
func NewJOFParser(opts Options) *JOFParser {
	journal := opts.Journal
	if journal == "" {
		journal = jofJournal
	}
	base := opts.BaseURL
	if base == "" {
		base = jofBaseURL
	}

	return &JOFParser{
		journal: journal,
		base:    mustBase(base),
		logger:  opts.logger(),
	}
}

func (p *JOFParser) Journal() string {
	return p.journal
}

func (p *JOFParser) Parse(_ context.Context, raw string) (*Result, error) {
	doc, err := newDocument(raw)
	if err != nil {
		return nil, err
	}

	c := newCollector(p.journal, p.logger)

	section := doc.Find(`section[data-ga="journal-articles"]`).First()
	section.Find("article.app-card-open.app-card-open--has-image").Each(func(i int, s *goquery.Selection) {
		c.add(i, func() articles.Article {
			meta := s.Find("div.app-card-open__meta").First().Find("span.c-meta__item")
			date, articleType := p.meta(c, i, meta)

			return articles.Article{
				Date:   date,
				Title:  textOf(s.Find("h3.app-card-open__heading")),
				Author: joinNames(s.Find("div.app-card-open__authors").First().Find("li")),
				Type:   articleType,
				Link:   resolveLink(p.base, attrOf(s.Find(`a[data-track="select_article"]`), "href")),
			}
		})
	})

	return c.done(), nil
}

// meta reads the card's meta line, which lists the article type first and
// the publication date last. A lone item is whichever of the two it parses
// as.
func (p *JOFParser) meta(c *collector, index int, meta *goquery.Selection) (date, articleType *string) {
	if meta.Length() == 0 {
		return nil, nil
	}

	if meta.Length() == 1 {
		text := textOf(meta)
		if text == nil {
			return nil, nil
		}
		if d, err := NormalizeDate(*text, dateLayout); err == nil {
			return &d, nil
		}
		return nil, text
	}

	articleType = textOf(meta.First())
	if raw := textOf(meta.Last()); raw != nil {
		d, err := NormalizeDate(*raw, dateLayout)
		if err != nil {
			c.problem(index, "date", err)
		} else {
			date = &d
		}
	}
	return date, articleType
}
