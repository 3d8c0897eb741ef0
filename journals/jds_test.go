package journals

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/pevans/papersync/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher serves canned pages and records requests
type fakeFetcher struct {
	mu       sync.Mutex
	pages    map[string]string
	failures map[string]error
	requests []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, url)
	if err, ok := f.failures[url]; ok {
		return "", err
	}
	page, ok := f.pages[url]
	if !ok {
		return "", &fetch.NetworkError{URL: url, StatusCode: 404}
	}
	return page, nil
}

const jdsFixture = `
<html><body>
<div class="articles">
  <div class="row filtered-item" data-title="  Bayesian Inference for Sparse Networks "
       data-published="2024-06-01 08:30:00" data-type="Statistical Learning">
    <a class="article-title" href="https://jds-online.org/journal/JDS/article/1401">Bayesian Inference for Sparse Networks</a>
  </div>
  <div class="row filtered-item" data-title="Reproducible Pipelines in R" data-type="Computing in Data Science">
    <a class="article-title" href="/journal/JDS/article/1402">Reproducible Pipelines in R</a>
  </div>
  <div class="row filtered-item" data-title="A Note Without Page" data-published="sometime soon">
  </div>
</div>
</body></html>
`

func newJDSFixtureFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages: map[string]string{
			"https://jds-online.org/journal/JDS/article/1401": "<html><body><div class=\"abstract\"><div class=\"first para\">\n" +
				"  We propose a spike-and-slab prior for sparse networks.\n\nIt scales to graphs with millions of edges.  \n" +
				"</div></div></body></html>",
			"https://jds-online.org/journal/JDS/article/1402": `<html><body><p>No abstract yet</p></body></html>`,
		},
	}
}

// Test helper: a JDS parser that doesn't wait between article pages
func newTestJDSParser(t *testing.T, f fetch.Fetcher) *JDSParser {
	t.Helper()
	logger, _ := bufferLogger()
	p, err := NewJDSParser(Options{Fetcher: f, AbstractRate: 1000, Logger: logger})
	require.NoError(t, err)
	return p
}

// TestJDSParser_Fixture verifies listing attributes plus per-article
// abstracts
func TestJDSParser_Fixture(t *testing.T) {
	fetcher := newJDSFixtureFetcher()
	result, err := newTestJDSParser(t, fetcher).Parse(context.Background(), jdsFixture)
	require.NoError(t, err)
	require.Len(t, result.Records, 3)

	first := result.Records[0]
	assert.Equal(t, "Journal of Data Science", first.Journal)
	assert.Equal(t, "Bayesian Inference for Sparse Networks", str(first.Title))
	assert.Equal(t, "2024-06-01", str(first.Date))
	assert.Equal(t, "Statistical Learning", str(first.Type))
	assert.Equal(t, "We propose a spike-and-slab prior for sparse networks.\n\nIt scales to graphs with millions of edges.",
		str(first.Abstract), "paragraph breaks survive, surrounding whitespace doesn't")
	assert.Equal(t, "https://jds-online.org/journal/JDS/article/1401", str(first.Link))
	assert.Nil(t, first.Author, "the listing has no authors")

	second := result.Records[1]
	assert.Nil(t, second.Date)
	assert.Equal(t, AbstractNotFound, str(second.Abstract), "page without abstract gets the sentinel")
	assert.Equal(t, "https://jds-online.org/journal/JDS/article/1402", str(second.Link))

	third := result.Records[2]
	assert.Equal(t, "A Note Without Page", str(third.Title))
	assert.Nil(t, third.Link)
	assert.Nil(t, third.Abstract, "no link means no secondary fetch")
	assert.Nil(t, third.Date)

	assert.Equal(t, []string{
		"https://jds-online.org/journal/JDS/article/1401",
		"https://jds-online.org/journal/JDS/article/1402",
	}, fetcher.requests, "one request per linked article")

	require.Len(t, result.Problems, 1)
	assert.Equal(t, 2, result.Problems[0].Index)
	assert.Equal(t, "date", result.Problems[0].Field)
}

// TestJDSParser_AbstractFetchFails verifies a failing article page keeps the
// record with the sentinel abstract
func TestJDSParser_AbstractFetchFails(t *testing.T) {
	fetcher := newJDSFixtureFetcher()
	fetcher.failures = map[string]error{
		"https://jds-online.org/journal/JDS/article/1401": errors.New("connection reset"),
	}

	result, err := newTestJDSParser(t, fetcher).Parse(context.Background(), jdsFixture)
	require.NoError(t, err)
	require.Len(t, result.Records, 3)
	assert.Equal(t, AbstractNotFound, str(result.Records[0].Abstract))

	var fields []string
	for _, p := range result.Problems {
		fields = append(fields, fmt.Sprintf("%d:%s", p.Index, p.Field))
	}
	assert.Contains(t, fields, "0:abstract")
}

// TestJDSParser_EmptyListing verifies a page with no entries is zero results
// and makes no requests
func TestJDSParser_EmptyListing(t *testing.T) {
	fetcher := &fakeFetcher{}
	result, err := newTestJDSParser(t, fetcher).Parse(context.Background(), `<html><body><p>Nothing to appear</p></body></html>`)
	require.NoError(t, err)
	assert.Empty(t, result.Records)
	assert.Empty(t, fetcher.requests)
}

// TestJDSParser_Cancelled verifies a cancelled run stops with an error
func TestJDSParser_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestJDSParser(t, newJDSFixtureFetcher()).Parse(ctx, jdsFixture)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

// TestNewJDSParser_NeedsFetcher verifies construction without a fetcher fails
func TestNewJDSParser_NeedsFetcher(t *testing.T) {
	_, err := NewJDSParser(Options{})
	assert.Error(t, err)
}
