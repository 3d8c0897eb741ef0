package journals

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/pevans/papersync/articles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: a logger whose output the test can inspect
func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func str(s *string) string {
	return articles.Value(s)
}

// TestNormalizeDate verifies the publisher date format and failure handling
func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		layouts []string
		want    string
		wantErr bool
	}{
		{"day month year", "05 March 2024", []string{dateLayout}, "2024-03-05", false},
		{"single digit day", "5 March 2024", []string{dateLayout}, "2024-03-05", false},
		{"surrounding whitespace", "\n  12 November 2023 \n", []string{dateLayout}, "2023-11-12", false},
		{"timestamp", "2024-06-01 08:30:00", []string{jdsPublishedLayout}, "2024-06-01", false},
		{"second layout", "2024-06-01", []string{jdsPublishedLayout, "2006-01-02"}, "2024-06-01", false},
		{"season", "Spring 2024", []string{dateLayout}, "", true},
		{"empty", "", []string{dateLayout}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeDate(tt.raw, tt.layouts...)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnparsableDate))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestNew_Kinds verifies every kind builds and unknown kinds fail
func TestNew_Kinds(t *testing.T) {
	for _, kind := range Kinds {
		p, err := New(kind, Options{Journal: "J", Fetcher: &fakeFetcher{}})
		require.NoError(t, err, "kind %s", kind)
		assert.Equal(t, "J", p.Journal())
	}

	_, err := New("nature", Options{})
	assert.True(t, errors.Is(err, ErrUnknownKind))

	_, err = ParseKind("nature")
	assert.Error(t, err)
	kind, err := ParseKind("jds")
	require.NoError(t, err)
	assert.Equal(t, KindJDS, kind)
}

// TestNew_DefaultJournalNames verifies the built-in journal names
func TestNew_DefaultJournalNames(t *testing.T) {
	assert.Equal(t, "Journal of Portfolio Management", NewJPMParser(Options{}).Journal())
	assert.Equal(t, "Journal of Finance", NewJOFParser(Options{}).Journal())

	jds, err := NewJDSParser(Options{Fetcher: &fakeFetcher{}})
	require.NoError(t, err)
	assert.Equal(t, "Journal of Data Science", jds.Journal())
}

// TestCollector_RecoversPanic verifies one broken article doesn't stop the
// rest of the page
func TestCollector_RecoversPanic(t *testing.T) {
	logger, _ := bufferLogger()
	c := newCollector("J", logger)

	c.add(0, func() articles.Article {
		title := "ok"
		return articles.Article{Title: &title}
	})
	c.add(1, func() articles.Article {
		panic("boom")
	})
	c.add(2, func() articles.Article {
		title := "also ok"
		return articles.Article{Title: &title}
	})

	result := c.done()
	require.Len(t, result.Records, 2)
	assert.Equal(t, "J", result.Records[0].Journal)
	assert.Equal(t, "also ok", str(result.Records[1].Title))
	require.Len(t, result.Problems, 1)
	assert.Equal(t, 1, result.Problems[0].Index)
	assert.Equal(t, "article", result.Problems[0].Field)
}

// TestEndToEnd_ParseThenStore verifies three fixture articles (one without a
// date, one without authors, one complete) all reach an empty store, and a
// second run adds nothing
func TestEndToEnd_ParseThenStore(t *testing.T) {
	parser := NewJOFParser(Options{})

	result, err := parser.Parse(context.Background(), jofFixture)
	require.NoError(t, err)
	require.Len(t, result.Records, 3)
	assert.Empty(t, result.Problems)

	store, err := articles.NewArticleStore(filepath.Join(t.TempDir(), "articles.db"))
	require.NoError(t, err)
	defer store.Close()

	added, err := store.InsertIfAbsent(parser.Journal(), result.Records)
	require.NoError(t, err)
	assert.Equal(t, 3, added)

	again, err := parser.Parse(context.Background(), jofFixture)
	require.NoError(t, err)
	added, err = store.InsertIfAbsent(parser.Journal(), again.Records)
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	n, err := store.Count(articles.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
