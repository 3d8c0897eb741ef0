package articles

import "fmt"

// Article is the canonical record every journal listing is normalized into.
// A nil field means the value was not present on the page (or could not be
// parsed). Journal is always set.
type Article struct {
	Journal  string  `json:"journal"`
	Date     *string `json:"date,omitempty"` // YYYY-MM-DD
	Title    *string `json:"title,omitempty"`
	Author   *string `json:"author,omitempty"`
	Type     *string `json:"type,omitempty"`
	Abstract *string `json:"abstract,omitempty"`
	Link     *string `json:"link,omitempty"`
}

// Key is the semantic identity of an article. Two articles with the same
// journal and title are the same article, whatever their other fields say.
type Key struct {
	Journal string
	Title   string
}

func (k Key) String() string {
	return fmt.Sprintf("%s: %s", k.Journal, k.Title)
}

// Key returns the article's semantic identity. ok is false when the article
// has no title, in which case it has no identity to deduplicate on.
func (a Article) Key() (Key, bool) {
	if a.Title == nil {
		return Key{}, false
	}
	return Key{Journal: a.Journal, Title: *a.Title}, true
}

// Value returns the string behind an optional field, or "" when absent.
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
