package articles

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// Custom errors for article storage
var (
	ErrDuplicateArticle = errors.New("article with this journal and title already exists")
)

// StorageError wraps any database fault raised by the store. Storage errors
// are never retried here; they go straight back to the caller.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// ArticleStore persists articles in a single SQLite table.
type ArticleStore struct {
	db        *sql.DB
	uniqueKey bool
}

// Filter restricts the rows returned by FetchAll and Count.
type Filter struct {
	Journal *string // Only rows from this journal
}

const articleColumns = "journal, date, title, author, type, abstract, link"

// NewArticleStore opens (or creates) the article database at dbPath and
// makes sure the schema exists.
func NewArticleStore(dbPath string) (*ArticleStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, storageErr("open database", err)
	}

	store := &ArticleStore{db: db}
	if err := store.InitSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// InitSchema creates the articles table and its (journal, title) unique
// index if they don't exist. It is safe to call on every startup.
//
// A database written by an older version may already hold duplicate keys,
// in which case the index can't be built. The store then keeps working and
// relies on the existence check alone.
func (s *ArticleStore) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS articles (
		journal TEXT,
		date TEXT,
		title TEXT,
		author TEXT,
		type TEXT,
		abstract TEXT,
		link TEXT
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return storageErr("initialize schema", err)
	}

	index := `CREATE UNIQUE INDEX IF NOT EXISTS articles_journal_title ON articles (journal, title)`
	if _, err := s.db.Exec(index); err != nil {
		if !isUniqueViolation(err) {
			return storageErr("create article index", err)
		}
		slog.Warn("existing articles contain duplicate keys; dedup falls back to existence checks",
			"error", err)
		s.uniqueKey = false
		return nil
	}

	s.uniqueKey = true
	return nil
}

// HasUniqueKey reports whether the (journal, title) unique index is in
// place.
func (s *ArticleStore) HasUniqueKey() bool {
	return s.uniqueKey
}

// Close closes the database connection.
func (s *ArticleStore) Close() error {
	return s.db.Close()
}

// InsertAll stores every article under journal without checking whether it
// already exists. It is meant for seeding an empty table. The batch runs in
// one transaction. When the unique index is present, any (journal, title)
// already in the table, or repeated within the batch, aborts the whole batch
// with ErrDuplicateArticle and nothing is stored. Use InsertIfAbsent for
// batches that may overlap stored rows.
func (s *ArticleStore) InsertAll(journal string, records []Article) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, storageErr("begin transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT INTO articles (" + articleColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return 0, storageErr("prepare insert", err)
	}
	defer stmt.Close()

	for _, a := range records {
		if _, err := stmt.Exec(rowArgs(journal, a)...); err != nil {
			if isUniqueViolation(err) {
				key, _ := a.Key()
				return 0, fmt.Errorf("%w: %s", ErrDuplicateArticle, Key{Journal: journal, Title: key.Title})
			}
			return 0, storageErr("insert article", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, storageErr("commit articles", err)
	}

	return len(records), nil
}

// InsertIfAbsent stores each article under journal unless a row with the
// same (journal, title) already exists, and returns how many rows were
// added. Existing rows are never updated. The existence check and the insert
// are a single statement, so concurrent callers can't both insert the same
// key.
//
// Articles without a title have no identity and are skipped.
func (s *ArticleStore) InsertIfAbsent(journal string, records []Article) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, storageErr("begin transaction", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO articles (` + articleColumns + `)
		SELECT ?, ?, ?, ?, ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM articles WHERE journal = ? AND title = ?
		)
	`
	stmt, err := tx.Prepare(query)
	if err != nil {
		return 0, storageErr("prepare insert", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, a := range records {
		if a.Title == nil {
			slog.Warn("skipping article without title", "journal", journal, "link", Value(a.Link))
			continue
		}

		args := append(rowArgs(journal, a), journal, *a.Title)
		result, err := stmt.Exec(args...)
		if err != nil {
			return 0, storageErr("insert article", err)
		}

		n, err := result.RowsAffected()
		if err != nil {
			return 0, storageErr("get rows affected", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, storageErr("commit articles", err)
	}

	return inserted, nil
}

// FetchAll returns the stored articles in storage order, optionally
// restricted to one journal.
func (s *ArticleStore) FetchAll(filter Filter) ([]Article, error) {
	query := "SELECT " + articleColumns + " FROM articles"
	where, args := filter.where()
	query += where + " ORDER BY rowid"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, storageErr("query articles", err)
	}
	defer rows.Close()

	result := []Article{}
	for rows.Next() {
		var journal sql.NullString
		var date, title, author, typ, abstract, link sql.NullString

		if err := rows.Scan(&journal, &date, &title, &author, &typ, &abstract, &link); err != nil {
			return nil, storageErr("scan article", err)
		}

		result = append(result, Article{
			Journal:  journal.String,
			Date:     nullable(date),
			Title:    nullable(title),
			Author:   nullable(author),
			Type:     nullable(typ),
			Abstract: nullable(abstract),
			Link:     nullable(link),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate articles", err)
	}

	return result, nil
}

// Count returns the number of stored articles matching filter.
func (s *ArticleStore) Count(filter Filter) (int, error) {
	where, args := filter.where()

	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM articles"+where, args...).Scan(&n); err != nil {
		return 0, storageErr("count articles", err)
	}
	return n, nil
}

// ClearAll deletes every stored article and returns how many were removed.
func (s *ArticleStore) ClearAll() (int64, error) {
	result, err := s.db.Exec("DELETE FROM articles")
	if err != nil {
		return 0, storageErr("clear articles", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, storageErr("get rows affected", err)
	}
	return n, nil
}

func (f Filter) where() (string, []any) {
	var clauses []string
	var args []any

	if f.Journal != nil {
		clauses = append(clauses, "journal = ?")
		args = append(args, *f.Journal)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func rowArgs(journal string, a Article) []any {
	return []any{
		journal,
		nullString(a.Date),
		nullString(a.Title),
		nullString(a.Author),
		nullString(a.Type),
		nullString(a.Abstract),
		nullString(a.Link),
	}
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return strings.Contains(err.Error(), "UNIQUE constraint")
}
