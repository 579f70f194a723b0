package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/mohammad-safakhou/newshub/models"
	"modernc.org/sqlite"
)

// Dialect selects the SQL flavour of the underlying database.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

const (
	// DefaultRecentLimit is the page size used when callers pass a non-positive limit.
	DefaultRecentLimit = 50
	DefaultLogLimit    = 100
)

// ErrEmptyFingerprint is returned when an item without an ID is written.
var ErrEmptyFingerprint = errors.New("news item has empty fingerprint")

// Store persists news items and log entries. A zero Dialect means Postgres.
type Store struct {
	DB      *sql.DB
	Dialect Dialect
}

// New opens a store for the given driver ("postgres" or "sqlite") and DSN.
// For sqlite the DSN is a file path or ":memory:".
func New(ctx context.Context, driver, dsn string) (*Store, error) {
	switch Dialect(strings.ToLower(driver)) {
	case DialectPostgres:
		return NewWithDSN(ctx, dsn)
	case DialectSQLite, "":
		return NewSQLite(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
}

// NewWithDSN constructs the Store using an explicit Postgres DSN. The schema
// is owned by the migrations directory.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{DB: db, Dialect: DialectPostgres}, nil
}

// NewSQLite opens (creating if needed) a SQLite database and ensures its schema.
func NewSQLite(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = ":memory:"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// a single connection serialises writers and keeps :memory: databases alive
	db.SetMaxOpenConns(1)
	s := &Store{DB: db, Dialect: DialectSQLite}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	if s.dialect() != DialectSQLite {
		return nil
	}
	_, err := s.DB.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS news_items (
    id           TEXT PRIMARY KEY,
    title        TEXT NOT NULL,
    url          TEXT NOT NULL,
    published_at DATETIME NOT NULL,
    source       TEXT NOT NULL DEFAULT '',
    snippet      TEXT NOT NULL DEFAULT '',
    language     TEXT NOT NULL DEFAULT 'pt',
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_news_items_published_at ON news_items (published_at DESC);
CREATE TABLE IF NOT EXISTS logs (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp DATETIME NOT NULL,
    level     TEXT NOT NULL,
    message   TEXT NOT NULL
);
`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

// Close releases the underlying pool.
func (s *Store) Close() error { return s.DB.Close() }

func (s *Store) dialect() Dialect {
	if s.Dialect == "" {
		return DialectPostgres
	}
	return s.Dialect
}

// sqliteLower folds case with Unicode rules; SQLite's own lower() and LIKE
// only fold ASCII, which misses accented Portuguese text.
const sqliteLower = "unicode_lower"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(sqliteLower, 1, func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		switch v := args[0].(type) {
		case string:
			return strings.ToLower(v), nil
		case []byte:
			return strings.ToLower(string(v)), nil
		default:
			return v, nil
		}
	})
}

var placeholderRe = regexp.MustCompile(`\$(\d+)`)

// rebind rewrites $N placeholders to SQLite's ?N form.
func (s *Store) rebind(query string) string {
	if s.dialect() != DialectSQLite {
		return query
	}
	return placeholderRe.ReplaceAllString(query, "?$1")
}

// InsertItem stores item if its fingerprint is new. The bool reports whether a row was written.
func (s *Store) InsertItem(ctx context.Context, item models.NewsItem) (bool, error) {
	if strings.TrimSpace(item.ID) == "" {
		return false, ErrEmptyFingerprint
	}
	lang := item.Language
	if lang == "" {
		lang = models.DefaultLanguage
	}
	published := item.PublishedAt
	if published.IsZero() {
		published = time.Now()
	}
	res, err := s.DB.ExecContext(ctx, s.rebind(`
INSERT INTO news_items (id, title, url, published_at, source, snippet, language, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO NOTHING
`), item.ID, item.Title, item.URL, published.UTC().Truncate(time.Second), item.Source, item.Snippet, lang, time.Now().UTC().Truncate(time.Second))
	if err != nil {
		return false, fmt.Errorf("insert news item %s: %w", item.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SaveItems writes every item with insert-if-absent semantics and returns how
// many were new. A failing item does not stop the batch; all failures are
// joined into the returned error.
func (s *Store) SaveItems(ctx context.Context, items []models.NewsItem) (int, error) {
	inserted := 0
	var errs []error
	for _, it := range items {
		ok, err := s.InsertItem(ctx, it)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			inserted++
		}
	}
	return inserted, errors.Join(errs...)
}

// GetItem loads a single item by fingerprint.
func (s *Store) GetItem(ctx context.Context, id string) (models.NewsItem, error) {
	var it models.NewsItem
	err := s.DB.QueryRowContext(ctx, s.rebind(`
SELECT id, title, url, published_at, source, snippet, language
FROM news_items
WHERE id=$1
`), id).Scan(&it.ID, &it.Title, &it.URL, &it.PublishedAt, &it.Source, &it.Snippet, &it.Language)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NewsItem{}, models.ErrItemNotFound
	}
	if err != nil {
		return models.NewsItem{}, err
	}
	return it, nil
}

// Search returns items whose title or snippet contains q, case-insensitively,
// newest first. LIKE wildcards in q match literally.
func (s *Store) Search(ctx context.Context, q string, limit int) ([]models.NewsItem, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []models.NewsItem{}, nil
	}
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	where := `title ILIKE $1 ESCAPE '\' OR snippet ILIKE $1 ESCAPE '\'`
	if s.dialect() == DialectSQLite {
		where = fmt.Sprintf(`%[1]s(title) LIKE $1 ESCAPE '\' OR %[1]s(snippet) LIKE $1 ESCAPE '\'`, sqliteLower)
		q = strings.ToLower(q)
	}
	query := `
SELECT id, title, url, published_at, source, snippet, language
FROM news_items
WHERE ` + where + `
ORDER BY published_at DESC
LIMIT $2
`
	return s.queryItems(ctx, s.rebind(query), "%"+escapeLike(q)+"%", limit)
}

// Recent returns the newest stored items.
func (s *Store) Recent(ctx context.Context, limit int) ([]models.NewsItem, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return s.queryItems(ctx, s.rebind(`
SELECT id, title, url, published_at, source, snippet, language
FROM news_items
ORDER BY published_at DESC
LIMIT $1
`), limit)
}

func (s *Store) queryItems(ctx context.Context, query string, args ...interface{}) ([]models.NewsItem, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query news items: %w", err)
	}
	defer rows.Close()
	out := []models.NewsItem{}
	for rows.Next() {
		var it models.NewsItem
		if err := rows.Scan(&it.ID, &it.Title, &it.URL, &it.PublishedAt, &it.Source, &it.Snippet, &it.Language); err != nil {
			return nil, fmt.Errorf("scan news item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// CountItems returns the number of stored items.
func (s *Store) CountItems(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM news_items`).Scan(&n)
	return n, err
}

// InsertLog appends a log entry.
func (s *Store) InsertLog(ctx context.Context, at time.Time, level, message string) error {
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.DB.ExecContext(ctx, s.rebind(`INSERT INTO logs (timestamp, level, message) VALUES ($1,$2,$3)`), at.UTC(), level, message)
	return err
}

// ListLogs returns the most recent log entries, newest first.
func (s *Store) ListLogs(ctx context.Context, limit int) ([]models.LogEntry, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	rows, err := s.DB.QueryContext(ctx, s.rebind(`
SELECT id, timestamp, level, message
FROM logs
ORDER BY id DESC
LIMIT $1
`), limit)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()
	out := []models.LogEntry{}
	for rows.Next() {
		var e models.LogEntry
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Level, &e.Message); err != nil {
			return nil, fmt.Errorf("scan log entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
