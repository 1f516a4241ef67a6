package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/factrank/internal/model"
	"github.com/ppiankov/factrank/internal/score"
)

const schema = `
CREATE TABLE IF NOT EXISTS facts (
	id           TEXT PRIMARY KEY,
	subject      TEXT NOT NULL DEFAULT '',
	predicate    TEXT NOT NULL DEFAULT '',
	object       TEXT NOT NULL DEFAULT '',
	source_url   TEXT NOT NULL DEFAULT '',
	source_name  TEXT NOT NULL DEFAULT '',
	truth_weight REAL,
	ts           TEXT NOT NULL DEFAULT '',
	updated_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_facts_subject_predicate ON facts(subject, predicate);

CREATE TABLE IF NOT EXISTS aliases (
	alias     TEXT PRIMARY KEY,
	canonical TEXT NOT NULL
);
`

const factColumns = "f.id, f.subject, f.predicate, f.object, f.source_url, f.source_name, f.truth_weight, f.ts"

// SQLiteStore implements FactStore on a single SQLite database file
type SQLiteStore struct {
	db     *sql.DB
	path   string
	canon  *Canonicalizer
	scorer *score.TrustScorer
}

// NewSQLiteStore opens or creates the database at path.
// Pass ":memory:" for an in-memory database (testing).
func NewSQLiteStore(path string, scorer *score.TrustScorer) (*SQLiteStore, error) {
	if path == "" {
		path = model.DefaultConfig().Store.Path
	}
	path = expandPath(path)

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writes
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		path:   path,
		canon:  NewCanonicalizer(),
		scorer: scorer,
	}
	if err := s.loadAliases(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) loadAliases() error {
	rows, err := s.db.Query("SELECT alias, canonical FROM aliases")
	if err != nil {
		return fmt.Errorf("loading aliases: %w", err)
	}
	defer rows.Close()

	pairs := make(map[string]string)
	for rows.Next() {
		var alias, canonical string
		if err := rows.Scan(&alias, &canonical); err != nil {
			return fmt.Errorf("scanning alias: %w", err)
		}
		pairs[alias] = canonical
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("loading aliases: %w", err)
	}
	s.canon.load(pairs)
	return nil
}

// UpsertFact implements FactStore
func (s *SQLiteStore) UpsertFact(ctx context.Context, f model.Fact) error {
	f = prepare(s.canon, f)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO facts (id, subject, predicate, object, source_url, source_name, truth_weight, ts, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			subject = excluded.subject,
			predicate = excluded.predicate,
			object = excluded.object,
			source_url = excluded.source_url,
			source_name = excluded.source_name,
			truth_weight = excluded.truth_weight,
			ts = excluded.ts,
			updated_at = excluded.updated_at`,
		f.ID, f.Subject, f.Predicate, f.Object, f.SourceURL, f.SourceName, nullableWeight(f.TruthWeight), f.TS,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting fact %s: %w", f.ID, err)
	}
	return nil
}

// SearchFacts implements FactStore. Candidates are selected in SQL by
// case-insensitive substring match; corroboration counts distinct source
// URLs per (subject, predicate) across the whole table.
func (s *SQLiteStore) SearchFacts(ctx context.Context, terms []string, limit int) ([]model.Fact, error) {
	var conds []string
	var args []any
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if len(t) <= 2 {
			continue
		}
		conds = append(conds, "instr(lower(f.subject || ' ' || f.predicate || ' ' || f.object), ?) > 0")
		args = append(args, t)
	}
	if len(conds) == 0 {
		return nil, nil
	}

	query := `SELECT ` + factColumns + `, c.sources
		FROM facts f
		JOIN (
			SELECT subject, predicate, COUNT(DISTINCT source_url) AS sources
			FROM facts GROUP BY subject, predicate
		) c ON c.subject = f.subject AND c.predicate = f.predicate
		WHERE ` + strings.Join(conds, " OR ") + `
		ORDER BY f.rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching facts: %w", err)
	}
	defer rows.Close()

	var candidates []model.Fact
	corr := corroborationCounts{}
	for rows.Next() {
		var f model.Fact
		var sources int
		if err := rows.Scan(&f.ID, &f.Subject, &f.Predicate, &f.Object, &f.SourceURL, &f.SourceName, &f.TruthWeight, &f.TS, &sources); err != nil {
			return nil, fmt.Errorf("scanning fact: %w", err)
		}
		corr[corroborationKey(f.Subject, f.Predicate)] = sources
		candidates = append(candidates, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("searching facts: %w", err)
	}

	return rank(s.scorer, candidates, terms, corr, limit), nil
}

// FactsBySubject implements FactStore
func (s *SQLiteStore) FactsBySubject(ctx context.Context, subject string, limit int) ([]model.Fact, error) {
	if limit <= 0 {
		limit = DefaultSubjectLimit
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+factColumns+" FROM facts f WHERE f.subject = ? ORDER BY f.rowid LIMIT ?",
		s.canon.Canonicalize(subject), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing facts by subject: %w", err)
	}
	defer rows.Close()

	var out []model.Fact
	for rows.Next() {
		var f model.Fact
		if err := rows.Scan(&f.ID, &f.Subject, &f.Predicate, &f.Object, &f.SourceURL, &f.SourceName, &f.TruthWeight, &f.TS); err != nil {
			return nil, fmt.Errorf("scanning fact: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// AddAliases implements FactStore
func (s *SQLiteStore) AddAliases(ctx context.Context, canonical string, aliases []string) error {
	added := s.canon.AddAliases(canonical, aliases)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning alias transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for alias, can := range added {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO aliases (alias, canonical) VALUES (?, ?) ON CONFLICT(alias) DO UPDATE SET canonical = excluded.canonical",
			alias, can,
		); err != nil {
			return fmt.Errorf("storing alias %q: %w", alias, err)
		}
	}
	return tx.Commit()
}

// Count implements FactStore
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM facts").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting facts: %w", err)
	}
	return n, nil
}

// Close implements FactStore
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// nullableWeight stores an absent prior as NULL
func nullableWeight(tw *float64) any {
	if tw == nil {
		return nil
	}
	return *tw
}

// corroborationCounts answers corroboration from counts computed in SQL
type corroborationCounts map[string]int

func (c corroborationCounts) Corroboration(subject, predicate string) (int, bool) {
	return c[corroborationKey(subject, predicate)], true
}

func corroborationKey(subject, predicate string) string {
	return subject + "\x00" + predicate
}
