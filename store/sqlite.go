package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nathoo/netquest/corpus"
	"github.com/nathoo/netquest/engine/rules"
	"github.com/nathoo/netquest/types"
)

// SQLiteStore is the authoring store: quest and mail definitions as JSON
// rows, edited by content tools and loaded into corpus snapshots.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) an authoring store at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	db, err := sql.Open("sqlite", filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer; also keeps ":memory:" databases on a single connection.
	db.SetMaxOpenConns(1)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite pragmas: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the SQLite connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS quests (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL DEFAULT '',
			seq INTEGER NOT NULL,
			body TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS mail (
			id TEXT PRIMARY KEY,
			seq INTEGER NOT NULL,
			body TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS quests_status ON quests(status);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CreateQuest inserts a new quest. Returns ErrDuplicate if the id exists.
func (s *SQLiteStore) CreateQuest(ctx context.Context, q types.QuestDefinition) error {
	q.ID = strings.TrimSpace(q.ID)
	if q.ID == "" {
		return fmt.Errorf("quest id is required")
	}
	body, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encode quest %s: %w", q.ID, err)
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO quests (id, status, seq, body, updated_at)
VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM quests), ?, ?)
ON CONFLICT(id) DO NOTHING
`, q.ID, q.Status, string(body), now())
	if err != nil {
		return fmt.Errorf("create quest %s: %w", q.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("quest %s: %w", q.ID, ErrDuplicate)
	}
	return nil
}

// UpdateQuest replaces an existing quest. Returns ErrNotFound if it does
// not exist.
func (s *SQLiteStore) UpdateQuest(ctx context.Context, q types.QuestDefinition) error {
	return updateQuest(ctx, s.db, q)
}

func updateQuest(ctx context.Context, db execer, q types.QuestDefinition) error {
	body, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encode quest %s: %w", q.ID, err)
	}
	res, err := db.ExecContext(ctx, `UPDATE quests SET status = ?, body = ?, updated_at = ? WHERE id = ?`,
		q.Status, string(body), now(), q.ID)
	if err != nil {
		return fmt.Errorf("update quest %s: %w", q.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("quest %s: %w", q.ID, ErrNotFound)
	}
	return nil
}

// GetQuest returns one quest.
func (s *SQLiteStore) GetQuest(ctx context.Context, id string) (*types.QuestDefinition, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM quests WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("quest %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get quest %s: %w", id, err)
	}
	var q types.QuestDefinition
	if err := json.Unmarshal([]byte(body), &q); err != nil {
		return nil, fmt.Errorf("decode quest %s: %w", id, err)
	}
	return &q, nil
}

// ListQuests returns quests in creation order. Drafts are skipped unless
// includeDrafts is set.
func (s *SQLiteStore) ListQuests(ctx context.Context, includeDrafts bool) ([]types.QuestDefinition, error) {
	return listQuests(ctx, s.db, includeDrafts)
}

func listQuests(ctx context.Context, db execer, includeDrafts bool) ([]types.QuestDefinition, error) {
	query := `SELECT body FROM quests ORDER BY seq`
	if !includeDrafts {
		query = `SELECT body FROM quests WHERE status <> '` + types.StatusDraft + `' ORDER BY seq`
	}
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list quests: %w", err)
	}
	defer rows.Close()

	var out []types.QuestDefinition
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("list quests: %w", err)
		}
		var q types.QuestDefinition
		if err := json.Unmarshal([]byte(body), &q); err != nil {
			return nil, fmt.Errorf("decode quest: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// DeleteQuest removes a quest and scrubs references to it from the rest of
// the content in the same transaction.
func (s *SQLiteStore) DeleteQuest(ctx context.Context, id string) error {
	return s.rewrite(ctx, func(c *corpus.Corpus) (*corpus.Corpus, error) {
		if !c.HasQuest(id) {
			return nil, fmt.Errorf("quest %s: %w", id, ErrNotFound)
		}
		return c.Without(id), nil
	})
}

// RenameQuest changes a quest id and every reference to it.
func (s *SQLiteStore) RenameQuest(ctx context.Context, oldID, newID string) error {
	return s.rewrite(ctx, func(c *corpus.Corpus) (*corpus.Corpus, error) {
		if !c.HasQuest(oldID) {
			return nil, fmt.Errorf("quest %s: %w", oldID, ErrNotFound)
		}
		if c.HasQuest(newID) {
			return nil, fmt.Errorf("quest %s: %w", newID, ErrDuplicate)
		}
		return c.Rename(oldID, newID)
	})
}

// Publish marks a draft quest as published. The quest must validate
// against the published corpus plus itself; otherwise a
// *corpus.ValidationError is returned and nothing changes. Publishing a
// quest that is not a draft is a no-op.
func (s *SQLiteStore) Publish(ctx context.Context, id string) error {
	q, err := s.GetQuest(ctx, id)
	if err != nil {
		return err
	}
	if !rules.IsDraft(q) {
		return nil
	}
	c, err := s.Corpus(ctx, false)
	if err != nil {
		return err
	}
	q.Status = types.StatusPublished
	if err := corpus.Validate(q, c).Err(); err != nil {
		return err
	}
	return s.UpdateQuest(ctx, *q)
}

// PutMail inserts or replaces a mail definition.
func (s *SQLiteStore) PutMail(ctx context.Context, m types.MailDefinition) error {
	return putMail(ctx, s.db, m)
}

func putMail(ctx context.Context, db execer, m types.MailDefinition) error {
	m.ID = strings.TrimSpace(m.ID)
	if m.ID == "" {
		return fmt.Errorf("mail id is required")
	}
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode mail %s: %w", m.ID, err)
	}
	_, err = db.ExecContext(ctx, `
INSERT INTO mail (id, seq, body, updated_at)
VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM mail), ?, ?)
ON CONFLICT(id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at
`, m.ID, string(body), now())
	if err != nil {
		return fmt.Errorf("put mail %s: %w", m.ID, err)
	}
	return nil
}

// GetMail returns one mail definition.
func (s *SQLiteStore) GetMail(ctx context.Context, id string) (*types.MailDefinition, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM mail WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("mail %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get mail %s: %w", id, err)
	}
	var m types.MailDefinition
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		return nil, fmt.Errorf("decode mail %s: %w", id, err)
	}
	return &m, nil
}

// ListMail returns every mail definition in creation order.
func (s *SQLiteStore) ListMail(ctx context.Context) ([]types.MailDefinition, error) {
	return listMail(ctx, s.db)
}

func listMail(ctx context.Context, db execer) ([]types.MailDefinition, error) {
	rows, err := db.QueryContext(ctx, `SELECT body FROM mail ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list mail: %w", err)
	}
	defer rows.Close()

	var out []types.MailDefinition
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("list mail: %w", err)
		}
		var m types.MailDefinition
		if err := json.Unmarshal([]byte(body), &m); err != nil {
			return nil, fmt.Errorf("decode mail: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteMail removes a mail definition and scrubs references to it.
func (s *SQLiteStore) DeleteMail(ctx context.Context, id string) error {
	return s.rewrite(ctx, func(c *corpus.Corpus) (*corpus.Corpus, error) {
		if !c.HasMail(id) {
			return nil, fmt.Errorf("mail %s: %w", id, ErrNotFound)
		}
		return c.WithoutMail(id), nil
	})
}

// Corpus loads an immutable snapshot of the stored content.
func (s *SQLiteStore) Corpus(ctx context.Context, includeDrafts bool) (*corpus.Corpus, error) {
	return loadCorpus(ctx, s.db, includeDrafts)
}

func loadCorpus(ctx context.Context, db execer, includeDrafts bool) (*corpus.Corpus, error) {
	quests, err := listQuests(ctx, db, includeDrafts)
	if err != nil {
		return nil, err
	}
	mail, err := listMail(ctx, db)
	if err != nil {
		return nil, err
	}
	return corpus.New(quests, mail), nil
}

// Import replaces the stored content with c in one transaction. Quests and
// mail missing from c are removed.
func (s *SQLiteStore) Import(ctx context.Context, c *corpus.Corpus) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		if err := clearContent(ctx, tx); err != nil {
			return err
		}
		return writeCorpus(ctx, tx, c)
	})
}

// rewrite applies fn to the full content (drafts included) and writes the
// result back, deleting rows that fn removed.
func (s *SQLiteStore) rewrite(ctx context.Context, fn func(*corpus.Corpus) (*corpus.Corpus, error)) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		c, err := loadCorpus(ctx, tx, true)
		if err != nil {
			return err
		}
		next, err := fn(c)
		if err != nil {
			return err
		}
		if err := clearContent(ctx, tx); err != nil {
			return err
		}
		return writeCorpus(ctx, tx, next)
	})
}

func clearContent(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM quests`); err != nil {
		return fmt.Errorf("clear quests: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM mail`); err != nil {
		return fmt.Errorf("clear mail: %w", err)
	}
	return nil
}

func writeCorpus(ctx context.Context, tx *sql.Tx, c *corpus.Corpus) error {
	for _, q := range c.Quests() {
		body, err := json.Marshal(q)
		if err != nil {
			return fmt.Errorf("encode quest %s: %w", q.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO quests (id, status, seq, body, updated_at)
VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM quests), ?, ?)
ON CONFLICT(id) DO UPDATE SET status = excluded.status, body = excluded.body, updated_at = excluded.updated_at
`, q.ID, q.Status, string(body), now())
		if err != nil {
			return fmt.Errorf("write quest %s: %w", q.ID, err)
		}
	}
	for _, m := range c.Mails() {
		if err := putMail(ctx, tx, *m); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) tx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func now() int64 {
	return time.Now().UTC().UnixMilli()
}
