// Package sqlite provides a SQLite-backed RosterStore.
package sqlite

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

	"github.com/dkeye/Rota/internal/core"
	"github.com/dkeye/Rota/internal/domain"
	"github.com/dkeye/Rota/internal/storage"
)

const driver = "sqlite"

const schema = `CREATE TABLE IF NOT EXISTS rosters (
	group_id        INTEGER NOT NULL,
	kind            TEXT    NOT NULL,
	members         TEXT    NOT NULL,
	cursor_index    INTEGER NOT NULL,
	announcement_id TEXT    NOT NULL DEFAULT '',
	updated_at      INTEGER NOT NULL,
	PRIMARY KEY (group_id, kind)
)`

// Store persists rosters in one SQLite table. Every cycle runs inside an
// IMMEDIATE transaction, so the write lock is taken before the row is read.
type Store struct {
	sqlDB *sql.DB
}

var _ core.RosterStore = (*Store)(nil)

// Open opens path and creates the schema when needed.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := "file:" + cleanPath +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// load reads one row inside tx. found is false when the row is absent.
// An unreadable members column is reset to an empty roster.
func load(ctx context.Context, tx *sql.Tx, key domain.Key) (domain.Roster, bool, error) {
	var (
		members        string
		cursor         int
		announcementID string
	)
	err := tx.QueryRowContext(ctx,
		`SELECT members, cursor_index, announcement_id FROM rosters WHERE group_id = ? AND kind = ?`,
		int64(key.Group), string(key.Kind),
	).Scan(&members, &cursor, &announcementID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Roster{}, false, nil
	}
	if err != nil {
		return domain.Roster{}, false, fmt.Errorf("get roster %s: %w", key, err)
	}

	r := domain.Roster{Cursor: cursor, AnnouncementID: announcementID}
	if err := json.Unmarshal([]byte(members), &r.Members); err != nil {
		storage.Corrupt(driver, key.String(), err)
		return domain.Roster{}, true, nil
	}
	return r, true, nil
}

func save(ctx context.Context, tx *sql.Tx, key domain.Key, r domain.Roster) error {
	members := r.Members
	if members == nil {
		members = []domain.Member{}
	}
	raw, err := json.Marshal(members)
	if err != nil {
		return fmt.Errorf("encode members: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO rosters (group_id, kind, members, cursor_index, announcement_id, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (group_id, kind) DO UPDATE SET
		   members = excluded.members,
		   cursor_index = excluded.cursor_index,
		   announcement_id = excluded.announcement_id,
		   updated_at = excluded.updated_at`,
		int64(key.Group), string(key.Kind), string(raw), r.Cursor, r.AnnouncementID,
		time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put roster %s: %w", key, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key domain.Key) (domain.Roster, error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Roster{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	r, found, err := load(ctx, tx, key)
	if err != nil {
		return domain.Roster{}, err
	}
	if !found {
		if err := save(ctx, tx, key, r); err != nil {
			return domain.Roster{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.Roster{}, fmt.Errorf("commit: %w", err)
	}
	return r, nil
}

func (s *Store) Update(ctx context.Context, key domain.Key, fn core.Mutator) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cur, _, err := load(ctx, tx, key)
	if err != nil {
		return err
	}
	next, commit, err := storage.Apply(key, cur, fn)
	if err != nil || !commit {
		return err
	}
	if err := save(ctx, tx, key, next); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) Groups(ctx context.Context) ([]domain.GroupID, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT DISTINCT group_id FROM rosters
		 WHERE CASE WHEN json_valid(members) THEN json_array_length(members) ELSE 0 END > 0
		 ORDER BY group_id`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var out []domain.GroupID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		out = append(out, domain.GroupID(id))
	}
	return out, rows.Err()
}

// exec runs a raw statement. Tests use it to plant broken rows.
func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	_, err := s.sqlDB.ExecContext(ctx, query, args...)
	return err
}
