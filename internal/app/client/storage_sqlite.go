package client

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	_ "github.com/mattn/go-sqlite3"

	"stefabooks/internal/domain/book"
)

const (
	metaLastSync     = "last_sync"
	metaCacheVersion = "cache_version"
	metaDataHash     = "data_hash"
)

// SQLiteStorage хранит книги построчно (с сохранением порядка) и метаданные кеша в key-value таблице.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	storage := &SQLiteStorage{db: db, path: path}

	if err := storage.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite tables: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) initTables() error {
	// position, а не id: SetBooks не запрещает дубликаты id
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS books (
			position INTEGER PRIMARY KEY,
			id TEXT NOT NULL,
			payload TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_books_id ON books(id);

		CREATE TABLE IF NOT EXISTS cache_meta (
			key TEXT PRIMARY KEY,
			value TEXT
		);
	`)

	return err
}

func (s *SQLiteStorage) Load() (*State, error) {
	state := NewState()

	rows, err := s.db.Query("SELECT payload FROM books ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}

		var b book.Book
		if err := json.Unmarshal([]byte(payload), &b); err != nil {
			return nil, fmt.Errorf("parse book: %w", err)
		}
		state.Books = append(state.Books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}

	meta, err := s.loadMeta()
	if err != nil {
		return nil, err
	}

	if v, ok := meta[metaLastSync]; ok && v.Valid {
		ms, err := strconv.ParseInt(v.String, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse last_sync: %w", err)
		}
		state.LastSync = &ms
	}
	if v, ok := meta[metaCacheVersion]; ok && v.Valid {
		state.CacheVersion = v.String
	}
	if v, ok := meta[metaDataHash]; ok && v.Valid {
		hash := v.String
		state.DataHash = &hash
	}

	return state.normalize(), nil
}

func (s *SQLiteStorage) loadMeta() (map[string]sql.NullString, error) {
	rows, err := s.db.Query("SELECT key, value FROM cache_meta")
	if err != nil {
		return nil, fmt.Errorf("query cache meta: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]sql.NullString)
	for rows.Next() {
		var key string
		var value sql.NullString
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan cache meta: %w", err)
		}
		meta[key] = value
	}

	return meta, rows.Err()
}

func (s *SQLiteStorage) Save(state *State) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.Exec("DELETE FROM books"); err != nil {
		return fmt.Errorf("clear books: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO books (position, id, payload) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, b := range state.Books {
		payload, mErr := json.Marshal(b)
		if mErr != nil {
			err = fmt.Errorf("encode book %s: %w", b.ID, mErr)
			return err
		}
		if _, err = stmt.Exec(i, b.ID, string(payload)); err != nil {
			return fmt.Errorf("insert book %s: %w", b.ID, err)
		}
	}

	var lastSync sql.NullString
	if state.LastSync != nil {
		lastSync = sql.NullString{String: strconv.FormatInt(*state.LastSync, 10), Valid: true}
	}
	var dataHash sql.NullString
	if state.DataHash != nil {
		dataHash = sql.NullString{String: *state.DataHash, Valid: true}
	}

	meta := map[string]sql.NullString{
		metaLastSync:     lastSync,
		metaCacheVersion: {String: state.CacheVersion, Valid: true},
		metaDataHash:     dataHash,
	}
	for key, value := range meta {
		if _, err = tx.Exec(`
			INSERT INTO cache_meta (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, key, value); err != nil {
			return fmt.Errorf("save cache meta %s: %w", key, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func (s *SQLiteStorage) Path() string {
	return s.path
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
