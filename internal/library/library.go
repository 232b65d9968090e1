package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/logic/strip"
)

// Entry is one saved photostrip.
type Entry struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	Path      string    `json:"-"`
	SessionID string    `json:"session_id"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	FileSize  int64     `json:"file_size"`
	CreatedAt time.Time `json:"created_at"`
}

// Share is one attempt to send a session's strip.
type Share struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Target    string    `json:"target"`
	Recipient string    `json:"recipient"`
	OK        bool      `json:"ok"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Library stores strips as JPEG files in a directory, indexed in SQLite.
type Library struct {
	dir  string
	conn *sql.DB
	mu   sync.RWMutex

	session string
	now     func() time.Time
}

// Open creates dir if needed and opens (or creates) the index at dbPath.
func Open(dir, dbPath string) (*Library, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create library dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}

	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	l := &Library{dir: dir, conn: conn, now: time.Now}
	if err := l.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	debug.Verbose("Library: dir=%s db=%s", dir, dbPath)
	return l, nil
}

func (l *Library) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS strips (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT NOT NULL UNIQUE,
		session_id TEXT NOT NULL DEFAULT '',
		width INTEGER DEFAULT 0,
		height INTEGER DEFAULT 0,
		filesize INTEGER DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS shares (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		target TEXT NOT NULL,
		recipient TEXT NOT NULL,
		ok INTEGER NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_strips_created_at ON strips(created_at);
	CREATE INDEX IF NOT EXISTS idx_shares_session_id ON shares(session_id);
	`
	_, err := l.conn.Exec(schema)
	return err
}

// Dir returns the directory holding the JPEG files.
func (l *Library) Dir() string {
	return l.dir
}

// Close closes the index.
func (l *Library) Close() error {
	return l.conn.Close()
}

// SetSession tags entries saved from now on with id.
func (l *Library) SetSession(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.session = id
}

// Saver adapts the library to the strip manager.
func (l *Library) Saver() strip.Saver {
	return strip.SaverFunc(func(ctx context.Context, img image.Image) error {
		_, err := l.Save(ctx, img)
		return err
	})
}

// Save writes img as strip-YYYYMMDD-HHMMSS-<id>.jpg and indexes it. The
// file is written to a temporary name first so a crash never leaves a
// truncated JPEG behind.
func (l *Library) Save(ctx context.Context, img image.Image) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().UTC()
	name := fmt.Sprintf("strip-%s-%s.jpg", now.Format("20060102-150405"), uuid.NewString()[:8])
	path := filepath.Join(l.dir, name)

	size, err := writeJPEG(l.dir, path, img)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	e := &Entry{
		Filename:  name,
		Path:      path,
		SessionID: l.session,
		Width:     b.Dx(),
		Height:    b.Dy(),
		FileSize:  size,
		CreatedAt: now,
	}
	res, err := l.conn.ExecContext(ctx, `
		INSERT INTO strips (filename, session_id, width, height, filesize, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.Filename, e.SessionID, e.Width, e.Height, e.FileSize, e.CreatedAt)
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to insert strip: %w", err)
	}
	e.ID, _ = res.LastInsertId()

	debug.Info("Photostrip saved: %s (%d bytes)", name, size)
	return e, nil
}

func writeJPEG(dir, path string, img image.Image) (int64, error) {
	tmp, err := os.CreateTemp(dir, ".strip-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := strip.Encode(tmp, img); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("encode strip: %w", err)
	}
	info, err := tmp.Stat()
	if err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("rename strip: %w", err)
	}
	return info.Size(), nil
}

// List returns up to limit entries, newest first. limit <= 0 means all.
func (l *Library) List(ctx context.Context, limit int) ([]Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	query := `
		SELECT id, filename, session_id, width, height, filesize, created_at
		FROM strips ORDER BY created_at DESC, id DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list strips: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Filename, &e.SessionID, &e.Width, &e.Height, &e.FileSize, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan strip: %w", err)
		}
		e.Path = filepath.Join(l.dir, e.Filename)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns the entry with the given file name, or nil.
func (l *Library) Get(ctx context.Context, filename string) (*Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var e Entry
	err := l.conn.QueryRowContext(ctx, `
		SELECT id, filename, session_id, width, height, filesize, created_at
		FROM strips WHERE filename = ?
	`, filename).Scan(&e.ID, &e.Filename, &e.SessionID, &e.Width, &e.Height, &e.FileSize, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get strip: %w", err)
	}
	e.Path = filepath.Join(l.dir, e.Filename)
	return &e, nil
}

// RecordShare logs a share attempt. sendErr nil means it succeeded.
func (l *Library) RecordShare(ctx context.Context, sessionID, target, recipient string, sendErr error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := ""
	if sendErr != nil {
		msg = sendErr.Error()
	}
	_, err := l.conn.ExecContext(ctx, `
		INSERT INTO shares (session_id, target, recipient, ok, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sessionID, target, recipient, sendErr == nil, msg, l.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record share: %w", err)
	}
	return nil
}

// Shares returns the share log of a session, oldest first.
func (l *Library) Shares(ctx context.Context, sessionID string) ([]Share, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rows, err := l.conn.QueryContext(ctx, `
		SELECT id, session_id, target, recipient, ok, error, created_at
		FROM shares WHERE session_id = ? ORDER BY id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shares: %w", err)
	}
	defer rows.Close()

	shares := []Share{}
	for rows.Next() {
		var s Share
		if err := rows.Scan(&s.ID, &s.SessionID, &s.Target, &s.Recipient, &s.OK, &s.Error, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan share: %w", err)
		}
		shares = append(shares, s)
	}
	return shares, rows.Err()
}
