package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/dhanaBhai/unposted/internal/model"
	"github.com/dhanaBhai/unposted/internal/store/sqlite/migrations"
)

// Sealer encrypts audio payloads on their way to disk and decrypts them on
// the way back. Entries carrying the Encrypted flag require one.
type Sealer interface {
	Seal(plain []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// EntryStore implements store.EntryStore on a local SQLite database.
type EntryStore struct {
	db     *sql.DB
	sealer Sealer
}

// Option configures the store.
type Option func(*EntryStore)

// WithSealer arms encryption at rest for audio payloads.
func WithSealer(s Sealer) Option {
	return func(es *EntryStore) { es.sealer = s }
}

// New opens (or creates) the database at path, applies the embedded
// migrations, and returns the store.
func New(ctx context.Context, path string, opts ...Option) (*EntryStore, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewWithDB(db, opts...), nil
}

// NewWithDB wires the store onto an existing connection whose schema is
// already migrated.
func NewWithDB(db *sql.DB, opts ...Option) *EntryStore {
	es := &EntryStore{db: db}
	for _, opt := range opts {
		opt(es)
	}
	return es
}

// RunMigrations applies the embedded goose migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// DB exposes the underlying *sql.DB connection (local-only use case).
func (s *EntryStore) DB() *sql.DB {
	return s.db
}

// Put upserts by id with a single statement; created_at is written once and
// never touched by the conflict branch.
func (s *EntryStore) Put(ctx context.Context, e *model.Entry) error {
	audio := e.Audio
	if e.Encrypted {
		if s.sealer == nil {
			return fmt.Errorf("entry %s marked encrypted but store has no sealer", e.ID)
		}
		sealed, err := s.sealer.Seal(e.Audio)
		if err != nil {
			return fmt.Errorf("seal audio: %w", err)
		}
		audio = sealed
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO entries (id, created_at, transcript, duration, audio, encrypted, title)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			transcript = excluded.transcript,
			duration   = excluded.duration,
			audio      = excluded.audio,
			encrypted  = excluded.encrypted,
			title      = excluded.title`,
		e.ID, e.CreatedAt.UTC(), e.Transcript, e.Duration, audio, e.Encrypted, e.Title)
	if err != nil {
		return fmt.Errorf("upsert entry: %w", err)
	}
	return nil
}

func (s *EntryStore) GetAll(ctx context.Context) ([]*model.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, created_at, transcript, duration, audio, encrypted, title FROM entries`)
	if err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}
	defer rows.Close()

	var result []*model.Entry
	for rows.Next() {
		var e model.Entry
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.Transcript, &e.Duration, &e.Audio, &e.Encrypted, &e.Title); err != nil {
			return nil, err
		}
		e.CreatedAt = e.CreatedAt.UTC()
		if e.Encrypted {
			if s.sealer == nil {
				return nil, fmt.Errorf("entry %s is encrypted but store has no sealer", e.ID)
			}
			plain, err := s.sealer.Open(e.Audio)
			if err != nil {
				return nil, fmt.Errorf("open audio for entry %s: %w", e.ID, err)
			}
			e.Audio = plain
		}
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *EntryStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

func (s *EntryStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return fmt.Errorf("clear entries: %w", err)
	}
	return nil
}

func (s *EntryStore) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *EntryStore) Close() error {
	return s.db.Close()
}
