package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the single-node backend.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and initializes the schema.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't support multiple writers well
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT PRIMARY KEY,
		owner_id   TEXT NOT NULL,
		tag        TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_owner ON sessions(owner_id, updated_at);

	-- seq keeps insertion order independent of clock resolution
	CREATE TABLE IF NOT EXISTS messages (
		seq        INTEGER PRIMARY KEY AUTOINCREMENT,
		id         TEXT NOT NULL UNIQUE,
		session_id TEXT NOT NULL,
		turn_id    TEXT NOT NULL,
		role       TEXT NOT NULL,
		content    TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, seq);

	CREATE TABLE IF NOT EXISTS collections (
		id         TEXT PRIMARY KEY,
		owner_id   TEXT NOT NULL,
		name       TEXT NOT NULL,
		color      TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_collections_owner ON collections(owner_id);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*Session, error) {
	var sess Session
	var updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, tag, updated_at FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.OwnerID, &sess.Tag, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite GetSession: %w", err)
	}
	sess.UpdatedAt = time.Unix(0, updated).UTC()
	return &sess, nil
}

func (s *SQLiteStore) ClaimSession(ctx context.Context, meta *Session) (*Session, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, owner_id, tag, updated_at) VALUES (?, ?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		meta.ID, meta.OwnerID, meta.Tag, meta.UpdatedAt.UnixNano()); err != nil {
		return nil, fmt.Errorf("sqlite ClaimSession: %w", err)
	}
	return s.GetSession(ctx, meta.ID)
}

func (s *SQLiteStore) ListSessions(ctx context.Context, ownerID string) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, tag, updated_at FROM sessions WHERE owner_id = ? ORDER BY updated_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("sqlite ListSessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		var sess Session
		var updated int64
		if err := rows.Scan(&sess.ID, &sess.OwnerID, &sess.Tag, &updated); err != nil {
			return nil, fmt.Errorf("sqlite ListSessions scan: %w", err)
		}
		sess.UpdatedAt = time.Unix(0, updated).UTC()
		out = append(out, &sess)
	}
	return out, rows.Err()
}

const insertMessage = `INSERT INTO messages (id, session_id, turn_id, role, content, created_at) VALUES (?, ?, ?, ?, ?, ?)`

func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *Message) error {
	_, err := s.db.ExecContext(ctx, insertMessage,
		msg.ID, msg.SessionID, msg.TurnID, string(msg.Role), msg.Content, msg.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("sqlite AppendMessage: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecordReply(ctx context.Context, meta *Session, reply *Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite RecordReply: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, insertMessage,
		reply.ID, reply.SessionID, reply.TurnID, string(reply.Role), reply.Content, reply.CreatedAt.UnixNano()); err != nil {
		return fmt.Errorf("sqlite RecordReply message: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (id, owner_id, tag, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET owner_id = excluded.owner_id, tag = excluded.tag, updated_at = excluded.updated_at`,
		meta.ID, meta.OwnerID, meta.Tag, meta.UpdatedAt.UnixNano()); err != nil {
		return fmt.Errorf("sqlite RecordReply session: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListMessages(ctx context.Context, sessionID string, limit int) ([]*Message, error) {
	q := `SELECT id, session_id, turn_id, role, content, created_at FROM (
		SELECT * FROM messages WHERE session_id = ? ORDER BY seq DESC LIMIT ?
	) ORDER BY seq ASC`
	if limit <= 0 {
		limit = -1 // no limit
	}

	rows, err := s.db.QueryContext(ctx, q, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite ListMessages: %w", err)
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		var m Message
		var role string
		var created int64
		if err := rows.Scan(&m.ID, &m.SessionID, &m.TurnID, &role, &m.Content, &created); err != nil {
			return nil, fmt.Errorf("sqlite ListMessages scan: %w", err)
		}
		m.Role = Role(role)
		m.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CreateCollection(ctx context.Context, c *Collection) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO collections (id, owner_id, name, color, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.OwnerID, c.Name, c.Color, c.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("sqlite CreateCollection: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListCollections(ctx context.Context, ownerID string) ([]*Collection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, name, color, created_at FROM collections WHERE owner_id = ? ORDER BY created_at ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("sqlite ListCollections: %w", err)
	}
	defer rows.Close()

	var out []*Collection
	for rows.Next() {
		var c Collection
		var created int64
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Color, &created); err != nil {
			return nil, fmt.Errorf("sqlite ListCollections scan: %w", err)
		}
		c.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, &c)
	}
	return out, rows.Err()
}
