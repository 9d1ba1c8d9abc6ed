package journal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultBatchSize = 512

// PGStore implements Journal backed by a PostgreSQL table. Ordering is a
// BIGSERIAL, so it is assigned on commit and strictly increasing per tag.
type PGStore struct {
	pool      *pgxpool.Pool
	table     string
	batchSize int
	logger    *slog.Logger

	mu           sync.Mutex // guards tableCreated; many publishers share one store
	tableCreated bool
}

// PGOption configures a PGStore.
type PGOption func(*PGStore)

// WithTable overrides the journal table name (default: tagstream_journal).
func WithTable(name string) PGOption {
	return func(s *PGStore) { s.table = name }
}

// WithBatchSize caps the number of rows returned per EventsByTag query
// (default: 512). Publishers apply their own buffer-capacity cap on top.
func WithBatchSize(n int) PGOption {
	return func(s *PGStore) { s.batchSize = n }
}

// NewPGStore connects to PostgreSQL and returns a journal store. The journal
// table is auto-created on first use.
func NewPGStore(ctx context.Context, connStr string, logger *slog.Logger, opts ...PGOption) (*PGStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("journal connect: %w", err)
	}

	s := &PGStore{
		pool:      pool,
		table:     "tagstream_journal",
		batchSize: defaultBatchSize,
		logger:    logger.With("component", "journal"),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func (s *PGStore) ensureTable(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tableCreated {
		return nil
	}

	safeTable := pgx.Identifier{s.table}.Sanitize()
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			ordering   BIGSERIAL PRIMARY KEY,
			tag        TEXT NOT NULL,
			payload    BYTEA NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`, safeTable))
	if err != nil {
		return fmt.Errorf("create journal table: %w", err)
	}
	_, err = s.pool.Exec(ctx, fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s ON %s (tag, ordering)",
		pgx.Identifier{s.table + "_tag_ordering_idx"}.Sanitize(), safeTable,
	))
	if err != nil {
		return fmt.Errorf("create journal index: %w", err)
	}

	s.tableCreated = true
	return nil
}

// Append stores payload under tag and returns the assigned ordering.
func (s *PGStore) Append(ctx context.Context, tag string, payload []byte) (uint64, error) {
	if err := s.ensureTable(ctx); err != nil {
		return 0, err
	}

	var ordering int64
	err := s.pool.QueryRow(ctx, fmt.Sprintf(
		"INSERT INTO %s (tag, payload) VALUES ($1, $2) RETURNING ordering",
		pgx.Identifier{s.table}.Sanitize(),
	), tag, payload).Scan(&ordering)
	if err != nil {
		return 0, fmt.Errorf("append journal entry: %w", err)
	}
	return uint64(ordering), nil
}

// EventsByTag returns up to batchSize entries for tag with ordering >=
// fromOffset, ordered ascending.
func (s *PGStore) EventsByTag(ctx context.Context, tag string, fromOffset uint64) ([]Entry, error) {
	if err := s.ensureTable(ctx); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		"SELECT ordering, payload FROM %s WHERE tag = $1 AND ordering >= $2 ORDER BY ordering LIMIT $3",
		pgx.Identifier{s.table}.Sanitize(),
	), tag, int64(fromOffset), s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var ordering int64
		var payload []byte
		if err := rows.Scan(&ordering, &payload); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		entries = append(entries, Entry{Ordering: uint64(ordering), Payload: payload})
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("read journal rows: %w", rows.Err())
	}
	return entries, nil
}

// HighestOffset returns the highest ordering stored for tag, and false if the
// tag has no entries.
func (s *PGStore) HighestOffset(ctx context.Context, tag string) (uint64, bool, error) {
	if err := s.ensureTable(ctx); err != nil {
		return 0, false, err
	}

	var ordering int64
	err := s.pool.QueryRow(ctx, fmt.Sprintf(
		"SELECT ordering FROM %s WHERE tag = $1 ORDER BY ordering DESC LIMIT 1",
		pgx.Identifier{s.table}.Sanitize(),
	), tag).Scan(&ordering)
	if err == pgx.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("query highest offset: %w", err)
	}
	return uint64(ordering), true, nil
}

// Close releases the underlying connection pool.
func (s *PGStore) Close() {
	done := make(chan struct{})
	go func() {
		s.pool.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		s.logger.Warn("journal pool close timed out")
	}
}
