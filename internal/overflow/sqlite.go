package overflow

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"codenav/internal/config"
)

const overflowSchema = `
CREATE TABLE IF NOT EXISTS overflow_records (
    id TEXT PRIMARY KEY,
    label TEXT NOT NULL,
    page_size INTEGER NOT NULL,
    total_count INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    payload BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_overflow_created ON overflow_records(created_at);
`

// SQLiteStore keeps overflow payloads in a SQLite database under the
// project root. Payloads are zstd-compressed JSON arrays. Expired and
// surplus records are evicted inline on every write.
type SQLiteStore struct {
	conn       *sql.DB
	logger     *slog.Logger
	pageSize   int
	ttl        time.Duration
	maxRecords int
	enc        *zstd.Encoder
	dec        *zstd.Decoder
}

// OpenSQLite opens or creates the overflow database at cfg.Path, resolved
// against projectRoot.
func OpenSQLite(projectRoot string, cfg config.OverflowConfig, logger *slog.Logger) (*SQLiteStore, error) {
	dbPath := cfg.Path
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(projectRoot, dbPath)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create overflow directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open overflow database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",   // Write-Ahead Logging for better concurrency
		"PRAGMA synchronous=NORMAL", // Balance between safety and performance
		"PRAGMA busy_timeout=5000",  // Wait up to 5 seconds on lock
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := conn.Exec(overflowSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize overflow schema: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &SQLiteStore{
		conn:       conn,
		logger:     logger,
		pageSize:   normalizePageSize(cfg.PageSize),
		ttl:        time.Duration(cfg.TTLSeconds) * time.Second,
		maxRecords: cfg.MaxRecords,
		enc:        enc,
		dec:        dec,
	}, nil
}

// Put stores items under a fresh record id and evicts expired or surplus
// records in the same transaction.
func (s *SQLiteStore) Put(ctx context.Context, label string, items []interface{}) (Record, error) {
	payload, err := encodeItems(items)
	if err != nil {
		return Record{}, err
	}
	compressed := s.enc.EncodeAll(payload, nil)

	rec := Record{
		ID:         uuid.NewString(),
		Label:      label,
		PageSize:   s.pageSize,
		TotalCount: len(items),
		CreatedAt:  time.Now(),
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, fmt.Errorf("failed to begin overflow transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO overflow_records (id, label, page_size, total_count, created_at, payload)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Label, rec.PageSize, rec.TotalCount, rec.CreatedAt.Unix(), compressed)
	if err != nil {
		return Record{}, fmt.Errorf("failed to store overflow record: %w", err)
	}

	if err := s.evict(ctx, tx, rec.CreatedAt); err != nil {
		return Record{}, err
	}

	if err := tx.Commit(); err != nil {
		return Record{}, fmt.Errorf("failed to commit overflow record: %w", err)
	}

	s.logger.Debug("stored overflow record",
		"id", rec.ID,
		"label", label,
		"items", rec.TotalCount,
		"pages", rec.Pages(),
		"bytes", len(compressed))
	return rec, nil
}

// evict removes expired records and, when the table is over capacity, the
// oldest records beyond maxRecords.
func (s *SQLiteStore) evict(ctx context.Context, tx *sql.Tx, now time.Time) error {
	if s.ttl > 0 {
		cutoff := now.Add(-s.ttl).Unix()
		if _, err := tx.ExecContext(ctx, "DELETE FROM overflow_records WHERE created_at < ?", cutoff); err != nil {
			return fmt.Errorf("failed to evict expired overflow records: %w", err)
		}
	}

	if s.maxRecords <= 0 {
		return nil
	}
	var count int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM overflow_records").Scan(&count); err != nil {
		return fmt.Errorf("failed to count overflow records: %w", err)
	}
	if count <= s.maxRecords {
		return nil
	}
	// rowid breaks created_at ties in insertion order, so a record can
	// never be evicted by the write that created it.
	_, err := tx.ExecContext(ctx, `
		DELETE FROM overflow_records WHERE id IN (
			SELECT id FROM overflow_records ORDER BY created_at ASC, rowid ASC LIMIT ?
		)
	`, count-s.maxRecords)
	if err != nil {
		return fmt.Errorf("failed to evict surplus overflow records: %w", err)
	}
	return nil
}

// Get returns the record metadata for id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (Record, error) {
	rec, _, err := s.load(ctx, id, false)
	return rec, err
}

// GetPage returns the 1-based page of a stored record.
func (s *SQLiteStore) GetPage(ctx context.Context, id string, page int) (Page, error) {
	rec, compressed, err := s.load(ctx, id, true)
	if err != nil {
		return Page{}, err
	}

	payload, err := s.dec.DecodeAll(compressed, nil)
	if err != nil {
		return Page{}, fmt.Errorf("failed to decompress overflow payload: %w", err)
	}
	raw, err := decodeItems(payload)
	if err != nil {
		return Page{}, err
	}
	return slicePage(rec, raw, page)
}

// load reads one record row, checking expiry on the way. Expired rows are
// deleted and reported as missing.
func (s *SQLiteStore) load(ctx context.Context, id string, withPayload bool) (Record, []byte, error) {
	var (
		rec       Record
		createdAt int64
		payload   []byte
	)
	var err error
	if withPayload {
		err = s.conn.QueryRowContext(ctx, `
			SELECT id, label, page_size, total_count, created_at, payload
			FROM overflow_records WHERE id = ?
		`, id).Scan(&rec.ID, &rec.Label, &rec.PageSize, &rec.TotalCount, &createdAt, &payload)
	} else {
		err = s.conn.QueryRowContext(ctx, `
			SELECT id, label, page_size, total_count, created_at
			FROM overflow_records WHERE id = ?
		`, id).Scan(&rec.ID, &rec.Label, &rec.PageSize, &rec.TotalCount, &createdAt)
	}
	if err == sql.ErrNoRows {
		return Record{}, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, nil, fmt.Errorf("overflow lookup failed: %w", err)
	}

	rec.CreatedAt = time.Unix(createdAt, 0)
	if s.ttl > 0 && time.Since(rec.CreatedAt) > s.ttl {
		s.conn.ExecContext(ctx, "DELETE FROM overflow_records WHERE id = ?", id)
		return Record{}, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, payload, nil
}

// Stats reports record count, stored payload volume and the oldest record.
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	var oldest sql.NullInt64
	err := s.conn.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(LENGTH(payload)), 0), MIN(created_at)
		FROM overflow_records
	`).Scan(&stats.Records, &stats.PayloadBytes, &oldest)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to get overflow stats: %w", err)
	}
	if oldest.Valid {
		stats.OldestUnix = oldest.Int64
	}
	return stats, nil
}

// Close releases the compressors and the database connection.
func (s *SQLiteStore) Close() error {
	s.enc.Close()
	s.dec.Close()
	return s.conn.Close()
}

func normalizePageSize(n int) int {
	if n <= 0 {
		return 100
	}
	return n
}
