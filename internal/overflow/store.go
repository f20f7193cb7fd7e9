package overflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"codenav/internal/config"
)

// ErrNotFound is returned when an overflow record does not exist, has
// expired, or the requested page is out of range.
var ErrNotFound = errors.New("overflow record not found")

// Record describes a stored overflow payload without its items.
type Record struct {
	ID         string    `json:"id"`
	Label      string    `json:"label"`
	PageSize   int       `json:"pageSize"`
	TotalCount int       `json:"totalCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Pages returns how many pages the record spans.
func (r Record) Pages() int {
	if r.PageSize <= 0 || r.TotalCount <= 0 {
		return 0
	}
	return (r.TotalCount + r.PageSize - 1) / r.PageSize
}

// Page is one slice of a stored result set. Page numbers are 1-based and
// items keep the order they were written in.
type Page struct {
	RecordID   string            `json:"recordId"`
	Label      string            `json:"label"`
	Number     int               `json:"page"`
	PageCount  int               `json:"pageCount"`
	PageSize   int               `json:"pageSize"`
	TotalCount int               `json:"totalCount"`
	Items      []json.RawMessage `json:"items"`
}

// Stats summarizes what a store currently holds.
type Stats struct {
	Records      int   `json:"records"`
	PayloadBytes int64 `json:"payloadBytes"`
	OldestUnix   int64 `json:"oldestUnix,omitempty"`
}

// Store persists the full result sets that truncated responses point back
// to. Records are written once and read by page until they expire.
type Store interface {
	// Put stores items under a fresh opaque id and returns the record.
	Put(ctx context.Context, label string, items []interface{}) (Record, error)
	// Get returns the record metadata for id.
	Get(ctx context.Context, id string) (Record, error)
	// GetPage returns the 1-based page of a stored record.
	GetPage(ctx context.Context, id string, page int) (Page, error)
	// Stats reports record count and payload volume.
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// New opens the store selected by cfg.Driver.
func New(projectRoot string, cfg config.OverflowConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return OpenSQLite(projectRoot, cfg, logger)
	case "memory":
		return NewMemStore(cfg), nil
	default:
		return nil, fmt.Errorf("unknown overflow driver %q", cfg.Driver)
	}
}

// encodeItems marshals every item individually so pages can be sliced
// without re-encoding, then packs them into a single JSON array.
func encodeItems(items []interface{}) ([]byte, error) {
	raw := make([]json.RawMessage, 0, len(items))
	for i, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("failed to encode overflow item %d: %w", i, err)
		}
		raw = append(raw, json.RawMessage(data))
	}
	return json.Marshal(raw)
}

func decodeItems(payload []byte) ([]json.RawMessage, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode overflow payload: %w", err)
	}
	return raw, nil
}

// slicePage cuts the 1-based page out of raw. The final page may be short.
func slicePage(rec Record, raw []json.RawMessage, page int) (Page, error) {
	pageCount := rec.Pages()
	if page < 1 || page > pageCount {
		return Page{}, fmt.Errorf("%w: page %d of record %s (%d pages)", ErrNotFound, page, rec.ID, pageCount)
	}
	start := (page - 1) * rec.PageSize
	end := start + rec.PageSize
	if end > len(raw) {
		end = len(raw)
	}
	return Page{
		RecordID:   rec.ID,
		Label:      rec.Label,
		Number:     page,
		PageCount:  pageCount,
		PageSize:   rec.PageSize,
		TotalCount: rec.TotalCount,
		Items:      raw[start:end],
	}, nil
}
