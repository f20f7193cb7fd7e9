package overflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"codenav/internal/config"
)

type memRecord struct {
	rec   Record
	items []json.RawMessage
	bytes int64
	seq   uint64
}

// MemStore is the in-memory overflow driver. It applies the same retention
// rules as the SQLite store and is safe for concurrent use.
type MemStore struct {
	mu         sync.RWMutex
	records    map[string]*memRecord
	pageSize   int
	ttl        time.Duration
	maxRecords int
	seq        uint64
	now        func() time.Time
}

// NewMemStore builds an in-memory store from cfg.
func NewMemStore(cfg config.OverflowConfig) *MemStore {
	return &MemStore{
		records:    make(map[string]*memRecord),
		pageSize:   normalizePageSize(cfg.PageSize),
		ttl:        time.Duration(cfg.TTLSeconds) * time.Second,
		maxRecords: cfg.MaxRecords,
		now:        time.Now,
	}
}

// Put stores items under a fresh record id.
func (s *MemStore) Put(ctx context.Context, label string, items []interface{}) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	raw := make([]json.RawMessage, 0, len(items))
	var size int64
	for i, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return Record{}, fmt.Errorf("failed to encode overflow item %d: %w", i, err)
		}
		raw = append(raw, json.RawMessage(data))
		size += int64(len(data))
	}

	rec := Record{
		ID:         uuid.NewString(),
		Label:      label,
		PageSize:   s.pageSize,
		TotalCount: len(items),
		CreatedAt:  s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.records[rec.ID] = &memRecord{rec: rec, items: raw, bytes: size, seq: s.seq}
	s.evictLocked(rec.CreatedAt)
	return rec, nil
}

// evictLocked drops expired records, then the oldest records beyond
// maxRecords. Caller holds the write lock.
func (s *MemStore) evictLocked(now time.Time) {
	if s.ttl > 0 {
		for id, mr := range s.records {
			if now.Sub(mr.rec.CreatedAt) > s.ttl {
				delete(s.records, id)
			}
		}
	}

	if s.maxRecords <= 0 || len(s.records) <= s.maxRecords {
		return
	}
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	// Ties on CreatedAt fall back to insertion order, so a record can
	// never be evicted by the write that created it.
	sort.Slice(ids, func(i, j int) bool {
		a, b := s.records[ids[i]], s.records[ids[j]]
		if !a.rec.CreatedAt.Equal(b.rec.CreatedAt) {
			return a.rec.CreatedAt.Before(b.rec.CreatedAt)
		}
		return a.seq < b.seq
	})
	for _, id := range ids[:len(s.records)-s.maxRecords] {
		delete(s.records, id)
	}
}

// Get returns the record metadata for id.
func (s *MemStore) Get(ctx context.Context, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	mr, err := s.lookup(id)
	if err != nil {
		return Record{}, err
	}
	return mr.rec, nil
}

// GetPage returns the 1-based page of a stored record.
func (s *MemStore) GetPage(ctx context.Context, id string, page int) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	mr, err := s.lookup(id)
	if err != nil {
		return Page{}, err
	}
	return slicePage(mr.rec, mr.items, page)
}

func (s *MemStore) lookup(id string) (*memRecord, error) {
	s.mu.RLock()
	mr, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if s.ttl > 0 && s.now().Sub(mr.rec.CreatedAt) > s.ttl {
		s.mu.Lock()
		delete(s.records, id)
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return mr, nil
}

// Stats reports record count and payload volume.
func (s *MemStore) Stats(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var stats Stats
	stats.Records = len(s.records)
	for _, mr := range s.records {
		stats.PayloadBytes += mr.bytes
		if stats.OldestUnix == 0 || mr.rec.CreatedAt.Unix() < stats.OldestUnix {
			stats.OldestUnix = mr.rec.CreatedAt.Unix()
		}
	}
	return stats, nil
}

// Close releases nothing for the in-memory driver.
func (s *MemStore) Close() error {
	return nil
}
