// Package memory provides an in-memory storage.DocumentStore for tests and
// ephemeral runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/hearth/internal/storage"
)

var _ storage.DocumentStore = (*Store)(nil)

// Op names a write operation for WriteHook.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// WriteHook runs before every write. A non-nil error aborts the write and is
// returned to the caller.
type WriteHook func(op Op, c storage.Collection, id string) error

// Option configures a Store.
type Option func(*Store)

// WithWriteHook installs a hook that can fail individual writes.
func WithWriteHook(h WriteHook) Option {
	return func(s *Store) { s.hook = h }
}

// WithClock overrides the clock used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store keeps every collection in a map guarded by one lock.
type Store struct {
	mu     sync.RWMutex
	data   map[string]map[string]storage.Record
	closed bool

	hook   WriteHook
	now    func() time.Time
	broker *storage.Broker
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		data:   make(map[string]map[string]storage.Record),
		now:    time.Now,
		broker: storage.NewBroker(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) check(op Op, c storage.Collection, id string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if s.hook != nil {
		if err := s.hook(op, c, id); err != nil {
			return err
		}
	}
	return nil
}

// Create stores doc under a generated id.
func (s *Store) Create(ctx context.Context, c storage.Collection, doc storage.Document) (string, error) {
	id := uuid.New().String()
	if err := s.CreateWithID(ctx, c, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

// CreateWithID stores doc under id.
func (s *Store) CreateWithID(_ context.Context, c storage.Collection, id string, doc storage.Document) error {
	if id == "" {
		return fmt.Errorf("empty document id")
	}
	if err := s.check(OpCreate, c, id); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return storage.ErrClosed
	}
	key := c.String()
	if s.data[key] == nil {
		s.data[key] = make(map[string]storage.Record)
	}
	if _, exists := s.data[key][id]; exists {
		s.mu.Unlock()
		return fmt.Errorf("%s/%s: %w", key, id, storage.ErrAlreadyExists)
	}
	now := s.now()
	s.data[key][id] = storage.Record{ID: id, Data: doc.Clone(), CreatedAt: now, UpdatedAt: now}
	s.mu.Unlock()

	s.broker.Notify(c)
	return nil
}

// Update merges patch into an existing document.
func (s *Store) Update(_ context.Context, c storage.Collection, id string, patch storage.Document) error {
	if err := s.check(OpUpdate, c, id); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return storage.ErrClosed
	}
	key := c.String()
	rec, ok := s.data[key][id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%s/%s: %w", key, id, storage.ErrNotFound)
	}
	data := rec.Data.Clone()
	data.Merge(patch)
	rec.Data = data
	rec.UpdatedAt = s.now()
	s.data[key][id] = rec
	s.mu.Unlock()

	s.broker.Notify(c)
	return nil
}

// Delete removes a document.
func (s *Store) Delete(_ context.Context, c storage.Collection, id string) error {
	if err := s.check(OpDelete, c, id); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return storage.ErrClosed
	}
	key := c.String()
	_, existed := s.data[key][id]
	delete(s.data[key], id)
	s.mu.Unlock()

	if existed {
		s.broker.Notify(c)
	}
	return nil
}

// Get reads one document.
func (s *Store) Get(_ context.Context, c storage.Collection, id string) (storage.Record, error) {
	if err := c.Validate(); err != nil {
		return storage.Record{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return storage.Record{}, storage.ErrClosed
	}
	rec, ok := s.data[c.String()][id]
	if !ok {
		return storage.Record{}, fmt.Errorf("%s/%s: %w", c.String(), id, storage.ErrNotFound)
	}
	rec.Data = rec.Data.Clone()
	return rec, nil
}

// Query returns the documents matching q.
func (s *Store) Query(_ context.Context, c storage.Collection, q storage.Query) ([]storage.Record, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrClosed
	}

	var out []storage.Record
	for _, rec := range s.data[c.String()] {
		if matches(rec.Data, q.Where) {
			rec.Data = rec.Data.Clone()
			out = append(out, rec)
		}
	}
	sortRecords(out, q)
	return out, nil
}

// Subscribe pushes the result of q after every change to c.
func (s *Store) Subscribe(ctx context.Context, c storage.Collection, q storage.Query) (<-chan storage.Snapshot, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return s.broker.Subscribe(ctx, c, func(ctx context.Context) ([]storage.Record, error) {
		return s.Query(ctx, c, q)
	})
}

// Close ends all subscriptions. Later calls fail with storage.ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.broker.Close()
	return nil
}

// Len returns the number of documents in c.
func (s *Store) Len(c storage.Collection) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data[c.String()])
}

func matches(doc storage.Document, where []storage.Condition) bool {
	for _, cond := range where {
		if !storage.EqualValues(doc[cond.Field], cond.Value) {
			return false
		}
	}
	return true
}

func sortRecords(recs []storage.Record, q storage.Query) {
	sort.Slice(recs, func(i, j int) bool {
		if q.OrderBy != "" {
			c := storage.CompareValues(recs[i].Data[q.OrderBy], recs[j].Data[q.OrderBy])
			if q.Direction == storage.Desc {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return recs[i].ID < recs[j].ID
	})
}
