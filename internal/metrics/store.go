package metrics

import (
	"context"

	"github.com/mmynk/hearth/internal/storage"
)

// InstrumentStore counts the writes made through s.
func (m *Metrics) InstrumentStore(s storage.DocumentStore) storage.DocumentStore {
	return &instrumentedStore{DocumentStore: s, m: m}
}

type instrumentedStore struct {
	storage.DocumentStore
	m *Metrics
}

func (s *instrumentedStore) Create(ctx context.Context, c storage.Collection, doc storage.Document) (string, error) {
	id, err := s.DocumentStore.Create(ctx, c, doc)
	s.m.storeWrite("create", c, err)
	return id, err
}

func (s *instrumentedStore) CreateWithID(ctx context.Context, c storage.Collection, id string, doc storage.Document) error {
	err := s.DocumentStore.CreateWithID(ctx, c, id, doc)
	s.m.storeWrite("create", c, err)
	return err
}

func (s *instrumentedStore) Update(ctx context.Context, c storage.Collection, id string, patch storage.Document) error {
	err := s.DocumentStore.Update(ctx, c, id, patch)
	s.m.storeWrite("update", c, err)
	return err
}

func (s *instrumentedStore) Delete(ctx context.Context, c storage.Collection, id string) error {
	err := s.DocumentStore.Delete(ctx, c, id)
	s.m.storeWrite("delete", c, err)
	return err
}
