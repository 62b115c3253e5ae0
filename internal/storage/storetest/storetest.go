// Package storetest holds the behavior every storage.DocumentStore backend
// must share. Backends call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/hearth/internal/storage"
)

// Run exercises store. It must be empty and is closed by the caller.
func Run(t *testing.T, store storage.DocumentStore) {
	ctx := context.Background()
	bills := storage.HouseholdCollection("h1", storage.Bills)
	otherBills := storage.HouseholdCollection("h2", storage.Bills)

	t.Run("Create generates an id", func(t *testing.T) {
		id, err := store.Create(ctx, bills, storage.Document{"title": "Rent", "amount": "1500.00", "dueDate": "2024-03-05"})
		require.NoError(t, err)
		require.NotEmpty(t, id)

		rec, err := store.Get(ctx, bills, id)
		require.NoError(t, err)
		assert.Equal(t, id, rec.ID)
		assert.Equal(t, "Rent", rec.Data.String("title"))
		assert.False(t, rec.CreatedAt.IsZero())
	})

	t.Run("CreateWithID rejects a taken id", func(t *testing.T) {
		require.NoError(t, store.CreateWithID(ctx, bills, "fixed", storage.Document{"title": "A"}))
		err := store.CreateWithID(ctx, bills, "fixed", storage.Document{"title": "B"})
		assert.ErrorIs(t, err, storage.ErrAlreadyExists)

		rec, err := store.Get(ctx, bills, "fixed")
		require.NoError(t, err)
		assert.Equal(t, "A", rec.Data.String("title"), "first write kept")
	})

	t.Run("households are isolated", func(t *testing.T) {
		require.NoError(t, store.CreateWithID(ctx, otherBills, "fixed", storage.Document{"title": "Other"}))
		rec, err := store.Get(ctx, bills, "fixed")
		require.NoError(t, err)
		assert.Equal(t, "A", rec.Data.String("title"))

		recs, err := store.Query(ctx, otherBills, storage.Query{})
		require.NoError(t, err)
		assert.Len(t, recs, 1)
	})

	t.Run("Update merges fields", func(t *testing.T) {
		require.NoError(t, store.CreateWithID(ctx, bills, "merge", storage.Document{"title": "Power", "status": "open", "recurring": true}))
		require.NoError(t, store.Update(ctx, bills, "merge", storage.Document{"status": "paid"}))

		rec, err := store.Get(ctx, bills, "merge")
		require.NoError(t, err)
		assert.Equal(t, "paid", rec.Data.String("status"))
		assert.Equal(t, "Power", rec.Data.String("title"))
		recurring, ok := rec.Data.Bool("recurring")
		assert.True(t, ok)
		assert.True(t, recurring)
	})

	t.Run("Update of a missing document", func(t *testing.T) {
		err := store.Update(ctx, bills, "missing", storage.Document{"status": "paid"})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("Get of a missing document", func(t *testing.T) {
		_, err := store.Get(ctx, bills, "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("Delete is idempotent", func(t *testing.T) {
		require.NoError(t, store.CreateWithID(ctx, bills, "gone", storage.Document{"title": "x"}))
		require.NoError(t, store.Delete(ctx, bills, "gone"))
		require.NoError(t, store.Delete(ctx, bills, "gone"))
		_, err := store.Get(ctx, bills, "gone")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("Query filters and orders", func(t *testing.T) {
		debts := storage.HouseholdCollection("h1", storage.Debts)
		docs := map[string]storage.Document{
			"d3": {"groupId": "g1", "installmentNumber": 3, "dueDate": "2024-03-15", "active": true},
			"d1": {"groupId": "g1", "installmentNumber": 1, "dueDate": "2024-01-15", "active": true},
			"d2": {"groupId": "g1", "installmentNumber": 2, "dueDate": "2024-02-15", "active": false},
			"x1": {"groupId": "g2", "installmentNumber": 1, "dueDate": "2023-12-01", "active": true},
		}
		for id, doc := range docs {
			require.NoError(t, store.CreateWithID(ctx, debts, id, doc))
		}

		ids := func(recs []storage.Record) []string {
			out := make([]string, len(recs))
			for i, r := range recs {
				out[i] = r.ID
			}
			return out
		}

		recs, err := store.Query(ctx, debts, storage.Query{}.Equal("groupId", "g1").Order("installmentNumber", storage.Asc))
		require.NoError(t, err)
		assert.Equal(t, []string{"d1", "d2", "d3"}, ids(recs))

		recs, err = store.Query(ctx, debts, storage.Query{}.Order("dueDate", storage.Desc))
		require.NoError(t, err)
		assert.Equal(t, []string{"d3", "d2", "d1", "x1"}, ids(recs))

		recs, err = store.Query(ctx, debts, storage.Query{}.Equal("groupId", "g1").Equal("active", true).Order("dueDate", storage.Asc))
		require.NoError(t, err)
		assert.Equal(t, []string{"d1", "d3"}, ids(recs))

		recs, err = store.Query(ctx, debts, storage.Query{}.Equal("installmentNumber", 1))
		require.NoError(t, err)
		assert.Equal(t, []string{"d1", "x1"}, ids(recs))

		rec, err := store.Get(ctx, debts, "d2")
		require.NoError(t, err)
		assert.Equal(t, 2, rec.Data.Int("installmentNumber", 0))
	})

	t.Run("Subscribe delivers snapshots", func(t *testing.T) {
		people := storage.HouseholdCollection("h1", storage.People)
		subCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		ch, err := store.Subscribe(subCtx, people, storage.Query{}.Order("name", storage.Asc))
		require.NoError(t, err)

		first := next(t, ch)
		assert.Empty(t, first.Records)

		_, err = store.Create(ctx, people, storage.Document{"name": "Ana"})
		require.NoError(t, err)

		snap := waitFor(t, ch, func(s storage.Snapshot) bool { return len(s.Records) == 1 })
		assert.Equal(t, "Ana", snap.Records[0].Data.String("name"))

		cancel()
		for range ch {
		}
	})

	t.Run("rejects unknown collections", func(t *testing.T) {
		_, err := store.Create(ctx, storage.Collection{Name: "widgets"}, storage.Document{})
		assert.Error(t, err)
		_, err = store.Query(ctx, storage.Collection{Name: storage.Debts}, storage.Query{})
		assert.Error(t, err, "debts need a household")
	})
}

func next(t *testing.T, ch <-chan storage.Snapshot) storage.Snapshot {
	t.Helper()
	select {
	case s, ok := <-ch:
		require.True(t, ok, "subscription closed")
		require.NoError(t, s.Err)
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return storage.Snapshot{}
}

func waitFor(t *testing.T, ch <-chan storage.Snapshot, cond func(storage.Snapshot) bool) storage.Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s, ok := <-ch:
			if !ok {
				t.Fatal(errors.New("subscription closed"))
			}
			if cond(s) {
				return s
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
		}
	}
}
