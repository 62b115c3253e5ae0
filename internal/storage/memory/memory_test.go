package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/hearth/internal/storage"
	"github.com/mmynk/hearth/internal/storage/storetest"
)

func TestStore(t *testing.T) {
	store := New()
	defer store.Close()
	storetest.Run(t, store)
}

func TestWriteHook(t *testing.T) {
	boom := errors.New("boom")
	store := New(WithWriteHook(func(op Op, c storage.Collection, id string) error {
		if op == OpUpdate && id == "bad" {
			return boom
		}
		return nil
	}))
	defer store.Close()

	ctx := context.Background()
	c := storage.HouseholdCollection("h1", storage.Debts)
	require.NoError(t, store.CreateWithID(ctx, c, "bad", storage.Document{"status": "open"}))
	require.NoError(t, store.CreateWithID(ctx, c, "good", storage.Document{"status": "open"}))

	assert.ErrorIs(t, store.Update(ctx, c, "bad", storage.Document{"status": "paid"}), boom)
	assert.NoError(t, store.Update(ctx, c, "good", storage.Document{"status": "paid"}))

	rec, err := store.Get(ctx, c, "bad")
	require.NoError(t, err)
	assert.Equal(t, "open", rec.Data.String("status"))
	assert.Equal(t, 2, store.Len(c))
}

func TestReadsAreCopies(t *testing.T) {
	store := New()
	defer store.Close()
	ctx := context.Background()
	c := storage.HouseholdCollection("h1", storage.People)

	doc := storage.Document{"name": "Ana"}
	require.NoError(t, store.CreateWithID(ctx, c, "p1", doc))
	doc["name"] = "changed"

	rec, err := store.Get(ctx, c, "p1")
	require.NoError(t, err)
	rec.Data["name"] = "also changed"

	again, err := store.Get(ctx, c, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", again.Data.String("name"))
}

func TestClosedStore(t *testing.T) {
	store := New()
	require.NoError(t, store.Close())
	_, err := store.Create(context.Background(), storage.HouseholdCollection("h1", storage.Bills), storage.Document{})
	assert.ErrorIs(t, err, storage.ErrClosed)
}
