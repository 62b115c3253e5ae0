// Package live keeps a household dashboard current. It subscribes to the
// household's collections, rebuilds the snapshot on every change and
// recomputes the dashboard from scratch each time.
//
// Callers may stage optimistic edits so a person sees the result of an
// action before the write lands. The next authoritative snapshot of the
// affected collection replaces them.
package live

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mmynk/hearth/internal/calculator"
	"github.com/mmynk/hearth/internal/models"
	"github.com/mmynk/hearth/internal/storage"
)

// Update is one recomputed dashboard.
type Update struct {
	Snapshot  calculator.Snapshot
	Dashboard calculator.Dashboard

	// Optimistic is set while staged edits are applied on top of the
	// authoritative snapshot.
	Optimistic bool
}

// Hub opens live views over a document store.
type Hub struct {
	store  storage.DocumentStore
	now    func() time.Time
	active atomic.Int64
}

// NewHub creates a hub over store.
func NewHub(store storage.DocumentStore, now func() time.Time) *Hub {
	if now == nil {
		now = time.Now
	}
	return &Hub{store: store, now: now}
}

// Active returns the number of open views.
func (h *Hub) Active() int64 {
	return h.active.Load()
}

// View is a live dashboard of one household.
type View struct {
	hub       *Hub
	household string

	mu        sync.Mutex
	people    []models.Person
	cats      []models.Category
	debts     []models.DebtInstallment
	bills     []models.Bill
	loaded    map[string]bool
	stagedD   map[string]models.DebtInstallment
	stagedB   map[string]models.Bill
	current   Update
	ready     bool
	updates   chan Update
	done      chan struct{}
	closeOnce sync.Once
}

var watched = []string{storage.People, storage.Categories, storage.Debts, storage.Bills}

// Watch opens a view of householdID. The view stops when ctx is done.
func (h *Hub) Watch(ctx context.Context, householdID string) (*View, error) {
	ctx, cancel := context.WithCancel(ctx)

	v := &View{
		hub:       h,
		household: householdID,
		loaded:    make(map[string]bool),
		stagedD:   make(map[string]models.DebtInstallment),
		stagedB:   make(map[string]models.Bill),
		updates:   make(chan Update, 1),
		done:      make(chan struct{}),
	}

	merged := make(chan storage.Snapshot)
	var wg sync.WaitGroup
	for _, name := range watched {
		ch, err := h.store.Subscribe(ctx, storage.HouseholdCollection(householdID, name), storage.Query{})
		if err != nil {
			cancel()
			wg.Wait()
			return nil, fmt.Errorf("failed to subscribe to %s: %w", name, err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for snap := range ch {
				select {
				case merged <- snap:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	h.active.Add(1)
	go func() {
		defer h.active.Add(-1)
		defer v.close()
		defer wg.Wait()
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-merged:
				v.apply(snap)
			}
		}
	}()
	return v, nil
}

// Updates delivers the latest dashboard. Intermediate updates are dropped
// when the reader falls behind. The channel is closed when the view stops.
func (v *View) Updates() <-chan Update {
	return v.updates
}

// Done is closed when the view stops.
func (v *View) Done() <-chan struct{} {
	return v.done
}

// Current returns the latest update and whether every collection has
// loaded at least once.
func (v *View) Current() (Update, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current, v.ready
}

// StageDebt applies an optimistic installment edit and returns the
// recomputed update. The bool is false until every collection has loaded.
func (v *View) StageDebt(d models.DebtInstallment) (Update, bool) {
	v.mu.Lock()
	v.stagedD[d.ID] = d
	v.mu.Unlock()
	return v.recompute()
}

// StageBill applies an optimistic bill edit and returns the recomputed
// update.
func (v *View) StageBill(b models.Bill) (Update, bool) {
	v.mu.Lock()
	v.stagedB[b.ID] = b
	v.mu.Unlock()
	return v.recompute()
}

func (v *View) apply(snap storage.Snapshot) {
	if snap.Err != nil {
		slog.Warn("Live view kept previous state", "household_id", v.household, "collection", snap.Collection.Name, "error", snap.Err)
		return
	}

	v.mu.Lock()
	switch snap.Collection.Name {
	case storage.People:
		v.people = storage.DecodePeople(snap.Records)
	case storage.Categories:
		v.cats = storage.DecodeCategories(snap.Records)
	case storage.Debts:
		v.debts = storage.DecodeDebts(snap.Records)
		clear(v.stagedD)
	case storage.Bills:
		v.bills = storage.DecodeBills(snap.Records)
		clear(v.stagedB)
	}
	v.loaded[snap.Collection.Name] = true
	v.mu.Unlock()

	v.recompute()
}

func (v *View) recompute() (Update, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.loaded) < len(watched) {
		return Update{}, false
	}

	s := calculator.Snapshot{
		People:     v.people,
		Categories: v.cats,
		Debts:      overlay(v.debts, v.stagedD, func(d models.DebtInstallment) string { return d.ID }),
		Bills:      overlay(v.bills, v.stagedB, func(b models.Bill) string { return b.ID }),
	}
	u := Update{
		Snapshot:   s,
		Dashboard:  calculator.BuildDashboard(s, v.hub.now()),
		Optimistic: len(v.stagedD) > 0 || len(v.stagedB) > 0,
	}
	v.current = u
	v.ready = true

	select {
	case <-v.done:
		return u, true
	default:
	}
	select {
	case <-v.updates:
	default:
	}
	v.updates <- u
	return u, true
}

func (v *View) close() {
	v.closeOnce.Do(func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		close(v.done)
		close(v.updates)
	})
}

// overlay replaces items with their staged versions. Staged items that do
// not exist yet are appended.
func overlay[T any](items []T, staged map[string]T, id func(T) string) []T {
	if len(staged) == 0 {
		return items
	}
	out := make([]T, 0, len(items)+len(staged))
	seen := make(map[string]bool, len(staged))
	for _, it := range items {
		if s, ok := staged[id(it)]; ok {
			out = append(out, s)
			seen[id(it)] = true
			continue
		}
		out = append(out, it)
	}
	for k, s := range staged {
		if !seen[k] {
			out = append(out, s)
		}
	}
	return out
}
