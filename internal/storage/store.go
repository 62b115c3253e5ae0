// Package storage defines the household document store contract, the schema
// codec applied at the store boundary, and a typed repository over it.
//
// Backends live in subpackages (sqlite, memory). Every backend stores flat
// documents of strings, numbers and booleans inside named collections, and
// pushes full query snapshots to subscribers whenever a collection changes.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrAlreadyExists is returned by CreateWithID when the id is taken.
	ErrAlreadyExists = errors.New("document already exists")

	// ErrPermissionDenied is returned when the backend refuses a write.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("store closed")
)

// Collection names.
const (
	People     = "people"
	Debts      = "debts"
	Bills      = "bills"
	Categories = "categories"
	Households = "households"
	Members    = "members"
)

// Collection addresses a set of documents. Household-scoped collections carry
// the household id; root collections leave it empty.
type Collection struct {
	Household string
	Name      string
}

// HouseholdCollection returns the named collection of one household.
func HouseholdCollection(householdID, name string) Collection {
	return Collection{Household: householdID, Name: name}
}

// RootCollection returns a collection that is not scoped to a household.
func RootCollection(name string) Collection {
	return Collection{Name: name}
}

// String returns the collection path, e.g. "households/h1/debts".
func (c Collection) String() string {
	if c.Household == "" {
		return c.Name
	}
	return Households + "/" + c.Household + "/" + c.Name
}

// Validate checks that household-scoped collections name a household and root
// collections do not.
func (c Collection) Validate() error {
	switch c.Name {
	case People, Debts, Bills, Categories:
		if strings.TrimSpace(c.Household) == "" {
			return fmt.Errorf("collection %s requires a household", c.Name)
		}
	case Households, Members:
		if c.Household != "" {
			return fmt.Errorf("collection %s is not household scoped", c.Name)
		}
	default:
		return fmt.Errorf("unknown collection %q", c.Name)
	}
	return nil
}

// Record is a stored document with its id and bookkeeping timestamps.
type Record struct {
	ID        string
	Data      Document
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Direction orders query results.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// Condition is an equality filter on one field.
type Condition struct {
	Field string
	Value any
}

// Query selects documents of a collection. All conditions must hold. Results
// are ordered by OrderBy, then by id; with no OrderBy they are ordered by id.
type Query struct {
	Where     []Condition
	OrderBy   string
	Direction Direction
}

// Equal returns a copy of q with an added equality condition.
func (q Query) Equal(field string, value any) Query {
	where := make([]Condition, len(q.Where), len(q.Where)+1)
	copy(where, q.Where)
	q.Where = append(where, Condition{Field: field, Value: value})
	return q
}

// Order returns a copy of q ordered by field.
func (q Query) Order(field string, dir Direction) Query {
	q.OrderBy = field
	q.Direction = dir
	return q
}

// Snapshot is the full result of a subscribed query at one point in time.
// Err is set when the query could not be re-run; Records then holds nothing.
type Snapshot struct {
	Collection Collection
	Records    []Record
	Err        error
}

// DocumentStore is the persistence contract of the ledger. Implementations
// must be safe for concurrent use. Individual writes are atomic; there are no
// multi-document transactions.
type DocumentStore interface {
	// Create stores doc under a generated id and returns it.
	Create(ctx context.Context, c Collection, doc Document) (string, error)

	// CreateWithID stores doc under id, failing with ErrAlreadyExists when
	// the id is taken.
	CreateWithID(ctx context.Context, c Collection, id string, doc Document) error

	// Update merges patch into an existing document. Returns ErrNotFound when
	// the document does not exist.
	Update(ctx context.Context, c Collection, id string, patch Document) error

	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, c Collection, id string) error

	// Get reads one document. Returns ErrNotFound when it does not exist.
	Get(ctx context.Context, c Collection, id string) (Record, error)

	// Query returns the documents matching q.
	Query(ctx context.Context, c Collection, q Query) ([]Record, error)

	// Subscribe delivers the result of q now and again after every change to
	// the collection. The channel is closed once ctx is done or the store is
	// closed.
	Subscribe(ctx context.Context, c Collection, q Query) (<-chan Snapshot, error)

	// Close releases any resources held by the store.
	Close() error
}
