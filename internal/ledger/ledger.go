// Package ledger runs the household ledger against a document store: it
// expands purchases into installments, applies payment transitions, rolls
// recurring bills forward and reports failures in terms a person can act on.
//
// All pure arithmetic lives in the calculator package. This package adds
// membership checks, persistence, change notification and best-effort
// fan-out for bulk operations.
package ledger

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/mmynk/hearth/internal/calculator"
	"github.com/mmynk/hearth/internal/models"
	"github.com/mmynk/hearth/internal/storage"
)

// DefaultConcurrency bounds the writes in flight for one bulk operation.
const DefaultConcurrency = 8

// Change describes one committed write.
type Change struct {
	HouseholdID string
	Collection  string
	DocumentID  string
	Action      string // created, updated, deleted
	At          time.Time
}

// Change actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Notifier is told about every committed write. Notification is best effort
// and never fails the write.
type Notifier interface {
	Notify(ctx context.Context, c Change)
}

// Observer receives operational signals.
type Observer interface {
	RollForward(outcome string)
	BulkCompleted(op string, succeeded, failed int)
}

// Roll-forward outcomes.
const (
	RollCreated  = "created"
	RollExisting = "existing"
	RollSkipped  = "skipped"
	RollFailed   = "failed"
)

type nopObserver struct{}

func (nopObserver) RollForward(string)             {}
func (nopObserver) BulkCompleted(string, int, int) {}

// Ledger is the entry point. It is safe for concurrent use.
type Ledger struct {
	repo        *storage.Repository
	notifier    Notifier
	observer    Observer
	concurrency int
	now         func() time.Time
	logger      *slog.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithNotifier installs a change notifier.
func WithNotifier(n Notifier) Option {
	return func(l *Ledger) { l.notifier = n }
}

// WithObserver installs an operational observer.
func WithObserver(o Observer) Option {
	return func(l *Ledger) { l.observer = o }
}

// WithConcurrency bounds the writes in flight for one bulk operation.
func WithConcurrency(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// WithClock overrides the clock.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// New creates a Ledger over store.
func New(store storage.DocumentStore, opts ...Option) *Ledger {
	l := &Ledger{
		repo:        storage.NewRepository(store),
		observer:    nopObserver{},
		concurrency: DefaultConcurrency,
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Now returns the ledger's current time.
func (l *Ledger) Now() time.Time {
	return l.now()
}

// Store returns the underlying document store.
func (l *Ledger) Store() storage.DocumentStore {
	return l.repo.Store()
}

// CreateHousehold creates a household and moves its creator into it.
func (l *Ledger) CreateHousehold(ctx context.Context, userID, name string) (models.Household, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Household{}, invalid("name", "household name is required")
	}
	h, err := l.repo.CreateHousehold(ctx, models.Household{Name: name, CreatedBy: userID, CreatedAt: l.now().Unix()})
	if err != nil {
		return models.Household{}, translate("create the household", "household", "", err)
	}
	l.notify(ctx, "", storage.Households, h.ID, ActionCreated)

	if err := l.SetMembership(ctx, userID, h.ID); err != nil {
		return h, err
	}
	l.logger.Info("Household created", "household_id", h.ID, "user_id", userID)
	return h, nil
}

// ListHouseholds returns every household ordered by name.
func (l *Ledger) ListHouseholds(ctx context.Context) ([]models.Household, error) {
	hs, err := l.repo.ListHouseholds(ctx)
	if err != nil {
		return nil, translate("list households", "household", "", err)
	}
	return hs, nil
}

// SetMembership moves the user into householdID. An empty id leaves the
// current household.
func (l *Ledger) SetMembership(ctx context.Context, userID, householdID string) error {
	if strings.TrimSpace(userID) == "" {
		return invalid("user", "user id is required")
	}
	if householdID != "" {
		if _, err := l.repo.GetHousehold(ctx, householdID); err != nil {
			return translate("join the household", "household", householdID, err)
		}
	}
	m := models.Membership{UserID: userID, HouseholdID: householdID, UpdatedAt: l.now().Unix()}
	if err := l.repo.SetMembership(ctx, m); err != nil {
		return translate("join the household", "membership", userID, err)
	}
	l.notify(ctx, "", storage.Members, userID, ActionUpdated)
	return nil
}

// Membership returns the user's current household membership.
func (l *Ledger) Membership(ctx context.Context, userID string) (models.Membership, error) {
	m, err := l.repo.GetMembership(ctx, userID)
	if err != nil {
		return models.Membership{}, translate("read the membership", "membership", userID, err)
	}
	return m, nil
}

// Open returns the book of householdID on behalf of userID. An empty
// householdID selects the user's current household. Users who are not
// members receive a PermissionError.
func (l *Ledger) Open(ctx context.Context, userID, householdID string) (*Book, error) {
	m, err := l.Membership(ctx, userID)
	if err != nil {
		return nil, err
	}
	if m.HouseholdID == "" {
		return nil, denied("access the household", errNoHousehold)
	}
	if householdID != "" && householdID != m.HouseholdID {
		return nil, denied("access the household", errNotMember)
	}
	return &Book{l: l, household: m.HouseholdID, user: userID}, nil
}

func (l *Ledger) notify(ctx context.Context, householdID, collection, id, action string) {
	if l.notifier == nil {
		return
	}
	l.notifier.Notify(ctx, Change{
		HouseholdID: householdID,
		Collection:  collection,
		DocumentID:  id,
		Action:      action,
		At:          l.now(),
	})
}

// Book is one household's ledger as seen by one member.
type Book struct {
	l         *Ledger
	household string
	user      string
}

// HouseholdID returns the household the book belongs to.
func (b *Book) HouseholdID() string { return b.household }

// UserID returns the member the book was opened for.
func (b *Book) UserID() string { return b.user }

func (b *Book) notify(ctx context.Context, collection, id, action string) {
	b.l.notify(ctx, b.household, collection, id, action)
}

// Snapshot loads the whole household.
func (b *Book) Snapshot(ctx context.Context) (calculator.Snapshot, error) {
	return loadSnapshot(ctx, b.l.repo, b.household)
}

// Household reads the book's household.
func (b *Book) Household(ctx context.Context) (models.Household, error) {
	h, err := b.l.repo.GetHousehold(ctx, b.household)
	if err != nil {
		return models.Household{}, translate("read the household", "household", b.household, err)
	}
	return h, nil
}
