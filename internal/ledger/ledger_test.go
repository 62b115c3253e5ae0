package ledger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/hearth/internal/calculator"
	"github.com/mmynk/hearth/internal/models"
	"github.com/mmynk/hearth/internal/period"
	"github.com/mmynk/hearth/internal/storage"
	"github.com/mmynk/hearth/internal/storage/memory"
)

var fixedNow = time.Date(2024, time.February, 20, 10, 0, 0, 0, time.UTC)

type recordingObserver struct {
	mu    sync.Mutex
	rolls map[string]int
}

func (o *recordingObserver) RollForward(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.rolls == nil {
		o.rolls = make(map[string]int)
	}
	o.rolls[outcome]++
}

func (o *recordingObserver) BulkCompleted(string, int, int) {}

type recordingNotifier struct {
	mu      sync.Mutex
	changes []Change
}

func (n *recordingNotifier) Notify(_ context.Context, c Change) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, c)
}

func newTestBook(t *testing.T, storeOpts []memory.Option, opts ...Option) (*Book, *memory.Store) {
	t.Helper()
	store := memory.New(storeOpts...)
	t.Cleanup(func() { store.Close() })

	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	l := New(store, opts...)

	ctx := context.Background()
	h, err := l.CreateHousehold(ctx, "user-1", "Casa")
	require.NoError(t, err)

	book, err := l.Open(ctx, "user-1", h.ID)
	require.NoError(t, err)
	return book, store
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestOpenChecksMembership(t *testing.T) {
	store := memory.New()
	defer store.Close()
	l := New(store)
	ctx := context.Background()

	_, err := l.Open(ctx, "stranger", "")
	var pe *PermissionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "You do not have permission to access the household.", UserMessage(err))

	h1, err := l.CreateHousehold(ctx, "ana", "Ana's")
	require.NoError(t, err)
	h2, err := l.CreateHousehold(ctx, "bia", "Bia's")
	require.NoError(t, err)

	_, err = l.Open(ctx, "ana", h2.ID)
	assert.ErrorAs(t, err, &pe)

	book, err := l.Open(ctx, "ana", "")
	require.NoError(t, err)
	assert.Equal(t, h1.ID, book.HouseholdID())

	require.NoError(t, l.SetMembership(ctx, "ana", h2.ID))
	book, err = l.Open(ctx, "ana", h2.ID)
	require.NoError(t, err)
	assert.Equal(t, h2.ID, book.HouseholdID())

	var nf *NotFoundError
	assert.ErrorAs(t, l.SetMembership(ctx, "ana", "nope"), &nf)

	hs, err := l.ListHouseholds(ctx)
	require.NoError(t, err)
	require.Len(t, hs, 2)
	assert.Equal(t, "Ana's", hs[0].Name)
}

func TestPurchaseEndToEnd(t *testing.T) {
	book, _ := newTestBook(t, nil)
	ctx := context.Background()

	ana, err := book.AddPerson(ctx, models.Person{Name: "Ana"})
	require.NoError(t, err)

	p, err := book.CreatePurchase(ctx, calculator.Purchase{
		PersonID:     ana.ID,
		Description:  "Sofa",
		Total:        d("100.00"),
		Installments: 3,
		PurchaseDate: period.Date(2024, 1, 2),
		FirstDueDate: period.Date(2024, 1, 15),
	})
	require.NoError(t, err)
	require.Len(t, p.Installments, 3)

	group, err := book.Purchase(ctx, p.GroupID)
	require.NoError(t, err)
	var amounts, dues []string
	for _, inst := range group.Installments {
		amounts = append(amounts, inst.Amount.StringFixed(2))
		dues = append(dues, period.FormatDate(inst.DueDate))
	}
	assert.Equal(t, []string{"33.33", "33.33", "33.34"}, amounts)
	assert.Equal(t, []string{"2024-01-15", "2024-02-15", "2024-03-15"}, dues)

	paid, err := book.ToggleInstallment(ctx, group.Installments[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.DebtPaid, paid.Status)

	group, err = book.Purchase(ctx, p.GroupID)
	require.NoError(t, err)
	assert.Equal(t, models.DebtOpen, group.Installments[1].Status)
	assert.Equal(t, models.DebtOpen, group.Installments[2].Status)

	report, _, err := book.Report(ctx, calculator.Filter{})
	require.NoError(t, err)
	require.Len(t, report.People, 1)
	assert.Equal(t, ana.ID, report.People[0].PersonID)
	assert.Equal(t, "66.67", report.People[0].DebtsOpen.StringFixed(2))
}

func TestCreatePurchaseValidation(t *testing.T) {
	book, store := newTestBook(t, nil)
	_, err := book.CreatePurchase(context.Background(), calculator.Purchase{
		PersonID: "p", Description: "x", Total: d("10"), Installments: -1, FirstDueDate: period.Date(2024, 1, 1),
	})

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "installmentsCount", ve.Field)
	assert.ErrorIs(t, err, calculator.ErrInvalidInstallments)
	assert.Zero(t, store.Len(storage.HouseholdCollection(book.HouseholdID(), storage.Debts)))
}

func TestCreatePurchaseUndoesPartialWrites(t *testing.T) {
	var creates atomic.Int32
	hook := func(op memory.Op, c storage.Collection, _ string) error {
		if op == memory.OpCreate && c.Name == storage.Debts && creates.Add(1) == 2 {
			return errors.New("network down")
		}
		return nil
	}
	book, store := newTestBook(t, []memory.Option{memory.WithWriteHook(hook)}, WithConcurrency(1))

	_, err := book.CreatePurchase(context.Background(), calculator.Purchase{
		PersonID: "p", Description: "TV", Total: d("300"), Installments: 3, FirstDueDate: period.Date(2024, 1, 10),
	})
	var te *TransientStoreError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "Could not create the purchase. Please try again.", UserMessage(err))
	assert.Zero(t, store.Len(storage.HouseholdCollection(book.HouseholdID(), storage.Debts)))
}

func TestAmendPurchaseKeepsGroup(t *testing.T) {
	book, _ := newTestBook(t, nil)
	ctx := context.Background()

	p, err := book.CreatePurchase(ctx, calculator.Purchase{
		PersonID: "p", Description: "Bike", Total: d("100"), Installments: 2, FirstDueDate: period.Date(2024, 1, 15),
	})
	require.NoError(t, err)

	form, groupID, err := book.PurchaseForm(ctx, p.Installments[1].ID)
	require.NoError(t, err)
	assert.Equal(t, p.GroupID, groupID)
	assert.Equal(t, period.Date(2024, 1, 15), form.FirstDueDate)

	form.Installments = 4
	form.Total = d("120")
	amended, err := book.AmendPurchase(ctx, groupID, form)
	require.NoError(t, err)
	assert.Equal(t, p.GroupID, amended.GroupID)

	group, err := book.Purchase(ctx, p.GroupID)
	require.NoError(t, err)
	require.Len(t, group.Installments, 4)
	assert.Equal(t, "120.00", group.Total.StringFixed(2))
	assert.Equal(t, period.Date(2024, 2, 15), group.Installments[1].DueDate)

	_, err = book.AmendPurchase(ctx, "missing", form)
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestRecordPartialPayment(t *testing.T) {
	book, _ := newTestBook(t, nil)
	ctx := context.Background()

	p, err := book.CreatePurchase(ctx, calculator.Purchase{
		PersonID: "p", Description: "Rug", Total: d("50"), FirstDueDate: period.Date(2024, 3, 1),
	})
	require.NoError(t, err)
	id := p.Installments[0].ID

	for _, bad := range []string{"0", "-5", "50.01"} {
		_, err := book.RecordPartialPayment(ctx, id, d(bad))
		var ve *ValidationError
		require.ErrorAs(t, err, &ve, bad)
		assert.ErrorIs(t, err, calculator.ErrInvalidPayment)
	}

	group, err := book.Purchase(ctx, p.GroupID)
	require.NoError(t, err)
	assert.True(t, group.Installments[0].PaidAmount.IsZero(), "rejections write nothing")

	got, err := book.RecordPartialPayment(ctx, id, d("20"))
	require.NoError(t, err)
	assert.Equal(t, models.DebtPartial, got.Status)

	got, err = book.RecordPartialPayment(ctx, id, d("30"))
	require.NoError(t, err)
	assert.Equal(t, models.DebtPaid, got.Status)

	list, err := book.ListInstallments(ctx, DebtFilter{Status: models.DebtPaid})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "50.00", list[0].PaidAmount.StringFixed(2))
}

func TestMarkAllPaidIsBestEffort(t *testing.T) {
	var failID atomic.Value
	failID.Store("")
	hook := func(op memory.Op, _ storage.Collection, id string) error {
		if op == memory.OpUpdate && id == failID.Load().(string) {
			return errors.New("unavailable")
		}
		return nil
	}
	book, _ := newTestBook(t, []memory.Option{memory.WithWriteHook(hook)})
	ctx := context.Background()

	p, err := book.CreatePurchase(ctx, calculator.Purchase{
		PersonID: "p", Description: "Laptop", Total: d("400"), Installments: 4, FirstDueDate: period.Date(2024, 1, 5),
	})
	require.NoError(t, err)
	_, err = book.ToggleInstallment(ctx, p.Installments[0].ID)
	require.NoError(t, err)

	failID.Store(p.Installments[2].ID)
	res, err := book.MarkAllPaid(ctx, DebtFilter{})

	var be *BulkError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 3, res.Total)
	assert.Len(t, res.Succeeded, 2)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, p.Installments[2].ID, res.Failures[0].ID)
	assert.Equal(t, "mark installments paid: 2 of 3 done, 1 failed", UserMessage(err))

	open, err := book.ListInstallments(ctx, DebtFilter{Status: models.DebtOpen})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, p.Installments[2].ID, open[0].ID)
}

func TestListInstallmentsFilters(t *testing.T) {
	book, _ := newTestBook(t, nil)
	ctx := context.Background()

	for _, person := range []string{"a", "b"} {
		_, err := book.CreatePurchase(ctx, calculator.Purchase{
			PersonID: person, Description: "x", Total: d("30"), Installments: 3, FirstDueDate: period.Date(2023, 12, 10),
		})
		require.NoError(t, err)
	}

	got, err := book.ListInstallments(ctx, DebtFilter{PersonID: "a", Period: period.Filter{Year: "2024"}})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = book.ListInstallments(ctx, DebtFilter{Period: period.Filter{Month: "2023-12"}})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = book.ListInstallments(ctx, DebtFilter{Period: period.Filter{Month: "12/2023"}})
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestPeopleAndCategories(t *testing.T) {
	book, _ := newTestBook(t, nil)
	ctx := context.Background()

	_, err := book.AddPerson(ctx, models.Person{Name: "  "})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	bia, err := book.AddPerson(ctx, models.Person{Name: "Bia", Phone: "555"})
	require.NoError(t, err)
	_, err = book.AddPerson(ctx, models.Person{Name: "Ana"})
	require.NoError(t, err)

	people, err := book.ListPeople(ctx)
	require.NoError(t, err)
	require.Len(t, people, 2)
	assert.Equal(t, "Ana", people[0].Name)

	bia.Note = "sister"
	require.NoError(t, book.UpdatePerson(ctx, bia))
	require.NoError(t, book.RemovePerson(ctx, bia.ID))
	people, err = book.ListPeople(ctx)
	require.NoError(t, err)
	assert.Len(t, people, 1)

	var nf *NotFoundError
	assert.ErrorAs(t, book.UpdatePerson(ctx, bia), &nf)

	c, err := book.AddCategory(ctx, "Utilities")
	require.NoError(t, err)
	cs, err := book.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cs, 1)
	require.NoError(t, book.RemoveCategory(ctx, c.ID))
}

func TestNotifierSeesWrites(t *testing.T) {
	n := &recordingNotifier{}
	book, _ := newTestBook(t, nil, WithNotifier(n))

	_, err := book.AddCategory(context.Background(), "Food")
	require.NoError(t, err)

	n.mu.Lock()
	defer n.mu.Unlock()
	last := n.changes[len(n.changes)-1]
	assert.Equal(t, book.HouseholdID(), last.HouseholdID)
	assert.Equal(t, storage.Categories, last.Collection)
	assert.Equal(t, ActionCreated, last.Action)
	assert.Equal(t, fixedNow, last.At)
}
