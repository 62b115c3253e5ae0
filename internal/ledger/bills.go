package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/hearth/internal/calculator"
	"github.com/mmynk/hearth/internal/models"
	"github.com/mmynk/hearth/internal/period"
	"github.com/mmynk/hearth/internal/storage"
)

// seriesNamespace scopes the deterministic ids of rolled-forward
// occurrences.
var seriesNamespace = uuid.MustParse("6f1c1f9e-5d0b-4a53-9c52-6a3f3f1d8e21")

// SuccessorID is the id of the occurrence of seriesID due on dueDate when it
// was created by roll-forward. Two concurrent roll-forwards of the same
// occurrence compute the same id, so only one insert can succeed.
func SuccessorID(seriesID string, dueDate time.Time) string {
	return uuid.NewSHA1(seriesNamespace, []byte(seriesID+"/"+period.FormatDate(dueDate))).String()
}

// BillInput holds the editable fields of a bill occurrence.
type BillInput struct {
	Title            string
	Amount           decimal.Decimal
	DueDate          time.Time
	Recurring        bool
	RecurringEndDate time.Time
	CategoryID       string
	PersonID         string
}

func (in BillInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return invalid("title", "title is required")
	}
	if !in.Amount.IsPositive() {
		return invalid("amount", "amount must be greater than zero")
	}
	if in.DueDate.IsZero() {
		return invalid("dueDate", "due date is required")
	}
	if in.Recurring && !in.RecurringEndDate.IsZero() && in.RecurringEndDate.Before(period.DateOnly(in.DueDate)) {
		return invalid("recurringEndDate", "end date is before the due date")
	}
	return nil
}

// BillFilter selects bill occurrences. Zero fields select everything.
type BillFilter struct {
	PersonID   string
	CategoryID string
	SeriesID   string
	Period     period.Filter
	Status     models.BillStatus
}

// ToggleResult is a bill after a toggle, plus the occurrence roll-forward
// created, if any.
type ToggleResult struct {
	Bill      models.Bill
	Successor *models.Bill
}

// CreateBill stores a new occurrence. Recurring bills start a new series.
func (b *Book) CreateBill(ctx context.Context, in BillInput) (models.Bill, error) {
	if err := in.validate(); err != nil {
		return models.Bill{}, err
	}
	bill := models.Bill{
		Title:      strings.TrimSpace(in.Title),
		Amount:     in.Amount.Round(2),
		DueDate:    period.DateOnly(in.DueDate),
		Recurring:  in.Recurring,
		CategoryID: in.CategoryID,
		PersonID:   in.PersonID,
		Status:     models.BillOpen,
	}
	if in.Recurring {
		bill.RecurringActive = true
		bill.SeriesID = uuid.New().String()
		bill.RecurringEndDate = period.DateOnly(in.RecurringEndDate)
	}

	bill, err := b.l.repo.CreateBill(ctx, b.household, bill)
	if err != nil {
		return models.Bill{}, translate("create the bill", "bill", "", err)
	}
	b.notify(ctx, storage.Bills, bill.ID, ActionCreated)
	return bill, nil
}

// UpdateBill edits one occurrence. The series id and status are kept;
// turning recurrence on starts a series and turning it off leaves it.
func (b *Book) UpdateBill(ctx context.Context, id string, in BillInput) (models.Bill, error) {
	if err := in.validate(); err != nil {
		return models.Bill{}, err
	}
	cur, err := b.l.repo.GetBill(ctx, b.household, id)
	if err != nil {
		return models.Bill{}, translate("load the bill", "bill", id, err)
	}

	next := cur
	next.Title = strings.TrimSpace(in.Title)
	next.Amount = in.Amount.Round(2)
	next.DueDate = period.DateOnly(in.DueDate)
	next.CategoryID = in.CategoryID
	next.PersonID = in.PersonID
	next.Recurring = in.Recurring
	next.RecurringEndDate = period.DateOnly(in.RecurringEndDate)
	if in.Recurring && !cur.Recurring {
		next.RecurringActive = true
	}
	if in.Recurring && next.SeriesID == "" {
		next.SeriesID = uuid.New().String()
	}
	next.Normalize()

	if err := b.l.repo.UpdateBill(ctx, b.household, next); err != nil {
		return models.Bill{}, translate("update the bill", "bill", id, err)
	}
	b.notify(ctx, storage.Bills, id, ActionUpdated)
	return next, nil
}

// DeleteBill removes one occurrence. The rest of its series is kept.
func (b *Book) DeleteBill(ctx context.Context, id string) error {
	if err := b.l.repo.DeleteBill(ctx, b.household, id); err != nil {
		return translate("delete the bill", "bill", id, err)
	}
	b.notify(ctx, storage.Bills, id, ActionDeleted)
	return nil
}

// ListBills returns the occurrences matching f ordered by due date.
func (b *Book) ListBills(ctx context.Context, f BillFilter) ([]models.Bill, error) {
	if err := f.Period.Validate(); err != nil {
		return nil, invalidErr("period", err)
	}
	q := storage.Query{}
	if f.PersonID != "" {
		q = q.Equal(storage.FieldPersonID, f.PersonID)
	}
	if f.CategoryID != "" {
		q = q.Equal(storage.FieldCategoryID, f.CategoryID)
	}
	if f.SeriesID != "" {
		q = q.Equal(storage.FieldSeriesID, f.SeriesID)
	}
	all, err := b.l.repo.ListBills(ctx, b.household, q)
	if err != nil {
		return nil, translate("list bills", "bill", "", err)
	}

	bills := calculator.FilterBills(all, calculator.Filter{PersonID: f.PersonID, Period: f.Period})
	if f.Status == "" {
		return bills, nil
	}
	out := bills[:0]
	for _, bill := range bills {
		if bill.Status == f.Status {
			out = append(out, bill)
		}
	}
	return out, nil
}

// ToggleBill flips an occurrence between open and paid. Paying an
// occurrence of an active series rolls the series forward.
func (b *Book) ToggleBill(ctx context.Context, id string) (ToggleResult, error) {
	cur, err := b.l.repo.GetBill(ctx, b.household, id)
	if err != nil {
		return ToggleResult{}, translate("load the bill", "bill", id, err)
	}
	next := calculator.ToggleBill(cur)
	if err := b.l.repo.SetBillStatus(ctx, b.household, id, next.Status); err != nil {
		return ToggleResult{}, translate("update the bill", "bill", id, err)
	}
	b.notify(ctx, storage.Bills, id, ActionUpdated)

	res := ToggleResult{Bill: next}
	if next.Status != models.BillPaid {
		return res, nil
	}
	successor, err := b.rollForward(ctx, next)
	if err != nil {
		return res, err
	}
	res.Successor = successor
	return res, nil
}

// rollForward creates the occurrence that follows bill unless the series
// is stopped, the end date has passed, or the occurrence already exists.
func (b *Book) rollForward(ctx context.Context, bill models.Bill) (*models.Bill, error) {
	next, ok := calculator.NextDueDate(bill)
	if !ok {
		b.l.observer.RollForward(RollSkipped)
		return nil, nil
	}

	series, err := b.l.repo.SeriesBills(ctx, b.household, bill.SeriesID)
	if err != nil {
		b.l.observer.RollForward(RollFailed)
		return nil, translate("create the next bill", "series", bill.SeriesID, err)
	}
	successor, ok := calculator.Successor(bill, series)
	if !ok {
		b.l.observer.RollForward(RollExisting)
		return nil, nil
	}

	created, err := b.l.repo.CreateBillWithID(ctx, b.household, SuccessorID(bill.SeriesID, next), successor)
	if errors.Is(err, storage.ErrAlreadyExists) {
		b.l.observer.RollForward(RollExisting)
		return nil, nil
	}
	if err != nil {
		b.l.observer.RollForward(RollFailed)
		return nil, translate("create the next bill", "series", bill.SeriesID, err)
	}

	b.l.observer.RollForward(RollCreated)
	b.notify(ctx, storage.Bills, created.ID, ActionCreated)
	b.l.logger.Info("Recurring bill rolled forward",
		"household_id", b.household, "series_id", bill.SeriesID, "due_date", period.FormatDate(next))
	return &created, nil
}

// StopRecurrence disables roll-forward on every occurrence of a series.
// Occurrences are otherwise untouched.
func (b *Book) StopRecurrence(ctx context.Context, seriesID string) (BulkResult, error) {
	if strings.TrimSpace(seriesID) == "" {
		return BulkResult{}, invalid("seriesId", "series id is required")
	}
	series, err := b.l.repo.SeriesBills(ctx, b.household, seriesID)
	if err != nil {
		return BulkResult{}, translate("stop the recurrence", "series", seriesID, err)
	}
	if len(series) == 0 {
		return BulkResult{}, &NotFoundError{Kind: "series", ID: seriesID}
	}

	res := bulk(ctx, b, "stop recurrence", series,
		func(bill models.Bill) string { return bill.ID },
		func(ctx context.Context, bill models.Bill) error {
			if err := b.l.repo.SetRecurringActive(ctx, b.household, bill.ID, false); err != nil {
				return translate("stop the recurrence", "bill", bill.ID, err)
			}
			b.notify(ctx, storage.Bills, bill.ID, ActionUpdated)
			return nil
		})
	return res, res.Err()
}
