package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/hearth/internal/models"
	"github.com/mmynk/hearth/internal/period"
	"github.com/mmynk/hearth/internal/storage"
	"github.com/mmynk/hearth/internal/storage/memory"
)

func rent() BillInput {
	return BillInput{
		Title:     "Rent",
		Amount:    d("1500"),
		DueDate:   period.Date(2024, 1, 31),
		Recurring: true,
	}
}

func TestToggleBillRollsForwardOnce(t *testing.T) {
	obs := &recordingObserver{}
	book, _ := newTestBook(t, nil, WithObserver(obs))
	ctx := context.Background()

	bill, err := book.CreateBill(ctx, rent())
	require.NoError(t, err)
	require.NotEmpty(t, bill.SeriesID)
	assert.True(t, bill.RecurringActive)

	res, err := book.ToggleBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BillPaid, res.Bill.Status)
	require.NotNil(t, res.Successor)
	assert.Equal(t, period.Date(2024, 2, 29), res.Successor.DueDate)
	assert.Equal(t, models.BillOpen, res.Successor.Status)
	assert.Equal(t, bill.SeriesID, res.Successor.SeriesID)
	assert.Equal(t, SuccessorID(bill.SeriesID, period.Date(2024, 2, 29)), res.Successor.ID)

	// Reopen and pay again: the successor already exists.
	_, err = book.ToggleBill(ctx, bill.ID)
	require.NoError(t, err)
	res, err = book.ToggleBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Nil(t, res.Successor)

	series, err := book.ListBills(ctx, BillFilter{SeriesID: bill.SeriesID})
	require.NoError(t, err)
	assert.Len(t, series, 2)
	assert.Equal(t, 1, obs.rolls[RollCreated])
	assert.Equal(t, 1, obs.rolls[RollExisting])
}

func TestRollForwardIsExclusive(t *testing.T) {
	book, _ := newTestBook(t, nil)
	ctx := context.Background()

	bill, err := book.CreateBill(ctx, rent())
	require.NoError(t, err)
	bill.Status = models.BillPaid

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := book.rollForward(ctx, bill)
			assert.NoError(t, err)
			if s != nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	series, err := book.ListBills(ctx, BillFilter{SeriesID: bill.SeriesID})
	require.NoError(t, err)
	assert.Len(t, series, 2)
}

func TestRollForwardRespectsEndDate(t *testing.T) {
	book, _ := newTestBook(t, nil)
	ctx := context.Background()

	in := rent()
	in.RecurringEndDate = period.Date(2024, 2, 28)
	bill, err := book.CreateBill(ctx, in)
	require.NoError(t, err)

	res, err := book.ToggleBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Nil(t, res.Successor)

	in.RecurringEndDate = period.Date(2024, 2, 29)
	bill, err = book.CreateBill(ctx, in)
	require.NoError(t, err)
	res, err = book.ToggleBill(ctx, bill.ID)
	require.NoError(t, err)
	require.NotNil(t, res.Successor, "end date is inclusive")

	res, err = book.ToggleBill(ctx, res.Successor.ID)
	require.NoError(t, err)
	assert.Nil(t, res.Successor, "March is past the end date")
}

func TestStopRecurrence(t *testing.T) {
	book, _ := newTestBook(t, nil)
	ctx := context.Background()

	bill, err := book.CreateBill(ctx, rent())
	require.NoError(t, err)
	res, err := book.ToggleBill(ctx, bill.ID)
	require.NoError(t, err)
	require.NotNil(t, res.Successor)

	bulkRes, err := book.StopRecurrence(ctx, bill.SeriesID)
	require.NoError(t, err)
	assert.Equal(t, 2, bulkRes.Total)

	series, err := book.ListBills(ctx, BillFilter{SeriesID: bill.SeriesID})
	require.NoError(t, err)
	for _, b := range series {
		assert.False(t, b.RecurringActive)
		assert.True(t, b.Recurring)
	}

	res, err = book.ToggleBill(ctx, res.Successor.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BillPaid, res.Bill.Status)
	assert.Nil(t, res.Successor)

	series, err = book.ListBills(ctx, BillFilter{SeriesID: bill.SeriesID})
	require.NoError(t, err)
	assert.Len(t, series, 2)

	_, err = book.StopRecurrence(ctx, "unknown")
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestStopRecurrencePartialFailure(t *testing.T) {
	failing := ""
	var mu sync.Mutex
	hook := func(op memory.Op, c storage.Collection, id string) error {
		mu.Lock()
		defer mu.Unlock()
		if op == memory.OpUpdate && id == failing {
			return storage.ErrPermissionDenied
		}
		return nil
	}
	book, _ := newTestBook(t, []memory.Option{memory.WithWriteHook(hook)})
	ctx := context.Background()

	bill, err := book.CreateBill(ctx, rent())
	require.NoError(t, err)
	res, err := book.ToggleBill(ctx, bill.ID)
	require.NoError(t, err)

	mu.Lock()
	failing = res.Successor.ID
	mu.Unlock()

	bulkRes, err := book.StopRecurrence(ctx, bill.SeriesID)
	var be *BulkError
	require.ErrorAs(t, err, &be)
	require.Len(t, bulkRes.Failures, 1)
	var pe *PermissionError
	assert.ErrorAs(t, bulkRes.Failures[0].Err, &pe)
	assert.Equal(t, []string{bill.ID}, bulkRes.Succeeded)
}

func TestOneOffBillNeverRolls(t *testing.T) {
	book, _ := newTestBook(t, nil)
	ctx := context.Background()

	bill, err := book.CreateBill(ctx, BillInput{Title: "Plumber", Amount: d("250"), DueDate: period.Date(2024, 2, 1)})
	require.NoError(t, err)
	assert.Empty(t, bill.SeriesID)
	assert.False(t, bill.RecurringActive)

	res, err := book.ToggleBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Nil(t, res.Successor)
}

func TestUpdateBillRecurrence(t *testing.T) {
	book, _ := newTestBook(t, nil)
	ctx := context.Background()

	bill, err := book.CreateBill(ctx, BillInput{Title: "Gym", Amount: d("90"), DueDate: period.Date(2024, 2, 1)})
	require.NoError(t, err)

	in := BillInput{Title: "Gym", Amount: d("95"), DueDate: period.Date(2024, 2, 1), Recurring: true}
	updated, err := book.UpdateBill(ctx, bill.ID, in)
	require.NoError(t, err)
	require.NotEmpty(t, updated.SeriesID)
	assert.True(t, updated.RecurringActive)

	again, err := book.UpdateBill(ctx, bill.ID, in)
	require.NoError(t, err)
	assert.Equal(t, updated.SeriesID, again.SeriesID, "series kept across edits")

	in.Recurring = false
	off, err := book.UpdateBill(ctx, bill.ID, in)
	require.NoError(t, err)
	assert.Empty(t, off.SeriesID)
	assert.False(t, off.RecurringActive)

	stored, err := book.ListBills(ctx, BillFilter{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "95.00", stored[0].Amount.StringFixed(2))
	assert.Empty(t, stored[0].SeriesID)
}

func TestCreateBillValidation(t *testing.T) {
	book, _ := newTestBook(t, nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		in    BillInput
		field string
	}{
		{"missing title", BillInput{Amount: d("1"), DueDate: period.Date(2024, 1, 1)}, "title"},
		{"zero amount", BillInput{Title: "x", DueDate: period.Date(2024, 1, 1)}, "amount"},
		{"missing due date", BillInput{Title: "x", Amount: d("1")}, "dueDate"},
		{"end before due", BillInput{Title: "x", Amount: d("1"), DueDate: period.Date(2024, 3, 1), Recurring: true, RecurringEndDate: period.Date(2024, 2, 1)}, "recurringEndDate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := book.CreateBill(ctx, tt.in)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "Amount must be greater than zero.", UserMessage(invalid("amount", "amount must be greater than zero")))
	assert.Equal(t, "You do not have permission to update the bill.", UserMessage(translate("update the bill", "bill", "b1", storage.ErrPermissionDenied)))
	assert.Equal(t, "Could not update the bill. Please try again.", UserMessage(translate("update the bill", "bill", "b1", errors.New("timeout"))))
	assert.Equal(t, "Bill b1 not found.", UserMessage(translate("update the bill", "bill", "b1", storage.ErrNotFound)))
	assert.Equal(t, "Could not complete the operation. Please try again.", UserMessage(errors.New("boom")))
}
