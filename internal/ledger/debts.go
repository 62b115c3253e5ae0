package ledger

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/hearth/internal/calculator"
	"github.com/mmynk/hearth/internal/models"
	"github.com/mmynk/hearth/internal/period"
	"github.com/mmynk/hearth/internal/storage"
)

// DebtFilter selects installments. Zero fields select everything.
type DebtFilter struct {
	PersonID string
	GroupID  string
	Period   period.Filter
	Status   models.DebtStatus
}

// PurchaseSummary is one purchase with all of its installments.
type PurchaseSummary struct {
	GroupID      string
	Description  string
	PersonID     string
	Total        decimal.Decimal
	Installments []models.DebtInstallment
	Totals       calculator.Totals
}

func summarize(groupID string, installments []models.DebtInstallment) PurchaseSummary {
	s := PurchaseSummary{GroupID: groupID, Installments: installments, Total: decimal.Zero}
	for _, d := range installments {
		s.Total = s.Total.Add(d.Amount)
	}
	if len(installments) > 0 {
		s.Description = installments[0].Description
		s.PersonID = installments[0].PersonID
	}
	s.Totals = calculator.DebtTotals(installments)
	return s
}

func purchaseField(err error) string {
	switch {
	case errors.Is(err, calculator.ErrInvalidAmount):
		return "totalAmount"
	case errors.Is(err, calculator.ErrInvalidInstallments):
		return "installmentsCount"
	case errors.Is(err, calculator.ErrMissingPerson):
		return "personId"
	case errors.Is(err, calculator.ErrMissingDescription):
		return "description"
	case errors.Is(err, calculator.ErrMissingDueDate):
		return "dueDate"
	}
	return ""
}

// CreatePurchase expands a purchase into its installments under a fresh
// group id and stores all of them. When any write fails the installments
// already written are removed again.
func (b *Book) CreatePurchase(ctx context.Context, p calculator.Purchase) (PurchaseSummary, error) {
	return b.writePurchase(ctx, uuid.New().String(), p, "create the purchase")
}

func (b *Book) writePurchase(ctx context.Context, groupID string, p calculator.Purchase, action string) (PurchaseSummary, error) {
	installments, err := calculator.ExpandInstallments(p, groupID)
	if err != nil {
		return PurchaseSummary{}, invalidErr(purchaseField(err), err)
	}

	created := make([]models.DebtInstallment, len(installments))
	res := bulk(ctx, b, "create installments", installments,
		func(d models.DebtInstallment) string { return strconv.Itoa(d.InstallmentNumber) },
		func(ctx context.Context, d models.DebtInstallment) error {
			c, err := b.l.repo.CreateInstallment(ctx, b.household, d)
			if err != nil {
				return err
			}
			created[d.InstallmentNumber-1] = c
			return nil
		})

	if res.Failed() > 0 {
		var written []models.DebtInstallment
		for _, c := range created {
			if c.ID != "" {
				written = append(written, c)
			}
		}
		bulk(ctx, b, "undo installments", written,
			func(d models.DebtInstallment) string { return d.ID },
			func(ctx context.Context, d models.DebtInstallment) error {
				return b.l.repo.DeleteInstallment(ctx, b.household, d.ID)
			})
		return PurchaseSummary{}, translate(action, "purchase", groupID, res.Failures[0].Err)
	}

	for _, c := range created {
		b.notify(ctx, storage.Debts, c.ID, ActionCreated)
	}
	b.l.logger.Info("Purchase stored",
		"household_id", b.household, "group_id", groupID, "installments", len(created))
	return summarize(groupID, created), nil
}

// AmendPurchase replaces every installment of a purchase with a fresh
// expansion of p under the same group id. Payments recorded on the old
// installments are discarded.
func (b *Book) AmendPurchase(ctx context.Context, groupID string, p calculator.Purchase) (PurchaseSummary, error) {
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return PurchaseSummary{}, invalidErr(purchaseField(err), err)
	}

	res, err := b.DeletePurchase(ctx, groupID)
	if err != nil {
		return PurchaseSummary{}, err
	}
	b.l.logger.Info("Purchase amended", "household_id", b.household, "group_id", groupID, "replaced", res.Total)
	return b.writePurchase(ctx, groupID, p, "amend the purchase")
}

// DeletePurchase removes every installment of a purchase.
func (b *Book) DeletePurchase(ctx context.Context, groupID string) (BulkResult, error) {
	installments, err := b.l.repo.GroupInstallments(ctx, b.household, groupID)
	if err != nil {
		return BulkResult{}, translate("load the purchase", "purchase", groupID, err)
	}
	if len(installments) == 0 {
		return BulkResult{}, &NotFoundError{Kind: "purchase", ID: groupID}
	}

	res := bulk(ctx, b, "delete installments", installments,
		func(d models.DebtInstallment) string { return d.ID },
		func(ctx context.Context, d models.DebtInstallment) error {
			if err := b.l.repo.DeleteInstallment(ctx, b.household, d.ID); err != nil {
				return translate("delete the installment", "installment", d.ID, err)
			}
			b.notify(ctx, storage.Debts, d.ID, ActionDeleted)
			return nil
		})
	return res, res.Err()
}

// DeleteInstallment removes a single installment.
func (b *Book) DeleteInstallment(ctx context.Context, id string) error {
	if err := b.l.repo.DeleteInstallment(ctx, b.household, id); err != nil {
		return translate("delete the installment", "installment", id, err)
	}
	b.notify(ctx, storage.Debts, id, ActionDeleted)
	return nil
}

// ListInstallments returns the installments matching f ordered by due date.
func (b *Book) ListInstallments(ctx context.Context, f DebtFilter) ([]models.DebtInstallment, error) {
	if err := f.Period.Validate(); err != nil {
		return nil, invalidErr("period", err)
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, invalid("status", "unknown status %q", f.Status)
	}

	q := storage.Query{}
	if f.PersonID != "" {
		q = q.Equal(storage.FieldPersonID, f.PersonID)
	}
	if f.GroupID != "" {
		q = q.Equal(storage.FieldGroupID, f.GroupID)
	}
	all, err := b.l.repo.ListInstallments(ctx, b.household, q)
	if err != nil {
		return nil, translate("list installments", "installment", "", err)
	}

	debts := calculator.FilterDebts(all, calculator.Filter{PersonID: f.PersonID, Period: f.Period})
	if f.Status == "" {
		return debts, nil
	}
	out := debts[:0]
	for _, d := range debts {
		if d.Status == f.Status {
			out = append(out, d)
		}
	}
	return out, nil
}

// Purchase returns every installment of one purchase by installment number.
func (b *Book) Purchase(ctx context.Context, groupID string) (PurchaseSummary, error) {
	installments, err := b.l.repo.GroupInstallments(ctx, b.household, groupID)
	if err != nil {
		return PurchaseSummary{}, translate("load the purchase", "purchase", groupID, err)
	}
	if len(installments) == 0 {
		return PurchaseSummary{}, &NotFoundError{Kind: "purchase", ID: groupID}
	}
	return summarize(groupID, installments), nil
}

// PurchaseForm recovers the editable inputs of the purchase an installment
// belongs to.
func (b *Book) PurchaseForm(ctx context.Context, installmentID string) (calculator.Purchase, string, error) {
	d, err := b.l.repo.GetInstallment(ctx, b.household, installmentID)
	if err != nil {
		return calculator.Purchase{}, "", translate("load the installment", "installment", installmentID, err)
	}
	return calculator.PurchaseOf(d), d.GroupID, nil
}

// ToggleInstallment flips an installment between paid and open.
func (b *Book) ToggleInstallment(ctx context.Context, id string) (models.DebtInstallment, error) {
	d, err := b.l.repo.GetInstallment(ctx, b.household, id)
	if err != nil {
		return models.DebtInstallment{}, translate("load the installment", "installment", id, err)
	}
	next := calculator.ToggleInstallment(d)
	if err := b.l.repo.SavePayment(ctx, b.household, next); err != nil {
		return models.DebtInstallment{}, translate("update the installment", "installment", id, err)
	}
	b.notify(ctx, storage.Debts, id, ActionUpdated)
	return next, nil
}

// RecordPartialPayment adds value to an installment's paid amount. Values
// outside (0, remaining] are rejected without writing anything.
func (b *Book) RecordPartialPayment(ctx context.Context, id string, value decimal.Decimal) (models.DebtInstallment, error) {
	d, err := b.l.repo.GetInstallment(ctx, b.household, id)
	if err != nil {
		return models.DebtInstallment{}, translate("load the installment", "installment", id, err)
	}
	next, err := calculator.ApplyPartialPayment(d, value)
	if err != nil {
		return models.DebtInstallment{}, invalidErr("value", err)
	}
	if err := b.l.repo.SavePayment(ctx, b.household, next); err != nil {
		return models.DebtInstallment{}, translate("record the payment", "installment", id, err)
	}
	b.notify(ctx, storage.Debts, id, ActionUpdated)
	return next, nil
}

// MarkAllPaid settles every unpaid installment matching f. Each write is
// independent: failures are reported per item and never undo the others.
func (b *Book) MarkAllPaid(ctx context.Context, f DebtFilter) (BulkResult, error) {
	debts, err := b.ListInstallments(ctx, f)
	if err != nil {
		return BulkResult{}, err
	}
	var unpaid []models.DebtInstallment
	for _, d := range debts {
		if d.Status != models.DebtPaid {
			unpaid = append(unpaid, d)
		}
	}

	res := bulk(ctx, b, "mark installments paid", unpaid,
		func(d models.DebtInstallment) string { return d.ID },
		func(ctx context.Context, d models.DebtInstallment) error {
			if err := b.l.repo.SavePayment(ctx, b.household, calculator.MarkInstallmentPaid(d)); err != nil {
				return translate("mark the installment paid", "installment", d.ID, err)
			}
			b.notify(ctx, storage.Debts, d.ID, ActionUpdated)
			return nil
		})
	return res, res.Err()
}
