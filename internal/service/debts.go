package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/hearth/internal/calculator"
)

// CreatePurchase expands a purchase into its installments.
func (s *Service) CreatePurchase(ctx context.Context, req *connect.Request[CreatePurchaseRequest]) (*connect.Response[PurchaseResponse], error) {
	b, err := s.book(ctx, req.Msg.HouseholdID)
	if err != nil {
		return nil, fail(ctx, "CreatePurchase", err)
	}
	slog.InfoContext(ctx, "CreatePurchase request received",
		"household_id", b.HouseholdID(),
		"person_id", req.Msg.Purchase.PersonID,
		"installments", req.Msg.Purchase.Installments,
	)

	p, err := parsePurchase(req.Msg.Purchase)
	if err != nil {
		return nil, fail(ctx, "CreatePurchase", err)
	}
	summary, err := b.CreatePurchase(ctx, p)
	if err != nil {
		return nil, fail(ctx, "CreatePurchase", err, "household_id", b.HouseholdID())
	}
	slog.InfoContext(ctx, "Purchase created", "group_id", summary.GroupID, "installments", len(summary.Installments))
	return connect.NewResponse(&PurchaseResponse{Purchase: toPurchase(summary)}), nil
}

// AmendPurchase replaces every installment of a group with a new expansion.
func (s *Service) AmendPurchase(ctx context.Context, req *connect.Request[AmendPurchaseRequest]) (*connect.Response[PurchaseResponse], error) {
	b, err := s.book(ctx, req.Msg.HouseholdID)
	if err != nil {
		return nil, fail(ctx, "AmendPurchase", err)
	}
	slog.InfoContext(ctx, "AmendPurchase request received", "household_id", b.HouseholdID(), "group_id", req.Msg.GroupID)

	p, err := parsePurchase(req.Msg.Purchase)
	if err != nil {
		return nil, fail(ctx, "AmendPurchase", err)
	}
	summary, err := b.AmendPurchase(ctx, req.Msg.GroupID, p)
	if err != nil {
		return nil, fail(ctx, "AmendPurchase", err, "household_id", b.HouseholdID(), "group_id", req.Msg.GroupID)
	}
	return connect.NewResponse(&PurchaseResponse{Purchase: toPurchase(summary)}), nil
}

// DeletePurchase deletes every installment of a group, best effort.
func (s *Service) DeletePurchase(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[BulkResponse], error) {
	b, err := s.book(ctx, req.Msg.HouseholdID)
	if err != nil {
		return nil, fail(ctx, "DeletePurchase", err)
	}
	res, err := b.DeletePurchase(ctx, req.Msg.GroupID)
	if err != nil && !partial(err) {
		return nil, fail(ctx, "DeletePurchase", err, "household_id", b.HouseholdID(), "group_id", req.Msg.GroupID)
	}
	return connect.NewResponse(ptr(toBulk(res))), nil
}

func (s *Service) GetPurchase(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[PurchaseResponse], error) {
	b, err := s.book(ctx, req.Msg.HouseholdID)
	if err != nil {
		return nil, fail(ctx, "GetPurchase", err)
	}
	summary, err := b.Purchase(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, fail(ctx, "GetPurchase", err, "household_id", b.HouseholdID(), "group_id", req.Msg.GroupID)
	}
	return connect.NewResponse(&PurchaseResponse{Purchase: toPurchase(summary)}), nil
}

// GetPurchaseForm recovers the editable purchase from any of its
// installments.
func (s *Service) GetPurchaseForm(ctx context.Context, req *connect.Request[IDRequest]) (*connect.Response[PurchaseFormResponse], error) {
	b, err := s.book(ctx, req.Msg.HouseholdID)
	if err != nil {
		return nil, fail(ctx, "GetPurchaseForm", err)
	}
	p, groupID, err := b.PurchaseForm(ctx, req.Msg.ID)
	if err != nil {
		return nil, fail(ctx, "GetPurchaseForm", err, "household_id", b.HouseholdID(), "installment_id", req.Msg.ID)
	}
	return connect.NewResponse(&PurchaseFormResponse{GroupID: groupID, Purchase: toPurchaseInput(p)}), nil
}

func (s *Service) DeleteInstallment(ctx context.Context, req *connect.Request[IDRequest]) (*connect.Response[Empty], error) {
	b, err := s.book(ctx, req.Msg.HouseholdID)
	if err != nil {
		return nil, fail(ctx, "DeleteInstallment", err)
	}
	if err := b.DeleteInstallment(ctx, req.Msg.ID); err != nil {
		return nil, fail(ctx, "DeleteInstallment", err, "household_id", b.HouseholdID(), "installment_id", req.Msg.ID)
	}
	return connect.NewResponse(&Empty{}), nil
}

func (s *Service) ListInstallments(ctx context.Context, req *connect.Request[DebtFilter]) (*connect.Response[ListInstallmentsResponse], error) {
	b, err := s.book(ctx, req.Msg.HouseholdID)
	if err != nil {
		return nil, fail(ctx, "ListInstallments", err)
	}
	f, err := parseDebtFilter(*req.Msg)
	if err != nil {
		return nil, fail(ctx, "ListInstallments", err)
	}
	debts, err := b.ListInstallments(ctx, f)
	if err != nil {
		return nil, fail(ctx, "ListInstallments", err, "household_id", b.HouseholdID())
	}
	return connect.NewResponse(&ListInstallmentsResponse{
		Installments: toInstallments(debts),
		Totals:       toTotals(calculator.DebtTotals(debts)),
	}), nil
}

// ToggleInstallment flips an installment between paid and open. Partial
// installments become paid.
func (s *Service) ToggleInstallment(ctx context.Context, req *connect.Request[IDRequest]) (*connect.Response[InstallmentResponse], error) {
	b, err := s.book(ctx, req.Msg.HouseholdID)
	if err != nil {
		return nil, fail(ctx, "ToggleInstallment", err)
	}
	d, err := b.ToggleInstallment(ctx, req.Msg.ID)
	if err != nil {
		return nil, fail(ctx, "ToggleInstallment", err, "household_id", b.HouseholdID(), "installment_id", req.Msg.ID)
	}
	slog.InfoContext(ctx, "Installment toggled", "installment_id", d.ID, "status", d.Status)
	return connect.NewResponse(&InstallmentResponse{Installment: toInstallment(d)}), nil
}

func (s *Service) RecordPartialPayment(ctx context.Context, req *connect.Request[PartialPaymentRequest]) (*connect.Response[InstallmentResponse], error) {
	b, err := s.book(ctx, req.Msg.HouseholdID)
	if err != nil {
		return nil, fail(ctx, "RecordPartialPayment", err)
	}
	value, err := parseAmount("value", req.Msg.Value)
	if err != nil {
		return nil, fail(ctx, "RecordPartialPayment", err)
	}
	d, err := b.RecordPartialPayment(ctx, req.Msg.ID, value)
	if err != nil {
		return nil, fail(ctx, "RecordPartialPayment", err, "household_id", b.HouseholdID(), "installment_id", req.Msg.ID)
	}
	return connect.NewResponse(&InstallmentResponse{Installment: toInstallment(d)}), nil
}

// MarkAllPaid settles every unpaid installment matching the filter, best
// effort. Failed items are listed in the response.
func (s *Service) MarkAllPaid(ctx context.Context, req *connect.Request[DebtFilter]) (*connect.Response[BulkResponse], error) {
	b, err := s.book(ctx, req.Msg.HouseholdID)
	if err != nil {
		return nil, fail(ctx, "MarkAllPaid", err)
	}
	f, err := parseDebtFilter(*req.Msg)
	if err != nil {
		return nil, fail(ctx, "MarkAllPaid", err)
	}
	res, err := b.MarkAllPaid(ctx, f)
	if err != nil && !partial(err) {
		return nil, fail(ctx, "MarkAllPaid", err, "household_id", b.HouseholdID())
	}
	return connect.NewResponse(ptr(toBulk(res))), nil
}

func ptr[T any](v T) *T { return &v }
