package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/hearth/internal/calculator"
)

func (s *Service) CreateBill(ctx context.Context, req *connect.Request[CreateBillRequest]) (*connect.Response[BillResponse], error) {
	b, err := s.book(ctx, req.Msg.HouseholdID)
	if err != nil {
		return nil, fail(ctx, "CreateBill", err)
	}
	slog.InfoContext(ctx, "CreateBill request received",
		"household_id", b.HouseholdID(),
		"title", req.Msg.Bill.Title,
		"recurring", req.Msg.Bill.Recurring,
	)

	in, err := parseBill(req.Msg.Bill)
	if err != nil {
		return nil, fail(ctx, "CreateBill", err)
	}
	bill, err := b.CreateBill(ctx, in)
	if err != nil {
		return nil, fail(ctx, "CreateBill", err, "household_id", b.HouseholdID())
	}
	return connect.NewResponse(&BillResponse{Bill: toBill(bill)}), nil
}

func (s *Service) UpdateBill(ctx context.Context, req *connect.Request[UpdateBillRequest]) (*connect.Response[BillResponse], error) {
	b, err := s.book(ctx, req.Msg.HouseholdID)
	if err != nil {
		return nil, fail(ctx, "UpdateBill", err)
	}
	in, err := parseBill(req.Msg.Bill)
	if err != nil {
		return nil, fail(ctx, "UpdateBill", err)
	}
	bill, err := b.UpdateBill(ctx, req.Msg.ID, in)
	if err != nil {
		return nil, fail(ctx, "UpdateBill", err, "household_id", b.HouseholdID(), "bill_id", req.Msg.ID)
	}
	return connect.NewResponse(&BillResponse{Bill: toBill(bill)}), nil
}

func (s *Service) DeleteBill(ctx context.Context, req *connect.Request[IDRequest]) (*connect.Response[Empty], error) {
	b, err := s.book(ctx, req.Msg.HouseholdID)
	if err != nil {
		return nil, fail(ctx, "DeleteBill", err)
	}
	if err := b.DeleteBill(ctx, req.Msg.ID); err != nil {
		return nil, fail(ctx, "DeleteBill", err, "household_id", b.HouseholdID(), "bill_id", req.Msg.ID)
	}
	return connect.NewResponse(&Empty{}), nil
}

func (s *Service) ListBills(ctx context.Context, req *connect.Request[BillFilter]) (*connect.Response[ListBillsResponse], error) {
	b, err := s.book(ctx, req.Msg.HouseholdID)
	if err != nil {
		return nil, fail(ctx, "ListBills", err)
	}
	f, err := parseBillFilter(*req.Msg)
	if err != nil {
		return nil, fail(ctx, "ListBills", err)
	}
	bills, err := b.ListBills(ctx, f)
	if err != nil {
		return nil, fail(ctx, "ListBills", err, "household_id", b.HouseholdID())
	}
	return connect.NewResponse(&ListBillsResponse{
		Bills:  toBills(bills),
		Totals: toTotals(calculator.BillTotals(bills)),
	}), nil
}

// ToggleBill flips a bill between open and paid. Paying an occurrence of an
// active series creates the next occurrence, returned as Successor.
func (s *Service) ToggleBill(ctx context.Context, req *connect.Request[IDRequest]) (*connect.Response[ToggleBillResponse], error) {
	b, err := s.book(ctx, req.Msg.HouseholdID)
	if err != nil {
		return nil, fail(ctx, "ToggleBill", err)
	}
	res, err := b.ToggleBill(ctx, req.Msg.ID)
	if err != nil {
		return nil, fail(ctx, "ToggleBill", err, "household_id", b.HouseholdID(), "bill_id", req.Msg.ID)
	}

	resp := &ToggleBillResponse{Bill: toBill(res.Bill)}
	if res.Successor != nil {
		resp.Successor = ptr(toBill(*res.Successor))
		slog.InfoContext(ctx, "Bill rolled forward", "bill_id", res.Bill.ID, "successor_id", res.Successor.ID, "series_id", res.Bill.SeriesID)
	}
	return connect.NewResponse(resp), nil
}

// StopRecurrence disables roll-forward on every occurrence of a series, best
// effort.
func (s *Service) StopRecurrence(ctx context.Context, req *connect.Request[StopRecurrenceRequest]) (*connect.Response[BulkResponse], error) {
	b, err := s.book(ctx, req.Msg.HouseholdID)
	if err != nil {
		return nil, fail(ctx, "StopRecurrence", err)
	}
	res, err := b.StopRecurrence(ctx, req.Msg.SeriesID)
	if err != nil && !partial(err) {
		return nil, fail(ctx, "StopRecurrence", err, "household_id", b.HouseholdID(), "series_id", req.Msg.SeriesID)
	}
	return connect.NewResponse(ptr(toBulk(res))), nil
}
