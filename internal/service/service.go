// Package service exposes the ledger over Connect RPC. Messages are plain Go
// structs encoded as JSON.
package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/hearth/internal/auth"
	"github.com/mmynk/hearth/internal/calculator"
	"github.com/mmynk/hearth/internal/ledger"
	"github.com/mmynk/hearth/internal/live"
	"github.com/mmynk/hearth/internal/models"
	"github.com/mmynk/hearth/internal/period"
	"github.com/mmynk/hearth/internal/report"
)

// Service implements every RPC of the hearth.v1 package.
type Service struct {
	ledger  *ledger.Ledger
	hub     *live.Hub
	reports *report.Builder
}

// New creates the service. hub may be nil, in which case WatchDashboard is
// unavailable.
func New(l *ledger.Ledger, hub *live.Hub, reports *report.Builder) *Service {
	return &Service{ledger: l, hub: hub, reports: reports}
}

// Route is one mounted procedure.
type Route struct {
	Path    string
	Handler http.Handler
}

func unary[Req, Res any](procedure string, fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error), opts []connect.HandlerOption) Route {
	return Route{Path: procedure, Handler: connect.NewUnaryHandler(procedure, fn, opts...)}
}

// Routes builds a handler per procedure. The JSON codec is always installed.
func (s *Service) Routes(opts ...connect.HandlerOption) []Route {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)
	return []Route{
		unary(CreateHouseholdProcedure, s.CreateHousehold, opts),
		unary(ListHouseholdsProcedure, s.ListHouseholds, opts),
		unary(JoinHouseholdProcedure, s.JoinHousehold, opts),
		unary(GetMembershipProcedure, s.GetMembership, opts),

		unary(AddPersonProcedure, s.AddPerson, opts),
		unary(UpdatePersonProcedure, s.UpdatePerson, opts),
		unary(RemovePersonProcedure, s.RemovePerson, opts),
		unary(ListPeopleProcedure, s.ListPeople, opts),
		unary(AddCategoryProcedure, s.AddCategory, opts),
		unary(RemoveCategoryProcedure, s.RemoveCategory, opts),
		unary(ListCategoriesProcedure, s.ListCategories, opts),

		unary(CreatePurchaseProcedure, s.CreatePurchase, opts),
		unary(AmendPurchaseProcedure, s.AmendPurchase, opts),
		unary(DeletePurchaseProcedure, s.DeletePurchase, opts),
		unary(GetPurchaseProcedure, s.GetPurchase, opts),
		unary(GetPurchaseFormProcedure, s.GetPurchaseForm, opts),
		unary(DeleteInstallmentProcedure, s.DeleteInstallment, opts),
		unary(ListInstallmentsProcedure, s.ListInstallments, opts),
		unary(ToggleInstallmentProcedure, s.ToggleInstallment, opts),
		unary(RecordPartialPaymentProcedure, s.RecordPartialPayment, opts),
		unary(MarkAllPaidProcedure, s.MarkAllPaid, opts),

		unary(CreateBillProcedure, s.CreateBill, opts),
		unary(UpdateBillProcedure, s.UpdateBill, opts),
		unary(DeleteBillProcedure, s.DeleteBill, opts),
		unary(ListBillsProcedure, s.ListBills, opts),
		unary(ToggleBillProcedure, s.ToggleBill, opts),
		unary(StopRecurrenceProcedure, s.StopRecurrence, opts),

		unary(GetDashboardProcedure, s.GetDashboard, opts),
		unary(GetReportProcedure, s.GetReport, opts),
		unary(GetFilterOptionsProcedure, s.GetFilterOptions, opts),
		{
			Path:    WatchDashboardProcedure,
			Handler: connect.NewServerStreamHandler(WatchDashboardProcedure, s.WatchDashboard, opts...),
		},
	}
}

// Handler serves every route on one mux.
func (s *Service) Handler(opts ...connect.HandlerOption) http.Handler {
	mux := http.NewServeMux()
	for _, r := range s.Routes(opts...) {
		mux.Handle(r.Path, r.Handler)
	}
	return mux
}

func userID(ctx context.Context) (string, error) {
	id := auth.UserID(ctx)
	if id == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return id, nil
}

// book opens householdID, or the caller's current household when empty.
func (s *Service) book(ctx context.Context, householdID string) (*ledger.Book, error) {
	user, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	return s.ledger.Open(ctx, user, strings.TrimSpace(householdID))
}

func parseAmount(field, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, badInput(field, fmt.Errorf("invalid amount %q", s))
	}
	return d, nil
}

func parseOptionalDate(field, s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	d, err := period.ParseDate(s)
	if err != nil {
		return time.Time{}, badInput(field, err)
	}
	return d, nil
}

func parsePeriod(month, year string) (period.Filter, error) {
	f := period.Filter{Month: strings.TrimSpace(month), Year: strings.TrimSpace(year)}
	if err := f.Validate(); err != nil {
		return period.Filter{}, badInput("period", err)
	}
	return f, nil
}

func parsePurchase(in PurchaseInput) (calculator.Purchase, error) {
	total, err := parseAmount("total", in.Total)
	if err != nil {
		return calculator.Purchase{}, err
	}
	purchased, err := parseOptionalDate("purchaseDate", in.PurchaseDate)
	if err != nil {
		return calculator.Purchase{}, err
	}
	firstDue, err := parseOptionalDate("firstDueDate", in.FirstDueDate)
	if err != nil {
		return calculator.Purchase{}, err
	}
	return calculator.Purchase{
		PersonID:     in.PersonID,
		Description:  in.Description,
		Total:        total,
		Installments: in.Installments,
		PurchaseDate: purchased,
		FirstDueDate: firstDue,
	}, nil
}

func parseBill(in BillInput) (ledger.BillInput, error) {
	amount, err := parseAmount("amount", in.Amount)
	if err != nil {
		return ledger.BillInput{}, err
	}
	due, err := parseOptionalDate("dueDate", in.DueDate)
	if err != nil {
		return ledger.BillInput{}, err
	}
	end, err := parseOptionalDate("recurringEndDate", in.RecurringEndDate)
	if err != nil {
		return ledger.BillInput{}, err
	}
	return ledger.BillInput{
		Title:            in.Title,
		Amount:           amount,
		DueDate:          due,
		Recurring:        in.Recurring,
		RecurringEndDate: end,
		CategoryID:       in.CategoryID,
		PersonID:         in.PersonID,
	}, nil
}

func parseDebtFilter(in DebtFilter) (ledger.DebtFilter, error) {
	p, err := parsePeriod(in.Month, in.Year)
	if err != nil {
		return ledger.DebtFilter{}, err
	}
	status := models.DebtStatus(strings.TrimSpace(in.Status))
	if status != "" && !status.Valid() {
		return ledger.DebtFilter{}, badInput("status", fmt.Errorf("unknown status %q", in.Status))
	}
	return ledger.DebtFilter{PersonID: in.PersonID, GroupID: in.GroupID, Period: p, Status: status}, nil
}

func parseBillFilter(in BillFilter) (ledger.BillFilter, error) {
	p, err := parsePeriod(in.Month, in.Year)
	if err != nil {
		return ledger.BillFilter{}, err
	}
	status := models.BillStatus(strings.TrimSpace(in.Status))
	if status != "" && status != models.BillOpen && status != models.BillPaid {
		return ledger.BillFilter{}, badInput("status", fmt.Errorf("unknown status %q", in.Status))
	}
	return ledger.BillFilter{
		PersonID:   in.PersonID,
		CategoryID: in.CategoryID,
		SeriesID:   in.SeriesID,
		Period:     p,
		Status:     status,
	}, nil
}
