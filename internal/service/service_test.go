package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/hearth/internal/auth"
	"github.com/mmynk/hearth/internal/ledger"
	"github.com/mmynk/hearth/internal/live"
	"github.com/mmynk/hearth/internal/middleware"
	"github.com/mmynk/hearth/internal/report"
	"github.com/mmynk/hearth/internal/storage"
	"github.com/mmynk/hearth/internal/storage/memory"
)

var fixedNow = time.Date(2024, 2, 20, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	url     string
	jwt     *auth.JWTManager
	failID  atomic.Pointer[string]
	service *Service
}

// setupTestServer serves every procedure over httptest with auth enabled.
func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{}

	store := memory.New(memory.WithWriteHook(func(op memory.Op, _ storage.Collection, id string) error {
		if p := env.failID.Load(); p != nil && *p == id && op == memory.OpUpdate {
			return errors.New("write refused")
		}
		return nil
	}))
	t.Cleanup(func() { store.Close() })

	now := func() time.Time { return fixedNow }
	l := ledger.New(store, ledger.WithClock(now))
	f, err := report.NewFormatter("pt-BR", "R$")
	require.NoError(t, err)
	env.service = New(l, live.NewHub(store, now), report.NewBuilder(f, now))

	env.jwt, err = auth.NewJWTManager(strings.Repeat("k", 32), "test")
	require.NoError(t, err)

	handler := env.service.Handler(connect.WithInterceptors(middleware.RequireAuth(env.jwt)))
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	env.url = server.URL
	return env
}

func (e *testEnv) token(t *testing.T, user string) string {
	t.Helper()
	tok, err := e.jwt.Generate(auth.Identity{UserID: user}, time.Hour)
	require.NoError(t, err)
	return tok
}

func call[Req, Res any](t *testing.T, e *testEnv, token, procedure string, req *Req) (*Res, error) {
	t.Helper()
	opts := []connect.ClientOption{connect.WithCodec(JSONCodec{})}
	if token != "" {
		opts = append(opts, connect.WithInterceptors(middleware.BearerToken(token)))
	}
	client := connect.NewClient[Req, Res](http.DefaultClient, e.url+procedure, opts...)
	resp, err := client.CallUnary(context.Background(), connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// joinNewHousehold creates a household for user and returns its id.
func joinNewHousehold(t *testing.T, e *testEnv, token string) string {
	t.Helper()
	resp, err := call[CreateHouseholdRequest, HouseholdResponse](t, e, token, CreateHouseholdProcedure, &CreateHouseholdRequest{Name: "Casa"})
	require.NoError(t, err)
	return resp.Household.ID
}

func addPerson(t *testing.T, e *testEnv, token, name string) string {
	t.Helper()
	resp, err := call[PersonRequest, PersonResponse](t, e, token, AddPersonProcedure, &PersonRequest{Person: Person{Name: name}})
	require.NoError(t, err)
	return resp.Person.ID
}

func TestUnauthenticated(t *testing.T) {
	env := setupTestServer(t)
	_, err := call[HouseholdRequest, ListPeopleResponse](t, env, "", ListPeopleProcedure, &HouseholdRequest{})
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
}

func TestHouseholdMembership(t *testing.T) {
	env := setupTestServer(t)
	ana := env.token(t, "ana")
	bia := env.token(t, "bia")

	_, err := call[HouseholdRequest, ListPeopleResponse](t, env, ana, ListPeopleProcedure, &HouseholdRequest{})
	require.Error(t, err)
	assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))
	var connectErr *connect.Error
	require.ErrorAs(t, err, &connectErr)
	assert.Equal(t, "You do not have permission to access the household.", connectErr.Message())

	anaHouse := joinNewHousehold(t, env, ana)
	joinNewHousehold(t, env, bia)

	_, err = call[HouseholdRequest, ListPeopleResponse](t, env, bia, ListPeopleProcedure, &HouseholdRequest{HouseholdID: anaHouse})
	assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))

	joined, err := call[JoinHouseholdRequest, MembershipResponse](t, env, bia, JoinHouseholdProcedure, &JoinHouseholdRequest{HouseholdID: anaHouse})
	require.NoError(t, err)
	assert.Equal(t, anaHouse, joined.HouseholdID)

	m, err := call[Empty, MembershipResponse](t, env, bia, GetMembershipProcedure, &Empty{})
	require.NoError(t, err)
	assert.Equal(t, anaHouse, m.HouseholdID)

	list, err := call[Empty, ListHouseholdsResponse](t, env, bia, ListHouseholdsProcedure, &Empty{})
	require.NoError(t, err)
	assert.Len(t, list.Households, 2)

	_, err = call[JoinHouseholdRequest, MembershipResponse](t, env, bia, JoinHouseholdProcedure, &JoinHouseholdRequest{HouseholdID: "missing"})
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestPurchaseFlow(t *testing.T) {
	env := setupTestServer(t)
	tok := env.token(t, "ana")
	joinNewHousehold(t, env, tok)
	person := addPerson(t, env, tok, "João")

	created, err := call[CreatePurchaseRequest, PurchaseResponse](t, env, tok, CreatePurchaseProcedure, &CreatePurchaseRequest{
		Purchase: PurchaseInput{
			PersonID:     person,
			Description:  "TV",
			Total:        "100",
			Installments: 3,
			PurchaseDate: "2024-01-05",
			FirstDueDate: "2024-01-10",
		},
	})
	require.NoError(t, err)

	p := created.Purchase
	require.Len(t, p.Installments, 3)
	assert.Equal(t, "100.00", p.Total)
	var amounts, dues []string
	for _, in := range p.Installments {
		amounts = append(amounts, in.Amount)
		dues = append(dues, in.DueDate)
		assert.Equal(t, p.GroupID, in.GroupID)
	}
	assert.Equal(t, []string{"33.33", "33.33", "33.34"}, amounts)
	assert.Equal(t, []string{"2024-01-10", "2024-02-10", "2024-03-10"}, dues)

	toggled, err := call[IDRequest, InstallmentResponse](t, env, tok, ToggleInstallmentProcedure, &IDRequest{ID: p.Installments[0].ID})
	require.NoError(t, err)
	assert.Equal(t, "paid", toggled.Installment.Status)

	paid, err := call[PartialPaymentRequest, InstallmentResponse](t, env, tok, RecordPartialPaymentProcedure, &PartialPaymentRequest{ID: p.Installments[1].ID, Value: "10"})
	require.NoError(t, err)
	assert.Equal(t, "partial", paid.Installment.Status)
	assert.Equal(t, "23.33", paid.Installment.Remaining)

	list, err := call[DebtFilter, ListInstallmentsResponse](t, env, tok, ListInstallmentsProcedure, &DebtFilter{GroupID: p.GroupID})
	require.NoError(t, err)
	assert.Equal(t, "56.67", list.Totals.Open)

	form, err := call[IDRequest, PurchaseFormResponse](t, env, tok, GetPurchaseFormProcedure, &IDRequest{ID: p.Installments[2].ID})
	require.NoError(t, err)
	assert.Equal(t, p.GroupID, form.GroupID)
	assert.Equal(t, "2024-01-10", form.Purchase.FirstDueDate)
	assert.Equal(t, 3, form.Purchase.Installments)

	febOnly, err := call[DebtFilter, ListInstallmentsResponse](t, env, tok, ListInstallmentsProcedure, &DebtFilter{Month: "2024-02"})
	require.NoError(t, err)
	assert.Len(t, febOnly.Installments, 1)
}

func TestCreatePurchaseValidation(t *testing.T) {
	env := setupTestServer(t)
	tok := env.token(t, "ana")
	joinNewHousehold(t, env, tok)
	person := addPerson(t, env, tok, "João")

	tests := []struct {
		name  string
		input PurchaseInput
	}{
		{"zero total", PurchaseInput{PersonID: person, Description: "TV", Total: "0", Installments: 1, FirstDueDate: "2024-01-10"}},
		{"unparsable total", PurchaseInput{PersonID: person, Description: "TV", Total: "abc", Installments: 1, FirstDueDate: "2024-01-10"}},
		{"bad date", PurchaseInput{PersonID: person, Description: "TV", Total: "10", Installments: 1, FirstDueDate: "2024-02-30"}},
		{"missing person", PurchaseInput{Description: "TV", Total: "10", Installments: 1, FirstDueDate: "2024-01-10"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := call[CreatePurchaseRequest, PurchaseResponse](t, env, tok, CreatePurchaseProcedure, &CreatePurchaseRequest{Purchase: tt.input})
			assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
		})
	}
}

func TestBillRollForward(t *testing.T) {
	env := setupTestServer(t)
	tok := env.token(t, "ana")
	joinNewHousehold(t, env, tok)

	created, err := call[CreateBillRequest, BillResponse](t, env, tok, CreateBillProcedure, &CreateBillRequest{
		Bill: BillInput{Title: "Rent", Amount: "1500", DueDate: "2024-01-31", Recurring: true},
	})
	require.NoError(t, err)
	bill := created.Bill
	assert.True(t, bill.RecurringActive)
	assert.NotEmpty(t, bill.SeriesID)

	toggled, err := call[IDRequest, ToggleBillResponse](t, env, tok, ToggleBillProcedure, &IDRequest{ID: bill.ID})
	require.NoError(t, err)
	assert.Equal(t, "paid", toggled.Bill.Status)
	require.NotNil(t, toggled.Successor)
	assert.Equal(t, "2024-02-29", toggled.Successor.DueDate)
	assert.Equal(t, bill.SeriesID, toggled.Successor.SeriesID)
	assert.Equal(t, "open", toggled.Successor.Status)

	// Reopening and paying again does not duplicate the successor.
	_, err = call[IDRequest, ToggleBillResponse](t, env, tok, ToggleBillProcedure, &IDRequest{ID: bill.ID})
	require.NoError(t, err)
	again, err := call[IDRequest, ToggleBillResponse](t, env, tok, ToggleBillProcedure, &IDRequest{ID: bill.ID})
	require.NoError(t, err)
	assert.Nil(t, again.Successor)

	series, err := call[BillFilter, ListBillsResponse](t, env, tok, ListBillsProcedure, &BillFilter{SeriesID: bill.SeriesID})
	require.NoError(t, err)
	assert.Len(t, series.Bills, 2)

	stopped, err := call[StopRecurrenceRequest, BulkResponse](t, env, tok, StopRecurrenceProcedure, &StopRecurrenceRequest{SeriesID: bill.SeriesID})
	require.NoError(t, err)
	assert.Equal(t, 2, stopped.Succeeded)
	assert.Empty(t, stopped.Failures)

	final, err := call[IDRequest, ToggleBillResponse](t, env, tok, ToggleBillProcedure, &IDRequest{ID: toggled.Successor.ID})
	require.NoError(t, err)
	assert.Nil(t, final.Successor)
	assert.False(t, final.Bill.RecurringActive)
}

func TestMarkAllPaidReportsFailures(t *testing.T) {
	env := setupTestServer(t)
	tok := env.token(t, "ana")
	joinNewHousehold(t, env, tok)
	person := addPerson(t, env, tok, "João")

	created, err := call[CreatePurchaseRequest, PurchaseResponse](t, env, tok, CreatePurchaseProcedure, &CreatePurchaseRequest{
		Purchase: PurchaseInput{PersonID: person, Description: "Sofa", Total: "90", Installments: 3, FirstDueDate: "2024-01-10"},
	})
	require.NoError(t, err)
	failing := created.Purchase.Installments[1].ID
	env.failID.Store(&failing)

	res, err := call[DebtFilter, BulkResponse](t, env, tok, MarkAllPaidProcedure, &DebtFilter{PersonID: person})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.Succeeded)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, failing, res.Failures[0].ID)
	assert.Equal(t, "mark installments paid: 2 of 3 done, 1 failed", res.Summary)

	list, err := call[DebtFilter, ListInstallmentsResponse](t, env, tok, ListInstallmentsProcedure, &DebtFilter{PersonID: person})
	require.NoError(t, err)
	assert.Equal(t, 2, list.Totals.PaidCount)
	assert.Equal(t, "30.00", list.Totals.Open)
}

func TestReports(t *testing.T) {
	env := setupTestServer(t)
	tok := env.token(t, "ana")
	joinNewHousehold(t, env, tok)

	_, err := call[CreateBillRequest, BillResponse](t, env, tok, CreateBillProcedure, &CreateBillRequest{
		Bill: BillInput{Title: "Power", Amount: "120", DueDate: "2024-02-05", Recurring: true},
	})
	require.NoError(t, err)

	dash, err := call[HouseholdRequest, DashboardResponse](t, env, tok, GetDashboardProcedure, &HouseholdRequest{})
	require.NoError(t, err)
	assert.Equal(t, "2024-02", dash.Dashboard.Month)
	assert.Equal(t, "120.00", dash.Dashboard.BillsThisMonth.Open)
	assert.Len(t, dash.Dashboard.Year, 12)
	require.Len(t, dash.Dashboard.Projection, 6)
	assert.Equal(t, "120.00", dash.Dashboard.Projection[0].Total)

	rep, err := call[ReportRequest, ReportResponse](t, env, tok, GetReportProcedure, &ReportRequest{Year: "2024"})
	require.NoError(t, err)
	assert.Len(t, rep.Report.Bills, 1)
	assert.Equal(t, "2024", rep.Report.Year)

	_, err = call[ReportRequest, ReportResponse](t, env, tok, GetReportProcedure, &ReportRequest{Month: "2024-2"})
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	opts, err := call[HouseholdRequest, FilterOptionsResponse](t, env, tok, GetFilterOptionsProcedure, &HouseholdRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024"}, opts.Years)
	assert.Equal(t, []string{"2024-02"}, opts.Months)
}

func TestWatchDashboard(t *testing.T) {
	env := setupTestServer(t)
	tok := env.token(t, "ana")
	joinNewHousehold(t, env, tok)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := connect.NewClient[HouseholdRequest, DashboardUpdate](http.DefaultClient, env.url+WatchDashboardProcedure, connect.WithCodec(JSONCodec{}))
	req := connect.NewRequest(&HouseholdRequest{})
	req.Header().Set("Authorization", "Bearer "+tok)
	stream, err := client.CallServerStream(ctx, req)
	require.NoError(t, err)
	defer stream.Close()

	require.True(t, stream.Receive(), "first update: %v", stream.Err())
	assert.Equal(t, "0.00", stream.Msg().Dashboard.Bills.Open)

	_, err = call[CreateBillRequest, BillResponse](t, env, tok, CreateBillProcedure, &CreateBillRequest{
		Bill: BillInput{Title: "Water", Amount: "80", DueDate: "2024-02-25"},
	})
	require.NoError(t, err)

	for stream.Receive() {
		if stream.Msg().Dashboard.Bills.Open == "80.00" {
			return
		}
	}
	t.Fatalf("stream ended before the new bill appeared: %v", stream.Err())
}

func TestWatchDashboardRequiresAuth(t *testing.T) {
	env := setupTestServer(t)
	client := connect.NewClient[HouseholdRequest, DashboardUpdate](http.DefaultClient, env.url+WatchDashboardProcedure, connect.WithCodec(JSONCodec{}))
	stream, err := client.CallServerStream(context.Background(), connect.NewRequest(&HouseholdRequest{}))
	require.NoError(t, err)
	defer stream.Close()

	assert.False(t, stream.Receive())
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(stream.Err()))
}

func TestExportReport(t *testing.T) {
	env := setupTestServer(t)
	ctx := auth.WithIdentity(context.Background(), auth.Identity{UserID: "ana"})
	_, err := env.service.ledger.CreateHousehold(ctx, "ana", "Casa Azul")
	require.NoError(t, err)

	doc, err := env.service.ExportReport(ctx, report.KindBills, &ReportRequest{}, true)
	require.NoError(t, err)
	assert.Equal(t, "Casa Azul", doc.Title)
	assert.Equal(t, "report-bills-all-people-2024-02-20.pdf", doc.FileName)
	assert.Len(t, doc.Sections, 2)

	_, err = env.service.ExportReport(auth.WithIdentity(context.Background(), auth.Identity{UserID: "bia"}), report.KindBills, &ReportRequest{}, false)
	assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))
}
