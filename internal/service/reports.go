package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/hearth/internal/calculator"
	"github.com/mmynk/hearth/internal/report"
)

func (s *Service) GetDashboard(ctx context.Context, req *connect.Request[HouseholdRequest]) (*connect.Response[DashboardResponse], error) {
	b, err := s.book(ctx, req.Msg.HouseholdID)
	if err != nil {
		return nil, fail(ctx, "GetDashboard", err)
	}
	d, err := b.Dashboard(ctx)
	if err != nil {
		return nil, fail(ctx, "GetDashboard", err, "household_id", b.HouseholdID())
	}
	return connect.NewResponse(&DashboardResponse{Dashboard: toDashboard(d)}), nil
}

func (s *Service) reportFilter(req *ReportRequest) (calculator.Filter, error) {
	p, err := parsePeriod(req.Month, req.Year)
	if err != nil {
		return calculator.Filter{}, err
	}
	return calculator.Filter{PersonID: req.PersonID, Period: p}, nil
}

func (s *Service) GetReport(ctx context.Context, req *connect.Request[ReportRequest]) (*connect.Response[ReportResponse], error) {
	b, err := s.book(ctx, req.Msg.HouseholdID)
	if err != nil {
		return nil, fail(ctx, "GetReport", err)
	}
	f, err := s.reportFilter(req.Msg)
	if err != nil {
		return nil, fail(ctx, "GetReport", err)
	}
	r, _, err := b.Report(ctx, f)
	if err != nil {
		return nil, fail(ctx, "GetReport", err, "household_id", b.HouseholdID())
	}
	return connect.NewResponse(&ReportResponse{Report: toReport(r)}), nil
}

func (s *Service) GetFilterOptions(ctx context.Context, req *connect.Request[HouseholdRequest]) (*connect.Response[FilterOptionsResponse], error) {
	b, err := s.book(ctx, req.Msg.HouseholdID)
	if err != nil {
		return nil, fail(ctx, "GetFilterOptions", err)
	}
	opts, err := b.FilterOptions(ctx)
	if err != nil {
		return nil, fail(ctx, "GetFilterOptions", err, "household_id", b.HouseholdID())
	}
	return connect.NewResponse(&FilterOptionsResponse{Years: opts.Years, Months: opts.Months}), nil
}

// WatchDashboard streams the household dashboard, sending a new message
// after every change until the client disconnects.
func (s *Service) WatchDashboard(ctx context.Context, req *connect.Request[HouseholdRequest], stream *connect.ServerStream[DashboardUpdate]) error {
	if s.hub == nil {
		return connect.NewError(connect.CodeUnimplemented, errors.New("live dashboards are disabled"))
	}
	b, err := s.book(ctx, req.Msg.HouseholdID)
	if err != nil {
		return fail(ctx, "WatchDashboard", err)
	}

	view, err := s.hub.Watch(ctx, b.HouseholdID())
	if err != nil {
		return fail(ctx, "WatchDashboard", err, "household_id", b.HouseholdID())
	}
	slog.InfoContext(ctx, "Dashboard watch started", "household_id", b.HouseholdID(), "user_id", b.UserID())

	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-view.Updates():
			if !ok {
				return nil
			}
			if err := stream.Send(&DashboardUpdate{Dashboard: toDashboard(u.Dashboard), Optimistic: u.Optimistic}); err != nil {
				return err
			}
		}
	}
}

// ExportReport builds the printable report of the caller's household.
func (s *Service) ExportReport(ctx context.Context, kind report.Kind, req *ReportRequest, detailed bool) (report.Document, error) {
	b, err := s.book(ctx, req.HouseholdID)
	if err != nil {
		return report.Document{}, fail(ctx, "ExportReport", err)
	}
	f, err := s.reportFilter(req)
	if err != nil {
		return report.Document{}, fail(ctx, "ExportReport", err)
	}
	h, err := b.Household(ctx)
	if err != nil {
		return report.Document{}, fail(ctx, "ExportReport", err, "household_id", b.HouseholdID())
	}
	r, snap, err := b.Report(ctx, f)
	if err != nil {
		return report.Document{}, fail(ctx, "ExportReport", err, "household_id", b.HouseholdID())
	}
	doc, err := s.reports.Build(kind, r, snap, report.Options{Title: h.Name, Detailed: detailed})
	if err != nil {
		return report.Document{}, fail(ctx, "ExportReport", badInput("kind", err))
	}
	return doc, nil
}
