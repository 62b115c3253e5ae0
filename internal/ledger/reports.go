package ledger

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/mmynk/hearth/internal/calculator"
	"github.com/mmynk/hearth/internal/storage"
)

func loadSnapshot(ctx context.Context, repo *storage.Repository, householdID string) (calculator.Snapshot, error) {
	var s calculator.Snapshot
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		s.People, err = repo.ListPeople(ctx, householdID)
		return err
	})
	g.Go(func() (err error) {
		s.Categories, err = repo.ListCategories(ctx, householdID)
		return err
	})
	g.Go(func() (err error) {
		s.Debts, err = repo.ListInstallments(ctx, householdID, storage.Query{})
		return err
	})
	g.Go(func() (err error) {
		s.Bills, err = repo.ListBills(ctx, householdID, storage.Query{})
		return err
	})
	if err := g.Wait(); err != nil {
		return calculator.Snapshot{}, translate("load the household", "household", householdID, err)
	}
	return s, nil
}

// Dashboard recomputes the household overview.
func (b *Book) Dashboard(ctx context.Context) (calculator.Dashboard, error) {
	s, err := b.Snapshot(ctx)
	if err != nil {
		return calculator.Dashboard{}, err
	}
	return calculator.BuildDashboard(s, b.l.now()), nil
}

// Report builds the filtered report view together with the snapshot it was
// computed from, which supplies person and category names.
func (b *Book) Report(ctx context.Context, f calculator.Filter) (calculator.Report, calculator.Snapshot, error) {
	if err := f.Period.Validate(); err != nil {
		return calculator.Report{}, calculator.Snapshot{}, invalidErr("period", err)
	}
	s, err := b.Snapshot(ctx)
	if err != nil {
		return calculator.Report{}, calculator.Snapshot{}, err
	}
	return calculator.BuildReport(s, f, b.l.now()), s, nil
}

// FilterOptions lists the periods a report can be filtered by.
func (b *Book) FilterOptions(ctx context.Context) (calculator.FilterOptions, error) {
	debts, err := b.l.repo.ListInstallments(ctx, b.household, storage.Query{})
	if err != nil {
		return calculator.FilterOptions{}, translate("load filters", "household", b.household, fmt.Errorf("list installments: %w", err))
	}
	return calculator.AvailableFilters(debts, b.l.now()), nil
}
