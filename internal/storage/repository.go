package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmynk/hearth/internal/models"
)

// Repository is the typed view of a DocumentStore used by the ledger.
// Every read goes through the codec, so callers only see fully defaulted
// entities.
type Repository struct {
	store DocumentStore
	now   func() time.Time
}

// NewRepository wraps store.
func NewRepository(store DocumentStore) *Repository {
	return &Repository{store: store, now: time.Now}
}

// Store returns the underlying document store.
func (r *Repository) Store() DocumentStore {
	return r.store
}

// CreateHousehold persists a new household and returns it with its id.
func (r *Repository) CreateHousehold(ctx context.Context, h models.Household) (models.Household, error) {
	if h.CreatedAt == 0 {
		h.CreatedAt = r.now().Unix()
	}
	id, err := r.store.Create(ctx, RootCollection(Households), EncodeHousehold(h))
	if err != nil {
		return models.Household{}, fmt.Errorf("failed to create household: %w", err)
	}
	h.ID = id
	return h, nil
}

// GetHousehold reads one household.
func (r *Repository) GetHousehold(ctx context.Context, id string) (models.Household, error) {
	rec, err := r.store.Get(ctx, RootCollection(Households), id)
	if err != nil {
		return models.Household{}, fmt.Errorf("failed to get household %s: %w", id, err)
	}
	return DecodeHousehold(rec), nil
}

// ListHouseholds returns every household ordered by name.
func (r *Repository) ListHouseholds(ctx context.Context) ([]models.Household, error) {
	recs, err := r.store.Query(ctx, RootCollection(Households), Query{}.Order(FieldName, Asc))
	if err != nil {
		return nil, fmt.Errorf("failed to list households: %w", err)
	}
	out := make([]models.Household, len(recs))
	for i, rec := range recs {
		out[i] = DecodeHousehold(rec)
	}
	return out, nil
}

// GetMembership returns the user's membership. A user who never joined a
// household gets an empty membership, not an error.
func (r *Repository) GetMembership(ctx context.Context, userID string) (models.Membership, error) {
	rec, err := r.store.Get(ctx, RootCollection(Members), userID)
	if errors.Is(err, ErrNotFound) {
		return models.Membership{UserID: userID}, nil
	}
	if err != nil {
		return models.Membership{}, fmt.Errorf("failed to get membership: %w", err)
	}
	return DecodeMembership(rec), nil
}

// SetMembership stores the user's current household.
func (r *Repository) SetMembership(ctx context.Context, m models.Membership) error {
	if m.UpdatedAt == 0 {
		m.UpdatedAt = r.now().Unix()
	}
	c := RootCollection(Members)
	doc := EncodeMembership(m)
	err := r.store.CreateWithID(ctx, c, m.UserID, doc)
	if errors.Is(err, ErrAlreadyExists) {
		err = r.store.Update(ctx, c, m.UserID, doc)
	}
	if err != nil {
		return fmt.Errorf("failed to set membership: %w", err)
	}
	return nil
}

// CreatePerson persists a new person.
func (r *Repository) CreatePerson(ctx context.Context, householdID string, p models.Person) (models.Person, error) {
	id, err := r.store.Create(ctx, HouseholdCollection(householdID, People), EncodePerson(p))
	if err != nil {
		return models.Person{}, fmt.Errorf("failed to create person: %w", err)
	}
	p.ID = id
	return p, nil
}

// UpdatePerson overwrites a person's fields.
func (r *Repository) UpdatePerson(ctx context.Context, householdID string, p models.Person) error {
	if err := r.store.Update(ctx, HouseholdCollection(householdID, People), p.ID, EncodePerson(p)); err != nil {
		return fmt.Errorf("failed to update person %s: %w", p.ID, err)
	}
	return nil
}

// DeletePerson removes a person. Debts and bills referencing it are kept.
func (r *Repository) DeletePerson(ctx context.Context, householdID, id string) error {
	if err := r.store.Delete(ctx, HouseholdCollection(householdID, People), id); err != nil {
		return fmt.Errorf("failed to delete person %s: %w", id, err)
	}
	return nil
}

// ListPeople returns the household's people ordered by name.
func (r *Repository) ListPeople(ctx context.Context, householdID string) ([]models.Person, error) {
	recs, err := r.store.Query(ctx, HouseholdCollection(householdID, People), Query{}.Order(FieldName, Asc))
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}
	return DecodePeople(recs), nil
}

// CreateCategory persists a new category.
func (r *Repository) CreateCategory(ctx context.Context, householdID string, c models.Category) (models.Category, error) {
	id, err := r.store.Create(ctx, HouseholdCollection(householdID, Categories), EncodeCategory(c))
	if err != nil {
		return models.Category{}, fmt.Errorf("failed to create category: %w", err)
	}
	c.ID = id
	return c, nil
}

// DeleteCategory removes a category. Bills referencing it are kept.
func (r *Repository) DeleteCategory(ctx context.Context, householdID, id string) error {
	if err := r.store.Delete(ctx, HouseholdCollection(householdID, Categories), id); err != nil {
		return fmt.Errorf("failed to delete category %s: %w", id, err)
	}
	return nil
}

// ListCategories returns the household's categories ordered by name.
func (r *Repository) ListCategories(ctx context.Context, householdID string) ([]models.Category, error) {
	recs, err := r.store.Query(ctx, HouseholdCollection(householdID, Categories), Query{}.Order(FieldName, Asc))
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return DecodeCategories(recs), nil
}

// CreateInstallment persists one installment.
func (r *Repository) CreateInstallment(ctx context.Context, householdID string, d models.DebtInstallment) (models.DebtInstallment, error) {
	id, err := r.store.Create(ctx, HouseholdCollection(householdID, Debts), EncodeDebt(d))
	if err != nil {
		return models.DebtInstallment{}, fmt.Errorf("failed to create installment %d/%d: %w", d.InstallmentNumber, d.InstallmentsCount, err)
	}
	d.ID = id
	return d, nil
}

// GetInstallment reads one installment.
func (r *Repository) GetInstallment(ctx context.Context, householdID, id string) (models.DebtInstallment, error) {
	rec, err := r.store.Get(ctx, HouseholdCollection(householdID, Debts), id)
	if err != nil {
		return models.DebtInstallment{}, fmt.Errorf("failed to get installment %s: %w", id, err)
	}
	return DecodeDebt(rec), nil
}

// SavePayment writes the paid amount and status of an installment.
func (r *Repository) SavePayment(ctx context.Context, householdID string, d models.DebtInstallment) error {
	if err := r.store.Update(ctx, HouseholdCollection(householdID, Debts), d.ID, EncodeDebtPayment(d)); err != nil {
		return fmt.Errorf("failed to save payment of installment %s: %w", d.ID, err)
	}
	return nil
}

// DeleteInstallment removes one installment.
func (r *Repository) DeleteInstallment(ctx context.Context, householdID, id string) error {
	if err := r.store.Delete(ctx, HouseholdCollection(householdID, Debts), id); err != nil {
		return fmt.Errorf("failed to delete installment %s: %w", id, err)
	}
	return nil
}

// ListInstallments returns the installments matching q, ordered by due date
// unless q says otherwise.
func (r *Repository) ListInstallments(ctx context.Context, householdID string, q Query) ([]models.DebtInstallment, error) {
	if q.OrderBy == "" {
		q = q.Order(FieldDueDate, Asc)
	}
	recs, err := r.store.Query(ctx, HouseholdCollection(householdID, Debts), q)
	if err != nil {
		return nil, fmt.Errorf("failed to list installments: %w", err)
	}
	return DecodeDebts(recs), nil
}

// GroupInstallments returns every installment of one purchase ordered by
// installment number.
func (r *Repository) GroupInstallments(ctx context.Context, householdID, groupID string) ([]models.DebtInstallment, error) {
	q := Query{}.Equal(FieldGroupID, groupID).Order(FieldInstallmentNumber, Asc)
	return r.ListInstallments(ctx, householdID, q)
}

// CreateBill persists a bill occurrence under a generated id.
func (r *Repository) CreateBill(ctx context.Context, householdID string, b models.Bill) (models.Bill, error) {
	b.Normalize()
	id, err := r.store.Create(ctx, HouseholdCollection(householdID, Bills), EncodeBill(b))
	if err != nil {
		return models.Bill{}, fmt.Errorf("failed to create bill: %w", err)
	}
	b.ID = id
	return b, nil
}

// CreateBillWithID persists a bill occurrence under id. It fails with
// ErrAlreadyExists when the id is taken.
func (r *Repository) CreateBillWithID(ctx context.Context, householdID, id string, b models.Bill) (models.Bill, error) {
	b.Normalize()
	if err := r.store.CreateWithID(ctx, HouseholdCollection(householdID, Bills), id, EncodeBill(b)); err != nil {
		return models.Bill{}, fmt.Errorf("failed to create bill %s: %w", id, err)
	}
	b.ID = id
	return b, nil
}

// GetBill reads one bill occurrence.
func (r *Repository) GetBill(ctx context.Context, householdID, id string) (models.Bill, error) {
	rec, err := r.store.Get(ctx, HouseholdCollection(householdID, Bills), id)
	if err != nil {
		return models.Bill{}, fmt.Errorf("failed to get bill %s: %w", id, err)
	}
	return DecodeBill(rec), nil
}

// UpdateBill overwrites every field of a bill occurrence.
func (r *Repository) UpdateBill(ctx context.Context, householdID string, b models.Bill) error {
	if err := r.store.Update(ctx, HouseholdCollection(householdID, Bills), b.ID, EncodeBill(b)); err != nil {
		return fmt.Errorf("failed to update bill %s: %w", b.ID, err)
	}
	return nil
}

// SetBillStatus writes the status of a bill occurrence.
func (r *Repository) SetBillStatus(ctx context.Context, householdID, id string, status models.BillStatus) error {
	patch := Document{FieldStatus: string(status)}
	if err := r.store.Update(ctx, HouseholdCollection(householdID, Bills), id, patch); err != nil {
		return fmt.Errorf("failed to set status of bill %s: %w", id, err)
	}
	return nil
}

// SetRecurringActive writes the recurrence flag of a bill occurrence.
func (r *Repository) SetRecurringActive(ctx context.Context, householdID, id string, active bool) error {
	patch := Document{FieldRecurringActive: active}
	if err := r.store.Update(ctx, HouseholdCollection(householdID, Bills), id, patch); err != nil {
		return fmt.Errorf("failed to set recurrence of bill %s: %w", id, err)
	}
	return nil
}

// DeleteBill removes one bill occurrence.
func (r *Repository) DeleteBill(ctx context.Context, householdID, id string) error {
	if err := r.store.Delete(ctx, HouseholdCollection(householdID, Bills), id); err != nil {
		return fmt.Errorf("failed to delete bill %s: %w", id, err)
	}
	return nil
}

// ListBills returns the bill occurrences matching q, ordered by due date
// unless q says otherwise.
func (r *Repository) ListBills(ctx context.Context, householdID string, q Query) ([]models.Bill, error) {
	if q.OrderBy == "" {
		q = q.Order(FieldDueDate, Asc)
	}
	recs, err := r.store.Query(ctx, HouseholdCollection(householdID, Bills), q)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	return DecodeBills(recs), nil
}

// SeriesBills returns every occurrence of a recurring series.
func (r *Repository) SeriesBills(ctx context.Context, householdID, seriesID string) ([]models.Bill, error) {
	return r.ListBills(ctx, householdID, Query{}.Equal(FieldSeriesID, seriesID))
}
