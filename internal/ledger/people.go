package ledger

import (
	"context"
	"strings"

	"github.com/mmynk/hearth/internal/models"
	"github.com/mmynk/hearth/internal/storage"
)

// AddPerson adds someone debts and bills can be attributed to.
func (b *Book) AddPerson(ctx context.Context, p models.Person) (models.Person, error) {
	if strings.TrimSpace(p.Name) == "" {
		return models.Person{}, invalid("name", "name is required")
	}
	p, err := b.l.repo.CreatePerson(ctx, b.household, p)
	if err != nil {
		return models.Person{}, translate("add the person", "person", "", err)
	}
	b.notify(ctx, storage.People, p.ID, ActionCreated)
	return p, nil
}

// UpdatePerson replaces a person's details.
func (b *Book) UpdatePerson(ctx context.Context, p models.Person) error {
	if strings.TrimSpace(p.Name) == "" {
		return invalid("name", "name is required")
	}
	if err := b.l.repo.UpdatePerson(ctx, b.household, p); err != nil {
		return translate("update the person", "person", p.ID, err)
	}
	b.notify(ctx, storage.People, p.ID, ActionUpdated)
	return nil
}

// RemovePerson deletes a person. Debts and bills keep the dangling reference
// and render it as an unknown person.
func (b *Book) RemovePerson(ctx context.Context, id string) error {
	if err := b.l.repo.DeletePerson(ctx, b.household, id); err != nil {
		return translate("remove the person", "person", id, err)
	}
	b.notify(ctx, storage.People, id, ActionDeleted)
	return nil
}

// ListPeople returns the household's people ordered by name.
func (b *Book) ListPeople(ctx context.Context) ([]models.Person, error) {
	people, err := b.l.repo.ListPeople(ctx, b.household)
	if err != nil {
		return nil, translate("list people", "person", "", err)
	}
	return people, nil
}

// AddCategory adds a bill category.
func (b *Book) AddCategory(ctx context.Context, name string) (models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Category{}, invalid("name", "category name is required")
	}
	c, err := b.l.repo.CreateCategory(ctx, b.household, models.Category{Name: name})
	if err != nil {
		return models.Category{}, translate("add the category", "category", "", err)
	}
	b.notify(ctx, storage.Categories, c.ID, ActionCreated)
	return c, nil
}

// RemoveCategory deletes a category. Bills keep the dangling reference and
// render it as uncategorized.
func (b *Book) RemoveCategory(ctx context.Context, id string) error {
	if err := b.l.repo.DeleteCategory(ctx, b.household, id); err != nil {
		return translate("remove the category", "category", id, err)
	}
	b.notify(ctx, storage.Categories, id, ActionDeleted)
	return nil
}

// ListCategories returns the household's categories ordered by name.
func (b *Book) ListCategories(ctx context.Context) ([]models.Category, error) {
	cs, err := b.l.repo.ListCategories(ctx, b.household)
	if err != nil {
		return nil, translate("list categories", "category", "", err)
	}
	return cs, nil
}
