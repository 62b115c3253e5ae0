package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"
)

func (s *Service) AddPerson(ctx context.Context, req *connect.Request[PersonRequest]) (*connect.Response[PersonResponse], error) {
	b, err := s.book(ctx, req.Msg.HouseholdID)
	if err != nil {
		return nil, fail(ctx, "AddPerson", err)
	}
	slog.InfoContext(ctx, "AddPerson request received", "household_id", b.HouseholdID(), "name", req.Msg.Person.Name)

	p, err := b.AddPerson(ctx, fromPerson(req.Msg.Person))
	if err != nil {
		return nil, fail(ctx, "AddPerson", err, "household_id", b.HouseholdID())
	}
	return connect.NewResponse(&PersonResponse{Person: toPerson(p)}), nil
}

func (s *Service) UpdatePerson(ctx context.Context, req *connect.Request[PersonRequest]) (*connect.Response[PersonResponse], error) {
	b, err := s.book(ctx, req.Msg.HouseholdID)
	if err != nil {
		return nil, fail(ctx, "UpdatePerson", err)
	}
	if err := b.UpdatePerson(ctx, fromPerson(req.Msg.Person)); err != nil {
		return nil, fail(ctx, "UpdatePerson", err, "household_id", b.HouseholdID(), "person_id", req.Msg.Person.ID)
	}
	return connect.NewResponse(&PersonResponse{Person: req.Msg.Person}), nil
}

// RemovePerson deletes a person. Their installments and bills are kept and
// shown as belonging to an unknown person.
func (s *Service) RemovePerson(ctx context.Context, req *connect.Request[IDRequest]) (*connect.Response[Empty], error) {
	b, err := s.book(ctx, req.Msg.HouseholdID)
	if err != nil {
		return nil, fail(ctx, "RemovePerson", err)
	}
	if err := b.RemovePerson(ctx, req.Msg.ID); err != nil {
		return nil, fail(ctx, "RemovePerson", err, "household_id", b.HouseholdID(), "person_id", req.Msg.ID)
	}
	return connect.NewResponse(&Empty{}), nil
}

func (s *Service) ListPeople(ctx context.Context, req *connect.Request[HouseholdRequest]) (*connect.Response[ListPeopleResponse], error) {
	b, err := s.book(ctx, req.Msg.HouseholdID)
	if err != nil {
		return nil, fail(ctx, "ListPeople", err)
	}
	people, err := b.ListPeople(ctx)
	if err != nil {
		return nil, fail(ctx, "ListPeople", err, "household_id", b.HouseholdID())
	}
	resp := &ListPeopleResponse{People: make([]Person, len(people))}
	for i, p := range people {
		resp.People[i] = toPerson(p)
	}
	return connect.NewResponse(resp), nil
}

func (s *Service) AddCategory(ctx context.Context, req *connect.Request[AddCategoryRequest]) (*connect.Response[CategoryResponse], error) {
	b, err := s.book(ctx, req.Msg.HouseholdID)
	if err != nil {
		return nil, fail(ctx, "AddCategory", err)
	}
	c, err := b.AddCategory(ctx, req.Msg.Name)
	if err != nil {
		return nil, fail(ctx, "AddCategory", err, "household_id", b.HouseholdID())
	}
	return connect.NewResponse(&CategoryResponse{Category: toCategory(c)}), nil
}

func (s *Service) RemoveCategory(ctx context.Context, req *connect.Request[IDRequest]) (*connect.Response[Empty], error) {
	b, err := s.book(ctx, req.Msg.HouseholdID)
	if err != nil {
		return nil, fail(ctx, "RemoveCategory", err)
	}
	if err := b.RemoveCategory(ctx, req.Msg.ID); err != nil {
		return nil, fail(ctx, "RemoveCategory", err, "household_id", b.HouseholdID(), "category_id", req.Msg.ID)
	}
	return connect.NewResponse(&Empty{}), nil
}

func (s *Service) ListCategories(ctx context.Context, req *connect.Request[HouseholdRequest]) (*connect.Response[ListCategoriesResponse], error) {
	b, err := s.book(ctx, req.Msg.HouseholdID)
	if err != nil {
		return nil, fail(ctx, "ListCategories", err)
	}
	cats, err := b.ListCategories(ctx)
	if err != nil {
		return nil, fail(ctx, "ListCategories", err, "household_id", b.HouseholdID())
	}
	resp := &ListCategoriesResponse{Categories: make([]Category, len(cats))}
	for i, c := range cats {
		resp.Categories[i] = toCategory(c)
	}
	return connect.NewResponse(resp), nil
}
