package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"
)

// CreateHousehold creates a household and moves the caller into it.
func (s *Service) CreateHousehold(ctx context.Context, req *connect.Request[CreateHouseholdRequest]) (*connect.Response[HouseholdResponse], error) {
	user, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "CreateHousehold request received", "user_id", user, "name", req.Msg.Name)

	h, err := s.ledger.CreateHousehold(ctx, user, req.Msg.Name)
	if err != nil {
		return nil, fail(ctx, "CreateHousehold", err, "user_id", user)
	}
	return connect.NewResponse(&HouseholdResponse{Household: toHousehold(h)}), nil
}

// ListHouseholds lists every household a caller could join.
func (s *Service) ListHouseholds(ctx context.Context, _ *connect.Request[Empty]) (*connect.Response[ListHouseholdsResponse], error) {
	if _, err := userID(ctx); err != nil {
		return nil, err
	}
	hs, err := s.ledger.ListHouseholds(ctx)
	if err != nil {
		return nil, fail(ctx, "ListHouseholds", err)
	}
	resp := &ListHouseholdsResponse{Households: make([]Household, len(hs))}
	for i, h := range hs {
		resp.Households[i] = toHousehold(h)
	}
	return connect.NewResponse(resp), nil
}

// JoinHousehold switches the caller's household, or leaves it when the id is
// empty.
func (s *Service) JoinHousehold(ctx context.Context, req *connect.Request[JoinHouseholdRequest]) (*connect.Response[MembershipResponse], error) {
	user, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "JoinHousehold request received", "user_id", user, "household_id", req.Msg.HouseholdID)

	if err := s.ledger.SetMembership(ctx, user, req.Msg.HouseholdID); err != nil {
		return nil, fail(ctx, "JoinHousehold", err, "user_id", user, "household_id", req.Msg.HouseholdID)
	}
	return connect.NewResponse(&MembershipResponse{HouseholdID: req.Msg.HouseholdID}), nil
}

// GetMembership returns the caller's current household id, empty when none.
func (s *Service) GetMembership(ctx context.Context, _ *connect.Request[Empty]) (*connect.Response[MembershipResponse], error) {
	user, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	m, err := s.ledger.Membership(ctx, user)
	if err != nil {
		return nil, fail(ctx, "GetMembership", err, "user_id", user)
	}
	return connect.NewResponse(&MembershipResponse{HouseholdID: m.HouseholdID}), nil
}
