package models

// Household is the sharing boundary. All people, debts, bills and categories
// live inside one household and are invisible to members of other households.
type Household struct {
	// ID is the unique identifier for the household (UUID format).
	ID string

	// Name is the display name (e.g., "Medeiros").
	Name string

	// CreatedBy is the opaque user id of the member who created it.
	CreatedBy string

	// CreatedAt is the Unix timestamp when the household was created.
	CreatedAt int64
}

// Membership links a user to the household they currently work in.
// A user belongs to at most one household at a time and may switch at will.
type Membership struct {
	// UserID is the stable opaque identifier issued by the identity provider.
	UserID string

	// HouseholdID is empty when the user has not joined any household.
	HouseholdID string

	// UpdatedAt is the Unix timestamp of the last switch.
	UpdatedAt int64
}

// Person is someone debts and bills can be attributed to.
type Person struct {
	ID    string
	Name  string
	Phone string
	Note  string
}

// Category groups bills for reporting.
type Category struct {
	ID   string
	Name string
}
