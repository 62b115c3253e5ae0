// Package models defines the typed entities of the household ledger.
//
// Every entity belongs to exactly one household. Relationships are carried as
// ID strings, never pointers, and references are not cascaded: a debt or bill
// that points at a removed person still resolves, to a placeholder label.
//
// Amounts are decimal.Decimal values rounded to cents. Dates are civil dates
// at midnight UTC (see package period); the zero time means "unset".
package models
