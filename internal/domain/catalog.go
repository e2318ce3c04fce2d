package domain

import "github.com/shopspring/decimal"

// Customer and Product are read-only views of the catalog that layaway
// plans reference.

type Customer struct {
	ID     string `json:"id" db:"id"`
	Name   string `json:"name" db:"name"`
	Phone  string `json:"phone" db:"phone"`
	Active bool   `json:"active" db:"active"`
}

type Product struct {
	Ref    string          `json:"ref" db:"ref"`
	Name   string          `json:"name" db:"name"`
	Price  decimal.Decimal `json:"price" db:"price"`
	Active bool            `json:"active" db:"active"`
}

// Actor is the authenticated user on whose behalf an operation runs.
type Actor struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// SystemActor stamps writes made by background jobs.
var SystemActor = Actor{ID: "system", Role: "system"}
