package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/segyhp/layaway-engine/internal/domain"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict is returned when a versioned write lost a race, either
	// because the plan version moved or a payment number was already taken.
	ErrVersionConflict = errors.New("version conflict")
)

// PlanRepository defines the persistence operations for plans, their line
// items and their payments.
type PlanRepository interface {
	// InsertPlan stores a plan and its line items atomically
	InsertPlan(ctx context.Context, plan *domain.InstallmentPlan) error

	// GetPlan retrieves a plan with its line items
	GetPlan(ctx context.Context, id uuid.UUID) (*domain.InstallmentPlan, error)

	// UpdatePlanState writes the mutable state of a plan if its version still
	// equals expectedVersion, and increments the version.
	UpdatePlanState(ctx context.Context, id uuid.UUID, state domain.PlanState, expectedVersion int) error

	// InsertPayment appends a payment. A duplicate payment number is reported
	// as ErrVersionConflict.
	InsertPayment(ctx context.Context, payment *domain.InstallmentPayment) error

	// CountPayments returns the number of payments recorded for a plan
	CountPayments(ctx context.Context, planID uuid.UUID) (int, error)

	// ListPlans returns plans matching filter, without line items
	ListPlans(ctx context.Context, filter domain.PlanFilter) ([]*domain.InstallmentPlan, error)

	// ListPayments returns a plan's payments ordered by payment number
	ListPayments(ctx context.Context, planID uuid.UUID) ([]*domain.InstallmentPayment, error)

	// ListPaymentsBetween returns payments dated in [from, to)
	ListPaymentsBetween(ctx context.Context, from, to time.Time) ([]*domain.InstallmentPayment, error)

	// DeletePlanCascade removes a plan's payments, line items and the plan
	DeletePlanCascade(ctx context.Context, id uuid.UUID) error

	// WithTx runs fn against a repository bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(PlanRepository) error) error
}

// CatalogRepository is the read-only view of customers and products.
type CatalogRepository interface {
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	GetProduct(ctx context.Context, ref string) (*domain.Product, error)
}
