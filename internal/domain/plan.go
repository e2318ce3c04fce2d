package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/layaway-engine/pkg/utils"
)

// PlanStatus is the lifecycle state of an installment plan.
type PlanStatus string

const (
	PlanStatusActive    PlanStatus = "active"
	PlanStatusCompleted PlanStatus = "completed"
	PlanStatusOverdue   PlanStatus = "overdue"
	PlanStatusCancelled PlanStatus = "cancelled"
)

// IsTerminal reports whether no operation may move a plan out of s.
func (s PlanStatus) IsTerminal() bool {
	return s == PlanStatusCompleted || s == PlanStatusCancelled
}

// AcceptsPayments reports whether payments may be recorded in state s.
func (s PlanStatus) AcceptsPayments() bool {
	return s == PlanStatusActive || s == PlanStatusOverdue
}

func (s PlanStatus) Valid() bool {
	switch s {
	case PlanStatusActive, PlanStatusCompleted, PlanStatusOverdue, PlanStatusCancelled:
		return true
	}
	return false
}

// LineItem is a product snapshot taken when the plan is created.
type LineItem struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	PlanID      uuid.UUID       `json:"plan_id" db:"plan_id"`
	LineNumber  int             `json:"line_number" db:"line_number"`
	ProductRef  string          `json:"product_ref" db:"product_ref"`
	ProductName string          `json:"product_name" db:"product_name"`
	Quantity    int             `json:"quantity" db:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price" db:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal" db:"subtotal"`
}

// InstallmentPlan represents one layaway agreement
type InstallmentPlan struct {
	ID                   uuid.UUID       `json:"id" db:"id"`
	CustomerID           string          `json:"customer_id" db:"customer_id"`
	LineItems            []*LineItem     `json:"line_items,omitempty" db:"-"`
	TotalAmount          decimal.Decimal `json:"total_amount" db:"total_amount"`
	Cadence              Cadence         `json:"cadence" db:"cadence"`
	InstallmentCount     int             `json:"installment_count" db:"installment_count"`
	InstallmentAmount    decimal.Decimal `json:"installment_amount" db:"installment_amount"`
	StartDate            time.Time       `json:"start_date" db:"start_date"`
	NextPaymentDueDate   *time.Time      `json:"next_payment_due_date" db:"next_payment_due_date"`
	PaidAmount           decimal.Decimal `json:"paid_amount" db:"paid_amount"`
	RemainingAmount      decimal.Decimal `json:"remaining_amount" db:"remaining_amount"`
	PaidInstallmentCount int             `json:"paid_installment_count" db:"paid_installment_count"`
	Status               PlanStatus      `json:"status" db:"status"`
	Notes                string          `json:"notes" db:"notes"`
	CancelReason         string          `json:"cancel_reason,omitempty" db:"cancel_reason"`
	CancelledAt          *time.Time      `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CreatedBy            string          `json:"created_by" db:"created_by"`
	Version              int             `json:"version" db:"version"`
	CreatedAt            time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at" db:"updated_at"`
}

// PlanState is the mutable part of a plan, written as a unit under the
// plan's version.
type PlanState struct {
	PaidAmount           decimal.Decimal
	RemainingAmount      decimal.Decimal
	PaidInstallmentCount int
	Status               PlanStatus
	NextPaymentDueDate   *time.Time
	CancelReason         string
	CancelledAt          *time.Time
	UpdatedAt            time.Time
}

// State returns the plan's current mutable state.
func (p *InstallmentPlan) State() PlanState {
	return PlanState{
		PaidAmount:           p.PaidAmount,
		RemainingAmount:      p.RemainingAmount,
		PaidInstallmentCount: p.PaidInstallmentCount,
		Status:               p.Status,
		NextPaymentDueDate:   p.NextPaymentDueDate,
		CancelReason:         p.CancelReason,
		CancelledAt:          p.CancelledAt,
		UpdatedAt:            p.UpdatedAt,
	}
}

// Apply overwrites the plan's mutable state and bumps its version, mirroring
// a successful versioned write.
func (p *InstallmentPlan) Apply(state PlanState) {
	p.PaidAmount = state.PaidAmount
	p.RemainingAmount = state.RemainingAmount
	p.PaidInstallmentCount = state.PaidInstallmentCount
	p.Status = state.Status
	p.NextPaymentDueDate = state.NextPaymentDueDate
	p.CancelReason = state.CancelReason
	p.CancelledAt = state.CancelledAt
	p.UpdatedAt = state.UpdatedAt
	p.Version++
}

// FinalInstallmentAmount is the last installment, which absorbs the rounding
// remainder of InstallmentAmount.
func (p *InstallmentPlan) FinalInstallmentAmount() decimal.Decimal {
	return p.TotalAmount.Sub(p.InstallmentAmount.Mul(decimal.NewFromInt(int64(p.InstallmentCount - 1))))
}

// IsBalanced checks total == paid + remaining and remaining >= 0.
func (p *InstallmentPlan) IsBalanced() bool {
	return p.TotalAmount.Equal(p.PaidAmount.Add(p.RemainingAmount)) && !p.RemainingAmount.IsNegative()
}

// RefreshOverdueStatus derives the status the plan should have on asOf
// without mutating it. Only an active plan whose next due date has passed
// changes (to overdue); overdue plans return to active through payments.
func (p *InstallmentPlan) RefreshOverdueStatus(asOf time.Time) PlanStatus {
	if p.Status != PlanStatusActive || p.NextPaymentDueDate == nil {
		return p.Status
	}
	if utils.IsDateOverdue(*p.NextPaymentDueDate, asOf) {
		return PlanStatusOverdue
	}
	return p.Status
}

// Clone returns a deep copy of the plan.
func (p *InstallmentPlan) Clone() *InstallmentPlan {
	if p == nil {
		return nil
	}
	cp := *p
	if p.NextPaymentDueDate != nil {
		due := *p.NextPaymentDueDate
		cp.NextPaymentDueDate = &due
	}
	if p.CancelledAt != nil {
		at := *p.CancelledAt
		cp.CancelledAt = &at
	}
	if p.LineItems != nil {
		cp.LineItems = make([]*LineItem, len(p.LineItems))
		for i, item := range p.LineItems {
			copied := *item
			cp.LineItems[i] = &copied
		}
	}
	return &cp
}

// PlanFilter narrows ListPlans. Zero fields are ignored.
type PlanFilter struct {
	Statuses   []PlanStatus
	CustomerID string
	DueBefore  *time.Time
	DueOn      *time.Time
	Limit      int
}
