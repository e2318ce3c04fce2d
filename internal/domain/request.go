package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DTOs for requests and responses

type LineItemRequest struct {
	ProductRef string `json:"product_ref" validate:"required"`
	Quantity   int    `json:"quantity" validate:"required,gt=0"`
	// UnitPrice overrides the catalog price when set.
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty" validate:"omitempty,decimal_gt0"`
}

type CreatePlanRequest struct {
	CustomerID       string             `json:"customer_id" validate:"required"`
	Items            []*LineItemRequest `json:"items" validate:"required,min=1,dive,required"`
	Cadence          Cadence            `json:"cadence" validate:"required,oneof=daily weekly monthly"`
	InstallmentCount int                `json:"installment_count" validate:"required,min=2,max=60"`
	StartDate        string             `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Notes            string             `json:"notes" validate:"max=1000"`
}

type RecordPaymentRequest struct {
	Amount        decimal.Decimal `json:"amount" validate:"decimal_gt0"`
	PaymentMethod PaymentMethod   `json:"payment_method" validate:"required,oneof=cash card bank_transfer nequi daviplata"`
	PaymentDate   string          `json:"payment_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Notes         string          `json:"notes" validate:"max=1000"`
}

type CancelPlanRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type CreatePlanResponse struct {
	Plan     *InstallmentPlan        `json:"plan"`
	Schedule []*ScheduledInstallment `json:"schedule"`
}

type PlanDetailResponse struct {
	Plan     *InstallmentPlan      `json:"plan"`
	Payments []*InstallmentPayment `json:"payments"`
}

type RecordPaymentResponse struct {
	Payment *InstallmentPayment `json:"payment"`
	Plan    *InstallmentPlan    `json:"plan"`
}

type SweepResponse struct {
	AsOf        time.Time `json:"as_of"`
	Transitions int       `json:"transitions"`
}
