package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodNequi        PaymentMethod = "nequi"
	PaymentMethodDaviplata    PaymentMethod = "daviplata"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodBankTransfer, PaymentMethodNequi, PaymentMethodDaviplata:
		return true
	}
	return false
}

// InstallmentPayment is one recorded payment against a plan. Payments are
// never edited once written.
type InstallmentPayment struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	PlanID        uuid.UUID       `json:"plan_id" db:"plan_id"`
	PaymentNumber int             `json:"payment_number" db:"payment_number"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	PaymentDate   time.Time       `json:"payment_date" db:"payment_date"`
	PaymentMethod PaymentMethod   `json:"payment_method" db:"payment_method"`
	Notes         string          `json:"notes" db:"notes"`
	CreatedBy     string          `json:"created_by" db:"created_by"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}
