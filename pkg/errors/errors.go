package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a BusinessError so callers can tell "fix your input" from
// "try again" from "fatal".
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindInvalidState Kind = "invalid_state"
	KindConflict     Kind = "conflict"
	KindStore        Kind = "store"
)

// Kind sentinels, matched with errors.Is against any BusinessError of that kind.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrConflict     = errors.New("concurrent modification")
	ErrStore        = errors.New("store failure")
)

// Domain errors
var (
	ErrPlanNotFound            = errors.New("installment plan not found")
	ErrCustomerNotFound        = errors.New("customer not found")
	ErrProductNotFound         = errors.New("product not found")
	ErrInvalidInstallmentCount = errors.New("invalid installment count")
	ErrInvalidCadence          = errors.New("invalid cadence")
	ErrEmptyLineItems          = errors.New("line items are required")
	ErrInvalidQuantity         = errors.New("quantity must be greater than zero")
	ErrInvalidUnitPrice        = errors.New("unit price must be greater than zero")
	ErrTotalTooSmall           = errors.New("total amount too small for installment count")
	ErrInvalidPaymentAmount    = errors.New("invalid payment amount")
	ErrInvalidPaymentMethod    = errors.New("invalid payment method")
	ErrExceedsRemainingBalance = errors.New("payment exceeds remaining balance")
	ErrPlanClosed              = errors.New("installment plan is closed")
	ErrMissingCustomer         = errors.New("customer is required")
)

var kindSentinels = map[Kind]error{
	KindValidation:   ErrValidation,
	KindNotFound:     ErrNotFound,
	KindInvalidState: ErrInvalidState,
	KindConflict:     ErrConflict,
	KindStore:        ErrStore,
}

// BusinessError represents a business logic error
type BusinessError struct {
	Kind    Kind
	Code    string
	Message string
	Field   string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *BusinessError) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && target == sentinel
}

// NewBusinessError creates a new business error
func NewBusinessError(kind Kind, code, message string, err error) *BusinessError {
	return &BusinessError{
		Kind:    kind,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithField records the offending input field.
func (e *BusinessError) WithField(field string) *BusinessError {
	e.Field = field
	return e
}

// Error codes
const (
	ErrCodeValidation              = "VALIDATION_ERROR"
	ErrCodePlanNotFound            = "PLAN_NOT_FOUND"
	ErrCodeCustomerNotFound        = "CUSTOMER_NOT_FOUND"
	ErrCodeProductNotFound         = "PRODUCT_NOT_FOUND"
	ErrCodeInvalidInstallmentCount = "INVALID_INSTALLMENT_COUNT"
	ErrCodeInvalidCadence          = "INVALID_CADENCE"
	ErrCodeInvalidLineItems        = "INVALID_LINE_ITEMS"
	ErrCodeTotalTooSmall           = "TOTAL_TOO_SMALL"
	ErrCodeInvalidPaymentAmount    = "INVALID_PAYMENT_AMOUNT"
	ErrCodeInvalidPaymentMethod    = "INVALID_PAYMENT_METHOD"
	ErrCodeExceedsRemainingBalance = "EXCEEDS_REMAINING_BALANCE"
	ErrCodePlanClosed              = "PLAN_CLOSED"
	ErrCodeConcurrentModification  = "CONCURRENT_MODIFICATION"
	ErrCodeDatabaseError           = "DATABASE_ERROR"
	ErrCodeCacheError              = "CACHE_ERROR"
)

// Wrap common errors with business context

func WrapValidation(field, message string, err error) *BusinessError {
	return NewBusinessError(KindValidation, ErrCodeValidation, message, err).WithField(field)
}

func WrapPlanNotFound(planID string) *BusinessError {
	return NewBusinessError(
		KindNotFound,
		ErrCodePlanNotFound,
		fmt.Sprintf("Installment plan with ID %s not found", planID),
		ErrPlanNotFound,
	)
}

func WrapCustomerNotFound(customerID string) *BusinessError {
	return NewBusinessError(
		KindNotFound,
		ErrCodeCustomerNotFound,
		fmt.Sprintf("Customer with ID %s not found", customerID),
		ErrCustomerNotFound,
	).WithField("customer_id")
}

func WrapProductNotFound(productRef string) *BusinessError {
	return NewBusinessError(
		KindNotFound,
		ErrCodeProductNotFound,
		fmt.Sprintf("Product %s not found", productRef),
		ErrProductNotFound,
	).WithField("items")
}

func WrapInvalidInstallmentCount(count, min, max int) *BusinessError {
	return NewBusinessError(
		KindValidation,
		ErrCodeInvalidInstallmentCount,
		fmt.Sprintf("Installment count %d must be between %d and %d", count, min, max),
		ErrInvalidInstallmentCount,
	).WithField("installment_count")
}

func WrapInvalidCadence(cadence string) *BusinessError {
	return NewBusinessError(
		KindValidation,
		ErrCodeInvalidCadence,
		fmt.Sprintf("Cadence %q must be one of daily, weekly, monthly", cadence),
		ErrInvalidCadence,
	).WithField("cadence")
}

func WrapInvalidLineItems(message string, err error) *BusinessError {
	return NewBusinessError(KindValidation, ErrCodeInvalidLineItems, message, err).WithField("items")
}

func WrapTotalTooSmall(total string, count int) *BusinessError {
	return NewBusinessError(
		KindValidation,
		ErrCodeTotalTooSmall,
		fmt.Sprintf("Total %s cannot be split into %d positive installments", total, count),
		ErrTotalTooSmall,
	).WithField("installment_count")
}

func WrapInvalidPaymentAmount(amount string) *BusinessError {
	return NewBusinessError(
		KindValidation,
		ErrCodeInvalidPaymentAmount,
		fmt.Sprintf("Invalid payment amount: %s", amount),
		ErrInvalidPaymentAmount,
	).WithField("amount")
}

func WrapInvalidPaymentMethod(method string) *BusinessError {
	return NewBusinessError(
		KindValidation,
		ErrCodeInvalidPaymentMethod,
		fmt.Sprintf("Invalid payment method: %q", method),
		ErrInvalidPaymentMethod,
	).WithField("payment_method")
}

func WrapExceedsRemainingBalance(amount, remaining string) *BusinessError {
	return NewBusinessError(
		KindValidation,
		ErrCodeExceedsRemainingBalance,
		fmt.Sprintf("Payment amount %s exceeds remaining balance %s", amount, remaining),
		ErrExceedsRemainingBalance,
	).WithField("amount")
}

func WrapPlanClosed(planID, status string) *BusinessError {
	return NewBusinessError(
		KindInvalidState,
		ErrCodePlanClosed,
		fmt.Sprintf("Installment plan %s is %s", planID, status),
		ErrPlanClosed,
	)
}

func WrapConcurrentModification(planID string, attempts int) *BusinessError {
	return NewBusinessError(
		KindConflict,
		ErrCodeConcurrentModification,
		fmt.Sprintf("Installment plan %s was modified concurrently (%d attempts)", planID, attempts),
		ErrConflict,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		KindStore,
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		KindStore,
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}

// KindOf returns the kind of the first BusinessError in err's chain. Errors
// that carry no kind are treated as store failures.
func KindOf(err error) Kind {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindStore
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidState)
}
