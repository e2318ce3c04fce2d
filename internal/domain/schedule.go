package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/segyhp/layaway-engine/pkg/utils"
)

// Cadence is the interval between scheduled installments.
type Cadence string

const (
	CadenceDaily   Cadence = "daily"
	CadenceWeekly  Cadence = "weekly"
	CadenceMonthly Cadence = "monthly"
)

func (c Cadence) Valid() bool {
	switch c {
	case CadenceDaily, CadenceWeekly, CadenceMonthly:
		return true
	}
	return false
}

// AddCadence advances date by one cadence step. Monthly steps clamp to the
// last day of a shorter month and do not recover the original day later:
// 2024-01-31 -> 2024-02-29 -> 2024-03-29.
func AddCadence(date time.Time, cadence Cadence) time.Time {
	switch cadence {
	case CadenceDaily:
		return utils.AddDays(date, 1)
	case CadenceWeekly:
		return utils.AddDays(date, 7)
	case CadenceMonthly:
		return utils.AddMonthsClamped(date, 1)
	default:
		return utils.DateOf(date)
	}
}

// Schedule entry states
const (
	ScheduleStatusPending = "pending"
	ScheduleStatusPaid    = "paid"
	ScheduleStatusPartial = "partial"
	ScheduleStatusOverdue = "overdue"
)

// ScheduledInstallment is one projected installment of a plan.
type ScheduledInstallment struct {
	Number     int             `json:"number"`
	DueDate    time.Time       `json:"due_date"`
	DueAmount  decimal.Decimal `json:"due_amount"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
	Status     string          `json:"status"`
}

type ScheduleResponse struct {
	PlanID   string                  `json:"plan_id"`
	Schedule []*ScheduledInstallment `json:"schedule"`
}

// BuildSchedule projects the nominal installments of a plan. The plan's paid
// amount is applied to installments in order; an unpaid installment whose due
// date is before asOf is overdue. Cancelled plans keep their paid/partial
// marks and show everything else as pending.
func BuildSchedule(p *InstallmentPlan, asOf time.Time) []*ScheduledInstallment {
	schedule := make([]*ScheduledInstallment, 0, p.InstallmentCount)
	remainingPaid := p.PaidAmount
	dueDate := utils.DateOf(p.StartDate)

	for n := 1; n <= p.InstallmentCount; n++ {
		dueDate = AddCadence(dueDate, p.Cadence)
		amount := p.InstallmentAmount
		if n == p.InstallmentCount {
			amount = p.FinalInstallmentAmount()
		}

		applied := decimal.Min(amount, remainingPaid)
		remainingPaid = remainingPaid.Sub(applied)

		entry := &ScheduledInstallment{
			Number:     n,
			DueDate:    dueDate,
			DueAmount:  amount,
			PaidAmount: applied,
			Status:     ScheduleStatusPending,
		}
		switch {
		case applied.Equal(amount):
			entry.Status = ScheduleStatusPaid
		case applied.IsPositive():
			entry.Status = ScheduleStatusPartial
		}
		if entry.Status != ScheduleStatusPaid && p.Status != PlanStatusCancelled && utils.IsDateOverdue(dueDate, asOf) {
			entry.Status = ScheduleStatusOverdue
		}
		schedule = append(schedule, entry)
	}

	return schedule
}
