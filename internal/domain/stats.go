package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/segyhp/layaway-engine/pkg/utils"
)

// Stats summarizes a collection of plans for dashboards and reports.
type Stats struct {
	TotalPlans           int             `json:"total_plans"`
	ActiveCount          int             `json:"active_count"`
	OverdueCount         int             `json:"overdue_count"`
	CompletedCount       int             `json:"completed_count"`
	CancelledCount       int             `json:"cancelled_count"`
	TotalFinanced        decimal.Decimal `json:"total_financed"`
	TotalPaid            decimal.Decimal `json:"total_paid"`
	TotalPending         decimal.Decimal `json:"total_pending"`
	PaymentsToday        int             `json:"payments_today"`
	PaymentsThisWeek     int             `json:"payments_this_week"`
	AmountCollectedToday decimal.Decimal `json:"amount_collected_today"`
	GeneratedAt          time.Time       `json:"generated_at"`
}

// Summarize reduces plans and payments into Stats. "Today" and "this week"
// (Monday to Sunday) are calendar windows around now in loc. It never
// mutates its inputs.
func Summarize(plans []*InstallmentPlan, payments []*InstallmentPayment, now time.Time, loc *time.Location) Stats {
	stats := Stats{
		TotalPlans:           len(plans),
		TotalFinanced:        decimal.Zero,
		TotalPaid:            decimal.Zero,
		TotalPending:         decimal.Zero,
		AmountCollectedToday: decimal.Zero,
		GeneratedAt:          now,
	}

	for _, p := range plans {
		switch p.Status {
		case PlanStatusActive:
			stats.ActiveCount++
		case PlanStatusOverdue:
			stats.OverdueCount++
		case PlanStatusCompleted:
			stats.CompletedCount++
		case PlanStatusCancelled:
			stats.CancelledCount++
		}
		stats.TotalFinanced = stats.TotalFinanced.Add(p.TotalAmount)
		stats.TotalPaid = stats.TotalPaid.Add(p.PaidAmount)
		stats.TotalPending = stats.TotalPending.Add(p.RemainingAmount)
	}

	today := utils.Today(now, loc)
	weekStart := utils.StartOfWeek(today)
	weekEnd := weekStart.AddDate(0, 0, 7)
	for _, payment := range payments {
		day := utils.DateOf(payment.PaymentDate)
		if day.Equal(today) {
			stats.PaymentsToday++
			stats.AmountCollectedToday = stats.AmountCollectedToday.Add(payment.Amount)
		}
		if !day.Before(weekStart) && day.Before(weekEnd) {
			stats.PaymentsThisWeek++
		}
	}

	return stats
}
