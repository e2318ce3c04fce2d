package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dayPtr(y int, m time.Month, d int) *time.Time {
	t := day(y, m, d)
	return &t
}

func newPlan(total int64, count int, cadence Cadence, start time.Time) *InstallmentPlan {
	amount := decimal.NewFromInt(total).Div(decimal.NewFromInt(int64(count))).Round(0)
	next := AddCadence(start, cadence)
	return &InstallmentPlan{
		ID:                 uuid.New(),
		CustomerID:         "cust-1",
		TotalAmount:        decimal.NewFromInt(total),
		Cadence:            cadence,
		InstallmentCount:   count,
		InstallmentAmount:  amount,
		StartDate:          start,
		NextPaymentDueDate: &next,
		PaidAmount:         decimal.Zero,
		RemainingAmount:    decimal.NewFromInt(total),
		Status:             PlanStatusActive,
		Version:            1,
	}
}

func TestAddCadence(t *testing.T) {
	tests := []struct {
		name     string
		start    time.Time
		cadence  Cadence
		expected time.Time
	}{
		{name: "daily", start: day(2024, 2, 28), cadence: CadenceDaily, expected: day(2024, 2, 29)},
		{name: "daily across year", start: day(2024, 12, 31), cadence: CadenceDaily, expected: day(2025, 1, 1)},
		{name: "weekly", start: day(2024, 1, 29), cadence: CadenceWeekly, expected: day(2024, 2, 5)},
		{name: "monthly", start: day(2024, 1, 15), cadence: CadenceMonthly, expected: day(2024, 2, 15)},
		{name: "monthly leap clamp", start: day(2024, 1, 31), cadence: CadenceMonthly, expected: day(2024, 2, 29)},
		{name: "monthly keeps clamped day", start: day(2024, 2, 29), cadence: CadenceMonthly, expected: day(2024, 3, 29)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AddCadence(tt.start, tt.cadence))
		})
	}
}

func TestAddCadence_MonthEndDoesNotRecover(t *testing.T) {
	due := day(2024, 1, 31)
	expected := []time.Time{day(2024, 2, 29), day(2024, 3, 29), day(2024, 4, 29)}

	for _, want := range expected {
		due = AddCadence(due, CadenceMonthly)
		assert.Equal(t, want, due)
	}
}

func TestPlanStatus(t *testing.T) {
	assert.True(t, PlanStatusCompleted.IsTerminal())
	assert.True(t, PlanStatusCancelled.IsTerminal())
	assert.False(t, PlanStatusActive.IsTerminal())
	assert.False(t, PlanStatusOverdue.IsTerminal())

	assert.True(t, PlanStatusOverdue.AcceptsPayments())
	assert.False(t, PlanStatusCompleted.AcceptsPayments())
	assert.False(t, PlanStatus("paused").Valid())
}

func TestRefreshOverdueStatus(t *testing.T) {
	asOf := day(2024, 5, 10)

	tests := []struct {
		name     string
		status   PlanStatus
		due      *time.Time
		expected PlanStatus
	}{
		{name: "active due yesterday becomes overdue", status: PlanStatusActive, due: dayPtr(2024, 5, 9), expected: PlanStatusOverdue},
		{name: "active due today stays active", status: PlanStatusActive, due: dayPtr(2024, 5, 10), expected: PlanStatusActive},
		{name: "active due tomorrow stays active", status: PlanStatusActive, due: dayPtr(2024, 5, 11), expected: PlanStatusActive},
		{name: "overdue stays overdue", status: PlanStatusOverdue, due: dayPtr(2024, 5, 1), expected: PlanStatusOverdue},
		{name: "completed is absorbing", status: PlanStatusCompleted, due: nil, expected: PlanStatusCompleted},
		{name: "cancelled is absorbing", status: PlanStatusCancelled, due: dayPtr(2024, 4, 1), expected: PlanStatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := newPlan(100000, 2, CadenceWeekly, day(2024, 4, 1))
			plan.Status = tt.status
			plan.NextPaymentDueDate = tt.due
			plan.RemainingAmount = decimal.NewFromInt(50000)
			plan.PaidAmount = decimal.NewFromInt(50000)

			got := plan.RefreshOverdueStatus(asOf)

			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.status, plan.Status, "refresh must not mutate the plan")
			assert.True(t, plan.RemainingAmount.Equal(decimal.NewFromInt(50000)))
		})
	}
}

func TestFinalInstallmentAmount(t *testing.T) {
	plan := newPlan(1000000, 12, CadenceMonthly, day(2024, 1, 1))

	assert.True(t, plan.InstallmentAmount.Equal(decimal.NewFromInt(83333)))
	assert.True(t, plan.FinalInstallmentAmount().Equal(decimal.NewFromInt(83337)))
}

func TestApplyBumpsVersion(t *testing.T) {
	plan := newPlan(1000, 2, CadenceDaily, day(2024, 1, 1))
	state := plan.State()
	state.PaidAmount = decimal.NewFromInt(500)
	state.RemainingAmount = decimal.NewFromInt(500)
	state.PaidInstallmentCount = 1

	plan.Apply(state)

	assert.Equal(t, 2, plan.Version)
	assert.True(t, plan.IsBalanced())
	assert.Equal(t, 1, plan.PaidInstallmentCount)
}

func TestIsBalanced(t *testing.T) {
	plan := newPlan(1000, 2, CadenceDaily, day(2024, 1, 1))
	assert.True(t, plan.IsBalanced())

	plan.PaidAmount = decimal.NewFromInt(1100)
	plan.RemainingAmount = decimal.NewFromInt(-100)
	assert.False(t, plan.IsBalanced())
}

func TestClone_IsDeep(t *testing.T) {
	plan := newPlan(1000, 2, CadenceDaily, day(2024, 1, 1))
	plan.LineItems = []*LineItem{{ProductRef: "SKU-1", Quantity: 1, UnitPrice: decimal.NewFromInt(1000)}}

	cp := plan.Clone()
	*cp.NextPaymentDueDate = day(2030, 1, 1)
	cp.LineItems[0].Quantity = 9

	assert.Equal(t, day(2024, 1, 2), *plan.NextPaymentDueDate)
	assert.Equal(t, 1, plan.LineItems[0].Quantity)
}

func TestBuildSchedule(t *testing.T) {
	plan := newPlan(1000000, 12, CadenceMonthly, day(2024, 1, 31))
	plan.PaidAmount = decimal.NewFromInt(100000)
	plan.RemainingAmount = decimal.NewFromInt(900000)

	schedule := BuildSchedule(plan, day(2024, 4, 1))

	require.Len(t, schedule, 12)
	assert.Equal(t, day(2024, 2, 29), schedule[0].DueDate)
	assert.Equal(t, day(2024, 3, 29), schedule[1].DueDate)
	assert.Equal(t, ScheduleStatusPaid, schedule[0].Status)
	assert.Equal(t, ScheduleStatusOverdue, schedule[1].Status, "partially paid and past due")
	assert.True(t, schedule[1].PaidAmount.Equal(decimal.NewFromInt(16667)))
	assert.Equal(t, ScheduleStatusPending, schedule[2].Status)
	assert.True(t, schedule[11].DueAmount.Equal(decimal.NewFromInt(83337)))

	sum := decimal.Zero
	for _, entry := range schedule {
		sum = sum.Add(entry.DueAmount)
	}
	assert.True(t, sum.Equal(plan.TotalAmount))
}

func TestBuildSchedule_PartialNotYetDue(t *testing.T) {
	plan := newPlan(1000, 2, CadenceWeekly, day(2024, 1, 1))
	plan.PaidAmount = decimal.NewFromInt(200)
	plan.RemainingAmount = decimal.NewFromInt(800)

	schedule := BuildSchedule(plan, day(2024, 1, 3))

	assert.Equal(t, ScheduleStatusPartial, schedule[0].Status)
	assert.Equal(t, ScheduleStatusPending, schedule[1].Status)
}

func TestSummarize(t *testing.T) {
	now := time.Date(2024, 5, 9, 15, 0, 0, 0, time.UTC) // Thursday

	active := newPlan(1000, 2, CadenceWeekly, day(2024, 5, 1))
	active.PaidAmount = decimal.NewFromInt(400)
	active.RemainingAmount = decimal.NewFromInt(600)

	overdue := newPlan(2000, 4, CadenceWeekly, day(2024, 4, 1))
	overdue.Status = PlanStatusOverdue

	completed := newPlan(500, 2, CadenceDaily, day(2024, 4, 1))
	completed.Status = PlanStatusCompleted
	completed.PaidAmount = decimal.NewFromInt(500)
	completed.RemainingAmount = decimal.Zero
	completed.NextPaymentDueDate = nil

	cancelled := newPlan(300, 2, CadenceDaily, day(2024, 4, 1))
	cancelled.Status = PlanStatusCancelled
	cancelled.PaidAmount = decimal.NewFromInt(100)
	cancelled.RemainingAmount = decimal.NewFromInt(200)

	payments := []*InstallmentPayment{
		{Amount: decimal.NewFromInt(400), PaymentDate: day(2024, 5, 9)},  // today
		{Amount: decimal.NewFromInt(250), PaymentDate: day(2024, 5, 9)},  // today
		{Amount: decimal.NewFromInt(250), PaymentDate: day(2024, 5, 6)},  // Monday, this week
		{Amount: decimal.NewFromInt(100), PaymentDate: day(2024, 5, 5)},  // previous Sunday
		{Amount: decimal.NewFromInt(100), PaymentDate: day(2024, 4, 20)}, // older
	}

	stats := Summarize([]*InstallmentPlan{active, overdue, completed, cancelled}, payments, now, time.UTC)

	assert.Equal(t, 4, stats.TotalPlans)
	assert.Equal(t, 1, stats.ActiveCount)
	assert.Equal(t, 1, stats.OverdueCount)
	assert.Equal(t, 1, stats.CompletedCount)
	assert.Equal(t, 1, stats.CancelledCount)
	assert.True(t, stats.TotalFinanced.Equal(decimal.NewFromInt(3800)))
	assert.True(t, stats.TotalPaid.Equal(decimal.NewFromInt(1000)))
	assert.True(t, stats.TotalPending.Equal(decimal.NewFromInt(2800)))
	assert.Equal(t, 2, stats.PaymentsToday)
	assert.Equal(t, 3, stats.PaymentsThisWeek)
	assert.True(t, stats.AmountCollectedToday.Equal(decimal.NewFromInt(650)))
}

func TestSummarize_Empty(t *testing.T) {
	stats := Summarize(nil, nil, time.Now(), time.UTC)

	assert.Equal(t, 0, stats.TotalPlans)
	assert.True(t, stats.TotalFinanced.IsZero())
	assert.True(t, stats.TotalPending.IsZero())
}
