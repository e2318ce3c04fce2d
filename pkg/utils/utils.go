package utils

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoundMoney rounds an amount half-up to the currency's minor unit.
func RoundMoney(amount decimal.Decimal, scale int32) decimal.Decimal {
	return amount.Round(scale)
}

// LineTotal returns quantity * unitPrice rounded to the currency scale.
func LineTotal(quantity int, unitPrice decimal.Decimal, scale int32) decimal.Decimal {
	return RoundMoney(unitPrice.Mul(decimal.NewFromInt(int64(quantity))), scale)
}

// SplitInstallments divides total into count installments. Every installment
// but the last is total/count rounded to scale; the last one absorbs the
// rounding drift so that installment*(count-1) + final == total exactly.
func SplitInstallments(total decimal.Decimal, count int, scale int32) (installment, final decimal.Decimal) {
	if count < 1 {
		return decimal.Zero, total
	}
	installment = RoundMoney(total.Div(decimal.NewFromInt(int64(count))), scale)
	final = total.Sub(installment.Mul(decimal.NewFromInt(int64(count - 1))))
	return installment, final
}

// DateOf truncates t to its calendar date, expressed at midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar date in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(now.In(loc))
}

// AddDays adds n calendar days to a date.
func AddDays(date time.Time, n int) time.Time {
	return DateOf(date).AddDate(0, 0, n)
}

// AddMonthsClamped adds n calendar months, clamping the day to the last day of
// the target month instead of overflowing into the next one.
func AddMonthsClamped(date time.Time, n int) time.Time {
	y, m, d := DateOf(date).Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	if last := DaysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// StartOfWeek returns the Monday of the week containing date.
func StartOfWeek(date time.Time) time.Time {
	date = DateOf(date)
	offset := (int(date.Weekday()) + 6) % 7
	return date.AddDate(0, 0, -offset)
}

// IsDateOverdue reports whether dueDate is strictly before asOf, comparing
// calendar dates only.
func IsDateOverdue(dueDate time.Time, asOf time.Time) bool {
	return DateOf(dueDate).Before(DateOf(asOf))
}

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD calendar date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
