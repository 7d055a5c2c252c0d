// Package ledger holds the value rules shared by reservations, investments and
// projects: money rounding, simple monthly return projection, term dates and
// the per-entity email matching rules.
package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Money is a currency amount. Stored with two decimal places.
type Money = decimal.Decimal

// DaysPerMonth is the fixed month length used for investment terms.
const DaysPerMonth = 30

var (
	hundred      = decimal.NewFromInt(100)
	monthsInYear = decimal.NewFromInt(12)
)

// RoundMoney rounds to cents using half-to-even.
func RoundMoney(m Money) Money {
	return m.RoundBank(2)
}

// ExpectedReturn is amount * rate/100/12 * months rounded to cents.
// The model is simple monthly interest, not compounded.
func ExpectedReturn(amount Money, annualRate decimal.Decimal, months int) Money {
	if months <= 0 {
		return decimal.Zero
	}
	monthly := amount.Mul(annualRate).Div(hundred).Div(monthsInYear)
	return RoundMoney(monthly.Mul(decimal.NewFromInt(int64(months))))
}

// MonthlyReturn spreads an expected return over its term.
func MonthlyReturn(expected Money, months int) Money {
	if months <= 0 {
		return decimal.Zero
	}
	return RoundMoney(expected.Div(decimal.NewFromInt(int64(months))))
}

// TermEnd returns the date a term of the given months ends when it starts at from.
func TermEnd(from time.Time, months int) time.Time {
	return from.AddDate(0, 0, DaysPerMonth*months)
}

// Quote is a return calculation for a prospective amount against live project terms.
type Quote struct {
	Investment       Money           `json:"investment"`
	AnnualReturnRate decimal.Decimal `json:"annual_return_rate"`
	DurationMonths   int             `json:"duration_months"`
	MonthlyReturn    Money           `json:"monthly_return"`
	TotalReturn      Money           `json:"total_return"`
	FinalAmount      Money           `json:"final_amount"`
}

// QuoteReturn computes the calculator figures shown before committing.
func QuoteReturn(amount Money, annualRate decimal.Decimal, months int) Quote {
	total := ExpectedReturn(amount, annualRate, months)
	monthly := decimal.Zero
	if months > 0 {
		monthly = RoundMoney(amount.Mul(annualRate).Div(hundred).Div(monthsInYear))
	}
	return Quote{
		Investment:       amount,
		AnnualReturnRate: annualRate,
		DurationMonths:   months,
		MonthlyReturn:    monthly,
		TotalReturn:      total,
		FinalAmount:      RoundMoney(amount.Add(total)),
	}
}

// NormalizeAccountEmail trims the address and lowercases its domain part.
// The local part keeps the case the user typed.
func NormalizeAccountEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:])
}

// NormalizeContactEmail trims a lead or reservation address. Case is kept.
func NormalizeContactEmail(email string) string {
	return strings.TrimSpace(email)
}

// SameHolder reports whether a reservation email belongs to an account email.
// Reservations match accounts case-insensitively.
func SameHolder(reservationEmail, accountEmail string) bool {
	return strings.EqualFold(strings.TrimSpace(reservationEmail), strings.TrimSpace(accountEmail))
}

// SameLead reports whether two addresses identify the same lead.
// Leads dedup on exact, case-sensitive equality.
func SameLead(a, b string) bool {
	return a == b
}
