package core

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Category classifies a cashflow event. The set is closed: the classifier
// never emits a value outside of it.
type Category string

const (
	CategoryIncome       Category = "income"
	CategoryRent         Category = "rent"
	CategoryUtilities    Category = "utilities"
	CategoryInternet     Category = "internet"
	CategorySubscription Category = "subscription"
	CategoryCardPayment  Category = "card_payment"
	CategoryOther        Category = "other"
)

// Frequency is the recurrence class attached by the recurrence detector.
type Frequency string

const (
	FrequencyOneTime   Frequency = "one-time"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyBiweekly  Frequency = "biweekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyBimonthly Frequency = "bimonthly"
	FrequencyIrregular Frequency = "irregular"
)

// Focus is the optimization objective.
type Focus string

const (
	FocusOverdraft   Focus = "overdraft"
	FocusUtilization Focus = "utilization"
	FocusBalanced    Focus = "balanced"
)

// ParseFocus normalizes a caller-supplied focus string. Unknown or empty
// values map to balanced; a focus is never rejected.
func ParseFocus(s string) Focus {
	switch Focus(strings.ToLower(strings.TrimSpace(s))) {
	case FocusOverdraft:
		return FocusOverdraft
	case FocusUtilization:
		return FocusUtilization
	default:
		return FocusBalanced
	}
}

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrMissingDate   = errors.New("missing date")
	ErrNotFound      = errors.New("not found")
)

const dateLayout = "2006-01-02"

// Date is a calendar day. It marshals as YYYY-MM-DD and tolerates malformed
// input: unparseable values yield the zero Date instead of an error, so one
// dirty record never fails a whole batch.
type Date struct {
	time.Time
}

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// AddDays returns the date shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// SameDay reports whether two dates fall on the same calendar day.
func (d Date) SameDay(other Date) bool {
	return d.Year() == other.Year() && d.YearDay() == other.YearDay()
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(strings.TrimSpace(s))
	if err != nil {
		*d = Date{}
		return nil
	}
	*d = parsed
	return nil
}

// Number is a lenient numeric field. Upstream feeds carry amounts and ratios
// as JSON numbers, numeric strings, nulls, or garbage; Number absorbs all of
// them and lets call sites substitute a documented default via Or.
type Number struct {
	Value float64
	Valid bool
}

// Num wraps a known-good float.
func Num(v float64) Number {
	return Number{Value: v, Valid: true}
}

// Or returns the value, or def when the field was missing or malformed.
func (n Number) Or(def float64) float64 {
	if !n.Valid {
		return def
	}
	return n.Value
}

// OrInt returns the truncated value, or def when missing or malformed.
func (n Number) OrInt(def int) int {
	if !n.Valid {
		return def
	}
	return int(n.Value)
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(n.Value, 'f', -1, 64)), nil
}

func (n *Number) UnmarshalJSON(b []byte) error {
	raw := string(bytes.TrimSpace(b))
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*n = Number{}
		return nil
	}
	*n = Number{Value: v, Valid: true}
	return nil
}

// SourceCategory is the category metadata supplied by the upstream feed.
type SourceCategory struct {
	Primary  string `json:"primary,omitempty"`
	Detailed string `json:"detailed,omitempty"`
}

// Window is the inclusive range of allowed target dates for a movable event.
// It never spans a month boundary. The anchor date may fall outside it: the
// window describes where the event may go, not where it is.
type Window struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// Metadata carries provenance for a normalized event.
type Metadata struct {
	OriginalName     string          `json:"original_name,omitempty"`
	MerchantName     string          `json:"merchant_name,omitempty"`
	SourceCategory   *SourceCategory `json:"source_category,omitempty"`
	ObservedDates    []Date          `json:"observed_dates,omitempty"`
	SubscriptionHint string          `json:"subscription_hint,omitempty"`
}

// CashflowEvent is one normalized transaction or planned payment. Events are
// created once during normalization and never mutated afterwards.
//
// Invariants: income events are always fixed and live only in the cashIn
// list; rent events are always fixed and carry no window.
type CashflowEvent struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Category  Category  `json:"category"`
	Date      Date      `json:"date"`
	Amount    float64   `json:"amount"`
	Merchant  string    `json:"merchant,omitempty"`
	Fixed     bool      `json:"fixed"`
	Window    *Window   `json:"window,omitempty"`
	Frequency Frequency `json:"frequency,omitempty"`
	Stream    string    `json:"stream,omitempty"`
	Source    string    `json:"source,omitempty"`
	Metadata  Metadata  `json:"metadata"`
}

// Card describes a credit card whose reported utilization the optimizer may
// try to lower. All numeric fields are lenient: callers supply partial data.
type Card struct {
	ID             string `json:"id,omitempty"`
	CutDay         Number `json:"cut_day,omitempty"`
	StatementMin   Number `json:"statement_min,omitempty"`
	Utilization    Number `json:"utilization,omitempty"`
	NextPaymentDue Date   `json:"next_payment_due,omitempty"`
}

// BNPLPlan is a buy-now-pay-later installment obligation. Plans travel with
// the payload for the bnpl_guard_days policy but are never rescheduled.
type BNPLPlan struct {
	ID       string  `json:"id"`
	Merchant string  `json:"merchant,omitempty"`
	DueDate  Date    `json:"due_date"`
	Amount   float64 `json:"amount"`
}

// IncomeRef points at the dominant income stream.
type IncomeRef struct {
	Label     string    `json:"label"`
	Amount    float64   `json:"amount"`
	Frequency Frequency `json:"frequency,omitempty"`
	Merchant  string    `json:"merchant,omitempty"`
}

// Policy governs optimization.
type Policy struct {
	BufferMin          Number             `json:"buffer_min"`
	NeverMove          []string           `json:"never_move"`
	WeekendPayments    bool               `json:"weekend_payments"`
	BNPLGuardDays      int                `json:"bnpl_guard_days"`
	UtilizationTargets map[string]float64 `json:"utilization_targets"`
	// AllowEarlyMoves permits move targets that precede the original date.
	// Windows for card payments and bills open before their anchor, so the
	// default keeps those targets reachable; nil means true.
	AllowEarlyMoves *bool      `json:"allow_early_moves,omitempty"`
	PrimaryIncome   *IncomeRef `json:"primary_income,omitempty"`
}

const (
	DefaultBufferMin          = 300.0
	DefaultUtilizationTarget  = 0.10
	DefaultBNPLGuardDays      = 7
	fallbackUtilizationTarget = 0.3
)

// DefaultPolicy returns the policy block the normalizer attaches to every
// payload.
func DefaultPolicy() Policy {
	return Policy{
		BufferMin:          Num(DefaultBufferMin),
		NeverMove:          []string{"Rent"},
		WeekendPayments:    false,
		BNPLGuardDays:      DefaultBNPLGuardDays,
		UtilizationTargets: map[string]float64{"default": DefaultUtilizationTarget},
	}
}

// EarlyMovesAllowed reports whether move targets may precede the anchor date.
func (p Policy) EarlyMovesAllowed() bool {
	return p.AllowEarlyMoves == nil || *p.AllowEarlyMoves
}

// TargetUtilization returns the policy's default utilization target, falling
// back when the mapping is absent.
func (p Policy) TargetUtilization() float64 {
	if t, ok := p.UtilizationTargets["default"]; ok {
		return t
	}
	return fallbackUtilizationTarget
}

// Immovable reports whether a label is pinned by the never_move list,
// regardless of the event's own fixed flag. Matching is case-insensitive.
func (p Policy) Immovable(label string) bool {
	for _, l := range p.NeverMove {
		if strings.EqualFold(l, label) {
			return true
		}
	}
	return false
}

// User identifies the payload owner.
type User struct {
	ID       string `json:"id"`
	Timezone string `json:"tz,omitempty"`
	Currency string `json:"currency,omitempty"`
}

// Intent is an opaque hint from the caller about what the plan is for.
type Intent struct {
	Name   string            `json:"name,omitempty"`
	Params map[string]string `json:"params,omitempty"`
}

// GroupSummary aggregates the events sharing one label.
type GroupSummary struct {
	Label         string    `json:"label"`
	Category      Category  `json:"category,omitempty"`
	Merchant      string    `json:"merchant,omitempty"`
	Frequency     Frequency `json:"frequency,omitempty"`
	AverageAmount float64   `json:"average_amount"`
	Count         int       `json:"count"`
	LastDate      Date      `json:"last_date"`
}

// SubscriptionSummary is one subscription outflow, listed for the caller.
type SubscriptionSummary struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Amount    float64   `json:"amount"`
	Merchant  string    `json:"merchant,omitempty"`
	Frequency Frequency `json:"frequency,omitempty"`
	Date      Date      `json:"date"`
}

// SalaryStream is the single highest-amount paycheck-classified income event.
type SalaryStream struct {
	Label     string    `json:"label"`
	Amount    float64   `json:"amount"`
	Frequency Frequency `json:"frequency,omitempty"`
	Merchant  string    `json:"merchant,omitempty"`
	Date      Date      `json:"date"`
}

// Meta carries the aggregated summaries produced during normalization.
type Meta struct {
	IncomeStreams     []GroupSummary        `json:"income_streams"`
	RecurringExpenses []GroupSummary        `json:"recurring_expenses"`
	Subscriptions     []SubscriptionSummary `json:"subscriptions"`
	SalaryStream      *SalaryStream         `json:"salary_stream,omitempty"`
}

// Payload is the canonical cashflow model handed to the optimizer. It is
// either produced by Normalize or supplied by the caller as JSON.
type Payload struct {
	User      User            `json:"user"`
	Policy    Policy          `json:"policy"`
	CashIn    []CashflowEvent `json:"cashIn"`
	CashOut   []CashflowEvent `json:"cashOut"`
	Cards     []Card          `json:"cards"`
	BNPLPlans []BNPLPlan      `json:"bnplPlans"`
	Intent    Intent          `json:"intent"`
	Meta      Meta            `json:"meta"`
}

// TotalIn sums all income amounts, unrounded.
func (p *Payload) TotalIn() float64 {
	var total float64
	for _, ev := range p.CashIn {
		total += ev.Amount
	}
	return total
}

// TotalOut sums all outflow amounts, unrounded.
func (p *Payload) TotalOut() float64 {
	var total float64
	for _, ev := range p.CashOut {
		total += ev.Amount
	}
	return total
}
