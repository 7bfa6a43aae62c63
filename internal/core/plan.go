package core

// ChangeType distinguishes the two kinds of scheduled change.
type ChangeType string

const (
	ChangeMove  ChangeType = "move"
	ChangeSplit ChangeType = "split"
)

// Reason tags why a change was proposed.
type Reason string

const (
	ReasonProtectBuffer    Reason = "protect_buffer"
	ReasonAlignCashflow    Reason = "align_cashflow"
	ReasonLowerUtilization Reason = "lower_utilization"
)

// SplitPart is one piece of a split payment.
type SplitPart struct {
	Date   Date    `json:"date"`
	Amount float64 `json:"amount"`
}

// ScheduledChange is one proposed adjustment. A move carries From/To dates;
// a split carries From plus parts that sum to the original amount.
type ScheduledChange struct {
	Type      ChangeType  `json:"type"`
	PaymentID string      `json:"payment_id"`
	Reason    Reason      `json:"reason"`
	From      Date        `json:"from"`
	To        *Date       `json:"to,omitempty"`
	Parts     []SplitPart `json:"parts,omitempty"`
}

// UtilizationProjection is the before/after utilization diagnostic attached
// when the plan stages card payments.
type UtilizationProjection struct {
	Before float64 `json:"before"`
	After  float64 `json:"after"`
}

// Metrics are the numeric diagnostics of a plan.
type Metrics struct {
	Focus                 Focus                  `json:"focus"`
	BufferMin             float64                `json:"buffer_min"`
	CashInTotal           float64                `json:"cash_in_total"`
	CashOutTotal          float64                `json:"cash_out_total"`
	ProjectedBufferPeak   *float64               `json:"projected_buffer_peak,omitempty"`
	UtilizationProjection *UtilizationProjection `json:"utilization_projection,omitempty"`
}

// CalendarPlan is the optimizer output. A plan is computed fresh on every
// request and never mutated after construction; it holds at most one move
// and at most one split.
type CalendarPlan struct {
	Changes     []ScheduledChange `json:"changes"`
	Metrics     Metrics           `json:"metrics"`
	Explain     []string          `json:"explain"`
	NextActions []string          `json:"next_actions"`
}

// HasChanges reports whether the plan proposes any adjustment.
func (p *CalendarPlan) HasChanges() bool {
	return len(p.Changes) > 0
}
