// Package normalize turns a raw transaction batch into the canonical
// cashflow payload: classified, windowed, recurrence-tagged events plus
// policy defaults and aggregated summaries.
package normalize

import (
	"sort"
	"strings"

	"paycal/internal/classify"
	"paycal/internal/core"
	"paycal/internal/recurrence"
)

const sourceName = "plaid"

// Normalize builds the canonical payload from a raw batch. Records with a
// duplicate or missing id, a missing date, or a non-positive amount are
// silently dropped; upstream feeds are expected to contain noise and a dirty
// record must never fail the batch.
func Normalize(batch RawBatch) *core.Payload {
	currency := "USD"
	if len(batch.Accounts) > 0 && batch.Accounts[0].Balances.ISOCurrencyCode != "" {
		currency = batch.Accounts[0].Balances.ISOCurrencyCode
	}

	seen := make(map[string]struct{})
	var cashIn, cashOut []core.CashflowEvent
	groups := make(map[string][]int) // group key -> indexes into events
	var events []core.CashflowEvent
	// Track list membership so frequencies can be written back after grouping.
	var membership []bool // true = cashIn

	for _, t := range batch.Transactions() {
		if t.TransactionID == "" {
			continue
		}
		if _, dup := seen[t.TransactionID]; dup {
			continue
		}
		if !t.Amount.Valid || t.Amount.Value <= 0 {
			continue
		}
		if t.Date.IsZero() {
			continue
		}
		seen[t.TransactionID] = struct{}{}

		label, category := classify.Classify(classify.Input{
			Name:     t.Name,
			Merchant: t.MerchantName,
			Category: t.PersonalFinanceCategory,
		})

		name := strings.TrimSpace(t.Name)
		merchant := strings.TrimSpace(t.MerchantName)
		eventMerchant := merchant
		if eventMerchant == "" {
			eventMerchant = name
		}

		ev := core.CashflowEvent{
			ID:        t.TransactionID,
			Label:     label,
			Category:  category,
			Date:      t.Date,
			Amount:    t.Amount.Value,
			Merchant:  eventMerchant,
			Frequency: core.FrequencyOneTime,
			Source:    sourceName,
			Metadata: core.Metadata{
				OriginalName:   name,
				MerchantName:   merchant,
				SourceCategory: &core.SourceCategory{Primary: t.PersonalFinanceCategory.Primary, Detailed: t.PersonalFinanceCategory.Detailed},
			},
		}

		isIncome := category == core.CategoryIncome
		switch category {
		case core.CategoryIncome:
			ev.Fixed = true
			if strings.Contains(strings.ToUpper(t.PersonalFinanceCategory.Detailed), "PAYCHECK") {
				ev.Stream = "salary"
			} else {
				ev.Stream = "income"
			}
		case core.CategoryRent, core.CategoryUtilities, core.CategoryInternet,
			core.CategorySubscription, core.CategoryCardPayment:
			ev.Fixed = category == core.CategoryRent
			ev.Window = classify.WindowFor(category, t.Date)
			if category == core.CategorySubscription {
				hint := ev.Merchant
				if hint == "" {
					hint = ev.Label
				}
				ev.Metadata.SubscriptionHint = hint
			}
		default:
			// Discretionary spend: movable in principle, but with no window
			// the optimizer has nothing to pick from.
			ev.Fixed = false
		}

		idx := len(events)
		events = append(events, ev)
		membership = append(membership, isIncome)
		key := groupKey(ev.Label, ev.Merchant)
		groups[key] = append(groups[key], idx)
	}

	// Attach the detected frequency and observed dates to every group member.
	for _, idxs := range groups {
		var observed []core.Date
		for _, i := range idxs {
			observed = append(observed, events[i].Date)
		}
		freq := recurrence.Detect(observed)
		distinct := recurrence.DistinctSorted(observed)
		for _, i := range idxs {
			events[i].Frequency = freq
			events[i].Metadata.ObservedDates = distinct
		}
	}

	for i, ev := range events {
		if membership[i] {
			cashIn = append(cashIn, ev)
		} else {
			cashOut = append(cashOut, ev)
		}
	}
	sortByDate(cashIn)
	sortByDate(cashOut)

	policy := core.DefaultPolicy()

	salary := salaryStream(cashIn)
	if salary != nil {
		policy.PrimaryIncome = &core.IncomeRef{
			Label:     salary.Label,
			Amount:    salary.Amount,
			Frequency: salary.Frequency,
			Merchant:  salary.Merchant,
		}
	}

	var recurring []core.CashflowEvent
	for _, ev := range cashOut {
		if ev.Frequency != core.FrequencyOneTime {
			recurring = append(recurring, ev)
		}
	}

	return &core.Payload{
		User:      core.User{ID: "usr_local", Currency: currency},
		Policy:    policy,
		CashIn:    cashIn,
		CashOut:   cashOut,
		Cards:     []core.Card{},
		BNPLPlans: []core.BNPLPlan{},
		Intent:    core.Intent{Name: "fee_proof"},
		Meta: core.Meta{
			IncomeStreams:     groupSummaries(cashIn),
			RecurringExpenses: groupSummaries(recurring),
			Subscriptions:     subscriptionSummaries(cashOut),
			SalaryStream:      salary,
		},
	}
}

func groupKey(label, merchant string) string {
	return strings.ToLower(label) + "::" + strings.ToLower(merchant)
}

func sortByDate(events []core.CashflowEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date.Time)
	})
}

// salaryStream picks the highest-amount income event tagged as salary. Ties
// keep the first encountered.
func salaryStream(cashIn []core.CashflowEvent) *core.SalaryStream {
	var best *core.CashflowEvent
	for i := range cashIn {
		if cashIn[i].Stream != "salary" {
			continue
		}
		if best == nil || cashIn[i].Amount > best.Amount {
			best = &cashIn[i]
		}
	}
	if best == nil {
		return nil
	}
	return &core.SalaryStream{
		Label:     best.Label,
		Amount:    best.Amount,
		Frequency: best.Frequency,
		Merchant:  best.Merchant,
		Date:      best.Date,
	}
}

// groupSummaries aggregates events by lowercase label: average amount,
// count, and most recent date, sorted by label.
func groupSummaries(events []core.CashflowEvent) []core.GroupSummary {
	type group struct {
		summary core.GroupSummary
		total   float64
	}
	groups := make(map[string]*group)
	var order []string

	for _, ev := range events {
		label := ev.Label
		if label == "" {
			if ev.Category != "" {
				label = string(ev.Category)
			} else {
				label = ev.ID
			}
		}
		key := strings.ToLower(label)
		g, ok := groups[key]
		if !ok {
			g = &group{summary: core.GroupSummary{
				Label:     label,
				Category:  ev.Category,
				Merchant:  ev.Merchant,
				Frequency: ev.Frequency,
				LastDate:  ev.Date,
			}}
			groups[key] = g
			order = append(order, key)
		}
		g.total += ev.Amount
		g.summary.Count++
		if ev.Date.After(g.summary.LastDate.Time) {
			g.summary.LastDate = ev.Date
		}
	}

	summaries := make([]core.GroupSummary, 0, len(order))
	for _, key := range order {
		g := groups[key]
		count := g.summary.Count
		if count < 1 {
			count = 1
		}
		g.summary.AverageAmount = core.Round2(g.total / float64(count))
		summaries = append(summaries, g.summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return strings.ToLower(summaries[i].Label) < strings.ToLower(summaries[j].Label)
	})
	return summaries
}

func subscriptionSummaries(cashOut []core.CashflowEvent) []core.SubscriptionSummary {
	var subs []core.SubscriptionSummary
	for _, ev := range cashOut {
		if ev.Category != core.CategorySubscription {
			continue
		}
		subs = append(subs, core.SubscriptionSummary{
			ID:        ev.ID,
			Label:     ev.Label,
			Amount:    ev.Amount,
			Merchant:  ev.Merchant,
			Frequency: ev.Frequency,
			Date:      ev.Date,
		})
	}
	return subs
}
