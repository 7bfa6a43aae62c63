// Package ingest loads transaction fixtures from disk and offers summary and
// filter views over the raw batch. It stops at the normalize boundary: the
// batch it returns feeds normalize.Normalize unchanged.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"

	"paycal/internal/core"
	"paycal/internal/normalize"
)

// Summary is the headline statistics for a raw batch.
type Summary struct {
	TotalTransactions int     `json:"total_transactions"`
	TotalExpenses     float64 `json:"total_expenses"`
	TotalIncome       float64 `json:"total_income"`
	NetCashflow       float64 `json:"net_cashflow"`
	CurrentBalance    float64 `json:"current_balance"`
}

// CategoryReport groups the transactions of one source category.
type CategoryReport struct {
	Category         string                     `json:"category"`
	TransactionCount int                        `json:"transaction_count"`
	TotalAmount      float64                    `json:"total_amount"`
	Transactions     []normalize.RawTransaction `json:"transactions"`
}

// LoadFixture reads a transactions-sync JSON file into a raw batch.
func LoadFixture(path string) (normalize.RawBatch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return normalize.RawBatch{}, fmt.Errorf("read fixture %s: %w", path, err)
	}

	var batch normalize.RawBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		return normalize.RawBatch{}, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return batch, nil
}

// Summarize computes headline statistics over the added transactions.
// Modified records are revisions of added ones and would double count.
func Summarize(batch normalize.RawBatch) Summary {
	var income, expenses float64
	for _, t := range batch.Added {
		amount := t.Amount.Or(0)
		if t.PersonalFinanceCategory.Primary == "INCOME" {
			income += amount
		} else {
			expenses += amount
		}
	}

	s := Summary{
		TotalTransactions: len(batch.Added),
		TotalExpenses:     core.Round2(expenses),
		TotalIncome:       core.Round2(income),
		NetCashflow:       core.Round2(income - expenses),
	}
	if len(batch.Accounts) > 0 {
		s.CurrentBalance = batch.Accounts[0].Balances.Current.Or(0)
	}
	return s
}

// FilterByDateRange returns added transactions dated within [start, end].
// Records without a usable date are excluded.
func FilterByDateRange(batch normalize.RawBatch, start, end core.Date) []normalize.RawTransaction {
	var out []normalize.RawTransaction
	for _, t := range batch.Added {
		if t.Date.IsZero() {
			continue
		}
		if t.Date.Before(start.Time) || t.Date.After(end.Time) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// FilterByCategory returns the added transactions whose primary source
// category matches, with their count and rounded total.
func FilterByCategory(batch normalize.RawBatch, category string) CategoryReport {
	report := CategoryReport{Category: category}
	var total float64
	for _, t := range batch.Added {
		if t.PersonalFinanceCategory.Primary != category {
			continue
		}
		report.Transactions = append(report.Transactions, t)
		total += t.Amount.Or(0)
	}
	report.TransactionCount = len(report.Transactions)
	report.TotalAmount = core.Round2(total)
	return report
}
