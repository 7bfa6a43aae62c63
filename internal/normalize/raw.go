package normalize

import "paycal/internal/core"

// RawTransaction is one record as delivered by the upstream transactions
// feed. Fields are lenient on purpose: feeds contain noise, and a record the
// normalizer cannot use is skipped rather than rejected.
type RawTransaction struct {
	TransactionID           string              `json:"transaction_id"`
	Name                    string              `json:"name,omitempty"`
	MerchantName            string              `json:"merchant_name,omitempty"`
	Amount                  core.Number         `json:"amount"`
	Date                    core.Date           `json:"date"`
	PersonalFinanceCategory core.SourceCategory `json:"personal_finance_category"`
}

// RawBalances mirrors the upstream account balance block.
type RawBalances struct {
	Available       core.Number `json:"available"`
	Current         core.Number `json:"current"`
	ISOCurrencyCode string      `json:"iso_currency_code,omitempty"`
}

// RawAccount is one upstream account.
type RawAccount struct {
	AccountID string      `json:"account_id,omitempty"`
	Name      string      `json:"name,omitempty"`
	Type      string      `json:"type,omitempty"`
	Balances  RawBalances `json:"balances"`
}

// RawBatch is the transactions-sync payload the ingestion boundary hands to
// Normalize: accounts plus added and modified transactions.
type RawBatch struct {
	Accounts []RawAccount     `json:"accounts"`
	Added    []RawTransaction `json:"added"`
	Modified []RawTransaction `json:"modified"`
}

// Transactions returns added followed by modified records, the order in
// which Normalize consumes them.
func (b RawBatch) Transactions() []RawTransaction {
	txns := make([]RawTransaction, 0, len(b.Added)+len(b.Modified))
	txns = append(txns, b.Added...)
	txns = append(txns, b.Modified...)
	return txns
}
