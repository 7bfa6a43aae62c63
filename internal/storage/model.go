package storage

import "time"

// ModificationType distinguishes a date move from a newly planned payment.
type ModificationType string

const (
	ModificationMove    ModificationType = "move"
	ModificationPlanned ModificationType = "planned"
)

// Modification statuses.
const (
	StatusSuggested = "suggested"
	StatusApproved  = "approved"
)

// Export statuses for the audit trail.
const (
	ExportPending = "pending"
	ExportDone    = "exported"
	ExportError   = "error"
)

// Modification is one recorded calendar adjustment. Moves reference an
// existing transaction; planned entries introduce a future payment.
type Modification struct {
	ID            string           `json:"modification_id"`
	Type          ModificationType `json:"type"`
	TransactionID string           `json:"transaction_id"`
	MerchantName  string           `json:"merchant_name"`
	OriginalDate  string           `json:"original_date,omitempty"`
	NewDate       string           `json:"new_date"`
	Amount        float64          `json:"amount"`
	Category      string           `json:"category,omitempty"`
	Reason        string           `json:"reason"`
	Status        string           `json:"status"`
	ExportStatus  string           `json:"export_status"`
	CreatedAt     time.Time        `json:"created_at"`
	ApprovedAt    *time.Time       `json:"approved_at,omitempty"`
}

// Summary aggregates the current modification set.
type Summary struct {
	TotalModifications  int        `json:"total_modifications"`
	TransactionsMoved   int        `json:"transactions_moved"`
	PlannedTransactions int        `json:"planned_transactions"`
	LastUpdated         *time.Time `json:"last_updated,omitempty"`
}
