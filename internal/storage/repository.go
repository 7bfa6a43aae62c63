package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"paycal/internal/core"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteRepository stores calendar modifications. A move replaces any
// earlier move for the same transaction; planned entries accumulate.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// RecordMove stores a suggested date move. An existing move for the same
// transaction is discarded first so only the latest suggestion survives.
func (r *SQLiteRepository) RecordMove(ctx context.Context, transactionID, merchantName, originalDate, newDate string, amount float64, reason string) (*Modification, error) {
	if transactionID == "" {
		return nil, fmt.Errorf("record move: %w", core.ErrNotFound)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM modifications WHERE transaction_id = ? AND type = ?`,
		transactionID, string(ModificationMove)); err != nil {
		return nil, fmt.Errorf("discard previous move: %w", err)
	}

	mod := &Modification{
		ID:            uuid.NewString(),
		Type:          ModificationMove,
		TransactionID: transactionID,
		MerchantName:  merchantName,
		OriginalDate:  originalDate,
		NewDate:       newDate,
		Amount:        amount,
		Reason:        reason,
		Status:        StatusSuggested,
		ExportStatus:  ExportPending,
		CreatedAt:     time.Now().UTC(),
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO modifications
		 (id, type, transaction_id, merchant_name, original_date, new_date, amount, category, reason, status, export_status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		mod.ID, string(mod.Type), mod.TransactionID, mod.MerchantName, mod.OriginalDate,
		mod.NewDate, mod.Amount, mod.Category, mod.Reason, mod.Status, mod.ExportStatus,
		mod.CreatedAt.Format(time.RFC3339)); err != nil {
		return nil, fmt.Errorf("insert move: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit move: %w", err)
	}

	slog.InfoContext(ctx, "Move recorded",
		"modification_id", mod.ID,
		"transaction_id", mod.TransactionID,
		"merchant", mod.MerchantName,
		"from", mod.OriginalDate,
		"to", mod.NewDate)

	return mod, nil
}

// RecordPlanned stores a new planned payment suggestion.
func (r *SQLiteRepository) RecordPlanned(ctx context.Context, merchantName, date string, amount float64, category, reason string) (*Modification, error) {
	mod := &Modification{
		ID:            uuid.NewString(),
		Type:          ModificationPlanned,
		TransactionID: "planned_" + uuid.NewString()[:8],
		MerchantName:  merchantName,
		NewDate:       date,
		Amount:        amount,
		Category:      category,
		Reason:        reason,
		Status:        StatusSuggested,
		ExportStatus:  ExportPending,
		CreatedAt:     time.Now().UTC(),
	}

	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO modifications
		 (id, type, transaction_id, merchant_name, original_date, new_date, amount, category, reason, status, export_status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		mod.ID, string(mod.Type), mod.TransactionID, mod.MerchantName, mod.OriginalDate,
		mod.NewDate, mod.Amount, mod.Category, mod.Reason, mod.Status, mod.ExportStatus,
		mod.CreatedAt.Format(time.RFC3339)); err != nil {
		return nil, fmt.Errorf("insert planned transaction: %w", err)
	}

	slog.InfoContext(ctx, "Planned transaction recorded",
		"modification_id", mod.ID,
		"merchant", mod.MerchantName,
		"date", mod.NewDate)

	return mod, nil
}

// Approve marks a suggested modification as user approved.
func (r *SQLiteRepository) Approve(ctx context.Context, modificationID string) (*Modification, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE modifications SET status = ?, approved_at = ? WHERE id = ?`,
		StatusApproved, now.Format(time.RFC3339), modificationID)
	if err != nil {
		return nil, fmt.Errorf("approve modification: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("approve modification: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("approve modification %s: %w", modificationID, core.ErrNotFound)
	}

	slog.InfoContext(ctx, "Modification approved", "modification_id", modificationID)
	return r.Get(ctx, modificationID)
}

// Get fetches a single modification by id.
func (r *SQLiteRepository) Get(ctx context.Context, modificationID string) (*Modification, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, type, transaction_id, merchant_name, original_date, new_date, amount, category, reason, status, export_status, created_at, approved_at
		 FROM modifications WHERE id = ?`, modificationID)
	mod, err := scanModification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get modification %s: %w", modificationID, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get modification: %w", err)
	}
	return mod, nil
}

// List returns all modifications in creation order.
func (r *SQLiteRepository) List(ctx context.Context) ([]Modification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, type, transaction_id, merchant_name, original_date, new_date, amount, category, reason, status, export_status, created_at, approved_at
		 FROM modifications ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list modifications: %w", err)
	}
	defer rows.Close()

	var mods []Modification
	for rows.Next() {
		mod, err := scanModification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan modification: %w", err)
		}
		mods = append(mods, *mod)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list modifications: %w", err)
	}
	return mods, nil
}

// Summarize returns counts over the current modification set.
func (r *SQLiteRepository) Summarize(ctx context.Context) (Summary, error) {
	mods, err := r.List(ctx)
	if err != nil {
		return Summary{}, err
	}

	var s Summary
	s.TotalModifications = len(mods)
	for _, m := range mods {
		switch m.Type {
		case ModificationPlanned:
			s.PlannedTransactions++
		default:
			s.TransactionsMoved++
		}
		if s.LastUpdated == nil || m.CreatedAt.After(*s.LastUpdated) {
			created := m.CreatedAt
			s.LastUpdated = &created
		}
	}
	return s, nil
}

// Clear removes every modification.
func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM modifications`); err != nil {
		return fmt.Errorf("clear modifications: %w", err)
	}
	slog.InfoContext(ctx, "All modifications cleared")
	return nil
}

// PendingExport returns approved modifications awaiting audit export.
func (r *SQLiteRepository) PendingExport(ctx context.Context, limit int) ([]Modification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, type, transaction_id, merchant_name, original_date, new_date, amount, category, reason, status, export_status, created_at, approved_at
		 FROM modifications
		 WHERE status = ? AND export_status = ?
		 ORDER BY created_at, id LIMIT ?`,
		StatusApproved, ExportPending, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending export modifications: %w", err)
	}
	defer rows.Close()

	var mods []Modification
	for rows.Next() {
		mod, err := scanModification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan modification: %w", err)
		}
		mods = append(mods, *mod)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get pending export modifications: %w", err)
	}
	return mods, nil
}

// MarkExported marks a modification as written to the audit trail.
func (r *SQLiteRepository) MarkExported(ctx context.Context, modificationID string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE modifications SET export_status = ? WHERE id = ?`,
		ExportDone, modificationID); err != nil {
		return fmt.Errorf("mark modification exported: %w", err)
	}
	slog.InfoContext(ctx, "Modification marked as exported", "modification_id", modificationID)
	return nil
}

// MarkExportError marks a modification whose export attempt failed.
func (r *SQLiteRepository) MarkExportError(ctx context.Context, modificationID string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE modifications SET export_status = ? WHERE id = ?`,
		ExportError, modificationID); err != nil {
		return fmt.Errorf("mark modification export error: %w", err)
	}
	slog.WarnContext(ctx, "Modification marked with export error", "modification_id", modificationID)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanModification(row rowScanner) (*Modification, error) {
	var (
		mod        Modification
		modType    string
		createdAt  string
		approvedAt sql.NullString
	)
	if err := row.Scan(&mod.ID, &modType, &mod.TransactionID, &mod.MerchantName,
		&mod.OriginalDate, &mod.NewDate, &mod.Amount, &mod.Category, &mod.Reason,
		&mod.Status, &mod.ExportStatus, &createdAt, &approvedAt); err != nil {
		return nil, err
	}
	mod.Type = ModificationType(modType)
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		mod.CreatedAt = t
	}
	if approvedAt.Valid {
		if t, err := time.Parse(time.RFC3339, approvedAt.String); err == nil {
			mod.ApprovedAt = &t
		}
	}
	return &mod, nil
}
