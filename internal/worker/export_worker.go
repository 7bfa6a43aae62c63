// Package worker drains approved calendar modifications from SQLite into the
// audit trail. Messages arrive over AMQP; a periodic sweep picks up anything
// a lost message left behind.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"paycal/internal/amqp"
	"paycal/internal/export"
	"paycal/internal/storage"

	"golang.org/x/sync/errgroup"
)

// ExportWorker handles exporting approved modifications to the audit trail.
type ExportWorker struct {
	storage   *storage.SQLiteRepository
	appender  export.Appender
	batchSize int
	interval  time.Duration
}

func NewExportWorker(storage *storage.SQLiteRepository, appender export.Appender, batchSize int, interval time.Duration) *ExportWorker {
	return &ExportWorker{
		storage:   storage,
		appender:  appender,
		batchSize: batchSize,
		interval:  interval,
	}
}

// HandleMessage processes a single modification export message from AMQP.
func (w *ExportWorker) HandleMessage(ctx context.Context, msg *amqp.ModificationMessage) error {
	slog.InfoContext(ctx, "Processing export message",
		"modification_id", msg.ModificationID)

	mod, err := w.storage.Get(ctx, msg.ModificationID)
	if err != nil {
		return fmt.Errorf("get modification from storage: %w", err)
	}

	// Only approved modifications reach the audit trail. A suggestion may
	// still be approved later; the periodic sweep will pick it up then.
	if mod.Status != storage.StatusApproved {
		slog.InfoContext(ctx, "Skipping unapproved modification",
			"modification_id", mod.ID,
			"status", mod.Status)
		return nil
	}
	if mod.ExportStatus == storage.ExportDone {
		slog.InfoContext(ctx, "Modification already exported",
			"modification_id", mod.ID)
		return nil
	}

	if err := w.exportModification(ctx, *mod); err != nil {
		return fmt.Errorf("export modification: %w", err)
	}

	return nil
}

// ProcessPending exports any approved modifications that have not reached
// the audit trail yet. This is a backup mechanism in case AMQP messages are
// lost.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.PendingExport(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending modifications: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending modifications", "count", len(pending))

	for _, mod := range pending {
		if err := w.exportModification(ctx, mod); err != nil {
			slog.ErrorContext(ctx, "Failed to export modification",
				"modification_id", mod.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupCheck drains a larger pending batch once at worker startup to
// recover from downtime.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.storage.PendingExport(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending modifications for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending modifications found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending modifications on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0
	for _, mod := range pending {
		if err := w.exportModification(ctx, mod); err != nil {
			slog.ErrorContext(ctx, "Failed to export modification during startup",
				"modification_id", mod.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup export completed",
		"total", len(pending),
		"exported", successCount,
		"errors", errorCount)

	return nil
}

// Run consumes AMQP messages and sweeps pending modifications until the
// context ends.
func (w *ExportWorker) Run(ctx context.Context, client *amqp.Client) error {
	if err := w.StartupCheck(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup check failed", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return client.ConsumeModifications(ctx, func(msg *amqp.ModificationMessage) error {
			return w.HandleMessage(ctx, msg)
		})
	})

	g.Go(func() error {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := w.ProcessPending(ctx); err != nil {
					slog.ErrorContext(ctx, "Periodic export sweep failed", "error", err)
				}
			}
		}
	})

	return g.Wait()
}

func (w *ExportWorker) exportModification(ctx context.Context, mod storage.Modification) error {
	ref, err := w.appender.Append(ctx, mod)
	if err != nil {
		if markErr := w.storage.MarkExportError(ctx, mod.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error",
				"modification_id", mod.ID, "error", markErr)
		}
		return fmt.Errorf("append to audit trail: %w", err)
	}

	if err := w.storage.MarkExported(ctx, mod.ID); err != nil {
		// The append succeeded; the next sweep will retry the marking.
		slog.ErrorContext(ctx, "Failed to mark as exported",
			"modification_id", mod.ID, "error", err)
	}

	slog.InfoContext(ctx, "Successfully exported modification",
		"modification_id", mod.ID,
		"sheets_ref", ref,
		"merchant", mod.MerchantName,
		"amount", mod.Amount)

	return nil
}
