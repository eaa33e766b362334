package legacy

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/wage-wallet/internal/domain"
	"github.com/spec-kit/wage-wallet/internal/repository"
)

const (
	importActor  = "legacy-import"
	importReason = "Legacy balance import"
)

// Options tune an import run.
type Options struct {
	// DryRun runs every check and rolls each transaction back.
	DryRun bool
	// Overwrite replaces existing records instead of skipping them. Balance
	// differences are booked as adjusting ledger entries.
	Overwrite bool
}

// Report summarises an import run.
type Report struct {
	Created  []string
	Updated  []string
	Skipped  []string
	Failed   []Issue
	Warnings map[string][]string
}

// Importer writes canonicalised records through the store.
type Importer struct {
	store  repository.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewImporter builds an importer.
func NewImporter(store repository.Store, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{store: store, logger: logger, now: time.Now}
}

// Run imports every record in its own transaction so one bad document does
// not abort the batch.
func (i *Importer) Run(ctx context.Context, records []Record, opts Options) *Report {
	report := &Report{Warnings: map[string][]string{}}
	for _, r := range records {
		code := r.Staff.StaffCode
		if len(r.Warnings) > 0 {
			report.Warnings[code] = r.Warnings
			for _, w := range r.Warnings {
				i.logger.Warn("legacy document warning", zap.String("staff_code", code), zap.String("warning", w))
			}
		}
		outcome, err := i.importOne(ctx, r.Staff, opts)
		if err != nil {
			i.logger.Error("legacy import failed", zap.String("staff_code", code), zap.Error(err))
			report.Failed = append(report.Failed, Issue{StaffCode: code, Reason: err.Error()})
			continue
		}
		switch outcome {
		case outcomeCreated:
			report.Created = append(report.Created, code)
		case outcomeUpdated:
			report.Updated = append(report.Updated, code)
		default:
			report.Skipped = append(report.Skipped, code)
		}
	}
	i.logger.Info("legacy import finished",
		zap.Bool("dry_run", opts.DryRun),
		zap.Int("created", len(report.Created)),
		zap.Int("updated", len(report.Updated)),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("failed", len(report.Failed)))
	return report
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeCreated
	outcomeUpdated
)

// errDryRun rolls back a dry-run transaction after it has done all its checks.
var errDryRun = errors.New("legacy: dry run")

func (i *Importer) importOne(ctx context.Context, staff domain.StaffRecord, opts Options) (outcome, error) {
	result := outcomeSkipped
	err := i.store.RunInTx(ctx, func(tx repository.Tx) error {
		err := i.apply(ctx, tx, staff, opts.Overwrite, &result)
		if err == nil && opts.DryRun {
			return errDryRun
		}
		return err
	})
	if errors.Is(err, errDryRun) {
		err = nil
	}
	return result, err
}

func (i *Importer) apply(ctx context.Context, tx repository.Tx, staff domain.StaffRecord, overwrite bool, result *outcome) error {
	*result = outcomeSkipped
	now := i.now().UTC()
	if staff.CreatedAt.IsZero() {
		staff.CreatedAt = now
	}
	if staff.UpdatedAt.IsZero() {
		staff.UpdatedAt = now
	}
	if staff.CreatedBy == "" {
		staff.CreatedBy = importActor
	}

	existing, err := tx.GetStaffForUpdate(ctx, staff.StaffCode)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		rec := staff
		if err := tx.InsertStaff(ctx, &rec); err != nil {
			return err
		}
		*result = outcomeCreated
		return bookAdjustment(ctx, tx, &rec, rec.WageBalance, now)
	case err != nil:
		return err
	case !overwrite:
		return nil
	}

	delta := staff.WageBalance - existing.WageBalance
	rec := staff
	// The live session and a bound owner survive re-imports.
	rec.ActiveSession = existing.ActiveSession
	if existing.OwnerIdentity != "" {
		rec.OwnerIdentity = existing.OwnerIdentity
	}
	rec.CreatedAt = existing.CreatedAt
	rec.UpdatedAt = now
	if err := tx.UpdateStaff(ctx, &rec); err != nil {
		return err
	}
	*result = outcomeUpdated
	return bookAdjustment(ctx, tx, &rec, delta, now)
}

func bookAdjustment(ctx context.Context, tx repository.Tx, rec *domain.StaffRecord, delta int64, now time.Time) error {
	if delta == 0 {
		return nil
	}
	payment := &domain.PaymentRecord{
		StaffCode:     rec.StaffCode,
		OwnerIdentity: rec.OwnerIdentity,
		Amount:        delta,
		Type:          domain.PaymentTypeCredit,
		Status:        domain.PaymentStatusCompleted,
		Reason:        importReason,
		Actor:         importActor,
		CreatedAt:     now,
	}
	if delta < 0 {
		payment.Amount = -delta
		payment.Type = domain.PaymentTypeDebit
	}
	return tx.InsertPayment(ctx, payment)
}
