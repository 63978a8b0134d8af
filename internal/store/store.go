package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"gorm.io/gorm"

	"pmtrack-backend/internal/lifecycle"
	"pmtrack-backend/internal/model"
)

// MutateFunc changes a loaded record in memory. Returning an error discards the change.
type MutateFunc func(rec *model.MachineRecord) error

// Store defines the interface for all database operations.
type Store interface {
	Create(ctx context.Context, in model.NewRecord) (*model.MachineRecord, error)
	FindByMachineID(ctx context.Context, machineID string) (*model.MachineRecord, error)
	ListAll(ctx context.Context) ([]model.MachineRecord, error)
	Search(ctx context.Context, term string) ([]model.MachineRecord, error)
	Mutate(ctx context.Context, op, machineID string, fn MutateFunc) (*model.MachineRecord, error)
	Delete(ctx context.Context, machineID string) error
	Reconcile(ctx context.Context, rows []model.ImportRow) (int, error)
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
//
// Display numbers are computed as MAX+1 inside the write transaction, bumped past
// the high-water mark so deleted numbers never come back. This is only correct
// with a single writer; mu serializes all writes.
type gormStore struct {
	db *gorm.DB
	mu sync.Mutex
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// Create inserts a new Outstanding record with the next display number.
func (s *gormStore) Create(ctx context.Context, in model.NewRecord) (*model.MachineRecord, error) {
	if err := lifecycle.ValidateNew(in); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := model.MachineRecord{
		MachineID:  strings.TrimSpace(in.MachineID),
		Address:    strings.TrimSpace(in.Address),
		Manager:    strings.TrimSpace(in.Manager),
		Technician: strings.TrimSpace(in.Technician),
		Status:     model.StatusOutstanding,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := findFirst(tx, rec.MachineID)
		if err == nil {
			return ErrDuplicateMachineID
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}

		next, err := nextDisplayNumber(tx)
		if err != nil {
			return err
		}
		rec.DisplayNumber = next

		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("failed to insert machine %q: %w", rec.MachineID, err)
		}
		return nil
	})
	if err != nil {
		return nil, classify("create", err)
	}
	return &rec, nil
}

// FindByMachineID returns the first record with the given business key.
func (s *gormStore) FindByMachineID(ctx context.Context, machineID string) (*model.MachineRecord, error) {
	rec, err := findFirst(s.db.WithContext(ctx), machineID)
	if err != nil {
		return nil, classify("find", err)
	}
	return rec, nil
}

// ListAll returns every record ordered by display number.
func (s *gormStore) ListAll(ctx context.Context) ([]model.MachineRecord, error) {
	var records []model.MachineRecord
	if err := s.db.WithContext(ctx).Order("display_number ASC").Find(&records).Error; err != nil {
		return nil, &Error{Op: "list", Err: err}
	}
	return records, nil
}

// Search filters on manager, PM period and status, case-insensitively.
// A blank term lists everything. Matching happens in Go because SQLite's
// LOWER() only folds ASCII.
func (s *gormStore) Search(ctx context.Context, term string) ([]model.MachineRecord, error) {
	var records []model.MachineRecord
	if err := s.db.WithContext(ctx).Order("display_number ASC").Find(&records).Error; err != nil {
		return nil, &Error{Op: "search", Err: err}
	}
	if strings.TrimSpace(term) == "" {
		return records, nil
	}

	needle := strings.ToLower(term)
	matches := make([]model.MachineRecord, 0, len(records))
	for _, rec := range records {
		if containsFold(rec.Manager, needle) ||
			(rec.PMPeriod != nil && containsFold(*rec.PMPeriod, needle)) ||
			containsFold(string(rec.Status), needle) {
			matches = append(matches, rec)
		}
	}
	return matches, nil
}

// Mutate loads the record, applies fn and saves it in one transaction.
func (s *gormStore) Mutate(ctx context.Context, op, machineID string, fn MutateFunc) (*model.MachineRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var updated model.MachineRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := findFirst(tx, machineID)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
		if err := tx.Save(rec).Error; err != nil {
			return fmt.Errorf("failed to save machine %q: %w", rec.MachineID, err)
		}
		updated = *rec
		return nil
	})
	if err != nil {
		return nil, classify(op, err)
	}
	return &updated, nil
}

// Delete removes the first record with the given business key.
func (s *gormStore) Delete(ctx context.Context, machineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := findFirst(tx, machineID)
		if err != nil {
			return err
		}
		if err := tx.Delete(&model.MachineRecord{}, rec.ID).Error; err != nil {
			return fmt.Errorf("failed to delete machine %q: %w", rec.MachineID, err)
		}
		return nil
	})
	return classify("delete", err)
}

// Reconcile applies imported rows in order: rows whose machine id exists update
// that record, the rest are inserted with increasing display numbers. The whole
// batch is one transaction.
func (s *gormStore) Reconcile(ctx context.Context, rows []model.ImportRow) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var imported, created int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			if err := lifecycle.ValidateImportRow(row); err != nil {
				return err
			}

			existing, err := findFirst(tx, strings.TrimSpace(row.MachineID))
			switch {
			case err == nil:
				if err := lifecycle.ApplyImportRow(existing, row); err != nil {
					return err
				}
				if err := tx.Save(existing).Error; err != nil {
					return fmt.Errorf("row %d: failed to update machine %q: %w", row.Line, existing.MachineID, err)
				}
			case errors.Is(err, ErrNotFound):
				next, err := nextDisplayNumber(tx)
				if err != nil {
					return err
				}
				rec := model.MachineRecord{DisplayNumber: next}
				if err := lifecycle.ApplyImportRow(&rec, row); err != nil {
					return err
				}
				if err := tx.Create(&rec).Error; err != nil {
					return fmt.Errorf("row %d: failed to insert machine %q: %w", row.Line, rec.MachineID, err)
				}
				created++
			default:
				return err
			}
			imported++
		}
		return nil
	})
	if err != nil {
		return 0, classify("import", err)
	}

	log.Printf("Import reconciled %d rows (%d created, %d updated)", imported, created, imported-created)
	return imported, nil
}

// --- Helpers ---

func findFirst(tx *gorm.DB, machineID string) (*model.MachineRecord, error) {
	var rec model.MachineRecord
	err := tx.Where("machine_id = ?", machineID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up machine %q: %w", machineID, err)
	}
	return &rec, nil
}

// nextDisplayNumber returns one past the larger of the live maximum and the
// recorded high-water mark, and advances the mark. Must run inside the write
// transaction.
func nextDisplayNumber(tx *gorm.DB) (int, error) {
	var current int64
	row := tx.Model(&model.MachineRecord{}).Select("COALESCE(MAX(display_number), 0)").Row()
	if err := row.Scan(&current); err != nil {
		return 0, fmt.Errorf("failed to read max display number: %w", err)
	}

	counter := model.DisplayCounter{ID: 1}
	if err := tx.FirstOrCreate(&counter, model.DisplayCounter{ID: 1}).Error; err != nil {
		return 0, fmt.Errorf("failed to read display counter: %w", err)
	}

	next := int(current) + 1
	if counter.LastNumber >= next {
		next = counter.LastNumber + 1
	}
	if err := tx.Model(&counter).Update("last_number", next).Error; err != nil {
		return 0, fmt.Errorf("failed to advance display counter: %w", err)
	}
	return next, nil
}

func containsFold(field, lowerNeedle string) bool {
	return strings.Contains(strings.ToLower(field), lowerNeedle)
}
