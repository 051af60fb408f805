package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/harborgrill/pos-backoffice-api/models"
)

// OrderNumberAllocator produces unique, human-readable order numbers.
// Allocation is treated as atomic: a returned number is never handed out
// twice. Uniqueness is delegated to the backing store.
type OrderNumberAllocator interface {
	Allocate() (string, error)
}

// SequenceAllocator allocates date-prefixed sequential numbers
// (ORD-20260830-0001) from a per-day counter row. The counter increment
// runs in its own transaction so the row lock serializes concurrent
// allocations.
type SequenceAllocator struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSequenceAllocator creates a database-backed allocator
func NewSequenceAllocator(db *gorm.DB) *SequenceAllocator {
	return &SequenceAllocator{db: db, now: time.Now}
}

// Allocate returns the next order number for today
func (a *SequenceAllocator) Allocate() (string, error) {
	day := a.now().Format("20060102")

	var seq int64
	err := a.db.Transaction(func(tx *gorm.DB) error {
		// Upsert so two transactions racing on a fresh day both proceed
		// instead of one failing on the duplicate key.
		counter := models.OrderCounter{Day: day}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&counter).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.OrderCounter{}).
			Where("day = ?", day).
			Update("counter", gorm.Expr("counter + 1")).Error; err != nil {
			return err
		}
		if err := tx.Where("day = ?", day).First(&counter).Error; err != nil {
			return err
		}
		seq = counter.Counter
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to allocate order number: %w", err)
	}

	return fmt.Sprintf("ORD-%s-%04d", day, seq), nil
}
