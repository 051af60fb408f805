package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/harborgrill/pos-backoffice-api/models"
)

func setupAllocatorDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := db.AutoMigrate(&models.OrderCounter{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

func TestAllocateSequence(t *testing.T) {
	db := setupAllocatorDB(t)
	allocator := NewSequenceAllocator(db)
	allocator.now = func() time.Time {
		return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	}

	for i := 1; i <= 3; i++ {
		number, err := allocator.Allocate()
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("ORD-20260830-%04d", i), number)
	}
}

func TestAllocateResetsPerDay(t *testing.T) {
	db := setupAllocatorDB(t)
	allocator := NewSequenceAllocator(db)

	day := time.Date(2026, 8, 30, 23, 59, 0, 0, time.UTC)
	allocator.now = func() time.Time { return day }

	first, err := allocator.Allocate()
	require.NoError(t, err)
	assert.Equal(t, "ORD-20260830-0001", first)

	// Next day starts a fresh sequence
	allocator.now = func() time.Time { return day.Add(2 * time.Minute) }
	next, err := allocator.Allocate()
	require.NoError(t, err)
	assert.Equal(t, "ORD-20260831-0001", next)
}

func TestAllocateWithExistingDayRow(t *testing.T) {
	db := setupAllocatorDB(t)
	allocator := NewSequenceAllocator(db)
	allocator.now = func() time.Time {
		return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	}

	// A counter row left by an earlier allocation must not trip the
	// day-row creation
	require.NoError(t, db.Create(&models.OrderCounter{Day: "20260830", Counter: 7}).Error)

	number, err := allocator.Allocate()
	require.NoError(t, err)
	assert.Equal(t, "ORD-20260830-0008", number)
}

func TestAllocateConcurrentFreshDay(t *testing.T) {
	db := setupAllocatorDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// In-memory sqlite gives every pooled connection its own database;
	// a single connection keeps all goroutines on the migrated one.
	sqlDB.SetMaxOpenConns(1)

	allocator := NewSequenceAllocator(db)
	allocator.now = func() time.Time {
		return time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	}

	const workers = 10
	numbers := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			number, err := allocator.Allocate()
			if assert.NoError(t, err) {
				numbers <- number
			}
		}()
	}
	wg.Wait()
	close(numbers)

	seen := map[string]bool{}
	for number := range numbers {
		require.False(t, seen[number], "order number %s handed out twice", number)
		seen[number] = true
	}
	assert.Len(t, seen, workers)
}

func TestAllocateNeverRepeats(t *testing.T) {
	db := setupAllocatorDB(t)
	allocator := NewSequenceAllocator(db)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		number, err := allocator.Allocate()
		require.NoError(t, err)
		require.False(t, seen[number], "order number %s handed out twice", number)
		seen[number] = true
	}
}
