package services

import (
	"log"

	"gorm.io/gorm"

	"github.com/harborgrill/pos-backoffice-api/models"
)

// AuditService records who did what to which record. Failures are logged
// and swallowed; auditing never fails the request that triggered it.
type AuditService struct {
	db *gorm.DB
	// async controls whether writes happen on a background goroutine.
	// Tests disable it to make assertions deterministic.
	async bool
}

// NewAuditService creates an audit service that writes asynchronously
func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db, async: true}
}

// NewSyncAuditService creates an audit service that writes inline
func NewSyncAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// Record writes an audit log entry
func (s *AuditService) Record(userID *uint, action, entity, recordID, ipAddress, userAgent string) {
	entry := models.AuditLog{
		UserID:    userID,
		Action:    action,
		Entity:    entity,
		RecordID:  recordID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}

	write := func() {
		if err := s.db.Create(&entry).Error; err != nil {
			log.Printf("audit: failed to record %s on %s: %v", action, entity, err)
		}
	}

	if s.async {
		go write()
		return
	}
	write()
}
