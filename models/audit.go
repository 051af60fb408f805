package models

import "time"

// AuditLog records who did what and from where. Writes are best-effort and
// must never fail the operation being audited.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    *uint     `gorm:"index" json:"user_id"`
	Action    string    `gorm:"not null" json:"action"`
	Entity    string    `gorm:"column:table_name" json:"table_name"`
	RecordID  string    `json:"record_id"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}

// AllModels returns every model for AutoMigrate, dependency order first
func AllModels() []any {
	return []any{
		&User{},
		&Session{},
		&Customer{},
		&LoyaltyTransaction{},
		&MenuCategory{},
		&MenuItem{},
		&ModifierGroup{},
		&Modifier{},
		&Order{},
		&OrderItem{},
		&OrderItemModifier{},
		&OrderCounter{},
		&Payment{},
		&Supplier{},
		&InventoryItem{},
		&AuditLog{},
	}
}
