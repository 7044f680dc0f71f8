package model

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog records economic actions: deposits, session payments,
// purchases and battle results.
type AuditLog struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	TraceID     string         `gorm:"index:idx_audit_trace;size:36;not null" json:"trace_id"`
	TrainerID   *int64         `gorm:"index:idx_audit_trainer" json:"trainer_id"`
	AccountID   *int64         `json:"account_id"`
	TrainerName string         `gorm:"size:32" json:"trainer_name"`
	Action      string         `gorm:"size:64;not null" json:"action"`
	Mode        string         `gorm:"size:16" json:"mode"`
	YenDelta    int64          `json:"yen_delta"`
	Request     datatypes.JSON `json:"request"`
	Response    datatypes.JSON `json:"response"`
	Error       string         `gorm:"type:text" json:"error"`
	IP          string         `gorm:"size:45" json:"ip"`
	DurationMs  int            `json:"duration_ms"`
	CreatedAt   time.Time      `gorm:"index:idx_audit_created;autoCreateTime:milli" json:"created_at"`
}
