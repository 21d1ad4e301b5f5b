// SPDX-License-Identifier: GPL-3.0-only

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// APIUsageLog is the append-only usage ledger. Rows are never updated or
// deleted once written; rate limiting and usage statistics are computed by
// querying this table.
type APIUsageLog struct {
	ID         uint      `gorm:"primaryKey"`
	EID        uuid.UUID `gorm:"type:uuid;not null"`
	APIKeyID   uint      `gorm:"not null;index:idx_usage_key_time"`
	Endpoint   string    `gorm:"size:512;not null"`
	Method     string    `gorm:"size:16;not null"`
	StatusCode int       `gorm:"not null"`
	LatencyMs  int64     `gorm:"not null"`
	ClientIP   *string   `gorm:"size:64;default:null"`
	UserAgent  *string   `gorm:"size:512;default:null"`
	CreatedAt  time.Time `gorm:"index:idx_usage_key_time"`
	APIKey     APIKey    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (usageLog *APIUsageLog) BeforeCreate(tx *gorm.DB) (err error) {
	usageLog.EID = uuid.New()
	return
}

func init() {
	AllModels = append(AllModels, &APIUsageLog{})
}
