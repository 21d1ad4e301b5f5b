// SPDX-License-Identifier: GPL-3.0-only

package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// APIKey stores only the HMAC digest of the plaintext key. Prefix is the
// first characters of the plaintext, kept for display so owners can tell
// keys apart; it is never enough to reconstruct the secret.
type APIKey struct {
	ID              uint    `gorm:"primaryKey"`
	KeyID           string  `gorm:"size:255;not null;uniqueIndex"`
	SecretHash      string  `gorm:"size:255;not null;uniqueIndex"`
	Prefix          string  `gorm:"size:32;not null"`
	Name            string  `gorm:"size:255;not null"`
	Description     *string `gorm:"type:text;default:null"`
	Scopes          string  `gorm:"size:1024;not null"`
	RateLimit       int     `gorm:"not null;default:1000"`
	RateLimitWindow int     `gorm:"not null;default:3600"`
	Active          bool    `gorm:"not null;default:true;index"`
	LastUsedAt      *time.Time
	ExpiresAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       gorm.DeletedAt `gorm:"index"`
	UserID          uint           `gorm:"index"`
	User            User           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (k *APIKey) ScopeList() []string {
	return strings.Fields(k.Scopes)
}

func (k *APIKey) IsExpired() bool {
	return k.ExpiresAt != nil && k.ExpiresAt.Before(time.Now())
}

func init() {
	AllModels = append(AllModels, &APIKey{})
}
