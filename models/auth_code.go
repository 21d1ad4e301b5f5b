// SPDX-License-Identifier: GPL-3.0-only

package models

import (
	"time"
)

// AuthorizationCode is a short-lived single-use code minted during the
// authorize step. Used flips false to true exactly once, inside a
// conditional update; a second exchange of the same code must fail.
type AuthorizationCode struct {
	ID          uint   `gorm:"primaryKey"`
	CodeHash    string `gorm:"size:255;not null;uniqueIndex"`
	ClientID    string `gorm:"size:255;not null;index"`
	RedirectURI string `gorm:"size:2048;not null"`
	Scopes      string `gorm:"size:1024;not null"`
	ExpiresAt   time.Time `gorm:"not null"`
	Used        bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	UserID      uint `gorm:"not null;index"`
	User        User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (c *AuthorizationCode) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

func init() {
	AllModels = append(AllModels, &AuthorizationCode{})
}
