// SPDX-License-Identifier: GPL-3.0-only

package models

import (
	"time"
)

// AccessToken and RefreshToken rows hold HMAC digests of the bearer values,
// never the values themselves. A refresh token is linked to the access token
// it was minted with; the pair is created together and rotated together.
type AccessToken struct {
	ID        uint      `gorm:"primaryKey"`
	TokenHash string    `gorm:"size:255;not null;uniqueIndex"`
	ClientID  string    `gorm:"size:255;not null;index"`
	Scopes    string    `gorm:"size:1024;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	Revoked   bool      `gorm:"not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
	UserID    uint `gorm:"not null;index"`
	User      User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (t *AccessToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

type RefreshToken struct {
	ID            uint      `gorm:"primaryKey"`
	TokenHash     string    `gorm:"size:255;not null;uniqueIndex"`
	AccessTokenID uint      `gorm:"not null;index"`
	ClientID      string    `gorm:"size:255;not null;index"`
	Scopes        string    `gorm:"size:1024;not null"`
	ExpiresAt     time.Time `gorm:"not null"`
	Revoked       bool      `gorm:"not null;default:false"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	UserID        uint        `gorm:"not null;index"`
	User          User        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	AccessToken   AccessToken `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (t *RefreshToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

func init() {
	AllModels = append(AllModels, &AccessToken{}, &RefreshToken{})
}
