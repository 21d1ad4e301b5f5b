// SPDX-License-Identifier: GPL-3.0-only

package models

import (
	"slices"
	"strings"
	"time"

	"gorm.io/gorm"
)

// OAuthClient is a registered third-party application. RedirectURIs and
// Scopes are space-separated closed allow-lists checked on every
// authorization. The client secret is stored as an HMAC digest only.
type OAuthClient struct {
	ID           uint    `gorm:"primaryKey"`
	ClientID     string  `gorm:"size:255;not null;uniqueIndex"`
	SecretHash   string  `gorm:"size:255;not null"`
	Name         string  `gorm:"size:255;not null"`
	Description  *string `gorm:"type:text;default:null"`
	RedirectURIs string  `gorm:"column:redirect_uris;type:text;not null"`
	Scopes       string  `gorm:"size:1024;not null"`
	Active       bool    `gorm:"not null;default:true;index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    gorm.DeletedAt `gorm:"index"`
	UserID       uint           `gorm:"index"`
	User         User           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (c *OAuthClient) RedirectURIList() []string {
	return strings.Fields(c.RedirectURIs)
}

func (c *OAuthClient) ScopeList() []string {
	return strings.Fields(c.Scopes)
}

// AllowsRedirectURI requires an exact match, never a prefix match.
func (c *OAuthClient) AllowsRedirectURI(uri string) bool {
	return slices.Contains(c.RedirectURIList(), uri)
}

// DisallowedScopes returns the requested scopes that are outside the
// client's allow-list.
func (c *OAuthClient) DisallowedScopes(requested []string) []string {
	allowed := c.ScopeList()
	var offending []string
	for _, s := range requested {
		if !slices.Contains(allowed, s) {
			offending = append(offending, s)
		}
	}
	return offending
}

func init() {
	AllModels = append(AllModels, &OAuthClient{})
}
