// SPDX-License-Identifier: GPL-3.0-only

package services

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound covers unknown and foreign-owned identifiers on management
// operations. OAuth-facing operations never return it; they collapse to
// ErrInvalidCredential instead.
var ErrNotFound = errors.New("resource not found")

// ErrInvalidCredential is the single error for every credential failure:
// wrong secret, unknown code or token, expired, already used, revoked,
// inactive. Collapsing them keeps responses from acting as an oracle.
var ErrInvalidCredential = errors.New("invalid credential")

type ValidationError struct {
	Fields  []string
	Message string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Fields, ", "))
}

// ScopeError reports requested scopes outside a client's allow-list. The
// offending scopes are returned to the caller so the request can be fixed.
type ScopeError struct {
	Scopes []string
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("scopes not allowed: %s", strings.Join(e.Scopes, ", "))
}
