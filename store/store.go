// SPDX-License-Identifier: GPL-3.0-only

// Package store is the credential store: every table the trust subsystem
// owns is read and written through it. It carries the two conditional
// updates (code consumption, refresh-token revocation) that the single-use
// and rotation invariants depend on, so no caller is tempted to do a
// read-then-write around them.
package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrPreconditionFailed is returned by conditional updates when the guarded
// predicate no longer holds, e.g. consuming an authorization code that a
// concurrent exchange already marked used.
var ErrPreconditionFailed = errors.New("store: precondition no longer holds")

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Transaction runs fn against a transaction-scoped store. Rollback on error
// is the rotation safety net: a failure mid-rotation leaves the old
// credential untouched.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
