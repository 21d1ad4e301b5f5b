// SPDX-License-Identifier: GPL-3.0-only

package store

import (
	"context"
	"devtrust-server/models"
)

func (s *Store) CreateAuthorizationCode(ctx context.Context, code *models.AuthorizationCode) error {
	return s.db.WithContext(ctx).Create(code).Error
}

func (s *Store) AuthorizationCodeByHash(ctx context.Context, codeHash string) (*models.AuthorizationCode, error) {
	var code models.AuthorizationCode
	err := s.db.WithContext(ctx).
		Where("code_hash = ?", codeHash).
		First(&code).Error
	if err != nil {
		return nil, err
	}
	return &code, nil
}

// ConsumeAuthorizationCode flips used from false to true in a single
// conditional update. When two exchanges race on the same code, exactly one
// observes used=false here; the other gets ErrPreconditionFailed.
func (s *Store) ConsumeAuthorizationCode(ctx context.Context, codeHash string) error {
	res := s.db.WithContext(ctx).
		Model(&models.AuthorizationCode{}).
		Where("code_hash = ? AND used = ?", codeHash, false).
		Update("used", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrPreconditionFailed
	}
	return nil
}
