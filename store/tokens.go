// SPDX-License-Identifier: GPL-3.0-only

package store

import (
	"context"
	"devtrust-server/models"
)

func (s *Store) CreateAccessToken(ctx context.Context, token *models.AccessToken) error {
	return s.db.WithContext(ctx).Create(token).Error
}

func (s *Store) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	return s.db.WithContext(ctx).Create(token).Error
}

func (s *Store) AccessTokenByHash(ctx context.Context, tokenHash string) (*models.AccessToken, error) {
	var token models.AccessToken
	err := s.db.WithContext(ctx).
		Where("token_hash = ?", tokenHash).
		First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (s *Store) RefreshTokenByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	err := s.db.WithContext(ctx).
		Where("token_hash = ?", tokenHash).
		First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// RevokeAccessToken is idempotent: revoking an already revoked token
// affects zero rows and still succeeds.
func (s *Store) RevokeAccessToken(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).
		Model(&models.AccessToken{}).
		Where("id = ?", id).
		Update("revoked", true).Error
}

// RevokeRefreshTokenIfActive is the rotation commit point. Only one caller
// can move a refresh token from active to revoked; everyone else gets
// ErrPreconditionFailed and must not mint a replacement pair.
func (s *Store) RevokeRefreshTokenIfActive(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("id = ? AND revoked = ?", id, false).
		Update("revoked", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrPreconditionFailed
	}
	return nil
}

// RevokeTokensForClient bulk-revokes every access token and every paired
// refresh token issued to a client.
func (s *Store) RevokeTokensForClient(ctx context.Context, clientID string) (int64, error) {
	var revoked int64
	err := s.Transaction(ctx, func(tx *Store) error {
		res := tx.db.WithContext(ctx).
			Model(&models.AccessToken{}).
			Where("client_id = ? AND revoked = ?", clientID, false).
			Update("revoked", true)
		if res.Error != nil {
			return res.Error
		}
		revoked = res.RowsAffected

		return tx.db.WithContext(ctx).
			Model(&models.RefreshToken{}).
			Where("client_id = ? AND revoked = ?", clientID, false).
			Update("revoked", true).Error
	})
	return revoked, err
}
