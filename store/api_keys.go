// SPDX-License-Identifier: GPL-3.0-only

package store

import (
	"context"
	"devtrust-server/models"
	"time"
)

func (s *Store) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	return s.db.WithContext(ctx).Create(key).Error
}

func (s *Store) APIKeyByKeyID(ctx context.Context, userID uint, keyID string) (*models.APIKey, error) {
	var key models.APIKey
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND key_id = ?", userID, keyID).
		First(&key).Error
	if err != nil {
		return nil, err
	}
	return &key, nil
}

func (s *Store) APIKeyBySecretHash(ctx context.Context, secretHash string) (*models.APIKey, error) {
	var key models.APIKey
	err := s.db.WithContext(ctx).
		Where("secret_hash = ?", secretHash).
		First(&key).Error
	if err != nil {
		return nil, err
	}
	return &key, nil
}

func (s *Store) ListAPIKeys(ctx context.Context, userID uint) ([]models.APIKey, error) {
	var keys []models.APIKey
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&keys).Error
	return keys, err
}

func (s *Store) UpdateAPIKeyFields(ctx context.Context, id uint, fields map[string]any) error {
	return s.db.WithContext(ctx).
		Model(&models.APIKey{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// TouchAPIKey records a successful verification. Failures are the caller's
// to log; a missed last-used update never fails the request.
func (s *Store) TouchAPIKey(ctx context.Context, id uint, usedAt time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.APIKey{}).
		Where("id = ?", id).
		Update("last_used_at", usedAt).Error
}
