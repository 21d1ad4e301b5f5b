// SPDX-License-Identifier: GPL-3.0-only

package store

import (
	"context"
	"devtrust-server/models"
	"time"
)

// AppendUsage writes one ledger row. There is no update or delete path for
// usage rows anywhere in this package.
func (s *Store) AppendUsage(ctx context.Context, entry *models.APIUsageLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *Store) CountUsageSince(ctx context.Context, apiKeyID uint, since time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.APIUsageLog{}).
		Where("api_key_id = ? AND created_at >= ?", apiKeyID, since).
		Count(&count).Error
	return count, err
}

func (s *Store) UsageBetween(ctx context.Context, apiKeyID uint, from, to time.Time) ([]models.APIUsageLog, error) {
	var entries []models.APIUsageLog
	err := s.db.WithContext(ctx).
		Where("api_key_id = ? AND created_at >= ? AND created_at <= ?", apiKeyID, from, to).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}
