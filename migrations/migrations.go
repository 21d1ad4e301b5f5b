// SPDX-License-Identifier: GPL-3.0-only

package migrations

import (
	"devtrust-server/models"
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func List() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "001_backfill_api_key_rate_limits",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.Model(&models.APIKey{}).
					Where("rate_limit IS NULL OR rate_limit = 0").
					Update("rate_limit", 1000).Error; err != nil {
					return fmt.Errorf("failed to backfill rate_limit: %w", err)
				}
				if err := tx.Model(&models.APIKey{}).
					Where("rate_limit_window IS NULL OR rate_limit_window = 0").
					Update("rate_limit_window", 3600).Error; err != nil {
					return fmt.Errorf("failed to backfill rate_limit_window: %w", err)
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error { return nil },
		},
	}
}
