// SPDX-License-Identifier: GPL-3.0-only

package store

import (
	"context"
	"devtrust-server/models"
)

func (s *Store) CreateClient(ctx context.Context, client *models.OAuthClient) error {
	return s.db.WithContext(ctx).Create(client).Error
}

func (s *Store) ClientByClientID(ctx context.Context, clientID string) (*models.OAuthClient, error) {
	var client models.OAuthClient
	err := s.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		First(&client).Error
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (s *Store) ClientByOwner(ctx context.Context, userID uint, clientID string) (*models.OAuthClient, error) {
	var client models.OAuthClient
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND client_id = ?", userID, clientID).
		First(&client).Error
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (s *Store) ListClients(ctx context.Context, userID uint) ([]models.OAuthClient, error) {
	var clients []models.OAuthClient
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&clients).Error
	return clients, err
}

func (s *Store) UpdateClientFields(ctx context.Context, id uint, fields map[string]any) error {
	return s.db.WithContext(ctx).
		Model(&models.OAuthClient{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (s *Store) DeleteClient(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&models.OAuthClient{}, id).Error
}
