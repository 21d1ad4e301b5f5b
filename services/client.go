// SPDX-License-Identifier: GPL-3.0-only

package services

import (
	"context"
	"devtrust-server/crypto"
	"devtrust-server/events"
	"devtrust-server/models"
	"devtrust-server/store"
	"net/url"
	"strings"
	"time"
)

type ClientService struct {
	store  *store.Store
	crypto *crypto.Crypto
	events events.Dispatcher
}

func NewClientService(st *store.Store, cr *crypto.Crypto, ev events.Dispatcher) *ClientService {
	return &ClientService{store: st, crypto: cr, events: ev}
}

type CreateClientInput struct {
	Name         string
	Description  *string
	RedirectURIs []string
	Scopes       []string
}

func validateRedirectURIs(uris []string) error {
	for _, raw := range uris {
		u, err := url.Parse(raw)
		if err != nil || !u.IsAbs() || u.Host == "" || u.Fragment != "" {
			return &ValidationError{Fields: []string{"redirect_uris"}, Message: "must be absolute URLs without fragments"}
		}
	}
	return nil
}

// CreateClient registers a third-party application. The client secret is
// returned exactly once; only its digest is stored.
func (s *ClientService) CreateClient(ctx context.Context, userID uint, in CreateClientInput) (*models.OAuthClient, string, error) {
	var missing []string
	if strings.TrimSpace(in.Name) == "" {
		missing = append(missing, "name")
	}
	if len(in.RedirectURIs) == 0 {
		missing = append(missing, "redirect_uris")
	}
	if len(in.Scopes) == 0 {
		missing = append(missing, "scopes")
	}
	if len(missing) > 0 {
		return nil, "", &ValidationError{Fields: missing, Message: "required fields missing"}
	}
	if err := validateRedirectURIs(in.RedirectURIs); err != nil {
		return nil, "", err
	}

	clientID, err := crypto.GenerateRandomString("oc_", 8, "hex")
	if err != nil {
		return nil, "", err
	}
	secret, err := crypto.GenerateRandomString("ocs_", 32, "hex")
	if err != nil {
		return nil, "", err
	}

	client := &models.OAuthClient{
		ClientID:     clientID,
		SecretHash:   s.crypto.DigestSecret(secret),
		Name:         strings.TrimSpace(in.Name),
		Description:  in.Description,
		RedirectURIs: strings.Join(in.RedirectURIs, " "),
		Scopes:       strings.Join(in.Scopes, " "),
		Active:       true,
		UserID:       userID,
	}
	if err := s.store.CreateClient(ctx, client); err != nil {
		return nil, "", err
	}
	return client, secret, nil
}

func (s *ClientService) ListClients(ctx context.Context, userID uint) ([]models.OAuthClient, error) {
	return s.store.ListClients(ctx, userID)
}

type UpdateClientInput struct {
	Name         *string
	Description  *string
	RedirectURIs []string
	Scopes       []string
	Active       *bool
}

func (s *ClientService) UpdateClient(ctx context.Context, userID uint, clientID string, in UpdateClientInput) (*models.OAuthClient, error) {
	client, err := s.store.ClientByOwner(ctx, userID, clientID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	fields := map[string]any{}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, &ValidationError{Fields: []string{"name"}, Message: "must not be empty"}
		}
		fields["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.RedirectURIs != nil {
		if len(in.RedirectURIs) == 0 {
			return nil, &ValidationError{Fields: []string{"redirect_uris"}, Message: "must not be empty"}
		}
		if err := validateRedirectURIs(in.RedirectURIs); err != nil {
			return nil, err
		}
		fields["redirect_uris"] = strings.Join(in.RedirectURIs, " ")
	}
	if in.Scopes != nil {
		if len(in.Scopes) == 0 {
			return nil, &ValidationError{Fields: []string{"scopes"}, Message: "must not be empty"}
		}
		fields["scopes"] = strings.Join(in.Scopes, " ")
	}
	if in.Active != nil {
		fields["active"] = *in.Active
	}
	if len(fields) == 0 {
		return client, nil
	}

	if err := s.store.UpdateClientFields(ctx, client.ID, fields); err != nil {
		return nil, err
	}
	return s.store.ClientByOwner(ctx, userID, clientID)
}

func (s *ClientService) DeleteClient(ctx context.Context, userID uint, clientID string) error {
	client, err := s.store.ClientByOwner(ctx, userID, clientID)
	if err != nil {
		if store.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	if err := s.store.DeleteClient(ctx, client.ID); err != nil {
		return err
	}

	s.events.Publish(ctx, events.Event{
		Type:       events.OAuthClientDeleted,
		OccurredAt: time.Now(),
		Data:       map[string]any{"client_id": client.ClientID},
	})
	return nil
}

// VerifyClient authenticates a client id/secret pair. Unknown id, wrong
// secret and inactive client are indistinguishable to the caller.
func (s *ClientService) VerifyClient(ctx context.Context, clientID, clientSecret string) (*models.OAuthClient, error) {
	client, err := s.store.ClientByClientID(ctx, clientID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, ErrInvalidCredential
		}
		return nil, err
	}
	if !client.Active {
		return nil, ErrInvalidCredential
	}
	if !s.crypto.VerifySecret(clientSecret, client.SecretHash) {
		return nil, ErrInvalidCredential
	}
	return client, nil
}
