// SPDX-License-Identifier: GPL-3.0-only

package services

import (
	"context"
	"devtrust-server/commons"
	"devtrust-server/crypto"
	"devtrust-server/events"
	"devtrust-server/models"
	"devtrust-server/store"
	"strings"
	"time"
)

const (
	DefaultRateLimit       = 1000
	DefaultRateLimitWindow = 3600

	// 32 random bytes of secret material per key.
	keySecretBytes = 32
	keyPrefixLen   = 12
)

type APIKeyService struct {
	store  *store.Store
	crypto *crypto.Crypto
	events events.Dispatcher
}

func NewAPIKeyService(st *store.Store, cr *crypto.Crypto, ev events.Dispatcher) *APIKeyService {
	return &APIKeyService{store: st, crypto: cr, events: ev}
}

type CreateKeyInput struct {
	Name            string
	Description     *string
	Scopes          []string
	RateLimit       *int
	RateLimitWindow *int
	ExpiresAt       *time.Time
}

// CreateKey mints a new API key and returns the plaintext exactly once.
// Only the HMAC digest and a display prefix are stored.
func (s *APIKeyService) CreateKey(ctx context.Context, userID uint, in CreateKeyInput) (*models.APIKey, string, error) {
	var missing []string
	if strings.TrimSpace(in.Name) == "" {
		missing = append(missing, "name")
	}
	if len(in.Scopes) == 0 {
		missing = append(missing, "scopes")
	}
	if len(missing) > 0 {
		return nil, "", &ValidationError{Fields: missing, Message: "required fields missing"}
	}

	rateLimit := DefaultRateLimit
	if in.RateLimit != nil {
		if *in.RateLimit <= 0 {
			return nil, "", &ValidationError{Fields: []string{"rate_limit"}, Message: "must be positive"}
		}
		rateLimit = *in.RateLimit
	}
	rateLimitWindow := DefaultRateLimitWindow
	if in.RateLimitWindow != nil {
		if *in.RateLimitWindow <= 0 {
			return nil, "", &ValidationError{Fields: []string{"rate_limit_window"}, Message: "must be positive"}
		}
		rateLimitWindow = *in.RateLimitWindow
	}

	plaintext, err := crypto.GenerateRandomString("sk_", keySecretBytes, "hex")
	if err != nil {
		return nil, "", err
	}
	keyID, err := crypto.GenerateRandomString("ak_", 8, "hex")
	if err != nil {
		return nil, "", err
	}

	key := &models.APIKey{
		KeyID:           keyID,
		SecretHash:      s.crypto.DigestSecret(plaintext),
		Prefix:          plaintext[:keyPrefixLen],
		Name:            strings.TrimSpace(in.Name),
		Description:     in.Description,
		Scopes:          strings.Join(in.Scopes, " "),
		RateLimit:       rateLimit,
		RateLimitWindow: rateLimitWindow,
		Active:          true,
		ExpiresAt:       in.ExpiresAt,
		UserID:          userID,
	}
	if err := s.store.CreateAPIKey(ctx, key); err != nil {
		return nil, "", err
	}

	s.events.Publish(ctx, events.Event{
		Type:       events.APIKeyCreated,
		OccurredAt: time.Now(),
		Data:       map[string]any{"key_id": key.KeyID, "name": key.Name},
	})
	return key, plaintext, nil
}

// VerifyKey resolves a plaintext key to its active row, or fails with
// ErrInvalidCredential without saying why. Updates the last-used timestamp
// as a side effect; a failed touch is logged, never surfaced.
func (s *APIKeyService) VerifyKey(ctx context.Context, plaintext string) (*models.APIKey, error) {
	key, err := s.store.APIKeyBySecretHash(ctx, s.crypto.DigestSecret(plaintext))
	if err != nil {
		if store.IsNotFound(err) {
			return nil, ErrInvalidCredential
		}
		return nil, err
	}
	if !key.Active || key.IsExpired() {
		return nil, ErrInvalidCredential
	}

	now := time.Now()
	if err := s.store.TouchAPIKey(ctx, key.ID, now); err != nil {
		commons.Logger.Error("Failed to update API key LastUsedAt: ", err)
	}
	key.LastUsedAt = &now
	return key, nil
}

func (s *APIKeyService) ListKeys(ctx context.Context, userID uint) ([]models.APIKey, error) {
	return s.store.ListAPIKeys(ctx, userID)
}

type UpdateKeyInput struct {
	Name            *string
	Description     *string
	Scopes          []string
	RateLimit       *int
	RateLimitWindow *int
	ExpiresAt       *time.Time
}

func (s *APIKeyService) UpdateKey(ctx context.Context, userID uint, keyID string, in UpdateKeyInput) (*models.APIKey, error) {
	key, err := s.store.APIKeyByKeyID(ctx, userID, keyID)
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
	if in.Scopes != nil {
		if len(in.Scopes) == 0 {
			return nil, &ValidationError{Fields: []string{"scopes"}, Message: "must not be empty"}
		}
		fields["scopes"] = strings.Join(in.Scopes, " ")
	}
	if in.RateLimit != nil {
		if *in.RateLimit <= 0 {
			return nil, &ValidationError{Fields: []string{"rate_limit"}, Message: "must be positive"}
		}
		fields["rate_limit"] = *in.RateLimit
	}
	if in.RateLimitWindow != nil {
		if *in.RateLimitWindow <= 0 {
			return nil, &ValidationError{Fields: []string{"rate_limit_window"}, Message: "must be positive"}
		}
		fields["rate_limit_window"] = *in.RateLimitWindow
	}
	if in.ExpiresAt != nil {
		fields["expires_at"] = *in.ExpiresAt
	}
	if len(fields) == 0 {
		return key, nil
	}

	if err := s.store.UpdateAPIKeyFields(ctx, key.ID, fields); err != nil {
		return nil, err
	}
	return s.store.APIKeyByKeyID(ctx, userID, keyID)
}

// RevokeKey deactivates a key. Irreversible through this API; revoking an
// already revoked key is a no-op success.
func (s *APIKeyService) RevokeKey(ctx context.Context, userID uint, keyID string) error {
	key, err := s.store.APIKeyByKeyID(ctx, userID, keyID)
	if err != nil {
		if store.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	if err := s.store.UpdateAPIKeyFields(ctx, key.ID, map[string]any{"active": false}); err != nil {
		return err
	}

	s.events.Publish(ctx, events.Event{
		Type:       events.APIKeyRevoked,
		OccurredAt: time.Now(),
		Data:       map[string]any{"key_id": key.KeyID},
	})
	return nil
}

// RotateKey creates a replacement key carrying the old key's name, scopes,
// limits and expiry, and revokes the old key in the same transaction. A
// failure anywhere rolls the whole rotation back, leaving the old key
// active; retrying is always safe.
func (s *APIKeyService) RotateKey(ctx context.Context, userID uint, keyID string) (*models.APIKey, string, error) {
	old, err := s.store.APIKeyByKeyID(ctx, userID, keyID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}
	if !old.Active {
		return nil, "", &ValidationError{Fields: []string{"key_id"}, Message: "key is revoked"}
	}

	plaintext, err := crypto.GenerateRandomString("sk_", keySecretBytes, "hex")
	if err != nil {
		return nil, "", err
	}
	newKeyID, err := crypto.GenerateRandomString("ak_", 8, "hex")
	if err != nil {
		return nil, "", err
	}

	replacement := &models.APIKey{
		KeyID:           newKeyID,
		SecretHash:      s.crypto.DigestSecret(plaintext),
		Prefix:          plaintext[:keyPrefixLen],
		Name:            old.Name,
		Description:     old.Description,
		Scopes:          old.Scopes,
		RateLimit:       old.RateLimit,
		RateLimitWindow: old.RateLimitWindow,
		Active:          true,
		ExpiresAt:       old.ExpiresAt,
		UserID:          userID,
	}

	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.CreateAPIKey(ctx, replacement); err != nil {
			return err
		}
		return tx.UpdateAPIKeyFields(ctx, old.ID, map[string]any{"active": false})
	})
	if err != nil {
		return nil, "", err
	}

	s.events.Publish(ctx, events.Event{
		Type:       events.APIKeyRotated,
		OccurredAt: time.Now(),
		Data:       map[string]any{"old_key_id": old.KeyID, "new_key_id": replacement.KeyID},
	})
	return replacement, plaintext, nil
}

type UsageEntry struct {
	Endpoint   string
	Method     string
	StatusCode int
	LatencyMs  int64
	ClientIP   *string
	UserAgent  *string
}

// LogUsage appends to the usage ledger without blocking the caller. Append
// failures are logged and swallowed; the primary request path never fails
// because of ledger writes.
func (s *APIKeyService) LogUsage(ctx context.Context, apiKeyID uint, entry UsageEntry) {
	logCtx := context.WithoutCancel(ctx)
	go func() {
		row := &models.APIUsageLog{
			APIKeyID:   apiKeyID,
			Endpoint:   entry.Endpoint,
			Method:     entry.Method,
			StatusCode: entry.StatusCode,
			LatencyMs:  entry.LatencyMs,
			ClientIP:   entry.ClientIP,
			UserAgent:  entry.UserAgent,
		}
		if err := s.store.AppendUsage(logCtx, row); err != nil {
			commons.Logger.Error("Failed to append usage log: ", err)
		}
	}()
}

type UsageStats struct {
	TotalRequests int64            `json:"total_requests"`
	SuccessCount  int64            `json:"success_count"`
	FailureCount  int64            `json:"failure_count"`
	AvgLatencyMs  float64          `json:"avg_latency_ms"`
	ByEndpoint    map[string]int64 `json:"by_endpoint"`
	ByDay         map[string]int64 `json:"by_day"`
}

// UsageStats aggregates the ledger for one key. Success is any status in
// [200,300).
func (s *APIKeyService) UsageStats(ctx context.Context, userID uint, keyID string, from, to *time.Time) (*UsageStats, error) {
	key, err := s.store.APIKeyByKeyID(ctx, userID, keyID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	start := key.CreatedAt
	if from != nil {
		start = *from
	}
	end := time.Now()
	if to != nil {
		end = *to
	}

	rows, err := s.store.UsageBetween(ctx, key.ID, start, end)
	if err != nil {
		return nil, err
	}

	stats := &UsageStats{
		ByEndpoint: map[string]int64{},
		ByDay:      map[string]int64{},
	}
	var latencySum int64
	for _, row := range rows {
		stats.TotalRequests++
		if row.StatusCode >= 200 && row.StatusCode < 300 {
			stats.SuccessCount++
		} else {
			stats.FailureCount++
		}
		latencySum += row.LatencyMs
		stats.ByEndpoint[row.Endpoint]++
		stats.ByDay[row.CreatedAt.Format("2006-01-02")]++
	}
	if stats.TotalRequests > 0 {
		stats.AvgLatencyMs = float64(latencySum) / float64(stats.TotalRequests)
	}
	return stats, nil
}

type RateLimitResult struct {
	Allowed   bool      `json:"allowed"`
	Remaining int64     `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// CheckRateLimit counts ledger rows in the trailing window. ResetAt is
// now+window, a forward-looking estimate rather than the moment the oldest
// counted request leaves the window.
func (s *APIKeyService) CheckRateLimit(ctx context.Context, key *models.APIKey) (*RateLimitResult, error) {
	now := time.Now()
	window := time.Duration(key.RateLimitWindow) * time.Second
	count, err := s.store.CountUsageSince(ctx, key.ID, now.Add(-window))
	if err != nil {
		return nil, err
	}

	remaining := int64(key.RateLimit) - count
	if remaining < 0 {
		remaining = 0
	}
	return &RateLimitResult{
		Allowed:   count < int64(key.RateLimit),
		Remaining: remaining,
		ResetAt:   now.Add(window),
	}, nil
}
