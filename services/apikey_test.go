// SPDX-License-Identifier: GPL-3.0-only

package services

import (
	"context"
	"devtrust-server/events"
	"devtrust-server/models"
	"errors"
	"strings"
	"testing"
	"time"
)

func newKeyService(t *testing.T) (*APIKeyService, *models.User) {
	t.Helper()
	st, cr := newTestStore(t)
	user := newTestUser(t, st)
	return NewAPIKeyService(st, cr, events.LogDispatcher{}), user
}

func TestCreateAndVerifyAPIKey(t *testing.T) {
	svc, user := newKeyService(t)
	ctx := context.Background()

	key, plaintext, err := svc.CreateKey(ctx, user.ID, CreateKeyInput{
		Name:   "integration key",
		Scopes: []string{"read", "write"},
	})
	if err != nil {
		t.Fatalf("CreateKey failed: %v", err)
	}

	if !strings.HasPrefix(plaintext, "sk_") {
		t.Errorf("Expected sk_ prefix on plaintext, got %q", plaintext)
	}
	if key.SecretHash == plaintext || strings.Contains(key.SecretHash, plaintext) {
		t.Error("Plaintext must not be stored")
	}
	if key.Prefix != plaintext[:12] {
		t.Errorf("Expected display prefix %q, got %q", plaintext[:12], key.Prefix)
	}
	if key.RateLimit != DefaultRateLimit || key.RateLimitWindow != DefaultRateLimitWindow {
		t.Errorf("Expected default limits %d/%d, got %d/%d",
			DefaultRateLimit, DefaultRateLimitWindow, key.RateLimit, key.RateLimitWindow)
	}

	verified, err := svc.VerifyKey(ctx, plaintext)
	if err != nil {
		t.Fatalf("VerifyKey failed for valid key: %v", err)
	}
	if verified.KeyID != key.KeyID {
		t.Errorf("Expected key %s, got %s", key.KeyID, verified.KeyID)
	}
	if verified.LastUsedAt == nil {
		t.Error("VerifyKey should record last-used timestamp")
	}

	if _, err := svc.VerifyKey(ctx, "sk_0000000000000000000000000000000000000000000000000000000000000000"); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("Expected ErrInvalidCredential for unknown key, got %v", err)
	}
}

func TestCreateKeyValidation(t *testing.T) {
	svc, user := newKeyService(t)
	ctx := context.Background()

	_, _, err := svc.CreateKey(ctx, user.ID, CreateKeyInput{})
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if len(validationErr.Fields) != 2 {
		t.Errorf("Expected name and scopes flagged, got %v", validationErr.Fields)
	}

	negative := -1
	_, _, err = svc.CreateKey(ctx, user.ID, CreateKeyInput{
		Name:      "k",
		Scopes:    []string{"read"},
		RateLimit: &negative,
	})
	if !errors.As(err, &validationErr) {
		t.Errorf("Expected ValidationError for negative rate limit, got %v", err)
	}
}

func TestVerifyExpiredKey(t *testing.T) {
	svc, user := newKeyService(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	_, plaintext, err := svc.CreateKey(ctx, user.ID, CreateKeyInput{
		Name:      "expired key",
		Scopes:    []string{"read"},
		ExpiresAt: &past,
	})
	if err != nil {
		t.Fatalf("CreateKey failed: %v", err)
	}

	if _, err := svc.VerifyKey(ctx, plaintext); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("Expected ErrInvalidCredential for expired key, got %v", err)
	}
}

func TestRevokeKey(t *testing.T) {
	svc, user := newKeyService(t)
	ctx := context.Background()

	key, plaintext, err := svc.CreateKey(ctx, user.ID, CreateKeyInput{
		Name:   "short-lived",
		Scopes: []string{"read"},
	})
	if err != nil {
		t.Fatalf("CreateKey failed: %v", err)
	}

	if err := svc.RevokeKey(ctx, user.ID, key.KeyID); err != nil {
		t.Fatalf("RevokeKey failed: %v", err)
	}
	if _, err := svc.VerifyKey(ctx, plaintext); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("Expected ErrInvalidCredential after revocation, got %v", err)
	}

	// Idempotent: second revocation still succeeds.
	if err := svc.RevokeKey(ctx, user.ID, key.KeyID); err != nil {
		t.Errorf("Second RevokeKey should succeed, got %v", err)
	}

	if err := svc.RevokeKey(ctx, user.ID, "ak_does_not_exist"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown key, got %v", err)
	}
}

func TestRotateKey(t *testing.T) {
	svc, user := newKeyService(t)
	ctx := context.Background()

	limit := 50
	desc := "nightly sync"
	old, oldPlaintext, err := svc.CreateKey(ctx, user.ID, CreateKeyInput{
		Name:        "rotating key",
		Description: &desc,
		Scopes:      []string{"read", "write"},
		RateLimit:   &limit,
	})
	if err != nil {
		t.Fatalf("CreateKey failed: %v", err)
	}

	replacement, newPlaintext, err := svc.RotateKey(ctx, user.ID, old.KeyID)
	if err != nil {
		t.Fatalf("RotateKey failed: %v", err)
	}

	if replacement.KeyID == old.KeyID {
		t.Error("Rotation should mint a new key id")
	}
	if replacement.Name != old.Name || replacement.Scopes != old.Scopes ||
		replacement.RateLimit != old.RateLimit || replacement.RateLimitWindow != old.RateLimitWindow {
		t.Error("Rotation should carry over name, scopes and limits")
	}

	if _, err := svc.VerifyKey(ctx, newPlaintext); err != nil {
		t.Errorf("New key should verify after rotation: %v", err)
	}
	if _, err := svc.VerifyKey(ctx, oldPlaintext); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("Old key should stop working after rotation, got %v", err)
	}

	var validationErr *ValidationError
	if _, _, err := svc.RotateKey(ctx, user.ID, old.KeyID); !errors.As(err, &validationErr) {
		t.Errorf("Rotating a revoked key should fail with ValidationError, got %v", err)
	}
}

func TestUpdateKey(t *testing.T) {
	svc, user := newKeyService(t)
	ctx := context.Background()

	key, _, err := svc.CreateKey(ctx, user.ID, CreateKeyInput{
		Name:   "before",
		Scopes: []string{"read"},
	})
	if err != nil {
		t.Fatalf("CreateKey failed: %v", err)
	}

	name := "after"
	limit := 25
	updated, err := svc.UpdateKey(ctx, user.ID, key.KeyID, UpdateKeyInput{
		Name:      &name,
		Scopes:    []string{"read", "admin"},
		RateLimit: &limit,
	})
	if err != nil {
		t.Fatalf("UpdateKey failed: %v", err)
	}
	if updated.Name != "after" || updated.RateLimit != 25 {
		t.Errorf("Update not applied: name=%q rate_limit=%d", updated.Name, updated.RateLimit)
	}
	if updated.Scopes != "read admin" {
		t.Errorf("Expected scopes %q, got %q", "read admin", updated.Scopes)
	}

	empty := ""
	var validationErr *ValidationError
	if _, err := svc.UpdateKey(ctx, user.ID, key.KeyID, UpdateKeyInput{Name: &empty}); !errors.As(err, &validationErr) {
		t.Errorf("Expected ValidationError for empty name, got %v", err)
	}

	if _, err := svc.UpdateKey(ctx, user.ID, "ak_missing", UpdateKeyInput{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown key, got %v", err)
	}
}

func appendUsageRows(t *testing.T, svc *APIKeyService, apiKeyID uint, entries []models.APIUsageLog) {
	t.Helper()
	for i := range entries {
		entries[i].APIKeyID = apiKeyID
		if err := svc.store.AppendUsage(context.Background(), &entries[i]); err != nil {
			t.Fatalf("AppendUsage failed: %v", err)
		}
	}
}

func TestCheckRateLimit(t *testing.T) {
	svc, user := newKeyService(t)
	ctx := context.Background()

	limit := 3
	key, _, err := svc.CreateKey(ctx, user.ID, CreateKeyInput{
		Name:      "limited",
		Scopes:    []string{"read"},
		RateLimit: &limit,
	})
	if err != nil {
		t.Fatalf("CreateKey failed: %v", err)
	}

	result, err := svc.CheckRateLimit(ctx, key)
	if err != nil {
		t.Fatalf("CheckRateLimit failed: %v", err)
	}
	if !result.Allowed || result.Remaining != 3 {
		t.Errorf("Fresh key should have full budget, got allowed=%v remaining=%d", result.Allowed, result.Remaining)
	}

	appendUsageRows(t, svc, key.ID, []models.APIUsageLog{
		{Endpoint: "/v1/api/whoami", Method: "GET", StatusCode: 200},
		{Endpoint: "/v1/api/whoami", Method: "GET", StatusCode: 200},
	})
	result, err = svc.CheckRateLimit(ctx, key)
	if err != nil {
		t.Fatalf("CheckRateLimit failed: %v", err)
	}
	if !result.Allowed || result.Remaining != 1 {
		t.Errorf("Expected allowed with remaining 1, got allowed=%v remaining=%d", result.Allowed, result.Remaining)
	}

	appendUsageRows(t, svc, key.ID, []models.APIUsageLog{
		{Endpoint: "/v1/api/whoami", Method: "GET", StatusCode: 200},
	})
	result, err = svc.CheckRateLimit(ctx, key)
	if err != nil {
		t.Fatalf("CheckRateLimit failed: %v", err)
	}
	if result.Allowed || result.Remaining != 0 {
		t.Errorf("Expected limit reached, got allowed=%v remaining=%d", result.Allowed, result.Remaining)
	}
	if !result.ResetAt.After(time.Now()) {
		t.Error("ResetAt should be in the future")
	}
}

func TestCheckRateLimitWindowRecovery(t *testing.T) {
	svc, user := newKeyService(t)
	ctx := context.Background()

	limit := 3
	window := 60
	key, _, err := svc.CreateKey(ctx, user.ID, CreateKeyInput{
		Name:            "recovering",
		Scopes:          []string{"read"},
		RateLimit:       &limit,
		RateLimitWindow: &window,
	})
	if err != nil {
		t.Fatalf("CreateKey failed: %v", err)
	}

	// Fill the budget with requests dated a window-length and more ago.
	stale := time.Now().Add(-time.Duration(window+1) * time.Second)
	appendUsageRows(t, svc, key.ID, []models.APIUsageLog{
		{Endpoint: "/v1/api/whoami", Method: "GET", StatusCode: 200, CreatedAt: stale},
		{Endpoint: "/v1/api/whoami", Method: "GET", StatusCode: 200, CreatedAt: stale.Add(-time.Minute)},
		{Endpoint: "/v1/api/whoami", Method: "GET", StatusCode: 200, CreatedAt: stale.Add(-time.Hour)},
	})

	result, err := svc.CheckRateLimit(ctx, key)
	if err != nil {
		t.Fatalf("CheckRateLimit failed: %v", err)
	}
	if !result.Allowed || result.Remaining != 3 {
		t.Errorf("Requests outside the window should not count, got allowed=%v remaining=%d",
			result.Allowed, result.Remaining)
	}

	// Only entries inside the trailing window count against the budget.
	appendUsageRows(t, svc, key.ID, []models.APIUsageLog{
		{Endpoint: "/v1/api/whoami", Method: "GET", StatusCode: 200},
	})
	result, err = svc.CheckRateLimit(ctx, key)
	if err != nil {
		t.Fatalf("CheckRateLimit failed: %v", err)
	}
	if !result.Allowed || result.Remaining != 2 {
		t.Errorf("Expected one counted request, got allowed=%v remaining=%d",
			result.Allowed, result.Remaining)
	}
}

func TestUsageStats(t *testing.T) {
	svc, user := newKeyService(t)
	ctx := context.Background()

	key, _, err := svc.CreateKey(ctx, user.ID, CreateKeyInput{
		Name:   "measured",
		Scopes: []string{"read"},
	})
	if err != nil {
		t.Fatalf("CreateKey failed: %v", err)
	}

	appendUsageRows(t, svc, key.ID, []models.APIUsageLog{
		{Endpoint: "/v1/api/whoami", Method: "GET", StatusCode: 200, LatencyMs: 10},
		{Endpoint: "/v1/api/whoami", Method: "GET", StatusCode: 201, LatencyMs: 20},
		{Endpoint: "/v1/api/other", Method: "POST", StatusCode: 404, LatencyMs: 30},
		{Endpoint: "/v1/api/other", Method: "POST", StatusCode: 500, LatencyMs: 40},
	})

	stats, err := svc.UsageStats(ctx, user.ID, key.KeyID, nil, nil)
	if err != nil {
		t.Fatalf("UsageStats failed: %v", err)
	}
	if stats.TotalRequests != 4 {
		t.Errorf("Expected 4 requests, got %d", stats.TotalRequests)
	}
	if stats.SuccessCount != 2 || stats.FailureCount != 2 {
		t.Errorf("Expected 2 successes and 2 failures, got %d/%d", stats.SuccessCount, stats.FailureCount)
	}
	if stats.AvgLatencyMs != 25 {
		t.Errorf("Expected average latency 25, got %f", stats.AvgLatencyMs)
	}
	if stats.ByEndpoint["/v1/api/whoami"] != 2 || stats.ByEndpoint["/v1/api/other"] != 2 {
		t.Errorf("Unexpected endpoint breakdown: %v", stats.ByEndpoint)
	}
	if len(stats.ByDay) != 1 {
		t.Errorf("Expected one day bucket, got %v", stats.ByDay)
	}

	// A window in the past matches nothing.
	from := time.Now().Add(-2 * time.Hour)
	to := time.Now().Add(-time.Hour)
	stats, err = svc.UsageStats(ctx, user.ID, key.KeyID, &from, &to)
	if err != nil {
		t.Fatalf("UsageStats with range failed: %v", err)
	}
	if stats.TotalRequests != 0 {
		t.Errorf("Expected empty window, got %d requests", stats.TotalRequests)
	}

	if _, err := svc.UsageStats(ctx, user.ID, "ak_missing", nil, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown key, got %v", err)
	}
}
