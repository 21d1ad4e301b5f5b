// SPDX-License-Identifier: GPL-3.0-only

// Package events hands credential lifecycle events to the webhook
// dispatcher. Delivery, fan-out and retries happen outside this service;
// this package only publishes and never blocks or fails the caller.
package events

import (
	"context"
	"devtrust-server/commons"
	"time"
)

const (
	APIKeyCreated      = "api_key.created"
	APIKeyRotated      = "api_key.rotated"
	APIKeyRevoked      = "api_key.revoked"
	OAuthClientDeleted = "oauth_client.deleted"
	OAuthTokensRevoked = "oauth_tokens.revoked"
)

type Event struct {
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

type Dispatcher interface {
	Publish(ctx context.Context, event Event)
}

// LogDispatcher is the fallback used when no broker is configured.
type LogDispatcher struct{}

func (LogDispatcher) Publish(_ context.Context, event Event) {
	commons.Logger.Infof("event %s (no dispatcher configured, dropped)", event.Type)
}

// NewFromEnv returns the AMQP dispatcher when AMQP_URL is set and reachable,
// otherwise the logging fallback.
func NewFromEnv() Dispatcher {
	amqpURL := commons.GetEnv("AMQP_URL")
	if amqpURL == "" {
		commons.Logger.Info("AMQP_URL not set, credential events will not be dispatched")
		return LogDispatcher{}
	}
	dispatcher, err := NewAMQPDispatcher(amqpURL)
	if err != nil {
		commons.Logger.Error("Failed to connect AMQP dispatcher, falling back to log: ", err)
		return LogDispatcher{}
	}
	return dispatcher
}
