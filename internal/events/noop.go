package events

import (
	interfaces "github.com/rebasefi/rebase-token-ledger/internal/interfaces"
)

// NoopPublisher drops every event. Used when no broker is configured and in
// tests that don't assert on events.
type NoopPublisher struct{}

func (NoopPublisher) Publish(topic string, event any) error { return nil }

var _ interfaces.EventPublisher = NoopPublisher{}
