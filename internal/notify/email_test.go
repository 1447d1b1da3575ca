package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ashworth-collective/backend-club/internal/common"
	"github.com/ashworth-collective/backend-club/internal/events"
)

func registrationCreatedEvent(t *testing.T, email string) events.DomainEvent {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"registrationId": "9f4a1c7e-0000-0000-0000-000000000001",
		"status":         "UNPAID",
		"email":          email,
	})
	require.NoError(t, err)
	return events.DomainEvent{
		Topic:      events.TopicRegistrationCreated,
		Payload:    payload,
		OccurredAt: time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestEmailNotifierSends(t *testing.T) {
	outbox := &common.InMemoryEmail{}
	notifier := EmailNotifier{Mail: outbox, Enabled: true}

	err := notifier.Notify(context.Background(), registrationCreatedEvent(t, "member@example.com"))
	require.NoError(t, err)
	require.Len(t, outbox.Outbox, 1)
	require.Equal(t, "member@example.com", outbox.Outbox[0].To)
	require.Equal(t, "Registration confirmed", outbox.Outbox[0].Subject)
	require.Contains(t, outbox.Outbox[0].HTML, "9f4a1c7e")
}

func TestEmailNotifierSkipsWithoutRecipient(t *testing.T) {
	outbox := &common.InMemoryEmail{}
	notifier := EmailNotifier{Mail: outbox, Enabled: true}

	err := notifier.Notify(context.Background(), registrationCreatedEvent(t, ""))
	require.NoError(t, err)
	require.Empty(t, outbox.Outbox)
}

func TestEmailNotifierDisabled(t *testing.T) {
	outbox := &common.InMemoryEmail{}
	notifier := EmailNotifier{Mail: outbox, Enabled: false}

	err := notifier.Notify(context.Background(), registrationCreatedEvent(t, "member@example.com"))
	require.NoError(t, err)
	require.Empty(t, outbox.Outbox)
}

func TestEmailNotifierTopicToggle(t *testing.T) {
	outbox := &common.InMemoryEmail{}
	notifier := EmailNotifier{
		Mail:         outbox,
		Enabled:      true,
		TopicToggles: map[string]bool{events.TopicRegistrationCreated: false},
	}

	err := notifier.Notify(context.Background(), registrationCreatedEvent(t, "member@example.com"))
	require.NoError(t, err)
	require.Empty(t, outbox.Outbox)
}
