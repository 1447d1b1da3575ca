package events

// Topic constants for domain events emitted by the platform.
const (
	TopicRegistrationCreated         = "registration.created"
	TopicRegistrationPaymentRecorded = "registration.payment_recorded"
)

// DefaultTopics returns the canonical list of topics that support notifications.
func DefaultTopics() []string {
	return []string{
		TopicRegistrationCreated,
		TopicRegistrationPaymentRecorded,
	}
}
