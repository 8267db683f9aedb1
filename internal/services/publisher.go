package services

// Realtime stream and event names published by the services.
const (
	StreamStats         = "stats"
	StreamSettings      = "settings"
	StreamRegistrations = "registrations"

	EventStatsUpdated        = "stats.updated"
	EventSettingsUpdated     = "settings.updated"
	EventRegistrationCreated = "registration.created"
	EventRegistrationUpdated = "registration.updated"
)

// Publisher fans out change notifications to realtime subscribers.
type Publisher interface {
	Publish(stream, event string, data any)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, string, any) {}

func publisherOrNop(p Publisher) Publisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}
