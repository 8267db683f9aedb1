package realtime

// Named realtime streams.
const (
	StreamStats         = "stats"
	StreamSettings      = "settings"
	StreamRegistrations = "registrations"
)

// PublicStreams may be joined without an admin token.
func PublicStreams() map[string]struct{} {
	return map[string]struct{}{
		StreamStats:    {},
		StreamSettings: {},
	}
}
