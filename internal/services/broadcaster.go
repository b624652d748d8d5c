package services

// SessionBroadcaster fans out collaboration events to realtime subscribers of a
// session stream. Implemented by the realtime hub; nil broadcasters are allowed
// and turn publishing into a no-op.
type SessionBroadcaster interface {
	BroadcastSession(sessionKey, event string, data any)
}

// Realtime event names published on session streams.
const (
	EventCodeUpdated     = "code.updated"
	EventPresenceChanged = "presence.changed"
	EventChatMessage     = "chat.message"
	EventSessionEnded    = "session.ended"
)

func broadcast(b SessionBroadcaster, sessionKey, event string, data any) {
	if b == nil || sessionKey == "" {
		return
	}
	b.BroadcastSession(sessionKey, event, data)
}
