package realtime

import "strings"

// SessionStream names the realtime stream carrying a session's events.
func SessionStream(sessionKey string) string {
	return "session:" + strings.ToLower(strings.TrimSpace(sessionKey))
}
