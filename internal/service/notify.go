package service

// Presence is the read side of the presence registry, used to resolve
// fanout targets.
type Presence interface {
	Connections(userID string) []string
	IsOnline(userID string) bool
	Online() []string
}

// Notifier pushes real-time events to live connections. Implementations are
// best-effort: a failed write to one connection never fails the caller.
type Notifier interface {
	ToConns(connIDs []string, payload any)
	ToRoom(room string, payload any)
	All(payload any)
}

// UserRoom names the broadcast channel every connection bound to a user
// joins. Used for redundant targeted delivery alongside direct connection
// sends.
func UserRoom(userID string) string {
	return "user:" + userID
}
