package config

import (
	"os"
	"strings"
)

// NotificationsEnabled reports whether downstream notifications should be
// published at all. Without a topic the dispatcher is not started and outbox
// rows stay pending (fine for dev and tests).
//
// Set via env:
// - NOTIFICATIONS_TOPIC=<pubsub topic name>
func NotificationsEnabled() bool {
	return strings.TrimSpace(os.Getenv("NOTIFICATIONS_TOPIC")) != ""
}

// UseReceiveRequestLocks enables the best-effort redislock taken per request
// id around Receive/Revert. MySQL row locks remain the authoritative
// serialization either way.
//
// Set via env:
// - RECEIVE_REQUEST_LOCKS=true
func UseReceiveRequestLocks() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("RECEIVE_REQUEST_LOCKS")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
