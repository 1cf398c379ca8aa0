package config

import (
	"fmt"
)

// StoreKeyStruct builds the runtime's local persistence keys. Every key is
// scoped by artifact id so two quizzes never share attempt or session state.
type StoreKeyStruct struct{}

// SnapshotKey holds the serialized in-flight session.
func (r *StoreKeyStruct) SnapshotKey(artifactID string) string {
	return fmt.Sprintf("quiz:%s:snapshot", artifactID)
}

// DeviceKey holds the per-device identity generated on first open.
func (r *StoreKeyStruct) DeviceKey(artifactID string) string {
	return fmt.Sprintf("quiz:%s:device", artifactID)
}

// AttemptPrefix is the prefix of all attempt markers for an artifact.
func (r *StoreKeyStruct) AttemptPrefix(artifactID string) string {
	return fmt.Sprintf("quiz:%s:attempt:", artifactID)
}

// AttemptKey marks one consumed attempt. One key per session keeps the
// increment idempotent across reloads.
func (r *StoreKeyStruct) AttemptKey(artifactID, sessionID string) string {
	return r.AttemptPrefix(artifactID) + sessionID
}

// ResultKey holds a finalized session result.
func (r *StoreKeyStruct) ResultKey(artifactID, sessionID string) string {
	return fmt.Sprintf("quiz:%s:result:%s", artifactID, sessionID)
}

// OutboxPrefix is the prefix of pending network deliveries.
func (r *StoreKeyStruct) OutboxPrefix() string {
	return "outbox:pending:"
}

// OutboxKey returns the pending delivery key for a session.
func (r *StoreKeyStruct) OutboxKey(sessionID string) string {
	return r.OutboxPrefix() + sessionID
}

// DeadLetterPrefix is the prefix of deliveries that exhausted their retries.
func (r *StoreKeyStruct) DeadLetterPrefix() string {
	return "outbox:dead:"
}

// DeadLetterKey returns the dead letter key for a session.
func (r *StoreKeyStruct) DeadLetterKey(sessionID string) string {
	return r.DeadLetterPrefix() + sessionID
}

var StoreKey = &StoreKeyStruct{}
