package services

import "github.com/google/uuid"

// Notifier is the fan-out boundary the service publishes through after a
// mutation commits. Delivery is best-effort and never reported back as a
// failure: an offline recipient is an expected steady state.
type Notifier interface {
	NotifyUser(userID uuid.UUID, event string, payload interface{})
	NotifyRoom(conversationID uuid.UUID, event string, payload interface{})
}

// NoopNotifier discards every event. Used by tooling that runs the
// service without a realtime gateway.
type NoopNotifier struct{}

func (NoopNotifier) NotifyUser(userID uuid.UUID, event string, payload interface{})         {}
func (NoopNotifier) NotifyRoom(conversationID uuid.UUID, event string, payload interface{}) {}
