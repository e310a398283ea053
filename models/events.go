package models

// Realtime event names emitted to clients.
const (
	EventNewMessage          = "newMessage"
	EventMessageAdded        = "messageAdded"
	EventConversationUpdated = "conversationUpdated"
	EventMessageUpdated      = "messageUpdated"
	EventMessageDeleted      = "messageDeleted"
	EventMessageReaction     = "messageReaction"
	EventMessagesRead        = "messagesRead"
	EventTyping              = "typing"
	EventStopTyping          = "stopTyping"
	EventUserOnline          = "userOnline"
	EventUserOffline         = "userOffline"
	EventMessageDelivered    = "messageDelivered"
	EventSocketConnected     = "socketConnected"
	EventPong                = "pong"
)

// Realtime event names accepted from clients.
const (
	EventJoinConversation  = "joinConversation"
	EventLeaveConversation = "leaveConversation"
	EventHeartbeat         = "heartbeat"
)
