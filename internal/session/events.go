package session

// Event types pushed to a user's dashboard connections.
const (
	EventSessionCreated = "session_created"
	EventBotCreated     = "bot_created"
	EventBotSwitched    = "bot_switched"
	EventBotUpdated     = "bot_updated"
	EventBotDeleted     = "bot_deleted"
	EventMessageSent    = "message_sent"
	EventPagesAdded     = "pages_added"
	EventQuotaExceeded  = "quota_exceeded"
	EventMonthlyReset   = "monthly_reset"
	EventPlanChanged    = "plan_changed"
)

// EventEmitter receives committed session changes (e.g. the realtime hub).
// Implementations must not block.
type EventEmitter interface {
	EmitSessionEvent(userID, eventType string, data map[string]interface{})
}
