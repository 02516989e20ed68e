package models

// WebSocket event types
const (
	EventMessageNew     = "message.new"
	EventMessageSend    = "message.send"
	EventMemberAdded    = "member.added"
	EventPresenceUpdate = "presence.update"
	EventError          = "error"
)

type WSMessage struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// Envelope routes a WSMessage to its audience. An empty Recipients list with
// Public set means every connected client.
type Envelope struct {
	Public     bool      `json:"public"`
	Recipients []string  `json:"recipients,omitempty"`
	Message    WSMessage `json:"message"`
}

type WSMessageSendPayload struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type WSMemberAddedPayload struct {
	Title    string `json:"title"`
	Username string `json:"username"`
}

type WSErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}
