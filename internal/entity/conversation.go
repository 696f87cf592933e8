package entity

// ChatRole is the author of one conversation turn. Values match the chat
// completion wire roles so stored history maps 1:1 onto request messages.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage is one turn of a user's rolling dialogue history. The system
// prompt is never stored as a ChatMessage; it is injected per request.
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}
