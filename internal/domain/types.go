package domain

type SessionID string
type MessageID string

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// GreetingMessageID is the reserved id of the synthetic greeting that opens
// every session. It is UI-only: the history serializer never sends it to the
// backend.
const GreetingMessageID MessageID = "1"
