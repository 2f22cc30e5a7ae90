package domain

type DeltaObjectType string

const (
	DeltaObjectChat             DeltaObjectType = "CHAT"
	DeltaObjectChatMessage      DeltaObjectType = "CHAT_MESSAGE"
	DeltaObjectChatState        DeltaObjectType = "CHAT_STATE"
	DeltaObjectChatOperator     DeltaObjectType = "CHAT_OPERATOR"
	DeltaObjectOperatorTyping   DeltaObjectType = "CHAT_OPERATOR_TYPING"
	DeltaObjectLocationSettings DeltaObjectType = "LOCATION_SETTINGS"
)

type DeltaEvent string

const (
	DeltaEventAdd    DeltaEvent = "add"
	DeltaEventUpdate DeltaEvent = "upd"
	DeltaEventDelete DeltaEvent = "del"
)

// Chat is a snapshot of the current chat as carried by a full update or a
// CHAT delta.
type Chat struct {
	State          ChatState
	Operator       *Operator
	OperatorTyping bool
	Messages       []Message

	// Ratings holds 1..5 ratings keyed by operator.
	Ratings map[OperatorID]int
}

// Delta is one decoded server change. Exactly one payload field is set,
// matching ObjectType; delete events carry only ID.
type Delta struct {
	ObjectType DeltaObjectType
	Event      DeltaEvent
	ID         string

	Chat             *Chat
	Message          *Message
	ChatState        ChatState
	Operator         *Operator
	OperatorTyping   bool
	LocationSettings *LocationSettings
}

// FullUpdate replaces the client's view of the session wholesale.
type FullUpdate struct {
	Revision         int64
	Session          SessionParameters
	Chat             *Chat
	LocationSettings LocationSettings
}
