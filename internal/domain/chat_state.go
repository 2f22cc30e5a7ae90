package domain

import "strings"

type ChatState string

const (
	ChatStateNone             ChatState = "NONE"
	ChatStateUnknown          ChatState = "UNKNOWN"
	ChatStateQueue            ChatState = "QUEUE"
	ChatStateChatting         ChatState = "CHATTING"
	ChatStateClosedByVisitor  ChatState = "CLOSED_BY_VISITOR"
	ChatStateClosedByOperator ChatState = "CLOSED_BY_OPERATOR"
	ChatStateInvitation       ChatState = "INVITATION"
)

func (s ChatState) Valid() bool {
	switch s {
	case ChatStateNone, ChatStateUnknown, ChatStateQueue, ChatStateChatting,
		ChatStateClosedByVisitor, ChatStateClosedByOperator, ChatStateInvitation:
		return true
	default:
		return false
	}
}

func (s ChatState) String() string {
	return string(s)
}

// ParseServerChatState maps the server's chat state names onto ChatState.
// Unrecognized names report ok=false so callers can drop them instead of
// surfacing a state the transition table does not know.
func ParseServerChatState(raw string) (ChatState, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "none", "closed", "deleted", "unknown_state":
		return ChatStateNone, true
	case "queue":
		return ChatStateQueue, true
	case "chatting", "chatting_with_robot":
		return ChatStateChatting, true
	case "closed_by_visitor":
		return ChatStateClosedByVisitor, true
	case "closed_by_operator":
		return ChatStateClosedByOperator, true
	case "invitation":
		return ChatStateInvitation, true
	default:
		return ChatStateUnknown, false
	}
}

type ChatEvent string

const (
	ChatEventVisitorStarted   ChatEvent = "visitor_started"
	ChatEventVisitorMessage   ChatEvent = "visitor_message"
	ChatEventOperatorMessage  ChatEvent = "operator_message"
	ChatEventOperatorAccepted ChatEvent = "operator_accepted"
	ChatEventVisitorClosed    ChatEvent = "visitor_closed"
	ChatEventOperatorClosed   ChatEvent = "operator_closed"
	ChatEventInactivity       ChatEvent = "inactivity"
)

type chatTransition struct {
	from  ChatState
	event ChatEvent
}

var chatTransitions = map[chatTransition]ChatState{
	{ChatStateNone, ChatEventVisitorStarted}:  ChatStateQueue,
	{ChatStateNone, ChatEventVisitorMessage}:  ChatStateQueue,
	{ChatStateNone, ChatEventOperatorMessage}: ChatStateInvitation,

	{ChatStateQueue, ChatEventOperatorAccepted}: ChatStateChatting,
	{ChatStateQueue, ChatEventVisitorClosed}:    ChatStateNone,
	{ChatStateQueue, ChatEventOperatorClosed}:   ChatStateClosedByOperator,

	{ChatStateChatting, ChatEventVisitorClosed}:  ChatStateClosedByVisitor,
	{ChatStateChatting, ChatEventOperatorClosed}: ChatStateClosedByOperator,
	{ChatStateChatting, ChatEventInactivity}:     ChatStateNone,

	{ChatStateClosedByVisitor, ChatEventOperatorClosed}: ChatStateNone,
	{ChatStateClosedByVisitor, ChatEventInactivity}:     ChatStateNone,
	{ChatStateClosedByVisitor, ChatEventVisitorMessage}: ChatStateQueue,
	{ChatStateClosedByVisitor, ChatEventVisitorStarted}: ChatStateQueue,

	{ChatStateClosedByOperator, ChatEventVisitorClosed}:  ChatStateNone,
	{ChatStateClosedByOperator, ChatEventInactivity}:     ChatStateNone,
	{ChatStateClosedByOperator, ChatEventVisitorMessage}: ChatStateQueue,
	{ChatStateClosedByOperator, ChatEventVisitorStarted}: ChatStateQueue,

	{ChatStateInvitation, ChatEventVisitorMessage}: ChatStateChatting,
	{ChatStateInvitation, ChatEventVisitorClosed}:  ChatStateNone,
	{ChatStateInvitation, ChatEventOperatorClosed}: ChatStateNone,
}

// NextChatState returns the state reached from `from` on event, or ok=false
// when the table has no such edge.
func NextChatState(from ChatState, event ChatEvent) (ChatState, bool) {
	to, ok := chatTransitions[chatTransition{from: from, event: event}]
	return to, ok
}

// IsChatTransition reports whether some event moves a chat from one state to
// the other.
func IsChatTransition(from, to ChatState) bool {
	for edge, target := range chatTransitions {
		if edge.from == from && target == to {
			return true
		}
	}
	return false
}

// ReachableChatStates lists every state reachable from NONE through the
// transition table, NONE included.
func ReachableChatStates() map[ChatState]struct{} {
	reached := map[ChatState]struct{}{ChatStateNone: {}}
	queue := []ChatState{ChatStateNone}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for edge, target := range chatTransitions {
			if edge.from != current {
				continue
			}
			if _, seen := reached[target]; seen {
				continue
			}
			reached[target] = struct{}{}
			queue = append(queue, target)
		}
	}
	return reached
}
