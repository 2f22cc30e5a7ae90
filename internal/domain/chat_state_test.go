package domain

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextChatStateFollowsTransitionTable(t *testing.T) {
	tests := []struct {
		name  string
		from  ChatState
		event ChatEvent
		want  ChatState
	}{
		{name: "visitor starts chat", from: ChatStateNone, event: ChatEventVisitorStarted, want: ChatStateQueue},
		{name: "operator writes first", from: ChatStateNone, event: ChatEventOperatorMessage, want: ChatStateInvitation},
		{name: "operator accepts", from: ChatStateQueue, event: ChatEventOperatorAccepted, want: ChatStateChatting},
		{name: "visitor closes in queue", from: ChatStateQueue, event: ChatEventVisitorClosed, want: ChatStateNone},
		{name: "operator closes in queue", from: ChatStateQueue, event: ChatEventOperatorClosed, want: ChatStateClosedByOperator},
		{name: "visitor closes chatting", from: ChatStateChatting, event: ChatEventVisitorClosed, want: ChatStateClosedByVisitor},
		{name: "operator closes chatting", from: ChatStateChatting, event: ChatEventOperatorClosed, want: ChatStateClosedByOperator},
		{name: "chatting goes idle", from: ChatStateChatting, event: ChatEventInactivity, want: ChatStateNone},
		{name: "both closed from visitor side", from: ChatStateClosedByVisitor, event: ChatEventOperatorClosed, want: ChatStateNone},
		{name: "visitor reopens after own close", from: ChatStateClosedByVisitor, event: ChatEventVisitorMessage, want: ChatStateQueue},
		{name: "both closed from operator side", from: ChatStateClosedByOperator, event: ChatEventVisitorClosed, want: ChatStateNone},
		{name: "visitor reopens after operator close", from: ChatStateClosedByOperator, event: ChatEventVisitorMessage, want: ChatStateQueue},
		{name: "visitor answers invitation", from: ChatStateInvitation, event: ChatEventVisitorMessage, want: ChatStateChatting},
		{name: "invitation closed", from: ChatStateInvitation, event: ChatEventOperatorClosed, want: ChatStateNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NextChatState(tt.from, tt.event)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextChatStateRejectsMissingEdges(t *testing.T) {
	_, ok := NextChatState(ChatStateQueue, ChatEventVisitorMessage)
	assert.False(t, ok)

	_, ok = NextChatState(ChatStateUnknown, ChatEventVisitorStarted)
	assert.False(t, ok)
}

func TestRandomEventSequencesStayInReachableStates(t *testing.T) {
	reachable := ReachableChatStates()
	events := []ChatEvent{
		ChatEventVisitorStarted, ChatEventVisitorMessage, ChatEventOperatorMessage,
		ChatEventOperatorAccepted, ChatEventVisitorClosed, ChatEventOperatorClosed, ChatEventInactivity,
	}
	rng := rand.New(rand.NewSource(7))

	for run := 0; run < 200; run++ {
		state := ChatStateNone
		for step := 0; step < 50; step++ {
			next, ok := NextChatState(state, events[rng.Intn(len(events))])
			if !ok {
				continue
			}
			state = next
			_, known := reachable[state]
			require.True(t, known, "state %s not reachable from NONE", state)
			require.True(t, state.Valid())
		}
	}
}

func TestReachableChatStatesExcludesUnknown(t *testing.T) {
	reachable := ReachableChatStates()

	assert.Len(t, reachable, 6)
	assert.NotContains(t, reachable, ChatStateUnknown)
}

func TestParseServerChatState(t *testing.T) {
	tests := []struct {
		raw    string
		want   ChatState
		wantOK bool
	}{
		{raw: "queue", want: ChatStateQueue, wantOK: true},
		{raw: "chatting", want: ChatStateChatting, wantOK: true},
		{raw: "CLOSED_BY_OPERATOR", want: ChatStateClosedByOperator, wantOK: true},
		{raw: "closed_by_visitor", want: ChatStateClosedByVisitor, wantOK: true},
		{raw: "invitation", want: ChatStateInvitation, wantOK: true},
		{raw: "closed", want: ChatStateNone, wantOK: true},
		{raw: "", want: ChatStateNone, wantOK: true},
		{raw: "brand_new_state", want: ChatStateUnknown, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseServerChatState(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsChatTransition(t *testing.T) {
	assert.True(t, IsChatTransition(ChatStateNone, ChatStateQueue))
	assert.False(t, IsChatTransition(ChatStateNone, ChatStateChatting))
}
