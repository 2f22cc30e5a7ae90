package application

import "github.com/bnema/webim-client/internal/domain"

type ChatStateListener interface {
	ChatStateChanged(previous, current domain.ChatState)
}

type ChatStateListenerFunc func(previous, current domain.ChatState)

func (f ChatStateListenerFunc) ChatStateChanged(previous, current domain.ChatState) {
	f(previous, current)
}

type CurrentOperatorListener interface {
	CurrentOperatorChanged(previous, current *domain.Operator)
}

type CurrentOperatorListenerFunc func(previous, current *domain.Operator)

func (f CurrentOperatorListenerFunc) CurrentOperatorChanged(previous, current *domain.Operator) {
	f(previous, current)
}

type OperatorTypingListener interface {
	OperatorTypingChanged(typing bool)
}

type OperatorTypingListenerFunc func(typing bool)

func (f OperatorTypingListenerFunc) OperatorTypingChanged(typing bool) {
	f(typing)
}

type LocationSettingsListener interface {
	LocationSettingsChanged(previous, current domain.LocationSettings)
}

type SessionParametersListener interface {
	SessionParametersChanged(params domain.SessionParameters)
}

// MessageListener receives live changes for messages inside a tracker's
// window. before is the message the added one precedes, nil when it is the
// newest.
type MessageListener interface {
	Added(before *domain.Message, message domain.Message)
	Removed(message domain.Message)
	RemovedAll()
	Changed(previous, current domain.Message)
}

// ErrorHandler receives errors the session cannot recover from, such as a
// banned visitor or an exhausted delta loop.
type ErrorHandler interface {
	OnError(err error)
}

type ErrorHandlerFunc func(err error)

func (f ErrorHandlerFunc) OnError(err error) {
	f(err)
}
