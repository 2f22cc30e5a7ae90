package domain

import (
	"strings"
	"time"
)

type MessageID string

type MessageKind string

const (
	MessageKindVisitor          MessageKind = "visitor"
	MessageKindOperator         MessageKind = "operator"
	MessageKindInfo             MessageKind = "info"
	MessageKindFileFromVisitor  MessageKind = "file_visitor"
	MessageKindFileFromOperator MessageKind = "file_operator"
	MessageKindOperatorBusy     MessageKind = "operator_busy"
	MessageKindActionRequest    MessageKind = "action_request"
)

func (k MessageKind) IsFile() bool {
	return k == MessageKindFileFromVisitor || k == MessageKindFileFromOperator
}

type SendStatus string

const (
	SendStatusSending SendStatus = "sending"
	SendStatusSent    SendStatus = "sent"
)

type Attachment struct {
	URL         string
	Filename    string
	ContentType string
	Size        int64
}

type Message struct {
	// ID is the client-side id when the message has one, otherwise the
	// server-side id. It stays stable across the SENDING -> SENT switch.
	ID           MessageID
	ServerSideID string
	Kind         MessageKind
	Text         string
	SenderName   string
	OperatorID   string
	Time         time.Time
	Status       SendStatus
	Attachment   *Attachment
}

func (m Message) IsSending() bool {
	return m.Status == SendStatusSending
}

// Before orders messages by server time, then by id.
func (m Message) Before(other Message) bool {
	if !m.Time.Equal(other.Time) {
		return m.Time.Before(other.Time)
	}
	return strings.Compare(string(m.ID), string(other.ID)) < 0
}

// Equivalent reports whether two versions of the same message carry the same
// user-visible content.
func (m Message) Equivalent(other Message) bool {
	if m.ID != other.ID || m.ServerSideID != other.ServerSideID || m.Kind != other.Kind ||
		m.Text != other.Text || m.SenderName != other.SenderName || m.OperatorID != other.OperatorID ||
		!m.Time.Equal(other.Time) || m.Status != other.Status {
		return false
	}
	if (m.Attachment == nil) != (other.Attachment == nil) {
		return false
	}
	if m.Attachment != nil && *m.Attachment != *other.Attachment {
		return false
	}
	return true
}

// HistoryPage is a batch returned by a remote history request.
type HistoryPage struct {
	Messages []Message
	HasMore  bool
}
