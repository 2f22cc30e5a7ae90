package gormstore

import (
	"time"

	"github.com/bnema/webim-client/internal/domain"
)

// messageRow keeps time as unix microseconds so ordering is exact on both
// sqlite and postgres.
type messageRow struct {
	ID             string `gorm:"primaryKey;size:191;index:idx_messages_order,priority:2"`
	ServerSideID   string `gorm:"size:191;index"`
	Kind           string `gorm:"size:64;not null"`
	Text           string `gorm:"type:text"`
	SenderName     string `gorm:"size:191"`
	OperatorID     string `gorm:"size:191"`
	TimeMicros     int64  `gorm:"not null;index:idx_messages_order,priority:1"`
	Status         string `gorm:"size:32;not null"`
	HasAttachment  bool   `gorm:"not null"`
	AttachmentURL  string `gorm:"type:text"`
	AttachmentName string `gorm:"size:512"`
	AttachmentType string `gorm:"size:191"`
	AttachmentSize int64
	UpdatedAt      time.Time `gorm:"not null"`
}

func (messageRow) TableName() string {
	return "messages"
}

func messageRowFromDomain(m domain.Message, now time.Time) messageRow {
	row := messageRow{
		ID:           string(m.ID),
		ServerSideID: m.ServerSideID,
		Kind:         string(m.Kind),
		Text:         m.Text,
		SenderName:   m.SenderName,
		OperatorID:   m.OperatorID,
		TimeMicros:   m.Time.UnixMicro(),
		Status:       string(m.Status),
		UpdatedAt:    now,
	}
	if m.Attachment != nil {
		row.HasAttachment = true
		row.AttachmentURL = m.Attachment.URL
		row.AttachmentName = m.Attachment.Filename
		row.AttachmentType = m.Attachment.ContentType
		row.AttachmentSize = m.Attachment.Size
	}
	return row
}

func (r messageRow) toDomain() domain.Message {
	m := domain.Message{
		ID:           domain.MessageID(r.ID),
		ServerSideID: r.ServerSideID,
		Kind:         domain.MessageKind(r.Kind),
		Text:         r.Text,
		SenderName:   r.SenderName,
		OperatorID:   r.OperatorID,
		Time:         time.UnixMicro(r.TimeMicros).UTC(),
		Status:       domain.SendStatus(r.Status),
	}
	if r.HasAttachment {
		m.Attachment = &domain.Attachment{
			URL:         r.AttachmentURL,
			Filename:    r.AttachmentName,
			ContentType: r.AttachmentType,
			Size:        r.AttachmentSize,
		}
	}
	return m
}
