package history

import (
	"testing"
	"time"

	"github.com/bnema/webim-client/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderChatWithOperatorAndMessages(t *testing.T) {
	now := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)

	output, err := Render(Snapshot{
		Location:       "mobile",
		State:          domain.ChatStateChatting,
		Operator:       &domain.Operator{ID: "op-1", Name: "Anna"},
		OperatorTyping: true,
		Rating:         4,
		Messages: []domain.Message{
			{ID: "m1", Kind: domain.MessageKindInfo, Text: "Operator Anna joined", Time: now.Add(-30 * time.Minute), Status: domain.SendStatusSent},
			{ID: "m2", Kind: domain.MessageKindVisitor, Text: "hello", Time: now.Add(-20 * time.Minute), Status: domain.SendStatusSent},
			{ID: "m3", Kind: domain.MessageKindOperator, SenderName: "Anna", Text: "hi there", Time: now.Add(-10 * time.Minute), Status: domain.SendStatusSent},
			{ID: "m4", Kind: domain.MessageKindVisitor, Text: "one more", Time: now, Status: domain.SendStatusSending},
		},
	}, RenderOptions{Now: now})

	require.NoError(t, err)
	assert.Contains(t, output, "Chat: mobile")
	assert.Contains(t, output, "state: CHATTING")
	assert.Contains(t, output, "messages: 4")
	assert.Contains(t, output, "operator: Anna ****.")
	assert.Contains(t, output, "typing...")
	assert.Contains(t, output, "[10:30] Operator Anna joined")
	assert.Contains(t, output, "[10:40] you: hello")
	assert.Contains(t, output, "[10:50] Anna: hi there")
	assert.Contains(t, output, "[11:00] you: one more (sending)")
}

func TestRenderEmptyHistory(t *testing.T) {
	output, err := Render(Snapshot{}, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "Chat: default")
	assert.Contains(t, output, "state: UNKNOWN")
	assert.Contains(t, output, "No messages yet.")
	assert.NotContains(t, output, "operator:")
}

func TestRenderFileMessages(t *testing.T) {
	now := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)

	output, err := Render(Snapshot{
		State: domain.ChatStateQueue,
		Messages: []domain.Message{
			{
				ID:     "f1",
				Kind:   domain.MessageKindFileFromVisitor,
				Time:   now.Add(-24 * time.Hour),
				Status: domain.SendStatusSent,
				Attachment: &domain.Attachment{
					Filename:    "scan.pdf",
					ContentType: "application/pdf",
					Size:        3 * 1024 * 1024,
				},
			},
			{ID: "f2", Kind: domain.MessageKindFileFromOperator, Time: now, Status: domain.SendStatusSent},
		},
	}, RenderOptions{Now: now})

	require.NoError(t, err)
	assert.Contains(t, output, "[11:00 on 13 Feb] you: [file] scan.pdf (3.0 MB)")
	assert.Contains(t, output, "operator: [file]")
}

func TestFormatSize(t *testing.T) {
	testCases := []struct {
		size int64
		want string
	}{
		{size: 12, want: "12 B"},
		{size: 2048, want: "2.0 KB"},
		{size: 5 * 1024 * 1024 * 1024, want: "5.0 GB"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, formatSize(tc.size))
	}
}

func TestRatingStarsClampsToScale(t *testing.T) {
	assert.Equal(t, "*....", ratingStars(-3))
	assert.Equal(t, "***..", ratingStars(3))
	assert.Equal(t, "*****", ratingStars(9))
}

func TestRenderMessageMatchesHistoryLine(t *testing.T) {
	now := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)
	m := domain.Message{ID: "m1", Kind: domain.MessageKindOperator, Text: "hello", Time: now, Status: domain.SendStatusSent}

	line := RenderMessage(m, RenderOptions{Now: now})
	assert.Contains(t, line, "[11:00]")
	assert.Contains(t, line, "operator: hello")
	assert.NotContains(t, line, "\n")
}
