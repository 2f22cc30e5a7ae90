package history

import (
	"fmt"
	"strings"
	"time"

	"github.com/bnema/webim-client/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// Snapshot is what the CLI knows about a chat at the moment it prints.
// Rating is the visitor's last rating of Operator, 0 when there is none.
type Snapshot struct {
	Location       string
	State          domain.ChatState
	Operator       *domain.Operator
	OperatorTyping bool
	Rating         int
	Messages       []domain.Message
}

// RenderOptions tune the output. A zero Width disables wrapping.
type RenderOptions struct {
	Now   time.Time
	Width int
}

func renderView(snapshot Snapshot, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render(fmt.Sprintf("Chat: %s", locationLabel(snapshot.Location))),
		headerLine(snapshot, s),
	}
	if snapshot.Operator != nil {
		lines = append(lines, operatorLine(snapshot, s))
	}

	if len(snapshot.Messages) == 0 {
		lines = append(lines, s.section.Render(s.empty.Render("No messages yet.")))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	body := make([]string, 0, len(snapshot.Messages))
	for _, m := range snapshot.Messages {
		body = append(body, messageLine(m, opts, s))
	}
	lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, body...)))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func locationLabel(location string) string {
	if strings.TrimSpace(location) == "" {
		return "default"
	}
	return location
}

func headerLine(snapshot Snapshot, s styles) string {
	state := snapshot.State
	if state == "" {
		state = domain.ChatStateUnknown
	}
	badge := lipgloss.NewStyle().Bold(true).Foreground(stateColor(state)).Render(string(state))

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.header.Render("state: "),
		badge,
		s.header.Render(fmt.Sprintf("  messages: %d", len(snapshot.Messages))),
	)
}

func operatorLine(snapshot Snapshot, s styles) string {
	op := snapshot.Operator
	name := strings.TrimSpace(op.Name)
	if name == "" {
		name = string(op.ID)
	}

	line := s.header.Render("operator: ") + s.operator.Render(name)
	if snapshot.Rating > 0 {
		line += s.header.Render(" " + ratingStars(snapshot.Rating))
	}
	if snapshot.OperatorTyping {
		line += " " + s.typing.Render("typing...")
	}
	return line
}

func ratingStars(rating int) string {
	rating = min(max(rating, domain.MinOperatorRating), domain.MaxOperatorRating)
	return strings.Repeat("*", rating) + strings.Repeat(".", domain.MaxOperatorRating-rating)
}

func messageLine(m domain.Message, opts RenderOptions, s styles) string {
	stamp := s.time.Render("[" + formatMessageTime(m.Time, opts.Now) + "]")

	var text string
	switch {
	case m.Kind == domain.MessageKindInfo || m.Kind == domain.MessageKindOperatorBusy:
		text = s.info.Render(m.Text)
	case m.Kind.IsFile():
		text = s.file.Render(attachmentLabel(m))
	default:
		text = s.body.Render(wrap(m.Text, opts.Width))
	}

	parts := []string{stamp, " "}
	if sender := senderLabel(m); sender != "" {
		parts = append(parts, senderStyle(m, s).Render(sender+":"), " ")
	}
	parts = append(parts, text)
	if m.IsSending() {
		parts = append(parts, " ", s.pending.Render("(sending)"))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func senderLabel(m domain.Message) string {
	switch m.Kind {
	case domain.MessageKindInfo, domain.MessageKindOperatorBusy:
		return ""
	case domain.MessageKindVisitor, domain.MessageKindFileFromVisitor:
		return "you"
	}
	if name := strings.TrimSpace(m.SenderName); name != "" {
		return name
	}
	return "operator"
}

func senderStyle(m domain.Message, s styles) lipgloss.Style {
	if m.Kind == domain.MessageKindVisitor || m.Kind == domain.MessageKindFileFromVisitor {
		return s.visitor
	}
	return s.staff
}

func attachmentLabel(m domain.Message) string {
	if m.Attachment == nil {
		return "[file]"
	}
	name := m.Attachment.Filename
	if name == "" {
		name = "file"
	}
	if m.Attachment.Size <= 0 {
		return fmt.Sprintf("[file] %s", name)
	}
	return fmt.Sprintf("[file] %s (%s)", name, formatSize(m.Attachment.Size))
}

func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func formatMessageTime(at, now time.Time) string {
	if at.IsZero() {
		return "--:--"
	}
	if now.IsZero() {
		return at.Format(time.RFC3339)
	}

	yearA, monthA, dayA := now.Date()
	yearB, monthB, dayB := at.Date()
	if yearA == yearB && monthA == monthB && dayA == dayB {
		return at.Format("15:04")
	}

	return at.Format("15:04 on 02 Jan")
}

func wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	return lipgloss.NewStyle().Width(width).Render(text)
}

// RenderMessage draws a single history line, for output that streams messages
// one at a time.
func RenderMessage(m domain.Message, opts RenderOptions) string {
	return messageLine(m, opts, newStyles())
}
