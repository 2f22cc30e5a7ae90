package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/webim-client/internal/domain"
	"github.com/bnema/webim-client/internal/ports"
)

const (
	initPath    = "/l/v/m/init"
	deltaPath   = "/l/v/m/delta"
	actionPath  = "/l/v/m/action"
	uploadPath  = "/l/v/m/upload"
	historyPath = "/l/v/m/history"
)

type wireResponse struct {
	Error      string          `json:"error"`
	Revision   *int64          `json:"revision"`
	FullUpdate *wireFullUpdate `json:"fullUpdate"`
	DeltaList  []wireDelta     `json:"deltaList"`
	Result     string          `json:"result"`
	Data       json.RawMessage `json:"data"`
}

type wireFullUpdate struct {
	VisitSessionID string          `json:"visitSessionId"`
	PageID         string          `json:"pageId"`
	AuthToken      string          `json:"authToken"`
	Visitor        json.RawMessage `json:"visitor"`
	Chat           *wireChat       `json:"chat"`
	HintsEnabled   bool            `json:"hintsEnabled"`
}

type wireChat struct {
	State            string                `json:"state"`
	Operator         *wireOperator         `json:"operator"`
	OperatorTyping   bool                  `json:"operatorTyping"`
	Messages         []wireMessage         `json:"messages"`
	OperatorIDToRate map[string]wireRating `json:"operatorIdToRate"`
}

type wireRating struct {
	OperatorID flexibleID `json:"operatorId"`
	Rating     int        `json:"rating"`
}

type wireOperator struct {
	ID       flexibleID `json:"id"`
	FullName string     `json:"fullname"`
	Avatar   string     `json:"avatar"`
}

type wireMessage struct {
	ID           string     `json:"id"`
	ClientSideID string     `json:"clientSideId"`
	Kind         string     `json:"kind"`
	Text         string     `json:"text"`
	Name         string     `json:"name"`
	AuthorID     flexibleID `json:"authorId"`
	Timestamp    float64    `json:"ts"`
	TimestampMu  int64      `json:"ts_m"`
	File         *wireFile  `json:"file"`
}

type wireFile struct {
	URL         string `json:"url"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

type wireDelta struct {
	ObjectType string          `json:"objectType"`
	Event      string          `json:"event"`
	ID         string          `json:"id"`
	Data       json.RawMessage `json:"data"`
}

type wireLocationSettings struct {
	HintsEnabled bool `json:"hintsEnabled"`
}

type wireHistory struct {
	Messages []wireMessage `json:"messages"`
	HasMore  bool          `json:"hasMore"`
}

// flexibleID accepts ids sent either as JSON strings or numbers.
type flexibleID string

func (id *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = flexibleID(n.String())
	return nil
}

// decodeResponse turns a raw server response into its payload, or into a
// *domain.ServerError when the server reported a failure.
func decodeResponse(resp ports.Response) (wireResponse, error) {
	var payload wireResponse
	decodeErr := json.Unmarshal(resp.Body, &payload)

	if payload.Error != "" {
		return wireResponse{}, &domain.ServerError{Code: payload.Error, StatusCode: resp.StatusCode}
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return wireResponse{}, &domain.ServerError{Code: domain.ServerErrorUnknown, StatusCode: resp.StatusCode}
	}
	if decodeErr != nil {
		return wireResponse{}, fmt.Errorf("decode response: %w", decodeErr)
	}
	return payload, nil
}

func toFullUpdate(revision int64, update *wireFullUpdate, logger *slog.Logger) domain.FullUpdate {
	visitor := string(bytes.TrimSpace(update.Visitor))
	if visitor == "null" {
		visitor = ""
	}
	return domain.FullUpdate{
		Revision: revision,
		Session: domain.SessionParameters{
			VisitorJSON:    visitor,
			VisitSessionID: update.VisitSessionID,
			Authorization: domain.AuthorizationData{
				PageID:    update.PageID,
				AuthToken: update.AuthToken,
			},
		},
		Chat:             toChat(update.Chat, logger),
		LocationSettings: domain.LocationSettings{HintsEnabled: update.HintsEnabled},
	}
}

func toChat(chat *wireChat, logger *slog.Logger) *domain.Chat {
	if chat == nil {
		return nil
	}

	result := &domain.Chat{
		Operator:       toOperator(chat.Operator),
		OperatorTyping: chat.OperatorTyping,
	}
	if state, ok := domain.ParseServerChatState(chat.State); ok {
		result.State = state
	} else {
		logger.Warn("dropping unrecognized chat state", "state", chat.State)
	}

	for _, raw := range chat.Messages {
		message, ok := toMessage(raw)
		if !ok {
			logger.Warn("dropping malformed message", "id", raw.ID, "kind", raw.Kind)
			continue
		}
		result.Messages = append(result.Messages, message)
	}

	for key, rate := range chat.OperatorIDToRate {
		rating, ok := domain.OperatorRatingFromServer(rate.Rating)
		if !ok {
			continue
		}
		operatorID := domain.OperatorID(rate.OperatorID)
		if operatorID == "" {
			operatorID = domain.OperatorID(key)
		}
		if result.Ratings == nil {
			result.Ratings = make(map[domain.OperatorID]int)
		}
		result.Ratings[operatorID] = rating
	}

	return result
}

func toOperator(operator *wireOperator) *domain.Operator {
	if operator == nil || operator.ID == "" {
		return nil
	}
	return &domain.Operator{
		ID:        domain.OperatorID(operator.ID),
		Name:      operator.FullName,
		AvatarURL: operator.Avatar,
	}
}

func toMessageKind(kind string) (domain.MessageKind, bool) {
	switch domain.MessageKind(kind) {
	case domain.MessageKindVisitor, domain.MessageKindOperator, domain.MessageKindInfo,
		domain.MessageKindFileFromVisitor, domain.MessageKindFileFromOperator,
		domain.MessageKindOperatorBusy, domain.MessageKindActionRequest:
		return domain.MessageKind(kind), true
	default:
		return "", false
	}
}

func toMessage(raw wireMessage) (domain.Message, bool) {
	if raw.ID == "" && raw.ClientSideID == "" {
		return domain.Message{}, false
	}
	kind, ok := toMessageKind(raw.Kind)
	if !ok {
		return domain.Message{}, false
	}

	id := raw.ClientSideID
	if id == "" {
		id = raw.ID
	}

	var at time.Time
	switch {
	case raw.TimestampMu > 0:
		at = time.UnixMicro(raw.TimestampMu).UTC()
	case raw.Timestamp > 0:
		at = time.UnixMicro(int64(raw.Timestamp * 1e6)).UTC()
	}

	message := domain.Message{
		ID:           domain.MessageID(id),
		ServerSideID: raw.ID,
		Kind:         kind,
		Text:         raw.Text,
		SenderName:   raw.Name,
		OperatorID:   string(raw.AuthorID),
		Time:         at,
		Status:       domain.SendStatusSent,
	}
	if raw.File != nil {
		message.Attachment = &domain.Attachment{
			URL:         raw.File.URL,
			Filename:    raw.File.Filename,
			ContentType: raw.File.ContentType,
			Size:        raw.File.Size,
		}
	}
	return message, true
}

// toDeltas decodes a delta list in server order. Entries of unknown type or
// with an undecodable payload are skipped.
func toDeltas(list []wireDelta, logger *slog.Logger) []domain.Delta {
	deltas := make([]domain.Delta, 0, len(list))
	for _, raw := range list {
		delta, err := toDelta(raw, logger)
		if err != nil {
			logger.Warn("dropping delta", "object_type", raw.ObjectType, "event", raw.Event, "id", raw.ID, "error", err)
			continue
		}
		deltas = append(deltas, delta)
	}
	return deltas
}

func toDelta(raw wireDelta, logger *slog.Logger) (domain.Delta, error) {
	delta := domain.Delta{
		ObjectType: domain.DeltaObjectType(raw.ObjectType),
		Event:      domain.DeltaEvent(raw.Event),
		ID:         raw.ID,
	}
	switch delta.Event {
	case domain.DeltaEventAdd, domain.DeltaEventUpdate:
	case domain.DeltaEventDelete:
		if delta.ObjectType != domain.DeltaObjectChatMessage {
			return domain.Delta{}, fmt.Errorf("unsupported delete of %s", raw.ObjectType)
		}
		return delta, nil
	default:
		return domain.Delta{}, fmt.Errorf("unknown event %q", raw.Event)
	}

	switch delta.ObjectType {
	case domain.DeltaObjectChat:
		var chat *wireChat
		if err := json.Unmarshal(raw.Data, &chat); err != nil {
			return domain.Delta{}, fmt.Errorf("decode chat: %w", err)
		}
		delta.Chat = toChat(chat, logger)
	case domain.DeltaObjectChatMessage:
		var message wireMessage
		if err := json.Unmarshal(raw.Data, &message); err != nil {
			return domain.Delta{}, fmt.Errorf("decode message: %w", err)
		}
		decoded, ok := toMessage(message)
		if !ok {
			return domain.Delta{}, fmt.Errorf("malformed message %q", message.ID)
		}
		delta.Message = &decoded
	case domain.DeltaObjectChatState:
		var state string
		if err := json.Unmarshal(raw.Data, &state); err != nil {
			return domain.Delta{}, fmt.Errorf("decode chat state: %w", err)
		}
		parsed, ok := domain.ParseServerChatState(state)
		if !ok {
			return domain.Delta{}, fmt.Errorf("unrecognized chat state %q", state)
		}
		delta.ChatState = parsed
	case domain.DeltaObjectChatOperator:
		var operator *wireOperator
		if err := json.Unmarshal(raw.Data, &operator); err != nil {
			return domain.Delta{}, fmt.Errorf("decode operator: %w", err)
		}
		delta.Operator = toOperator(operator)
	case domain.DeltaObjectOperatorTyping:
		if err := json.Unmarshal(raw.Data, &delta.OperatorTyping); err != nil {
			return domain.Delta{}, fmt.Errorf("decode operator typing: %w", err)
		}
	case domain.DeltaObjectLocationSettings:
		var settings wireLocationSettings
		if err := json.Unmarshal(raw.Data, &settings); err != nil {
			return domain.Delta{}, fmt.Errorf("decode location settings: %w", err)
		}
		delta.LocationSettings = &domain.LocationSettings{HintsEnabled: settings.HintsEnabled}
	default:
		return domain.Delta{}, errors.New("unknown object type")
	}
	return delta, nil
}

func toHistoryPage(data json.RawMessage) (domain.HistoryPage, error) {
	var history wireHistory
	if len(data) > 0 {
		if err := json.Unmarshal(data, &history); err != nil {
			return domain.HistoryPage{}, fmt.Errorf("decode history: %w", err)
		}
	}

	page := domain.HistoryPage{HasMore: history.HasMore}
	for _, raw := range history.Messages {
		if message, ok := toMessage(raw); ok {
			page.Messages = append(page.Messages, message)
		}
	}
	return page, nil
}

func endpoint(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + path
}

func timestampParam(at time.Time) string {
	return strconv.FormatInt(at.UnixMicro(), 10)
}
