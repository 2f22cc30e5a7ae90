package client

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bnema/webim-client/internal/domain"
	"github.com/bnema/webim-client/internal/ports"
)

const (
	actionSendMessage     = "chat.message"
	actionStartChat       = "chat.start"
	actionCloseChat       = "chat.close"
	actionVisitorTyping   = "chat.visitor_typing"
	actionRateOperator    = "chat.operator_rate_select"
	actionSetPushToken    = "set_push_token"
	uploadFileField       = "webim_upload_file"
	chatModeOnline        = "online"
	coalesceVisitorTyping = "visitor_typing"
	historyRequestLabel   = "history"
)

// Actions builds the server actions a visitor can issue and queues them on
// the action loop. Completions run through the session guard.
type Actions struct {
	loop     *ActionLoop
	executor Executor
}

func NewActions(loop *ActionLoop, executor Executor) *Actions {
	return &Actions{loop: loop, executor: executor}
}

func (a *Actions) errorCompletion(completion func(error)) func(wireResponse, error) {
	return func(_ wireResponse, err error) {
		if completion == nil {
			return
		}
		a.executor.Execute(func() { completion(err) })
	}
}

func (a *Actions) SendMessage(text string, clientSideID domain.MessageID, hintQuestion bool, completion func(error)) {
	params := url.Values{}
	params.Set("message", text)
	params.Set("client-side-id", string(clientSideID))
	if hintQuestion {
		params.Set("hint_question", "true")
	}
	a.loop.Enqueue(&Action{
		Name:       actionSendMessage,
		Params:     params,
		Completion: a.errorCompletion(completion),
	})
}

func (a *Actions) SendFile(data []byte, filename, contentType string, clientSideID domain.MessageID, completion func(error)) {
	params := url.Values{}
	params.Set("chat-mode", chatModeOnline)
	params.Set("client-side-id", string(clientSideID))
	a.loop.Enqueue(&Action{
		Method: http.MethodPost,
		Path:   uploadPath,
		Params: params,
		File: &ports.FileUpload{
			FieldName:   uploadFileField,
			Filename:    filename,
			ContentType: contentType,
			Data:        data,
		},
		Completion: a.errorCompletion(completion),
	})
}

func (a *Actions) StartChat(clientSideID domain.MessageID, completion func(error)) {
	params := url.Values{}
	params.Set("client-side-id", string(clientSideID))
	a.loop.Enqueue(&Action{
		Name:       actionStartChat,
		Params:     params,
		Completion: a.errorCompletion(completion),
	})
}

func (a *Actions) CloseChat(completion func(error)) {
	a.loop.Enqueue(&Action{
		Name:       actionCloseChat,
		Params:     url.Values{},
		Completion: a.errorCompletion(completion),
	})
}

// SetVisitorTyping reports the visitor's draft. A nil draft clears it. Only
// the latest of several unsent updates reaches the server.
func (a *Actions) SetVisitorTyping(draft *string) {
	params := url.Values{}
	if draft == nil {
		params.Set("typing", "false")
		params.Set("del-message-draft", "true")
	} else {
		params.Set("typing", "true")
		params.Set("message-draft", *draft)
	}
	a.loop.Enqueue(&Action{
		Name:     actionVisitorTyping,
		Params:   params,
		Coalesce: coalesceVisitorTyping,
	})
}

// RateOperator rejects ratings outside 1..5 without touching the network.
func (a *Actions) RateOperator(id domain.OperatorID, rating int, completion func(error)) error {
	if !domain.ValidOperatorRating(rating) {
		return fmt.Errorf("rate operator %s with %d: %w", id, rating, domain.ErrInvalidRating)
	}
	params := url.Values{}
	params.Set("operator_id", string(id))
	params.Set("rate", strconv.Itoa(domain.OperatorRatingToServer(rating)))
	a.loop.Enqueue(&Action{
		Name:       actionRateOperator,
		Params:     params,
		Completion: a.errorCompletion(completion),
	})
	return nil
}

func (a *Actions) UpdateDeviceToken(token string, completion func(error)) {
	params := url.Values{}
	params.Set("push-token", token)
	a.loop.Enqueue(&Action{
		Name:       actionSetPushToken,
		Params:     params,
		Completion: a.errorCompletion(completion),
	})
}

// RequestHistoryBefore fetches server history older than before. A zero
// before asks for the most recent page.
func (a *Actions) RequestHistoryBefore(before time.Time, completion func(domain.HistoryPage, error)) {
	params := url.Values{}
	if !before.IsZero() {
		params.Set("before-ts", timestampParam(before))
	}
	a.loop.Enqueue(&Action{
		Method: http.MethodGet,
		Path:   historyPath,
		Params: params,
		Completion: func(payload wireResponse, err error) {
			if completion == nil {
				return
			}
			var page domain.HistoryPage
			if err == nil {
				page, err = toHistoryPage(payload.Data)
			}
			if err != nil {
				err = fmt.Errorf("request %s: %w", historyRequestLabel, err)
			}
			a.executor.Execute(func() { completion(page, err) })
		},
	})
}
