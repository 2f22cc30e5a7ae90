package cmd

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/bnema/webim-client/internal/domain"
	"github.com/spf13/cobra"
)

var errSendRejected = errors.New("server rejected the message")

// withSession opens and connects a session, runs fn, then closes the session.
func withSession(cmd *cobra.Command, app *app, fn func(*chatSession) error) error {
	session, err := app.openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.connect(cmd.Context(), cmd.ErrOrStderr()); err != nil {
		return err
	}
	return fn(session)
}

func newSendCmd(app *app) *cobra.Command {
	var hint bool

	cmd := &cobra.Command{
		Use:   "send <text>",
		Short: "Send a text message and wait for the server to accept it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			return withSession(cmd, app, func(session *chatSession) error {
				ctx := session.Context()
				stream := session.Stream()

				confirmations := newSendWatch()
				if err := openLiveTracker(cmd, session, confirmations); err != nil {
					return err
				}

				id, err := stream.Send(ctx, text, hint)
				if err != nil {
					return err
				}

				err = session.await(cmd.Context(), cmd.ErrOrStderr(), "Sending...", func(waitCtx context.Context) error {
					return confirmations.wait(waitCtx, id)
				})
				if err != nil {
					return fmt.Errorf("send message %s: %w", id, err)
				}

				_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&hint, "hint", false, "Mark the message as a hint question")

	return cmd
}

func newSendFileCmd(app *app) *cobra.Command {
	var contentType string

	cmd := &cobra.Command{
		Use:   "send-file <path>",
		Short: "Upload a file into the chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			if contentType == "" {
				contentType = detectContentType(path, data)
			}

			return withSession(cmd, app, func(session *chatSession) error {
				done := make(chan error, 1)
				id, err := session.Stream().SendFile(session.Context(), data, filepath.Base(path), contentType, func(_ domain.MessageID, err error) {
					done <- err
				})
				if err != nil {
					return err
				}

				err = session.await(cmd.Context(), cmd.ErrOrStderr(), "Uploading...", func(waitCtx context.Context) error {
					return receiveErr(waitCtx, done)
				})
				if err != nil {
					return fmt.Errorf("send file %s: %w", id, err)
				}

				_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&contentType, "content-type", "", "MIME type (detected from the file when empty)")

	return cmd
}

func newTypingCmd(app *app) *cobra.Command {
	var clear bool

	cmd := &cobra.Command{
		Use:   "typing [draft]",
		Short: "Report the visitor's draft to the operator",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var draft *string
			if !clear {
				text := ""
				if len(args) == 1 {
					text = args[0]
				}
				draft = &text
			}

			return withSession(cmd, app, func(session *chatSession) error {
				return session.Stream().SetVisitorTyping(session.Context(), draft)
			})
		},
	}

	cmd.Flags().BoolVar(&clear, "clear", false, "Stop typing and drop the draft")

	return cmd
}

func newStartCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Ask for an operator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, app, func(session *chatSession) error {
				return runChatAction(cmd, session, "Starting chat...", session.Stream().StartChat)
			})
		},
	}
}

func newCloseCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "close",
		Short: "Close the current chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, app, func(session *chatSession) error {
				return runChatAction(cmd, session, "Closing chat...", session.Stream().CloseChat)
			})
		},
	}
}

func newRateCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rate [operator-id] <1-5>",
		Short: "Rate an operator, the current one when no id is given",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rating, err := strconv.Atoi(args[len(args)-1])
			if err != nil {
				return fmt.Errorf("rating %q is not a number", args[len(args)-1])
			}

			return withSession(cmd, app, func(session *chatSession) error {
				ctx := session.Context()
				stream := session.Stream()

				var id domain.OperatorID
				if len(args) == 2 {
					id = domain.OperatorID(args[0])
				} else {
					operator, err := stream.CurrentOperator(ctx)
					if err != nil {
						return err
					}
					if operator == nil {
						return errors.New("no operator in this chat; pass an operator id")
					}
					id = operator.ID
				}

				done := make(chan error, 1)
				if err := stream.RateOperator(ctx, id, rating, func(err error) { done <- err }); err != nil {
					return err
				}
				return session.await(cmd.Context(), cmd.ErrOrStderr(), "Rating...", func(waitCtx context.Context) error {
					return receiveErr(waitCtx, done)
				})
			})
		},
	}
}

func runChatAction(cmd *cobra.Command, session *chatSession, label string, action func(context.Context, func(error)) error) error {
	done := make(chan error, 1)
	if err := action(session.Context(), func(err error) { done <- err }); err != nil {
		return err
	}
	if err := session.await(cmd.Context(), cmd.ErrOrStderr(), label, func(waitCtx context.Context) error {
		return receiveErr(waitCtx, done)
	}); err != nil {
		return err
	}

	state, err := session.Stream().ChatState(session.Context())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), state)
	return err
}

func receiveErr(ctx context.Context, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func detectContentType(path string, data []byte) string {
	if byExt := mime.TypeByExtension(filepath.Ext(path)); byExt != "" {
		return byExt
	}
	return http.DetectContentType(data)
}

// sendWatch follows the fate of sent messages: SENT once the server echoes
// them back, rejected when the send fails and they are removed.
type sendWatch struct {
	liveMessages

	mu       sync.Mutex
	outcomes map[domain.MessageID]error
	changed  chan struct{}
}

func newSendWatch() *sendWatch {
	return &sendWatch{
		outcomes: map[domain.MessageID]error{},
		changed:  make(chan struct{}, 1),
	}
}

func (w *sendWatch) settle(id domain.MessageID, err error) {
	w.mu.Lock()
	w.outcomes[id] = err
	w.mu.Unlock()
	select {
	case w.changed <- struct{}{}:
	default:
	}
}

func (w *sendWatch) Changed(_, current domain.Message) {
	if !current.IsSending() {
		w.settle(current.ID, nil)
	}
}

func (w *sendWatch) Removed(message domain.Message) {
	if message.IsSending() {
		w.settle(message.ID, errSendRejected)
	}
}

func (w *sendWatch) wait(ctx context.Context, id domain.MessageID) error {
	for {
		w.mu.Lock()
		err, ok := w.outcomes[id]
		w.mu.Unlock()
		if ok {
			return err
		}

		select {
		case <-w.changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
