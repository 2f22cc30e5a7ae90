package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	historyrender "github.com/bnema/webim-client/internal/adapters/render/history"
	"github.com/bnema/webim-client/internal/application"
	"github.com/bnema/webim-client/internal/domain"
	"github.com/spf13/cobra"
)

const defaultHistoryLimit = 20

// liveMessages ignores every tracker event. Listeners embed it and override
// what they care about.
type liveMessages struct{}

func (liveMessages) Added(*domain.Message, domain.Message) {}
func (liveMessages) Removed(domain.Message) {}
func (liveMessages) RemovedAll() {}
func (liveMessages) Changed(domain.Message, domain.Message) {}

// loadPage installs a tracker reporting to listener and waits for its first
// page. Live events start flowing once the page is loaded.
func loadPage(cmd *cobra.Command, session *chatSession, listener application.MessageListener, limit int, label string) ([]domain.Message, error) {
	sctx := session.Context()
	tracker, err := session.Stream().NewMessageTracker(sctx, listener)
	if err != nil {
		return nil, err
	}

	pages := make(chan []domain.Message, 1)
	if err := tracker.GetNextMessages(sctx, limit, func(page []domain.Message) { pages <- page }); err != nil {
		return nil, err
	}

	var page []domain.Message
	err = session.await(cmd.Context(), cmd.ErrOrStderr(), label, func(waitCtx context.Context) error {
		select {
		case page = <-pages:
			return nil
		case <-waitCtx.Done():
			return waitCtx.Err()
		}
	})
	return page, err
}

func openLiveTracker(cmd *cobra.Command, session *chatSession, listener application.MessageListener) error {
	_, err := loadPage(cmd, session, listener, 1, "Loading chat...")
	return err
}

func (a *app) snapshot(session *chatSession, messages []domain.Message) (historyrender.Snapshot, error) {
	ctx := session.Context()
	stream := session.Stream()

	state, err := stream.ChatState(ctx)
	if err != nil {
		return historyrender.Snapshot{}, err
	}
	operator, err := stream.CurrentOperator(ctx)
	if err != nil {
		return historyrender.Snapshot{}, err
	}
	typing, err := stream.OperatorTyping(ctx)
	if err != nil {
		return historyrender.Snapshot{}, err
	}
	var rating int
	if operator != nil {
		if rating, err = stream.LastRatingOfOperator(ctx, operator.ID); err != nil {
			return historyrender.Snapshot{}, err
		}
	}

	return historyrender.Snapshot{
		Location:       a.cfg.Location,
		State:          state,
		Operator:       operator,
		OperatorTyping: typing,
		Rating:         rating,
		Messages:       messages,
	}, nil
}

func newHistoryCmd(app *app) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the most recent messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}

			return withSession(cmd, app, func(session *chatSession) error {
				page, err := loadPage(cmd, session, liveMessages{}, limit, "Loading history...")
				if err != nil {
					return err
				}

				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(page)
				}

				snapshot, err := app.snapshot(session, page)
				if err != nil {
					return err
				}
				rendered, err := app.renderer(snapshot, historyrender.RenderOptions{Now: app.now()})
				if err != nil {
					return fmt.Errorf("render history: %w", err)
				}

				_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
				return err
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", defaultHistoryLimit, "Number of messages")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print messages as JSON")

	return cmd
}

// watchFeed turns session events into printable lines. Events arriving after
// stop is closed are dropped.
type watchFeed struct {
	liveMessages
	lines chan<- string
	stop  <-chan struct{}
	opts  historyrender.RenderOptions
}

func (f watchFeed) emit(line string) {
	select {
	case f.lines <- line:
	case <-f.stop:
	}
}

func (f watchFeed) Added(_ *domain.Message, message domain.Message) {
	f.emit(historyrender.RenderMessage(message, f.opts))
}

func (f watchFeed) Changed(previous, current domain.Message) {
	if previous.IsSending() && !current.IsSending() {
		return
	}
	f.emit(historyrender.RenderMessage(current, f.opts) + " (edited)")
}

func (f watchFeed) Removed(message domain.Message) {
	f.emit(fmt.Sprintf("message %s removed", message.ID))
}

func (f watchFeed) RemovedAll() {
	f.emit("history cleared")
}

func newWatchCmd(app *app) *cobra.Command {
	var (
		backlog int
		count   int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the chat live until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, app, func(session *chatSession) error {
				ctx := session.Context()
				stream := session.Stream()
				out := cmd.OutOrStdout()
				lines := make(chan string, 64)
				stop := make(chan struct{})
				defer close(stop)
				feed := watchFeed{lines: lines, stop: stop, opts: historyrender.RenderOptions{Now: app.now()}}

				if err := stream.SetChatStateListener(ctx, application.ChatStateListenerFunc(func(previous, current domain.ChatState) {
					feed.emit(fmt.Sprintf("state: %s -> %s", previous, current))
				})); err != nil {
					return err
				}
				if err := stream.SetCurrentOperatorListener(ctx, application.CurrentOperatorListenerFunc(func(_, current *domain.Operator) {
					if current == nil {
						feed.emit("operator left")
						return
					}
					feed.emit(fmt.Sprintf("operator: %s", current.Name))
				})); err != nil {
					return err
				}
				if err := stream.SetOperatorTypingListener(ctx, application.OperatorTypingListenerFunc(func(typing bool) {
					if typing {
						feed.emit("operator is typing...")
					}
				})); err != nil {
					return err
				}

				page, err := loadPage(cmd, session, feed, max(backlog, 1), "Loading chat...")
				if err != nil {
					return err
				}
				if backlog > 0 {
					for _, m := range page {
						_, _ = fmt.Fprintln(out, historyrender.RenderMessage(m, feed.opts))
					}
				}

				for printed := 0; count == 0 || printed < count; printed++ {
					select {
					case line := <-lines:
						if _, err := fmt.Fprintln(out, line); err != nil {
							return err
						}
					case <-session.fatalDone:
						return fmt.Errorf("chat session stopped: %w", session.fatalErr)
					case <-cmd.Context().Done():
						return nil
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&backlog, "backlog", 10, "Recent messages to print before following")
	cmd.Flags().IntVar(&count, "count", 0, "Stop after this many events (0 follows until interrupted)")

	return cmd
}
