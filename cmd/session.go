package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bnema/webim-client/internal/domain"
	"github.com/spf13/cobra"
)

func newSessionCmd(app *app) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or forget the stored visitor session",
	}

	sessionCmd.AddCommand(
		newSessionShowCmd(app),
		newSessionListCmd(app),
		newSessionResetCmd(app),
	)

	return sessionCmd
}

func newSessionShowCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the session stored for the configured location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			location := app.cfg.Location
			out := cmd.OutOrStdout()

			stored, err := app.repo.Get(ctx, location)
			if errors.Is(err, domain.ErrSessionNotFound) {
				_, err = fmt.Fprintf(out, "no session stored for %s\n", location)
				return err
			}
			if err != nil {
				return err
			}

			params, _, err := app.sessions.Load(ctx, location)
			if err != nil {
				return err
			}

			writeSession(out, stored)
			_, err = fmt.Fprintf(out, "authorized: %t\nfile: %s\n", !params.Authorization.IsZero(), app.repo.Path())
			return err
		},
	}
}

func newSessionListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored sessions for every location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sessions, err := app.repo.List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				_, err = fmt.Fprintln(out, "no sessions stored")
				return err
			}
			for _, s := range sessions {
				if _, err := fmt.Fprintf(out, "%s\t%s\t%s\n", s.Location, s.VisitSessionID, formatUpdated(s.UpdatedAt)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newSessionResetCmd(app *app) *cobra.Command {
	var location string

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Forget the stored session so the next run starts as a new visitor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if location == "" {
				location = app.cfg.Location
			}
			if err := app.sessions.Reset(cmd.Context(), location); err != nil {
				return fmt.Errorf("reset session %s: %w", location, err)
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "session for %s reset\n", location)
			return err
		},
	}

	cmd.Flags().StringVar(&location, "location", "", "Location to reset (defaults to the configured one)")

	return cmd
}

func writeSession(out io.Writer, s domain.StoredSession) {
	_, _ = fmt.Fprintf(out, "location: %s\n", s.Location)
	_, _ = fmt.Fprintf(out, "visit session: %s\n", s.VisitSessionID)
	_, _ = fmt.Fprintf(out, "page: %s\n", s.PageID)
	if s.DeviceToken != "" {
		_, _ = fmt.Fprintln(out, "device token: set")
	}
	_, _ = fmt.Fprintf(out, "updated: %s\n", formatUpdated(s.UpdatedAt))
}

func formatUpdated(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}
