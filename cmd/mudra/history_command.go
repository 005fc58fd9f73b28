package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/store"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var sessionID string
	var events bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded sessions and commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			path := cfg.HistoryPath()
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				fmt.Fprintln(cmd.OutOrStdout(), "No history recorded yet")
				return nil
			}

			st, err := store.New(path)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer st.Close()

			if sessionID != "" || events {
				return printEvents(cmd, st, store.EventFilter{SessionID: sessionID, Limit: limit})
			}
			return printSessions(cmd, st, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of rows")
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Show the commands of one session")
	cmd.Flags().BoolVarP(&events, "events", "e", false, "Show commands across all sessions")
	return cmd
}

func printSessions(cmd *cobra.Command, st *store.Store, limit int) error {
	sessions, err := st.Sessions().List(limit)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No sessions recorded")
		return nil
	}

	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			s.ID,
			s.Backend,
			s.Device,
			formatTime(s.StartedAt),
			formatDuration(s),
			strconv.Itoa(s.Commands),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Session", "Backend", "Camera", "Started", "Duration", "Commands"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	))
	return nil
}

func printEvents(cmd *cobra.Command, st *store.Store, filter store.EventFilter) error {
	if filter.SessionID != "" {
		if _, err := st.Sessions().GetByID(filter.SessionID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("session %s not found", filter.SessionID)
			}
			return err
		}
	}

	events, err := st.Events().List(filter)
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(events) == 0 {
		fmt.Fprintln(out, "No commands recorded")
		return nil
	}

	rows := make([][]string, 0, len(events))
	for _, e := range events {
		result := strconv.FormatFloat(e.After, 'f', -1, 64)
		if e.Failed() {
			result = "error: " + e.Error
		}
		rows = append(rows, []string{
			formatTime(e.CreatedAt),
			fmt.Sprintf("%d->%d", e.OldCode, e.NewCode),
			e.Command,
			result,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Time", "Gesture", "Command", "Result"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
	))
	return nil
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatDuration(s *store.Session) string {
	if s.EndedAt == nil {
		return "running"
	}
	return s.EndedAt.Sub(s.StartedAt).Round(time.Second).String()
}
