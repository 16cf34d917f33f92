package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"bdresolve/internal/store"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect processing sessions",
	}
	cmd.AddCommand(newSessionsListCommand(ctx))
	cmd.AddCommand(newSessionsShowCommand(ctx))
	return cmd
}

func newSessionsListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore(true)
			if err != nil {
				return err
			}
			defer st.Close()

			sessions, err := st.ListSessions(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no sessions recorded")
				return nil
			}

			rows := make([][]string, 0, len(sessions))
			for _, session := range sessions {
				rows = append(rows, []string{
					session.ID,
					string(session.Status),
					session.Directory,
					strconv.Itoa(session.TotalFiles),
					strconv.Itoa(session.SuccessfulFiles),
					strconv.Itoa(session.FailedFiles),
					strconv.Itoa(session.ManualFiles),
					session.StartedAt.Local().Format(time.DateTime),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]column{
					{name: "ID"},
					{name: "Status"},
					{name: "Directory"},
					{name: "Total", numeric: true},
					{name: "OK", numeric: true},
					{name: "Failed", numeric: true},
					{name: "Review", numeric: true},
					{name: "Started"},
				},
				rows,
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum sessions shown")
	return cmd
}

func newSessionsShowCommand(ctx *commandContext) *cobra.Command {
	var failedOnly bool

	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show the file outcomes of one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore(true)
			if err != nil {
				return err
			}
			defer st.Close()

			session, err := st.GetSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			files, err := st.SessionFiles(cmd.Context(), session.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "session %s (%s) over %s\n", session.ID, session.Status, session.Directory)

			rows := make([][]string, 0, len(files))
			for _, rec := range files {
				if failedOnly && rec.Status != store.FileFailed {
					continue
				}
				detail := rec.Title
				if detail == "" {
					detail = rec.ErrorMessage
				}
				rows = append(rows, []string{
					rec.FilePath,
					string(rec.Status),
					fmt.Sprintf("%.3f", rec.Score),
					strconv.Itoa(rec.Attempts),
					detail,
				})
			}
			if len(rows) == 0 {
				fmt.Fprintln(out, "no matching files")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]column{
					{name: "File"},
					{name: "Status"},
					{name: "Score", numeric: true},
					{name: "Attempts", numeric: true},
					{name: "Detail"},
				},
				rows,
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Show only failed files")
	return cmd
}
