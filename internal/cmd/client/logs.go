package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rzbill/logbook/internal/cmd/client/transports"
)

// NewLogsCommand constructs the `logs` command group and subcommands.
func NewLogsCommand(baseURL BaseURLFunc) *cobra.Command {
	logsCmd := &cobra.Command{Use: "logs", Short: "Log store operations"}
	logsCmd.AddCommand(
		newLogsQueryCommand(baseURL),
		newLogsWriteCommand(baseURL),
		newLogsTailCommand(baseURL),
		newLogsDeleteCommand(baseURL),
		newLogsPathCommand(baseURL),
		newLogsCleanupCommand(baseURL),
		newLogsLevelCommand(baseURL),
	)
	return logsCmd
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("level", "", "Minimum level (trace|debug|info|warn|error or number)")
	cmd.Flags().Bool("explicit-level", false, "Match --level exactly instead of as a minimum")
	cmd.Flags().StringArray("tag", nil, "Tag to include (repeat)")
	cmd.Flags().String("filter", "", "CEL filter over id, timestamp, level, message and tag")
	cmd.Flags().Bool("text", false, "Print events as text instead of JSON lines")
}

func readFilterFlags(cmd *cobra.Command) transports.QueryRequest {
	level, _ := cmd.Flags().GetString("level")
	explicit, _ := cmd.Flags().GetBool("explicit-level")
	tags, _ := cmd.Flags().GetStringArray("tag")
	filter, _ := cmd.Flags().GetString("filter")
	return transports.QueryRequest{Level: level, ExplicitLevel: explicit, Tags: tags, Filter: filter}
}

// newLogsQueryCommand constructs the `logs query` subcommand.
func newLogsQueryCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query stored events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := readFilterFlags(cmd)
			req.Start, _ = cmd.Flags().GetString("start")
			req.End, _ = cmd.Flags().GetString("end")
			req.Limit, _ = cmd.Flags().GetInt("limit")
			req.Order, _ = cmd.Flags().GetString("order")
			req.AfterID, _ = cmd.Flags().GetUint64("after-id")
			all, _ := cmd.Flags().GetBool("all")
			text, _ := cmd.Flags().GetBool("text")

			if all && req.Order != "" && req.Order != "asc" {
				return errors.New("--all pages in ascending order; drop --order")
			}
			if all {
				req.Order = "asc"
			}

			tr := getTransport(baseURL)
			out := newEventPrinter(cmd.OutOrStdout(), text)
			for {
				page, err := tr.Query(cmd.Context(), req)
				if err != nil {
					return err
				}
				for _, ev := range page.Events {
					if err := out.print(ev); err != nil {
						return err
					}
				}
				if !all || len(page.Events) == 0 {
					return nil
				}
				req.AfterID = page.NextAfterID
			}
		},
	}
	addFilterFlags(cmd)
	cmd.Flags().String("start", "", "Earliest timestamp, ms or RFC3339")
	cmd.Flags().String("end", "", "Latest timestamp, ms or RFC3339")
	cmd.Flags().Int("limit", 0, "Max events per page (server default when 0)")
	cmd.Flags().String("order", "", "asc|desc (default desc)")
	cmd.Flags().Uint64("after-id", 0, "Only events with a larger id")
	cmd.Flags().Bool("all", false, "Page through every matching event")
	return cmd
}

// newLogsWriteCommand constructs the `logs write` subcommand. The message is
// taken from the arguments, or one event per line of stdin with --stdin.
func newLogsWriteCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "write [message...]",
		Short: "Write events",
		RunE: func(cmd *cobra.Command, args []string) error {
			level, _ := cmd.Flags().GetString("level")
			tag, _ := cmd.Flags().GetString("tag")
			stdin, _ := cmd.Flags().GetBool("stdin")

			var msgs []string
			switch {
			case stdin:
				var err error
				if msgs, err = readLines(cmd.InOrStdin()); err != nil {
					return err
				}
			case len(args) > 0:
				msgs = []string{strings.Join(args, " ")}
			default:
				return errors.New("message required (or use --stdin)")
			}
			if len(msgs) == 0 {
				return nil
			}
			entries := make([]transports.Entry, len(msgs))
			for i, m := range msgs {
				entries[i] = transports.Entry{Level: level, Message: m, Tag: tag}
			}
			n, err := getTransport(baseURL).Write(cmd.Context(), entries)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "accepted:", n)
			return nil
		},
	}
	cmd.Flags().String("level", "info", "Event level")
	cmd.Flags().String("tag", "", "Event tag")
	cmd.Flags().Bool("stdin", false, "Read one message per line from stdin")
	return cmd
}

func readLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		if line := sc.Text(); line != "" {
			out = append(out, line)
		}
	}
	return out, sc.Err()
}

// newLogsTailCommand constructs the `logs tail` subcommand.
func newLogsTailCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print new events as they are written",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := readFilterFlags(cmd)
			req.AfterID, _ = cmd.Flags().GetUint64("after-id")
			limit, _ := cmd.Flags().GetInt("limit")
			waitMs, _ := cmd.Flags().GetInt("wait-ms")
			follow, _ := cmd.Flags().GetBool("follow")
			text, _ := cmd.Flags().GetBool("text")
			req.Order = "asc"

			tr := getTransport(baseURL)
			out := newEventPrinter(cmd.OutOrStdout(), text)
			ctx := cmd.Context()
			printed := 0
			for {
				page, err := tr.Tail(ctx, req, waitMs)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					return err
				}
				for _, ev := range page.Events {
					if err := out.print(ev); err != nil {
						return err
					}
					printed++
					if limit > 0 && printed >= limit {
						return nil
					}
				}
				req.AfterID = page.NextAfterID
				if !follow && len(page.Events) == 0 {
					return nil
				}
			}
		},
	}
	addFilterFlags(cmd)
	cmd.Flags().Uint64("after-id", 0, "Start after this event id")
	cmd.Flags().Int("limit", 0, "Stop after N events (0 = no limit)")
	cmd.Flags().Int("wait-ms", 10000, "Long-poll wait per request in ms")
	cmd.Flags().BoolP("follow", "f", false, "Keep waiting for new events")
	return cmd
}

// newLogsDeleteCommand constructs the `logs delete` subcommand.
func newLogsDeleteCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete events by time range or id (requires --confirm without bounds)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			startS, _ := cmd.Flags().GetString("start")
			endS, _ := cmd.Flags().GetString("end")
			maxID, _ := cmd.Flags().GetUint64("max-id")
			confirm, _ := cmd.Flags().GetBool("confirm")

			start, err := parseTimeArg(startS)
			if err != nil {
				return err
			}
			end, err := parseTimeArg(endS)
			if err != nil {
				return err
			}
			req := transports.DeleteRequest{Start: start, End: end, MaxID: maxID}
			if req == (transports.DeleteRequest{}) && !confirm {
				return errors.New("refusing to delete every event without --confirm")
			}
			if err := getTransport(baseURL).Delete(cmd.Context(), req); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "status:", "OK")
			return nil
		},
	}
	cmd.Flags().String("start", "", "Earliest timestamp, ms or RFC3339")
	cmd.Flags().String("end", "", "Latest timestamp, ms or RFC3339")
	cmd.Flags().Uint64("max-id", 0, "Delete events with id up to and including this")
	cmd.Flags().Bool("confirm", false, "Confirm deleting all events")
	return cmd
}

func newLogsPathCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the store location",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := getTransport(baseURL).Path(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}
}

func newLogsCleanupCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Run store maintenance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			compress, _ := cmd.Flags().GetBool("compress")
			vacuum, _ := cmd.Flags().GetBool("vacuum")
			err := getTransport(baseURL).Cleanup(cmd.Context(), transports.CleanupRequest{Compress: compress, Vacuum: vacuum})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "status:", "OK")
			return nil
		},
	}
	cmd.Flags().Bool("compress", false, "Compact stored data")
	cmd.Flags().Bool("vacuum", false, "Reclaim free space")
	return cmd
}

// newLogsLevelCommand prints the ingestion threshold, or sets it when an
// argument is given.
func newLogsLevelCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "level [level]",
		Short: "Show or change the ingestion level",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tr := getTransport(baseURL)
			var (
				level string
				err   error
			)
			if len(args) == 1 {
				level, err = tr.SetLevel(cmd.Context(), args[0])
			} else {
				level, err = tr.Level(cmd.Context())
			}
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "level:", level)
			return nil
		},
	}
}
