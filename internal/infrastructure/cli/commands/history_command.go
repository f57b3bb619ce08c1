package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/doeshing/aishell-go/internal/app"
	"github.com/doeshing/aishell-go/internal/domain"
	"github.com/doeshing/aishell-go/internal/ports"
)

// NewHistoryCommand creates the history command with all subcommands
func NewHistoryCommand(container *app.Container) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded run outcomes",
	}

	historyCmd.AddCommand(
		newHistoryListCommand(container),
		newHistorySearchCommand(container),
		newHistoryClearCommand(container),
		newHistoryExportCommand(container),
		newHistoryStatsCommand(container),
		newHistorySuggestCommand(container),
	)

	return historyCmd
}

func newHistoryListCommand(container *app.Container) *cobra.Command {
	var (
		limit int
		state string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent history entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := ports.HistoryFilter{Limit: limit, State: domain.RunState(strings.ToUpper(state))}
			return listHistoryEntries(cmd.Context(), cmd.OutOrStdout(), container, filter)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", DefaultHistoryLimit, "Max entries to show")
	cmd.Flags().StringVar(&state, "state", "", "Only show entries that ended in this state (e.g. DENIED)")
	return cmd
}

func newHistorySearchCommand(container *app.Container) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <keyword>",
		Short: "Search history for a keyword",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := ports.HistoryFilter{Limit: limit, Search: strings.Join(args, " ")}
			return listHistoryEntries(cmd.Context(), cmd.OutOrStdout(), container, filter)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", DefaultHistorySearchLimit, "Limit search results")
	return cmd
}

func newHistoryClearCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if container.HistoryStore == nil {
				return errors.New(ErrHistoryStoreUnavailable)
			}
			if err := container.HistoryStore.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
			return nil
		},
	}
}

func newHistoryExportCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "export [path]",
		Short: "Export history as JSON lines (stdout when no path is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return exportHistory(cmd.Context(), cmd.OutOrStdout(), container, path)
		},
	}
}

func newHistoryStatsCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show outcome counts, risk distribution and top commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showHistoryStats(cmd.Context(), cmd.OutOrStdout(), container)
		},
	}
}

func newHistorySuggestCommand(container *app.Container) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest frequently used commands and read-only ones safe to repeat",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := container.HistoryStore
			if store == nil {
				return errors.New(ErrHistoryStoreUnavailable)
			}
			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to compute history stats: %w", err)
			}
			displaySuggestions(cmd.OutOrStdout(), stats.TopCommands, limit)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", DefaultSuggestionLimit, "Max suggestions per section")
	return cmd
}

func displaySuggestions(out io.Writer, commands []ports.CommandCount, limit int) {
	if len(commands) == 0 {
		fmt.Fprintln(out, MsgNoSuggestions)
		return
	}

	fmt.Fprintln(out, "Frequently used commands:")
	var safe []ports.CommandCount
	for i, c := range commands {
		if i < limit {
			fmt.Fprintf(out, "  %d. %s (%d)\n", i+1, c.Command, c.Count)
		}
		if c.Safe {
			safe = append(safe, c)
		}
	}

	if len(safe) == 0 {
		fmt.Fprintln(out, "No read-only commands to suggest for automation yet.")
		return
	}
	fmt.Fprintln(out, "Safe to automate (always classified LOW):")
	for i, c := range safe {
		if i == limit {
			break
		}
		fmt.Fprintf(out, "  %d. %s\n", i+1, c.Command)
	}
}

func listHistoryEntries(ctx context.Context, out io.Writer, container *app.Container, filter ports.HistoryFilter) error {
	store := container.HistoryStore
	if store == nil {
		return errors.New(ErrHistoryStoreUnavailable)
	}

	records, err := store.Records(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to retrieve history records: %w", err)
	}
	if len(records) == 0 {
		fmt.Fprintln(out, MsgNoHistoryRecorded)
		return nil
	}

	for _, rec := range records {
		fmt.Fprintf(out, "%s | %-21s | %-8s | %s\n",
			rec.Timestamp.Local().Format(TimestampFormat),
			rec.State,
			rec.Classification.Risk,
			rec.Command)
	}
	return nil
}

func exportHistory(ctx context.Context, out io.Writer, container *app.Container, path string) error {
	store := container.HistoryStore
	if store == nil {
		return errors.New(ErrHistoryStoreUnavailable)
	}
	if path == "" {
		return store.Export(ctx, out)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, domain.SecureFilePermissions)
	if err != nil {
		return err
	}
	if err := store.Export(ctx, f); err != nil {
		f.Close()
		return fmt.Errorf("failed to export history to %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Exported history to %s\n", path)
	return nil
}

func showHistoryStats(ctx context.Context, out io.Writer, container *app.Container) error {
	store := container.HistoryStore
	if store == nil {
		return errors.New(ErrHistoryStoreUnavailable)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to compute history stats: %w", err)
	}
	if stats.Total == 0 {
		fmt.Fprintln(out, MsgNoHistoryRecorded)
		return nil
	}
	displayHistoryStatistics(out, stats)
	return nil
}

func displayHistoryStatistics(out io.Writer, stats ports.HistoryStats) {
	completed := stats.ByState[domain.StateCompleted]
	fmt.Fprintf(out, "Entries: %d (first %s, last %s)\n",
		stats.Total,
		humanize.Time(stats.FirstSeen),
		humanize.Time(stats.LastSeen))
	fmt.Fprintf(out, "Executed: %d\nFailed: %d\n", completed, stats.Failures)
	if completed > 0 {
		fmt.Fprintf(out, "Success rate: %.1f%%\n", float64(completed-stats.Failures)/float64(completed)*100)
	}

	fmt.Fprintln(out, "Outcomes:")
	states := make([]string, 0, len(stats.ByState))
	for state := range stats.ByState {
		states = append(states, string(state))
	}
	sort.Strings(states)
	for _, state := range states {
		fmt.Fprintf(out, "  %s: %d\n", state, stats.ByState[domain.RunState(state)])
	}

	fmt.Fprintln(out, "Risk distribution:")
	for _, level := range []domain.RiskLevel{domain.RiskLow, domain.RiskMedium, domain.RiskHigh, domain.RiskCritical} {
		if n := stats.ByRisk[level]; n > 0 {
			fmt.Fprintf(out, "  %s: %d\n", level, n)
		}
	}

	if len(stats.TopVerbs) > 0 {
		fmt.Fprintln(out, "Top commands:")
		for _, v := range stats.TopVerbs {
			fmt.Fprintf(out, "  %s (%d)\n", v.Verb, v.Count)
		}
	}
}
