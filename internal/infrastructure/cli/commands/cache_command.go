package commands

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/doeshing/aishell-go/internal/app"
)

// NewCacheCommand creates the cache command with all subcommands
func NewCacheCommand(container *app.Container) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the generator reply cache",
	}

	cacheCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List cached replies",
			RunE: func(cmd *cobra.Command, args []string) error {
				return listCacheEntries(cmd.OutOrStdout(), container)
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove all cached replies",
			RunE: func(cmd *cobra.Command, args []string) error {
				if container.ReplyCache == nil {
					return errors.New(ErrCacheUnavailable)
				}
				if err := container.ReplyCache.Clear(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
				return nil
			},
		},
	)

	return cacheCmd
}

func listCacheEntries(out io.Writer, container *app.Container) error {
	if container.ReplyCache == nil {
		return errors.New(ErrCacheUnavailable)
	}
	entries, err := container.ReplyCache.Entries()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, MsgNoCachedReplies)
		return nil
	}
	now := time.Now()
	for _, e := range entries {
		fmt.Fprintf(out, "%-14s | %-12s | %s => %s\n",
			humanize.RelTime(e.CreatedAt, now, "ago", "from now"), e.Model, e.Prompt, e.Reply)
	}
	return nil
}
