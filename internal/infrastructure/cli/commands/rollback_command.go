package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/doeshing/aishell-go/internal/app"
	"github.com/doeshing/aishell-go/internal/domain"
)

// NewRollbackCommand creates the rollback command with all subcommands
func NewRollbackCommand(container *app.Container) *cobra.Command {
	rollbackCmd := &cobra.Command{
		Use:   "rollback",
		Short: "Inspect and restore pre-execution snapshots",
	}

	rollbackCmd.AddCommand(
		newRollbackListCommand(container),
		newRollbackRestoreCommand(container),
		newRollbackPruneCommand(container),
	)

	return rollbackCmd
}

func newRollbackListCommand(container *app.Container) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if container.Rollback == nil {
				return errors.New(ErrRollbackUnavailable)
			}
			records, err := container.Rollback.List(cmd.Context())
			if err != nil {
				return err
			}
			if !all {
				restorable := records[:0]
				for _, rec := range records {
					if !rec.Consumed {
						restorable = append(restorable, rec)
					}
				}
				records = restorable
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No rollback records.")
				return nil
			}
			now := time.Now()
			for _, rec := range records {
				status := "restorable"
				if rec.Consumed {
					status = "consumed"
				}
				fmt.Fprintf(out, "%s  %-10s  %-16s  %s\n",
					rec.ID, status, humanize.RelTime(rec.CreatedAt, now, "ago", "from now"), rec.Command)
				for _, e := range rec.Entries {
					note := ""
					if !e.Existed {
						note = " (created by command)"
					}
					fmt.Fprintf(out, "    %s%s\n", e.Path, note)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include consumed records kept for audit")
	return cmd
}

func newRollbackRestoreCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id>",
		Short: "Restore a snapshot; each record can be restored once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if container.Rollback == nil {
				return errors.New(ErrRollbackUnavailable)
			}
			rec, err := container.Rollback.Restore(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, domain.ErrRollbackConsumed) {
					return fmt.Errorf("%s was already restored", args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d path(s) from %s\n", len(rec.Entries), rec.ID)
			return nil
		},
	}
}

func newRollbackPruneCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete expired snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			if container.Rollback == nil {
				return errors.New(ErrRollbackUnavailable)
			}
			n, err := container.Rollback.Prune(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d record(s).\n", n)
			return nil
		},
	}
}
