package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/doeshing/aishell-go/internal/app"
	configapp "github.com/doeshing/aishell-go/internal/application/config"
	"github.com/doeshing/aishell-go/internal/domain"
	configinfra "github.com/doeshing/aishell-go/internal/infrastructure/config"
)

// NewConfigCommand creates the config command with all subcommands
func NewConfigCommand(container *app.Container) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect aishell configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfiguration(cmd.Context(), cmd.OutOrStdout(), container)
		},
	}

	configCmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show full configuration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return showConfiguration(cmd.Context(), cmd.OutOrStdout(), container)
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Validate configuration file",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := container.ConfigProvider.Load(cmd.Context())
				if err != nil {
					return fmt.Errorf("configuration validation failed: %w", err)
				}
				if err := configapp.Validate(cfg); err != nil {
					return fmt.Errorf("configuration validation failed: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), MsgConfigurationValid)
				return nil
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Reset configuration to defaults (the old file is backed up)",
			RunE: func(cmd *cobra.Command, args []string) error {
				return resetConfiguration(cmd.OutOrStdout(), container)
			},
		},
		&cobra.Command{
			Use:   "diff",
			Short: "Show diff versus default configuration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return showConfigurationDiff(cmd.Context(), cmd.OutOrStdout(), container)
			},
		},
	)

	return configCmd
}

func showConfiguration(ctx context.Context, out io.Writer, container *app.Container) error {
	cfg, err := container.ConfigProvider.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	fmt.Fprintf(out, "# %s\n%s", container.ConfigLoader.Path(), data)
	return nil
}

func resetConfiguration(out io.Writer, container *app.Container) error {
	backup, err := container.ConfigLoader.Backup()
	if err != nil {
		return fmt.Errorf("failed to back up configuration: %w", err)
	}
	if _, err := container.ConfigLoader.Reset(); err != nil {
		return fmt.Errorf("failed to reset configuration: %w", err)
	}
	if backup != "" {
		fmt.Fprintf(out, "Previous configuration saved to %s\n", backup)
	}
	fmt.Fprintf(out, "Configuration reset: %s\n", container.ConfigLoader.Path())
	return nil
}

func showConfigurationDiff(ctx context.Context, out io.Writer, container *app.Container) error {
	cfg, err := container.ConfigProvider.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	diff := cmp.Diff(configinfra.Default(), cfg)
	if diff == "" {
		fmt.Fprintln(out, MsgNoDifferencesFromDefault)
		return nil
	}
	fmt.Fprintln(out, "--- default\n+++ current")
	fmt.Fprint(out, diff)
	return nil
}

func saveConfig(container *app.Container, cfg domain.Config) error {
	if err := configapp.Validate(cfg); err != nil {
		return fmt.Errorf("refusing to save invalid configuration: %w", err)
	}
	return container.ConfigLoader.Save(cfg)
}
