package cli

import (
	"github.com/spf13/cobra"

	"github.com/doeshing/aishell-go/internal/app"
	"github.com/doeshing/aishell-go/internal/infrastructure/cli/commands"
	"github.com/doeshing/aishell-go/internal/version"
)

// NewRootCmd wires the cobra root command around a built container.
func NewRootCmd(container *app.Container) *cobra.Command {
	if container.Supervisor.Prompter == nil {
		container.Supervisor.Prompter = NewPrompter(nil, nil)
	}

	var flags runFlags
	run := runRequest(container, &flags)

	root := &cobra.Command{
		Use:   "aishell [request]",
		Short: "aishell - supervised AI shell",
		Long: "aishell turns natural language into shell commands and runs them under supervision: " +
			"every command is classified, checked against policy and system resources, confirmed, " +
			"snapshotted when destructive, and recorded.",
		Version: version.Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return run(cmd, args)
		},
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(version.String() + "\n")
	flags.register(root, container)

	root.AddCommand(newRunCommand(container))
	root.AddCommand(newExecCommand(container))
	root.AddCommand(newCheckCommand(container))
	root.AddCommand(newSessionCommand(container))
	root.AddCommand(commands.NewRollbackCommand(container))
	root.AddCommand(commands.NewHistoryCommand(container))
	root.AddCommand(commands.NewPolicyCommand(container))
	root.AddCommand(commands.NewDoctorCommand(container))
	root.AddCommand(commands.NewModelsCommand(container))
	root.AddCommand(commands.NewConfigCommand(container))
	root.AddCommand(commands.NewCacheCommand(container))
	root.AddCommand(commands.NewVersionCommand())
	return root
}
