package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/doeshing/aishell-go/internal/app"
	"github.com/doeshing/aishell-go/internal/application/supervisor"
	"github.com/doeshing/aishell-go/internal/domain"
)

// runFlags are shared by run, exec and session.
type runFlags struct {
	dryRun            bool
	noConfirm         bool
	advanced          bool
	splitMulti        bool
	compliance        string
	model             string
	overrideResources bool
	timeout           time.Duration
}

func (f *runFlags) register(cmd *cobra.Command, container *app.Container) {
	prefs := container.Config.Preferences
	flags := cmd.Flags()
	flags.BoolVarP(&f.dryRun, "dry-run", "d", false, "Show the assessment without executing")
	flags.BoolVar(&f.noConfirm, "no-confirm", false, "Skip confirmation for commands that need no explicit consent")
	flags.BoolVarP(&f.advanced, "advanced", "a", prefs.Advanced, "Allow multi-line generator output")
	flags.BoolVarP(&f.splitMulti, "split-multi", "s", prefs.SplitMulti, "Split compound commands into separate steps")
	flags.StringVar(&f.compliance, "compliance-mode", container.Config.GetComplianceProfile(), "Evaluate against a compliance profile (GENERAL, SOX, HIPAA)")
	flags.Lookup("compliance-mode").NoOptDefVal = domain.ProfileGeneral
	flags.StringVarP(&f.model, "model", "m", "", "Override model name (default from config)")
	flags.BoolVar(&f.overrideResources, "override-resources", false, "Allow confirming commands the resource gate blocked")
	flags.DurationVar(&f.timeout, "timeout", 0, "Kill the command after this long (default from config)")
}

func (f *runFlags) options() supervisor.Options {
	return supervisor.Options{
		DryRun:            f.dryRun,
		NoConfirm:         f.noConfirm,
		OverrideResources: f.overrideResources,
		Compliance:        strings.ToUpper(strings.TrimSpace(f.compliance)),
		Timeout:           f.timeout,
	}
}

func (f *runFlags) generateOptions() supervisor.GenerateOptions {
	return supervisor.GenerateOptions{Advanced: f.advanced, SplitMulti: f.splitMulti}
}

func (f *runFlags) apply(container *app.Container) error {
	if profile := f.options().Compliance; profile != "" && !hasProfile(container, profile) {
		return fmt.Errorf("unknown compliance profile %s", profile)
	}
	if f.model != "" {
		return container.UseModel(f.model)
	}
	return nil
}

func hasProfile(container *app.Container, profile string) bool {
	return container.PolicyEngine.Current().HasProfile(profile)
}

func newRunCommand(container *app.Container) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run [natural language]",
		Short: "Generate a command from natural language and run it under supervision",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runRequest(container, &flags),
	}
	flags.register(cmd, container)
	return cmd
}

// runRequest supervises the commands generated for the joined args. The root
// command and run share it, each with its own flag set.
func runRequest(container *app.Container, flags *runFlags) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := flags.apply(container); err != nil {
			return err
		}
		report, err := runPrompt(cmd.Context(), container, NewRenderer(cmd.OutOrStdout()), strings.Join(args, " "), flags)
		if err != nil {
			return err
		}
		return exitFor(report)
	}
}

func newExecCommand(container *app.Container) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "exec [command]",
		Short: "Run a literal shell command under supervision",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.apply(container); err != nil {
				return err
			}
			candidate := domain.NewCandidate(strings.Join(args, " "), domain.CommandSource{Origin: domain.OriginUser})
			report, err := runOne(cmd.Context(), container, NewRenderer(cmd.OutOrStdout()), candidate, flags.options())
			if err != nil {
				return err
			}
			return exitFor(report)
		},
	}
	flags.register(cmd, container)
	return cmd
}

func newCheckCommand(container *app.Container) *cobra.Command {
	var compliance string
	cmd := &cobra.Command{
		Use:   "check [command]",
		Short: "Classify a command and show the policy verdict without running it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profile := strings.ToUpper(strings.TrimSpace(compliance))
			if profile != "" && !hasProfile(container, profile) {
				return fmt.Errorf("unknown compliance profile %s", profile)
			}
			cls, verdict := container.Supervisor.Assess(strings.Join(args, " "), profile)
			NewRenderer(cmd.OutOrStdout()).Assessment(cls, verdict)
			if verdict.Denied() {
				return &ExitError{Code: domain.ExitDenied}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&compliance, "compliance-mode", container.Config.GetComplianceProfile(), "Evaluate against a compliance profile (GENERAL, SOX, HIPAA)")
	cmd.Flags().Lookup("compliance-mode").NoOptDefVal = domain.ProfileGeneral
	return cmd
}

func newSessionCommand(container *app.Container) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Interactive session: one request at a time",
		Long: "Each line is sent to the command generator. Prefix a line with '!' to " +
			"supervise it as a literal command. 'exit' or Ctrl-D ends the session.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.apply(container); err != nil {
				return err
			}
			return session(cmd.Context(), container, cmd.InOrStdin(), cmd.OutOrStdout(), &flags)
		},
	}
	flags.register(cmd, container)
	return cmd
}

// session reads requests line by line. When the supervisor prompts through
// a Prompter, both read from its buffer so neither steals the other's input.
func session(ctx context.Context, container *app.Container, in io.Reader, out io.Writer, flags *runFlags) error {
	renderer := NewRenderer(out)
	readLine := bufferedLines(in)
	if p, ok := container.Supervisor.Prompter.(*Prompter); ok {
		readLine = p.readLine
	}
	for {
		fmt.Fprint(out, "aishell> ")
		line, err := readLine()
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(out)
			break
		}
		if err != nil {
			return err
		}
		switch {
		case line == "":
			continue
		case line == "exit" || line == "quit":
			return nil
		}

		if literal, ok := strings.CutPrefix(line, "!"); ok {
			candidate := domain.NewCandidate(literal, domain.CommandSource{Origin: domain.OriginUser})
			_, err = runOne(ctx, container, renderer, candidate, flags.options())
		} else {
			_, err = runPrompt(ctx, container, renderer, line, flags)
		}
		if err != nil {
			if errors.Is(err, domain.ErrEngineFailure) || ctx.Err() != nil {
				return err
			}
			fmt.Fprintf(out, "Error: %v\n", err)
		}
	}
	return nil
}

func bufferedLines(in io.Reader) func() (string, error) {
	r := bufio.NewReader(in)
	return func() (string, error) {
		line, err := r.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}
}

// stepPrinter renders each supervised step as it happens.
type stepPrinter struct {
	renderer *Renderer
	dryRun   bool
}

func (p stepPrinter) BeforeStep(index, total int, candidate domain.CandidateCommand) {
	p.renderer.Candidate(index, total, candidate)
}

func (p stepPrinter) AfterStep(report domain.RunReport) {
	if p.dryRun && report.State == domain.StateDryRun {
		p.renderer.Request(requestFromReport(report))
	}
	p.renderer.Report(report)
}

func runOne(ctx context.Context, container *app.Container, renderer *Renderer, candidate domain.CandidateCommand, opts supervisor.Options) (domain.RunReport, error) {
	report, err := container.Supervisor.Run(ctx, candidate, opts)
	stepPrinter{renderer: renderer, dryRun: opts.DryRun}.AfterStep(report)
	return report, err
}

// runPrompt generates candidates and supervises them in order, returning the
// last report.
func runPrompt(ctx context.Context, container *app.Container, renderer *Renderer, prompt string, flags *runFlags) (domain.RunReport, error) {
	opts := flags.options()
	opts.Observer = stepPrinter{renderer: renderer, dryRun: opts.DryRun}
	reports, err := container.Supervisor.RunPrompt(ctx, prompt, flags.generateOptions(), opts)
	var last domain.RunReport
	if len(reports) > 0 {
		last = reports[len(reports)-1]
	}
	return last, err
}
