package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/doeshing/aishell-go/internal/app"
	"github.com/doeshing/aishell-go/internal/infrastructure/policy"
)

// NewPolicyCommand creates the policy command with all subcommands
func NewPolicyCommand(container *app.Container) *cobra.Command {
	policyCmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect and edit deny/allow rules and compliance profiles",
	}

	denyCmd := &cobra.Command{Use: "deny", Short: "Manage denylist rules"}
	denyCmd.AddCommand(newRuleAddCommand(container, listDeny))
	allowCmd := &cobra.Command{Use: "allow", Short: "Manage allowlist rules"}
	allowCmd.AddCommand(newRuleAddCommand(container, listAllow))

	policyCmd.AddCommand(
		newPolicyViewCommand(container),
		newPolicyValidateCommand(container),
		denyCmd,
		allowCmd,
	)
	return policyCmd
}

type ruleList int

const (
	listDeny ruleList = iota
	listAllow
)

func newPolicyViewCommand(container *app.Container) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Show the active rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if raw {
				doc, err := policy.LoadDocument(container.PolicyPath)
				if err != nil {
					return err
				}
				data, err := yaml.Marshal(doc)
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}
			displayRuleset(out, container.PolicyEngine.Current())
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print the policy document as YAML")
	return cmd
}

func newPolicyValidateCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate a policy file (defaults to the configured one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := container.PolicyPath
			if len(args) == 1 {
				path = args[0]
			}
			rs, err := policy.Load(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%d deny, %d allow, profiles %s)\n",
				MsgPolicyValid, rs.Source(), len(rs.Denylist()), len(rs.Allowlist()), strings.Join(rs.Profiles(), ", "))
			return nil
		},
	}
}

func newRuleAddCommand(container *app.Container, list ruleList) *cobra.Command {
	var spec policy.RuleSpec

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append a rule and validate the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			if spec.ID == "" {
				return errors.New(ErrRuleIDRequired)
			}
			if spec.Pattern == "" && len(spec.Categories) == 0 {
				return errors.New(ErrRulePatternRequired)
			}
			doc, err := policy.LoadDocument(container.PolicyPath)
			if err != nil {
				return err
			}
			switch list {
			case listDeny:
				doc.Denylist = append(doc.Denylist, spec)
			case listAllow:
				doc.Allowlist = append(doc.Allowlist, spec)
			}
			if err := policy.SaveDocument(container.PolicyPath, doc); err != nil {
				return err
			}
			rs, err := policy.Load(container.PolicyPath)
			if err != nil {
				return err
			}
			container.PolicyEngine.Replace(rs)
			fmt.Fprintf(cmd.OutOrStdout(), "Added rule %s to %s\n", spec.ID, container.PolicyPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&spec.ID, "id", "", "Unique rule id")
	cmd.Flags().StringVar(&spec.Pattern, "pattern", "", "Regular expression matched against the command")
	cmd.Flags().StringSliceVar(&spec.Categories, "category", nil, "Categories the command must carry")
	cmd.Flags().StringVar(&spec.Reason, "reason", "", "Shown to the user when the rule matches")
	return cmd
}

func displayRuleset(out io.Writer, rs *policy.Ruleset) {
	fmt.Fprintf(out, "Source: %s (loaded %s)\n", rs.Source(), rs.LoadedAt().Format(TimestampFormat))
	printRules(out, "Denylist", rs.Denylist())
	printRules(out, "Allowlist", rs.Allowlist())
	for _, profile := range rs.Profiles() {
		printRules(out, "Compliance "+profile, rs.ComplianceRules(profile))
	}
}

func printRules(out io.Writer, title string, rules []policy.Rule) {
	fmt.Fprintf(out, "%s (%d):\n", title, len(rules))
	for _, r := range rules {
		match := r.Pattern
		if len(r.Categories) > 0 {
			cats := make([]string, len(r.Categories))
			for i, c := range r.Categories {
				cats[i] = string(c)
			}
			if match != "" {
				match += " "
			}
			match += "[" + strings.Join(cats, ",") + "]"
		}
		severity := ""
		if r.Severity != "" {
			severity = " (" + string(r.Severity) + ")"
		}
		fmt.Fprintf(out, "  %s%s: %s\n", r.ID, severity, match)
		if r.Reason != "" {
			fmt.Fprintf(out, "      %s\n", r.Reason)
		}
	}
}
