package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/doeshing/aishell-go/internal/domain"
)

// Renderer prints supervisor requests and reports. Colors are dropped
// automatically when the writer is not a terminal.
type Renderer struct {
	out io.Writer

	title   lipgloss.Style
	command lipgloss.Style
	muted   lipgloss.Style
	panel   lipgloss.Style
	risk    map[domain.RiskLevel]lipgloss.Style
	verdict map[domain.Verdict]lipgloss.Style
	gate    map[domain.GateDecision]lipgloss.Style
}

// NewRenderer builds a renderer for out.
func NewRenderer(out io.Writer) *Renderer {
	r := lipgloss.NewRenderer(out)
	badge := func(color string) lipgloss.Style {
		return r.NewStyle().Bold(true).Foreground(lipgloss.Color(color))
	}
	return &Renderer{
		out:     out,
		title:   r.NewStyle().Bold(true),
		command: r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		muted:   r.NewStyle().Faint(true),
		panel:   r.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
		risk: map[domain.RiskLevel]lipgloss.Style{
			domain.RiskLow:      badge("10"),
			domain.RiskMedium:   badge("11"),
			domain.RiskHigh:     badge("208"),
			domain.RiskCritical: badge("9"),
		},
		verdict: map[domain.Verdict]lipgloss.Style{
			domain.VerdictAllow:                  badge("10"),
			domain.VerdictAllowWithWarning:       badge("11"),
			domain.VerdictRequireExplicitConfirm: badge("208"),
			domain.VerdictDeny:                   badge("9"),
		},
		gate: map[domain.GateDecision]lipgloss.Style{
			domain.GateProceed: badge("10"),
			domain.GateWarn:    badge("11"),
			domain.GateBlock:   badge("9"),
		},
	}
}

func (r *Renderer) riskBadge(level domain.RiskLevel) string {
	if style, ok := r.risk[level]; ok {
		return style.Render(level.String())
	}
	return level.String()
}

func (r *Renderer) verdictBadge(v domain.Verdict) string {
	if style, ok := r.verdict[v]; ok {
		return style.Render(v.String())
	}
	return v.String()
}

// Candidate prints a command proposed by the generator.
// A chained candidate also lists its steps.
func (r *Renderer) Candidate(index, total int, candidate domain.CandidateCommand) {
	title := "Generated command"
	if total > 1 {
		title = fmt.Sprintf("Generated command [%d/%d]", index, total)
	}
	body := r.title.Render(title) + "\n" + r.command.Render(candidate.Text())
	if steps := candidate.SubCommands(); len(steps) > 0 {
		body += "\n" + r.muted.Render("Steps:")
		for i, step := range steps {
			body += fmt.Sprintf("\n %d. %s", i+1, step)
		}
	}
	fmt.Fprintln(r.out, r.panel.Render(body))
}

// Assessment prints a classification and its verdict.
func (r *Renderer) Assessment(cls domain.Classification, verdict domain.PolicyVerdict) {
	fmt.Fprintf(r.out, "Command:  %s\n", r.command.Render(cls.Command))
	fmt.Fprintf(r.out, "Risk:     %s\n", r.riskBadge(cls.Risk))
	if len(cls.Categories) > 0 {
		fmt.Fprintf(r.out, "Category: %s\n", joinCategories(cls.Categories))
	}
	fmt.Fprintf(r.out, "Verdict:  %s", r.verdictBadge(verdict.Verdict))
	if verdict.Compliance != "" {
		fmt.Fprintf(r.out, " (%s)", verdict.Compliance)
	}
	fmt.Fprintln(r.out)
	if len(verdict.RuleIDs) > 0 {
		fmt.Fprintf(r.out, "Rules:    %s\n", strings.Join(verdict.RuleIDs, ", "))
	}
	for _, reason := range verdict.Reasons {
		fmt.Fprintf(r.out, " - %s\n", reason)
	}
	if cls.Rationale != "" {
		fmt.Fprintln(r.out, r.muted.Render(cls.Rationale))
	}
}

// Request prints what the user is asked to confirm.
func (r *Renderer) Request(req domain.ConfirmationRequest) {
	fmt.Fprintln(r.out)
	r.Assessment(req.Classification, req.Verdict)
	if req.Resource != nil {
		r.resource(*req.Resource)
	}
	if req.BlockOverride {
		fmt.Fprintln(r.out, r.gate[domain.GateBlock].Render("Resource gate blocked this command; proceeding requires an override."))
	}
	r.rollbackPlan(req.Rollback)
}

// Details prints the full rationale shown by the info choice.
func (r *Renderer) Details(req domain.ConfirmationRequest) {
	var b strings.Builder
	for i, seg := range req.Classification.Segments {
		fmt.Fprintf(&b, "%d. %s\n", i+1, seg.Text)
		fmt.Fprintf(&b, "   risk %s, categories %s\n", seg.Risk, joinCategories(seg.Categories))
		if len(seg.Targets) > 0 {
			fmt.Fprintf(&b, "   targets %s\n", strings.Join(seg.Targets, " "))
		}
		for _, sig := range seg.Signals {
			fmt.Fprintf(&b, "   - %s\n", sig)
		}
	}
	if req.Classification.ParseError != "" {
		fmt.Fprintf(&b, "parse error: %s\n", req.Classification.ParseError)
	}
	for _, w := range req.Warnings {
		fmt.Fprintf(&b, "warning: %s\n", w)
	}
	fmt.Fprintln(r.out, r.panel.Render(r.title.Render("Command information")+"\n"+strings.TrimRight(b.String(), "\n")))
}

func (r *Renderer) resource(snap domain.ResourceSnapshot) {
	style := r.gate[snap.Decision]
	fmt.Fprintf(r.out, "System:   %s", style.Render(snap.Decision.String()))
	if snap.Sampled {
		fmt.Fprintf(r.out, "  cpu %.0f%%  mem %.0f%%  disk free %.0f%% (%s)",
			snap.CPUPercent, snap.MemoryPercent, snap.DiskFreePercent, humanize.IBytes(snap.DiskFreeBytes))
	}
	fmt.Fprintln(r.out)
	for _, reason := range snap.Reasons {
		fmt.Fprintf(r.out, " - %s\n", reason)
	}
}

func (r *Renderer) rollbackPlan(plan domain.RollbackPlan) {
	switch {
	case plan.Available():
		fmt.Fprintf(r.out, "Rollback: snapshot of %d path(s), %d file(s), %s\n",
			len(plan.Targets), plan.TotalFiles, humanize.IBytes(uint64(plan.TotalBytes)))
	case plan.Unavailable != "" && plan.Unavailable != "command is not destructive":
		fmt.Fprintln(r.out, r.muted.Render("Rollback: unavailable ("+plan.Unavailable+")"))
	}
}

// Report prints the end of a run cycle.
func (r *Renderer) Report(report domain.RunReport) {
	switch report.State {
	case domain.StateDenied:
		r.Assessment(report.Classification, report.Verdict)
		fmt.Fprintln(r.out, r.verdict[domain.VerdictDeny].Render("Denied by policy; nothing was executed."))
	case domain.StateCancelled:
		fmt.Fprintf(r.out, "Cancelled: %s\n", report.Reason)
	case domain.StateDryRun:
		fmt.Fprintln(r.out, r.muted.Render("Dry run: command not executed."))
	case domain.StateCompleted:
		r.outcome(report)
	default:
		if report.Reason != "" {
			fmt.Fprintf(r.out, "Stopped at %s: %s\n", report.State, report.Reason)
		}
	}
}

func (r *Renderer) outcome(report domain.RunReport) {
	out := report.Outcome
	if out == nil {
		return
	}
	if out.Stdout != "" {
		fmt.Fprint(r.out, ensureNewline(out.Stdout))
	}
	if out.Stderr != "" {
		fmt.Fprint(r.out, ensureNewline(out.Stderr))
	}
	if out.Truncated {
		fmt.Fprintln(r.out, r.muted.Render("(output truncated)"))
	}
	duration := time.Duration(out.DurationMS) * time.Millisecond
	switch out.Status {
	case domain.ExecSucceeded:
		fmt.Fprintln(r.out, r.muted.Render(fmt.Sprintf("Completed in %s", duration)))
	case domain.ExecTimeout:
		fmt.Fprintln(r.out, r.gate[domain.GateBlock].Render(fmt.Sprintf("Timed out after %s; process killed.", duration)))
	default:
		fmt.Fprintln(r.out, r.gate[domain.GateWarn].Render(fmt.Sprintf("Exited with status %d after %s", out.ExitCode, duration)))
	}
	if report.RollbackRecord != nil {
		switch {
		case report.Restored:
			fmt.Fprintf(r.out, "Restored snapshot %s\n", report.RollbackRecord.ID)
		case out.Status != domain.ExecSucceeded:
			fmt.Fprintf(r.out, "Snapshot kept: aishell rollback restore %s\n", report.RollbackRecord.ID)
		default:
			fmt.Fprintln(r.out, r.muted.Render("Snapshot "+report.RollbackRecord.ID))
		}
	}
	if report.Reason != "" {
		fmt.Fprintln(r.out, report.Reason)
	}
}

func requestFromReport(report domain.RunReport) domain.ConfirmationRequest {
	return domain.ConfirmationRequest{
		Command:        report.Command,
		Classification: report.Classification,
		Verdict:        report.Verdict,
		Resource:       report.Resource,
		Rollback:       report.Rollback,
	}
}

func joinCategories(cats []domain.Category) string {
	parts := make([]string, len(cats))
	for i, c := range cats {
		parts[i] = string(c)
	}
	return strings.Join(parts, ", ")
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
