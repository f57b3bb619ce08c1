package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/doeshing/aishell-go/internal/domain"
	"github.com/doeshing/aishell-go/internal/ports"
)

// Prompter implements ConfirmationPrompter using stdin/stdout.
type Prompter struct {
	in          *bufio.Reader
	out         io.Writer
	renderer    *Renderer
	interactive bool
}

// NewPrompter constructs a prompter. It is only enabled when in is a terminal.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return &Prompter{
		in:          bufio.NewReader(in),
		out:         out,
		renderer:    NewRenderer(out),
		interactive: isTerminal(in),
	}
}

// Enabled indicates the prompter can reach a user.
func (p *Prompter) Enabled() bool {
	return p.interactive
}

// Present shows the request and loops until the user picks an action.
func (p *Prompter) Present(ctx context.Context, req domain.ConfirmationRequest) (domain.Decision, error) {
	p.renderer.Request(req)
	for {
		if err := ctx.Err(); err != nil {
			return domain.Decision{}, err
		}
		fmt.Fprint(p.out, "Execute? [y]es / [n]o / [e]dit / [d]ry-run / [i]nfo: ")
		line, err := p.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return domain.Decision{Kind: domain.DecisionCancel}, nil
			}
			return domain.Decision{}, err
		}

		switch strings.ToLower(line) {
		case "y", "yes":
			if req.Explicit || req.BlockOverride {
				if ok, err := p.askExplicit(); err != nil || !ok {
					return domain.Decision{Kind: domain.DecisionCancel}, nil
				}
			}
			return domain.Decision{Kind: domain.DecisionApprove}, nil
		case "n", "no", "":
			return domain.Decision{Kind: domain.DecisionCancel}, nil
		case "e", "edit":
			edited, err := p.edit(req.Command)
			if err != nil {
				return domain.Decision{Kind: domain.DecisionCancel}, nil
			}
			return domain.Decision{Kind: domain.DecisionEdit, EditedText: edited}, nil
		case "d", "dry-run", "dry":
			return domain.Decision{Kind: domain.DecisionDryRun}, nil
		case "i", "info":
			p.renderer.Details(req)
		default:
			fmt.Fprintf(p.out, "Unknown choice %q\n", line)
		}
	}
}

// OfferRollback asks whether a failed command's snapshot should be restored.
// Anything but an explicit yes keeps the snapshot.
func (p *Prompter) OfferRollback(ctx context.Context, record domain.RollbackRecord, outcome domain.ExecutionOutcome) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	what := fmt.Sprintf("exited with status %d", outcome.ExitCode)
	if outcome.Status == domain.ExecTimeout {
		what = "timed out"
	}
	fmt.Fprintf(p.out, "\nCommand %s. Restore snapshot %s (%d path(s))? [y/N]: ", what, record.ID, len(record.Entries))
	line, err := p.readLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	line = strings.ToLower(line)
	return line == "y" || line == "yes", nil
}

func (p *Prompter) askExplicit() (bool, error) {
	fmt.Fprint(p.out, "Type 'yes' to confirm (or anything else to cancel): ")
	line, err := p.readLine()
	if err != nil {
		return false, err
	}
	return line == "yes", nil
}

func (p *Prompter) edit(current string) (string, error) {
	fmt.Fprintf(p.out, "Current: %s\nNew command (empty to cancel): ", current)
	return p.readLine()
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

var _ ports.ConfirmationPrompter = (*Prompter)(nil)
