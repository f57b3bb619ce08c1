// Package classifier derives risk classifications from raw shell command text.
//
// Classification is lexical: a command line is split into segments on shell
// operators, each segment is tokenised and matched against verb rules, and the
// whole line is matched against regex patterns. The risk score is the maximum
// severity over all detected categories.
package classifier

import (
	"fmt"
	"sort"
	"strings"

	"github.com/doeshing/aishell-go/internal/domain"
	"github.com/doeshing/aishell-go/internal/ports"
)

// maxNestingDepth bounds recursion through sh -c, eval and substitutions.
const maxNestingDepth = 4

// Classifier implements ports.Classifier.
type Classifier struct {
	severities map[domain.Category]domain.RiskLevel
	patterns   []dangerPattern
}

// New builds a classifier. Overrides replace entries of DefaultSeverities.
func New(overrides map[domain.Category]domain.RiskLevel) *Classifier {
	severities := DefaultSeverities()
	for cat, level := range overrides {
		if level.Valid() {
			severities[cat] = level
		}
	}
	// unknown commands are never scored below MEDIUM
	if severities[domain.CategoryUnknown] < domain.RiskMedium {
		severities[domain.CategoryUnknown] = domain.RiskMedium
	}
	return &Classifier{severities: severities, patterns: defaultPatterns()}
}

// Severity returns the configured risk for a category.
func (c *Classifier) Severity(cat domain.Category) domain.RiskLevel {
	if level, ok := c.severities[cat]; ok {
		return level
	}
	return domain.RiskMedium
}

// Classify implements ports.Classifier.
func (c *Classifier) Classify(text string) domain.Classification {
	text = strings.TrimSpace(text)
	cls := domain.Classification{Command: text}
	if text == "" {
		cls.ParseError = "empty command"
		cls.Categories = []domain.Category{domain.CategoryUnknown}
		cls.Risk = domain.MaxRisk(c.Severity(domain.CategoryUnknown), domain.RiskMedium)
		cls.Rationale = "empty command; treated as unknown"
		return cls
	}

	segments, parseErrs := c.classifyLine(text, 0)
	cls.Segments = segments
	if len(parseErrs) > 0 {
		cls.ParseError = (&domain.ClassificationError{Command: text, Err: parseErrs[0]}).Error()
	}

	all := make(map[domain.Category]struct{})
	levels := make([]domain.RiskLevel, 0, len(segments)+1)
	for _, seg := range segments {
		for _, cat := range seg.Categories {
			all[cat] = struct{}{}
		}
		levels = append(levels, seg.Risk)
	}
	for _, p := range c.patterns {
		if !p.re.MatchString(text) {
			continue
		}
		cls.Signals = append(cls.Signals, p.signal)
		for _, cat := range p.categories {
			all[cat] = struct{}{}
			levels = append(levels, c.Severity(cat))
		}
	}
	if cls.ParseError != "" {
		all[domain.CategoryUnknown] = struct{}{}
		levels = append(levels, domain.RiskMedium, c.Severity(domain.CategoryUnknown))
	}

	cls.Categories = sortedCategories(all)
	cls.Risk = domain.MaxRisk(levels...)
	cls.Rationale = c.rationale(cls)
	return cls
}

func (c *Classifier) classifyLine(text string, depth int) ([]domain.SegmentClassification, []error) {
	var errs []error
	segs, err := splitCompound(text)
	if err != nil {
		errs = append(errs, err)
	}

	upstream := make(map[int]map[domain.Category]struct{})
	var out []domain.SegmentClassification
	for _, seg := range segs {
		cmd := parseCommand(seg.text)
		if cmd.parseErr != nil {
			errs = append(errs, cmd.parseErr)
		}
		if upstream[seg.pipeline] == nil {
			upstream[seg.pipeline] = make(map[domain.Category]struct{})
		}
		a := analyzeCommand(cmd, seg.op, upstream[seg.pipeline])
		if cmd.parseErr != nil {
			a.add(domain.CategoryUnknown)
			a.signal("could not tokenise: %v", cmd.parseErr)
		}
		for _, p := range c.patterns {
			if p.re.MatchString(seg.text) {
				a.add(p.categories...)
				a.signal("%s", p.signal)
			}
		}
		for cat := range a.categories {
			upstream[seg.pipeline][cat] = struct{}{}
		}

		sc := domain.SegmentClassification{
			Text:       seg.text,
			Verb:       cmd.verb,
			Args:       cmd.args,
			Targets:    a.targets,
			Categories: sortedCategories(a.categories),
			Signals:    dedupe(a.signals),
		}
		sc.Risk = c.score(sc.Categories)
		out = append(out, sc)

		if depth >= maxNestingDepth {
			continue
		}
		for _, inner := range a.nested {
			nested, nestedErrs := c.classifyLine(inner, depth+1)
			errs = append(errs, nestedErrs...)
			out = append(out, nested...)
		}
	}
	return out, errs
}

// score is the pure maximum reduction over the severity table.
func (c *Classifier) score(cats []domain.Category) domain.RiskLevel {
	if len(cats) == 0 {
		return c.Severity(domain.CategoryUnknown)
	}
	levels := make([]domain.RiskLevel, 0, len(cats))
	for _, cat := range cats {
		levels = append(levels, c.Severity(cat))
	}
	return domain.MaxRisk(levels...)
}

func (c *Classifier) rationale(cls domain.Classification) string {
	var parts []string
	for i, seg := range cls.Segments {
		if seg.Risk <= domain.RiskLow {
			continue
		}
		part := fmt.Sprintf("segment %d %q: %s (%s)", i+1, seg.Text, joinCategories(seg.Categories), seg.Risk)
		if len(seg.Signals) > 0 {
			part += ": " + strings.Join(seg.Signals, ", ")
		}
		parts = append(parts, part)
	}
	if len(cls.Signals) > 0 {
		parts = append(parts, "command line: "+strings.Join(cls.Signals, ", "))
	}
	if cls.ParseError != "" {
		parts = append(parts, "parse error: "+cls.ParseError)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("read-only command (%s)", cls.Risk)
	}
	return strings.Join(parts, "; ")
}

func sortedCategories(set map[domain.Category]struct{}) []domain.Category {
	order := make(map[domain.Category]int)
	for i, cat := range domain.AllCategories() {
		order[cat] = i
	}
	out := make([]domain.Category, 0, len(set))
	for cat := range set {
		out = append(out, cat)
	}
	sort.Slice(out, func(i, j int) bool { return order[out[i]] < order[out[j]] })
	// read-only is meaningless next to any other category
	if len(out) > 1 && out[0] == domain.CategoryReadOnly {
		out = out[1:]
	}
	return out
}

func joinCategories(cats []domain.Category) string {
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

func dedupe(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	out := items[:0:0]
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}

var _ ports.Classifier = (*Classifier)(nil)
