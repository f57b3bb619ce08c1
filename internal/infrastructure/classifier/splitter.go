package classifier

import (
	"errors"
	"strings"
)

// Operators that join compound command segments.
const (
	opNone       = ""
	opAnd        = "&&"
	opOr         = "||"
	opPipe       = "|"
	opSeq        = ";"
	opBackground = "&"
	opNewline    = "\n"
	opSubst      = "$("
	opProcSubst  = "<("
)

var (
	errUnterminatedQuote = errors.New("unterminated quote")
	errUnbalancedSubst   = errors.New("unbalanced command substitution")
)

// segment is one simple command of a compound command line.
type segment struct {
	text string
	// op is the operator that joined this segment to the previous one.
	op string
	// pipeline groups segments connected by pipes.
	pipeline int
}

// splitCompound splits on &&, ||, |, ;, & and newlines while respecting quotes and
// escapes. Command and process substitutions are also emitted as their own segments.
// On malformed input the segments found so far are still returned with the error.
func splitCompound(command string) ([]segment, error) {
	s := &splitter{runes: []rune(command)}
	s.run()
	return s.segments, s.err
}

type splitter struct {
	runes    []rune
	segments []segment
	current  strings.Builder
	op       string
	pipeline int
	err      error
}

func (s *splitter) flush(nextOp string) {
	text := strings.TrimSpace(s.current.String())
	s.current.Reset()
	if text != "" {
		s.segments = append(s.segments, segment{text: text, op: s.op, pipeline: s.pipeline})
	}
	if nextOp != opPipe {
		s.pipeline++
	}
	s.op = nextOp
}

func (s *splitter) nested(inner, op string) {
	segs, err := splitCompound(inner)
	if err != nil && s.err == nil {
		s.err = err
	}
	base := s.pipeline + 1000*(len(s.segments)+1)
	for i, seg := range segs {
		if i == 0 {
			seg.op = op
		}
		seg.pipeline += base
		s.segments = append(s.segments, seg)
	}
}

func (s *splitter) run() {
	inSingle, inDouble := false, false
	runes := s.runes
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		next := rune(0)
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		if ch == '\\' && !inSingle && i+1 < len(runes) {
			s.current.WriteRune(ch)
			s.current.WriteRune(next)
			i++
			continue
		}
		if ch == '\'' && !inDouble {
			inSingle = !inSingle
			s.current.WriteRune(ch)
			continue
		}
		if ch == '"' && !inSingle {
			inDouble = !inDouble
			s.current.WriteRune(ch)
			continue
		}
		if inSingle {
			s.current.WriteRune(ch)
			continue
		}

		if (ch == '$' || (ch == '<' && !inDouble)) && next == '(' {
			if ch == '$' && i+2 < len(runes) && runes[i+2] == '(' {
				// $(( arithmetic ))
				s.current.WriteRune(ch)
				continue
			}
			end := matchParen(runes, i+1)
			if end < 0 {
				s.fail(errUnbalancedSubst)
				s.current.WriteString(string(runes[i:]))
				break
			}
			inner := string(runes[i+2 : end])
			s.current.WriteString(string(runes[i : end+1]))
			op := opSubst
			if ch == '<' {
				op = opProcSubst
			}
			s.nested(inner, op)
			i = end
			continue
		}
		if ch == '`' {
			end := indexUnescaped(runes, i+1, '`')
			if end < 0 {
				s.fail(errUnbalancedSubst)
				s.current.WriteString(string(runes[i:]))
				break
			}
			s.current.WriteString(string(runes[i : end+1]))
			s.nested(string(runes[i+1:end]), opSubst)
			i = end
			continue
		}
		if inDouble {
			s.current.WriteRune(ch)
			continue
		}

		switch {
		case ch == '&' && next == '&':
			s.flush(opAnd)
			i++
		case ch == '|' && next == '|':
			s.flush(opOr)
			i++
		case ch == '|' && next == '&':
			s.flush(opPipe)
			i++
		case ch == '|':
			s.flush(opPipe)
		case ch == ';':
			if next == ';' {
				i++
			}
			s.flush(opSeq)
		case ch == '\n':
			s.flush(opNewline)
		case ch == '&' && !isRedirectAmp(runes, i):
			s.flush(opBackground)
		default:
			s.current.WriteRune(ch)
		}
	}
	if inSingle || inDouble {
		s.fail(errUnterminatedQuote)
	}
	s.flush(opNone)
}

func (s *splitter) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

// isRedirectAmp reports whether the & at i belongs to a redirection such as 2>&1 or &>.
func isRedirectAmp(runes []rune, i int) bool {
	if i > 0 && (runes[i-1] == '>' || runes[i-1] == '<') {
		return true
	}
	return i+1 < len(runes) && runes[i+1] == '>'
}

// matchParen returns the index of the parenthesis closing the one at open.
func matchParen(runes []rune, open int) int {
	depth := 0
	inSingle, inDouble := false, false
	for i := open; i < len(runes); i++ {
		switch ch := runes[i]; {
		case ch == '\\' && !inSingle:
			i++
		case ch == '\'' && !inDouble:
			inSingle = !inSingle
		case ch == '"' && !inSingle:
			inDouble = !inDouble
		case inSingle || inDouble:
		case ch == '(':
			depth++
		case ch == ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func indexUnescaped(runes []rune, from int, target rune) int {
	for i := from; i < len(runes); i++ {
		if runes[i] == '\\' {
			i++
			continue
		}
		if runes[i] == target {
			return i
		}
	}
	return -1
}

// SplitSequence splits a command line into independently runnable commands at
// top-level &&, ; and newlines. Pipelines, || chains and substitutions stay whole.
// Malformed input is returned as a single command.
func SplitSequence(command string) []string {
	runes := []rune(command)
	var (
		out     []string
		current strings.Builder
		quote   rune
		depth   int
		inTick  bool
	)
	flush := func() {
		if text := strings.TrimSpace(current.String()); text != "" {
			out = append(out, text)
		}
		current.Reset()
	}
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\\' && quote != '\'' && i+1 < len(runes):
			current.WriteRune(r)
			i++
			current.WriteRune(runes[i])
			continue
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '`':
			inTick = !inTick
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0 && !inTick && (r == ';' || r == '\n'):
			flush()
			continue
		case depth == 0 && !inTick && r == '&' && i+1 < len(runes) && runes[i+1] == '&':
			flush()
			i++
			continue
		}
		current.WriteRune(r)
	}
	if quote != 0 || depth != 0 || inTick {
		return []string{strings.TrimSpace(command)}
	}
	flush()
	return out
}
