// Package rules applies deterministic text substitutions loaded from an
// optional user rules file. Two line formats are supported:
//
//	some phrase => replacement
//	s/pattern/replacement/flags
//
// Literal rules are case-insensitive and global. Regex rules are
// case-insensitive by default and replace the first match unless the g flag
// is given.
package rules

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

type substitution struct {
	re          *regexp.Regexp
	replacement string
	global      bool
}

// Engine applies a rule set until the text stops changing, bounded by an
// iteration limit to survive rules that feed each other.
type Engine struct {
	subs      []substitution
	loopLimit int
}

// NewEngine loads rules from path. A blank or missing path yields a
// pass-through engine.
func NewEngine(path string, loopLimit int) (*Engine, error) {
	if loopLimit <= 0 {
		loopLimit = 30
	}
	if strings.TrimSpace(path) == "" {
		return &Engine{loopLimit: loopLimit}, nil
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Engine{loopLimit: loopLimit}, nil
		}
		return nil, fmt.Errorf("failed to read rules file %q: %w", path, err)
	}

	subs, err := parseRules(string(contents))
	if err != nil {
		return nil, fmt.Errorf("failed to parse rules file %q: %w", path, err)
	}
	return &Engine{subs: subs, loopLimit: loopLimit}, nil
}

// Apply transforms text deterministically.
func (e *Engine) Apply(text string) (string, error) {
	if len(e.subs) == 0 {
		return text, nil
	}

	result := text
	for i := 0; i < e.loopLimit; i++ {
		changed := false
		for _, sub := range e.subs {
			next, subChanged := sub.apply(result)
			if subChanged {
				result = next
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return result, nil
}

func (s substitution) apply(input string) (string, bool) {
	if s.global {
		output := s.re.ReplaceAllString(input, s.replacement)
		return output, output != input
	}

	loc := s.re.FindStringIndex(input)
	if loc == nil {
		return input, false
	}
	segment := input[loc[0]:loc[1]]
	output := input[:loc[0]] + s.re.ReplaceAllString(segment, s.replacement) + input[loc[1]:]
	return output, output != input
}

func parseRules(contents string) ([]substitution, error) {
	lines := strings.Split(contents, "\n")
	subs := make([]substitution, 0, len(lines))

	for index, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var (
			sub substitution
			err error
		)
		switch {
		case looksLikeRegexRule(line):
			sub, err = parseRegexRule(line)
		case strings.Contains(line, "=>"):
			sub, err = parseLiteralRule(line)
		default:
			err = errors.New("unsupported rule format")
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", index+1, err)
		}
		subs = append(subs, sub)
	}

	return subs, nil
}

func parseLiteralRule(line string) (substitution, error) {
	parts := strings.SplitN(line, "=>", 2)
	from := strings.TrimSpace(parts[0])
	to := strings.TrimSpace(parts[1])
	if from == "" {
		return substitution{}, errors.New("literal rule source cannot be empty")
	}

	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(from))
	if err != nil {
		return substitution{}, fmt.Errorf("invalid literal source: %w", err)
	}
	return substitution{re: re, replacement: to, global: true}, nil
}

func parseRegexRule(line string) (substitution, error) {
	delim := line[1]

	pattern, pos, err := readDelimited(line, 2, delim)
	if err != nil {
		return substitution{}, fmt.Errorf("invalid regex pattern: %w", err)
	}
	replacement, pos, err := readDelimited(line, pos, delim)
	if err != nil {
		return substitution{}, fmt.Errorf("invalid regex replacement: %w", err)
	}

	global := false
	caseInsensitive := true
	for _, flag := range strings.TrimSpace(line[pos:]) {
		switch flag {
		case 'g':
			global = true
		case 'i':
			caseInsensitive = true
		case ' ':
		default:
			return substitution{}, fmt.Errorf("unsupported regex flag %q", flag)
		}
	}

	if caseInsensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return substitution{}, fmt.Errorf("invalid regex: %w", err)
	}
	return substitution{re: re, replacement: replacement, global: global}, nil
}

func readDelimited(line string, start int, delim byte) (string, int, error) {
	if start >= len(line) {
		return "", 0, errors.New("unexpected end of expression")
	}

	var builder strings.Builder
	escaped := false
	for index := start; index < len(line); index++ {
		char := line[index]
		if escaped {
			builder.WriteByte(char)
			escaped = false
			continue
		}
		if char == '\\' {
			escaped = true
			builder.WriteByte(char)
			continue
		}
		if char == delim {
			return builder.String(), index + 1, nil
		}
		builder.WriteByte(char)
	}
	return "", 0, errors.New("unterminated expression")
}

func looksLikeRegexRule(line string) bool {
	if len(line) < 2 || line[0] != 's' {
		return false
	}
	delim := line[1]
	switch {
	case delim >= 'a' && delim <= 'z', delim >= 'A' && delim <= 'Z':
		return false
	case delim >= '0' && delim <= '9', delim == ' ', delim == '\t':
		return false
	}
	return true
}
