package generator

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ParseTier identifies which step of the fallback chain produced a usable
// payload. Exposed so the orchestrator can count degraded parses.
type ParseTier int

const (
	ParseDirect ParseTier = iota
	ParseFenced
	ParseBraceScan
	ParseFallback
)

func (t ParseTier) String() string {
	switch t {
	case ParseDirect:
		return "direct"
	case ParseFenced:
		return "fenced"
	case ParseBraceScan:
		return "brace_scan"
	default:
		return "fallback"
	}
}

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// extractors are the ordered candidate producers of the parse chain. Each
// returns a candidate JSON string; the chain stops at the first candidate
// that unmarshals into the target.
var extractors = []struct {
	tier    ParseTier
	extract func(string) (string, bool)
}{
	{ParseDirect, func(s string) (string, bool) {
		s = strings.TrimSpace(s)
		return s, s != ""
	}},
	{ParseFenced, func(s string) (string, bool) {
		m := fencedBlock.FindStringSubmatch(s)
		if m == nil {
			return "", false
		}
		return strings.TrimSpace(m[1]), true
	}},
	{ParseBraceScan, func(s string) (string, bool) {
		start := strings.Index(s, "{")
		end := strings.LastIndex(s, "}")
		if start < 0 || end <= start {
			return "", false
		}
		return s[start : end+1], true
	}},
}

// ParseJSON runs the completion text through the fallback chain, decoding
// the first candidate that is a valid JSON object for v. Returns the tier
// that succeeded, or (ParseFallback, false) when every step failed — the
// caller supplies the terminal fixed payload.
func ParseJSON(text string, v interface{}) (ParseTier, bool) {
	for _, step := range extractors {
		candidate, ok := step.extract(text)
		if !ok {
			continue
		}
		if err := json.Unmarshal([]byte(candidate), v); err == nil {
			return step.tier, true
		}
	}
	return ParseFallback, false
}
