package adapter

import (
	"regexp"
	"strings"
)

// Reasoning models such as deepseek-r1 wrap their chain of thought in these tags.
const (
	ThinkOpenTag  = "<think>"
	ThinkCloseTag = "</think>"
)

// ReasoningStripper removes delimited reasoning blocks from model output.
type ReasoningStripper struct {
	open  string
	close string
	block *regexp.Regexp
}

// NewReasoningStripper creates a stripper for the given delimiter pair.
// Blocks are matched non-greedily and may span lines.
func NewReasoningStripper(open, close string) *ReasoningStripper {
	return &ReasoningStripper{
		open:  open,
		close: close,
		block: regexp.MustCompile(`(?s)` + regexp.QuoteMeta(open) + `(.*?)` + regexp.QuoteMeta(close)),
	}
}

var defaultStripper = NewReasoningStripper(ThinkOpenTag, ThinkCloseTag)

// StripReasoning removes <think>...</think> blocks from content.
func StripReasoning(content string) string {
	return defaultStripper.Strip(content)
}

// Strip returns content without reasoning blocks, trimmed.
func (r *ReasoningStripper) Strip(content string) string {
	answer, _ := r.Split(content)
	return answer
}

// Split separates content into the visible answer and the removed reasoning traces.
//
// Removal is repeated until no complete block remains, so Strip(Strip(x)) == Strip(x)
// even for interleaved tags. An unterminated opening tag is left in place.
// If nothing but reasoning was present, the text after the last closing tag is
// returned, or the trimmed original when there is no closing tag.
func (r *ReasoningStripper) Split(content string) (string, []string) {
	if content == "" {
		return "", nil
	}

	var traces []string
	cleaned := content
	for {
		matches := r.block.FindAllStringSubmatchIndex(cleaned, -1)
		if len(matches) == 0 {
			break
		}

		var b strings.Builder
		last := 0
		for _, m := range matches {
			b.WriteString(cleaned[last:m[0]])
			if trace := strings.TrimSpace(cleaned[m[2]:m[3]]); trace != "" {
				traces = append(traces, trace)
			}
			last = m[1]
		}
		b.WriteString(cleaned[last:])
		cleaned = b.String()
	}

	cleaned = strings.TrimSpace(cleaned)
	if cleaned != "" {
		return cleaned, traces
	}

	if i := strings.LastIndex(content, r.close); i >= 0 {
		return strings.TrimSpace(content[i+len(r.close):]), traces
	}
	return strings.TrimSpace(content), traces
}

// truncate shortens s to at most limit runes, appending "..." when cut.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
