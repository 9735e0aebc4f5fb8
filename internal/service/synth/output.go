package synth

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/sandevgo/kbqa/internal/core"
	"github.com/sandevgo/kbqa/pkg/conv"
)

var plainRules = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(?m)^#{1,6}\s+`), ""},
	{regexp.MustCompile(`\*\*([^*\n]+)\*\*`), "$1"},
	{regexp.MustCompile(`__([^_\n]+)__`), "$1"},
	{regexp.MustCompile(`\*([^*\n]+)\*`), "$1"},
	{regexp.MustCompile("`([^`\n]+)`"), "$1"},
	{regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`), "$1 ($2)"},
	{regexp.MustCompile(`(?m)^[ \t]*[-*][ \t]+`), "- "},
}

// ToOutput renders a response for a transport.
func ToOutput(resp core.FormattedResponse, kind core.OutputKind) (string, error) {
	switch kind {
	case core.OutputMarkdown, "":
		return markdown(resp), nil
	case core.OutputPlain:
		return StripMarkdown(markdown(resp)), nil
	case core.OutputHTML:
		return conv.MarkdownToHTML([]byte(markdown(resp))), nil
	case core.OutputJSON:
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal response: %w", err)
		}
		return string(data), nil
	}
	return "", fmt.Errorf("%w: unknown output format %q", core.ErrValidation, kind)
}

func markdown(resp core.FormattedResponse) string {
	if len(resp.FollowUpSuggestions) == 0 {
		return resp.Answer
	}

	var b strings.Builder
	b.WriteString(resp.Answer)
	b.WriteString("\n\n**You might also ask:**\n")
	for i, s := range resp.FollowUpSuggestions {
		fmt.Fprintf(&b, "\n%d. %s", i+1, s)
	}
	return b.String()
}

// StripMarkdown removes emphasis, heading and link markup.
func StripMarkdown(text string) string {
	for _, r := range plainRules {
		text = r.re.ReplaceAllString(text, r.repl)
	}
	return text
}
