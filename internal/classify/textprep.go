package classify

import (
	"regexp"
	"strings"

	"github.com/jaytaylor/html2text"
)

// maxContentRunes bounds how much of a message body is sent to the model.
const maxContentRunes = 300

var (
	imgTagRe = regexp.MustCompile(`(?is)<img[\s\S]*?>`)
	anchorRe = regexp.MustCompile(`(?is)<a\s+[^>]*>(.*?)</a>`)
	spaceRe  = regexp.MustCompile(`\s+`)
)

// PrepareContent cleans a raw message body for prompting: images are
// dropped, anchors are unwrapped to their inner text, remaining markup is
// converted to plain text, whitespace is collapsed, and the result is
// truncated to a bounded length.
func PrepareContent(raw string) string {
	if raw == "" {
		return ""
	}

	cleaned := imgTagRe.ReplaceAllString(raw, "")
	cleaned = anchorRe.ReplaceAllString(cleaned, "$1")

	text, err := html2text.FromString(cleaned)
	if err != nil {
		text = cleaned
	}

	text = spaceRe.ReplaceAllString(strings.TrimSpace(text), " ")

	runes := []rune(text)
	if len(runes) > maxContentRunes {
		text = string(runes[:maxContentRunes])
	}
	return text
}
