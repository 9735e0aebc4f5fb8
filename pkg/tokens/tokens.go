package tokens

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const encodingName = "cl100k_base"

// TruncationMarker is appended to text cut by Truncate.
const TruncationMarker = " …"

var (
	tk     *tiktoken.Tiktoken
	tkOnce sync.Once
)

// encoder returns nil when the BPE ranks cannot be loaded (offline hosts),
// in which case counts fall back to an estimate.
func encoder() *tiktoken.Tiktoken {
	tkOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(encodingName)
		if err == nil {
			tk = enc
		}
	})
	return tk
}

func Count(text string) int {
	if text == "" {
		return 0
	}
	if enc := encoder(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return estimate(text)
}

func estimate(text string) int {
	words := len(strings.Fields(text))
	byRunes := (utf8.RuneCountInString(text) + 3) / 4
	return max(words, byRunes)
}

// Truncate keeps whole sentences while the running count stays within
// maxTokens. A single oversized first sentence is cut on word boundaries.
func Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 || text == "" {
		return text
	}
	// Four bytes per token is a safe lower bound, skip counting short text.
	if len(text) <= maxTokens || Count(text) <= maxTokens {
		return text
	}

	var b strings.Builder
	used := 0
	for _, sentence := range SplitSentences(text) {
		n := Count(sentence)
		if used+n > maxTokens {
			break
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(sentence)
		used += n + 1
	}

	if b.Len() == 0 {
		for _, w := range strings.Fields(text) {
			n := Count(w)
			if used+n > maxTokens {
				break
			}
			if b.Len() > 0 {
				b.WriteString(" ")
			}
			b.WriteString(w)
			used += n
		}
	}
	return strings.TrimSpace(b.String()) + TruncationMarker
}

type Chunk struct {
	Text      string
	TokenSize int
	Index     int
}

// ChunkText groups sentences into chunks of at most maxTokens each.
func ChunkText(text string, maxTokens int) []Chunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var (
		chunks  []Chunk
		current strings.Builder
		size    int
	)
	flush := func() {
		if current.Len() == 0 {
			return
		}
		chunks = append(chunks, Chunk{Text: strings.TrimSpace(current.String()), TokenSize: size, Index: len(chunks)})
		current.Reset()
		size = 0
	}

	for _, sentence := range SplitSentences(text) {
		n := Count(sentence)
		if size+n > maxTokens && current.Len() > 0 {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sentence)
		size += n
	}
	flush()
	return chunks
}

var sentenceEnders = map[rune]bool{
	'.': true, '!': true, '?': true,
	'。': true, '！': true, '？': true, '．': true, '…': true,
}

// SplitSentences splits on paragraph breaks, then on sentence terminators
// followed by whitespace or a CJK rune.
func SplitSentences(text string) []string {
	var sentences []string
	for _, para := range splitParagraphs(text) {
		var current strings.Builder
		runes := []rune(para)
		for i, r := range runes {
			current.WriteRune(r)
			if !sentenceEnders[r] {
				continue
			}
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) || isCJK(runes[i+1]) {
				if s := strings.TrimSpace(current.String()); s != "" {
					sentences = append(sentences, s)
				}
				current.Reset()
			}
		}
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 && strings.TrimSpace(text) != "" {
		return []string{strings.TrimSpace(text)}
	}
	return sentences
}

func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(strings.ReplaceAll(p, "\n", " "))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}
