package kb

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/sandevgo/kbqa/internal/core"
	"github.com/sandevgo/kbqa/pkg/tokens"
)

const (
	keywordWeight = 0.7
	nameWeight    = 0.3
	snippetTokens = 60
	answerItems   = 5

	nothingFound     = "I could not find anything about that in the knowledge base."
	nothingFoundConf = 0.1
)

var tokenRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)

type entry struct {
	item  core.QueryResultItem
	kind  core.EntityKind
	owner string
	words map[string]bool
	body  string
}

// Base is an immutable, indexed snapshot of one knowledge file.
type Base struct {
	file    *File
	entries []entry
	byOwner map[string][]int
}

func NewBase(f *File) *Base {
	if f == nil {
		f = &File{}
	}
	b := &Base{file: f, byOwner: map[string][]int{}}

	for _, r := range f.Responders {
		body := strings.Join([]string{
			r.Purpose,
			labelled("Capabilities", r.Capabilities),
			labelled("Dependencies", r.Dependencies),
		}, " ")
		b.add(entry{
			item: core.QueryResultItem{
				Source: r.Source, Line: r.Line, Title: r.Name,
				Name: r.Name, Dimension: r.Dimension, Content: strings.TrimSpace(body),
			},
			kind:  core.EntityResponder,
			owner: r.Name,
			body:  body + " responder agent " + r.Category,
		})
	}
	for _, fn := range f.Functions {
		body := strings.Join([]string{fn.Description, labelled("Examples", fn.Examples), labelled("Used by", fn.UsedBy)}, " ")
		b.add(entry{
			item: core.QueryResultItem{
				Source: fn.Source, Line: fn.Line, Title: fn.Name,
				Name: fn.Name, Signature: or(fn.Signature, fn.Name+"()"), Content: strings.TrimSpace(body),
			},
			kind:  core.EntityFunction,
			owner: fn.Responder,
			body:  body + " function " + fn.Signature,
		})
	}
	for _, r := range f.Rules {
		b.add(entry{
			item: core.QueryResultItem{
				Source: r.Source, Line: r.Line, Title: or(r.ID, r.Level+" rule"),
				RequirementLevel: or(r.Level, "SHOULD"), Content: r.Content,
			},
			kind:  core.EntityRule,
			owner: r.Responder,
			body:  r.Content + " rule requirement " + r.Level,
		})
	}
	for _, fact := range f.Facts {
		b.add(entry{
			item: core.QueryResultItem{
				Source: fact.Source, Line: fact.Line, Title: fact.Name,
				Name: fact.Name, URL: fact.URL, Content: fact.Content,
			},
			kind:  core.EntityFact,
			owner: fact.Responder,
			body:  fact.Content + " fact",
		})
	}
	for _, d := range f.Documents {
		b.add(entry{
			item: core.QueryResultItem{
				Source: d.Source, Line: d.Line, Title: d.Title,
				URL: d.URL, Content: d.Content,
			},
			kind:  core.EntityDocument,
			owner: d.Responder,
			body:  d.Title + " " + d.Content + " document",
		})
	}
	return b
}

func (b *Base) add(e entry) {
	e.words = wordSet(e.item.Name + " " + e.item.Title + " " + e.body)
	b.entries = append(b.entries, e)
	if e.owner != "" {
		key := strings.ToLower(e.owner)
		b.byOwner[key] = append(b.byOwner[key], len(b.entries)-1)
	}
}

func (b *Base) Stats() core.KBStats {
	return core.KBStats{
		Facts:      len(b.file.Facts),
		Rules:      len(b.file.Rules),
		Responders: len(b.file.Responders),
		Functions:  len(b.file.Functions),
		Documents:  len(b.file.Documents),
	}
}

// Query scores every entry against text.
func (b *Base) Query(text string, limit int) core.QueryResult {
	return b.search(text, limit, b.all())
}

// QueryOwned scores only the entries belonging to owner.
func (b *Base) QueryOwned(text, owner string, limit int) core.QueryResult {
	return b.search(text, limit, b.byOwner[strings.ToLower(owner)])
}

func (b *Base) all() []int {
	idx := make([]int, len(b.entries))
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func (b *Base) search(text string, limit int, candidates []int) core.QueryResult {
	keywords := Keywords(text)
	lower := strings.ToLower(text)

	var items []core.QueryResultItem
	for _, i := range candidates {
		e := b.entries[i]
		score := 0.0
		if len(keywords) > 0 {
			hits := 0
			for _, k := range keywords {
				if e.words[k] {
					hits++
				}
			}
			score = keywordWeight * float64(hits) / float64(len(keywords))
		}
		if e.item.Name != "" && strings.Contains(lower, strings.ToLower(e.item.Name)) {
			score += nameWeight
		}
		if score <= 0 {
			continue
		}
		it := e.item
		it.Score = core.Clamp(score)
		items = append(items, it)
	}

	slices.SortStableFunc(items, func(a, b core.QueryResultItem) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := strings.Compare(a.Source, b.Source); c != 0 {
			return c
		}
		return cmp.Compare(a.Line, b.Line)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	if len(items) == 0 {
		return core.QueryResult{Answer: nothingFound, Results: []core.QueryResultItem{}, Confidence: nothingFoundConf}
	}
	return core.QueryResult{
		Answer:     Summarize(items),
		Results:    items,
		Confidence: items[0].Score,
	}
}

// Summarize renders the best items as a markdown answer.
func Summarize(items []core.QueryResultItem) string {
	var lines []string
	for i, it := range items {
		if i == answerItems {
			break
		}
		lines = append(lines, "- "+describe(it))
	}
	return strings.Join(lines, "\n")
}

func describe(it core.QueryResultItem) string {
	content := tokens.Truncate(strings.TrimSpace(it.Content), snippetTokens)
	switch {
	case it.Name != "" && it.Dimension != "":
		return fmt.Sprintf("**%s** (%s): %s", it.Name, it.Dimension, content)
	case it.Name != "" && it.Signature != "":
		return fmt.Sprintf("`%s`: %s", it.Signature, content)
	case it.RequirementLevel != "":
		return fmt.Sprintf("**%s**: %s", it.RequirementLevel, content)
	case it.Name != "":
		return fmt.Sprintf("**%s**: %s", it.Name, content)
	}
	return fmt.Sprintf("**%s**: %s", or(it.Title, it.Source), content)
}

func labelled(label string, items []string) string {
	if len(items) == 0 {
		return ""
	}
	return label + ": " + strings.Join(items, ", ") + "."
}

// Keywords lowercases, drops stop words and folds simple plurals.
func Keywords(text string) []string {
	var out []string
	seen := map[string]bool{}
	for _, w := range tokenRe.FindAllString(strings.ToLower(text), -1) {
		if len(w) < 2 || stopWords[w] {
			continue
		}
		w = stem(w)
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}

func wordSet(text string) map[string]bool {
	set := map[string]bool{}
	for _, w := range tokenRe.FindAllString(strings.ToLower(text), -1) {
		set[w] = true
		set[stem(w)] = true
	}
	return set
}

func stem(w string) string {
	switch {
	case len(w) > 4 && strings.HasSuffix(w, "ies"):
		return w[:len(w)-3] + "y"
	case len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss"):
		return w[:len(w)-1]
	}
	return w
}

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true, "be": true,
	"what": true, "which": true, "who": true, "how": true, "why": true, "when": true, "where": true,
	"do": true, "does": true, "did": true, "of": true, "to": true, "in": true, "on": true, "for": true,
	"and": true, "or": true, "it": true, "its": true, "me": true, "about": true, "tell": true,
	"there": true, "this": true, "that": true, "with": true, "can": true, "you": true, "please": true,
	"show": true, "give": true, "list": true, "available": true, "any": true, "all": true, "some": true,
}
