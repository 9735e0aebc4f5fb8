package memory

import (
	"regexp"
	"strings"

	"github.com/sandevgo/kbqa/internal/core"
)

var (
	pronounRe  = regexp.MustCompile(`(?i)\b(it|its|that|this|them|they|their|those|these)\b`)
	definiteRe = regexp.MustCompile(`(?i)\b(the|that|this|those|these)\s+([a-z][\w-]*)`)

	// A question naming its own dimension or asking for a list of a kind
	// is scoped by itself and does not point back at an earlier entity.
	dimensionScopeRe = regexp.MustCompile(`(?i)(?:^|[^\w-])\d+d(?:$|[^\w-])|\bdimension\s+\d+\b`)
	listScopeRe      = regexp.MustCompile(`(?i)\b(list|all|every|available)\b`)
	pluralKindRe     = regexp.MustCompile(`(?i)\b(agents|responders|functions|methods|rules|requirements|facts|documents)\b`)
)

// kindAliases are the words a user may use for an entity kind.
var kindAliases = map[core.EntityKind][]string{
	core.EntityResponder: {"responder", "agent"},
	core.EntityFunction:  {"function", "method"},
	core.EntityRule:      {"rule", "requirement"},
	core.EntityFact:      {"fact"},
	core.EntityDocument:  {"document", "doc", "page"},
	core.EntityConcept:   {"concept", "topic"},
}

// HasPronoun reports whether text contains a pronoun token.
func HasPronoun(text string) bool {
	return pronounRe.MatchString(text)
}

// HasReference reports whether text contains a pronoun or a definite reference.
func HasReference(text string) bool {
	return pronounRe.MatchString(text) || definiteRe.MatchString(text)
}

// ResolveReference resolves pronouns and definite references against the
// entities of the most recent turns, then against the current topic.
// Scan order is most-recent-turn-first so ties go to the latest mention.
func (s *Store) ResolveReference(text string, conv *core.Conversation) (core.Entity, bool) {
	if conv == nil || !HasReference(text) {
		return core.Entity{}, false
	}
	lower := strings.ToLower(text)
	recent := conv.RecentTurns(s.cfg.ReferenceWindow)
	scoped := ownScope(text)

	for _, turn := range recent {
		for _, ent := range turn.Entities {
			if namesEntity(lower, ent) || (!scoped && refersToKind(lower, ent.Kind)) {
				return ent.Clone(), true
			}
		}
	}
	if scoped {
		return core.Entity{}, false
	}

	pronoun := pronounRe.MatchString(text)
	if pronoun {
		for _, turn := range recent {
			if len(turn.Entities) > 0 {
				return turn.Entities[0].Clone(), true
			}
		}
	}

	if conv.CurrentTopic != "" && (pronoun || strings.Contains(lower, "topic")) {
		return topicEntity(conv), true
	}
	return core.Entity{}, false
}

func ownScope(text string) bool {
	return dimensionScopeRe.MatchString(text) || (listScopeRe.MatchString(text) && pluralKindRe.MatchString(text))
}

func namesEntity(lower string, ent core.Entity) bool {
	name := strings.ToLower(ent.Name)
	return name != "" && strings.Contains(lower, name)
}

func refersToKind(lower string, kind core.EntityKind) bool {
	for _, m := range definiteRe.FindAllStringSubmatch(lower, -1) {
		if nounMatchesKind(m[2], kind) {
			return true
		}
	}
	return false
}

func topicEntity(conv *core.Conversation) core.Entity {
	var (
		best  core.Entity
		found bool
	)
	for _, ent := range conv.Entities {
		if !strings.EqualFold(ent.Name, conv.CurrentTopic) {
			continue
		}
		if !found || ent.ID < best.ID {
			best, found = ent, true
		}
	}
	if found {
		return best.Clone()
	}
	return core.NewEntity(core.EntityConcept, conv.CurrentTopic)
}

// Substitute rewrites the reference in text with the entity name so the
// lexical classifiers see it. Definite phrases naming the entity kind are
// replaced first, then the first pronoun.
func Substitute(text string, ent core.Entity) string {
	if ent.Name == "" || strings.Contains(strings.ToLower(text), strings.ToLower(ent.Name)) || ownScope(text) {
		return text
	}

	for _, loc := range definiteRe.FindAllStringSubmatchIndex(text, -1) {
		noun := strings.ToLower(text[loc[4]:loc[5]])
		if !nounMatchesKind(noun, ent.Kind) {
			continue
		}
		end := loc[5]
		// Keep a possessive suffix attached to the name.
		return text[:loc[0]] + ent.Name + text[end:]
	}

	if loc := pronounRe.FindStringSubmatchIndex(text); loc != nil {
		word := strings.ToLower(text[loc[2]:loc[3]])
		repl := ent.Name
		if word == "its" || word == "their" {
			repl += "'s"
		}
		return text[:loc[0]] + repl + text[loc[1]:]
	}
	return text
}

func nounMatchesKind(noun string, kind core.EntityKind) bool {
	// Plurals name the whole kind, not an earlier entity.
	noun = strings.TrimSuffix(noun, "'s")
	if noun == string(kind) {
		return true
	}
	for _, alias := range kindAliases[kind] {
		if noun == alias {
			return true
		}
	}
	return false
}
