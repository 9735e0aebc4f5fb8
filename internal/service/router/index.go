package router

import (
	"slices"
	"strings"

	"github.com/sandevgo/kbqa/internal/core"
)

// Index holds lookup tables built once per knowledge base load.
type Index struct {
	byID        map[string]core.Responder
	byName      map[string]string
	byDimension map[string][]string
	functional  []string
	ids         []string
	names       []string

	functions map[string]string
	fnNames   []string
}

func NewIndex(responders []core.Responder, functions []string) *Index {
	idx := &Index{
		byID:        make(map[string]core.Responder, len(responders)),
		byName:      make(map[string]string, len(responders)),
		byDimension: make(map[string][]string),
		functions:   make(map[string]string, len(functions)),
	}

	for _, r := range responders {
		def := r.Definition()
		if def.ID == "" {
			continue
		}
		idx.byID[def.ID] = r
	}

	// Deterministic order: by display name, then id.
	ids := make([]string, 0, len(idx.byID))
	for id := range idx.byID {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		na, nb := idx.byID[a].Definition().Name, idx.byID[b].Definition().Name
		if c := strings.Compare(strings.ToLower(na), strings.ToLower(nb)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})

	for _, id := range ids {
		if id == core.DefaultResponderID {
			continue
		}
		def := idx.byID[id].Definition()
		idx.ids = append(idx.ids, id)
		idx.names = append(idx.names, def.Name)
		if _, dup := idx.byName[strings.ToLower(def.Name)]; !dup {
			idx.byName[strings.ToLower(def.Name)] = id
		}
		if dim := strings.ToUpper(def.Dimension); dim != "" {
			idx.byDimension[dim] = append(idx.byDimension[dim], id)
		}
		if def.FunctionCapable {
			idx.functional = append(idx.functional, id)
		}
	}

	for _, fn := range functions {
		key := strings.ToLower(fn)
		if _, dup := idx.functions[key]; dup || fn == "" {
			continue
		}
		idx.functions[key] = fn
		idx.fnNames = append(idx.fnNames, fn)
	}
	slices.Sort(idx.fnNames)
	return idx
}

func (idx *Index) Responder(id string) (core.Responder, bool) {
	r, ok := idx.byID[id]
	return r, ok
}

func (idx *Index) Len() int {
	return len(idx.ids)
}

func (idx *Index) HasName(kind core.EntityKind, name string) bool {
	key := strings.ToLower(name)
	switch kind {
	case core.EntityResponder:
		_, ok := idx.byName[key]
		return ok
	case core.EntityFunction:
		_, ok := idx.functions[key]
		return ok
	}
	return false
}

// Candidates returns names containing fragment, case-insensitively.
func (idx *Index) Candidates(kind core.EntityKind, fragment string) []string {
	frag := strings.ToLower(fragment)
	if frag == "" {
		return nil
	}
	var out []string
	for _, n := range idx.Names(kind) {
		if strings.Contains(strings.ToLower(n), frag) {
			out = append(out, n)
		}
	}
	return out
}

func (idx *Index) Names(kind core.EntityKind) []string {
	switch kind {
	case core.EntityResponder:
		return idx.names
	case core.EntityFunction:
		return idx.fnNames
	}
	return nil
}

// match finds a responder for name: exact, then substring, then a
// dimension prefix combined with the name remainder.
func (idx *Index) match(name string) (string, string, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return "", "", false
	}
	if id, ok := idx.byName[key]; ok {
		return id, "exact name match", true
	}
	for _, id := range idx.ids {
		if strings.Contains(strings.ToLower(idx.byID[id].Definition().Name), key) {
			return id, "partial name match", true
		}
	}
	if m := dimPrefixRe.FindStringSubmatch(name); m != nil {
		dim, rest := strings.ToUpper(m[1]), strings.ToLower(m[2])
		for _, id := range idx.byDimension[dim] {
			if strings.Contains(strings.ToLower(idx.byID[id].Definition().Name), rest) {
				return id, "dimension prefix match", true
			}
		}
	}
	return "", "", false
}
