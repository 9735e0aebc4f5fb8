package core

import (
	"maps"
	"strings"
	"time"
)

type EntityKind string

const (
	EntityResponder EntityKind = "responder"
	EntityFunction  EntityKind = "function"
	EntityRule      EntityKind = "rule"
	EntityFact      EntityKind = "fact"
	EntityDocument  EntityKind = "document"
	EntityConcept   EntityKind = "concept"
)

type Entity struct {
	ID       string            `json:"id"`
	Kind     EntityKind        `json:"kind"`
	Name     string            `json:"name"`
	Value    string            `json:"value,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
	LastSeen time.Time         `json:"lastSeen"`
}

func NewEntity(kind EntityKind, name string) Entity {
	return Entity{ID: EntityID(kind, name), Kind: kind, Name: name}
}

func EntityID(kind EntityKind, name string) string {
	return string(kind) + ":" + strings.ToLower(strings.TrimSpace(name))
}

func (e Entity) Clone() Entity {
	e.Metadata = maps.Clone(e.Metadata)
	return e
}

type UpdateKind string

const (
	UpdateEntity              UpdateKind = "entity"
	UpdateIntent              UpdateKind = "intent"
	UpdateTopic               UpdateKind = "topic"
	UpdateResponderAssignment UpdateKind = "responder-assignment"
)

type ContextUpdate struct {
	Kind          UpdateKind `json:"kind"`
	Entity        *Entity    `json:"entity,omitempty"`
	Intent        *Intent    `json:"intent,omitempty"`
	Topic         string     `json:"topic,omitempty"`
	ResponderID   string     `json:"responderId,omitempty"`
	ResponderName string     `json:"responderName,omitempty"`
}

type ResponderAnswer struct {
	ResponderID   string  `json:"responderId"`
	ResponderName string  `json:"responderName"`
	Source        string  `json:"source,omitempty"`
	Answer        string  `json:"answer"`
	Confidence    float64 `json:"confidence"`
}

// Turn is one question/answer exchange. Turns are never mutated after creation.
type Turn struct {
	ID               string            `json:"id"`
	Timestamp        time.Time         `json:"timestamp"`
	Text             string            `json:"text"`
	Intent           Intent            `json:"intent"`
	ResponderAnswers []ResponderAnswer `json:"responderAnswers,omitempty"`
	MergedAnswer     string            `json:"mergedAnswer,omitempty"`
	Updates          []ContextUpdate   `json:"contextUpdates,omitempty"`
	Entities         []Entity          `json:"entities,omitempty"`
}

func (t Turn) Clone() Turn {
	out := t
	out.Intent = t.Intent.Clone()
	out.ResponderAnswers = append([]ResponderAnswer(nil), t.ResponderAnswers...)
	if t.Updates != nil {
		out.Updates = make([]ContextUpdate, len(t.Updates))
		for i, u := range t.Updates {
			if u.Entity != nil {
				e := u.Entity.Clone()
				u.Entity = &e
			}
			if u.Intent != nil {
				in := u.Intent.Clone()
				u.Intent = &in
			}
			out.Updates[i] = u
		}
	}
	if t.Entities != nil {
		out.Entities = make([]Entity, len(t.Entities))
		for i, e := range t.Entities {
			out.Entities[i] = e.Clone()
		}
	}
	return out
}

type Conversation struct {
	ID              string            `json:"id"`
	OwnerID         string            `json:"ownerId,omitempty"`
	Turns           []Turn            `json:"turns"`
	Entities        map[string]Entity `json:"entities"`
	CurrentIntent   *Intent           `json:"currentIntent,omitempty"`
	PreviousIntents []Intent          `json:"previousIntents"`
	Responders      map[string]string `json:"responders"`
	CurrentTopic    string            `json:"currentTopic,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

func NewConversation(id, ownerID string, now time.Time) *Conversation {
	return &Conversation{
		ID:              id,
		OwnerID:         ownerID,
		Turns:           []Turn{},
		Entities:        map[string]Entity{},
		PreviousIntents: []Intent{},
		Responders:      map[string]string{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Clone returns a deep copy safe to hand out of the context store.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	out := *c
	out.Turns = make([]Turn, len(c.Turns))
	for i, t := range c.Turns {
		out.Turns[i] = t.Clone()
	}
	out.Entities = make(map[string]Entity, len(c.Entities))
	for k, e := range c.Entities {
		out.Entities[k] = e.Clone()
	}
	if c.CurrentIntent != nil {
		in := c.CurrentIntent.Clone()
		out.CurrentIntent = &in
	}
	out.PreviousIntents = make([]Intent, len(c.PreviousIntents))
	for i, in := range c.PreviousIntents {
		out.PreviousIntents[i] = in.Clone()
	}
	out.Responders = maps.Clone(c.Responders)
	if out.Responders == nil {
		out.Responders = map[string]string{}
	}
	return &out
}

// RecentTurns returns up to n turns, most recent first.
func (c *Conversation) RecentTurns(n int) []Turn {
	if c == nil || n <= 0 {
		return nil
	}
	out := make([]Turn, 0, n)
	for i := len(c.Turns) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, c.Turns[i])
	}
	return out
}

func (c *Conversation) HasTurns() bool {
	return c != nil && len(c.Turns) > 0
}
