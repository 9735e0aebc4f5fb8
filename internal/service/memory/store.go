package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sandevgo/kbqa/internal/config"
	"github.com/sandevgo/kbqa/internal/core"
	"github.com/sandevgo/kbqa/pkg/log"
)

// Store is the in-memory conversation context store. Writes to one
// conversation are serialized by its own mutex; distinct conversations
// proceed independently.
type Store struct {
	cfg *config.EngineConfig

	mu    sync.RWMutex
	convs map[string]*entry

	now   func() time.Time
	newID func() string
}

type entry struct {
	mu   sync.Mutex
	conv *core.Conversation
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

func NewStore(cfg *config.EngineConfig, opts ...Option) *Store {
	s := &Store{
		cfg:   cfg,
		convs: make(map[string]*entry),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Create(ctx context.Context, ownerID string) *core.Conversation {
	conv := core.NewConversation(s.newID(), ownerID, s.now())

	s.mu.Lock()
	s.convs[conv.ID] = &entry{conv: conv}
	s.mu.Unlock()

	log.FromCtx(ctx).Debug().Str("conversation_id", conv.ID).Str("owner_id", ownerID).Msg("conversation created")
	return conv.Clone()
}

func (s *Store) lookup(id string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.convs[id]
	if !ok {
		return nil, fmt.Errorf("conversation %q: %w", id, core.ErrNotFound)
	}
	return e, nil
}

func (s *Store) Get(ctx context.Context, id string) (*core.Conversation, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conv.Clone(), nil
}

func (s *Store) AddTurn(ctx context.Context, id string, turn core.Turn) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	conv := e.conv
	now := s.now()
	turn = turn.Clone()
	if turn.ID == "" {
		turn.ID = s.newID()
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = now
	}
	if n := len(conv.Turns); n > 0 {
		if last := conv.Turns[n-1].Timestamp; !turn.Timestamp.After(last) {
			turn.Timestamp = last.Add(time.Nanosecond)
		}
	}

	conv.Turns = append(conv.Turns, turn)
	s.setIntent(conv, turn.Intent)

	for _, ent := range turn.Entities {
		s.mergeEntity(conv, ent, now)
	}
	for _, a := range turn.ResponderAnswers {
		if a.ResponderID != "" {
			conv.Responders[a.ResponderID] = a.ResponderName
		}
	}
	if turn.Intent.Target != "" {
		conv.CurrentTopic = turn.Intent.Target
	}
	for _, u := range turn.Updates {
		if err := s.apply(conv, u, now); err != nil {
			log.FromCtx(ctx).Warn().Err(err).Str("conversation_id", id).Msg("skipping context update")
		}
	}

	if limit := s.cfg.HistoryCap; limit > 0 && len(conv.Turns) > limit {
		conv.Turns = slices.Clone(conv.Turns[len(conv.Turns)-limit:])
	}
	s.sweep(conv, now)
	conv.UpdatedAt = now
	return nil
}

func (s *Store) UpdateContext(ctx context.Context, id string, updates ...core.ContextUpdate) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := s.now()
	for _, u := range updates {
		if err := s.apply(e.conv, u, now); err != nil {
			return err
		}
	}
	e.conv.UpdatedAt = now
	return nil
}

func (s *Store) apply(conv *core.Conversation, u core.ContextUpdate, now time.Time) error {
	switch u.Kind {
	case core.UpdateEntity:
		if u.Entity == nil {
			return fmt.Errorf("entity update without entity: %w", core.ErrValidation)
		}
		s.mergeEntity(conv, *u.Entity, now)
	case core.UpdateIntent:
		if u.Intent == nil {
			return fmt.Errorf("intent update without intent: %w", core.ErrValidation)
		}
		s.setIntent(conv, *u.Intent)
	case core.UpdateTopic:
		conv.CurrentTopic = u.Topic
	case core.UpdateResponderAssignment:
		if u.ResponderID == "" {
			return fmt.Errorf("responder assignment without id: %w", core.ErrValidation)
		}
		conv.Responders[u.ResponderID] = u.ResponderName
	default:
		return fmt.Errorf("unknown update kind %q: %w", u.Kind, core.ErrValidation)
	}
	return nil
}

func (s *Store) setIntent(conv *core.Conversation, in core.Intent) {
	if conv.CurrentIntent != nil {
		conv.PreviousIntents = append(conv.PreviousIntents, *conv.CurrentIntent)
		if limit := s.cfg.HistoryCap; limit > 0 && len(conv.PreviousIntents) > limit {
			conv.PreviousIntents = slices.Clone(conv.PreviousIntents[len(conv.PreviousIntents)-limit:])
		}
	}
	in = in.Clone()
	conv.CurrentIntent = &in
}

func (s *Store) mergeEntity(conv *core.Conversation, ent core.Entity, now time.Time) {
	if ent.Name == "" {
		return
	}
	if ent.ID == "" {
		ent.ID = core.EntityID(ent.Kind, ent.Name)
	}

	existing, ok := conv.Entities[ent.ID]
	if !ok {
		ent = ent.Clone()
		ent.LastSeen = now
		conv.Entities[ent.ID] = ent
		return
	}

	if ent.Value != "" {
		existing.Value = ent.Value
	}
	for k, v := range ent.Metadata {
		if existing.Metadata == nil {
			existing.Metadata = map[string]string{}
		}
		existing.Metadata[k] = v
	}
	existing.LastSeen = now
	conv.Entities[ent.ID] = existing
}

// sweep drops entities not seen within the expiry window.
func (s *Store) sweep(conv *core.Conversation, now time.Time) {
	if s.cfg.EntityExpiry <= 0 {
		return
	}
	for id, ent := range conv.Entities {
		if now.Sub(ent.LastSeen) > s.cfg.EntityExpiry {
			delete(conv.Entities, id)
		}
	}
}

// History returns up to limit most recent turns in insertion order.
// A non-positive limit returns the whole history.
func (s *Store) History(ctx context.Context, id string, limit int) ([]core.Turn, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	turns := e.conv.Turns
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]core.Turn, len(turns))
	for i, t := range turns {
		out[i] = t.Clone()
	}
	return out, nil
}

func (s *Store) Clear(ctx context.Context, id string) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	cleared := core.NewConversation(e.conv.ID, e.conv.OwnerID, e.conv.CreatedAt)
	cleared.UpdatedAt = s.now()
	e.conv = cleared

	log.FromCtx(ctx).Debug().Str("conversation_id", id).Msg("conversation cleared")
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.convs[id]; !ok {
		return fmt.Errorf("conversation %q: %w", id, core.ErrNotFound)
	}
	delete(s.convs, id)

	log.FromCtx(ctx).Debug().Str("conversation_id", id).Msg("conversation deleted")
	return nil
}

func (s *Store) IDs() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.convs))
	for id := range s.convs {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.convs)
}
