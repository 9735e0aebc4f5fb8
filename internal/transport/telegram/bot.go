package telegram

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sandevgo/kbqa/internal/core"
	"github.com/sandevgo/kbqa/pkg/log"
	tele "gopkg.in/telebot.v3"
)

const baseContextKey = "base_context"

// Handler turns one chat message into a markdown reply.
type Handler interface {
	Handle(ctx context.Context, sess *core.Session, input string) (string, error)
}

type Bot struct {
	bot     *tele.Bot
	sender  *sender
	cfg     core.TelegramConfig
	handler Handler
	ownerID int64

	mu       sync.Mutex
	sessions map[int64]*chatSession
}

// chatSession serializes turns of one chat so follow-ups see their predecessors.
type chatSession struct {
	mu   sync.Mutex
	sess core.Session
}

func NewBot(
	ctx context.Context,
	cfg core.TelegramConfig,
	handler Handler,
) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.GetTelegramToken(),
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	bot := &Bot{
		bot:      b,
		sender:   newSender(b),
		cfg:      cfg,
		handler:  handler,
		ownerID:  cfg.GetTelegramOwnerID(),
		sessions: make(map[int64]*chatSession),
	}

	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			c.Set(baseContextKey, ctx)
			return next(c)
		}
	})

	// Only the owner is answered.
	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if c.Sender() == nil || c.Sender().ID != bot.ownerID {
				return nil
			}
			return next(c)
		}
	})

	b.Handle(tele.OnText, bot.handleMessage)

	return bot, nil
}

func (b *Bot) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Msg("starting telegram bot")
	b.bot.Start()
	return nil
}

func (b *Bot) Shutdown(ctx context.Context) error {
	b.bot.Stop()
	return nil
}

func (b *Bot) session(chatID int64) *chatSession {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.sessions[chatID]
	if !ok {
		s = &chatSession{sess: core.Session{Key: "telegram-" + strconv.FormatInt(chatID, 10)}}
		b.sessions[chatID] = s
	}
	return s
}

func (b *Bot) handleMessage(c tele.Context) error {
	ctx := c.Get(baseContextKey).(context.Context)
	s := b.session(c.Chat().ID)
	ctx = log.With(ctx, "session", s.sess.Key)
	logger := log.FromCtx(ctx)

	_ = c.Notify(tele.Typing)

	s.mu.Lock()
	reply, err := b.handler.Handle(ctx, &s.sess, c.Text())
	s.mu.Unlock()

	if err != nil {
		logger.Error().Err(err).Msg("question failed")
		return c.Send(fmt.Sprintf("error: %v", err))
	}

	return b.sender.sendMarkdown(ctx, c.Chat(), reply, false)
}
