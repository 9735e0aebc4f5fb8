package command

import (
	"context"

	"github.com/sandevgo/kbqa/internal/core"
	"github.com/sandevgo/kbqa/internal/service/synth"
	"github.com/sandevgo/kbqa/pkg/log"
)

// Asker answers a question inside a conversation; an empty id starts one.
type Asker interface {
	AskIn(ctx context.Context, conversationID, text string) (core.FormattedResponse, error)
}

// Dispatcher is the shared entry point of chat transports: slash commands go
// to the router, everything else is asked in the session's conversation.
type Dispatcher struct {
	router core.CmdRouter
	asker  Asker
}

func NewDispatcher(router core.CmdRouter, asker Asker) *Dispatcher {
	return &Dispatcher{router: router, asker: asker}
}

// Handle returns the markdown reply for input.
func (d *Dispatcher) Handle(ctx context.Context, sess *core.Session, input string) (string, error) {
	if out, ok := d.router.Execute(ctx, sess, input); ok {
		return out, nil
	}

	ctx = log.With(ctx, "conversation_id", sess.ConversationID)
	resp, err := d.asker.AskIn(ctx, sess.ConversationID, input)
	if err != nil {
		return "", err
	}
	if sess.ConversationID != resp.ConversationID {
		log.FromCtx(ctx).Debug().Str("session", sess.Key).Str("new_conversation_id", resp.ConversationID).Msg("session bound to conversation")
		sess.ConversationID = resp.ConversationID
	}
	return synth.ToOutput(resp, core.OutputMarkdown)
}
