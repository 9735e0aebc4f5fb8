package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sandevgo/kbqa/internal/core"
	"github.com/sandevgo/kbqa/internal/metrics"
	"github.com/sandevgo/kbqa/pkg/log"
)

const additionalHeading = "## Additional Information"

// Coordinate asks the primary route and, when it is not confident enough,
// up to MaxAdditional further routes concurrently. Additional responders
// that fail or time out are left out of the merged answer.
func (r *Router) Coordinate(ctx context.Context, routes []core.ResponderRoute, in core.Intent, conversationID string) (*core.Coordination, error) {
	if len(routes) == 0 {
		return nil, core.ErrNoRoutesAvailable
	}
	logger := log.FromCtx(ctx).With().Str("conversation_id", conversationID).Logger()
	idx := r.Index()
	question := in.ResolvedQuestion
	if question == "" {
		question = in.Question
	}

	primaryRoute := routes[0]
	primary, err := r.ask(ctx, idx, primaryRoute, question)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrResponderFailed, primaryRoute.ResponderName, err)
	}

	coord := &core.Coordination{
		Primary:        primary,
		MergedText:     primary.Answer,
		Confidence:     primaryRoute.Confidence,
		RespondersUsed: []string{primaryRoute.ResponderID},
	}
	if primaryRoute.Confidence >= r.cfg.CoordinationThreshold {
		return coord, nil
	}

	var extra []core.ResponderRoute
	for _, rt := range routes[1:] {
		if len(extra) >= r.cfg.MaxAdditional {
			break
		}
		if rt.Confidence > r.cfg.AdditionalThreshold && rt.ResponderID != primaryRoute.ResponderID {
			extra = append(extra, rt)
		}
	}
	if len(extra) == 0 {
		return coord, nil
	}

	answers := make([]*core.ResponderAnswer, len(extra))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.cfg.MaxAdditional, 1))
	for i, rt := range extra {
		g.Go(func() error {
			a, err := r.ask(gctx, idx, rt, question)
			if err != nil {
				logger.Warn().Err(err).Str("responder", rt.ResponderName).Msg("additional responder skipped")
				return nil
			}
			answers[i] = &a
			return nil
		})
	}
	_ = g.Wait()

	var (
		sum float64
		b   strings.Builder
	)
	for i, a := range answers {
		if a == nil {
			continue
		}
		coord.Additional = append(coord.Additional, *a)
		coord.RespondersUsed = append(coord.RespondersUsed, extra[i].ResponderID)
		sum += extra[i].Confidence
		fmt.Fprintf(&b, "\n\n### %s\n\n%s", a.ResponderName, strings.TrimSpace(a.Answer))
	}
	if n := len(coord.Additional); n > 0 {
		coord.MergedText = strings.TrimSpace(primary.Answer) + "\n\n" + additionalHeading + b.String()
		coord.Confidence = (primaryRoute.Confidence + sum/float64(n)) / 2
	}

	logger.Debug().
		Strs("responders", coord.RespondersUsed).
		Float64("confidence", coord.Confidence).
		Msg("responders coordinated")
	return coord, nil
}

func (r *Router) ask(ctx context.Context, idx *Index, rt core.ResponderRoute, question string) (core.ResponderAnswer, error) {
	resp, ok := idx.Responder(rt.ResponderID)
	if !ok {
		return core.ResponderAnswer{}, fmt.Errorf("%w: responder %q", core.ErrNotFound, rt.ResponderID)
	}

	tctx, cancel := context.WithTimeout(ctx, r.cfg.ResponderTimeout)
	defer cancel()

	start := time.Now()
	a, err := resp.Answer(tctx, question)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RecordResponderCall(rt.ResponderID, status, time.Since(start).Seconds())
	if err != nil {
		return core.ResponderAnswer{}, err
	}

	if a.ResponderID == "" {
		a.ResponderID = rt.ResponderID
	}
	if a.ResponderName == "" {
		a.ResponderName = rt.ResponderName
	}
	if a.Confidence == 0 {
		a.Confidence = rt.Confidence
	}
	return a, nil
}
