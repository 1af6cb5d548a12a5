package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/talaria-bot/talaria/pkg/domain/model"
	"github.com/talaria-bot/talaria/pkg/domain/model/whatsapp"
	"github.com/talaria-bot/talaria/pkg/domain/types"
	whatsappsvc "github.com/talaria-bot/talaria/pkg/service/whatsapp"
	"github.com/talaria-bot/talaria/pkg/utils/async"
	"github.com/talaria-bot/talaria/pkg/utils/errutil"
	"github.com/talaria-bot/talaria/pkg/utils/logging"
)

const (
	// DefaultDispatchAttempts bounds retries of a dispatch that fails at the
	// transport level. Gateway rejections are never retried.
	DefaultDispatchAttempts = 3

	// DefaultDispatchBackoff is the initial backoff before a dispatch retry;
	// it doubles per attempt
	DefaultDispatchBackoff = 500 * time.Millisecond

	embedTimeout    = 30 * time.Second
	searchTimeout   = 10 * time.Second
	generateTimeout = 60 * time.Second
)

// HandleInbound normalizes a raw webhook delivery and hands each event to
// the conversation-keyed pool, so the webhook can acknowledge before
// processing finishes. Without a pool the events run inline and the first
// event's terminal result is returned; with a pool the result reports the
// delivery as received with a queueing summary. A parse failure is returned
// as an error for the caller to log; it never aborts the server.
func (uc *UseCases) HandleInbound(ctx context.Context, raw []byte) (*model.ProcessingResult, error) {
	if err := uc.inboundReady(); err != nil {
		return nil, err
	}

	events, err := whatsapp.ParsePayload(raw)
	if err != nil {
		return nil, err
	}

	if uc.pool == nil {
		var first *model.ProcessingResult
		for _, ev := range events {
			result := uc.ProcessEvent(ctx, ev)
			if first == nil {
				first = result
			}
		}
		return first, nil
	}

	queued := 0
	for _, ev := range events {
		ev := ev
		err := uc.pool.Submit(ctx, ev.ConversationKey(), func(ctx context.Context) error {
			uc.ProcessEvent(ctx, ev)
			return nil
		})
		if err != nil {
			// The event fails but the delivery is still acknowledged, so the
			// gateway does not enter a retry storm
			errutil.Handle(ctx, err, "failed to enqueue inbound event")
			continue
		}
		queued++
	}

	return &model.ProcessingResult{
		MessageID: events[0].MessageID,
		EventType: events[0].EventType,
		State:     types.ProcessingStateReceived,
		Detail:    fmt.Sprintf("%d of %d events queued", queued, len(events)),
	}, nil
}

// ProcessEvent walks one inbound event through its lifecycle and returns the
// terminal result. Failures never propagate as errors: they land in the
// Failed state with detail, so one event cannot break its lane or its
// neighbors.
func (uc *UseCases) ProcessEvent(ctx context.Context, ev *model.InboundEvent) *model.ProcessingResult {
	logger := logging.From(ctx).With(
		"message_id", ev.MessageID,
		"event_type", ev.EventType.String(),
	)
	ctx = logging.With(ctx, logger)

	result := &model.ProcessingResult{
		MessageID: ev.MessageID,
		EventType: ev.EventType,
		State:     types.ProcessingStateReceived,
	}
	logger.Debug("Event received")

	switch ev.EventType {
	case types.EventTypeDeliveryStatusUpdated, types.EventTypeReadStatusUpdated:
		// Receipts for our own sends need no reply
		logger.Info("Delivery status updated", "status", ev.Status.String())
		result.State = types.ProcessingStateAcknowledged
		result.Detail = "status update logged"
		return result

	case types.EventTypeUnknown:
		logger.Warn("Unclassifiable event discarded")
		result.State = types.ProcessingStateDiscarded
		result.Detail = "unclassifiable event"
		return result
	}

	if err := uc.inboundReady(); err != nil {
		return uc.fail(ctx, result, err, "inbound pipeline is not configured")
	}

	isNew, err := uc.repo.Dedupe().IsNew(ctx, ev.MessageID)
	if err != nil {
		return uc.fail(ctx, result, err, "dedupe check failed")
	}
	if !isNew {
		logger.Info("Duplicate delivery discarded")
		result.State = types.ProcessingStateDiscarded
		result.Detail = "duplicate delivery"
		return result
	}

	result.State = types.ProcessingStateNormalized
	logger.Debug("Event normalized", "conversation", ev.ConversationKey())

	if uc.limiter != nil && !uc.limiter.Allow(ev.FromID) {
		logger.Warn("Rate limit exceeded", "sender", ev.FromID)
		return uc.dispatchReply(ctx, result,
			model.NewTextMessage(ev.FromID, uc.profile.RateLimited), "rate limited")
	}

	// Read receipt is best effort and must not delay the reply
	messageID := ev.MessageID
	async.Dispatch(ctx, func(ctx context.Context) error {
		return uc.gateway.MarkAsRead(ctx, messageID)
	})

	switch content := ev.Content.(type) {
	case model.TextContent:
		return uc.processText(ctx, result, ev, content.Body)

	case model.DocumentContent:
		logger.Info("Document receipt", "filename", content.Filename)
		return uc.dispatchReply(ctx, result,
			model.NewTextMessage(ev.FromID, uc.profile.Unsupported), "document receipt")

	case model.InteractiveContent:
		logger.Info("Interactive selection", "selection_id", content.SelectionID)
		return uc.dispatchReply(ctx, result,
			model.NewTextMessage(ev.FromID, uc.profile.Unsupported), "interactive selection")

	default:
		logger.Warn("Unsupported content kind")
		return uc.dispatchReply(ctx, result,
			model.NewTextMessage(ev.FromID, uc.profile.Fallback), "unsupported content")
	}
}

// processText runs the retrieval pipeline for a text message: embed the
// query, search the store, generate a grounded reply, dispatch it. An empty
// body gets the welcome message instead.
func (uc *UseCases) processText(ctx context.Context, result *model.ProcessingResult, ev *model.InboundEvent, body string) *model.ProcessingResult {
	body = strings.TrimSpace(body)
	if body == "" {
		return uc.dispatchWelcome(ctx, result, ev.FromID)
	}

	embedCtx, cancel := context.WithTimeout(ctx, embedTimeout)
	embedding, err := uc.responder.Embed(embedCtx, body)
	cancel()
	if err != nil {
		return uc.fail(ctx, result, err, "failed to embed query")
	}

	searchCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	hits, err := uc.search.Search(searchCtx, embedding, uc.topK, uc.threshold)
	cancel()
	if err != nil {
		return uc.fail(ctx, result, err, "search failed")
	}

	result.State = types.ProcessingStateSearched
	result.Hits = len(hits)
	logging.From(ctx).Info("Knowledge base searched", "hits", len(hits))

	reply := uc.profile.Fallback
	if len(hits) > 0 {
		generateCtx, cancel := context.WithTimeout(ctx, generateTimeout)
		text, err := uc.responder.Reply(generateCtx, body, hits)
		cancel()
		if err != nil {
			// Degrade to the canned fallback instead of failing the event
			errutil.Handle(ctx, err, "reply generation failed")
		} else {
			reply = text
		}
	}

	return uc.dispatchReply(ctx, result, model.NewTextMessage(ev.FromID, reply), "reply dispatched")
}

// dispatchWelcome greets a sender who wrote nothing, attaching the
// quick-reply menu when one is configured
func (uc *UseCases) dispatchWelcome(ctx context.Context, result *model.ProcessingResult, recipient string) *model.ProcessingResult {
	var msg *model.OutboundMessage
	if len(uc.profile.Menu) > 0 {
		msg = model.NewQuickReplyMessage(recipient, uc.profile.Welcome, uc.profile.Menu)
	} else {
		msg = model.NewTextMessage(recipient, uc.profile.Welcome)
	}
	return uc.dispatchReply(ctx, result, msg, "welcome dispatched")
}

// dispatchReply sends the outbound message and settles the event. Transport
// failures are retried with exponential backoff up to the configured bound;
// gateway rejections and validation failures are final on first sight.
func (uc *UseCases) dispatchReply(ctx context.Context, result *model.ProcessingResult, msg *model.OutboundMessage, detail string) *model.ProcessingResult {
	if uc.health != nil && !uc.health.Healthy() {
		err := goerr.New("dispatch gated by failing health probe",
			goerr.V("recipient", msg.Recipient))
		return uc.fail(ctx, result, err, "dispatch gated")
	}

	sent, err := uc.sendWithRetry(ctx, msg)
	if err != nil {
		return uc.fail(ctx, result, err, "dispatch failed")
	}

	result.State = types.ProcessingStateDispatched
	result.ReplyID = sent.MessageID
	logging.From(ctx).Info("Reply dispatched", "reply_id", sent.MessageID)

	result.State = types.ProcessingStateAcknowledged
	result.Detail = detail
	logging.From(ctx).Info("Event acknowledged", "detail", detail)
	return result
}

func (uc *UseCases) sendWithRetry(ctx context.Context, msg *model.OutboundMessage) (*whatsappsvc.SendResult, error) {
	backoff := uc.dispatchBackoff
	var lastErr error

	for attempt := 1; attempt <= uc.dispatchAttempts; attempt++ {
		sent, err := uc.gateway.Send(ctx, msg)
		if err == nil {
			return sent, nil
		}
		lastErr = err

		if !types.IsTransportError(err) {
			return nil, err
		}
		if attempt == uc.dispatchAttempts {
			break
		}

		logging.From(ctx).Warn("Transport failure, retrying dispatch",
			"attempt", attempt,
			"backoff", backoff.String(),
			"error", err.Error())

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, goerr.Wrap(ctx.Err(), "dispatch cancelled during backoff")
		}
		backoff *= 2
	}

	return nil, goerr.Wrap(lastErr, "dispatch failed after retries",
		goerr.V("attempts", uc.dispatchAttempts))
}

// fail settles the event in the Failed terminal state and reports the cause
func (uc *UseCases) fail(ctx context.Context, result *model.ProcessingResult, err error, msg string) *model.ProcessingResult {
	errutil.Handle(ctx, err, msg)
	result.State = types.ProcessingStateFailed
	result.Detail = msg
	return result
}

func (uc *UseCases) inboundReady() error {
	if uc.gateway == nil || uc.responder == nil || uc.search == nil {
		return goerr.New("inbound pipeline is not configured",
			goerr.V("gateway", uc.gateway != nil),
			goerr.V("responder", uc.responder != nil),
			goerr.V("search", uc.search != nil))
	}
	return nil
}
