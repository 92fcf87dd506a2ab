// Package routing connects messaging channels to the chat engine.
package routing

import (
	"context"
	"fmt"
	"time"

	"github.com/soyeahso/mrbooky/internal/agent"
	"github.com/soyeahso/mrbooky/internal/channel"
	"github.com/soyeahso/mrbooky/internal/domain"
	"github.com/soyeahso/mrbooky/internal/logging"
)

// turnTimeout bounds one channel turn.
const turnTimeout = 30 * time.Second

// Engine answers channel messages. *agent.Runner implements it.
type Engine interface {
	RunInbound(ctx context.Context, key domain.SessionKey, msg domain.InboundMessage) (*agent.RunResult, error)
}

// Router routes inbound messages to the engine and replies through the
// originating channel.
type Router struct {
	channels *channel.Registry
	engine   Engine
	scope    string
	log      *logging.Logger
}

// NewRouter creates a message router. An empty scope means per-sender.
func NewRouter(channels *channel.Registry, engine Engine, scope string, log *logging.Logger) *Router {
	if scope == "" {
		scope = ScopePerSender
	}
	return &Router{
		channels: channels,
		engine:   engine,
		scope:    scope,
		log:      log.Sub("routing"),
	}
}

// HandleInbound processes an inbound message from any channel.
func (r *Router) HandleInbound(ctx context.Context, msg domain.InboundMessage) {
	log := r.log.Zerolog().With().
		Str("channel", msg.ChannelID).
		Str("from", msg.From).
		Str("chatId", msg.ChatID).
		Logger()

	if r.engine == nil {
		log.Warn().Msg("no chat engine configured, dropping message")
		return
	}
	ch, ok := r.channels.Get(msg.ChannelID)
	if !ok {
		log.Error().Msg("channel not found for reply")
		return
	}

	key := ResolveSessionKey(msg, r.scope)

	ctx, cancel := context.WithTimeout(ctx, turnTimeout)
	defer cancel()

	res, err := r.engine.RunInbound(ctx, key, msg)
	if err != nil {
		log.Error().Err(err).Str("session", key.String()).Msg("chat turn failed")
		return
	}

	reply := domain.OutboundMessage{
		ChannelID: msg.ChannelID,
		To:        replyTarget(msg),
		Body:      FormatReply(msg, res),
	}
	if err := ch.Send(ctx, reply); err != nil {
		log.Error().Err(err).Str("to", reply.To).Msg("failed to send reply")
		return
	}

	log.Info().
		Str("to", reply.To).
		Str("session", key.String()).
		Str("intent", res.Intent.Short()).
		Dur("duration", res.Duration).
		Msg("reply sent")
}

// Wire registers HandleInbound as the message handler on all channels.
func (r *Router) Wire(ctx context.Context) {
	for _, id := range r.channels.List() {
		ch, ok := r.channels.Get(id)
		if !ok {
			continue
		}
		ch.OnMessage(func(msg domain.InboundMessage) {
			go r.HandleInbound(ctx, msg)
		})
		r.log.Debug().Str("channel", id).Msg("wired message handler")
	}
}

// FormatReply renders a chat result for a text-only channel: the map link
// goes on its own line, and group replies are prefixed with the sender's
// nick so the room can tell who is being answered.
func FormatReply(msg domain.InboundMessage, res *agent.RunResult) string {
	body := res.Reply
	if res.MapURL != "" {
		body += "\n🗺 " + res.MapURL
	}
	if msg.ChatType == domain.ChatTypeGroup && msg.From != "" {
		body = msg.From + ": " + body
	}
	return body
}

// replyTarget determines where to send the response.
func replyTarget(msg domain.InboundMessage) string {
	if msg.ChatType == domain.ChatTypeDM {
		return msg.From
	}
	return msg.ChatID
}

// SendTo sends a message to a specific channel.
func (r *Router) SendTo(ctx context.Context, channelID, target, body string) error {
	if _, ok := r.channels.Get(channelID); !ok {
		return fmt.Errorf("channel not found: %s", channelID)
	}
	return r.channels.Send(ctx, domain.OutboundMessage{
		ChannelID: channelID,
		To:        target,
		Body:      body,
	})
}
