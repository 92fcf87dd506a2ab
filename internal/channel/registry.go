// Package channel keeps track of the messaging integrations mrbooky talks
// through besides the web gateway.
package channel

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/soyeahso/mrbooky/internal/domain"
	"github.com/soyeahso/mrbooky/internal/logging"
)

// Registry manages a set of messaging channels.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]domain.Channel
	log      *logging.Logger
}

// NewRegistry creates a channel registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		channels: make(map[string]domain.Channel),
		log:      log.Sub("channels"),
	}
}

// Register adds a channel, replacing any channel with the same ID.
func (r *Registry) Register(ch domain.Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[ch.ID()] = ch
	r.log.Info().Str("channel", ch.ID()).Msg("channel registered")
}

// Get returns a channel by ID.
func (r *Registry) Get(id string) (domain.Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[id]
	return ch, ok
}

// List returns all channel IDs, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.channels))
	for id := range r.channels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Send routes msg to the channel named by msg.ChannelID. It lets the
// registry stand in wherever a single sender is expected, such as the
// booking announcer.
func (r *Registry) Send(ctx context.Context, msg domain.OutboundMessage) error {
	ch, ok := r.Get(msg.ChannelID)
	if !ok {
		return fmt.Errorf("channel not found: %s", msg.ChannelID)
	}
	return ch.Send(ctx, msg)
}

// Status returns the status of all registered channels, ordered by ID.
func (r *Registry) Status() []domain.ChannelStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	statuses := make([]domain.ChannelStatus, 0, len(r.channels))
	for _, ch := range r.channels {
		if sc, ok := ch.(interface{ Status() domain.ChannelStatus }); ok {
			statuses = append(statuses, sc.Status())
		} else {
			statuses = append(statuses, domain.ChannelStatus{
				ChannelID: ch.ID(),
				Running:   true,
			})
		}
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].ChannelID < statuses[j].ChannelID })
	return statuses
}

// StartAll starts every channel in its own goroutine, since Start blocks
// for the lifetime of a connection.
func (r *Registry) StartAll(ctx context.Context) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, ch := range r.channels {
		r.log.Info().Str("channel", id).Msg("starting channel")
		go func(id string, ch domain.Channel) {
			if err := ch.Start(ctx); err != nil && ctx.Err() == nil {
				r.log.Error().Err(err).Str("channel", id).Msg("channel exited with error")
			}
		}(id, ch)
	}
}

// StopAll stops all registered channels.
func (r *Registry) StopAll(ctx context.Context) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, ch := range r.channels {
		if err := ch.Stop(ctx); err != nil {
			r.log.Error().Err(err).Str("channel", id).Msg("failed to stop channel")
		}
	}
}

// Count returns the number of registered channels.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}
