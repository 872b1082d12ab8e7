package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/squareb/menu-chatbot/internal/menu"
	"github.com/squareb/menu-chatbot/internal/observability"
)

const reloadChannel = "menu:reload"

// PubSub is the Redis surface the broadcaster needs.
type PubSub interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

type reloadEvent struct {
	Origin string    `json:"origin"`
	At     time.Time `json:"at"`
}

// ReloadBroadcaster tells other API instances sharing the Redis backend to
// reload their menu after this one reloaded through the API.
type ReloadBroadcaster struct {
	id     string
	bus    PubSub
	store  *menu.Store
	logger *observability.Logger
}

// NewReloadBroadcaster creates a broadcaster with a fresh instance id.
func NewReloadBroadcaster(bus PubSub, store *menu.Store, logger *observability.Logger) *ReloadBroadcaster {
	return &ReloadBroadcaster{
		id:     uuid.NewString(),
		bus:    bus,
		store:  store,
		logger: logger.WithOperation("menu_broadcast"),
	}
}

// Announce publishes a reload event.
func (b *ReloadBroadcaster) Announce(ctx context.Context) {
	payload, _ := json.Marshal(reloadEvent{Origin: b.id, At: time.Now().UTC()})
	if err := b.bus.Publish(ctx, reloadChannel, payload); err != nil {
		b.logger.Warn().Err(err).Msg("Failed to announce menu reload")
	}
}

// Run reloads the local menu whenever another instance announces a reload.
// It returns when ctx is cancelled.
func (b *ReloadBroadcaster) Run(ctx context.Context) error {
	msgs, stop, err := b.bus.Subscribe(ctx, reloadChannel)
	if err != nil {
		return err
	}
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case raw, ok := <-msgs:
			if !ok {
				return nil
			}
			var evt reloadEvent
			if err := json.Unmarshal(raw, &evt); err != nil {
				b.logger.Warn().Err(err).Msg("Ignoring malformed reload event")
				continue
			}
			if evt.Origin == b.id {
				continue
			}
			if _, err := b.store.Reload(ctx); err != nil {
				b.logger.Error().Err(err).Str("origin", evt.Origin).Msg("Reload requested by peer failed")
				continue
			}
			b.logger.Info().Str("origin", evt.Origin).Msg("Menu reloaded on peer request")
		}
	}
}
