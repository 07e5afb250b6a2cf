package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// locationChannel is the pub/sub channel carrying location change
// notifications. The payload is the technician ID whose sample changed.
const locationChannel = "dispatch:locations"

const feedBuffer = 16

// LocationFeed adapts Redis pub/sub into the location store's
// change-notification feed. It is both the subscriber side consumed by the
// synchronizer and the publisher side used after sample writes.
//
// Notifications are best-effort: if the subscriber falls behind, messages
// are dropped rather than buffered without bound; every notification
// triggers the same full refresh, so a dropped one costs nothing beyond
// waiting for the next notification or poll.
type LocationFeed struct {
	client  *redis.Client
	sub     *redis.PubSub
	updates chan string
	log     zerolog.Logger
}

// NewLocationFeed subscribes to the location channel and starts forwarding
// notifications. Close releases the subscription.
func NewLocationFeed(ctx context.Context, client *redis.Client, log zerolog.Logger) *LocationFeed {
	f := &LocationFeed{
		client:  client,
		sub:     client.Subscribe(ctx, locationChannel),
		updates: make(chan string, feedBuffer),
		log:     log,
	}
	go f.forward()
	return f
}

// Updates delivers the technician ID of each change notification. The
// channel closes when the feed is closed.
func (f *LocationFeed) Updates() <-chan string {
	return f.updates
}

// NotifyLocationChange publishes a change notification for a technician.
func (f *LocationFeed) NotifyLocationChange(ctx context.Context, technicianID string) error {
	return f.client.Publish(ctx, locationChannel, technicianID).Err()
}

// Close tears down the subscription; the Updates channel closes once the
// forwarder drains.
func (f *LocationFeed) Close() error {
	return f.sub.Close()
}

func (f *LocationFeed) forward() {
	defer close(f.updates)
	for msg := range f.sub.Channel() {
		select {
		case f.updates <- msg.Payload:
		default:
			f.log.Debug().Str("technician_id", msg.Payload).Msg("location notification dropped, subscriber busy")
		}
	}
}
