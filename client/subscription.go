package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Spiderbuttons/autosort/event"
	"github.com/Spiderbuttons/autosort/swp"
)

// Subscribe subscribes to an event topic and returns a channel of events.
// The channel is closed when the client disconnects or Unsubscribe is called.
//
// Topics follow the autosort event convention:
//   - "sort:<sortID>"  Events for a specific sort run
//   - "site:<name>"    All events for a site
//   - "sorts"          All sort lifecycle events
//   - "firehose"       Everything
func (c *Client) Subscribe(ctx context.Context, channel string) (<-chan *event.Event, error) {
	// Send subscribe request.
	_, err := c.request(ctx, swp.MethodSubscribe, swp.SubscribeRequest{
		Channel: channel,
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to %q: %w", channel, err)
	}

	ch := make(chan *event.Event, 64)
	c.subs.Store(channel, ch)

	return ch, nil
}

// Unsubscribe removes a subscription.
func (c *Client) Unsubscribe(ctx context.Context, channel string) error {
	_, err := c.request(ctx, swp.MethodUnsubscribe, swp.UnsubscribeRequest{
		Channel: channel,
	})

	// Close and remove the local channel regardless.
	if val, ok := c.subs.LoadAndDelete(channel); ok {
		ch := val.(chan *event.Event) //nolint:errcheck // subs map always stores chan *event.Event
		close(ch)
	}

	return err
}

// Watch subscribes to events for a specific sort run and returns an event
// channel. This is a convenience method that subscribes to "sort:<sortID>".
func (c *Client) Watch(ctx context.Context, sortID string) (<-chan *event.Event, error) {
	return c.Subscribe(ctx, event.SortTopic(sortID))
}

// WatchSite subscribes to all events for a site.
func (c *Client) WatchSite(ctx context.Context, site string) (<-chan *event.Event, error) {
	return c.Subscribe(ctx, event.SiteTopic(site))
}

// Stats retrieves broker and connection statistics from the server.
func (c *Client) Stats(ctx context.Context) (json.RawMessage, error) {
	resp, err := c.request(ctx, swp.MethodStats, nil)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}
