package mixpanel

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"maps"
	"runtime/debug"

	"github.com/google/uuid"
)

// Track records an event for distinctID (non-blocking).
//
// System properties are set first and caller properties are merged on top,
// so a caller value wins on key collision. Only encoding errors are
// returned; delivery failures are logged and dropped.
func (c *Client) Track(ctx context.Context, distinctID, eventName string, properties map[string]any) error {
	payload := c.eventPayload(Event{
		Name:       eventName,
		DistinctID: distinctID,
		Properties: properties,
	})

	data, err := Encode(payload)
	if err != nil {
		return fmt.Errorf("encoding event %q: %w", eventName, err)
	}

	c.spawn(ctx, EndpointEvents, data)
	return nil
}

// PeopleSet upserts profile properties for distinctID (non-blocking).
//
// Only the first call per client is sent unless forceUpdate is set. The
// client counts a call as done once it reaches dispatch, whether or not the
// request later succeeds. A payload dropped before dispatch (client closed
// or too many requests in flight) does not count.
func (c *Client) PeopleSet(ctx context.Context, distinctID string, properties map[string]any, forceUpdate bool) error {
	if c.profileSet.Load() && !forceUpdate {
		return nil
	}

	payload := c.profilePayload(ProfileUpdate{
		DistinctID: distinctID,
		Properties: properties,
	})

	data, err := Encode(payload)
	if err != nil {
		return fmt.Errorf("encoding profile update: %w", err)
	}

	if c.spawn(ctx, EndpointPeople, data) {
		c.profileSet.Store(true)
	}
	return nil
}

func (c *Client) eventPayload(event Event) map[string]any {
	properties := map[string]any{
		"token":        c.token,
		"distinct_id":  event.DistinctID,
		"time":         c.now().Unix(),
		"$insert_id":   c.newInsertID(),
		"mp_lib":       LibName,
		"$lib_version": LibVersion,
	}
	maps.Copy(properties, event.Properties)

	return map[string]any{
		"event":      event.Name,
		"properties": properties,
	}
}

func (c *Client) profilePayload(update ProfileUpdate) map[string]any {
	if update.Properties == nil {
		update.Properties = map[string]any{}
	}
	return map[string]any{
		"$token":       c.token,
		"$time":        c.now().Unix(),
		"$distinct_id": update.DistinctID,
		"$set":         update.Properties,
	}
}

// spawn runs dispatch in a detached goroutine and reports whether it did.
// The goroutine keeps the caller's context values but not its
// cancellation; only Close aborts it.
func (c *Client) spawn(ctx context.Context, endpoint string, data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	// wg.Go must not race with the wg.Wait in Close
	if c.closed {
		c.logger.Debug("Client closed, dropping payload", "endpoint", endpoint)
		c.metrics.dropped("closed")
		return false
	}

	if !c.inFlight.TryAcquire(1) {
		c.logger.Warn("Analytics payload dropped", "reason", "too_many_in_flight", "endpoint", endpoint)
		c.metrics.dropped("too_many_in_flight")
		return false
	}

	if c.logger.Enabled(ctx, slog.LevelDebug) {
		c.logger.Debug("Dispatching payload", "endpoint", endpoint, "payload", string(data))
	}

	detached, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(c.ctx, cancel)

	c.wg.Go(func() {
		defer c.inFlight.Release(1)
		defer cancel()
		defer stop()
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("Dispatch panicked", "endpoint", endpoint, "panic", r, "stack", string(debug.Stack()))
			}
		}()

		c.dispatch(detached, endpoint, data)
	})
	return true
}

// newInsertID returns 128 random bits as 32 lowercase hex characters.
func newInsertID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}
