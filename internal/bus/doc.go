// Package bus provides the synchronous in-process event bus that connects
// the polling layer to its consumers.
//
// Producers (poll tasks, the connection monitor) emit typed events;
// consumers (WebSocket hub, MQTT announcer) subscribe by event type.
// Dispatch is synchronous and in registration order, each handler wrapped
// in its own panic boundary so one misbehaving subscriber cannot starve
// the rest.
//
// Events are fire-and-forget: there is no buffering, persistence, or
// replay for late subscribers.
package bus
