// Package mqtt provides the broker client used to publish family health,
// announcements, and service status to external consumers (wall displays,
// automations). The core never subscribes; all inbound data arrives via
// the device-family polls.
//
// Connection loss is handled with auto-reconnect and a retained Last Will
// so subscribers can distinguish a crashed core from a stopped one.
package mqtt
