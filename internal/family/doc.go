// Package family defines the shared contract for device-family clients:
// the Client interface, the FetchError/ConfigError/ParseError taxonomy,
// the per-invocation retry policy, and a classified HTTP helper.
//
// Each family (hue, sonos, tapo, stream, nest) implements Client in its
// own subpackage. Clients are stateless beyond their configuration; the
// store holds the values they fetch and the connection monitor owns
// online/offline state derived from their health probes.
package family
