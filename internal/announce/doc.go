// Package announce relays core events outward: retained MQTT health
// topics per device family, announcement messages, and a spoken TTS
// fallback through the speaker relay when no broker is configured.
package announce
