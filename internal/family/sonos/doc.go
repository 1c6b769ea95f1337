// Package sonos polls the speaker relay for per-unit volume and playback
// state and issues volume and TTS commands through it.
package sonos
