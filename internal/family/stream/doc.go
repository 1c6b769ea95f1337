// Package stream polls the streaming-box relay for playback state and the
// foreground app. The family is a singleton with no room mapping.
package stream
