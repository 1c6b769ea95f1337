// Package hue polls a Hue-style bridge for motion, temperature, and light
// state, mapping sensor names onto rooms. Temperatures arrive from the
// bridge as centi-degrees and are converted on ingest.
package hue
