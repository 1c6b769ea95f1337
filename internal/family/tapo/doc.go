// Package tapo polls the plug relay for smart-plug state. The relay owns
// the vendor cloud session; its health body distinguishes an expired
// session from the relay being down.
package tapo
