// Package rooms maps device-reported names onto the dashboard's fixed set
// of canonical rooms.
//
// Vendors report free-form names ("Hall sensor", "lounge lamp 2"); the
// dashboard keys everything by room. Mapping is an ordered list of
// case-insensitive regular expressions evaluated first-match-wins, and a
// miss is an explicit "not mapped" result: the signal is dropped, not an
// error.
package rooms
