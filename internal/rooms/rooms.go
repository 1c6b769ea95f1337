package rooms

import (
	"fmt"
	"regexp"

	"github.com/homedeck/homedeck-core/internal/infrastructure/config"
)

// Room is a canonical room name. The set of rooms is fixed by configuration
// at startup; device-reported names are mapped onto it.
type Room string

// rule is one compiled (pattern, room) pair.
type rule struct {
	pattern *regexp.Regexp
	room    Room
}

// Mapper resolves device-reported names to canonical rooms using an ordered
// list of case-insensitive patterns. The first matching rule wins.
//
// Mapper is immutable after construction and safe for concurrent use.
type Mapper struct {
	rules []rule
}

// NewMapper compiles the configured room rules.
//
// Patterns are matched case-insensitively regardless of how they are
// written in the config file.
func NewMapper(rules []config.RoomRule) (*Mapper, error) {
	m := &Mapper{rules: make([]rule, 0, len(rules))}

	for i, r := range rules {
		re, err := regexp.Compile("(?i)" + r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compiling room rule %d (%q): %w", i, r.Pattern, err)
		}
		m.rules = append(m.rules, rule{pattern: re, room: Room(r.Room)})
	}

	return m, nil
}

// Resolve maps a device-reported name to a room.
//
// The second return value is false when no rule matches; callers drop the
// signal in that case rather than treating it as an error.
func (m *Mapper) Resolve(deviceName string) (Room, bool) {
	for _, r := range m.rules {
		if r.pattern.MatchString(deviceName) {
			return r.room, true
		}
	}
	return "", false
}

// Rooms returns the distinct rooms in rule order.
func (m *Mapper) Rooms() []Room {
	seen := make(map[Room]struct{}, len(m.rules))
	out := make([]Room, 0, len(m.rules))
	for _, r := range m.rules {
		if _, ok := seen[r.room]; ok {
			continue
		}
		seen[r.room] = struct{}{}
		out = append(out, r.room)
	}
	return out
}
