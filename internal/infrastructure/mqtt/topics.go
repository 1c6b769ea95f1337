package mqtt

import "fmt"

// Topic prefixes for the homedeck MQTT surface.
//
// The core only publishes: retained family health, announcements, and a
// retained service status with LWT. External displays and automations
// subscribe; nothing subscribes back into the core.
const (
	// TopicPrefix is the base for all homedeck topics.
	TopicPrefix = "homedeck"

	// TopicPrefixSystem is the base for service-level topics.
	TopicPrefixSystem = "homedeck/system"
)

// Topics provides builders for homedeck MQTT topics. Using these helpers
// keeps topic naming consistent across the codebase.
type Topics struct{}

// FamilyHealth returns the retained health topic for a device family.
//
// Example: homedeck/health/hue
func (Topics) FamilyHealth(family string) string {
	return fmt.Sprintf("%s/health/%s", TopicPrefix, family)
}

// Announce returns the announcement topic.
//
// Example: homedeck/announce
func (Topics) Announce() string {
	return fmt.Sprintf("%s/announce", TopicPrefix)
}

// SystemStatus returns the retained service status topic, also used for
// the Last Will and Testament.
//
// Example: homedeck/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllFamilyHealth returns a pattern matching every family health topic.
//
// Pattern: homedeck/health/+
func (Topics) AllFamilyHealth() string {
	return fmt.Sprintf("%s/health/+", TopicPrefix)
}
