package mqtt

import "fmt"

// Topic prefixes.
const (
	// TopicPrefixCore is the base for events emitted by the registry service.
	TopicPrefixCore = "chimera/core"

	// TopicPrefixSystem is the base for service status topics.
	TopicPrefixSystem = "chimera/system"
)

// Topics provides builders for Chimera MQTT topics.
//
//	topic := mqtt.Topics{}.DeviceUpdated(7)
//	// Returns: "chimera/core/device/7/updated"
type Topics struct{}

// DeviceUpdated returns the topic announcing a committed device change.
func (Topics) DeviceUpdated(deviceID int) string {
	return fmt.Sprintf("%s/device/%d/updated", TopicPrefixCore, deviceID)
}

// AllDeviceUpdates returns a wildcard matching every DeviceUpdated topic.
func (Topics) AllDeviceUpdates() string {
	return TopicPrefixCore + "/device/+/updated"
}

// SystemStatus returns the retained online/offline status topic.
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}
